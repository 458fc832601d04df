package flattener

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeError reports that an uploaded payload is not a JSON document.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid JSON document: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode parses raw bytes into a Value tree. Tally writes its JSON exports as UTF-16 more often
// than not, so UTF-16 (with or without BOM) and BOM-prefixed UTF-8 are accepted.
func Decode(raw []byte) (Value, error) {
	text, err := toUTF8(raw)
	if err != nil {
		return Value{}, &DecodeError{Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
		return Value{}, &DecodeError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, &DecodeError{Err: errors.New("unexpected data after top-level value")}
	}

	return fromInterface(root), nil
}

func toUTF8(raw []byte) ([]byte, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		raw = raw[len(utf8BOM):]
	} else if endian, ok := utf16Endianness(raw); ok {
		decoder := unicode.UTF16(endian, unicode.UseBOM).NewDecoder()
		out, _, err := transform.Bytes(decoder, raw)
		if err != nil {
			return nil, fmt.Errorf("decode UTF-16: %w", err)
		}
		raw = out
	}

	if !utf8.Valid(raw) {
		return nil, errors.New("document is not valid UTF-8")
	}
	return raw, nil
}

// utf16Endianness sniffs a BOM, or the zero byte pattern an ASCII first character leaves.
func utf16Endianness(raw []byte) (unicode.Endianness, bool) {
	if len(raw) < 2 {
		return unicode.LittleEndian, false
	}
	switch {
	case raw[0] == 0xFF && raw[1] == 0xFE:
		return unicode.LittleEndian, true
	case raw[0] == 0xFE && raw[1] == 0xFF:
		return unicode.BigEndian, true
	case raw[0] == 0 && raw[1] != 0:
		return unicode.BigEndian, true
	case raw[0] != 0 && raw[1] == 0:
		return unicode.LittleEndian, true
	}
	return unicode.LittleEndian, false
}
