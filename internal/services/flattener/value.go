// Package flattener turns a Tally daybook export into one flat row per ledger line.
//
// The export is schema-less: keys change case between versions and the same ledger list shows
// up under several historical names and nesting depths. Documents are therefore held as a
// generic Value tree and every field is read through Lookup.
package flattener

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind is the type tag of a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	List
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case List:
		return "list"
	case Mapping:
		return "mapping"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one node of a decoded document. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	// num keeps the literal for numbers that came from JSON so they are written back unchanged.
	num  json.Number
	f    float64
	str  string
	list []Value
	m    map[string]Value
}

func NullValue() Value { return Value{} }

func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

func NumberValue(f float64) Value { return Value{kind: Number, f: f} }

func StringValue(s string) Value { return Value{kind: String, str: s} }

func ListValue(items ...Value) Value { return Value{kind: List, list: items} }

func MappingValue(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: Mapping, m: m}
}

func numberLiteral(n json.Number) Value { return Value{kind: Number, num: n} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == Null }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Bool }

func (v Value) AsString() (string, bool) { return v.str, v.kind == String }

// AsFloat reports the number as float64. Literals that overflow float64 report false.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	if v.num == "" {
		return v.f, true
	}
	f, err := strconv.ParseFloat(string(v.num), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == List }

func (v Value) AsMapping() (map[string]Value, bool) { return v.m, v.kind == Mapping }

// Interface converts the tree back to plain Go values (nil, bool, float64 or json.Number,
// string, []any, map[string]any).
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		if v.num != "" {
			return v.num
		}
		return v.f
	case String:
		return v.str
	case List:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case Mapping:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case Bool:
		return marshalUnescaped(v.b)
	case Number:
		if v.num != "" {
			return []byte(v.num), nil
		}
		return marshalUnescaped(v.f)
	case String:
		return marshalUnescaped(v.str)
	case List:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return marshalUnescaped(v.list)
	default:
		return marshalUnescaped(v.m)
	}
}

// marshalUnescaped is json.Marshal without the HTML escaping of <, > and &.
func marshalUnescaped(x any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(x); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func fromInterface(x any) Value {
	switch t := x.(type) {
	case nil:
		return NullValue()
	case bool:
		return BoolValue(t)
	case json.Number:
		return numberLiteral(t)
	case float64:
		return NumberValue(t)
	case string:
		return StringValue(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = fromInterface(item)
		}
		return ListValue(items...)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = fromInterface(item)
		}
		return MappingValue(m)
	default:
		return NullValue()
	}
}
