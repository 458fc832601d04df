package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"daybook-ndjson-backend/internal/services/flattener"
)

const ndjsonExt = ".ndjson"

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidName = errors.New("invalid artifact name")
)

// Artifact describes a stored NDJSON file.
type Artifact struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
}

// NDJSONStore keeps converted daybooks as .ndjson files in one directory.
type NDJSONStore struct {
	dir string
}

func NewNDJSONStore(dir string) (*NDJSONStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &NDJSONStore{dir: dir}, nil
}

func (s *NDJSONStore) Dir() string { return s.dir }

// OutputName derives the artifact name for an uploaded file: every ".json" is dropped and
// ".ndjson" appended, so "daybook.json" becomes "daybook.ndjson".
func OutputName(uploadName string) string {
	base := filepath.Base(strings.ReplaceAll(uploadName, "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	base = strings.TrimLeft(strings.ReplaceAll(base, ".json", ""), ".")
	if base == "" {
		base = "daybook"
	}
	return base + ndjsonExt
}

// Save writes rows under name. The file is written to a temporary name first and renamed into
// place, so readers never see a partial artifact.
func (s *NDJSONStore) Save(name string, rows []flattener.FlatRow) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*"+ndjsonExt)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := flattener.WriteNDJSON(tmp, rows); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}
	return path, nil
}

// Open returns the stored artifact for reading. The caller closes the file.
func (s *NDJSONStore) Open(name string) (*os.File, os.FileInfo, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

// List returns stored artifacts, newest first.
func (s *NDJSONStore) List() ([]Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var out []Artifact
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ndjsonExt) || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Artifact{Name: name, Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModTime.After(out[j].ModTime) })
	return out, nil
}

// path resolves a client supplied name inside the store directory.
func (s *NDJSONStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		!strings.HasSuffix(name, ndjsonExt) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}
