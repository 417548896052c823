package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File keeps one JSON document per namespace under dir. Each key maps to a
// raw JSON value.
type File struct {
	dir string
	mu  sync.Mutex
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(namespace string) string {
	return filepath.Join(f.dir, namespace+".json")
}

func (f *File) read(namespace string) (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)
	b, err := os.ReadFile(f.path(namespace))
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path(namespace), err)
	}
	return doc, nil
}

func (f *File) Load(_ context.Context, namespace, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read(namespace)
	if err != nil {
		return nil, err
	}
	v, ok := doc[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Save writes the value for key. Values that are not valid JSON are stored
// as JSON strings.
func (f *File) Save(_ context.Context, namespace, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read(namespace)
	if err != nil {
		// An unreadable document is replaced rather than blocking writes.
		doc = make(map[string]json.RawMessage)
	}
	if json.Valid(value) {
		doc[key] = json.RawMessage(value)
	} else {
		s, _ := json.Marshal(string(value))
		doc[key] = s
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, namespace+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path(namespace))
}

func (f *File) Close() error { return nil }
