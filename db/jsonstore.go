package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/charmbracelet/log"
)

// ErrDocumentNotFound is returned by a Backend when no document exists under a name.
var ErrDocumentNotFound = errors.New("document not found")

// Backend reads and writes whole documents by name.
type Backend interface {
	// Read returns the raw bytes stored under name, or ErrDocumentNotFound.
	Read(ctx context.Context, name string) ([]byte, error)
	// Write replaces the document stored under name.
	Write(ctx context.Context, name string, data []byte) error
}

// JSONStore loads and saves mapping-shaped JSON documents through a Backend.
type JSONStore struct {
	backend Backend
}

// NewJSONStore wraps a backend.
func NewJSONStore(backend Backend) *JSONStore {
	return &JSONStore{backend: backend}
}

// Load decodes the document stored under name into dst.
//
// If the document is missing, empty or not valid JSON, defaults is written in its place
// and decoded into dst instead; seeded reports that this happened. A corrupt document is
// replaced, not repaired.
func (s *JSONStore) Load(ctx context.Context, name string, dst any, defaults any) (seeded bool, err error) {
	data, err := s.backend.Read(ctx, name)
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		log.Info("document not found, creating it with default data", "name", name)
	case err != nil:
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	case len(bytes.TrimSpace(data)) == 0:
		log.Info("document is empty, creating it with default data", "name", name)
	default:
		parseErr := decodeInto(data, dst)
		if parseErr == nil {
			log.Info("loaded document", "name", name, "bytes", len(data))
			return false, nil
		}
		log.Warn("document is corrupt, replacing it with default data", "name", name, "error", parseErr)
	}

	encoded, err := encodeDocument(defaults)
	if err != nil {
		return false, fmt.Errorf("failed to encode default %s: %w", name, err)
	}
	if err := s.backend.Write(ctx, name, encoded); err != nil {
		return false, fmt.Errorf("failed to write default %s: %w", name, err)
	}
	if err := decodeInto(encoded, dst); err != nil {
		return false, fmt.Errorf("failed to decode default %s: %w", name, err)
	}
	return true, nil
}

// Save writes the whole document under name, pretty-printed, replacing prior contents.
func (s *JSONStore) Save(ctx context.Context, document any, name string) error {
	encoded, err := encodeDocument(document)
	if err != nil {
		log.Error("failed to encode document", "name", name, "error", err)
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := s.backend.Write(ctx, name, encoded); err != nil {
		log.Error("failed to save document", "name", name, "error", err)
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	log.Debug("saved document", "name", name, "bytes", len(encoded))
	return nil
}

// decodeInto unmarshals data into a fresh value of dst's element type and stores it
// in dst only when decoding succeeds. dst must be a non-nil pointer.
func decodeInto(data []byte, dst any) error {
	target := reflect.ValueOf(dst)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", dst)
	}
	fresh := reflect.New(target.Elem().Type())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		return err
	}
	target.Elem().Set(fresh.Elem())
	return nil
}

func encodeDocument(document any) ([]byte, error) {
	encoded, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(encoded, '\n'), nil
}
