// Package file stores instrument documents as one JSON file per symbol.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"team-stock-exchange/internal/domain"
	"team-stock-exchange/internal/storage"
)

// DocumentStore implements storage.DocumentStore on a directory of <SYMBOL>.json files.
// Saves go through a temp file and rename, so a concurrent reader sees either
// the previous or the next document, never a torn write.
type DocumentStore struct {
	dir string
}

// NewDocumentStore creates the data directory if needed.
func NewDocumentStore(dir string) (*DocumentStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty data dir: %w", storage.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &DocumentStore{dir: dir}, nil
}

// Compile-time interface check.
var _ storage.DocumentStore = (*DocumentStore)(nil)

// Dir returns the data directory.
func (s *DocumentStore) Dir() string {
	return s.dir
}

// Load reads and decodes the document for a symbol.
func (s *DocumentStore) Load(_ context.Context, symbol string) (*domain.Instrument, error) {
	path, err := s.path(symbol)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return storage.DecodeDocument(domain.NormalizeSymbol(symbol), data)
}

// Save atomically replaces the document file.
func (s *DocumentStore) Save(_ context.Context, inst *domain.Instrument) error {
	data, err := storage.EncodeDocument(inst)
	if err != nil {
		return err
	}

	path, err := s.path(inst.Symbol)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+inst.Symbol+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", inst.Symbol, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", path, err)
	}

	return nil
}

// path maps a symbol to its file, rejecting anything that could escape the directory.
func (s *DocumentStore) path(symbol string) (string, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" || strings.ContainsAny(symbol, `/\.`) {
		return "", fmt.Errorf("symbol %q: %w", symbol, storage.ErrInvalidInput)
	}
	return filepath.Join(s.dir, symbol+".json"), nil
}
