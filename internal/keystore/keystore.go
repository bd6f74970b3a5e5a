// Package keystore persists the client state of partyctl: the bearer token
// and the view selection. FileStore keeps them in a small JSON file in the
// user's home directory, MemoryStore keeps them for the lifetime of the
// process.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultFileName is created in the home directory when no path is given.
const DefaultFileName = ".partyctl.json"

// DefaultPath returns ~/.partyctl.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("in internal/keystore/keystore.go/DefaultPath(): error while `os.UserHomeDir()` calling: %w", err)
	}

	return filepath.Join(home, DefaultFileName), nil
}

// FileStore is a KeyValueStore backed by a JSON object on disk. Every call
// reads or rewrites the whole file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore uses the file at path, expanding a leading "~/". The file is
// created on the first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("in internal/keystore/keystore.go/NewFileStore(): empty path")
	}

	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("in internal/keystore/keystore.go/NewFileStore(): error while `os.UserHomeDir()` calling: %w", err)
		}
		path = filepath.Join(home, rest)
	}

	return &FileStore{path: path}, nil
}

// Path returns the resolved file name.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) read() (map[string]string, error) {
	values := map[string]string{}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return values, nil
	}

	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}

	return values, nil
}

func (s *FileStore) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "\t")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", false, fmt.Errorf("in internal/keystore/keystore.go/Get(): error while `s.read()` calling: %w", err)
	}

	value, ok := values[key]

	return value, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return fmt.Errorf("in internal/keystore/keystore.go/Set(): error while `s.read()` calling: %w", err)
	}
	values[key] = value

	if err := s.write(values); err != nil {
		return fmt.Errorf("in internal/keystore/keystore.go/Set(): error while `s.write()` calling: %w", err)
	}

	return nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return fmt.Errorf("in internal/keystore/keystore.go/Delete(): error while `s.read()` calling: %w", err)
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)

	if err := s.write(values); err != nil {
		return fmt.Errorf("in internal/keystore/keystore.go/Delete(): error while `s.write()` calling: %w", err)
	}

	return nil
}

// MemoryStore is a KeyValueStore that forgets everything on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]

	return value, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)

	return nil
}
