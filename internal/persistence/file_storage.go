package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const fileStorageExt = ".gob"

// fileStorage keeps every value in its own gob file under a directory.
type fileStorage struct {
	dir string
}

func openFileStorage(dir string, _ time.Duration) (Storage, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &fileStorage{dir: dir}, nil
}

func (s *fileStorage) file(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.dir, key+fileStorageExt), nil
}

func (s *fileStorage) Set(key string, value []byte) error {
	path, err := s.file(key)
	if err != nil {
		return err
	}
	return SaveGob(path, value)
}

func (s *fileStorage) Get(key string) ([]byte, error) {
	path, err := s.file(key)
	if err != nil {
		return nil, err
	}
	var value []byte
	if err := LoadGob(path, &value); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *fileStorage) Delete(key string) error {
	path, err := s.file(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// ForEach visits keys in sorted order.
func (s *fileStorage) ForEach(fn func(key string, value []byte) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read storage directory %s: %w", s.dir, err)
	}
	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileStorageExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(entry.Name(), fileStorageExt))
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, err := s.Get(key)
		if err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *fileStorage) Close() error {
	return nil
}

func (s *fileStorage) Path() string {
	return s.dir
}
