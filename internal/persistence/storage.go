package persistence

import (
	"errors"
	"fmt"
	"time"
)

// DefaultStorageEngine is used when no engine is configured.
const DefaultStorageEngine = "bolt"

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

var supportedStorage = map[string]func(path string, timeout time.Duration) (Storage, error){
	"bolt": openBoltStorage,
	"file": openFileStorage,
}

// RegisterStorageEngine makes another storage engine available to OpenStorage.
func RegisterStorageEngine(name string, fn func(path string, timeout time.Duration) (Storage, error)) {
	supportedStorage[name] = fn
}

// Storage is a small key-value store for index snapshots.
type Storage interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	ForEach(fn func(key string, value []byte) error) error
	Close() error
	Path() string
}

// OpenStorage opens the storage at path with the named engine. An empty
// engine name selects DefaultStorageEngine.
func OpenStorage(engine, path string, timeout time.Duration) (Storage, error) {
	if engine == "" {
		engine = DefaultStorageEngine
	}
	if fn, has := supportedStorage[engine]; has {
		return fn(path, timeout)
	}
	return nil, fmt.Errorf("unsupported storage engine %q", engine)
}
