package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

var indexesBucket = []byte("indexes")

type boltStorage struct {
	db *bolt.DB
}

func openBoltStorage(path string, timeout time.Duration) (Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(indexesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket in %s: %w", path, err)
	}
	return &boltStorage{db: db}, nil
}

func (s *boltStorage) Set(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(indexesBucket).Put([]byte(key), value)
	})
}

// Get returns a copy of the value; bolt values are only valid inside the
// transaction.
func (s *boltStorage) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(indexesBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	return value, err
}

func (s *boltStorage) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(indexesBucket).Delete([]byte(key))
	})
}

func (s *boltStorage) ForEach(fn func(key string, value []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(indexesBucket).ForEach(func(k, v []byte) error {
			return fn(string(k), append([]byte(nil), v...))
		})
	})
}

func (s *boltStorage) Close() error {
	return s.db.Close()
}

func (s *boltStorage) Path() string {
	return s.db.Path()
}
