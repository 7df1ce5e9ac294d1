// Package statestore keeps saved-state bundles on disk so a restarted process
// can hand them back to its containers, the way an OS restores a killed app.
package statestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/five82/anchor/internal/bundle"
)

var bucketName = []byte("bundles")

// Store is a bbolt database of bundles keyed by container name.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init state store: %w", err)
	}
	return &Store{db: db}, nil
}

// Put replaces the bundle saved for name.
func (s *Store) Put(name string, b bundle.Bundle) error {
	data, err := bundle.Marshal(b)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(name), data)
	})
}

// Get returns the bundle saved for name. A missing entry is not an error; it
// returns a nil bundle and false.
func (s *Store) Get(name string) (bundle.Bundle, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get([]byte(name)); v != nil {
			// v is only valid inside the transaction
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("read bundle %s: %w", name, err)
	}
	if data == nil {
		return nil, false, nil
	}
	b, err := bundle.Unmarshal(data)
	if err != nil {
		return nil, false, fmt.Errorf("read bundle %s: %w", name, err)
	}
	return b, true, nil
}

// Delete drops the bundle saved for name. Deleting a missing entry is a no-op.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(name))
	})
}

// Names lists every stored container name.
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return nil
	}
	return err
}
