// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ByteStore is an in-memory badger database holding raw byte values with
// native per-key TTL. Tile rasters live here so they stay off the Go heap's
// map churn and expire without a janitor.
type ByteStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewByteStore opens an in-memory store with the given default TTL.
func NewByteStore(ttl time.Duration) (*ByteStore, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil).
		WithMemTableSize(16 << 20)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open byte store: %w", err)
	}
	return &ByteStore{db: db, ttl: ttl}, nil
}

// Get returns a copy of the value for key. The bool is false on miss or
// expiry.
func (s *ByteStore) Get(key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}
	return out, true, nil
}

// Set stores value under key with the default TTL.
func (s *ByteStore) Set(key string, value []byte) error {
	return s.SetWithTTL(key, value, s.ttl)
}

// SetWithTTL stores value under key for ttl.
func (s *ByteStore) SetWithTTL(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *ByteStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close releases the database.
func (s *ByteStore) Close() error {
	return s.db.Close()
}
