// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/tomtom215/owldoor/internal/metrics"
)

// ErrNotFound is returned by Persistent.Get for missing or expired keys.
var ErrNotFound = errors.New("cache: key not found")

// Persistent is a JSON-valued key/value cache on badger. Expiry is handled by
// badger's per-entry TTL.
type Persistent struct {
	db     *badger.DB
	prefix string
	ttl    time.Duration
	owned  bool
}

// OpenPersistent opens a badger database at dir. An empty dir opens an
// in-memory database, which is what tests and single-node development use.
func OpenPersistent(dir, prefix string, ttl time.Duration) (*Persistent, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Persistent{db: db, prefix: prefix, ttl: ttl, owned: true}, nil
}

// NewPersistent wraps an already open badger database.
func NewPersistent(db *badger.DB, prefix string, ttl time.Duration) *Persistent {
	return &Persistent{db: db, prefix: prefix, ttl: ttl}
}

func (p *Persistent) key(k string) []byte {
	return []byte(p.prefix + k)
}

// Get decodes the value stored at key into dst.
func (p *Persistent) Get(key string, dst interface{}) error {
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(p.key(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dst)
		})
	})
	metrics.RecordCache(p.prefix+"persistent", err == nil)
	return err
}

// Set stores value at key with the configured TTL.
func (p *Persistent) Set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return p.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(p.key(key), data)
		if p.ttl > 0 {
			e = e.WithTTL(p.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes key. Missing keys are not an error.
func (p *Persistent) Delete(key string) error {
	return p.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(p.key(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

// Count returns the number of live keys under this cache's prefix.
func (p *Persistent) Count() (int, error) {
	n := 0
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(p.prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close closes the database if this Persistent opened it.
func (p *Persistent) Close() error {
	if !p.owned {
		return nil
	}
	return p.db.Close()
}
