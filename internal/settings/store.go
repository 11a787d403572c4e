// Package settings persists user-facing settings: selected model per
// category, guardrail policy, remote endpoint and generation defaults. The
// persistence format is a flat string key/value store.
package settings

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Store is a flat key/value store. SetMany writes all pairs or none.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	SetMany(kv map[string]string) error
	Close() error
}

// MemoryStore keeps settings in memory.
type MemoryStore struct {
	mu sync.RWMutex
	kv map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{kv: map[string]string{}} }

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.kv[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	s.kv[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SetMany(kv map[string]string) error {
	s.mu.Lock()
	for k, v := range kv {
		s.kv[k] = v
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

const keyPrefix = "settings/"

// BadgerStore persists settings in a badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (creating if needed) a badger database at dir. An empty
// dir opens an in-memory database.
func OpenBadger(dir string, log zerolog.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create settings directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{log: log})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open settings database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(key string) (string, bool, error) {
	var out string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return out, true, nil
}

func (s *BadgerStore) Set(key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), []byte(value))
	})
}

// SetMany writes kv in a single transaction.
func (s *BadgerStore) SetMany(kv map[string]string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for k, v := range kv {
			if err := txn.Set([]byte(keyPrefix+k), []byte(v)); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		return nil
	})
}

func (s *BadgerStore) Close() error { return s.db.Close() }

// badgerLogger routes badger's internal logging to zerolog.
type badgerLogger struct{ log zerolog.Logger }

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Str("component", "badger").Msgf(format, args...)
}
