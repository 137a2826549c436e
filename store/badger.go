package store

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/BackendStack21/pqcore-go/utils"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	Dir        string
	InMemory   bool
	SyncWrites bool
}

// BadgerStore keeps reservations in a badger database. Each Reserve is one
// read-modify-write transaction.
type BadgerStore struct {
	mu     sync.RWMutex
	db     *badger.DB
	closed bool
}

// OpenBadger opens (or creates) the database described by cfg.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(newBadgerLogger())
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	utils.Debugf("store", "opened badger store dir=%q in-memory=%v", cfg.Dir, cfg.InMemory)
	return &BadgerStore{db: db}, nil
}

// Reserve records next as the first unreserved index of treeID, failing with
// ErrIndexReused unless next is larger than the recorded value.
func (s *BadgerStore) Reserve(treeID []byte, next uint32) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	key := nextKey(treeID)
	return s.db.Update(func(txn *badger.Txn) error {
		cur, err := readIndex(txn, key)
		if err != nil {
			return err
		}
		if err := checkAdvance(cur, next); err != nil {
			return err
		}
		return txn.Set(key, encodeIndex(next))
	})
}

// NextIndex returns the first unreserved index of treeID, or 0.
func (s *BadgerStore) NextIndex(treeID []byte) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	var next uint32
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		next, err = readIndex(txn, nextKey(treeID))
		return err
	})
	return next, err
}

func readIndex(txn *badger.Txn, key []byte) (uint32, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return decodeIndex(val)
}

// SaveState stores a serialized signing state for treeID.
func (s *BadgerStore) SaveState(treeID, state []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey(treeID), state)
	})
}

// LoadState returns the state saved for treeID, or ErrNotFound.
func (s *BadgerStore) LoadState(treeID []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	var state []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey(treeID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		state, err = item.ValueCopy(nil)
		return err
	})
	return state, err
}

// Close closes the database. Later calls return ErrStoreClosed.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// badgerLogger routes badger's diagnostics through the package logging:
// errors and warnings always, the rest only in debug mode.
type badgerLogger struct {
	l *log.Logger
}

func newBadgerLogger() *badgerLogger {
	return &badgerLogger{l: utils.NewLogger("badger")}
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Printf("ERROR: "+format, args...)
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Printf("WARNING: "+format, args...)
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	utils.Debugf("badger", format, args...)
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	utils.Debugf("badger", format, args...)
}
