// Package store provides durable and in-memory backends for OTS leaf-index
// reservations and serialized signing states.
package store

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrIndexReused is returned when a reservation would not move the
	// recorded index forward.
	ErrIndexReused = errors.New("store: leaf index already reserved")
	// ErrNotFound is returned when no state is saved for a tree.
	ErrNotFound = errors.New("store: not found")
	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("store: closed")
)

const (
	nextPrefix  = "ots/next/"
	statePrefix = "ots/state/"
)

func nextKey(treeID []byte) []byte {
	return []byte(nextPrefix + hex.EncodeToString(treeID))
}

func stateKey(treeID []byte) []byte {
	return []byte(statePrefix + hex.EncodeToString(treeID))
}

func encodeIndex(next uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, next)
}

func decodeIndex(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("store: corrupt index record of %d bytes", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

// checkAdvance refuses a reservation that does not move past cur.
func checkAdvance(cur, next uint32) error {
	if next <= cur {
		return fmt.Errorf("%w: next %d, recorded %d", ErrIndexReused, next, cur)
	}
	return nil
}

// MemoryStore keeps reservations in process memory. It suits tests and
// short-lived signers whose trees never outlive the process.
type MemoryStore struct {
	mu     sync.Mutex
	next   map[string]uint32
	states map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		next:   make(map[string]uint32),
		states: make(map[string][]byte),
	}
}

// Reserve records next as the first unreserved index of treeID.
func (m *MemoryStore) Reserve(treeID []byte, next uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(treeID)
	if err := checkAdvance(m.next[key], next); err != nil {
		return err
	}
	m.next[key] = next
	return nil
}

// NextIndex returns the first unreserved index of treeID, or 0.
func (m *MemoryStore) NextIndex(treeID []byte) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next[string(treeID)], nil
}

// SaveState stores a serialized signing state for treeID.
func (m *MemoryStore) SaveState(treeID, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[string(treeID)] = append([]byte(nil), state...)
	return nil
}

// LoadState returns the state saved for treeID.
func (m *MemoryStore) LoadState(treeID []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[string(treeID)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), s...), nil
}
