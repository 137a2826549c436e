// Package ots implements a stateful Winternitz one-time signature tree.
//
// A tree of 2^TreeHeight leaves is derived from a 32-byte seed; its Merkle
// root is the public key. Every signature consumes one leaf, and the signing
// State reserves each leaf index through a Store before using it, so a crash
// can skip indices but never reuse one.
package ots

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	pqcore "github.com/BackendStack21/pqcore-go"
	"github.com/BackendStack21/pqcore-go/core"
	"github.com/BackendStack21/pqcore-go/utils"
)

var (
	// ErrKeyExhausted is returned once every leaf of a tree has been used.
	ErrKeyExhausted = errors.New("ots: key exhausted")
	// ErrStatePersist is returned when the store refuses a reservation.
	ErrStatePersist = errors.New("ots: persisting state failed")
	// ErrStateCorrupt is returned when a serialized state does not match
	// the tree its seed derives.
	ErrStateCorrupt = errors.New("ots: corrupt state")
)

// Store durably records, per tree, the first leaf index that has not been
// reserved yet. Reserve must be an atomic read-modify-write that refuses to
// keep or lower the recorded value.
type Store interface {
	Reserve(treeID []byte, next uint32) error
	// NextIndex returns 0 for a tree the store has never seen.
	NextIndex(treeID []byte) (uint32, error)
}

// Status is the lifecycle stage of a signing state.
type Status int

const (
	Fresh Status = iota
	Active
	Exhausted
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Active:
		return "active"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// State is the signer side of a tree. It must not be copied.
type State struct {
	mu        sync.Mutex
	params    pqcore.Params
	seed      []byte
	root      []byte
	tree      *merkleTree
	nextIndex uint32
	capacity  uint32
	store     Store
}

// GenerateTree builds a tree from a fresh random seed.
func GenerateTree(level pqcore.SecurityLevel, store Store) ([]byte, *State, error) {
	params, err := core.GetParams(level)
	if err != nil {
		return nil, nil, err
	}
	seed, err := utils.SecureRandomBytes(pqcore.SeedSize)
	if err != nil {
		return nil, nil, err
	}
	defer utils.Zeroize(seed)
	if err := utils.ValidateSeedEntropy(seed); err != nil {
		return nil, nil, err
	}
	return Generate(params, seed, store)
}

// Generate derives every leaf of the tree from seed and returns the root
// together with the signing state. If store is non-nil, the state resumes at
// the index the store has recorded for this root.
func Generate(params pqcore.Params, seed []byte, store Store) ([]byte, *State, error) {
	if len(seed) != pqcore.SeedSize {
		return nil, nil, fmt.Errorf("seed must be %d bytes, got %d", pqcore.SeedSize, len(seed))
	}
	if err := core.ValidateParams(params); err != nil {
		return nil, nil, err
	}

	st := &State{
		params:   params,
		seed:     append([]byte(nil), seed...),
		capacity: params.OTSCapacity(),
	}
	st.tree = buildMerkleTree(computeLeaves(st.seed, st.capacity))
	st.root = st.tree.root()

	if err := st.attach(store); err != nil {
		st.Destroy()
		return nil, nil, err
	}
	utils.Debugf("ots", "generated %s tree, %d leaves, next index %d", params.Level, st.capacity, st.nextIndex)
	return append([]byte(nil), st.root...), st, nil
}

// computeLeaves derives the leaf values, spreading the work over the CPUs.
func computeLeaves(seed []byte, capacity uint32) [][]byte {
	leaves := make([][]byte, capacity)
	workers := runtime.GOMAXPROCS(0)
	if uint32(workers) > capacity {
		workers = int(capacity)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for wk := 0; wk < workers; wk++ {
		go func(first uint32) {
			defer wg.Done()
			for i := first; i < capacity; i += uint32(workers) {
				leaves[i] = leafPublic(seed, i)
			}
		}(uint32(wk))
	}
	wg.Wait()
	return leaves
}

// attach binds store to st and moves nextIndex forward to the stored value.
func (st *State) attach(store Store) error {
	st.store = store
	if store == nil {
		return nil
	}
	next, err := store.NextIndex(st.root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStatePersist, err)
	}
	if next > st.capacity {
		next = st.capacity
	}
	if next > st.nextIndex {
		utils.Debugf("ots", "store is ahead: resuming at %d instead of %d", next, st.nextIndex)
		st.nextIndex = next
	}
	if st.nextIndex == st.capacity {
		utils.Zeroize(st.seed)
	}
	return nil
}

// Sign signs message with the next unused leaf. The index is reserved in the
// store before any key material for it is derived.
func Sign(st *State, message []byte) (*pqcore.Signature, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.nextIndex >= st.capacity {
		return nil, ErrKeyExhausted
	}
	idx := st.nextIndex
	if st.store != nil {
		if err := st.store.Reserve(st.root, idx+1); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStatePersist, err)
		}
	}
	st.nextIndex++

	digest := messageDigest(st.root, idx, message)
	sig := &pqcore.Signature{
		LeafIndex: idx,
		Chains:    wotsSign(st.seed, idx, digest),
		AuthPath:  st.tree.path(idx),
	}

	if st.nextIndex == st.capacity {
		utils.Debugf("ots", "tree exhausted after %d signatures", st.capacity)
		utils.Zeroize(st.seed)
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature of message under root.
func Verify(params pqcore.Params, root, message []byte, sig *pqcore.Signature) bool {
	if sig == nil || len(root) != pqcore.HashSize {
		return false
	}
	if sig.LeafIndex >= params.OTSCapacity() {
		return false
	}
	if len(sig.Chains) != numChain || len(sig.AuthPath) != params.TreeHeight {
		return false
	}
	for _, c := range sig.Chains {
		if len(c) != pqcore.HashSize {
			return false
		}
	}
	for _, p := range sig.AuthPath {
		if len(p) != pqcore.HashSize {
			return false
		}
	}

	digest := messageDigest(root, sig.LeafIndex, message)
	leaf := wotsLeaf(sig.LeafIndex, digest, sig.Chains)
	return utils.ConstantTimeEqual(rootFromPath(leaf, sig.LeafIndex, sig.AuthPath), root)
}

// Root returns a copy of the tree root.
func (st *State) Root() []byte {
	return append([]byte(nil), st.root...)
}

// Params returns the parameter set of the tree.
func (st *State) Params() pqcore.Params {
	return st.params
}

// NextIndex returns the next leaf index Sign will use.
func (st *State) NextIndex() uint32 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.nextIndex
}

// Capacity returns the number of leaves in the tree.
func (st *State) Capacity() uint32 {
	return st.capacity
}

// Remaining returns how many signatures the tree can still produce.
func (st *State) Remaining() uint32 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.capacity - st.nextIndex
}

// Status reports the lifecycle stage of the state.
func (st *State) Status() Status {
	st.mu.Lock()
	defer st.mu.Unlock()
	switch {
	case st.nextIndex == 0:
		return Fresh
	case st.nextIndex < st.capacity:
		return Active
	default:
		return Exhausted
	}
}

// Destroy zeroizes the seed and marks the state exhausted.
func (st *State) Destroy() {
	st.mu.Lock()
	defer st.mu.Unlock()
	utils.Zeroize(st.seed)
	st.nextIndex = st.capacity
}
