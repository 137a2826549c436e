package ots

import (
	"encoding/binary"
	"fmt"

	pqcore "github.com/BackendStack21/pqcore-go"
	"github.com/BackendStack21/pqcore-go/codec"
	"github.com/BackendStack21/pqcore-go/core"
	"github.com/BackendStack21/pqcore-go/utils"
)

const stateVersion = 1

// SerializeSignature encodes sig as leafIndex (uint32 BE) || chains || path.
func SerializeSignature(sig *pqcore.Signature) []byte {
	out := make([]byte, 4, 4+(len(sig.Chains)+len(sig.AuthPath))*pqcore.HashSize)
	binary.BigEndian.PutUint32(out, sig.LeafIndex)
	for _, c := range sig.Chains {
		out = append(out, c...)
	}
	for _, p := range sig.AuthPath {
		out = append(out, p...)
	}
	return out
}

// DeserializeSignature decodes a signature for the tree height of params.
func DeserializeSignature(params pqcore.Params, data []byte) (*pqcore.Signature, error) {
	if len(data) != params.SignatureSize() {
		return nil, fmt.Errorf("signature: %w: got %d bytes, want %d",
			codec.ErrLengthMismatch, len(data), params.SignatureSize())
	}
	sig := &pqcore.Signature{
		LeafIndex: binary.BigEndian.Uint32(data),
		Chains:    make([][]byte, numChain),
		AuthPath:  make([][]byte, params.TreeHeight),
	}
	off := 4
	next := func() []byte {
		b := append([]byte(nil), data[off:off+pqcore.HashSize]...)
		off += pqcore.HashSize
		return b
	}
	for i := range sig.Chains {
		sig.Chains[i] = next()
	}
	for i := range sig.AuthPath {
		sig.AuthPath[i] = next()
	}
	return sig, nil
}

// MarshalBinary encodes the state as
// version || len(level) || level || root || seed || nextIndex (uint32 BE).
// The encoding holds the secret seed.
func (st *State) MarshalBinary() ([]byte, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	level := string(st.params.Level)
	out := make([]byte, 0, 2+len(level)+2*pqcore.HashSize+4)
	out = append(out, stateVersion, byte(len(level)))
	out = append(out, level...)
	out = append(out, st.root...)
	out = append(out, st.seed...)
	return binary.BigEndian.AppendUint32(out, st.nextIndex), nil
}

// UnmarshalState rebuilds a signing state from MarshalBinary output. The
// leaves are recomputed from the seed and must reproduce the stored root.
// An exhausted state is restored without its tree.
func UnmarshalState(data []byte) (*State, error) {
	if len(data) < 2 || data[0] != stateVersion {
		return nil, fmt.Errorf("%w: unknown encoding", ErrStateCorrupt)
	}
	if err := utils.CheckLength(len(data), utils.MaxStateSize); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateCorrupt, err)
	}
	nameLen := int(data[1])
	if err := utils.ValidateSliceAccess(data, 2, nameLen); err != nil {
		return nil, fmt.Errorf("state: %w: %w", codec.ErrLengthMismatch, err)
	}
	want := 2 + nameLen + 2*pqcore.HashSize + 4
	if len(data) != want {
		return nil, fmt.Errorf("state: %w: got %d bytes, want %d", codec.ErrLengthMismatch, len(data), want)
	}
	params, err := core.GetParams(pqcore.SecurityLevel(data[2 : 2+nameLen]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateCorrupt, err)
	}
	off := 2 + nameLen
	root := data[off : off+pqcore.HashSize]
	seed := data[off+pqcore.HashSize : off+2*pqcore.HashSize]
	next := binary.BigEndian.Uint32(data[off+2*pqcore.HashSize:])
	if next > params.OTSCapacity() {
		return nil, fmt.Errorf("%w: next index %d beyond capacity %d", ErrStateCorrupt, next, params.OTSCapacity())
	}

	st := &State{
		params:    params,
		seed:      make([]byte, pqcore.SeedSize),
		root:      append([]byte(nil), root...),
		nextIndex: next,
		capacity:  params.OTSCapacity(),
	}
	if next == st.capacity {
		return st, nil
	}
	copy(st.seed, seed)
	st.tree = buildMerkleTree(computeLeaves(st.seed, st.capacity))
	if !utils.ConstantTimeEqual(st.tree.root(), st.root) {
		utils.Zeroize(st.seed)
		return nil, fmt.Errorf("%w: seed does not derive the stored root", ErrStateCorrupt)
	}
	return st, nil
}

// Restore unmarshals a state and reconciles it with store: whichever of the
// serialized and stored indices is larger wins.
func Restore(data []byte, store Store) (*State, error) {
	st, err := UnmarshalState(data)
	if err != nil {
		return nil, err
	}
	if err := st.attach(store); err != nil {
		st.Destroy()
		return nil, err
	}
	return st, nil
}
