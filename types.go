// Package pqcore implements a module-lattice key encapsulation mechanism and a
// stateful hash-based one-time-signature tree.
//
// The KEM works over R_q = Z_q[X]/(X^256+1), q = 3329, with centered binomial
// noise and ciphertext compression. The OTS tree signs with Winternitz chains
// (w = 16) and authenticates leaves with a Merkle tree of fixed height.
//
// WARNING: This implementation has not been independently audited.
// The OTS tree is stateful: a signing state must never be copied, restored
// from a stale backup, or shared between processes without a store.
package pqcore

import "github.com/BackendStack21/pqcore-go/ring"

// SecurityLevel names a parameter set.
type SecurityLevel string

const (
	// PQTest is a small set for tests: KEM as PQ512, OTS tree of 16 leaves.
	PQTest SecurityLevel = "PQ-TEST"
	// PQ512 targets NIST category 1.
	PQ512 SecurityLevel = "PQ-512"
	// PQ768 targets NIST category 3.
	PQ768 SecurityLevel = "PQ-768"
	// PQ1024 targets NIST category 5.
	PQ1024 SecurityLevel = "PQ-1024"
)

const (
	// SeedSize is the size of key generation seeds and encapsulation messages.
	SeedSize = 32
	// SharedSecretSize is the size of the KEM shared secret.
	SharedSecretSize = 32
	// HashSize is the size of OTS chain values, tree nodes and roots.
	HashSize = 32
	// OTSChains is the number of Winternitz chains per one-time key
	// (64 message digits + 3 checksum digits for w = 16).
	OTSChains = 67
	// PolyBytes is the size of a ring element encoded at 12 bits.
	PolyBytes = ring.N * 12 / 8
)

// =============================================================================
// Parameter Types
// =============================================================================

// Params is a complete parameter set. It is resolved once by core.GetParams
// and threaded explicitly through every operation.
type Params struct {
	Level SecurityLevel `json:"level"`
	N     int           `json:"n"`   // Ring degree
	Q     int           `json:"q"`   // Coefficient modulus
	K     int           `json:"k"`   // Module rank
	Eta   int           `json:"eta"` // Binomial noise parameter
	DU    int           `json:"du"`  // Compression width of u
	DV    int           `json:"dv"`  // Compression width of v

	TreeHeight int `json:"tree_height"` // OTS Merkle tree height

	// FailureLog2 is log2 of the documented decryption failure bound.
	FailureLog2 int `json:"failure_log2"`
}

// PublicKeySize returns the encoded public key size in bytes.
func (p Params) PublicKeySize() int {
	return SeedSize + p.K*PolyBytes
}

// SecretKeySize returns the encoded secret key size in bytes.
func (p Params) SecretKeySize() int {
	return p.K * PolyBytes
}

// CiphertextSize returns the encoded ciphertext size in bytes.
func (p Params) CiphertextSize() int {
	return p.K*ring.N*p.DU/8 + ring.N*p.DV/8
}

// OTSCapacity returns the number of signatures one OTS tree can produce.
func (p Params) OTSCapacity() uint32 {
	return 1 << uint(p.TreeHeight)
}

// SignatureSize returns the encoded OTS signature size in bytes.
func (p Params) SignatureSize() int {
	return 4 + OTSChains*HashSize + p.TreeHeight*HashSize
}

// =============================================================================
// KEM Types
// =============================================================================

// KeyPair holds an encoded KEM key pair.
// PublicKey = rho || Encode(t, 12), SecretKey = Encode(s, 12).
type KeyPair struct {
	Params    Params
	PublicKey []byte
	SecretKey []byte
}

// Ciphertext is the structured form of a KEM ciphertext. U and V hold
// compressed coefficients of width Params.DU and Params.DV.
type Ciphertext struct {
	U ring.Vector
	V ring.Element
}

// EncapsulationResult contains the result of KEM encapsulation.
type EncapsulationResult struct {
	SharedSecret []byte
	Ciphertext   []byte
}

// EncryptedMessage contains an encrypted message with its KEM ciphertext.
type EncryptedMessage struct {
	Ciphertext []byte // KEM ciphertext
	Nonce      []byte // AEAD nonce
	Encrypted  []byte // AEAD output
}

// =============================================================================
// OTS Types
// =============================================================================

// Signature is a one-time signature with its Merkle authentication path.
type Signature struct {
	LeafIndex uint32
	Chains    [][]byte // OTSChains values of HashSize bytes
	AuthPath  [][]byte // TreeHeight siblings, leaf level first
}
