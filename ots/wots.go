package ots

import (
	"encoding/binary"

	pqcore "github.com/BackendStack21/pqcore-go"
	"github.com/BackendStack21/pqcore-go/utils"
)

const (
	DomainChainSecret = "pqcore-ots-secret-v1"
	DomainChainStep   = "pqcore-ots-chain-v1"
	DomainLeaf        = "pqcore-ots-leaf-v1"
	DomainNode        = "pqcore-ots-node-v1"
	DomainMessage     = "pqcore-ots-msg-v1"
)

// Winternitz parameters: base-16 digits over a 32-byte digest plus a
// three-digit checksum.
const (
	w        = 16
	logW     = 4
	len1     = 2 * pqcore.HashSize
	len2     = 3
	numChain = len1 + len2
)

// address is leaf (4 bytes BE) || chain (2 bytes BE) || step.
type address [7]byte

func newAddress(leaf uint32, chain int) address {
	var a address
	binary.BigEndian.PutUint32(a[0:4], leaf)
	binary.BigEndian.PutUint16(a[4:6], uint16(chain))
	return a
}

func chainSecret(seed []byte, leaf uint32, chain int) []byte {
	a := newAddress(leaf, chain)
	return utils.Shake256WithDomain(DomainChainSecret, pqcore.HashSize, seed, a[:6])
}

// chainHash walks steps hash applications starting at position start.
func chainHash(x []byte, leaf uint32, chain, start, steps int) []byte {
	a := newAddress(leaf, chain)
	out := x
	for i := start; i < start+steps && i < w-1; i++ {
		a[6] = byte(i)
		out = utils.HashWithDomain(DomainChainStep, a[:], out)
	}
	return out
}

// digits splits a digest into len1 base-w digits, high nibble first, and
// appends the checksum digits.
func digits(digest []byte) [numChain]int {
	var d [numChain]int
	checksum := 0
	for i, b := range digest[:len1/2] {
		d[2*i] = int(b >> logW)
		d[2*i+1] = int(b & (w - 1))
	}
	for i := 0; i < len1; i++ {
		checksum += w - 1 - d[i]
	}
	for i := numChain - 1; i >= len1; i-- {
		d[i] = checksum & (w - 1)
		checksum >>= logW
	}
	return d
}

func leafHash(leaf uint32, endpoints [][]byte) []byte {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], leaf)
	parts := make([][]byte, 0, len(endpoints)+1)
	parts = append(parts, idx[:])
	parts = append(parts, endpoints...)
	return utils.HashWithDomain(DomainLeaf, parts...)
}

// leafPublic derives the public value of one leaf from the tree seed.
func leafPublic(seed []byte, leaf uint32) []byte {
	endpoints := make([][]byte, numChain)
	for c := range endpoints {
		sk := chainSecret(seed, leaf, c)
		endpoints[c] = chainHash(sk, leaf, c, 0, w-1)
		utils.Zeroize(sk)
	}
	return leafHash(leaf, endpoints)
}

func wotsSign(seed []byte, leaf uint32, digest []byte) [][]byte {
	d := digits(digest)
	chains := make([][]byte, numChain)
	for c := range chains {
		sk := chainSecret(seed, leaf, c)
		chains[c] = chainHash(sk, leaf, c, 0, d[c])
		if d[c] > 0 {
			utils.Zeroize(sk)
		}
	}
	return chains
}

// wotsLeaf completes every chain of a signature and returns the implied
// leaf value.
func wotsLeaf(leaf uint32, digest []byte, chains [][]byte) []byte {
	d := digits(digest)
	endpoints := make([][]byte, numChain)
	for c := range endpoints {
		endpoints[c] = chainHash(chains[c], leaf, c, d[c], w-1-d[c])
	}
	return leafHash(leaf, endpoints)
}

func messageDigest(root []byte, leaf uint32, message []byte) []byte {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], leaf)
	return utils.HashWithDomain(DomainMessage, root, idx[:], message)
}
