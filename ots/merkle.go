package ots

import (
	"encoding/binary"

	"github.com/BackendStack21/pqcore-go/utils"
)

// merkleTree is a full binary tree over 2^height leaf values.
// layers[0] holds the leaves; the last layer holds the root.
type merkleTree struct {
	layers [][][]byte
}

func nodeHash(level int, index uint32, left, right []byte) []byte {
	var addr [5]byte
	addr[0] = byte(level)
	binary.BigEndian.PutUint32(addr[1:], index)
	return utils.HashWithDomain(DomainNode, addr[:], left, right)
}

func buildMerkleTree(leaves [][]byte) *merkleTree {
	layers := [][][]byte{leaves}
	for lvl := 0; len(layers[lvl]) > 1; lvl++ {
		prev := layers[lvl]
		next := make([][]byte, len(prev)/2)
		for i := range next {
			next[i] = nodeHash(lvl+1, uint32(i), prev[2*i], prev[2*i+1])
		}
		layers = append(layers, next)
	}
	return &merkleTree{layers: layers}
}

func (mt *merkleTree) root() []byte {
	return mt.layers[len(mt.layers)-1][0]
}

// path returns the sibling hashes for leaf idx, leaf level first.
func (mt *merkleTree) path(idx uint32) [][]byte {
	path := make([][]byte, len(mt.layers)-1)
	for lvl := range path {
		path[lvl] = append([]byte(nil), mt.layers[lvl][idx^1]...)
		idx >>= 1
	}
	return path
}

// rootFromPath recomputes the root implied by a leaf value and its path.
func rootFromPath(leaf []byte, idx uint32, path [][]byte) []byte {
	h := leaf
	for lvl, sib := range path {
		parent := idx >> 1
		if idx&1 == 0 {
			h = nodeHash(lvl+1, parent, h, sib)
		} else {
			h = nodeHash(lvl+1, parent, sib, h)
		}
		idx = parent
	}
	return h
}
