package utils

import (
	"io"
	"sync"

	"golang.org/x/crypto/sha3"
)

var shake256Pool = sync.Pool{
	New: func() interface{} {
		return sha3.NewShake256()
	},
}

var shake128Pool = sync.Pool{
	New: func() interface{} {
		return sha3.NewShake128()
	},
}

// Shake256 computes the SHAKE256 extendable output function (XOF) over the
// concatenation of the inputs and returns outputLen bytes.
func Shake256(outputLen int, inputs ...[]byte) []byte {
	output := make([]byte, outputLen)
	Shake256Into(output, inputs...)
	return output
}

// Shake256Into computes SHAKE256 over the concatenated inputs and fills output.
// It returns the number of bytes read from the XOF.
func Shake256Into(output []byte, inputs ...[]byte) int {
	h := shake256Pool.Get().(sha3.ShakeHash)
	defer func() {
		h.Reset()
		shake256Pool.Put(h)
	}()

	for _, in := range inputs {
		h.Write(in)
	}
	n, _ := h.Read(output)
	return n
}

// Shake128Stream absorbs the inputs into a pooled SHAKE128 instance and hands
// the squeezing side to fn. The instance must not be retained after fn returns.
func Shake128Stream(fn func(xof sha3.ShakeHash) error, inputs ...[]byte) error {
	h := shake128Pool.Get().(sha3.ShakeHash)
	defer func() {
		h.Reset()
		shake128Pool.Put(h)
	}()

	for _, in := range inputs {
		h.Write(in)
	}
	return fn(h)
}

// SHA3256 computes the SHA3-256 hash of the input.
func SHA3256(input []byte) []byte {
	sum := sha3.Sum256(input)
	return sum[:]
}

// SHA3512 computes the SHA3-512 hash of the input.
func SHA3512(input []byte) []byte {
	sum := sha3.Sum512(input)
	return sum[:]
}

// HashWithDomain computes a domain-separated SHA3-256 hash over the
// concatenated parts. The domain is length-prefixed.
// Panics if domain is longer than 255 bytes.
func HashWithDomain(domain string, parts ...[]byte) []byte {
	h := sha3.New256()
	writeDomain(h, domain)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// Shake256WithDomain computes SHAKE256 with domain separation.
// It works like HashWithDomain but produces an output of arbitrary length.
// Panics if domain is longer than 255 bytes.
func Shake256WithDomain(domain string, outputLen int, parts ...[]byte) []byte {
	h := shake256Pool.Get().(sha3.ShakeHash)
	defer func() {
		h.Reset()
		shake256Pool.Put(h)
	}()

	writeDomain(h, domain)
	for _, p := range parts {
		h.Write(p)
	}
	output := make([]byte, outputLen)
	_, _ = h.Read(output)
	return output
}

func writeDomain(h io.Writer, domain string) {
	if len(domain) > 255 {
		panic("domain string must be at most 255 bytes")
	}
	h.Write([]byte{byte(len(domain))})
	h.Write([]byte(domain))
}
