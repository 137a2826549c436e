// Package codec packs ring elements into bytes and implements lossy
// coefficient compression.
//
// Packing is little-endian at the bit level: coefficient i occupies bits
// [i*b, (i+1)*b) of the output, least significant bit first.
package codec

import (
	"errors"
	"fmt"

	"github.com/BackendStack21/pqcore-go/ring"
)

var (
	// ErrLengthMismatch is returned when encoded data has the wrong size.
	ErrLengthMismatch = errors.New("codec: length mismatch")

	// ErrNonCanonical is returned when a decoded coefficient is not below q.
	ErrNonCanonical = errors.New("codec: coefficient not reduced modulo q")
)

const (
	// MaxEncodeBits is the widest supported packing, enough for any value below q.
	MaxEncodeBits = 12
	// MaxCompressBits is the widest supported compression.
	MaxCompressBits = 11
)

// EncodedSize returns ceil(N*bits/8), the size of one encoded element.
func EncodedSize(bits int) int {
	return (ring.N*bits + 7) / 8
}

func checkBits(bits, max int) {
	if bits < 1 || bits > max {
		panic(fmt.Sprintf("codec: unsupported width %d", bits))
	}
}

// Encode packs the low bits of every coefficient. Coefficients must fit in
// bits; higher bits are discarded.
func Encode(e ring.Element, bits int) []byte {
	out := make([]byte, EncodedSize(bits))
	EncodeTo(out, e, bits)
	return out
}

// EncodeTo packs e into dst, which must be exactly EncodedSize(bits) long.
func EncodeTo(dst []byte, e ring.Element, bits int) {
	checkBits(bits, MaxEncodeBits)
	if len(dst) != EncodedSize(bits) {
		panic("codec: EncodeTo destination has wrong size")
	}
	mask := uint32(1)<<uint(bits) - 1
	var acc uint32
	var accBits uint
	pos := 0
	for _, c := range e {
		acc |= (uint32(c) & mask) << accBits
		accBits += uint(bits)
		for accBits >= 8 {
			dst[pos] = byte(acc)
			pos++
			acc >>= 8
			accBits -= 8
		}
	}
	if pos != len(dst) {
		panic("codec: encoded size mismatch")
	}
}

// Decode is the inverse of Encode. At 12 bits it rejects coefficients >= q
// with ErrNonCanonical.
func Decode(data []byte, bits int) (ring.Element, error) {
	checkBits(bits, MaxEncodeBits)
	var e ring.Element
	if len(data) != EncodedSize(bits) {
		return e, fmt.Errorf("%w: got %d bytes, want %d", ErrLengthMismatch, len(data), EncodedSize(bits))
	}
	mask := uint32(1)<<uint(bits) - 1
	var acc uint32
	var accBits uint
	pos := 0
	var bad uint32
	for i := range e {
		for accBits < uint(bits) {
			acc |= uint32(data[pos]) << accBits
			pos++
			accBits += 8
		}
		c := acc & mask
		acc >>= uint(bits)
		accBits -= uint(bits)
		// bad gets its top bit set once any c >= q
		bad |= uint32(ring.Q-1) - c
		e[i] = uint16(c)
	}
	if bits == MaxEncodeBits && bad>>31 != 0 {
		return ring.Element{}, ErrNonCanonical
	}
	return e, nil
}

// Compress maps every coefficient x to round(x * 2^bits / q) mod 2^bits.
func Compress(e ring.Element, bits int) ring.Element {
	checkBits(bits, MaxCompressBits)
	mask := uint32(1)<<uint(bits) - 1
	var r ring.Element
	for i, x := range e {
		r[i] = uint16(((uint32(x)<<uint(bits) + ring.Q/2) / ring.Q) & mask)
	}
	return r
}

// Decompress maps every coefficient y to round(y * q / 2^bits).
func Decompress(e ring.Element, bits int) ring.Element {
	checkBits(bits, MaxCompressBits)
	var r ring.Element
	for i, y := range e {
		r[i] = uint16((uint32(y)*ring.Q + 1<<uint(bits-1)) >> uint(bits))
	}
	return r
}

// RoundingBound returns the largest distance, modulo q, between x and
// Decompress(Compress(x, bits), bits): round(q / 2^(bits+1)).
func RoundingBound(bits int) int {
	return (ring.Q + 1<<uint(bits)) >> uint(bits+1)
}

// EncodeVector encodes every element of v and concatenates the results.
func EncodeVector(v ring.Vector, bits int) []byte {
	size := EncodedSize(bits)
	out := make([]byte, len(v)*size)
	for i := range v {
		EncodeTo(out[i*size:(i+1)*size], v[i], bits)
	}
	return out
}

// DecodeVector decodes k concatenated elements.
func DecodeVector(data []byte, k, bits int) (ring.Vector, error) {
	size := EncodedSize(bits)
	if len(data) != k*size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrLengthMismatch, len(data), k*size)
	}
	v := ring.NewVector(k)
	for i := range v {
		e, err := Decode(data[i*size:(i+1)*size], bits)
		if err != nil {
			return nil, err
		}
		v[i] = e
	}
	return v, nil
}

// CompressVector compresses every element of v.
func CompressVector(v ring.Vector, bits int) ring.Vector {
	r := ring.NewVector(len(v))
	for i := range v {
		r[i] = Compress(v[i], bits)
	}
	return r
}

// DecompressVector decompresses every element of v.
func DecompressVector(v ring.Vector, bits int) ring.Vector {
	r := ring.NewVector(len(v))
	for i := range v {
		r[i] = Decompress(v[i], bits)
	}
	return r
}
