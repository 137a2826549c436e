// Package sampler derives ring elements from seeds: uniform public matrices
// by rejection sampling over SHAKE128, and small secret noise from a centered
// binomial distribution over SHAKE256.
package sampler

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/BackendStack21/pqcore-go/ring"
	"github.com/BackendStack21/pqcore-go/utils"
)

// ErrSamplingExhausted is returned when the XOF budget runs out before an
// element is complete.
var ErrSamplingExhausted = errors.New("sampler: sampling exhausted")

const (
	// shake128Rate is the SHAKE128 block size in bytes.
	shake128Rate = 168

	// MaxUniformBlocks bounds the SHAKE128 output read per uniform element.
	// Three blocks suffice on average; sixteen fail with probability far
	// below 2^-128.
	MaxUniformBlocks = 16
)

// UniformNTT samples an element uniformly from seed and the position bytes
// (x, y). The result is in the evaluation domain.
func UniformNTT(seed []byte, x, y byte) (ring.Element, error) {
	return uniform(seed, x, y, MaxUniformBlocks)
}

// ExpandUniform returns the coefficient form of UniformNTT(seed, x, y).
// It is uniform over [0, q)^N.
func ExpandUniform(seed []byte, x, y byte) (ring.Element, error) {
	e, err := UniformNTT(seed, x, y)
	if err != nil {
		return ring.Element{}, err
	}
	return ring.InvNTT(e), nil
}

func uniform(seed []byte, x, y byte, maxBlocks int) (ring.Element, error) {
	var e ring.Element
	err := utils.Shake128Stream(func(xof sha3.ShakeHash) error {
		var buf [shake128Rate]byte
		n := 0
		for block := 0; block < maxBlocks; block++ {
			if _, err := xof.Read(buf[:]); err != nil {
				return err
			}
			for i := 0; i+3 <= len(buf) && n < ring.N; i += 3 {
				t1 := (uint16(buf[i]) | uint16(buf[i+1])<<8) & 0xfff
				t2 := (uint16(buf[i+1])>>4 | uint16(buf[i+2])<<4) & 0xfff
				if t1 < ring.Q {
					e[n] = t1
					n++
				}
				if t2 < ring.Q && n < ring.N {
					e[n] = t2
					n++
				}
			}
			if n == ring.N {
				return nil
			}
		}
		utils.Debugf("sampler", "uniform (%d,%d): %d of %d coefficients after %d blocks", x, y, n, ring.N, maxBlocks)
		return ErrSamplingExhausted
	}, seed, []byte{x, y})
	return e, err
}

// ExpandMatrixNTT returns the k x k public matrix in the evaluation domain.
// Entry (i, j) is UniformNTT(seed, j, i), or UniformNTT(seed, i, j) when
// transposed.
func ExpandMatrixNTT(seed []byte, k int, transposed bool) ([]ring.Vector, error) {
	m := make([]ring.Vector, k)
	for i := range m {
		m[i] = ring.NewVector(k)
		for j := range m[i] {
			x, y := byte(j), byte(i)
			if transposed {
				x, y = y, x
			}
			e, err := UniformNTT(seed, x, y)
			if err != nil {
				return nil, fmt.Errorf("matrix entry (%d,%d): %w", i, j, err)
			}
			m[i][j] = e
		}
	}
	return m, nil
}

// ExpandMatrix returns the k x k public matrix in coefficient form.
func ExpandMatrix(seed []byte, k int, transposed bool) ([]ring.Vector, error) {
	m, err := ExpandMatrixNTT(seed, k, transposed)
	if err != nil {
		return nil, err
	}
	for i := range m {
		m[i] = m[i].InvNTT()
	}
	return m, nil
}

// NoiseBytes returns the XOF output consumed by one noise element.
func NoiseBytes(eta int) int {
	return ring.N * 2 * eta / 8
}

// SampleNoise draws an element from the centered binomial distribution
// CBD_eta using SHAKE256(seed || nonce). Coefficient i is the sum of bits
// [2*i*eta, 2*i*eta+eta) minus the sum of the next eta bits.
// The extraction does not branch on the XOF output.
func SampleNoise(eta int, seed []byte, nonce byte) (ring.Element, error) {
	if eta != 2 && eta != 3 {
		return ring.Element{}, fmt.Errorf("sampler: unsupported eta %d", eta)
	}
	buf := make([]byte, NoiseBytes(eta))
	defer utils.Zeroize(buf)
	if n := utils.Shake256Into(buf, seed, []byte{nonce}); n != len(buf) {
		return ring.Element{}, ErrSamplingExhausted
	}

	var e ring.Element
	if eta == 2 {
		cbd2(&e, buf)
	} else {
		cbd3(&e, buf)
	}
	return e, nil
}

// SampleNoiseVector draws k noise elements with nonces firstNonce, firstNonce+1, ...
func SampleNoiseVector(eta int, seed []byte, firstNonce byte, k int) (ring.Vector, error) {
	v := ring.NewVector(k)
	for i := range v {
		e, err := SampleNoise(eta, seed, firstNonce+byte(i))
		if err != nil {
			return nil, err
		}
		v[i] = e
	}
	return v, nil
}

func toModQ(a, b uint32) uint16 {
	v := int32(a) - int32(b)
	v += (v >> 31) & ring.Q
	return uint16(v)
}

func cbd2(e *ring.Element, buf []byte) {
	for i := 0; i < ring.N/8; i++ {
		t := binary.LittleEndian.Uint32(buf[4*i:])
		d := t&0x55555555 + (t>>1)&0x55555555
		for j := 0; j < 8; j++ {
			a := (d >> (4 * j)) & 3
			b := (d >> (4*j + 2)) & 3
			e[8*i+j] = toModQ(a, b)
		}
	}
}

func cbd3(e *ring.Element, buf []byte) {
	for i := 0; i < ring.N/4; i++ {
		t := uint32(buf[3*i]) | uint32(buf[3*i+1])<<8 | uint32(buf[3*i+2])<<16
		d := t&0x00249249 + (t>>1)&0x00249249 + (t>>2)&0x00249249
		for j := 0; j < 4; j++ {
			a := (d >> (6 * j)) & 7
			b := (d >> (6*j + 3)) & 7
			e[4*i+j] = toModQ(a, b)
		}
	}
}
