// Package ring implements arithmetic in R_q = Z_q[X]/(X^N + 1) with N = 256
// and q = 3329, the polynomial ring underlying the lattice KEM.
//
// Both N and Q are compile-time constants, so every "% Q" below lowers to a
// multiply-and-shift sequence with no data-dependent timing.
package ring

import "github.com/BackendStack21/pqcore-go/utils"

const (
	// N is the ring degree.
	N = 256
	// Q is the coefficient modulus.
	Q = 3329
)

// Element is a ring element: exactly N coefficients, each in [0, Q).
type Element [N]uint16

// Vector is a module element: a fixed-length sequence of ring elements.
type Vector []Element

// NewVector returns a zero vector of k elements.
func NewVector(k int) Vector {
	return make(Vector, k)
}

// FromCentered reduces signed coefficients into [0, Q).
func FromCentered(c [N]int16) Element {
	var r Element
	for i, x := range c {
		v := int32(x) % Q
		v += (v >> 31) & Q
		r[i] = uint16(v)
	}
	return r
}

// Centered returns the representative of x in (-Q/2, Q/2].
func Centered(x uint16) int16 {
	v := int16(x)
	// v > Q/2 ? v - Q : v
	v -= int16(uint16((Q/2-int32(v))>>31) & Q)
	return v
}

// csubq maps x in [0, 2Q) to [0, Q) without branching.
func csubq(x uint16) uint16 {
	x -= Q
	x += uint16(int16(x)>>15) & Q
	return x
}

// Add returns a + b coefficient-wise mod Q.
func Add(a, b Element) Element {
	var r Element
	for i := range r {
		r[i] = csubq(a[i] + b[i])
	}
	return r
}

// Sub returns a - b coefficient-wise mod Q.
func Sub(a, b Element) Element {
	var r Element
	for i := range r {
		r[i] = csubq(a[i] + Q - b[i])
	}
	return r
}

// Multiply returns a * b in R_q using the number-theoretic transform.
func Multiply(a, b Element) Element {
	return InvNTT(MulNTT(NTT(a), NTT(b)))
}

// MultiplySchoolbook returns a * b in R_q by direct negacyclic convolution.
// It is quadratic and exists as a reference for Multiply.
func MultiplySchoolbook(a, b Element) Element {
	var acc [N]uint64
	for i := 0; i < N; i++ {
		for j := 0; j < N; j++ {
			p := uint64(a[i]) * uint64(b[j])
			k := i + j
			if k < N {
				acc[k] += p
			} else {
				// X^N = -1
				acc[k-N] += uint64(Q)*Q - p
			}
		}
	}
	var r Element
	for i := range r {
		r[i] = uint16(acc[i] % Q)
	}
	return r
}

// DotProduct returns sum_i a[i]*b[i]. It panics if the lengths differ.
func DotProduct(a, b Vector) Element {
	if len(a) != len(b) {
		panic("ring: DotProduct of vectors with different lengths")
	}
	return InvNTT(DotProductNTT(a.NTT(), b.NTT()))
}

// Add returns v + w. It panics if the lengths differ.
func (v Vector) Add(w Vector) Vector {
	if len(v) != len(w) {
		panic("ring: Add of vectors with different lengths")
	}
	r := make(Vector, len(v))
	for i := range v {
		r[i] = Add(v[i], w[i])
	}
	return r
}

// NTT transforms every element of v.
func (v Vector) NTT() Vector {
	r := make(Vector, len(v))
	for i := range v {
		r[i] = NTT(v[i])
	}
	return r
}

// InvNTT inverts NTT on every element of v.
func (v Vector) InvNTT() Vector {
	r := make(Vector, len(v))
	for i := range v {
		r[i] = InvNTT(v[i])
	}
	return r
}

// MatrixVectorProduct returns A*v for a k x k matrix in coefficient form.
func MatrixVectorProduct(a []Vector, v Vector) Vector {
	vHat := v.NTT()
	r := make(Vector, len(a))
	for i, row := range a {
		r[i] = InvNTT(DotProductNTT(row.NTT(), vHat))
	}
	return r
}

// Zeroize clears every coefficient of v.
func (v Vector) Zeroize() {
	for i := range v {
		utils.ZeroizeUint16(v[i][:])
	}
}
