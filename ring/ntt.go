package ring

// zetas[k] = 17^brv7(k) mod Q, where 17 is a primitive 256th root of unity.
var zetas = computeZetas()

// nInv is 128^-1 mod Q, undoing the seven butterfly layers of InvNTT.
const nInv = 3303

func computeZetas() [128]uint16 {
	var z [128]uint16
	for k := range z {
		rev := 0
		for b := 0; b < 7; b++ {
			rev |= ((k >> b) & 1) << (6 - b)
		}
		acc := uint32(1)
		for e := 0; e < rev; e++ {
			acc = acc * 17 % Q
		}
		z[k] = uint16(acc)
	}
	return z
}

// NTT returns the evaluation-domain form of a: 128 residues modulo
// X^2 - zeta, in bit-reversed order.
func NTT(a Element) Element {
	var r [N]uint32
	for i := range a {
		r[i] = uint32(a[i])
	}
	k := 1
	for length := 128; length >= 2; length >>= 1 {
		for start := 0; start < N; start += 2 * length {
			zeta := uint32(zetas[k])
			k++
			for j := start; j < start+length; j++ {
				t := zeta * r[j+length] % Q
				r[j+length] = (r[j] + Q - t) % Q
				r[j] = (r[j] + t) % Q
			}
		}
	}
	return narrow(&r)
}

// InvNTT inverts NTT.
func InvNTT(a Element) Element {
	var r [N]uint32
	for i := range a {
		r[i] = uint32(a[i])
	}
	k := 127
	for length := 2; length <= 128; length <<= 1 {
		for start := 0; start < N; start += 2 * length {
			zeta := uint32(zetas[k])
			k--
			for j := start; j < start+length; j++ {
				t := r[j]
				r[j] = (t + r[j+length]) % Q
				r[j+length] = zeta * (r[j+length] + Q - t) % Q
			}
		}
	}
	for i := range r {
		r[i] = r[i] * nInv % Q
	}
	return narrow(&r)
}

// MulNTT multiplies two elements in the evaluation domain.
func MulNTT(a, b Element) Element {
	var r Element
	for i := 0; i < N/4; i++ {
		zeta := uint32(zetas[64+i])
		basemul(r[4*i:4*i+2], a[4*i:4*i+2], b[4*i:4*i+2], zeta)
		basemul(r[4*i+2:4*i+4], a[4*i+2:4*i+4], b[4*i+2:4*i+4], Q-zeta)
	}
	return r
}

// DotProductNTT returns sum_i a[i]*b[i] with both operands and the result in
// the evaluation domain. It panics if the lengths differ.
func DotProductNTT(a, b Vector) Element {
	if len(a) != len(b) {
		panic("ring: DotProductNTT of vectors with different lengths")
	}
	var acc Element
	for i := range a {
		acc = Add(acc, MulNTT(a[i], b[i]))
	}
	return acc
}

// basemul computes (a0 + a1 X)(b0 + b1 X) mod (X^2 - zeta).
func basemul(r, a, b []uint16, zeta uint32) {
	a0, a1 := uint32(a[0]), uint32(a[1])
	b0, b1 := uint32(b[0]), uint32(b[1])
	r[0] = uint16((a1*b1%Q*zeta + a0*b0) % Q)
	r[1] = uint16((a0*b1 + a1*b0) % Q)
}

func narrow(r *[N]uint32) Element {
	var e Element
	for i, x := range r {
		e[i] = uint16(x)
	}
	return e
}
