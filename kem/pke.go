package kem

import (
	"fmt"

	pqcore "github.com/BackendStack21/pqcore-go"
	"github.com/BackendStack21/pqcore-go/codec"
	"github.com/BackendStack21/pqcore-go/ring"
	"github.com/BackendStack21/pqcore-go/sampler"
	"github.com/BackendStack21/pqcore-go/utils"
)

// publicKey is a parsed public key with the values encryption needs.
type publicKey struct {
	rho  []byte
	tHat ring.Vector   // NTT(t)
	aT   []ring.Vector // transposed matrix, evaluation domain
}

// keyGen derives (rho, t, s) from a 32-byte seed. t and s are in
// coefficient form.
func keyGen(params pqcore.Params, seed []byte) (rho []byte, t, s ring.Vector, err error) {
	expanded := utils.SHA3512(seed)
	defer utils.Zeroize(expanded)
	rho = append([]byte(nil), expanded[:32]...)
	sigma := expanded[32:]

	aHat, err := sampler.ExpandMatrixNTT(rho, params.K, false)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err = sampler.SampleNoiseVector(params.Eta, sigma, 0, params.K)
	if err != nil {
		return nil, nil, nil, err
	}
	e, err := sampler.SampleNoiseVector(params.Eta, sigma, byte(params.K), params.K)
	if err != nil {
		return nil, nil, nil, err
	}
	defer e.Zeroize()

	sHat := s.NTT()
	defer sHat.Zeroize()
	t = ring.NewVector(params.K)
	for i := range t {
		t[i] = ring.Add(ring.InvNTT(ring.DotProductNTT(aHat[i], sHat)), e[i])
	}
	return rho, t, s, nil
}

// parsePublicKey splits rho || Encode(t, 12) and expands the matrix.
func parsePublicKey(params pqcore.Params, pk []byte) (*publicKey, error) {
	if len(pk) != params.PublicKeySize() {
		return nil, fmt.Errorf("public key: %w: got %d bytes, want %d",
			codec.ErrLengthMismatch, len(pk), params.PublicKeySize())
	}
	t, err := codec.DecodeVector(pk[pqcore.SeedSize:], params.K, 12)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	rho := pk[:pqcore.SeedSize]
	aT, err := sampler.ExpandMatrixNTT(rho, params.K, true)
	if err != nil {
		return nil, err
	}
	return &publicKey{rho: rho, tHat: t.NTT(), aT: aT}, nil
}

// parseSecretKey decodes Encode(s, 12).
func parseSecretKey(params pqcore.Params, sk []byte) (ring.Vector, error) {
	if len(sk) != params.SecretKeySize() {
		return nil, fmt.Errorf("secret key: %w: got %d bytes, want %d",
			codec.ErrLengthMismatch, len(sk), params.SecretKeySize())
	}
	s, err := codec.DecodeVector(sk, params.K, 12)
	if err != nil {
		return nil, fmt.Errorf("secret key: %w", err)
	}
	return s, nil
}

// encrypt is the CPA encryption of the 32-byte message m under pk with
// encryption randomness coins.
func encrypt(params pqcore.Params, pk *publicKey, m, coins []byte) ([]byte, error) {
	k := params.K
	r, err := sampler.SampleNoiseVector(params.Eta, coins, 0, k)
	if err != nil {
		return nil, err
	}
	defer r.Zeroize()
	e1, err := sampler.SampleNoiseVector(params.Eta, coins, byte(k), k)
	if err != nil {
		return nil, err
	}
	defer e1.Zeroize()
	e2, err := sampler.SampleNoise(params.Eta, coins, byte(2*k))
	if err != nil {
		return nil, err
	}

	rHat := r.NTT()
	defer rHat.Zeroize()

	u := ring.NewVector(k)
	for i := range u {
		u[i] = ring.Add(ring.InvNTT(ring.DotProductNTT(pk.aT[i], rHat)), e1[i])
	}

	msg, err := codec.Decode(m, 1)
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	v := ring.InvNTT(ring.DotProductNTT(pk.tHat, rHat))
	v = ring.Add(ring.Add(v, e2), codec.Decompress(msg, 1))

	ct := &pqcore.Ciphertext{
		U: codec.CompressVector(u, params.DU),
		V: codec.Compress(v, params.DV),
	}
	return SerializeCiphertext(params, ct), nil
}

// decrypt recovers the 32-byte message from ct with the secret vector s.
func decrypt(params pqcore.Params, s ring.Vector, ct *pqcore.Ciphertext) []byte {
	w := noisyMessage(s, ct, params)
	return codec.Encode(codec.Compress(w, 1), 1)
}

// noisyMessage returns v - s.u, which equals Decompress(m, 1) plus noise.
func noisyMessage(s ring.Vector, ct *pqcore.Ciphertext, params pqcore.Params) ring.Element {
	u := codec.DecompressVector(ct.U, params.DU)
	v := codec.Decompress(ct.V, params.DV)
	sHat := s.NTT()
	defer sHat.Zeroize()
	return ring.Sub(v, ring.InvNTT(ring.DotProductNTT(sHat, u.NTT())))
}
