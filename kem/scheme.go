package kem

import (
	"bytes"
	"fmt"

	circlkem "github.com/cloudflare/circl/kem"

	pqcore "github.com/BackendStack21/pqcore-go"
	"github.com/BackendStack21/pqcore-go/core"
	"github.com/BackendStack21/pqcore-go/utils"
)

// Scheme adapts one parameter set to circl's kem.Scheme interface.
//
// Private keys marshal as SecretKey || PublicKey, since circl requires a
// private key to know its public key.
type Scheme struct {
	params pqcore.Params
}

var _ circlkem.Scheme = (*Scheme)(nil)

// NewScheme validates params and returns a circl-compatible scheme.
func NewScheme(params pqcore.Params) (*Scheme, error) {
	if err := core.ValidateParams(params); err != nil {
		return nil, err
	}
	return &Scheme{params: params}, nil
}

// PublicKey is a circl kem.PublicKey.
type PublicKey struct {
	scheme *Scheme
	raw    []byte
}

// PrivateKey is a circl kem.PrivateKey.
type PrivateKey struct {
	scheme *Scheme
	raw    []byte
	pk     *PublicKey
}

func (pk *PublicKey) Scheme() circlkem.Scheme { return pk.scheme }

func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), pk.raw...), nil
}

func (pk *PublicKey) Equal(other circlkem.PublicKey) bool {
	o, ok := other.(*PublicKey)
	return ok && o.scheme.params.Level == pk.scheme.params.Level && bytes.Equal(o.raw, pk.raw)
}

func (sk *PrivateKey) Scheme() circlkem.Scheme { return sk.scheme }

func (sk *PrivateKey) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, sk.scheme.PrivateKeySize())
	out = append(out, sk.raw...)
	return append(out, sk.pk.raw...), nil
}

func (sk *PrivateKey) Equal(other circlkem.PrivateKey) bool {
	o, ok := other.(*PrivateKey)
	return ok && o.scheme.params.Level == sk.scheme.params.Level && utils.ConstantTimeEqual(o.raw, sk.raw)
}

func (sk *PrivateKey) Public() circlkem.PublicKey { return sk.pk }

func (s *Scheme) Name() string { return "pqcore-" + string(s.params.Level) }

// Params returns the parameter set of s.
func (s *Scheme) Params() pqcore.Params { return s.params }

func (s *Scheme) GenerateKeyPair() (circlkem.PublicKey, circlkem.PrivateKey, error) {
	seed, err := utils.SecureRandomBytes(pqcore.SeedSize)
	if err != nil {
		return nil, nil, err
	}
	defer utils.Zeroize(seed)
	pk, sk := s.DeriveKeyPair(seed)
	return pk, sk, nil
}

func (s *Scheme) DeriveKeyPair(seed []byte) (circlkem.PublicKey, circlkem.PrivateKey) {
	if len(seed) != s.SeedSize() {
		panic(circlkem.ErrSeedSize)
	}
	kp, err := GenerateKeyPairFromSeed(s.params, seed)
	if err != nil {
		// Only reachable through XOF exhaustion, which is negligible.
		panic(err)
	}
	pk := &PublicKey{scheme: s, raw: kp.PublicKey}
	return pk, &PrivateKey{scheme: s, raw: kp.SecretKey, pk: pk}
}

func (s *Scheme) Encapsulate(pk circlkem.PublicKey) (ct, ss []byte, err error) {
	seed, err := utils.SecureRandomBytes(pqcore.SeedSize)
	if err != nil {
		return nil, nil, err
	}
	defer utils.Zeroize(seed)
	return s.EncapsulateDeterministically(pk, seed)
}

func (s *Scheme) EncapsulateDeterministically(pk circlkem.PublicKey, seed []byte) (ct, ss []byte, err error) {
	if len(seed) != s.EncapsulationSeedSize() {
		return nil, nil, circlkem.ErrSeedSize
	}
	p, ok := pk.(*PublicKey)
	if !ok || p.scheme.params.Level != s.params.Level {
		return nil, nil, circlkem.ErrTypeMismatch
	}
	res, err := EncapsulateDeterministic(s.params, p.raw, seed)
	if err != nil {
		return nil, nil, err
	}
	return res.Ciphertext, res.SharedSecret, nil
}

func (s *Scheme) Decapsulate(sk circlkem.PrivateKey, ct []byte) ([]byte, error) {
	p, ok := sk.(*PrivateKey)
	if !ok || p.scheme.params.Level != s.params.Level {
		return nil, circlkem.ErrTypeMismatch
	}
	if len(ct) != s.CiphertextSize() {
		return nil, circlkem.ErrCiphertextSize
	}
	return Decapsulate(s.params, p.raw, ct)
}

func (s *Scheme) UnmarshalBinaryPublicKey(buf []byte) (circlkem.PublicKey, error) {
	if len(buf) != s.PublicKeySize() {
		return nil, circlkem.ErrPubKeySize
	}
	if err := ValidatePublicKey(s.params, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", circlkem.ErrPubKey, err)
	}
	return &PublicKey{scheme: s, raw: append([]byte(nil), buf...)}, nil
}

func (s *Scheme) UnmarshalBinaryPrivateKey(buf []byte) (circlkem.PrivateKey, error) {
	if len(buf) != s.PrivateKeySize() {
		return nil, circlkem.ErrPrivKeySize
	}
	skLen := s.params.SecretKeySize()
	if _, err := parseSecretKey(s.params, buf[:skLen]); err != nil {
		return nil, fmt.Errorf("%w: %v", circlkem.ErrPrivKey, err)
	}
	pk, err := s.UnmarshalBinaryPublicKey(buf[skLen:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", circlkem.ErrPrivKey, err)
	}
	return &PrivateKey{scheme: s, raw: append([]byte(nil), buf[:skLen]...), pk: pk.(*PublicKey)}, nil
}

func (s *Scheme) CiphertextSize() int        { return s.params.CiphertextSize() }
func (s *Scheme) SharedKeySize() int         { return pqcore.SharedSecretSize }
func (s *Scheme) PrivateKeySize() int        { return s.params.SecretKeySize() + s.params.PublicKeySize() }
func (s *Scheme) PublicKeySize() int         { return s.params.PublicKeySize() }
func (s *Scheme) SeedSize() int              { return pqcore.SeedSize }
func (s *Scheme) EncapsulationSeedSize() int { return pqcore.SeedSize }
