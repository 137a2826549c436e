package kem

import (
	"bytes"
	"errors"
	"testing"

	circlkem "github.com/cloudflare/circl/kem"

	"github.com/BackendStack21/pqcore-go/core"
)

func newTestScheme(t *testing.T) *Scheme {
	t.Helper()
	s, err := NewScheme(core.PQ768Params)
	if err != nil {
		t.Fatalf("NewScheme failed: %v", err)
	}
	return s
}

func TestScheme_RoundTrip(t *testing.T) {
	var scheme circlkem.Scheme = newTestScheme(t)
	pk, sk, err := scheme.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	ct, ss, err := scheme.Encapsulate(pk)
	if err != nil {
		t.Fatalf("Encapsulate failed: %v", err)
	}
	if len(ct) != scheme.CiphertextSize() || len(ss) != scheme.SharedKeySize() {
		t.Fatalf("sizes ct=%d ss=%d", len(ct), len(ss))
	}
	ss2, err := scheme.Decapsulate(sk, ct)
	if err != nil {
		t.Fatalf("Decapsulate failed: %v", err)
	}
	if !bytes.Equal(ss, ss2) {
		t.Fatal("shared secrets differ")
	}
	if scheme.Name() != "pqcore-PQ-768" {
		t.Errorf("Name() = %s", scheme.Name())
	}
}

func TestScheme_MarshalRoundTrip(t *testing.T) {
	scheme := newTestScheme(t)
	seed := bytes.Repeat([]byte{3}, scheme.SeedSize())
	pk, sk := scheme.DeriveKeyPair(seed)

	pkBytes, _ := pk.MarshalBinary()
	skBytes, _ := sk.MarshalBinary()
	if len(pkBytes) != scheme.PublicKeySize() || len(skBytes) != scheme.PrivateKeySize() {
		t.Fatalf("marshalled sizes %d/%d", len(pkBytes), len(skBytes))
	}

	pk2, err := scheme.UnmarshalBinaryPublicKey(pkBytes)
	if err != nil {
		t.Fatalf("UnmarshalBinaryPublicKey failed: %v", err)
	}
	sk2, err := scheme.UnmarshalBinaryPrivateKey(skBytes)
	if err != nil {
		t.Fatalf("UnmarshalBinaryPrivateKey failed: %v", err)
	}
	if !pk.Equal(pk2) || !sk.Equal(sk2) || !sk2.Public().Equal(pk) {
		t.Fatal("unmarshalled keys differ")
	}
	if pk.Scheme() != circlkem.Scheme(scheme) || sk.Scheme() != circlkem.Scheme(scheme) {
		t.Fatal("keys report a different scheme")
	}

	encSeed := bytes.Repeat([]byte{9}, scheme.EncapsulationSeedSize())
	ct1, ss1, err := scheme.EncapsulateDeterministically(pk, encSeed)
	if err != nil {
		t.Fatalf("EncapsulateDeterministically failed: %v", err)
	}
	ct2, ss2, _ := scheme.EncapsulateDeterministically(pk2, encSeed)
	if !bytes.Equal(ct1, ct2) || !bytes.Equal(ss1, ss2) {
		t.Fatal("EncapsulateDeterministically not deterministic")
	}
	got, err := scheme.Decapsulate(sk2, ct1)
	if err != nil || !bytes.Equal(got, ss1) {
		t.Fatalf("Decapsulate with unmarshalled key: %v", err)
	}
}

func TestScheme_Errors(t *testing.T) {
	scheme := newTestScheme(t)
	other, _ := NewScheme(core.PQ512Params)
	pk, sk := scheme.DeriveKeyPair(make([]byte, 32))
	otherPK, otherSK := other.DeriveKeyPair(make([]byte, 32))

	if _, _, err := scheme.Encapsulate(otherPK); !errors.Is(err, circlkem.ErrTypeMismatch) {
		t.Errorf("foreign public key: %v", err)
	}
	if _, err := scheme.Decapsulate(otherSK, make([]byte, scheme.CiphertextSize())); !errors.Is(err, circlkem.ErrTypeMismatch) {
		t.Errorf("foreign private key: %v", err)
	}
	if _, err := scheme.Decapsulate(sk, make([]byte, 10)); !errors.Is(err, circlkem.ErrCiphertextSize) {
		t.Errorf("short ciphertext: %v", err)
	}
	if _, _, err := scheme.EncapsulateDeterministically(pk, make([]byte, 5)); !errors.Is(err, circlkem.ErrSeedSize) {
		t.Errorf("short seed: %v", err)
	}
	if _, err := scheme.UnmarshalBinaryPublicKey(make([]byte, 5)); !errors.Is(err, circlkem.ErrPubKeySize) {
		t.Errorf("short public key: %v", err)
	}
	if _, err := scheme.UnmarshalBinaryPrivateKey(make([]byte, 5)); !errors.Is(err, circlkem.ErrPrivKeySize) {
		t.Errorf("short private key: %v", err)
	}

	bad, _ := pk.MarshalBinary()
	bad[32], bad[33] = 0xff, 0xff
	if _, err := scheme.UnmarshalBinaryPublicKey(bad); !errors.Is(err, circlkem.ErrPubKey) {
		t.Errorf("non-canonical public key: %v", err)
	}
	badSK, _ := sk.MarshalBinary()
	badSK[0], badSK[1] = 0xff, 0xff
	if _, err := scheme.UnmarshalBinaryPrivateKey(badSK); !errors.Is(err, circlkem.ErrPrivKey) {
		t.Errorf("non-canonical private key: %v", err)
	}

	if pk.Equal(otherPK) || sk.Equal(otherSK) {
		t.Error("keys of different schemes compare equal")
	}

	defer func() {
		if recover() == nil {
			t.Error("DeriveKeyPair should panic on a short seed")
		}
	}()
	scheme.DeriveKeyPair(make([]byte, 16))
}

func TestNewSchemeRejectsInvalidParams(t *testing.T) {
	p := core.PQ768Params
	p.K = 7
	if _, err := NewScheme(p); err == nil {
		t.Fatal("NewScheme accepted invalid params")
	}
	s := newTestScheme(t)
	if s.Params().Level != p.Level {
		t.Fatal("Params() returned the wrong set")
	}
}
