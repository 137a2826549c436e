package kem

import (
	"bytes"
	"errors"
	"testing"

	"github.com/BackendStack21/pqcore-go/codec"
	"github.com/BackendStack21/pqcore-go/core"
)

func FuzzDecapsulate(f *testing.F) {
	params := core.PQTestParams
	kp, err := GenerateKeyPairFromSeed(params, bytes.Repeat([]byte{1}, 32))
	if err != nil {
		f.Fatal(err)
	}
	res, _ := EncapsulateDeterministic(params, kp.PublicKey, make([]byte, 32))
	f.Add(res.Ciphertext)
	f.Add([]byte{})
	f.Add(make([]byte, params.CiphertextSize()))

	f.Fuzz(func(t *testing.T, ct []byte) {
		ss, err := Decapsulate(params, kp.SecretKey, ct)
		if len(ct) != params.CiphertextSize() {
			if !errors.Is(err, codec.ErrLengthMismatch) {
				t.Fatalf("len %d: got %v", len(ct), err)
			}
			return
		}
		if err != nil || len(ss) != 32 {
			t.Fatalf("well-formed ciphertext rejected: %v", err)
		}
	})
}

func FuzzParsePublicKey(f *testing.F) {
	params := core.PQTestParams
	kp, _ := GenerateKeyPairFromSeed(params, make([]byte, 32))
	f.Add(kp.PublicKey)
	f.Add([]byte{0})
	f.Fuzz(func(t *testing.T, pk []byte) {
		if err := ValidatePublicKey(params, pk); err != nil {
			return
		}
		if _, err := Encapsulate(params, pk); err != nil {
			t.Fatalf("validated key rejected by Encapsulate: %v", err)
		}
	})
}
