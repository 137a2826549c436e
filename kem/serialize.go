package kem

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	pqcore "github.com/BackendStack21/pqcore-go"
	"github.com/BackendStack21/pqcore-go/codec"
)

// SerializeCiphertext encodes ct as Encode(U, du) || Encode(V, dv).
func SerializeCiphertext(params pqcore.Params, ct *pqcore.Ciphertext) []byte {
	uBytes := codec.EncodeVector(ct.U, params.DU)
	out := make([]byte, 0, params.CiphertextSize())
	out = append(out, uBytes...)
	return append(out, codec.Encode(ct.V, params.DV)...)
}

// ParseCiphertext decodes a serialized ciphertext. It fails with
// codec.ErrLengthMismatch unless len(data) == params.CiphertextSize().
func ParseCiphertext(params pqcore.Params, data []byte) (*pqcore.Ciphertext, error) {
	if len(data) != params.CiphertextSize() {
		return nil, fmt.Errorf("ciphertext: %w: got %d bytes, want %d",
			codec.ErrLengthMismatch, len(data), params.CiphertextSize())
	}
	uLen := params.K * codec.EncodedSize(params.DU)
	u, err := codec.DecodeVector(data[:uLen], params.K, params.DU)
	if err != nil {
		return nil, fmt.Errorf("ciphertext: %w", err)
	}
	v, err := codec.Decode(data[uLen:], params.DV)
	if err != nil {
		return nil, fmt.Errorf("ciphertext: %w", err)
	}
	return &pqcore.Ciphertext{U: u, V: v}, nil
}

// ValidatePublicKey checks the length of pk and that every coefficient of t is
// reduced modulo q.
func ValidatePublicKey(params pqcore.Params, pk []byte) error {
	if len(pk) != params.PublicKeySize() {
		return fmt.Errorf("public key: %w: got %d bytes, want %d",
			codec.ErrLengthMismatch, len(pk), params.PublicKeySize())
	}
	if _, err := codec.DecodeVector(pk[pqcore.SeedSize:], params.K, 12); err != nil {
		return fmt.Errorf("public key: %w", err)
	}
	return nil
}

// SerializeEncryptedMessage encodes em as ciphertext || nonce || sealed box.
func SerializeEncryptedMessage(em *pqcore.EncryptedMessage) []byte {
	out := make([]byte, 0, len(em.Ciphertext)+len(em.Nonce)+len(em.Encrypted))
	out = append(out, em.Ciphertext...)
	out = append(out, em.Nonce...)
	return append(out, em.Encrypted...)
}

// DeserializeEncryptedMessage splits data produced by SerializeEncryptedMessage.
func DeserializeEncryptedMessage(params pqcore.Params, data []byte) (*pqcore.EncryptedMessage, error) {
	ctLen := params.CiphertextSize()
	minLen := ctLen + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(data) < minLen {
		return nil, fmt.Errorf("encrypted message: %w: got %d bytes, want at least %d",
			codec.ErrLengthMismatch, len(data), minLen)
	}
	nonceEnd := ctLen + chacha20poly1305.NonceSizeX
	return &pqcore.EncryptedMessage{
		Ciphertext: append([]byte(nil), data[:ctLen]...),
		Nonce:      append([]byte(nil), data[ctLen:nonceEnd]...),
		Encrypted:  append([]byte(nil), data[nonceEnd:]...),
	}, nil
}
