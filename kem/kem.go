// Package kem implements the module-lattice Key Encapsulation Mechanism.
//
// Key generation, encapsulation and decapsulation follow the Kyber CPA
// construction over R_q. The shared secret binds the encapsulated message to
// a digest of the exact ciphertext bytes, so a tampered ciphertext yields an
// unrelated secret instead of an error (implicit rejection).
package kem

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	pqcore "github.com/BackendStack21/pqcore-go"
	"github.com/BackendStack21/pqcore-go/codec"
	"github.com/BackendStack21/pqcore-go/core"
	"github.com/BackendStack21/pqcore-go/utils"
)

const (
	DomainCoins        = "pqcore-kem-coins-v1"
	DomainSharedSecret = "pqcore-kem-ss-v1"
	DomainEncKey       = "pqcore-dem-key-v1"
)

// ErrAuthentication is returned by Decrypt when the payload fails to open.
var ErrAuthentication = errors.New("kem: authentication failed")

// GenerateKeyPair generates a key pair for the given security level.
func GenerateKeyPair(level pqcore.SecurityLevel) (*pqcore.KeyPair, error) {
	params, err := core.GetParams(level)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateParams(params); err != nil {
		return nil, err
	}

	seed, err := utils.SecureRandomBytes(pqcore.SeedSize)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(seed)
	if err := utils.ValidateSeedEntropy(seed); err != nil {
		return nil, fmt.Errorf("entropy source: %w", err)
	}

	return GenerateKeyPairFromSeed(params, seed)
}

// GenerateKeyPairFromSeed deterministically derives a key pair from a 32-byte
// seed. Equal seeds give byte-identical key pairs.
func GenerateKeyPairFromSeed(params pqcore.Params, seed []byte) (*pqcore.KeyPair, error) {
	if len(seed) != pqcore.SeedSize {
		return nil, fmt.Errorf("seed: %w: got %d bytes, want %d", codec.ErrLengthMismatch, len(seed), pqcore.SeedSize)
	}

	rho, t, s, err := keyGen(params, seed)
	if err != nil {
		return nil, err
	}
	defer s.Zeroize()

	pk := make([]byte, 0, params.PublicKeySize())
	pk = append(pk, rho...)
	pk = append(pk, codec.EncodeVector(t, 12)...)

	return &pqcore.KeyPair{
		Params:    params,
		PublicKey: pk,
		SecretKey: codec.EncodeVector(s, 12),
	}, nil
}

// Destroy zeroizes the secret key of kp.
func Destroy(kp *pqcore.KeyPair) {
	if kp != nil {
		utils.Zeroize(kp.SecretKey)
	}
}

// Encapsulate generates a fresh shared secret and its ciphertext for pk.
func Encapsulate(params pqcore.Params, pk []byte) (*pqcore.EncapsulationResult, error) {
	m, err := utils.SecureRandomBytes(pqcore.SeedSize)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(m)
	return EncapsulateDeterministic(params, pk, m)
}

// EncapsulateDeterministic encapsulates the 32-byte message m.
// Equal inputs give identical outputs.
func EncapsulateDeterministic(params pqcore.Params, pk []byte, m []byte) (*pqcore.EncapsulationResult, error) {
	if len(m) != pqcore.SeedSize {
		return nil, fmt.Errorf("message: %w: got %d bytes, want %d", codec.ErrLengthMismatch, len(m), pqcore.SeedSize)
	}
	parsed, err := parsePublicKey(params, pk)
	if err != nil {
		return nil, err
	}

	coins := utils.Shake256WithDomain(DomainCoins, 32, m, utils.SHA3256(pk))
	defer utils.Zeroize(coins)

	ct, err := encrypt(params, parsed, m, coins)
	if err != nil {
		return nil, err
	}

	return &pqcore.EncapsulationResult{
		SharedSecret: deriveSharedSecret(m, ct),
		Ciphertext:   ct,
	}, nil
}

// Decapsulate recovers the shared secret from a ciphertext. Only malformed
// lengths are reported as errors; any well-formed ciphertext yields a secret.
func Decapsulate(params pqcore.Params, sk []byte, ct []byte) ([]byte, error) {
	s, err := parseSecretKey(params, sk)
	if err != nil {
		return nil, err
	}
	defer s.Zeroize()

	parsed, err := ParseCiphertext(params, ct)
	if err != nil {
		return nil, err
	}

	m := decrypt(params, s, parsed)
	defer utils.Zeroize(m)
	return deriveSharedSecret(m, ct), nil
}

func deriveSharedSecret(m, ct []byte) []byte {
	return utils.Shake256WithDomain(DomainSharedSecret, pqcore.SharedSecretSize, m, utils.SHA3256(ct))
}

// Encrypt encrypts a message using KEM+DEM with XChaCha20-Poly1305. The KEM
// ciphertext is authenticated as associated data.
func Encrypt(params pqcore.Params, pk []byte, plaintext []byte) (*pqcore.EncryptedMessage, error) {
	if err := utils.CheckLength(len(plaintext), utils.MaxMessageSize); err != nil {
		return nil, fmt.Errorf("plaintext: %w", err)
	}
	result, err := Encapsulate(params, pk)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(result.SharedSecret)

	aead, err := newAEAD(result.SharedSecret)
	if err != nil {
		return nil, err
	}
	nonce, err := utils.SecureRandomBytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}

	return &pqcore.EncryptedMessage{
		Ciphertext: result.Ciphertext,
		Nonce:      nonce,
		Encrypted:  aead.Seal(nil, nonce, plaintext, result.Ciphertext),
	}, nil
}

// Decrypt decrypts an encrypted message.
func Decrypt(params pqcore.Params, sk []byte, em *pqcore.EncryptedMessage) ([]byte, error) {
	ss, err := Decapsulate(params, sk, em.Ciphertext)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(ss)

	aead, err := newAEAD(ss)
	if err != nil {
		return nil, err
	}
	if len(em.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("nonce: %w", codec.ErrLengthMismatch)
	}
	plaintext, err := aead.Open(nil, em.Nonce, em.Encrypted, em.Ciphertext)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

func newAEAD(sharedSecret []byte) (cipher.AEAD, error) {
	key := utils.Shake256WithDomain(DomainEncKey, chacha20poly1305.KeySize, sharedSecret)
	defer utils.Zeroize(key)
	return chacha20poly1305.NewX(key)
}
