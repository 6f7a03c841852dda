package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20poly1305"
)

// CipherKeySize is the length of a derived key plus nonce.
const CipherKeySize = chacha20poly1305.KeySize + chacha20poly1305.NonceSize

// ECDHEComputeSharedSecret computes the ECDHE shared secret
// sharedSecret = privateKey * otherPublicKey, hashed to 32 bytes.
func ECDHEComputeSharedSecret(privateKey *Scalar, otherPublicKey *Point) ([]byte, error) {
	if otherPublicKey.IsIdentity() {
		return nil, errors.New("other public key is the identity")
	}

	sharedSecret := NewPoint().ScalarMult(privateKey, otherPublicKey)

	hasher, err := blake2s.New256(nil)
	if err != nil {
		return nil, err
	}
	hasher.Write(sharedSecret.Bytes())
	return hasher.Sum(nil), nil
}

// SaplingKDF derives a key stream of a specified length from a shared secret using BLAKE2s.
// This function follows the PRF^expand logic, similar to HKDF-Expand (RFC 5869).
func SaplingKDF(sharedSecret []byte, outputLen int) ([]byte, error) {
	if len(sharedSecret) != 32 {
		return nil, fmt.Errorf("sharedSecret must be 32 bytes")
	}

	personalization := []byte("zktx_ExpandSeed")

	var keyStream []byte
	var counter byte = 1 // The counter must start at 1.
	for len(keyStream) < outputLen {
		// Create a new hash instance for each iteration to avoid state pollution.
		h, err := blake2s.New256(personalization)
		if err != nil {
			return nil, fmt.Errorf("failed to create blake2s hash: %w", err)
		}
		h.Write(sharedSecret)
		h.Write([]byte{counter})

		keyStream = append(keyStream, h.Sum(nil)...)

		counter++
		if counter == 0 {
			return nil, errors.New("KDF counter overflow")
		}
	}

	return keyStream[:outputLen], nil
}

// CipherKey splits a KDF stream over secret into an AEAD key and nonce.
func CipherKey(secret []byte) (key, nonce []byte, err error) {
	stream, err := SaplingKDF(secret, CipherKeySize)
	if err != nil {
		return nil, nil, err
	}
	return stream[:chacha20poly1305.KeySize], stream[chacha20poly1305.KeySize:], nil
}

// OutgoingSecret binds the sender's outgoing view key to one output.
func OutgoingSecret(ovk []byte, parts ...[]byte) []byte {
	h, _ := blake2s.New256(nil)
	h.Write([]byte("zktx_outgoing"))
	h.Write(ovk)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
