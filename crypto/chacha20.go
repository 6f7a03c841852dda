package crypto

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// AEADOverhead is the authentication tag length added by EncryptNote.
const AEADOverhead = chacha20poly1305.Overhead

// EncryptNote encrypts the note plaintext using the ChaCha20-Poly1305 AEAD (Authenticated
// Encryption with Associated Data) scheme.
//
// Parameters:
//   - key: A 32-byte symmetric encryption key.
//   - nonce: A 12-byte nonce, which must be unique for each encryption with the same key.
//   - plaintext: The data to be encrypted (e.g., the serialized note plaintext).
//   - additionalData: Data to be authenticated but not encrypted, typically
//     the ephemeral public key.
//
// Returns the ciphertext, which includes the authentication tag.
func EncryptNote(key, nonce, plaintext, additionalData []byte) ([]byte, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid key size: must be %d bytes", chacha20poly1305.KeySize)
	}
	if len(nonce) != chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("invalid nonce size: must be %d bytes", chacha20poly1305.NonceSize)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 AEAD: %w", err)
	}

	return aead.Seal(nil, nonce, plaintext, additionalData), nil
}

// DecryptNote decrypts the note ciphertext using ChaCha20-Poly1305.
// A failure means a wrong key or nonce, or tampered ciphertext or
// additional data.
func DecryptNote(key, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid key size: must be %d bytes", chacha20poly1305.KeySize)
	}
	if len(nonce) != chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("invalid nonce size: must be %d bytes", chacha20poly1305.NonceSize)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 AEAD: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt note: %w", err)
	}
	return plaintext, nil
}
