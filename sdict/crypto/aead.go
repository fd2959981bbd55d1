package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKeySize     = errors.New("crypto: invalid key size for ChaCha20-Poly1305")
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
	ErrDecryptionFailed   = errors.New("crypto: decryption failed")
)

// AEAD wraps ChaCha20-Poly1305 with a random 96-bit nonce per message.
// Messages are sealed rarely and independently, so no counter state is kept.
type AEAD struct {
	aead cipher.AEAD
}

// NewAEAD creates a new AEAD cipher from a 32-byte key.
func NewAEAD(key []byte) (*AEAD, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKeySize
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &AEAD{aead: aead}, nil
}

// Seal encrypts and authenticates plaintext.
// Returns: nonce (12 bytes) || ciphertext || tag (16 bytes)
func (a *AEAD) Seal(plaintext, additionalData []byte) ([]byte, error) {
	nonceSize := a.aead.NonceSize()
	out := make([]byte, nonceSize, nonceSize+len(plaintext)+a.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, err
	}
	return a.aead.Seal(out, out[:nonceSize], plaintext, additionalData), nil
}

// Open decrypts and verifies a message produced by Seal.
func (a *AEAD) Open(ciphertext, additionalData []byte) ([]byte, error) {
	nonceSize := a.aead.NonceSize()
	if len(ciphertext) < nonceSize+a.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	plaintext, err := a.aead.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], additionalData)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// Overhead returns the bytes Seal adds to a plaintext.
func (a *AEAD) Overhead() int { return a.aead.NonceSize() + a.aead.Overhead() }
