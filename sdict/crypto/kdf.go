package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const cacheKeyInfo = "sdict-snapshot-cache"

// DeriveKey derives a key of the specified length using HKDF-SHA256.
// salt can be nil (uses zero salt), info provides context binding.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
}

// CacheKey derives the snapshot-cache sealing key from a dictionary password.
// salt binds the key to one cache location.
func CacheKey(password, salt []byte) ([]byte, error) {
	return DeriveKey(password, salt, []byte(cacheKeyInfo), chacha20poly1305.KeySize)
}
