// Package cache keeps the last downloaded dictionary buffer on disk.
//
// Two files live in the cache directory: "md5" holds the digest of the raw
// buffer, as the server computes it, and "dsp" holds the buffer itself, LZ4
// compressed and sealed with a key derived from the dictionary password.
package cache

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/TheusHen/sdict/sdict/crypto"
	"github.com/TheusHen/sdict/sdict/protocol"
	"github.com/TheusHen/sdict/sdict/transfer"
)

const (
	snapshotFile = "dsp"
	digestFile   = "md5"

	// maxSnapshot bounds the decompressed snapshot.
	maxSnapshot = 64 << 20
)

var (
	ErrMiss    = errors.New("cache: no snapshot")
	ErrCorrupt = errors.New("cache: snapshot corrupt")
)

// Cache is a snapshot directory.
type Cache struct {
	dir  string
	aead *crypto.AEAD
}

// Open prepares a cache in dir. The directory is created on first Save.
func Open(dir string, password []byte) (*Cache, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	key, err := crypto.CacheKey(password, []byte(abs))
	if err != nil {
		return nil, fmt.Errorf("cache: derive key: %w", err)
	}
	aead, err := crypto.NewAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache{dir: abs, aead: aead}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Digest returns the stored digest without reading the snapshot.
func (c *Cache) Digest() ([protocol.DigestSize]byte, error) {
	var sum [protocol.DigestSize]byte
	b, err := os.ReadFile(filepath.Join(c.dir, digestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return sum, ErrMiss
	}
	if err != nil {
		return sum, fmt.Errorf("cache: %w", err)
	}
	if len(b) != protocol.DigestSize {
		return sum, fmt.Errorf("%w: digest is %d bytes", ErrCorrupt, len(b))
	}
	copy(sum[:], b)
	return sum, nil
}

// Save replaces the snapshot with raw.
func (c *Cache) Save(raw []byte) error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	sum := protocol.Digest(raw)
	comp, err := transfer.Compress(raw, transfer.CompressionDefault)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	sealed, err := c.aead.Seal(comp, sum[:])
	if err != nil {
		return fmt.Errorf("cache: seal: %w", err)
	}
	if err := writeFile(filepath.Join(c.dir, snapshotFile), sealed); err != nil {
		return err
	}
	return writeFile(filepath.Join(c.dir, digestFile), sum[:])
}

// Load returns the stored raw buffer after checking it against the digest.
func (c *Cache) Load() ([]byte, error) {
	sum, err := c.Digest()
	if err != nil {
		return nil, err
	}
	sealed, err := os.ReadFile(filepath.Join(c.dir, snapshotFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	comp, err := c.aead.Open(sealed, sum[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	raw, err := transfer.Decompress(comp, maxSnapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	got := protocol.Digest(raw)
	if subtle.ConstantTimeCompare(got[:], sum[:]) != 1 {
		return nil, fmt.Errorf("%w: digest mismatch", ErrCorrupt)
	}
	return raw, nil
}

// Clear removes both cache files.
func (c *Cache) Clear() error {
	for _, name := range []string{digestFile, snapshotFile} {
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}
