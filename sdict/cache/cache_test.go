package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/TheusHen/sdict/sdict/protocol"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	c, err := Open(t.TempDir(), []byte("password"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	raw := bytes.Repeat([]byte{0x06, 0x01, 0x01, 'a', 0x02, 0x01, '1'}, 100)
	if err := c.Save(raw); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sum, err := c.Digest()
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if sum != protocol.Digest(raw) {
		t.Fatalf("stored digest is not MD5 of the raw buffer")
	}

	got, err := c.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("loaded buffer differs")
	}

	// Snapshot is neither plaintext nor merely compressed.
	stored, err := os.ReadFile(filepath.Join(c.Dir(), snapshotFile))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if bytes.Contains(stored, raw[:7]) {
		t.Fatalf("snapshot stored in the clear")
	}
}

func TestLoadMiss(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "missing"), []byte("pw"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := c.Load(); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
	if _, err := c.Digest(); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss from Digest, got %v", err)
	}
}

func TestLoadWrongPassword(t *testing.T) {
	dir := t.TempDir()
	c, _ := Open(dir, []byte("right"))
	if err := c.Save([]byte("data")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	other, _ := Open(dir, []byte("wrong"))
	if _, err := other.Load(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestLoadDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	c, _ := Open(dir, []byte("pw"))
	if err := c.Save([]byte("some dictionary bytes")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, snapshotFile)
	b, _ := os.ReadFile(path)
	b[len(b)/2] ^= 0x01
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := c.Load(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for tampered snapshot, got %v", err)
	}

	if err := c.Save([]byte("fresh")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, digestFile), make([]byte, 16), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := c.Load(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for replaced digest, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, digestFile), []byte("short"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := c.Digest(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for short digest, got %v", err)
	}
}

func TestClear(t *testing.T) {
	c, _ := Open(t.TempDir(), []byte("pw"))
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear on empty cache: %v", err)
	}
	if err := c.Save([]byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := c.Load(); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after Clear, got %v", err)
	}
}
