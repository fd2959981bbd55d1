package tea

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/rand"
	"sync"
	"testing"
)

// fixedFill yields the same filler byte forever so ciphertexts are reproducible.
type fixedFill byte

func (f fixedFill) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(f)
	}
	return len(p), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		name string
		key  []byte
		want Key
	}{
		{"short", []byte("sdict-test-key"), Key{0x63696473, 0x65742d74, 0x6b2d7473, 0x00007965}},
		{"truncated", []byte("0123456789abcdefXYZ"), Key{0x33323130, 0x37363534, 0x62613938, 0x00656463}},
		{"empty", nil, Key{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeKey(tc.key); got != tc.want {
				t.Fatalf("NormalizeKey(%q) = %08x, want %08x", tc.key, got, tc.want)
			}
		})
	}
}

func TestKeyWithSeqDoesNotMutate(t *testing.T) {
	c := New([]byte("0123456789abcdef"))
	before := c.Key()
	k := before.WithSeq(0xab)
	if k[3]>>24 != 0xab {
		t.Fatalf("sequence byte not injected: %08x", k[3])
	}
	if k[3]&0x00ffffff != before[3] {
		t.Fatalf("low bits of word 3 changed: %08x vs %08x", k[3], before[3])
	}
	if c.Key() != before {
		t.Fatalf("cipher key mutated by WithSeq")
	}
}

func TestEncryptRegressionVectors(t *testing.T) {
	cases := []struct {
		name      string
		key       string
		seq       uint8
		plaintext string
		want      string
	}{
		{
			name:      "single block pair",
			key:       "sdict-test-key",
			seq:       7,
			plaintext: "hello",
			want:      "eb8cc98fc0c9cbc2a7c93a3b9b71cd37",
		},
		{
			name:      "multi block",
			key:       "sdict-test-key",
			seq:       0x2a,
			plaintext: "sdict regression vector: multi-block chaining",
			want:      "44e13eb0d407fbd0b2596b11155e3b55f0ffc0faca6fc3959eff0c1f227d88ed23883f92d13696ef1d985d9f08845c1a5c89cb3214a066bd",
		},
		{
			name:      "long key max seq",
			key:       "0123456789abcdefXYZ",
			seq:       255,
			plaintext: "hello",
			want:      "12c89868ae2cdf8a037645c18fdcac8e",
		},
		{
			name:      "empty plaintext",
			key:       "sdict-test-key",
			seq:       0,
			plaintext: "",
			want:      "f7ff14b8769fc4b92d32672097cde94d",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New([]byte(tc.key), WithRand(fixedFill(0xa5)))
			ct, err := c.Encrypt([]byte(tc.plaintext), tc.seq)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if got := hex.EncodeToString(ct); got != tc.want {
				t.Fatalf("ciphertext mismatch\n got  %s\n want %s", got, tc.want)
			}
			pt, err := c.Decrypt(mustHex(t, tc.want), tc.seq)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if string(pt) != tc.plaintext {
				t.Fatalf("Decrypt = %q, want %q", pt, tc.plaintext)
			}
		})
	}
}

func TestRoundTripAllLengthsAndSeqs(t *testing.T) {
	c := New([]byte("round-trip"))
	rng := rand.New(rand.NewSource(1))
	for n := 0; n <= 248; n++ {
		p := make([]byte, n)
		rng.Read(p)
		for seq := 0; seq < 256; seq++ {
			ct, err := c.Encrypt(p, uint8(seq))
			if err != nil {
				t.Fatalf("Encrypt(len=%d, seq=%d): %v", n, seq, err)
			}
			if len(ct) != EncryptedLen(n) || len(ct)%BlockSize != 0 {
				t.Fatalf("len=%d: ciphertext length %d, want %d", n, len(ct), EncryptedLen(n))
			}
			got, err := c.Decrypt(ct, uint8(seq))
			if err != nil {
				t.Fatalf("Decrypt(len=%d, seq=%d): %v", n, seq, err)
			}
			if !bytes.Equal(got, p) {
				t.Fatalf("round trip mismatch at len=%d seq=%d", n, seq)
			}
		}
	}
}

func TestPaddingHeaderByte(t *testing.T) {
	for n := 0; n < 16; n++ {
		fill := 10 - (n+1)%8
		if fill < 3 || fill > 10 {
			t.Fatalf("fill out of range for n=%d: %d", n, fill)
		}
		if EncryptedLen(n) != fill+n+7 {
			t.Fatalf("EncryptedLen(%d) = %d", n, EncryptedLen(n))
		}
	}
}

func TestDecryptWrongSeqDoesNotReproduce(t *testing.T) {
	c := New([]byte("sdict-test-key"), WithRand(fixedFill(0xa5)))
	p := []byte("sdict regression vector: multi-block chaining")
	ct, err := c.Encrypt(p, 0x2a)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	for seq := 0; seq < 256; seq++ {
		if seq == 0x2a {
			continue
		}
		got, err := c.Decrypt(ct, uint8(seq))
		if err == nil && bytes.Equal(got, p) {
			t.Fatalf("seq %d reproduced plaintext encrypted under seq 0x2a", seq)
		}
	}
}

func TestDecryptRejectsBadLengths(t *testing.T) {
	c := New([]byte("k"))
	for _, n := range []int{0, 1, 8, 15, 17, 23} {
		if _, err := c.Decrypt(make([]byte, n), 0); !errors.Is(err, ErrInvalidLength) {
			t.Fatalf("len %d: expected ErrInvalidLength, got %v", n, err)
		}
	}
}

func TestDecryptRejectsTamperedTrailer(t *testing.T) {
	c := New([]byte("sdict-test-key"), WithRand(fixedFill(0xa5)))
	ct, err := c.Encrypt([]byte("hello"), 7)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct[9] ^= 0x40
	if _, err := c.Decrypt(ct, 7); !errors.Is(err, ErrInvalidPadding) {
		t.Fatalf("expected ErrInvalidPadding, got %v", err)
	}
}

func TestEncryptFillerError(t *testing.T) {
	c := New([]byte("k"), WithRand(failingReader{}))
	if _, err := c.Encrypt([]byte("x"), 0); err == nil {
		t.Fatalf("expected filler error")
	}
}

func TestCipherConcurrentUse(t *testing.T) {
	c := New([]byte("shared"))
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(seq uint8) {
			defer wg.Done()
			p := bytes.Repeat([]byte{seq}, int(seq)%64)
			for i := 0; i < 200; i++ {
				ct, err := c.Encrypt(p, seq)
				if err != nil {
					errs <- err
					return
				}
				got, err := c.Decrypt(ct, seq)
				if err != nil {
					errs <- err
					return
				}
				if !bytes.Equal(got, p) {
					errs <- errors.New("concurrent round trip mismatch")
					return
				}
			}
		}(uint8(g * 13))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func BenchmarkEncrypt(b *testing.B) {
	c := New([]byte("bench-key"))
	p := make([]byte, 238)
	b.SetBytes(int64(len(p)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Encrypt(p, uint8(i))
	}
}

func BenchmarkDecrypt(b *testing.B) {
	c := New([]byte("bench-key"))
	ct, _ := c.Encrypt(make([]byte, 238), 1)
	b.SetBytes(int64(len(ct)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Decrypt(ct, 1)
	}
}
