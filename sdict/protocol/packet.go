package protocol

import (
	"crypto/md5"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/TheusHen/sdict/sdict/tea"
)

const (
	// HeaderLen is cmd(1) + length(1) + digest(16).
	HeaderLen = 1 + 1 + DigestSize
	// DigestSize is the MD5 digest length.
	DigestSize = md5.Size
	// MaxCiphertext is the largest ciphertext the length byte can describe,
	// rounded down to a whole block.
	MaxCiphertext = 255 &^ (tea.BlockSize - 1)
	// MaxPayload is the largest plaintext that fits in one packet.
	MaxPayload = 238
)

var (
	ErrShortPacket     = errors.New("protocol: packet shorter than header")
	ErrPayloadTooLarge = errors.New("protocol: payload too large for one packet")
	ErrSealedPacket    = errors.New("protocol: packet holds ciphertext only")
	// ErrDecryptFailed covers both cipher failures and digest mismatches.
	ErrDecryptFailed = errors.New("protocol: packet decrypt failed")
)

// Digest is the integrity digest carried in packets and cache files.
func Digest(b []byte) [DigestSize]byte { return md5.Sum(b) }

// Packet binds a command, a plaintext digest and a payload.
//
// Layout on the wire:
//
//	[0]      cmd
//	[1]      ciphertext length
//	[2:18]   MD5 of the plaintext
//	[18:]    ciphertext
//
// A packet built with NewPacket holds plaintext and can be encrypted; one
// built with ParsePacket holds ciphertext and can be decrypted.
type Packet struct {
	Cmd    Cmd
	Digest [DigestSize]byte

	plaintext   []byte
	ciphertext  []byte
	declaredLen uint8
	sealed      bool
	cipher      *tea.Cipher
}

// NewPacket builds an outgoing packet and computes its digest.
func NewPacket(cmd Cmd, plaintext []byte, c *tea.Cipher) *Packet {
	return &Packet{
		Cmd:       cmd,
		Digest:    Digest(plaintext),
		plaintext: plaintext,
		cipher:    c,
	}
}

// ParsePacket splits raw wire bytes. The length byte is kept for inspection
// but the ciphertext is everything after the header.
func ParsePacket(raw []byte, c *tea.Cipher) (*Packet, error) {
	if len(raw) < HeaderLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(raw))
	}
	p := &Packet{
		Cmd:         Cmd(raw[0]),
		declaredLen: raw[1],
		sealed:      true,
		cipher:      c,
	}
	copy(p.Digest[:], raw[2:HeaderLen])
	p.ciphertext = append([]byte(nil), raw[HeaderLen:]...)
	return p, nil
}

// DeclaredLen is the length byte read from the wire.
func (p *Packet) DeclaredLen() uint8 { return p.declaredLen }

// Ciphertext returns the ciphertext of a parsed packet.
func (p *Packet) Ciphertext() []byte { return p.ciphertext }

// Encrypt encrypts the plaintext under seq and returns the full wire packet.
func (p *Packet) Encrypt(seq uint8) ([]byte, error) {
	if p.sealed {
		return nil, ErrSealedPacket
	}
	if n := tea.EncryptedLen(len(p.plaintext)); n > MaxCiphertext {
		return nil, fmt.Errorf("%w: %d plaintext bytes", ErrPayloadTooLarge, len(p.plaintext))
	}
	ct, err := p.cipher.Encrypt(p.plaintext, seq)
	if err != nil {
		return nil, err
	}

	out := make([]byte, HeaderLen+len(ct))
	out[0] = byte(p.Cmd)
	out[1] = byte(len(ct))
	copy(out[2:HeaderLen], p.Digest[:])
	copy(out[HeaderLen:], ct)
	return out, nil
}

// Decrypt decrypts a parsed packet under seq and verifies the digest.
// Any failure yields ErrDecryptFailed.
func (p *Packet) Decrypt(seq uint8) ([]byte, error) {
	if !p.sealed {
		return nil, ErrDecryptFailed
	}
	pt, err := p.cipher.Decrypt(p.ciphertext, seq)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	sum := Digest(pt)
	if subtle.ConstantTimeCompare(sum[:], p.Digest[:]) != 1 {
		return nil, ErrDecryptFailed
	}
	return pt, nil
}
