package protocol

import (
	"io"

	"github.com/TheusHen/sdict/sdict/tea"
)

// WritePacket encrypts p under seq and writes it in a single Write call.
func WritePacket(w io.Writer, p *Packet, seq uint8) error {
	b, err := p.Encrypt(seq)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadPacket reads the fixed header, then exactly as many ciphertext bytes as
// the length byte declares.
func ReadPacket(r io.Reader, c *tea.Cipher) (*Packet, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	raw := make([]byte, HeaderLen+int(hdr[1]))
	copy(raw, hdr[:])
	if _, err := io.ReadFull(r, raw[HeaderLen:]); err != nil {
		return nil, err
	}
	return ParsePacket(raw, c)
}
