package session

import (
	"fmt"
	"io"

	"github.com/TheusHen/sdict/sdict/protocol"
)

// Replies the server sends in ACK packets.
const (
	ReplyChanged = "nequ"
	ReplyData    = "data"
	ReplySuccess = "succ"
)

// maxDictLen caps the CAT length prefix.
const maxDictLen = 64 << 20

// Cat downloads the raw dictionary buffer.
//
// The reply is not a packet: an ASCII decimal length, one separator byte,
// then that many bytes of cipher output under the next sequence number.
func (s *Session) Cat() ([]byte, error) {
	if err := s.send(protocol.CmdCat, filler, s.read); err != nil {
		return nil, err
	}
	s.refreshDeadline()

	n, digits := 0, 0
	for {
		b, err := s.br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("session: read length: %w", err)
		}
		if b < '0' || b > '9' {
			break
		}
		n = n*10 + int(b-'0')
		digits++
		if n > maxDictLen {
			return nil, fmt.Errorf("%w: exceeds %d", ErrBadLength, maxDictLen)
		}
	}
	if digits == 0 {
		return nil, ErrBadLength
	}

	ct := make([]byte, n)
	if _, err := io.ReadFull(s.br, ct); err != nil {
		return nil, fmt.Errorf("session: read dictionary: %w", err)
	}
	raw, err := s.read.Decrypt(ct, s.seq)
	if err != nil {
		s.log.Debug().Int("len", n).Uint8("seq", s.seq).Err(err).Msg("dictionary rejected")
		return nil, protocol.ErrDecryptFailed
	}
	s.log.Debug().Int("len", len(raw)).Msg("dictionary received")
	s.seq++
	return raw, nil
}

// Changed asks whether the server's dictionary digest differs from digest.
func (s *Session) Changed(digest [protocol.DigestSize]byte) (bool, error) {
	if err := s.send(protocol.CmdMD5, digest[:], s.read); err != nil {
		return false, err
	}
	r, err := s.ack()
	if err != nil {
		return false, err
	}
	return string(r) == ReplyChanged, nil
}

// Get asks the server for the value of key.
func (s *Session) Get(key []byte) ([]byte, error) {
	if err := s.send(protocol.CmdGet, key, s.read); err != nil {
		return nil, err
	}
	return s.ack()
}

// Del removes key on the server.
func (s *Session) Del(key []byte) error {
	if s.write == nil {
		return ErrReadOnly
	}
	if err := s.send(protocol.CmdDel, key, s.write); err != nil {
		return err
	}
	return s.expect(ReplySuccess)
}

// Set stores value under key on the server.
//
// The value follows SET as DAT packets of at most one chunk. The server
// answers "data" while it expects more and "succ" once the value is stored.
// A server that takes a single DAT answers "succ" to the first one, which
// completes any value that fits one chunk. When the final chunk is full and
// the server still answers "data", an empty DAT ends the value.
func (s *Session) Set(key, value []byte) error {
	if s.write == nil {
		return ErrReadOnly
	}
	if err := s.send(protocol.CmdSet, key, s.write); err != nil {
		return err
	}
	if err := s.expect(ReplyData); err != nil {
		return err
	}

	chunks := s.chunker.Split(value)
	for _, ch := range chunks {
		if err := s.send(protocol.CmdDat, ch.Data, s.write); err != nil {
			return err
		}
		s.log.Debug().Int("chunk", ch.Index).Int("len", len(ch.Data)).Hex("md5", ch.Hash[:]).Msg("value chunk sent")
		got, err := s.ack()
		if err != nil {
			return err
		}
		last := ch.Last(len(chunks))
		switch {
		case last && string(got) == ReplySuccess:
			return nil
		case string(got) != ReplyData:
			return fmt.Errorf("%w: got %q after chunk %d of %d", ErrUnexpectedReply, got, ch.Index+1, len(chunks))
		case last && len(ch.Data) < s.chunker.ChunkSize():
			return fmt.Errorf("%w: server wants data past the end of the value", ErrUnexpectedReply)
		}
	}

	if err := s.send(protocol.CmdDat, []byte{}, s.write); err != nil {
		return err
	}
	return s.expect(ReplySuccess)
}
