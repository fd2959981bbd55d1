package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/TheusHen/sdict/sdict/protocol"
	"github.com/TheusHen/sdict/sdict/tea"
	"github.com/TheusHen/sdict/sdict/transfer"
)

var (
	ErrNoCipher        = errors.New("session: read cipher required")
	ErrReadOnly        = errors.New("session: no write password configured")
	ErrUnexpectedReply = errors.New("session: unexpected reply")
	ErrBadLength       = errors.New("session: bad length prefix")
	ErrClosed          = errors.New("session: closed")
)

// filler is the payload of packets whose command carries no data.
var filler = []byte("fill")

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Session is one conversation with an sdict server.
type Session struct {
	conn    io.ReadWriteCloser
	br      *bufio.Reader
	read    *tea.Cipher
	write   *tea.Cipher
	seq     uint8
	timeout time.Duration
	chunker *transfer.Chunker
	log     zerolog.Logger
	closed  bool
}

// New starts a session on an established connection.
func New(conn io.ReadWriteCloser, cfg Config) (*Session, error) {
	if cfg.Read == nil {
		return nil, ErrNoCipher
	}
	cfg = cfg.withDefaults()
	return &Session{
		conn:    conn,
		br:      bufio.NewReader(conn),
		read:    cfg.Read,
		write:   cfg.Write,
		timeout: cfg.Timeout,
		chunker: transfer.NewChunker(cfg.ChunkSize),
		log:     *cfg.Logger,
	}, nil
}

// Dial connects to addr over TCP and starts a session.
func Dial(ctx context.Context, addr string, cfg Config) (*Session, error) {
	if cfg.Read == nil {
		return nil, ErrNoCipher
	}
	cfg = cfg.withDefaults()
	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("session: dial %s: %w", addr, err)
	}
	cfg.Logger.Debug().Str("addr", addr).Msg("connected")
	return New(conn, cfg)
}

// Seq returns the sequence number the next packet will use.
func (s *Session) Seq() uint8 { return s.seq }

// Writable reports whether the session can modify the dictionary.
func (s *Session) Writable() bool { return s.write != nil }

func (s *Session) refreshDeadline() {
	if d, ok := s.conn.(deadliner); ok {
		_ = d.SetDeadline(time.Now().Add(s.timeout))
	}
}

// send encrypts one request at the current sequence number and advances it.
func (s *Session) send(cmd protocol.Cmd, payload []byte, c *tea.Cipher) error {
	if s.closed {
		return ErrClosed
	}
	s.refreshDeadline()
	raw, err := protocol.NewPacket(cmd, payload, c).Encrypt(s.seq)
	if err != nil {
		return fmt.Errorf("session: %s: %w", cmd, err)
	}
	s.log.Debug().Stringer("cmd", cmd).Uint8("seq", s.seq).Hex("packet", raw).Msg("send")
	if _, err := s.conn.Write(raw); err != nil {
		return fmt.Errorf("session: write %s: %w", cmd, err)
	}
	s.seq++
	return nil
}

// ack reads one reply packet. The sequence number only advances when the
// reply decrypts.
func (s *Session) ack() ([]byte, error) {
	s.refreshDeadline()
	p, err := protocol.ReadPacket(s.br, s.read)
	if err != nil {
		return nil, fmt.Errorf("session: read reply: %w", err)
	}
	pt, err := p.Decrypt(s.seq)
	if err != nil {
		s.log.Debug().Uint8("seq", s.seq).Hex("ciphertext", p.Ciphertext()).Msg("reply rejected")
		return nil, err
	}
	s.log.Debug().Stringer("cmd", p.Cmd).Uint8("seq", s.seq).Str("reply", string(pt)).Msg("ack")
	s.seq++
	return pt, nil
}

func (s *Session) expect(want string) error {
	got, err := s.ack()
	if err != nil {
		return err
	}
	if string(got) != want {
		return fmt.Errorf("%w: got %q, want %q", ErrUnexpectedReply, got, want)
	}
	return nil
}

// Close sends END, resets the sequence number and closes the connection.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	endErr := s.send(protocol.CmdEnd, filler, s.read)
	s.closed = true
	s.seq = 0
	return errors.Join(endErr, s.conn.Close())
}
