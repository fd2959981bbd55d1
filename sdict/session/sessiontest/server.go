// Package sessiontest provides an in-process sdict server for tests and demos.
package sessiontest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/TheusHen/sdict/sdict/protocol"
	"github.com/TheusHen/sdict/sdict/record"
	"github.com/TheusHen/sdict/sdict/tea"
	"github.com/TheusHen/sdict/sdict/transfer"
)

// Server speaks the sdict protocol on a loopback TCP listener and keeps the
// dictionary in memory.
type Server struct {
	Addr string

	read    *tea.Cipher
	write   *tea.Cipher
	ln      net.Listener
	wg      sync.WaitGroup
	mu      sync.Mutex
	records []record.Record
	raw     []byte // overrides the encoded records when set
	conns   int
	active  map[net.Conn]struct{}
	oneDat  bool
}

// NewServer starts a server. readPassword protects queries and all replies,
// writePassword protects SET, DAT and DEL.
func NewServer(readPassword, writePassword string) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{
		Addr:   ln.Addr().String(),
		read:   tea.New([]byte(readPassword)),
		write:  tea.New([]byte(writePassword)),
		ln:     ln,
		active: make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Close stops the listener, drops open conversations and waits for them.
func (s *Server) Close() error {
	err := s.ln.Close()
	s.mu.Lock()
	for conn := range s.active {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

// Put stores a key, replacing any previous value.
func (s *Server) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.del([]byte(key))
	s.raw = nil
	s.records = append(s.records, record.Record{Key: []byte(key), Value: []byte(value)})
}

// SingleDat makes the server store a value from the first DAT after SET and
// answer "succ", whatever the DAT length.
func (s *Server) SingleDat(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oneDat = on
}

// Append stores a record without replacing earlier ones with the same key.
func (s *Server) Append(key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = nil
	s.records = append(s.records, record.Record{Key: key, Value: value})
}

// Len returns the number of stored records.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Value returns the stored value of key.
func (s *Server) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if string(r.Key) == key {
			return string(r.Value), true
		}
	}
	return "", false
}

// SetRaw makes CAT serve raw verbatim, e.g. to inject malformed records.
func (s *Server) SetRaw(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
}

// Conns returns how many connections the server has accepted.
func (s *Server) Conns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

// Snapshot returns the buffer CAT would serve.
func (s *Server) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Server) snapshot() []byte {
	if s.raw != nil {
		return s.raw
	}
	raw, err := record.Encode(s.records)
	if err != nil {
		panic(err)
	}
	return raw
}

func (s *Server) del(key []byte) bool {
	for i, r := range s.records {
		if bytes.Equal(r.Key, key) {
			s.records = append(s.records[:i], s.records[i+1:]...)
			s.raw = nil
			return true
		}
	}
	return false
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns++
		s.active[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = s.serve(conn)
			s.mu.Lock()
			delete(s.active, conn)
			s.mu.Unlock()
			_ = conn.Close()
		}()
	}
}

type conversation struct {
	*Server
	conn io.Writer
	br   *bufio.Reader
	seq  uint8
}

func (s *Server) serve(conn net.Conn) error {
	c := &conversation{Server: s, conn: conn, br: bufio.NewReader(conn)}
	var setKey []byte
	var value []transfer.Chunk
	chunkSize := transfer.NewChunker(0).ChunkSize()

	for {
		cmd, data, err := c.recv()
		if err != nil {
			return err
		}
		switch cmd {
		case protocol.CmdEnd:
			return nil
		case protocol.CmdCat:
			if err := c.cat(); err != nil {
				return err
			}
		case protocol.CmdMD5:
			sum := protocol.Digest(s.Snapshot())
			reply := "same"
			if !bytes.Equal(sum[:], data) {
				reply = "nequ"
			}
			err = c.reply(reply)
		case protocol.CmdGet:
			v, ok := s.Value(string(data))
			if !ok {
				v = "null"
			}
			err = c.reply(v)
		case protocol.CmdDel:
			s.mu.Lock()
			ok := s.del(data)
			s.mu.Unlock()
			reply := "succ"
			if !ok {
				reply = "null"
			}
			err = c.reply(reply)
		case protocol.CmdSet:
			setKey, value = data, nil
			err = c.reply("data")
		case protocol.CmdDat:
			if setKey == nil {
				err = c.reply("erro")
				break
			}
			s.mu.Lock()
			oneDat := s.oneDat
			s.mu.Unlock()
			value = append(value, transfer.Chunk{Index: len(value), Data: data})
			if len(data) == chunkSize && !oneDat {
				err = c.reply("data")
				break
			}
			s.Put(string(setKey), string(transfer.Reassemble(value)))
			setKey, value = nil, nil
			err = c.reply("succ")
		default:
			return fmt.Errorf("sessiontest: unknown command %v", cmd)
		}
		if err != nil {
			return err
		}
	}
}

// recv reads one request, picking the cipher by command.
func (c *conversation) recv() (protocol.Cmd, []byte, error) {
	var hdr [protocol.HeaderLen]byte
	if _, err := io.ReadFull(c.br, hdr[:]); err != nil {
		return 0, nil, err
	}
	raw := make([]byte, protocol.HeaderLen+int(hdr[1]))
	copy(raw, hdr[:])
	if _, err := io.ReadFull(c.br, raw[protocol.HeaderLen:]); err != nil {
		return 0, nil, err
	}

	ciph := c.read
	switch protocol.Cmd(hdr[0]) {
	case protocol.CmdSet, protocol.CmdDat, protocol.CmdDel:
		ciph = c.write
	}
	p, err := protocol.ParsePacket(raw, ciph)
	if err != nil {
		return 0, nil, err
	}
	data, err := p.Decrypt(c.seq)
	if err != nil {
		return 0, nil, err
	}
	c.seq++
	return p.Cmd, data, nil
}

func (c *conversation) reply(msg string) error {
	err := protocol.WritePacket(c.conn, protocol.NewPacket(protocol.CmdAck, []byte(msg), c.read), c.seq)
	c.seq++
	return err
}

func (c *conversation) cat() error {
	ct, err := c.read.Encrypt(c.Snapshot(), c.seq)
	if err != nil {
		return err
	}
	c.seq++
	if _, err := fmt.Fprintf(c.conn, "%d$", len(ct)); err != nil {
		return err
	}
	_, err = c.conn.Write(ct)
	return err
}
