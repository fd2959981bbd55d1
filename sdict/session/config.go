package session

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/TheusHen/sdict/sdict/tea"
)

// DefaultTimeout bounds each exchange on the connection.
const DefaultTimeout = 10 * time.Second

// Config holds the ciphers and limits for one session.
type Config struct {
	// Read encrypts query requests and decrypts every reply.
	Read *tea.Cipher
	// Write encrypts SET, DAT and DEL requests. Nil makes the session read-only.
	Write *tea.Cipher
	// Timeout is applied as a connection deadline per exchange.
	Timeout time.Duration
	// ChunkSize limits the value bytes per DAT packet.
	ChunkSize int
	// Logger receives packet-level debug logs. Nil discards them.
	Logger *zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}
