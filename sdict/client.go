package sdict

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TheusHen/sdict/sdict/cache"
	"github.com/TheusHen/sdict/sdict/dict"
	"github.com/TheusHen/sdict/sdict/record"
	"github.com/TheusHen/sdict/sdict/session"
	"github.com/TheusHen/sdict/sdict/tea"
)

var (
	ErrNoAddr   = errors.New("sdict: server address required")
	ErrReadOnly = session.ErrReadOnly
)

// Config describes one dictionary server.
type Config struct {
	Addr string
	// Password protects queries and every server reply.
	Password string
	// SetPassword protects modifications. Empty makes the client read-only.
	SetPassword string
	// CacheDir keeps the last downloaded dictionary. Empty disables caching.
	CacheDir string
	Timeout  time.Duration
	Logger   *zerolog.Logger
}

// Client manages a local copy of a remote dictionary.
//
// Every remote operation uses its own connection. Client is safe for
// concurrent use; remote operations are serialized.
type Client struct {
	addr    string
	read    *tea.Cipher
	write   *tea.Cipher
	timeout time.Duration
	cache   *cache.Cache
	dict    *dict.Dict
	log     zerolog.Logger
	mu      sync.Mutex
}

// NewClient validates cfg and returns a client with an empty dictionary.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Addr == "" {
		return nil, ErrNoAddr
	}
	c := &Client{
		addr:    cfg.Addr,
		read:    tea.New([]byte(cfg.Password)),
		timeout: cfg.Timeout,
		dict:    dict.New(),
		log:     zerolog.Nop(),
	}
	if cfg.Logger != nil {
		c.log = *cfg.Logger
	}
	if cfg.SetPassword != "" {
		c.write = tea.New([]byte(cfg.SetPassword))
	}
	if cfg.CacheDir != "" {
		cc, err := cache.Open(cfg.CacheDir, []byte(cfg.Password))
		if err != nil {
			return nil, err
		}
		c.cache = cc
	}
	return c, nil
}

// Writable reports whether a set password is configured.
func (c *Client) Writable() bool { return c.write != nil }

// do runs fn on a fresh session and closes it. A failed close fails the
// operation.
func (c *Client) do(ctx context.Context, fn func(*session.Session) error) error {
	s, err := session.Dial(ctx, c.addr, session.Config{
		Read:    c.read,
		Write:   c.write,
		Timeout: c.timeout,
		Logger:  &c.log,
	})
	if err != nil {
		return err
	}
	err = fn(s)
	return errors.Join(err, s.Close())
}

// Fetch refreshes the local dictionary.
//
// When the cache holds a snapshot the server still agrees with, the snapshot
// is used and the dictionary is not downloaded. Keys that are not valid
// UTF-8 and repeated keys are dropped locally and, with a set password,
// deleted on the server.
func (c *Client) Fetch(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, cached := c.cached(ctx)
	if !cached {
		err := c.do(ctx, func(s *session.Session) error {
			var err error
			raw, err = s.Cat()
			return err
		})
		if err != nil {
			return fmt.Errorf("sdict: fetch: %w", err)
		}
		if c.cache != nil {
			if err := c.cache.Save(raw); err != nil {
				c.log.Warn().Err(err).Msg("cache save failed")
			}
		}
	}

	recs, err := record.Decode(raw)
	if err != nil {
		if cached {
			if cerr := c.cache.Clear(); cerr != nil {
				c.log.Warn().Err(cerr).Msg("cache clear failed")
			}
		}
		return fmt.Errorf("sdict: decode dictionary: %w", err)
	}
	purge := c.dict.Load(recs)
	c.log.Info().Int("keys", c.dict.Len()).Int("purged", len(purge)).Bool("cached", cached).Msg("dictionary loaded")

	if c.write == nil {
		return nil
	}
	for _, key := range purge {
		err := c.do(ctx, func(s *session.Session) error { return s.Del(key) })
		if err != nil {
			c.log.Warn().Hex("key", key).Err(err).Msg("purge failed")
		}
	}
	return nil
}

// cached returns the cached snapshot when the server reports no change.
func (c *Client) cached(ctx context.Context) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	sum, err := c.cache.Digest()
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			c.log.Warn().Err(err).Msg("cache digest unreadable")
		}
		return nil, false
	}
	var changed bool
	err = c.do(ctx, func(s *session.Session) error {
		var err error
		changed, err = s.Changed(sum)
		return err
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("digest check failed")
		return nil, false
	}
	if changed {
		return nil, false
	}
	raw, err := c.cache.Load()
	if err != nil {
		c.log.Warn().Err(err).Msg("cache load failed")
		return nil, false
	}
	return raw, true
}

// Get returns the locally known value of key.
func (c *Client) Get(key string) (string, bool) { return c.dict.Get(key) }

// Lookup asks the server for the current value of key without touching the
// local dictionary.
func (c *Client) Lookup(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var v []byte
	err := c.do(ctx, func(s *session.Session) error {
		var err error
		v, err = s.Get([]byte(key))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("sdict: get %q: %w", key, err)
	}
	return string(v), nil
}

// Set stores value under key on the server, removing any existing value
// first, and records it locally.
func (c *Client) Set(ctx context.Context, key, value string) error {
	if c.write == nil {
		return ErrReadOnly
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.dict.Get(key); ok {
		if err := c.do(ctx, func(s *session.Session) error { return s.Del([]byte(key)) }); err != nil {
			return fmt.Errorf("sdict: set %q: remove old value: %w", key, err)
		}
		c.dict.Delete(key)
	}
	err := c.do(ctx, func(s *session.Session) error { return s.Set([]byte(key), []byte(value)) })
	if err != nil {
		return fmt.Errorf("sdict: set %q: %w", key, err)
	}
	c.dict.Put(key, value)
	return nil
}

// Del removes key on the server and locally.
func (c *Client) Del(ctx context.Context, key string) error {
	if c.write == nil {
		return ErrReadOnly
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.do(ctx, func(s *session.Session) error { return s.Del([]byte(key)) }); err != nil {
		return fmt.Errorf("sdict: del %q: %w", key, err)
	}
	c.dict.Delete(key)
	return nil
}

// Len returns the number of locally known keys.
func (c *Client) Len() int { return c.dict.Len() }

// Keys returns the locally known keys in sorted order.
func (c *Client) Keys() []string { return c.dict.Keys() }

// Latest returns up to n keys, most recently added first.
func (c *Client) Latest(n int) []string { return c.dict.Latest(n) }

// Filter returns the entries whose value satisfies match.
func (c *Client) Filter(match func(value string) bool) map[string]string {
	return c.dict.Filter(match)
}
