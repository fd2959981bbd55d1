// Package dict holds a downloaded dictionary in memory.
package dict

import (
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/TheusHen/sdict/sdict/record"
)

// Dict maps keys to values and remembers the order keys arrived in.
// It is safe for concurrent use.
type Dict struct {
	mu      sync.RWMutex
	entries map[string]string
	order   []string
}

// New returns an empty dictionary.
func New() *Dict {
	return &Dict{entries: make(map[string]string)}
}

// Load replaces the contents with records and returns the raw keys the
// server should drop: keys that are not valid UTF-8, and repeats of a key
// already seen. The first occurrence of a key wins.
func (d *Dict) Load(records []record.Record) (purge [][]byte) {
	entries := make(map[string]string, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		if !utf8.Valid(r.Key) {
			purge = append(purge, r.Key)
			continue
		}
		k := string(r.Key)
		if _, dup := entries[k]; dup {
			purge = append(purge, r.Key)
			continue
		}
		entries[k] = string(r.Value)
		order = append(order, k)
	}

	d.mu.Lock()
	d.entries, d.order = entries, order
	d.mu.Unlock()
	return purge
}

// Get returns the value stored under key.
func (d *Dict) Get(key string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.entries[key]
	return v, ok
}

// Put stores value under key. A new key becomes the most recent one.
func (d *Dict) Put(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[key]; !ok {
		d.order = append(d.order, key)
	}
	d.entries[key] = value
}

// Delete removes key and reports whether it was present.
func (d *Dict) Delete(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[key]; !ok {
		return false
	}
	delete(d.entries, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of keys.
func (d *Dict) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Keys returns all keys in sorted order.
func (d *Dict) Keys() []string {
	d.mu.RLock()
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	d.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Latest returns up to n keys, most recently added first. n <= 0 returns all.
func (d *Dict) Latest(n int) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n <= 0 || n > len(d.order) {
		n = len(d.order)
	}
	out := make([]string, 0, n)
	for i := len(d.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, d.order[i])
	}
	return out
}

// Filter returns the entries whose value satisfies match.
func (d *Dict) Filter(match func(value string) bool) map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string)
	for k, v := range d.entries {
		if match(v) {
			out[k] = v
		}
	}
	return out
}
