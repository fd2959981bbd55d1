// Package record decodes the compact key/value buffers served by sdict servers.
//
// Lengths are varints in the "simple length-length encoding": seven value bits
// per byte in little-endian group order, the high bit meaning another byte
// follows, at most four bytes. Every length is bounds-checked against the
// remaining buffer.
package record
