// Package tea implements the modified TEA block cipher used by the sdict wire protocol.
//
// The variant differs from textbook TEA in several ways that must be reproduced
// bit-for-bit to interoperate with existing servers:
//   - 16 rounds driven by a fixed sum table instead of a running delta
//   - little-endian block and key layout
//   - a dual-IV chaining mode (the previous block's pre-cipher value is folded
//     into the next block's output, unlike plain CBC)
//   - random-filler padding whose length is encoded in the first plaintext byte
//   - the top byte of key word 3 carries a per-message sequence number
//
// The sequence byte is applied to a per-call copy of the key, so a Cipher is
// safe for concurrent use.
package tea
