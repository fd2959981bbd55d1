// Package crypto seals data that sdict keeps at rest.
//
// The wire protocol's TEA variant is not meant to protect stored data, so the
// snapshot cache uses standard primitives instead:
//   - AEAD encryption via ChaCha20-Poly1305 (RFC 8439)
//   - Key derivation via HKDF-SHA256 from the dictionary password
package crypto
