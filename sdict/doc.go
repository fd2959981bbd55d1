// Package sdict is a client for SimpleDict servers.
//
// A SimpleDict server keeps one small key/value dictionary and speaks a
// sequence-numbered packet protocol over TCP, encrypted with a modified TEA
// cipher. The subpackages implement the pieces: tea (cipher), protocol
// (packet framing), record (dictionary buffer format) and session (one
// conversation). Client ties them together with a local snapshot cache.
package sdict
