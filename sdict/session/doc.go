// Package session runs one sdict conversation over a stream connection.
//
// A conversation starts at sequence number 0. Every request packet consumes
// one sequence number and every reply consumes the next, so both ends must
// see the same packets in the same order. A Session is not safe for
// concurrent use.
//
// Retries and reconnection are left to the caller.
package session
