// Package transfer moves payloads that do not fit a single packet.
//
//   - Chunker splits a payload into packet-sized pieces, each with its digest
//   - LZ4 compression for stored snapshots
package transfer
