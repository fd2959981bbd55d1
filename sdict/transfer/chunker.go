package transfer

import (
	"bytes"
	"sort"

	"github.com/TheusHen/sdict/sdict/protocol"
)

// DefaultChunkSize is the largest plaintext one packet can carry.
const DefaultChunkSize = protocol.MaxPayload

// Chunker splits data into fixed-size chunks.
type Chunker struct {
	chunkSize int
}

// NewChunker creates a chunker. Sizes outside (0, DefaultChunkSize] fall back
// to DefaultChunkSize.
func NewChunker(chunkSize int) *Chunker {
	if chunkSize <= 0 || chunkSize > DefaultChunkSize {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{chunkSize: chunkSize}
}

// ChunkSize returns the configured chunk size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Chunk is one piece of a split payload.
type Chunk struct {
	Index int
	Data  []byte
	Hash  [protocol.DigestSize]byte
}

// Last reports whether the chunk is the final one of n.
func (ch Chunk) Last(n int) bool { return ch.Index == n-1 }

// Split splits data into chunks. Empty data yields a single empty chunk so a
// command always goes out as at least one packet.
func (c *Chunker) Split(data []byte) []Chunk {
	if len(data) == 0 {
		return []Chunk{{Index: 0, Data: []byte{}, Hash: protocol.Digest(nil)}}
	}
	chunks := make([]Chunk, 0, (len(data)+c.chunkSize-1)/c.chunkSize)
	for i := 0; i < len(data); i += c.chunkSize {
		end := i + c.chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[i:end]
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Data:  chunk,
			Hash:  protocol.Digest(chunk),
		})
	}
	return chunks
}

// Reassemble combines chunks back into the original data.
func Reassemble(chunks []Chunk) []byte {
	sorted := make([]Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var buf bytes.Buffer
	for _, c := range sorted {
		buf.Write(c.Data)
	}
	return buf.Bytes()
}
