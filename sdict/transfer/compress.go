package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var (
	ErrCompressionFailed   = errors.New("transfer: compression failed")
	ErrDecompressionFailed = errors.New("transfer: decompression failed")
	ErrTooLarge            = errors.New("transfer: decompressed data exceeds limit")
)

// CompressionLevel selects the LZ4 level.
type CompressionLevel int

const (
	CompressionFast CompressionLevel = iota
	CompressionDefault
	CompressionBest
)

func (l CompressionLevel) lz4() lz4.CompressionLevel {
	switch l {
	case CompressionFast:
		return lz4.Fast
	case CompressionBest:
		return lz4.Level9
	default:
		return lz4.Level4
	}
}

var (
	writers = sync.Pool{New: func() interface{} { return lz4.NewWriter(nil) }}
	readers = sync.Pool{New: func() interface{} { return lz4.NewReader(nil) }}
)

// Compress writes data as one LZ4 frame with a content checksum and the
// original size in the frame header.
func Compress(data []byte, level CompressionLevel) ([]byte, error) {
	w := writers.Get().(*lz4.Writer)
	defer writers.Put(w)

	var buf bytes.Buffer
	w.Reset(&buf)
	err := w.Apply(
		lz4.CompressionLevelOption(level.lz4()),
		lz4.ChecksumOption(true),
		lz4.SizeOption(uint64(len(data))),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	return buf.Bytes(), nil
}

// Decompress decodes a frame produced by Compress. Output longer than limit
// bytes is rejected with ErrTooLarge.
func Decompress(data []byte, limit int) ([]byte, error) {
	r := readers.Get().(*lz4.Reader)
	defer readers.Put(r)
	r.Reset(bytes.NewReader(data))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, int64(limit)+1)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	if buf.Len() > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return buf.Bytes(), nil
}
