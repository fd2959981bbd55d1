package record

import (
	"errors"
	"fmt"
)

const (
	// MaxVarintLen is the most bytes one varint may occupy.
	MaxVarintLen = 4
	// MaxVarint is the largest value a varint can carry.
	MaxVarint = 1<<(7*MaxVarintLen) - 1
)

var (
	ErrTruncated      = errors.New("record: varint runs past end of buffer")
	ErrVarintOverflow = errors.New("record: value exceeds 28 bits")
)

// Uvarint decodes a varint from the start of buf and returns the value and
// the number of bytes consumed. Decoding stops at the first byte without the
// continuation bit or after MaxVarintLen bytes.
func Uvarint(buf []byte) (uint32, int, error) {
	var v uint32
	for i := 0; i < MaxVarintLen; i++ {
		if i >= len(buf) {
			return 0, 0, ErrTruncated
		}
		b := buf[i]
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return v, MaxVarintLen, nil
}

// AppendUvarint appends the varint encoding of v to dst.
func AppendUvarint(dst []byte, v uint32) ([]byte, error) {
	if v > MaxVarint {
		return dst, fmt.Errorf("%w: %d", ErrVarintOverflow, v)
	}
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v)), nil
}

// UvarintLen returns the encoded size of v.
func UvarintLen(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
