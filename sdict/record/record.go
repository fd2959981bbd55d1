package record

import (
	"errors"
	"fmt"
)

// Field type tags written by Encode. Decode skips type tags without checking
// them.
const (
	TypeKey   uint32 = 1
	TypeValue uint32 = 2
)

var ErrShortField = errors.New("record: declared length exceeds buffer")

// Record is one key/value entry of a dictionary buffer.
type Record struct {
	Key   []byte
	Value []byte
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) varint() (uint32, error) {
	v, n, err := Uvarint(r.buf[r.off:])
	if err != nil {
		return 0, fmt.Errorf("%w at offset %d", err, r.off)
	}
	r.off += n
	return v, nil
}

func (r *reader) skip() error {
	_, err := r.varint()
	return err
}

func (r *reader) field() ([]byte, error) {
	n, err := r.varint()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(len(r.buf)-r.off) {
		return nil, fmt.Errorf("%w: %d bytes at offset %d, %d left", ErrShortField, n, r.off, len(r.buf)-r.off)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:])
	r.off += int(n)
	return out, nil
}

// Decode parses every record in buf, in order of appearance:
//
//	[struct_len][type][key_len][key][type][value_len][value]
//
// struct_len and the type tags are read and discarded.
func Decode(buf []byte) ([]Record, error) {
	r := &reader{buf: buf}
	records := make([]Record, 0)
	for r.off < len(buf) {
		if err := r.skip(); err != nil {
			return nil, err
		}
		if err := r.skip(); err != nil {
			return nil, err
		}
		key, err := r.field()
		if err != nil {
			return nil, err
		}
		if err := r.skip(); err != nil {
			return nil, err
		}
		value, err := r.field()
		if err != nil {
			return nil, err
		}
		records = append(records, Record{Key: key, Value: value})
	}
	return records, nil
}

// Encode writes records in the layout Decode reads. struct_len covers the
// bytes of the record that follow it.
func Encode(records []Record) ([]byte, error) {
	var out []byte
	for _, rec := range records {
		if len(rec.Key) > MaxVarint || len(rec.Value) > MaxVarint {
			return nil, ErrVarintOverflow
		}
		body := make([]byte, 0, 4+UvarintLen(uint32(len(rec.Key)))+len(rec.Key)+UvarintLen(uint32(len(rec.Value)))+len(rec.Value))
		body, _ = AppendUvarint(body, TypeKey)
		body, _ = AppendUvarint(body, uint32(len(rec.Key)))
		body = append(body, rec.Key...)
		body, _ = AppendUvarint(body, TypeValue)
		body, _ = AppendUvarint(body, uint32(len(rec.Value)))
		body = append(body, rec.Value...)

		var err error
		if out, err = AppendUvarint(out, uint32(len(body))); err != nil {
			return nil, err
		}
		out = append(out, body...)
	}
	return out, nil
}
