package sstable

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ByteReader is the shared contract for sequential typed reads over an
// uncompressed or chunk-compressed file, with checksum verification folded
// in for the compressed variant. read_bytes returns a slice borrowed from
// internal scratch: its contents are only valid until the next call to
// ReadBytes or Seek on the same reader.
type ByteReader interface {
	// ReadBytes returns the next n bytes, or io.EOF if fewer than n remain.
	ReadBytes(n int) ([]byte, error)

	// SkipBytes advances the logical position by n bytes without
	// materializing them.
	SkipBytes(n int) error

	// Seek repositions to an absolute logical offset.
	Seek(pos int64) error

	// IsEOF reports whether the reader has been exhausted.
	IsEOF() bool

	// Good reports whether the reader is usable (not closed, not in a
	// permanent error state).
	Good() bool

	// Close releases underlying resources.
	Close() error
}

// --------------------------------------------------------------------
// Typed decoders built on top of ReadBytes. Every function borrows its
// input from the reader's scratch and must not retain it past the next
// read or seek.

func readInt16(r ByteReader) (int16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func readInt32(r ByteReader) (int32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func readInt64(r ByteReader) (int64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func readUint32(r ByteReader) (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// readFloat32LE reinterprets 4 little-endian bytes as an IEEE-754 float.
func readFloat32LE(r ByteReader) (float32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// readFloat64LE reinterprets 8 little-endian bytes as an IEEE-754 double.
func readFloat64LE(r ByteReader) (float64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// readShortBytes reads a 16-bit-length-prefixed byte string and copies it,
// since the length prefix alone doesn't guarantee the payload survives
// past the next read.
func readShortBytes(r ByteReader) ([]byte, error) {
	n, err := readInt16(r)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("sstable: negative short-bytes length %d", n)
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// readBytes32 reads a 32-bit-length-prefixed blob and copies it.
func readBytes32(r ByteReader) ([]byte, error) {
	n, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("sstable: negative blob length %d", n)
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// readUnsignedVInt reads a Cassandra-style unsigned vint one byte at a
// time: the leading 1-bits of the first byte give the extra byte count.
func readUnsignedVInt(r ByteReader) (uint64, error) {
	first, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	extra := numberOfExtraBytes(first[0])
	if extra == 0 {
		return uint64(first[0]), nil
	}
	rest, err := r.ReadBytes(extra)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range rest {
		v = (v << 8) | uint64(b)
	}
	firstByteMask := uint64(0xff) >> uint(extra)
	v |= (uint64(first[0]) & firstByteMask) << uint(8*extra)
	return v, nil
}

// readSignedVInt reads a zigzag-encoded signed vint.
func readSignedVInt(r ByteReader) (int64, error) {
	u, err := readUnsignedVInt(r)
	if err != nil {
		return 0, err
	}
	return zigzagDecode(u), nil
}

// --------------------------------------------------------------------

// UncompressedBuffer wraps a sequential, seekable file handle with an
// internal growable scratch buffer.
type UncompressedBuffer struct {
	r      io.ReadSeeker
	scratch []byte
	eof    bool
	closed bool
}

// NewUncompressedBuffer wraps r for sequential typed reads.
func NewUncompressedBuffer(r io.ReadSeeker) *UncompressedBuffer {
	return &UncompressedBuffer{r: r}
}

func (b *UncompressedBuffer) ReadBytes(n int) ([]byte, error) {
	if b.closed {
		return nil, errClosed
	}
	if cap(b.scratch) < n {
		b.scratch = make([]byte, n)
	} else {
		b.scratch = b.scratch[:n]
	}
	if _, err := io.ReadFull(b.r, b.scratch); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			b.eof = true
			return nil, io.EOF
		}
		return nil, err
	}
	return b.scratch, nil
}

func (b *UncompressedBuffer) SkipBytes(n int) error {
	if b.closed {
		return errClosed
	}
	_, err := b.r.Seek(int64(n), io.SeekCurrent)
	return err
}

func (b *UncompressedBuffer) Seek(pos int64) error {
	if b.closed {
		return errClosed
	}
	b.eof = false
	_, err := b.r.Seek(pos, io.SeekStart)
	return err
}

func (b *UncompressedBuffer) IsEOF() bool { return b.eof }
func (b *UncompressedBuffer) Good() bool  { return !b.closed }

func (b *UncompressedBuffer) Close() error {
	b.closed = true
	if c, ok := b.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
