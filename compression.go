package sstable

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"hash/adler32"
	"hash/crc32"
	"io"
	"log/slog"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// compressorKind identifies the chunk codec named in a CompressionInfo.db
// sidecar.
type compressorKind int

const (
	compressorSnappy compressorKind = iota
	compressorLZ4
	compressorDeflate
)

func compressorByName(name string) (compressorKind, bool) {
	switch name {
	case "Snappy", "SnappyCompressor", "org.apache.cassandra.io.compress.SnappyCompressor":
		return compressorSnappy, true
	case "LZ4", "LZ4Compressor", "org.apache.cassandra.io.compress.LZ4Compressor":
		return compressorLZ4, true
	case "Deflate", "DeflateCompressor", "org.apache.cassandra.io.compress.DeflateCompressor":
		return compressorDeflate, true
	default:
		return 0, false
	}
}

// checksumKind identifies which checksum algorithm validates each
// compressed chunk, and whether it covers compressed or uncompressed bytes
// (version-gated, see Version.adlerOverCompressed).
type checksumKind int

const (
	checksumCRC32 checksumKind = iota
	checksumAdler32
)

func newChecksum(kind checksumKind) uint32Hash {
	switch kind {
	case checksumAdler32:
		return adler32.New()
	default:
		return crc32.NewIEEE()
	}
}

// uint32Hash is the subset of hash.Hash32 the checksum verifier needs.
type uint32Hash interface {
	io.Writer
	Sum32() uint32
}

// CompressionInfo describes the chunk layout of a compressed Data.db file,
// parsed from its sidecar -CompressionInfo.db.
type CompressionInfo struct {
	Compressor       compressorKind
	ChunkLength      int32 // uncompressed size of each chunk
	UncompressedSize int64 // total logical (uncompressed) length
	ChunkOffsets     []int64
}

// parseCompressionInfo decodes a -CompressionInfo.db sidecar:
//
//	string compressor name (u16-len)
//	int32 option count, then that many (string key, string value) pairs (ignored)
//	int32 chunk length
//	int64 total uncompressed length
//	int32 chunk count
//	int64[chunkCount+1] physical chunk offsets (last entry is EOF marker)
func parseCompressionInfo(r ByteReader) (*CompressionInfo, error) {
	nameBytes, err := readShortBytes(r)
	if err != nil {
		return nil, err
	}
	kind, ok := compressorByName(string(nameBytes))
	if !ok {
		return nil, errBadCompression
	}

	optCount, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	for i := int32(0); i < optCount; i++ {
		if _, err := readShortBytes(r); err != nil {
			return nil, err
		}
		if _, err := readShortBytes(r); err != nil {
			return nil, err
		}
	}

	chunkLen, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	totalLen, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	chunkCount, err := readInt32(r)
	if err != nil {
		return nil, err
	}

	offsets := make([]int64, chunkCount+1)
	for i := range offsets {
		v, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		offsets[i] = v
	}

	return &CompressionInfo{
		Compressor:       kind,
		ChunkLength:      chunkLen,
		UncompressedSize: totalLen,
		ChunkOffsets:     offsets,
	}, nil
}

// chunkIndex returns the index of the chunk holding logical offset pos.
func (ci *CompressionInfo) chunkIndex(pos int64) int {
	return int(pos / int64(ci.ChunkLength))
}

func (ci *CompressionInfo) numChunks() int { return len(ci.ChunkOffsets) - 1 }

// physicalRange returns the [start, end) physical byte range (compressed
// payload plus trailing 4-byte checksum) of chunk i.
func (ci *CompressionInfo) physicalRange(i int) (start, end int64) {
	return ci.ChunkOffsets[i], ci.ChunkOffsets[i+1]
}

// decompressChunk decompresses a single physical chunk payload (compressed
// bytes, trailing checksum already stripped) according to the codec.
func decompressChunk(kind compressorKind, compressed []byte, uncompressedLen int32) ([]byte, error) {
	switch kind {
	case compressorSnappy:
		sz, err := snappy.DecodedLen(compressed)
		if err != nil {
			return nil, err
		}
		out := make([]byte, sz)
		return snappy.Decode(out, compressed)

	case compressorLZ4:
		// LZ4 chunks carry a 4-byte little-endian uncompressed-length
		// prefix ahead of the LZ4 block payload.
		if len(compressed) < 4 {
			return nil, io.ErrUnexpectedEOF
		}
		sz := binary.LittleEndian.Uint32(compressed[:4])
		out := make([]byte, sz)
		n, err := lz4.UncompressBlock(compressed[4:], out)
		if err != nil {
			return nil, err
		}
		return out[:n], nil

	case compressorDeflate:
		fr := flate.NewReader(bytes.NewReader(compressed))
		defer fr.Close()
		return io.ReadAll(fr)

	default:
		return nil, errBadCompression
	}
}

// --------------------------------------------------------------------

// CompressedBuffer addresses a logical uncompressed stream over a Data.db
// file whose physical bytes are stored as fixed-size compressed chunks,
// each followed by a 4-byte big-endian checksum.
type CompressedBuffer struct {
	phys   io.ReaderAt
	info   *CompressionInfo
	ckKind checksumKind
	verify bool
	file   string
	logger *slog.Logger

	logicalPos int64
	decoded    []byte // decoded bytes currently buffered
	decodedAt  int64  // logical offset of decoded[0]
	eof        bool
	closed     bool
}

// NewCompressedBuffer constructs a CompressedBuffer over phys (typically an
// *os.File opened on the Data.db file), using the chunk layout parsed from
// the CompressionInfo sidecar.
func NewCompressedBuffer(phys io.ReaderAt, info *CompressionInfo, ck checksumKind, verify bool, file string, logger *slog.Logger) *CompressedBuffer {
	return &CompressedBuffer{
		phys:   phys,
		info:   info,
		ckKind: ck,
		verify: verify,
		file:   file,
		logger: diagLogger(logger),
	}
}

func (b *CompressedBuffer) Good() bool  { return !b.closed }
func (b *CompressedBuffer) IsEOF() bool { return b.eof }

func (b *CompressedBuffer) Seek(pos int64) error {
	if b.closed {
		return errClosed
	}
	b.logicalPos = pos
	b.decoded = nil
	b.eof = false
	return nil
}

func (b *CompressedBuffer) SkipBytes(n int) error {
	if b.closed {
		return errClosed
	}
	b.logicalPos += int64(n)
	if b.decoded != nil {
		rel := b.logicalPos - b.decodedAt
		if rel < 0 || rel > int64(len(b.decoded)) {
			b.decoded = nil
		}
	}
	return nil
}

func (b *CompressedBuffer) Close() error {
	b.closed = true
	if c, ok := b.phys.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadBytes returns the next n logical (uncompressed) bytes, decompressing
// and checksum-validating whatever physical chunks overlap the requested
// range. The returned slice is borrowed from internal state and is valid
// only until the next ReadBytes/Seek call.
func (b *CompressedBuffer) ReadBytes(n int) ([]byte, error) {
	if b.closed {
		return nil, errClosed
	}
	if b.logicalPos+int64(n) > b.info.UncompressedSize {
		b.eof = true
		return nil, io.EOF
	}

	// Fast path: already-decoded buffer covers the request.
	if b.decoded != nil {
		rel := b.logicalPos - b.decodedAt
		if rel >= 0 && rel+int64(n) <= int64(len(b.decoded)) {
			out := b.decoded[rel : rel+int64(n)]
			b.logicalPos += int64(n)
			return out, nil
		}
	}

	firstChunk := b.info.chunkIndex(b.logicalPos)
	lastChunk := b.info.chunkIndex(b.logicalPos + int64(n) - 1)

	chunkStartLogical := int64(firstChunk) * int64(b.info.ChunkLength)
	physStart, _ := b.info.physicalRange(firstChunk)
	_, physEnd := b.info.physicalRange(lastChunk)

	raw := make([]byte, physEnd-physStart)
	if _, err := b.phys.ReadAt(raw, physStart); err != nil {
		return nil, err
	}

	var out []byte
	for c := firstChunk; c <= lastChunk; c++ {
		cs, ce := b.info.physicalRange(c)
		chunk := raw[cs-physStart : ce-physStart]
		if len(chunk) < 4 {
			return nil, io.ErrUnexpectedEOF
		}
		payload := chunk[:len(chunk)-4]
		wantSum := binary.BigEndian.Uint32(chunk[len(chunk)-4:])

		uncLen := b.info.ChunkLength
		if c == b.info.numChunks()-1 {
			if rem := b.info.UncompressedSize % int64(b.info.ChunkLength); rem != 0 {
				uncLen = int32(rem)
			}
		}

		if b.verify && b.ckKind == checksumAdler32 {
			if !checksumOK(b.ckKind, payload, wantSum) {
				corrupt(b.logger, b.file, chunkStartLogical, errBadChecksum)
			}
		}

		decoded, err := decompressChunk(b.info.Compressor, payload, uncLen)
		if err != nil {
			return nil, err
		}

		if b.verify && b.ckKind == checksumCRC32 {
			if !checksumOK(b.ckKind, decoded, wantSum) {
				corrupt(b.logger, b.file, chunkStartLogical, errBadChecksum)
			}
		}

		out = append(out, decoded...)
	}

	b.decoded = out
	b.decodedAt = chunkStartLogical

	rel := b.logicalPos - b.decodedAt
	if rel < 0 || rel+int64(n) > int64(len(out)) {
		return nil, io.ErrUnexpectedEOF
	}
	result := out[rel : rel+int64(n)]
	b.logicalPos += int64(n)
	return result, nil
}

// checksumOK validates payload against wantSum using the seed Cassandra
// uses: zero for CRC-32, adler32(0, NULL, 0) for Adler-32 (which is simply
// the package's zero-length initial state in both cases).
func checksumOK(kind checksumKind, payload []byte, wantSum uint32) bool {
	h := newChecksum(kind)
	_, _ = h.Write(payload)
	return h.Sum32() == wantSum
}
