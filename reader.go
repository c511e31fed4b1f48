package sstable

import (
	"io"
	"log/slog"
	"os"
)

// readerState is the three-state machine every SSTable reader drives:
// calling ReadColumn while in stateReadColumnData implies "skip the
// pending payload"; calling ReadRow while not in stateReadRow is a caller
// bug.
type readerState int

const (
	stateReadRow readerState = iota
	stateReadColumn
	stateReadColumnData
)

// Reader streams one SSTable file as a sequence of partitions, rows and
// columns, advancing the state machine described in §3/§9 of the
// specification this package implements. The two on-disk format variants
// (pre-"ma" and "ma"+) share this contract; reader_old.go and reader_new.go
// provide the two implementations.
type Reader interface {
	// InitAt opens auxiliary files and positions the reader at the first
	// partition >= (firstToken, firstKey). A nil firstKey means "from the
	// beginning". Returns true if a valid partition was found.
	InitAt(firstToken Token, firstKey []byte) (bool, error)

	// Open acquires the data buffer, seeking to the offset recorded
	// during InitAt.
	Open() error

	// Close releases the data buffer.
	Close() error

	// ReadRow advances to the start of the next partition, populating
	// NextKey/NextToken/MarkedForDeletion. Returns eof=true at end of
	// file.
	ReadRow() (eof bool, err error)

	// ReadColumn advances to the next cell in the current partition,
	// populating Current(). Returns false when the partition's columns
	// are exhausted (parking the state machine at stateReadRow).
	ReadColumn() (more bool, err error)

	// ReadColumnData consumes the pending cell's value payload. If
	// consume is false the payload is skipped rather than materialized.
	ReadColumnData(consume bool) error

	// Duplicate produces an independent reader over the same file at the
	// same logical position (its own file handle, its own decode state).
	Duplicate() (Reader, error)

	NextKey() []byte
	NextToken() Token
	MarkedForDeletion() int64
	Current() *ColumnInfo
	State() readerState

	Partitioner() Partitioner
	Config() *TableConfig
}

// ReaderOptions configures checksum verification and diagnostics. Each
// reader receives its options through NewReader (or NewMergeIterator); the
// table opener does not construct readers and does not pass its own
// OpenerOptions.Reader on to them.
type ReaderOptions struct {
	VerifyChecksums bool
	Logger          *slog.Logger
}

func (o *ReaderOptions) norm() *ReaderOptions {
	var oo ReaderOptions
	if o != nil {
		oo = *o
	} else {
		oo.VerifyChecksums = true
	}
	oo.Logger = diagLogger(oo.Logger)
	return &oo
}

// NewReader constructs a Reader for cfg, dispatching to the pre-modern or
// modern row-format implementation based on cfg.Version.
func NewReader(cfg *TableConfig, p Partitioner, opts *ReaderOptions) Reader {
	o := opts.norm()
	base := baseReader{cfg: cfg, partitioner: p, opts: o}
	if cfg.Version.hasModernRowFormat() {
		return &newSSTableReader{baseReader: base}
	}
	return &oldSSTableReader{baseReader: base}
}

// --------------------------------------------------------------------

// baseReader holds the state and file-handling logic common to both
// format variants.
type baseReader struct {
	cfg         *TableConfig
	partitioner Partitioner
	opts        *ReaderOptions

	data        ByteReader
	startOffset int64

	state     readerState
	nextKey   []byte
	nextToken Token

	markedForDeletion int64
	current           ColumnInfo
}

func (r *baseReader) NextKey() []byte               { return r.nextKey }
func (r *baseReader) NextToken() Token               { return r.nextToken }
func (r *baseReader) MarkedForDeletion() int64       { return r.markedForDeletion }
func (r *baseReader) Current() *ColumnInfo           { return &r.current }
func (r *baseReader) State() readerState             { return r.state }
func (r *baseReader) Partitioner() Partitioner       { return r.partitioner }
func (r *baseReader) Config() *TableConfig           { return r.cfg }

// locateStartOffset resolves the data-file offset to begin reading at for
// the given target key, using the Summary sidecar to binary-search to an
// approximate position and the Index sidecar to linearly refine it (§4.D
// Positioning). A nil/empty target resolves to offset 0.
func (r *baseReader) locateStartOffset(target []byte) (int64, bool, error) {
	if len(target) == 0 {
		return 0, true, nil
	}

	sf, err := os.Open(r.cfg.SummaryPath)
	if err != nil {
		return 0, false, setupError(r.opts.Logger, r.cfg.SummaryPath, err)
	}
	defer sf.Close()
	sbuf := NewUncompressedBuffer(sf)
	entries, err := readSummary(sbuf, r.cfg.Version)
	if err != nil {
		return 0, false, setupError(r.opts.Logger, r.cfg.SummaryPath, err)
	}

	approxPos, _ := searchSummary(entries, target, r.partitioner)

	idxFile, err := os.Open(r.cfg.IndexPath)
	if err != nil {
		return 0, false, setupError(r.opts.Logger, r.cfg.IndexPath, err)
	}
	defer idxFile.Close()
	ibuf := NewUncompressedBuffer(idxFile)

	entry, found, err := scanIndexForKey(ibuf, r.cfg.Version, approxPos, target, r.partitioner)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}
	return entry.Position, true, nil
}

// openDataBuffer opens the Data.db file, wrapping it in a CompressedBuffer
// when a CompressionInfo.db sidecar exists, otherwise a plain
// UncompressedBuffer.
func (r *baseReader) openDataBuffer() (ByteReader, error) {
	f, err := os.Open(r.cfg.DataPath)
	if err != nil {
		return nil, setupError(r.opts.Logger, r.cfg.DataPath, err)
	}

	if !r.cfg.Compressed {
		buf := NewUncompressedBuffer(f)
		if err := buf.Seek(r.startOffset); err != nil {
			return nil, err
		}
		return buf, nil
	}

	cf, err := os.Open(r.cfg.CompressionInfoPath)
	if err != nil {
		f.Close()
		return nil, setupError(r.opts.Logger, r.cfg.CompressionInfoPath, err)
	}
	defer cf.Close()
	cbuf := NewUncompressedBuffer(cf)
	info, err := parseCompressionInfo(cbuf)
	if err != nil {
		f.Close()
		return nil, setupError(r.opts.Logger, r.cfg.CompressionInfoPath, err)
	}

	ck := checksumCRC32
	if r.cfg.Version.adlerOverCompressed() {
		ck = checksumAdler32
	}

	buf := NewCompressedBuffer(f, info, ck, r.opts.VerifyChecksums, r.cfg.DataPath, r.opts.Logger)
	if err := buf.Seek(r.startOffset); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *baseReader) open() error {
	data, err := r.openDataBuffer()
	if err != nil {
		return err
	}
	r.data = data
	r.state = stateReadRow
	return nil
}

func (r *baseReader) close() error {
	if r.data == nil {
		return nil
	}
	err := r.data.Close()
	r.data = nil
	return err
}

// isStructuralEOF reports whether err represents an unexpected short read
// mid-record (§7 category 2): end-of-stream for this reader only, not a
// process-fatal condition.
func isStructuralEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
