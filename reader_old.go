package sstable

import "encoding/binary"

// oldSSTableReader implements Reader for the pre-modern ("pre-ma") row and
// column format: no embedded schema, composite clustering paths stripped
// to their final element, and a column-count or empty-name terminator
// depending on version (§4.D "Pre-modern (OldSStable) row/column parsing").
type oldSSTableReader struct {
	baseReader

	remainingColumns int32 // pre-JA only: decrementing terminator
}

func (r *oldSSTableReader) InitAt(firstToken Token, firstKey []byte) (bool, error) {
	off, found, err := r.locateStartOffset(firstKey)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	r.startOffset = off
	return true, nil
}

func (r *oldSSTableReader) Open() error  { return r.open() }
func (r *oldSSTableReader) Close() error { return r.close() }

func (r *oldSSTableReader) Duplicate() (Reader, error) {
	dup := &oldSSTableReader{baseReader: r.baseReader, remainingColumns: r.remainingColumns}
	dup.data = nil
	if r.data != nil {
		if err := dup.open(); err != nil {
			return nil, err
		}
		if err := dup.data.Seek(r.startOffset); err != nil {
			return nil, err
		}
	}
	return dup, nil
}

func (r *oldSSTableReader) ReadRow() (bool, error) {
	if r.state != stateReadRow {
		panic("sstable: ReadRow called while not in stateReadRow")
	}

	key, err := readShortBytes(r.data)
	if err != nil {
		if isStructuralEOF(err) {
			return true, nil
		}
		return false, err
	}
	r.nextKey = key
	r.nextToken = r.partitioner.AssignToken(key)

	if err := r.data.SkipBytes(r.cfg.Version.rowPreambleSize()); err != nil {
		return false, err
	}
	if err := r.data.SkipBytes(4); err != nil { // local deletion time
		return false, err
	}
	mfd, err := readInt64(r.data)
	if err != nil {
		return false, err
	}
	r.markedForDeletion = mfd

	if r.cfg.Version.usesColumnCountTerminator() {
		cnt, err := readInt32(r.data)
		if err != nil {
			return false, err
		}
		r.remainingColumns = cnt
	}

	r.state = stateReadColumn
	return false, nil
}

func (r *oldSSTableReader) ReadColumn() (bool, error) {
	if r.state == stateReadColumnData {
		if err := r.ReadColumnData(false); err != nil {
			return false, err
		}
	}

	if r.cfg.Version.usesColumnCountTerminator() {
		if r.remainingColumns <= 0 {
			r.state = stateReadRow
			return false, nil
		}
		r.remainingColumns--
	}

	rawName, err := readShortBytes(r.data)
	if err != nil {
		return false, err
	}
	if !r.cfg.Version.usesColumnCountTerminator() && len(rawName) == 0 {
		r.state = stateReadRow
		return false, nil
	}

	name := stripCompositeName(rawName)
	r.current = ColumnInfo{Name: name}

	flags, err := r.data.ReadBytes(1)
	if err != nil {
		return false, err
	}
	f := flags[0]
	r.current.Deleted = f&flagDeletion != 0

	switch {
	case f&flagRangeTombstone != 0:
		end, err := readShortBytes(r.data)
		if err != nil {
			return false, err
		}
		if err := r.data.SkipBytes(4); err != nil {
			return false, err
		}
		ts, err := readInt64(r.data)
		if err != nil {
			return false, err
		}
		r.current.RangeTombstone = true
		r.current.RangeTombstoneEnd = end
		r.current.Timestamp = ts
		r.state = stateReadColumn
		return true, nil

	case f&flagCounter != 0:
		cts, err := readInt64(r.data)
		if err != nil {
			return false, err
		}
		ts, err := readInt64(r.data)
		if err != nil {
			return false, err
		}
		r.current.IsCounter = true
		r.current.CounterTimestamp = cts
		r.current.Timestamp = ts

	case f&flagExpiration != 0:
		ttl, err := readInt32(r.data)
		if err != nil {
			return false, err
		}
		exp, err := readInt32(r.data)
		if err != nil {
			return false, err
		}
		ts, err := readInt64(r.data)
		if err != nil {
			return false, err
		}
		r.current.Expiring = true
		r.current.TTLSeconds = uint32(ttl)
		r.current.ExpirationSeconds = uint32(exp)
		r.current.Timestamp = ts

	default:
		ts, err := readInt64(r.data)
		if err != nil {
			return false, err
		}
		r.current.Timestamp = ts
	}

	r.state = stateReadColumnData
	return true, nil
}

func (r *oldSSTableReader) ReadColumnData(consume bool) error {
	if r.state != stateReadColumnData {
		return nil
	}
	if consume {
		val, err := readShortBytesAsBlob(r.data)
		if err != nil {
			return err
		}
		r.current.Value = val
	} else {
		n, err := readInt32(r.data)
		if err != nil {
			return err
		}
		if err := r.data.SkipBytes(int(n)); err != nil {
			return err
		}
	}
	r.state = stateReadColumn
	return nil
}

// readShortBytesAsBlob reads a 32-bit-length-prefixed value blob, matching
// the legacy column value encoding (distinct from the 16-bit-prefixed
// short strings used for keys and names).
func readShortBytesAsBlob(r ByteReader) ([]byte, error) {
	return readBytes32(r)
}

// stripCompositeName strips a column name down to its final path element
// when it cleanly parses as a composite: a sequence of (u16 length, bytes,
// u8 separator) triples where the final triple's bytes consume the
// remainder of the buffer exactly. Names that don't parse this way
// (ordinary, non-composite names) are returned unchanged.
func stripCompositeName(raw []byte) []byte {
	pos := 0
	components := 0
	var last []byte
	for pos < len(raw) {
		if pos+2 > len(raw) {
			return raw
		}
		l := int(binary.BigEndian.Uint16(raw[pos : pos+2]))
		pos += 2
		if l < 0 || pos+l > len(raw) {
			return raw
		}
		last = raw[pos : pos+l]
		pos += l
		components++
		if pos == len(raw) {
			break
		}
		pos++ // separator byte
	}
	if components > 0 && last != nil {
		return last
	}
	return raw
}
