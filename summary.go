package sstable

import (
	"encoding/binary"
	"sort"
)

// summaryEntry is one decoded (key, Index.db position) record from the
// -Summary.db sparse index.
type summaryEntry struct {
	Key []byte
	Pos int64
}

// readSummary loads a -Summary.db sidecar in full: skip 4 bytes, read
// size/mem_size, skip 8 more bytes in formats >= KA, then read mem_size
// bytes verbatim as an array of native-endian 32-bit offsets addressing
// variable-length (key_bytes, int64 position) records.
func readSummary(r ByteReader, v Version) ([]summaryEntry, error) {
	if err := r.SkipBytes(4); err != nil {
		return nil, err
	}
	sizeBuf, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	size := int(binary.BigEndian.Uint32(sizeBuf))

	memSizeBuf, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	memSize := int(binary.BigEndian.Uint32(memSizeBuf))

	if v >= VersionKA {
		if err := r.SkipBytes(8); err != nil {
			return nil, err
		}
	}

	raw, err := r.ReadBytes(memSize)
	if err != nil {
		return nil, err
	}
	body := make([]byte, len(raw))
	copy(body, raw)

	if size <= 0 {
		return nil, nil
	}

	offsets := make([]int, size)
	for i := 0; i < size; i++ {
		offsets[i] = int(binary.LittleEndian.Uint32(body[i*4 : i*4+4]))
	}

	entries := make([]summaryEntry, 0, size)
	for i, off := range offsets {
		end := len(body)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		rec := body[off:end]
		if len(rec) < 8 {
			continue
		}
		keyLen := len(rec) - 8
		key := make([]byte, keyLen)
		copy(key, rec[:keyLen])
		pos := int64(binary.BigEndian.Uint64(rec[keyLen:]))
		entries = append(entries, summaryEntry{Key: key, Pos: pos})
	}
	return entries, nil
}

// searchSummary binary-searches entries for the greatest record whose key
// is <= target under p, returning its Index.db position, or (0, false) if
// every entry's key is greater than target.
func searchSummary(entries []summaryEntry, target []byte, p Partitioner) (int64, bool) {
	targetTok := p.AssignToken(target)
	i := sort.Search(len(entries), func(i int) bool {
		return p.Compare(p.AssignToken(entries[i].Key), entries[i].Key, targetTok, target) > 0
	})
	if i == 0 {
		return 0, false
	}
	return entries[i-1].Pos, true
}

// indexEntry is one decoded record from the -Index.db sidecar.
type indexEntry struct {
	Key               []byte
	Position          int64
	PromotedIndexSize int64
}

// scanIndexForKey linearly scans the -Index.db stream, a sequence of
// (length-prefixed key, position, promoted-index-size) triples starting at
// startPos, skipping each promoted index, until a key >= target is found
// under p. Returns the found entry's Position as the start offset, or
// ok=false at EOF.
func scanIndexForKey(r ByteReader, v Version, startPos int64, target []byte, p Partitioner) (indexEntry, bool, error) {
	if err := r.Seek(startPos); err != nil {
		return indexEntry{}, false, err
	}
	targetTok := p.AssignToken(target)
	for {
		key, err := readShortBytes(r)
		if err != nil {
			return indexEntry{}, false, nil // EOF mid-scan: no further entries
		}

		var pos, promotedSize int64
		if v.indexUsesVarintOffsets() {
			uPos, err := readUnsignedVInt(r)
			if err != nil {
				return indexEntry{}, false, nil
			}
			uSize, err := readUnsignedVInt(r)
			if err != nil {
				return indexEntry{}, false, nil
			}
			pos, promotedSize = int64(uPos), int64(uSize)
		} else {
			p64, err := readInt64(r)
			if err != nil {
				return indexEntry{}, false, nil
			}
			pos = p64
			p32, err := readInt32(r)
			if err != nil {
				return indexEntry{}, false, nil
			}
			promotedSize = int64(p32)
		}

		if err := r.SkipBytes(int(promotedSize)); err != nil {
			return indexEntry{}, false, nil
		}

		if p.Compare(p.AssignToken(key), key, targetTok, target) >= 0 {
			return indexEntry{Key: key, Position: pos, PromotedIndexSize: promotedSize}, true, nil
		}
	}
}
