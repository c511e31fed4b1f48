package sstable

import "sort"

// mergeSource pairs one open Reader with the bookkeeping the merge
// iterator needs: whether its underlying file has been fully drained.
type mergeSource struct {
	reader Reader
	eof    bool
}

// MergeIterator performs the k-way merge across a set of opened SSTable
// readers described in §4.F: at each step it advances to the next live
// logical row, folding row- and range-level tombstones and expiration into
// a single deduplicated, latest-wins view delivered through a RowSink.
//
// Construction activates every reader up front (opens its data buffer and
// decodes its first partition) to learn its initial (token, key) for
// sorting; the specification's "next_table" lazy-activation index is
// retained conceptually (every source starts in active_tables) but, since
// nothing remains to lazily admit, this implementation does not carry a
// separate next_table field. See DESIGN.md for this simplification.
type MergeIterator struct {
	partitioner Partitioner
	sources     []*mergeSource

	totalFiles int
	totalBytes int64

	readRecords    int64
	skippedRecords int64

	tombstones map[string]int64
}

// Stats is the aggregate accounting the iterator exposes (§6).
type Stats struct {
	TotalFiles     int
	TotalBytes     int64
	ReadRecords    int64
	SkippedRecords int64
}

// NewMergeIterator opens a reader for each table, positions it at or after
// (firstToken, firstKey) via init_at_key, and sorts the resulting active
// readers by their initial (token, key). A nil firstKey starts every
// reader from the beginning of its file.
func NewMergeIterator(tables []*Table, opts *ReaderOptions, firstToken Token, firstKey []byte) (*MergeIterator, error) {
	if len(tables) == 0 {
		return &MergeIterator{tombstones: map[string]int64{}}, nil
	}

	p := tables[0].Partitioner
	var totalBytes int64
	readers := make([]Reader, 0, len(tables))

	for _, t := range tables {
		totalBytes += t.Bytes

		r := NewReader(t.Config, t.Partitioner, opts)
		found, err := r.InitAt(firstToken, firstKey)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if err := r.Open(); err != nil {
			return nil, err
		}
		readers = append(readers, r)
	}

	return newMergeIteratorFromReaders(p, readers, len(tables), totalBytes)
}

// newMergeIteratorFromReaders builds a MergeIterator from already-opened
// readers: decodes each reader's first partition, activates the ones that
// have data, and sorts them by initial (token, key). Split out from
// NewMergeIterator so tests can drive the merge algorithm against
// hand-scripted Reader implementations without real SSTable files on disk.
func newMergeIteratorFromReaders(p Partitioner, readers []Reader, totalFiles int, totalBytes int64) (*MergeIterator, error) {
	sources := make([]*mergeSource, 0, len(readers))
	for _, r := range readers {
		eof, err := r.ReadRow()
		if err != nil {
			return nil, err
		}
		if eof {
			if err := r.Close(); err != nil {
				return nil, err
			}
			continue
		}
		sources = append(sources, &mergeSource{reader: r})
	}

	sort.Slice(sources, func(i, j int) bool {
		a, b := sources[i].reader, sources[j].reader
		return p.Compare(a.NextToken(), a.NextKey(), b.NextToken(), b.NextKey()) < 0
	})

	return &MergeIterator{
		partitioner: p,
		sources:     sources,
		totalFiles:  totalFiles,
		totalBytes:  totalBytes,
		tombstones:  make(map[string]int64),
	}, nil
}

// Next advances to the next live logical row and delivers it through sink,
// returning false once every source is exhausted (§4.F operation `next`).
func (m *MergeIterator) Next(sink RowSink) (bool, error) {
	for {
		matched, markedForDeletion, key, ok, err := m.rowMatchSet()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}

		live, err := m.mergeColumns(sink, matched, markedForDeletion, key)
		if err != nil {
			return false, err
		}

		m.readRecords++
		if live {
			return true, nil
		}
		m.skippedRecords++
	}
}

// GetNextKey peeks the key of the next partition without consuming it
// (§4.F operation `get_next_key`). The peeked row may turn out, once
// merged, to be entirely deleted.
func (m *MergeIterator) GetNextKey() ([]byte, bool) {
	i := m.minSourceIndex()
	if i < 0 {
		return nil, false
	}
	return m.sources[i].reader.NextKey(), true
}

// Stats returns the iterator's aggregate accounting.
func (m *MergeIterator) Stats() Stats {
	return Stats{
		TotalFiles:     m.totalFiles,
		TotalBytes:     m.totalBytes,
		ReadRecords:    m.readRecords,
		SkippedRecords: m.skippedRecords,
	}
}

// Duplicate produces an independent MergeIterator over the same input
// tables, duplicating every live reader (its own file handle, its own
// decode position) so the two iterators can be driven from different
// goroutines without synchronization. Intended for use between calls to
// Next, at a partition boundary: the per-partition range-tombstone scratch
// is not carried over.
func (m *MergeIterator) Duplicate() (*MergeIterator, error) {
	dup := &MergeIterator{
		partitioner: m.partitioner,
		totalFiles:  m.totalFiles,
		totalBytes:  m.totalBytes,
		tombstones:  make(map[string]int64),
	}
	for _, s := range m.sources {
		if s.eof {
			continue
		}
		r, err := s.reader.Duplicate()
		if err != nil {
			return nil, err
		}
		dup.sources = append(dup.sources, &mergeSource{reader: r})
	}
	return dup, nil
}

// --------------------------------------------------------------------

func (m *MergeIterator) minSourceIndex() int {
	min := -1
	for i, s := range m.sources {
		if s.eof {
			continue
		}
		if min == -1 {
			min = i
			continue
		}
		a, b := s.reader, m.sources[min].reader
		if m.partitioner.Compare(a.NextToken(), a.NextKey(), b.NextToken(), b.NextKey()) < 0 {
			min = i
		}
	}
	return min
}

// rowMatchSet implements §4.F step 1: the set of sources whose current
// partition key equals the minimum among all non-exhausted sources, and
// step 2, the partition-level tombstone timestamp.
func (m *MergeIterator) rowMatchSet() ([]*mergeSource, int64, []byte, bool, error) {
	i := m.minSourceIndex()
	if i < 0 {
		return nil, 0, nil, false, nil
	}
	minReader := m.sources[i].reader
	minTok, minKey := minReader.NextToken(), minReader.NextKey()

	var matched []*mergeSource
	markedForDeletion := StillActive
	for _, s := range m.sources {
		if s.eof {
			continue
		}
		if m.partitioner.Compare(s.reader.NextToken(), s.reader.NextKey(), minTok, minKey) != 0 {
			continue
		}
		matched = append(matched, s)
		// STILL_ACTIVE is math.MinInt64, so a plain max already treats it
		// as the identity element: it only "wins" when every matched
		// reader agrees there is no deletion.
		if mfd := s.reader.MarkedForDeletion(); mfd > markedForDeletion {
			markedForDeletion = mfd
		}
	}

	key := make([]byte, len(minKey))
	copy(key, minKey)
	return matched, markedForDeletion, key, true, nil
}

// mergeColumns implements §4.F steps 3-7 for one matched partition.
func (m *MergeIterator) mergeColumns(sink RowSink, matched []*mergeSource, markedForDeletion int64, key []byte) (bool, error) {
	for k := range m.tombstones {
		delete(m.tombstones, k)
	}

	inRow := make([]*mergeSource, 0, len(matched))
	for _, s := range matched {
		ok, err := s.reader.ReadColumn()
		if err != nil {
			return false, err
		}
		if ok {
			inRow = append(inRow, s)
		} else if err := m.rotate(s); err != nil {
			return false, err
		}
	}

	emittedAny := false
	rowEmitted := false

	for len(inRow) > 0 {
		var smallest []byte
		for _, s := range inRow {
			n := s.reader.Current().Name
			if smallest == nil || compareKeyBytes(n, smallest) < 0 {
				smallest = n
			}
		}

		for _, s := range inRow {
			ci := s.reader.Current()
			if !ci.RangeTombstone {
				continue
			}
			end := string(ci.RangeTombstoneEnd)
			if prev, ok := m.tombstones[end]; !ok || ci.Timestamp > prev {
				m.tombstones[end] = ci.Timestamp
			}
		}
		for end := range m.tombstones {
			if compareKeyBytes([]byte(end), smallest) <= 0 {
				delete(m.tombstones, end)
			}
		}
		minTime := markedForDeletion
		for _, ts := range m.tombstones {
			if ts > minTime {
				minTime = ts
			}
		}

		var colMatch []*mergeSource
		for _, s := range inRow {
			if compareKeyBytes(s.reader.Current().Name, smallest) == 0 {
				colMatch = append(colMatch, s)
			}
		}

		winner := colMatch[0]
		for _, s := range colMatch[1:] {
			if s.reader.Current().Timestamp > winner.reader.Current().Timestamp {
				winner = s
			}
		}
		wc := winner.reader.Current()

		shadowed := minTime != StillActive && minTime >= wc.Timestamp
		skip := wc.IsEmpty() || wc.Deleted || wc.RangeTombstone || shadowed

		if !skip {
			if !rowEmitted {
				sink.NewRow(key)
				rowEmitted = true
			}
			if err := winner.reader.ReadColumnData(true); err != nil {
				return false, err
			}
			wc = winner.reader.Current()
			if wc.Expiring {
				sink.NewColumnWithTTL(wc.Name, wc.Value, wc.Timestamp, wc.TTLSeconds, wc.ExpirationSeconds)
			} else {
				sink.NewColumn(wc.Name, wc.Value, wc.Timestamp)
			}
			emittedAny = true
		}

		inMatch := make(map[*mergeSource]bool, len(colMatch))
		for _, s := range colMatch {
			inMatch[s] = true
		}
		next := inRow[:0]
		for _, s := range inRow {
			if !inMatch[s] {
				next = append(next, s)
				continue
			}
			ok, err := s.reader.ReadColumn()
			if err != nil {
				return false, err
			}
			if ok {
				next = append(next, s)
			} else if err := m.rotate(s); err != nil {
				return false, err
			}
		}
		inRow = next
	}

	return emittedAny || markedForDeletion == StillActive, nil
}

// rotate advances an exhausted source to its next partition, or closes it
// permanently at end of file.
func (m *MergeIterator) rotate(s *mergeSource) error {
	eof, err := s.reader.ReadRow()
	if err != nil {
		return err
	}
	if eof {
		s.eof = true
		return s.reader.Close()
	}
	return nil
}
