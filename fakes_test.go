package sstable

// fakeRow is one scripted partition for fakeReader: a key, its partition-
// level deletion timestamp (StillActive if none), and its columns in the
// order they should be streamed.
type fakeRow struct {
	key               []byte
	markedForDeletion int64
	columns           []ColumnInfo
}

// fakeReader is a scripted Reader used to exercise MergeIterator's
// algorithm directly, without encoding real SSTable bytes: a merge needs
// only the Reader contract, and scripting it lets tests assert the exact
// scenarios in spec.md §8.
type fakeReader struct {
	p      Partitioner
	rows   []fakeRow
	rowIdx int
	colIdx int

	state     readerState
	nextKey   []byte
	nextToken Token
	mfd       int64
	current   ColumnInfo
	closed    bool
}

func newFakeReader(p Partitioner, rows []fakeRow) *fakeReader {
	return &fakeReader{p: p, rows: rows, state: stateReadRow}
}

func (f *fakeReader) InitAt(Token, []byte) (bool, error) { return true, nil }
func (f *fakeReader) Open() error                        { return nil }
func (f *fakeReader) Close() error                        { f.closed = true; return nil }

func (f *fakeReader) Duplicate() (Reader, error) {
	cp := *f
	return &cp, nil
}

func (f *fakeReader) ReadRow() (bool, error) {
	if f.state != stateReadRow {
		panic("sstable: fakeReader.ReadRow called while not in stateReadRow")
	}
	if f.rowIdx >= len(f.rows) {
		return true, nil
	}
	r := f.rows[f.rowIdx]
	f.nextKey = r.key
	f.nextToken = f.p.AssignToken(r.key)
	f.mfd = r.markedForDeletion
	f.colIdx = 0
	f.state = stateReadColumn
	return false, nil
}

func (f *fakeReader) ReadColumn() (bool, error) {
	row := f.rows[f.rowIdx]
	if f.colIdx >= len(row.columns) {
		f.rowIdx++
		f.state = stateReadRow
		return false, nil
	}
	f.current = row.columns[f.colIdx]
	f.colIdx++
	f.state = stateReadColumnData
	return true, nil
}

func (f *fakeReader) ReadColumnData(consume bool) error {
	f.state = stateReadColumn
	return nil
}

func (f *fakeReader) NextKey() []byte               { return f.nextKey }
func (f *fakeReader) NextToken() Token              { return f.nextToken }
func (f *fakeReader) MarkedForDeletion() int64      { return f.mfd }
func (f *fakeReader) Current() *ColumnInfo          { return &f.current }
func (f *fakeReader) State() readerState            { return f.state }
func (f *fakeReader) Partitioner() Partitioner      { return f.p }
func (f *fakeReader) Config() *TableConfig          { return nil }

// fakeSink records every callback the merge iterator makes, in order, for
// assertions.
type fakeSink struct {
	calls []string
}

func (s *fakeSink) NewRow(key []byte) {
	s.calls = append(s.calls, "row:"+string(key))
}

func (s *fakeSink) NewColumn(name, value []byte, ts int64) {
	s.calls = append(s.calls, "col:"+string(name)+"="+string(value))
}

func (s *fakeSink) NewColumnWithTTL(name, value []byte, ts int64, ttl, exp uint32) {
	s.calls = append(s.calls, "ttlcol:"+string(name)+"="+string(value))
}
