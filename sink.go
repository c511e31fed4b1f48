package sstable

// RowSink receives the merge iterator's deduplicated, tombstone- and
// expiration-resolved output (§6 Callback surface). Implementations belong
// to the external sink (out of scope for this package): pushing merged
// rows onward, pretty-printing, or anything else a caller wants to do with
// a live logical view of the input SSTables.
type RowSink interface {
	// NewRow is called exactly once per emitted partition, before any of
	// its columns.
	NewRow(key []byte)

	// NewColumn is called once per surviving non-expiring cell.
	NewColumn(name, value []byte, ts int64)

	// NewColumnWithTTL is called once per surviving expiring cell.
	NewColumnWithTTL(name, value []byte, ts int64, ttlSeconds, expirationSeconds uint32)
}
