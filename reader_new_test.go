package sstable

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReader(sch *Schema) *newSSTableReader {
	r := &newSSTableReader{baseReader: baseReader{cfg: &TableConfig{Schema: sch}}}
	return r
}

// TestReadColumnHeaderExpiringNotRowTTL pins the byte layout of an expiring
// column that does not use the row-level TTL: flags, timestamp delta, a
// local-deletion-time varint, then a ttl delta — in that order, with no
// extra varint beyond those three fields.
func TestReadColumnHeaderExpiringNotRowTTL(t *testing.T) {
	sch := &Schema{MinTimestamp: 1000, MinTTL: 100}
	r := newTestReader(sch)

	var buf []byte
	buf = append(buf, colIsExpiring) // flags: expiring, not deleted, not row-ttl/row-ts
	buf = encodeUnsignedVInt(buf, 5)  // timestamp delta -> ts = 1005
	buf = encodeUnsignedVInt(buf, 42) // local deletion time (wire's absolute expiration)
	buf = encodeUnsignedVInt(buf, 7)  // ttl delta -> ttl = 107
	buf = append(buf, 1, 2, 3, 4)      // int32 value payload

	r.data = NewUncompressedBuffer(bytes.NewReader(buf))
	def := ColumnDef{Name: []byte("c"), Type: TypeInt32}

	require.NoError(t, r.readColumnHeader(def))

	got := r.current
	assert.True(t, got.Expiring)
	assert.False(t, got.Deleted)
	assert.EqualValues(t, 1005, got.Timestamp)
	assert.EqualValues(t, 107, got.TTLSeconds)
	assert.EqualValues(t, 42, got.ExpirationSeconds)

	// The value bytes immediately follow the header with no extra varint
	// in between: exactly 4 bytes remain to be consumed for the int32.
	r.state = stateReadColumnData
	require.NoError(t, r.ReadColumnData(true))
	assert.Equal(t, []byte{1, 2, 3, 4}, r.current.Value)
}

// TestReadColumnHeaderExpiringRowTTL pins the USE_ROW_TTL case: no wire
// read at all beyond the timestamp, ttl/expiring come from the row's own
// state (set by readRegularRow).
func TestReadColumnHeaderExpiringRowTTL(t *testing.T) {
	sch := &Schema{MinTimestamp: 1000, MinTTL: 100}
	r := newTestReader(sch)
	r.rowTTL = 300
	r.rowTimestamp = 2000

	var buf []byte
	buf = append(buf, colUseRowTimestamp|colUseRowTTL)
	buf = append(buf, 9, 9, 9, 9) // int32 value, immediately after flags

	r.data = NewUncompressedBuffer(bytes.NewReader(buf))
	def := ColumnDef{Name: []byte("c"), Type: TypeInt32}

	require.NoError(t, r.readColumnHeader(def))

	got := r.current
	assert.True(t, got.Expiring)
	assert.EqualValues(t, 2000, got.Timestamp)
	assert.EqualValues(t, 300, got.TTLSeconds)
	assert.EqualValues(t, 0, got.ExpirationSeconds)
}

// TestReadColumnHeaderNotExpiringUsesRowTTLUnset confirms a column flagged
// USE_ROW_TTL on a row that carries none (row_ttl == rowTTLUnset) resolves
// to not-expiring, matching the original reader's UINT64_MAX sentinel check.
func TestReadColumnHeaderNotExpiringUsesRowTTLUnset(t *testing.T) {
	sch := &Schema{MinTimestamp: 1000, MinTTL: 100}
	r := newTestReader(sch)
	r.rowTTL = rowTTLUnset
	r.rowTimestamp = 2000

	var buf []byte
	buf = append(buf, colUseRowTimestamp|colUseRowTTL|colHasEmptyValue)
	r.data = NewUncompressedBuffer(bytes.NewReader(buf))

	require.NoError(t, r.readColumnHeader(ColumnDef{Name: []byte("c"), Type: TypeInt32}))
	assert.False(t, r.current.Expiring)
}

// TestReadRegularRowTimestampAndTTLSequencing pins the three-varint sequence
// (timestamp delta, ttl delta, discarded local-deletion-time) consumed when
// a row carries both HAS_TIMESTAMP and HAS_TTL, and confirms the reader
// lands exactly on the column-presence varint afterward with no desync.
func TestReadRegularRowTimestampAndTTLSequencing(t *testing.T) {
	sch := &Schema{MinTimestamp: 1000, MinTTL: 100, Regular: []ColumnDef{{Name: []byte("c"), Type: TypeInt32}}}
	r := newTestReader(sch)
	r.isStatic = false // no Clustering types configured, so the skip is a no-op

	var buf []byte
	buf = encodeUnsignedVInt(buf, 0) // row size (unused)
	buf = encodeUnsignedVInt(buf, 0) // previous-unfiltered size (unused)
	buf = encodeUnsignedVInt(buf, 5) // timestamp delta -> 1005
	buf = encodeUnsignedVInt(buf, 7) // ttl delta -> 107
	buf = encodeUnsignedVInt(buf, 99) // local deletion time (discarded)
	buf = encodeUnsignedVInt(buf, 0)  // HAS_ALL_COLUMNS not set: all-present column subset

	r.data = NewUncompressedBuffer(bytes.NewReader(buf))

	flags := rowHasTimestamp | rowHasTTL
	require.NoError(t, r.readRegularRow(flags))

	assert.EqualValues(t, 1005, r.rowTimestamp)
	assert.EqualValues(t, 107, r.rowTTL)
	assert.Equal(t, []bool{true}, r.columnsPresent)
}
