package sstable

// STILL_ACTIVE is the sentinel partition-deletion timestamp meaning "no
// deletion applies here." It is never a valid timestamp; comparisons
// against it must be explicit, never implicit via ordinary <=/>= timestamp
// comparison.
const StillActive = int64(-1) << 63 // 0x8000_0000_0000_0000 as a signed int64

// Legacy (pre-modern) per-column flags.
const (
	flagDeletion       byte = 0x01
	flagExpiration     byte = 0x02
	flagCounter        byte = 0x04
	flagRangeTombstone byte = 0x10
)

// Modern per-column flags.
const (
	colIsDeleted       byte = 0x01
	colIsExpiring      byte = 0x02
	colHasEmptyValue   byte = 0x04
	colUseRowTimestamp byte = 0x08
	colUseRowTTL       byte = 0x10
)

// Modern row-level flags (the leading flags byte of each unit in a
// partition's row stream).
const (
	rowEndOfPartition    byte = 0x01
	rowIsMarker          byte = 0x02
	rowHasTimestamp      byte = 0x04
	rowHasTTL            byte = 0x08
	rowHasDeletion       byte = 0x10
	rowHasAllColumns     byte = 0x20
	rowHasComplexDeletion byte = 0x40
	rowExtensionFlag     byte = 0x80
)

// rowExtIsStatic is the sole bit used from the extended flags byte.
const rowExtIsStatic byte = 0x01

// ColumnInfo describes one cell: either a normal value, an expiring value,
// a counter value, a range tombstone, or a deletion marker. Flags are
// mutually informative, not mutually exclusive in representation (a
// deleted cell carries no value; an expiring one carries ttl/expiration in
// addition to a value).
type ColumnInfo struct {
	Name []byte // empty: end-of-row sentinel or clustering-path artefact

	Timestamp int64 // signed microseconds since epoch, provider-defined

	Deleted        bool
	Expiring       bool
	RangeTombstone bool

	Value []byte // normal / expiring / counter value payload

	TTLSeconds        uint32 // expiring only
	ExpirationSeconds uint32 // expiring only

	CounterTimestamp int64 // counter cells only; retained internally, never surfaced (§12)
	IsCounter        bool

	RangeTombstoneEnd []byte // range tombstone only: exclusive/inclusive upper-bound key per source format
}

// IsEmpty reports whether Name is empty: either the end-of-row/partition
// sentinel, or a clustering-path artefact stripped down to nothing.
func (c *ColumnInfo) IsEmpty() bool { return len(c.Name) == 0 }
