package sstable

import "strings"

// ColumnType is the closed set of marshaller types the modern-format schema
// can name. Its only purpose in this engine is to dictate how many bytes a
// column value occupies on disk; no further interpretation of the value is
// performed (Non-goal: schema-driven column typing).
type ColumnType int

const (
	TypeUnknown ColumnType = iota
	TypeText
	TypeInt32
	TypeUUID
	TypeFloat
	TypeLong
	TypeBool
	TypeEmpty
	TypeTimestamp
	TypeCounter
)

const marshallerPrefix = "org.apache.cassandra.db.marshal."

// columnTypeByClassName maps a (possibly fully-qualified) marshaller class
// name to the closed type enum. Anything unrecognized parses as TypeUnknown,
// which shares TypeText's varint-length-prefixed sizing.
func columnTypeByClassName(className string) ColumnType {
	name := className
	if strings.HasPrefix(className, marshallerPrefix) {
		name = className[len(marshallerPrefix):]
	}
	switch name {
	case "UTF8Type", "AsciiType":
		return TypeText
	case "Int32Type":
		return TypeInt32
	case "UUIDType", "TimeUUIDType", "LexicalUUIDType":
		return TypeUUID
	case "FloatType":
		return TypeFloat
	case "LongType":
		return TypeLong
	case "BooleanType":
		return TypeBool
	case "EmptyType":
		return TypeEmpty
	case "TimestampType", "DateType":
		return TypeTimestamp
	case "CounterColumnType":
		return TypeCounter
	default:
		return TypeUnknown
	}
}

// fixedSize returns the on-disk byte width for fixed-width types, or -1 for
// TEXT/UNKNOWN which are varint-length-prefixed instead.
func (t ColumnType) fixedSize() int {
	switch t {
	case TypeInt32, TypeFloat:
		return 4
	case TypeUUID:
		return 16
	case TypeLong, TypeTimestamp, TypeCounter:
		return 8
	case TypeBool:
		return 1
	case TypeEmpty:
		return 0
	default:
		return -1
	}
}

// readTypedValue reads one value of type t from r: fixed-width types read
// exactly fixedSize() bytes, TEXT/UNKNOWN read a varint-length-prefixed
// blob.
func readTypedValue(r ByteReader, t ColumnType) ([]byte, error) {
	if sz := t.fixedSize(); sz >= 0 {
		b, err := r.ReadBytes(sz)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	}
	n, err := readUnsignedVInt(r)
	if err != nil {
		return nil, err
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// skipTypedValue skips one value of type t without materializing it.
func skipTypedValue(r ByteReader, t ColumnType) error {
	if sz := t.fixedSize(); sz >= 0 {
		return r.SkipBytes(sz)
	}
	n, err := readUnsignedVInt(r)
	if err != nil {
		return err
	}
	return r.SkipBytes(int(n))
}
