package sstable

// ColumnDef names one schema column and its storage type.
type ColumnDef struct {
	Name []byte
	Type ColumnType
}

// Schema is the per-table column schema embedded in modern-format
// Statistics.db metadata. Pre-modern formats carry no schema: the zero
// value (empty column lists) signals that a reader should fall back to
// name-prefixed, schema-less columns.
type Schema struct {
	MinTimestamp int64
	MinTTL       int64
	KeyType      ColumnType
	Clustering   []ColumnType
	Static       []ColumnDef
	Regular      []ColumnDef
}

// statsTag is one (tag, offset) entry of a Statistics.db table of contents.
type statsTag struct {
	Name   string
	Offset int32
}

// readStatsTOC decodes a KA+ Statistics.db table of contents: an int32
// count followed by that many (u16-len string tag, int32 offset) pairs.
func readStatsTOC(r ByteReader) ([]statsTag, error) {
	count, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	tags := make([]statsTag, 0, count)
	for i := int32(0); i < count; i++ {
		name, err := readShortBytes(r)
		if err != nil {
			return nil, err
		}
		off, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		tags = append(tags, statsTag{Name: string(name), Offset: off})
	}
	return tags, nil
}

func findStatsTag(tags []statsTag, name string) (int32, bool) {
	for _, t := range tags {
		if t.Name == name {
			return t.Offset, true
		}
	}
	return 0, false
}

// readValidationPartitioner reads the partitioner class name from the
// "VALIDATION" section of a KA+ Statistics.db file.
func readValidationPartitioner(r ByteReader) (string, error) {
	name, err := readShortBytes(r)
	if err != nil {
		return "", err
	}
	return string(name), nil
}

// readSchemaHeader decodes the "HEADER" section of a modern (MA+)
// Statistics.db file:
//
//	uvint min_timestamp
//	uvint min_local_deletion_time (discarded)
//	uvint min_ttl
//	key column type (u16-len class name)
//	uvint clustering count, then that many u16-len class names
//	static columns:  uvint count, then (u16-len name, u16-len class name) pairs
//	regular columns: uvint count, then (u16-len name, u16-len class name) pairs
func readSchemaHeader(r ByteReader) (*Schema, error) {
	minTs, err := readUnsignedVInt(r)
	if err != nil {
		return nil, err
	}
	if _, err := readUnsignedVInt(r); err != nil { // min_local_deletion_time
		return nil, err
	}
	minTTL, err := readUnsignedVInt(r)
	if err != nil {
		return nil, err
	}

	keyClass, err := readShortBytes(r)
	if err != nil {
		return nil, err
	}

	clusterCount, err := readUnsignedVInt(r)
	if err != nil {
		return nil, err
	}
	clustering := make([]ColumnType, clusterCount)
	for i := range clustering {
		cls, err := readShortBytes(r)
		if err != nil {
			return nil, err
		}
		clustering[i] = columnTypeByClassName(string(cls))
	}

	static, err := readColumnDefList(r)
	if err != nil {
		return nil, err
	}
	regular, err := readColumnDefList(r)
	if err != nil {
		return nil, err
	}

	return &Schema{
		MinTimestamp: int64(minTs),
		MinTTL:       int64(minTTL),
		KeyType:      columnTypeByClassName(string(keyClass)),
		Clustering:   clustering,
		Static:       static,
		Regular:      regular,
	}, nil
}

func readColumnDefList(r ByteReader) ([]ColumnDef, error) {
	count, err := readUnsignedVInt(r)
	if err != nil {
		return nil, err
	}
	defs := make([]ColumnDef, count)
	for i := range defs {
		name, err := readShortBytes(r)
		if err != nil {
			return nil, err
		}
		cls, err := readShortBytes(r)
		if err != nil {
			return nil, err
		}
		defs[i] = ColumnDef{Name: name, Type: columnTypeByClassName(string(cls))}
	}
	return defs, nil
}

// readLegacyPartitioner reads the partitioner class name from a pre-KA
// Statistics.db file, after skipping two histograms (each: int32 count,
// then count*16 bytes) and a version-dependent fixed-width preamble.
func readLegacyPartitioner(r ByteReader, v Version) (string, error) {
	for i := 0; i < 2; i++ {
		n, err := readInt32(r)
		if err != nil {
			return "", err
		}
		if err := r.SkipBytes(int(n) * 16); err != nil {
			return "", err
		}
	}
	if err := r.SkipBytes(v.rowPreambleSize()); err != nil {
		return "", err
	}
	name, err := readShortBytes(r)
	if err != nil {
		return "", err
	}
	return string(name), nil
}
