package sstable

import (
	"fmt"
	"path/filepath"
	"strings"
)

// TableConfig is the immutable per-file metadata established when a table
// opener scans a directory: on-disk path prefix (suffix stripped), the
// format version, and the parsed schema (empty for pre-modern formats).
type TableConfig struct {
	PathPrefix string // e.g. "/data/ks/table-.../ks-table-ka-1"
	Keyspace   string
	Table      string
	Version    Version
	Schema     *Schema // nil for pre-modern formats

	Partitioner Partitioner

	DataPath             string
	IndexPath            string
	SummaryPath          string
	StatisticsPath       string
	CompressionInfoPath  string
	Compressed           bool
}

const dataSuffix = "-Data.db"

// parseDataFilename extracts the generation prefix and version tag from a
// "*-Data.db" filename. Two shapes are recognized:
//
//	modern:  <ks>-<table>-<two-letter-version>-<generation>-Data.db  (pre-LA)
//	         <two-letter-version>-<generation>-Data.db               (LA+, ks/table from path)
//	ancient: <ks>-<table>-<single-letter a..d>-<generation>-Data.db
func parseDataFilename(name string) (prefix string, tag string, ok bool) {
	if !strings.HasSuffix(name, dataSuffix) {
		return "", "", false
	}
	base := name[:len(name)-len(dataSuffix)]
	parts := strings.Split(base, "-")
	if len(parts) < 2 {
		return "", "", false
	}

	// LA+ shape: "<version>-<generation>".
	if len(parts) == 2 {
		if _, ok := parseVersion(parts[0]); ok {
			return base, parts[0], true
		}
		return "", "", false
	}

	// Pre-LA shape: "...-<version>-<generation>"; version is the
	// second-to-last token.
	tagTok := parts[len(parts)-2]
	if _, ok := parseVersion(tagTok); ok {
		return base, tagTok, true
	}
	return "", "", false
}

// buildTableConfig derives a TableConfig from a Data.db file's full path,
// without yet reading any metadata off disk.
func buildTableConfig(dataPath string) (*TableConfig, error) {
	dir := filepath.Dir(dataPath)
	base := filepath.Base(dataPath)

	prefix, tag, ok := parseDataFilename(base)
	if !ok {
		return nil, fmt.Errorf("sstable: %s: %w", base, errBadVersion)
	}
	version, ok := parseVersion(tag)
	if !ok {
		return nil, fmt.Errorf("sstable: %s: %w", base, errBadVersion)
	}

	fullPrefix := filepath.Join(dir, prefix)

	var keyspace, table string
	if version.keyspaceTableFromPath() {
		comps := strings.Split(filepath.Clean(dir), string(filepath.Separator))
		if len(comps) >= 2 {
			table = comps[len(comps)-1]
			keyspace = comps[len(comps)-2]
		}
	} else {
		parts := strings.Split(prefix, "-")
		if len(parts) >= 2 {
			keyspace, table = parts[0], parts[1]
		}
	}

	cfg := &TableConfig{
		PathPrefix:     fullPrefix,
		Keyspace:       keyspace,
		Table:          table,
		Version:        version,
		DataPath:       dataPath,
		IndexPath:      fullPrefix + "-Index.db",
		SummaryPath:    fullPrefix + "-Summary.db",
		StatisticsPath: fullPrefix + "-Statistics.db",
	}
	compPath := fullPrefix + "-CompressionInfo.db"
	cfg.CompressionInfoPath = compPath
	return cfg, nil
}
