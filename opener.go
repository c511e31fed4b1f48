package sstable

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// OpenerOptions configures directory scanning. Reader is normalized (and
// given the opener's Logger) by NewOpener, but Open does not use it and the
// returned Tables do not carry it.
type OpenerOptions struct {
	Reader *ReaderOptions
	Logger *slog.Logger
}

func (o *OpenerOptions) norm() *OpenerOptions {
	var oo OpenerOptions
	if o != nil {
		oo = *o
	}
	oo.Logger = diagLogger(oo.Logger)
	oo.Reader = oo.Reader.norm()
	oo.Reader.Logger = oo.Logger
	return &oo
}

// Table is one opened SSTable: its immutable config plus the resolved
// partitioner used to position and order its readers.
type Table struct {
	Config      *TableConfig
	Partitioner Partitioner
	Bytes       int64
}

// Opener discovers "-Data.db" files under a set of directories, reads each
// one's Statistics.db for partitioner (and, for modern formats, schema),
// and enforces that every discovered file agrees on keyspace, table and
// partitioner (§4.E).
type Opener struct {
	opts   *OpenerOptions
	tables []*Table
}

// NewOpener constructs an Opener with the given options (nil for defaults).
func NewOpener(opts *OpenerOptions) *Opener {
	return &Opener{opts: opts.norm()}
}

// Open walks each directory in paths, resolving it to a canonical absolute
// path, and opens every "-Data.db" file found directly within it. Returns a
// setup error (§7 category 1) if any file fails to parse, or if the
// discovered files disagree on keyspace/table/partitioner.
func (o *Opener) Open(paths []string) ([]*Table, error) {
	var tables []*Table

	for _, dir := range paths {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, setupError(o.opts.Logger, dir, err)
		}
		entries, err := os.ReadDir(abs)
		if err != nil {
			return nil, setupError(o.opts.Logger, abs, err)
		}

		for _, ent := range entries {
			if ent.IsDir() || !strings.HasSuffix(ent.Name(), dataSuffix) {
				continue
			}
			dataPath := filepath.Join(abs, ent.Name())

			cfg, err := buildTableConfig(dataPath)
			if err != nil {
				return nil, setupError(o.opts.Logger, dataPath, err)
			}

			info, err := ent.Info()
			if err != nil {
				return nil, setupError(o.opts.Logger, dataPath, err)
			}

			if _, err := os.Stat(cfg.CompressionInfoPath); err == nil {
				cfg.Compressed = true
			}

			className, schema, err := readStatistics(cfg)
			if err != nil {
				return nil, setupError(o.opts.Logger, cfg.StatisticsPath, err)
			}
			cfg.Schema = schema

			p, err := PartitionerByClassName(className)
			if err != nil {
				return nil, setupError(o.opts.Logger, cfg.StatisticsPath, err)
			}

			tables = append(tables, &Table{Config: cfg, Partitioner: p, Bytes: info.Size()})
		}
	}

	if err := checkAgreement(tables); err != nil {
		return nil, setupError(o.opts.Logger, "opener", err)
	}

	o.tables = tables
	return tables, nil
}

// readStatistics reads a -Statistics.db file, returning the partitioner
// class name and (for modern formats) the decoded schema.
func readStatistics(cfg *TableConfig) (string, *Schema, error) {
	f, err := os.Open(cfg.StatisticsPath)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	r := NewUncompressedBuffer(f)

	if !cfg.Version.hasTOC() {
		name, err := readLegacyPartitioner(r, cfg.Version)
		if err != nil {
			return "", nil, err
		}
		return name, nil, nil
	}

	toc, err := readStatsTOC(r)
	if err != nil {
		return "", nil, err
	}

	validOff, ok := findStatsTag(toc, "Validation")
	if !ok {
		return "", nil, errBadVersion
	}
	if err := r.Seek(int64(validOff)); err != nil {
		return "", nil, err
	}
	className, err := readValidationPartitioner(r)
	if err != nil {
		return "", nil, err
	}

	if !cfg.Version.hasSchema() {
		return className, nil, nil
	}

	headerOff, ok := findStatsTag(toc, "Header")
	if !ok {
		return className, nil, nil
	}
	if err := r.Seek(int64(headerOff)); err != nil {
		return "", nil, err
	}
	schema, err := readSchemaHeader(r)
	if err != nil {
		return "", nil, err
	}
	return className, schema, nil
}

// checkAgreement enforces that every opened table shares one
// keyspace/table and one partitioner class.
func checkAgreement(tables []*Table) error {
	if len(tables) == 0 {
		return nil
	}
	first := tables[0]
	for _, t := range tables[1:] {
		if t.Config.Keyspace != first.Config.Keyspace || t.Config.Table != first.Config.Table {
			return fmt.Errorf("%w: %s.%s vs %s.%s", errKeyspaceMismatch,
				first.Config.Keyspace, first.Config.Table, t.Config.Keyspace, t.Config.Table)
		}
		if t.Partitioner.Name() != first.Partitioner.Name() {
			return fmt.Errorf("%w: %s vs %s", errPartitionerMismatch,
				first.Partitioner.Name(), t.Partitioner.Name())
		}
	}
	return nil
}

// TotalBytes returns the aggregate on-disk size of every opened Data.db
// file.
func (o *Opener) TotalBytes() int64 {
	var total int64
	for _, t := range o.tables {
		total += t.Bytes
	}
	return total
}

// TotalFiles returns the number of opened tables.
func (o *Opener) TotalFiles() int { return len(o.tables) }

// Tables returns the tables discovered by the most recent Open call.
func (o *Opener) Tables() []*Table { return o.tables }
