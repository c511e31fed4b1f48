package sstable

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
)

// ErrNotFound is returned when a requested partition key cannot be located
// by a summary/index lookup.
var ErrNotFound = errors.New("sstable: not found")

var (
	errClosed            = errors.New("sstable: reader is closed")
	errBadMagic          = errors.New("sstable: bad magic byte sequence")
	errBadCompression    = errors.New("sstable: unknown compression codec")
	errBadChecksum       = errors.New("sstable: chunk checksum mismatch")
	errBadVersion        = errors.New("sstable: unrecognized sstable version")
	errBadState          = errors.New("sstable: reader used from the wrong state")
	errPartitionerMismatch = errors.New("sstable: input files do not share one partitioner")
	errKeyspaceMismatch    = errors.New("sstable: input files do not share one keyspace/table")
)

// diagLogger returns a non-nil logger for setup-error diagnostics, falling
// back to slog.Default() the way a library with no caller-supplied logger
// should: never write unconditionally to stderr on its own.
func diagLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// fatal is invoked for corruption errors (checksum mismatches) that §7
// classifies as unrecoverable. It is a variable, not a direct os.Exit call,
// so tests can substitute a panic-free stand-in without killing the test
// binary.
var fatal = func(msg string) {
	log.Fatal(msg)
}

func corrupt(logger *slog.Logger, file string, logicalOffset int64, cause error) {
	logger = diagLogger(logger)
	logger.Error("sstable: checksum failure", "file", file, "logical_offset", logicalOffset, "cause", cause)
	fatal(fmt.Sprintf("sstable: corrupt chunk in %s at logical offset %d: %v", file, logicalOffset, cause))
}

func setupError(logger *slog.Logger, file string, cause error) error {
	logger = diagLogger(logger)
	logger.Warn("sstable: setup error", "file", file, "cause", cause)
	return fmt.Errorf("sstable: %s: %w", file, cause)
}
