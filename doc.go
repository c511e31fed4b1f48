/*
Package sstable reads on-disk SSTable files produced by a Cassandra-family
wide-column store without a running database, merges multiple files that
cover overlapping partition ranges, applies row- and range-level tombstone
and expiration semantics, and emits a live logical view of the rows and
columns the files collectively represent.

Nothing here talks to a cluster. Given a directory of sibling files sharing
a generation prefix, the package discovers them, parses their metadata, and
drives a k-way merge over as many readers as there are input generations.
The merged output is delivered to a caller-supplied RowSink; pushing that
output into another store is outside this package's scope.

File set

Each table generation is a set of sibling files distinguished by suffix:

	<prefix>-Data.db              row/column stream, possibly chunk-compressed
	<prefix>-Index.db             key -> data-file-position index
	<prefix>-Summary.db           sparse index over the Index file
	<prefix>-Statistics.db        metadata: partitioner, and (modern formats) schema
	<prefix>-CompressionInfo.db   chunk layout, present only when Data is compressed

Data layout (modern format)

	Data file:
	+------------+------------+-----+------------+
	| partition1 | partition2 | ... | partitionN |
	+------------+------------+-----+------------+

	Partition:
	+-----------------+-----------------------+--------------------+------+
	| key (u16-len)    | local deletion (4B)  | marked_for_del (8B) | rows |
	+-----------------+-----------------------+--------------------+------+

	Row (modern):
	+-------+-------------------------+-----------------------------+
	| flags | clustering (if !static) | columns (per presence set)  |
	+-------+-------------------------+-----------------------------+

Pre-modern formats (before "ma") carry no embedded schema. Among them, a
partition's column stream ends with an empty-name sentinel from "ja"
onward; before "ja" a descending 32-bit column counter marks the end; see
reader_old.go.

Merge semantics

The merge iterator (merge.go) performs a k-way merge over the partitioner's
global (token, key) ordering. Within a matched partition it resolves ties by
highest timestamp, honors partition-level tombstones (row_marked_for_deletion)
and range tombstones (name-interval deletions), and reports a partition only
if it has at least one surviving column or is still active (no deletion
applied). See merge_test.go's scenarios for concrete call sequences.
*/
package sstable
