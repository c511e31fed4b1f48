package sstable

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("MergeIterator", func() {
	var p Partitioner

	BeforeEach(func() {
		p = murmur3Partitioner{}
	})

	// Scenario 1: single file, two partitions.
	It("streams a single file's partitions and columns in order", func() {
		tokA := p.AssignToken([]byte("a"))
		tokB := p.AssignToken([]byte("b"))
		first, second := []byte("a"), []byte("b")
		if p.Compare(tokB, second, tokA, first) < 0 {
			first, second = second, first
		}

		r := newFakeReader(p, []fakeRow{
			{key: first, markedForDeletion: StillActive, columns: []ColumnInfo{
				{Name: []byte("x"), Value: []byte("1"), Timestamp: 10},
				{Name: []byte("y"), Value: []byte("2"), Timestamp: 10},
			}},
			{key: second, markedForDeletion: StillActive, columns: []ColumnInfo{
				{Name: []byte("z"), Value: []byte("3"), Timestamp: 10},
			}},
		})

		it, err := newMergeIteratorFromReaders(p, []Reader{r}, 1, 0)
		Expect(err).NotTo(HaveOccurred())

		sink := &fakeSink{}
		more, err := it.Next(sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(more).To(BeTrue())

		more, err = it.Next(sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(more).To(BeTrue())

		more, err = it.Next(sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(more).To(BeFalse())

		Expect(sink.calls).To(Equal([]string{
			"row:" + string(first), "col:x=1", "col:y=2",
			"row:" + string(second), "col:z=3",
		}))
		Expect(it.Stats().ReadRecords).To(Equal(int64(2)))
		Expect(it.Stats().SkippedRecords).To(Equal(int64(0)))
	})

	// Scenario 2: two files, same partition, overwrite.
	It("keeps only the cell with the greater timestamp across files", func() {
		k := []byte("k")
		r1 := newFakeReader(p, []fakeRow{{key: k, markedForDeletion: StillActive, columns: []ColumnInfo{
			{Name: []byte("c"), Value: []byte("old"), Timestamp: 5},
		}}})
		r2 := newFakeReader(p, []fakeRow{{key: k, markedForDeletion: StillActive, columns: []ColumnInfo{
			{Name: []byte("c"), Value: []byte("new"), Timestamp: 7},
		}}})

		it, err := newMergeIteratorFromReaders(p, []Reader{r1, r2}, 2, 0)
		Expect(err).NotTo(HaveOccurred())

		sink := &fakeSink{}
		more, err := it.Next(sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(more).To(BeTrue())

		more, err = it.Next(sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(more).To(BeFalse())

		Expect(sink.calls).To(Equal([]string{"row:k", "col:c=new"}))
	})

	// Scenario 3: row tombstone masks older data.
	It("suppresses a partition entirely shadowed by a row tombstone", func() {
		k := []byte("k")
		r1 := newFakeReader(p, []fakeRow{{key: k, markedForDeletion: StillActive, columns: []ColumnInfo{
			{Name: []byte("c"), Value: []byte("v"), Timestamp: 5},
		}}})
		r2 := newFakeReader(p, []fakeRow{{key: k, markedForDeletion: 6}})

		it, err := newMergeIteratorFromReaders(p, []Reader{r1, r2}, 2, 0)
		Expect(err).NotTo(HaveOccurred())

		sink := &fakeSink{}
		more, err := it.Next(sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(more).To(BeFalse())
		Expect(sink.calls).To(BeEmpty())
		Expect(it.Stats().SkippedRecords).To(Equal(int64(1)))
	})

	// Scenario 4: row tombstone superseded by a later write.
	It("lets a write newer than the row tombstone survive", func() {
		k := []byte("k")
		r1 := newFakeReader(p, []fakeRow{{key: k, markedForDeletion: StillActive, columns: []ColumnInfo{
			{Name: []byte("c"), Value: []byte("v"), Timestamp: 5},
		}}})
		r2 := newFakeReader(p, []fakeRow{{key: k, markedForDeletion: 6}})
		r3 := newFakeReader(p, []fakeRow{{key: k, markedForDeletion: StillActive, columns: []ColumnInfo{
			{Name: []byte("c"), Value: []byte("v2"), Timestamp: 9},
		}}})

		it, err := newMergeIteratorFromReaders(p, []Reader{r1, r2, r3}, 3, 0)
		Expect(err).NotTo(HaveOccurred())

		sink := &fakeSink{}
		more, err := it.Next(sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(sink.calls).To(Equal([]string{"row:k", "col:c=v2"}))
	})

	// Scenario 5: range tombstone shadows older names below its end-key.
	It("shadows cells below a range tombstone's end-key", func() {
		k := []byte("k")
		r1 := newFakeReader(p, []fakeRow{{key: k, markedForDeletion: StillActive, columns: []ColumnInfo{
			{Name: []byte("a"), RangeTombstone: true, RangeTombstoneEnd: []byte("m"), Timestamp: 8},
			{Name: []byte("a"), Value: []byte("A"), Timestamp: 5},
			{Name: []byte("n"), Value: []byte("N"), Timestamp: 5},
		}}})

		it, err := newMergeIteratorFromReaders(p, []Reader{r1}, 1, 0)
		Expect(err).NotTo(HaveOccurred())

		sink := &fakeSink{}
		more, err := it.Next(sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(sink.calls).To(Equal([]string{"row:k", "col:n=N"}))
	})

	// Scenario 6: expiring cell passed through with TTL/expiration.
	It("delivers an expiring cell via NewColumnWithTTL", func() {
		k := []byte("k")
		r1 := newFakeReader(p, []fakeRow{{key: k, markedForDeletion: StillActive, columns: []ColumnInfo{
			{Name: []byte("c"), Value: []byte("v"), Timestamp: 10, Expiring: true,
				TTLSeconds: 300, ExpirationSeconds: 1700000300},
		}}})

		it, err := newMergeIteratorFromReaders(p, []Reader{r1}, 1, 0)
		Expect(err).NotTo(HaveOccurred())

		sink := &fakeSink{}
		more, err := it.Next(sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(sink.calls).To(Equal([]string{"row:k", "ttlcol:c=v"}))
	})

	It("reports GetNextKey without consuming the partition", func() {
		k := []byte("k")
		r1 := newFakeReader(p, []fakeRow{{key: k, markedForDeletion: StillActive, columns: []ColumnInfo{
			{Name: []byte("c"), Value: []byte("v"), Timestamp: 1},
		}}})
		it, err := newMergeIteratorFromReaders(p, []Reader{r1}, 1, 0)
		Expect(err).NotTo(HaveOccurred())

		peeked, ok := it.GetNextKey()
		Expect(ok).To(BeTrue())
		Expect(peeked).To(Equal(k))

		sink := &fakeSink{}
		more, err := it.Next(sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(sink.calls[0]).To(Equal("row:k"))
	})
})
