package sstable

import "testing"

func TestMurmur3BoundaryRemap(t *testing.T) {
	if got := remapMurmur3Min(int64Min); got != int64Max {
		t.Fatalf("remapMurmur3Min(INT64_MIN) = %d, want INT64_MAX (%d)", got, int64Max)
	}
	if got := remapMurmur3Min(42); got != 42 {
		t.Fatalf("remapMurmur3Min(42) = %d, want 42 unchanged", got)
	}
}

func TestRandomPartitionerNegateIsTwosComplement(t *testing.T) {
	var x [16]byte
	for i := range x {
		x[i] = 0xff
	}
	// 2^128 - (2^128 - 1) = 1.
	var want [16]byte
	want[15] = 1
	if neg := negate128(x); neg != want {
		t.Fatalf("negate128(all-0xff) = %x, want %x", neg, want)
	}
}

func TestKeyOrdering(t *testing.T) {
	p := murmur3Partitioner{}
	a, b := []byte("aaa"), []byte("aab")
	tokA, tokB := p.AssignToken(a), p.AssignToken(b)

	if c := p.Compare(tokA, a, tokA, a); c != 0 {
		t.Fatalf("Compare(a,a) = %d, want 0", c)
	}

	c1 := p.Compare(tokA, a, tokB, b)
	c2 := p.Compare(tokB, b, tokA, a)
	if (c1 > 0) != (c2 < 0) || (c1 < 0) != (c2 > 0) {
		t.Fatalf("Compare is not antisymmetric: %d vs %d", c1, c2)
	}
}

func TestCompareKeyBytesShorterFirst(t *testing.T) {
	if c := compareKeyBytes([]byte("ab"), []byte("abc")); c != -1 {
		t.Fatalf("compareKeyBytes(ab, abc) = %d, want -1", c)
	}
	if c := compareKeyBytes([]byte("abc"), []byte("ab")); c != 1 {
		t.Fatalf("compareKeyBytes(abc, ab) = %d, want 1", c)
	}
	if c := compareKeyBytes([]byte("abc"), []byte("abc")); c != 0 {
		t.Fatalf("compareKeyBytes(abc, abc) = %d, want 0", c)
	}
}

func TestByteOrderedComparesByKeyOnly(t *testing.T) {
	p := byteOrderedPartitioner{}
	if got := p.AssignToken([]byte("anything")); got != (Token{}) {
		t.Fatalf("byteOrderedPartitioner.AssignToken should return the zero token, got %v", got)
	}
	if c := p.Compare(Token{}, []byte("a"), Token{}, []byte("b")); c >= 0 {
		t.Fatalf("Compare(a,b) = %d, want < 0", c)
	}
}

func TestPartitionerByClassName(t *testing.T) {
	cases := map[string]string{
		"":                                             "Random",
		"org.apache.cassandra.dht.Murmur3Partitioner":  "Murmur3",
		"org.apache.cassandra.dht.RandomPartitioner":   "Random",
		"ByteOrderedPartitioner":                       "ByteOrdered",
		"OrderPreservingPartitioner":                   "OrderPreserving",
	}
	for name, want := range cases {
		p, err := PartitionerByClassName(name)
		if err != nil {
			t.Fatalf("PartitionerByClassName(%q): %v", name, err)
		}
		if p.Name() != want {
			t.Errorf("PartitionerByClassName(%q).Name() = %q, want %q", name, p.Name(), want)
		}
	}
	if _, err := PartitionerByClassName("org.apache.cassandra.dht.NoSuchPartitioner"); err == nil {
		t.Fatal("expected an error for an unrecognized partitioner class name")
	}
}
