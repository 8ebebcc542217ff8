// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import "testing"

func TestMappingTableMergesColinearEntries(t *testing.T) {
	table := NewMappingTable()
	if err := table.Append(0x1000, 0x2000, 0, "/bin/prog"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := table.Append(0x2000, 0x3000, 0x1000, "/bin/prog"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries := table.Entries()
	if len(entries) != 1 {
		t.Fatalf("want 1 merged entry, got %d", len(entries))
	}
	if entries[0].VAddrStart != 0x1000 || entries[0].VAddrEnd != 0x3000 {
		t.Errorf("merged range = [%s,%s), want [0x1000,0x3000)", entries[0].VAddrStart, entries[0].VAddrEnd)
	}
}

func TestMappingTableDoesNotMergeAcrossPaths(t *testing.T) {
	table := NewMappingTable()
	must(t, table.Append(0x1000, 0x2000, 0, "/bin/a"))
	must(t, table.Append(0x2000, 0x3000, 0x1000, "/bin/b"))
	if len(table.Entries()) != 2 {
		t.Fatalf("want 2 entries, got %d", len(table.Entries()))
	}
}

func TestMappingTableDoesNotMergeOnFileOffsetGap(t *testing.T) {
	table := NewMappingTable()
	must(t, table.Append(0x1000, 0x2000, 0, "/bin/a"))
	// Same path, colinear addresses, but the file offset jumps: not the
	// same underlying region, so no merge.
	must(t, table.Append(0x2000, 0x3000, 0x5000, "/bin/a"))
	if len(table.Entries()) != 2 {
		t.Fatalf("want 2 entries, got %d", len(table.Entries()))
	}
}

func TestMappingTableDropsZeroLengthEntry(t *testing.T) {
	table := NewMappingTable()
	must(t, table.Append(0x1000, 0x1000, 0, "/bin/a"))
	if len(table.Entries()) != 0 {
		t.Fatalf("want 0 entries for a zero-length mapping, got %d", len(table.Entries()))
	}
}

func TestMappingTableRejectsInvertedRange(t *testing.T) {
	table := NewMappingTable()
	if err := table.Append(0x2000, 0x1000, 0, "/bin/a"); err == nil {
		t.Fatal("want error for vstart > vend")
	}
}

func TestMappingTableAppendIsDeterministic(t *testing.T) {
	// Building two fresh tables from the exact same sequence of
	// NT_FILE-derived entries produces the same merged shape both
	// times.
	build := func() []*FileMapping {
		table := NewMappingTable()
		must(t, table.Append(0x1000, 0x2000, 0, "/bin/a"))
		must(t, table.Append(0x2000, 0x3000, 0x1000, "/bin/a"))
		must(t, table.Append(0x4000, 0x5000, 0, "/bin/b"))
		return table.Entries()
	}
	a, b := build(), build()
	if len(a) != len(b) {
		t.Fatalf("non-deterministic merge: %d vs %d entries", len(a), len(b))
	}
	for i := range a {
		if a[i].VAddrStart != b[i].VAddrStart || a[i].VAddrEnd != b[i].VAddrEnd || a[i].Path != b[i].Path {
			t.Errorf("entry %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestUniquePaths(t *testing.T) {
	table := NewMappingTable()
	must(t, table.Append(0x1000, 0x2000, 0, "/bin/a"))
	must(t, table.Append(0x3000, 0x4000, 0, "/bin/b"))
	must(t, table.Append(0x5000, 0x6000, 0, "/bin/a"))
	paths := table.UniquePaths()
	if len(paths) != 2 || paths[0] != "/bin/a" || paths[1] != "/bin/b" {
		t.Errorf("UniquePaths() = %v, want [/bin/a /bin/b]", paths)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
