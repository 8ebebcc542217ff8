// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"os"
	"sort"
)

// ReaderFunc serves a read of n bytes at offset off into a segment
// (off is relative to the segment's own start, not an absolute
// address). It is the Go-idiomatic replacement for the {reader_fn,
// reader_arg} pair in spec.md §4.1 — a closure captures whatever
// state a C implementation would have passed through the void* arg.
type ReaderFunc func(dst []byte, off int64) error

// MemorySegment is a single entry in the Memory Reader's segment
// table (spec.md §3). It is added once during bootstrap and immutable
// thereafter.
type MemorySegment struct {
	VAddrStart, VAddrEnd Address
	HasPAddr             bool
	PAddrStart           Address
	read                 ReaderFunc
}

func (s *MemorySegment) vsize() int64 { return s.VAddrEnd.Sub(s.VAddrStart) }

// MemoryReader is the segment table mapping an address range (virtual
// or physical) to a backing byte source. It generalizes the teacher's
// splicedMemory/page-table combination (core/mapping.go's
// pageTable0..4, findMapping, addMapping) to support both address
// axes, per spec.md §4.1.
type MemoryReader struct {
	segs []*MemorySegment // sorted by VAddrStart; axis used for virtual reads

	// physical segments, sorted by PAddrStart; axis used for physical
	// reads. A segment with HasPAddr appears in both slices.
	pSegs []*MemorySegment

	sorted bool
}

// AddSegment registers a new segment. Segments must not overlap on
// either axis they participate in; AddSegment does not itself verify
// this (bootstrap order guarantees it in every caller in this
// package), matching the teacher's own "just append, sort+merge once
// at the end" style in internal/core/process.go's Core().
func (m *MemoryReader) AddSegment(seg *MemorySegment) {
	m.segs = append(m.segs, seg)
	if seg.HasPAddr {
		m.pSegs = append(m.pSegs, seg)
	}
	m.sorted = false
}

// AddFileSegment is a convenience wrapper around AddSegment for the
// common case of a segment backed by a byte range of an open file —
// the default reader named drgn_read_memory_file in spec.md §4.1.
func (m *MemoryReader) AddFileSegment(vstart, vend Address, hasPAddr bool, pstart Address, f *os.File, fileOffset, fileSize int64) {
	seg := &MemorySegment{
		VAddrStart: vstart,
		VAddrEnd:   vend,
		HasPAddr:   hasPAddr,
		PAddrStart: pstart,
	}
	seg.read = fileSegmentReader(f, fileOffset, fileSize)
	m.AddSegment(seg)
}

// fileSegmentReader builds the default file-backed ReaderFunc: read
// count bytes at fileOffset+off, failing KindFault if the read would
// run past fileSize (spec.md §4.1's drgn_read_memory_file).
func fileSegmentReader(f *os.File, fileOffset, fileSize int64) ReaderFunc {
	return func(dst []byte, off int64) error {
		if off < 0 || off+int64(len(dst)) > fileSize {
			return newErr(KindFault, "read past end of segment")
		}
		n, err := f.ReadAt(dst, fileOffset+off)
		if err != nil && n < len(dst) {
			return osErr("pread", f.Name(), err)
		}
		return nil
	}
}

// ZeroReader serves reads as all-zero bytes, used for segments for
// which no backing data source was found (the teacher's "assume all
// zero" handling of mappings with m.f == nil in internal/core/process.go's Core()).
func ZeroReader() ReaderFunc {
	return func(dst []byte, off int64) error {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
}

func (m *MemoryReader) ensureSorted() {
	if m.sorted {
		return
	}
	sort.Slice(m.segs, func(i, j int) bool { return m.segs[i].VAddrStart < m.segs[j].VAddrStart })
	sort.Slice(m.pSegs, func(i, j int) bool { return m.pSegs[i].PAddrStart < m.pSegs[j].PAddrStart })
	m.sorted = true
}

func (m *MemoryReader) findVirtual(a Address) *MemorySegment {
	m.ensureSorted()
	i := sort.Search(len(m.segs), func(i int) bool { return m.segs[i].VAddrEnd > a })
	if i == len(m.segs) || a < m.segs[i].VAddrStart {
		return nil
	}
	return m.segs[i]
}

func (m *MemoryReader) findPhysical(a Address) *MemorySegment {
	m.ensureSorted()
	i := sort.Search(len(m.pSegs), func(i int) bool {
		s := m.pSegs[i]
		return s.PAddrStart.Add(s.vsize()) > a
	})
	if i == len(m.pSegs) || a < m.pSegs[i].PAddrStart {
		return nil
	}
	return m.pSegs[i]
}

// Read reads count bytes at address, selecting the virtual or
// physical axis per physical, and fails KindLookup if no segment
// contains address (spec.md §4.1). Only the start address is checked
// against the segment table; a request that runs past the segment's
// end is left to the segment's reader (the file-backed reader fails
// KindFault past its file size, ZeroReader does not check).
func (m *MemoryReader) Read(buf []byte, address Address, physical bool) error {
	var seg *MemorySegment
	var segStart Address
	if physical {
		seg = m.findPhysical(address)
		if seg != nil {
			segStart = seg.PAddrStart
		}
	} else {
		seg = m.findVirtual(address)
		if seg != nil {
			segStart = seg.VAddrStart
		}
	}
	if seg == nil {
		return newErr(KindLookup, "address not backed by any segment")
	}
	off := address.Sub(segStart)
	return seg.read(buf, off)
}
