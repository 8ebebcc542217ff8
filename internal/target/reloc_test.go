// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"debug/elf"
	"testing"
)

func TestKernelRelocatorETExecAddsKASLROffset(t *testing.T) {
	r := &KernelRelocator{KASLROffset: 0x1000}
	prog := &ELFFile{File: &elf.File{FileHeader: elf.FileHeader{Type: elf.ET_EXEC}}}
	sym := &Symbol{Name: "jiffies", Address: 0xffffffff81000000}
	req := &RelocationRequest{Program: prog, Name: "jiffies", Symbol: sym}
	if err := r.Relocate(req); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if sym.Address != 0xffffffff81001000 {
		t.Errorf("Address = %s, want 0xffffffff81001000", sym.Address)
	}
}

func TestKernelRelocatorUnsupportedTypeFails(t *testing.T) {
	r := &KernelRelocator{}
	prog := &ELFFile{File: &elf.File{FileHeader: elf.FileHeader{Type: elf.ET_DYN}}}
	req := &RelocationRequest{Program: prog, Symbol: &Symbol{}}
	if err := r.Relocate(req); err == nil {
		t.Fatal("want error for an unsupported ELF type")
	}
}

func TestUserspaceRelocatorTranslatesAddress(t *testing.T) {
	ef := &elf.File{
		FileHeader: elf.FileHeader{Type: elf.ET_DYN},
		Progs: []*elf.Prog{
			{ProgHeader: elf.ProgHeader{Type: elf.PT_LOAD, Vaddr: 0, Off: 0, Filesz: 0x2000, Memsz: 0x2000}},
		},
	}

	table := NewMappingTable()
	// The mapping's ELF handle must be the exact same *elf.File pointer
	// FindByFileOffset compares against.
	table.entries = append(table.entries, &FileMapping{
		VAddrStart: 0x7f0000000000,
		VAddrEnd:   0x7f0000002000,
		FileOffset: 0,
		Path:       "/usr/lib/libfoo.so",
		ELF:        ef,
	})

	r := &UserspaceRelocator{Mappings: table}
	// Symbol.Address starts out as the DWARF/link-time address, 0x1000
	// into the (single) PT_LOAD segment.
	sym := &Symbol{Address: 0x1000}
	req := &RelocationRequest{Program: &ELFFile{File: ef}, Symbol: sym}
	if err := r.Relocate(req); err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	want := Address(0x7f0000001000)
	if sym.Address != want {
		t.Errorf("Address = %s, want %s", sym.Address, want)
	}
}

func TestFindLoadSegmentNotFound(t *testing.T) {
	ef := &ELFFile{File: &elf.File{Progs: []*elf.Prog{
		{ProgHeader: elf.ProgHeader{Type: elf.PT_LOAD, Vaddr: 0x1000, Memsz: 0x1000}},
	}}}
	if _, err := findLoadSegment(ef, 0x5000); err == nil {
		t.Fatal("want error for an address outside every PT_LOAD segment")
	}
}

func TestSplitNUL(t *testing.T) {
	got := splitNUL([]byte("name=foo\x00version=1.0\x00"))
	want := []string{"name=foo", "version=1.0"}
	if len(got) != len(want) {
		t.Fatalf("splitNUL() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitNUL() = %v, want %v", got, want)
		}
	}
}

func TestCutFindsFirstSeparator(t *testing.T) {
	k, v, ok := cut("name=foo=bar", '=')
	if !ok || k != "name" || v != "foo=bar" {
		t.Errorf("cut() = %q, %q, %v, want \"name\", \"foo=bar\", true", k, v, ok)
	}
}

func TestCutNoSeparator(t *testing.T) {
	_, _, ok := cut("noequals", '=')
	if ok {
		t.Error("cut() found a separator that isn't there")
	}
}

func TestKernelRelocatorETRelWithoutSectionsFails(t *testing.T) {
	// moduleNameFromModinfo calls sec.Data(), which requires a section
	// backed by a real reader; the no-.modinfo path is exercised via
	// relocateModuleSymbol's nil check instead (see reloc.go), since a
	// *elf.Section built without elf.NewFile cannot serve Data().
	r := &KernelRelocator{}
	prog := &ELFFile{File: &elf.File{FileHeader: elf.FileHeader{Type: elf.ET_REL}}}
	req := &RelocationRequest{Program: prog, Symbol: &Symbol{}}
	if err := r.Relocate(req); err == nil {
		t.Fatal("want error when ET_REL program has no .modinfo/.symtab sections")
	}
}
