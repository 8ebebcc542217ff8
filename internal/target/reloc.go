// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"debug/elf"
)

// Symbol is the record exchanged across the relocation boundary
// (spec.md §3). The relocation callback mutates only Address.
type Symbol struct {
	Name          string
	Address       Address
	IsEnumerator  bool
	QualifiedType any // owned by the external type index; opaque here
	LittleEndian  bool
	SValue        int64  // valid when IsEnumerator && the enum is signed
	UValue        uint64 // valid when IsEnumerator && the enum is unsigned
}

// RelocationRequest bundles what a relocation callback needs, per
// spec.md §4.6: the ELF the DWARF DIE came from, the symbol's name,
// the DIE itself (opaque to this package — owned by the DWARF/type
// index), and the mutable Symbol.
type RelocationRequest struct {
	Program *ELFFile
	Name    string
	DIE     any
	Symbol  *Symbol
}

// Value is a tiny handle into the external object/value API (spec.md
// §6), used only by the kernel ET_REL relocation branch to walk the
// in-kernel `modules` linked list. It carries just enough for
// ObjectAPI's methods to operate: an address and an opaque type tag
// the real implementation uses to know how to interpret it.
type Value struct {
	Addr Address
	Type any
}

// ObjectAPI is the capability trait spec.md §9 calls for: a narrow
// slice of the external object/value evaluation system, used only
// inside the kernel module relocation branch to walk the in-kernel
// `modules` linked list via container_of/member-dereference, without
// the relocation module itself knowing any memory layouts. A
// production implementation backs this with a full DWARF-aware value
// evaluator; internal/collab ships a minimal one for tests and the
// demo CLI.
type ObjectAPI interface {
	// GlobalRoot resolves a kernel global symbol (e.g. "modules") to
	// a Value.
	GlobalRoot(name string) (Value, error)
	ReadUnsigned(v Value) (uint64, error)
	ReadCString(v Value, max int) (string, error)
	MemberDereference(v Value, member string) (Value, error)
	ContainerOf(v Value, typeName, member string) (Value, error)
	Subscript(v Value, index int64) (Value, error)
	AddressOf(v Value) (Address, error)
}

// Relocator is the tagged-variant strategy spec.md §9 recommends in
// place of a bare function pointer: one implementation per {kernel,
// userspace}.
type Relocator interface {
	Relocate(req *RelocationRequest) error
}

// KernelRelocator implements the kernel branch of spec.md §4.6.
type KernelRelocator struct {
	KASLROffset uint64
	Objects     ObjectAPI // only used for ET_REL (module) requests
}

func (r *KernelRelocator) Relocate(req *RelocationRequest) error {
	switch req.Program.Type {
	case elf.ET_EXEC:
		req.Symbol.Address = req.Symbol.Address.Add(int64(r.KASLROffset))
		return nil
	case elf.ET_REL:
		return r.relocateModuleSymbol(req)
	default:
		return newErr(KindLookup, "unsupported ELF type for kernel relocation")
	}
}

func (r *KernelRelocator) relocateModuleSymbol(req *RelocationRequest) error {
	modinfo := req.Program.Section(".modinfo")
	symtabSec := req.Program.Section(".symtab")
	if modinfo == nil || symtabSec == nil {
		return newErr(KindLookup, "module ELF missing .modinfo or .symtab")
	}
	moduleName, err := moduleNameFromModinfo(modinfo)
	if err != nil {
		return err
	}

	sectionName, err := symbolSectionName(req.Program, uint64(req.Symbol.Address))
	if err != nil {
		return err
	}

	if r.Objects == nil {
		return newErr(KindLookup, "no object API available for module relocation")
	}
	modVal, err := findLoadedModule(r.Objects, moduleName)
	if err != nil {
		return err
	}
	addr, err := findModuleSectionAddress(r.Objects, modVal, sectionName)
	if err != nil {
		return err
	}
	req.Symbol.Address = req.Symbol.Address.Add(int64(addr))
	return nil
}

// moduleNameFromModinfo extracts the "name=" key from a .modinfo
// section, a NUL-separated sequence of "key=value" strings.
func moduleNameFromModinfo(sec *elf.Section) (string, error) {
	data, err := sec.Data()
	if err != nil {
		return "", wrapErr(KindLibelf, "reading .modinfo", err)
	}
	for _, field := range splitNUL(data) {
		if k, v, ok := cut(field, '='); ok && k == "name" {
			return v, nil
		}
	}
	return "", newErr(KindLookup, ".modinfo has no name= entry")
}

func splitNUL(b []byte) []string {
	var out []string
	start := 0
	for i, c := range b {
		if c == 0 {
			if i > start {
				out = append(out, string(b[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(b) {
		out = append(out, string(b[start:]))
	}
	return out
}

func cut(s string, sep byte) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// symbolSectionName finds the .symtab entry whose st_value equals
// addr and returns the name of the section it belongs to (spec.md
// §4.6: "read its containing section name from the section-header
// string table").
func symbolSectionName(ef *ELFFile, addr uint64) (string, error) {
	sym, err := ef.SymbolByAddress(addr)
	if err != nil {
		return "", err
	}
	if int(sym.Section) < 0 || int(sym.Section) >= len(ef.Sections) {
		return "", newErr(KindLookup, "symbol section index out of range")
	}
	return ef.Sections[sym.Section].Name, nil
}

// findLoadedModule walks the in-kernel `modules` linked list rooted at
// the global `modules` list_head, dereferencing `next` until the
// circular head is met, per spec.md §4.6.
func findLoadedModule(api ObjectAPI, moduleName string) (Value, error) {
	head, err := api.GlobalRoot("modules")
	if err != nil {
		return Value{}, newErr(KindLookup, "can't find kernel `modules` list")
	}
	cur, err := api.MemberDereference(head, "next")
	if err != nil {
		return Value{}, err
	}
	headAddr, err := api.AddressOf(head)
	if err != nil {
		return Value{}, err
	}
	for {
		curAddr, err := api.AddressOf(cur)
		if err != nil {
			return Value{}, err
		}
		if curAddr == headAddr {
			return Value{}, newErr(KindLookup, "module not found in kernel module list: "+moduleName)
		}
		mod, err := api.ContainerOf(cur, "module", "list")
		if err != nil {
			return Value{}, err
		}
		nameVal, err := api.MemberDereference(mod, "name")
		if err != nil {
			return Value{}, err
		}
		name, err := api.ReadCString(nameVal, 64)
		if err != nil {
			return Value{}, err
		}
		if name == moduleName {
			return mod, nil
		}
		cur, err = api.MemberDereference(cur, "next")
		if err != nil {
			return Value{}, err
		}
	}
}

// findModuleSectionAddress iterates module.sect_attrs.attrs[0..nsections],
// matching on name, per spec.md §4.6.
func findModuleSectionAddress(api ObjectAPI, mod Value, sectionName string) (uint64, error) {
	sectAttrs, err := api.MemberDereference(mod, "sect_attrs")
	if err != nil {
		return 0, err
	}
	nsectVal, err := api.MemberDereference(sectAttrs, "nsections")
	if err != nil {
		return 0, err
	}
	nsections, err := api.ReadUnsigned(nsectVal)
	if err != nil {
		return 0, err
	}
	attrs, err := api.MemberDereference(sectAttrs, "attrs")
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < int64(nsections); i++ {
		attr, err := api.Subscript(attrs, i)
		if err != nil {
			return 0, err
		}
		nameVal, err := api.MemberDereference(attr, "name")
		if err != nil {
			return 0, err
		}
		name, err := api.ReadCString(nameVal, 64)
		if err != nil {
			return 0, err
		}
		if name != sectionName {
			continue
		}
		addrVal, err := api.MemberDereference(attr, "address")
		if err != nil {
			return 0, err
		}
		return api.ReadUnsigned(addrVal)
	}
	return 0, newErr(KindLookup, "section not found in module attrs: "+sectionName)
}

// UserspaceRelocator implements the user-space branch of spec.md §4.6.
type UserspaceRelocator struct {
	Mappings *MappingTable
}

func (r *UserspaceRelocator) Relocate(req *RelocationRequest) error {
	phdr, err := findLoadSegment(req.Program, uint64(req.Symbol.Address))
	if err != nil {
		return err
	}
	fileOffset := int64(phdr.Off) + req.Symbol.Address.Sub(Address(phdr.Vaddr))
	m, err := r.Mappings.FindByFileOffset(req.Program.File, fileOffset)
	if err != nil {
		return err
	}
	req.Symbol.Address = m.VAddrStart.Add(fileOffset - m.FileOffset)
	return nil
}

func findLoadSegment(ef *ELFFile, addr uint64) (*elf.Prog, error) {
	for _, p := range ef.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if addr >= p.Vaddr && addr < p.Vaddr+p.Memsz {
			return p, nil
		}
	}
	return nil, newErr(KindLookup, "address not in any PT_LOAD segment")
}
