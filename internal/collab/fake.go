// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collab

import (
	itarget "github.com/nrednav/corewalk/internal/target"
)

// FakeTypeIndex is a minimal, in-memory TypeIndex: a name-keyed table
// plus the AddFinder extension point spec.md §6 describes. It is not a
// DWARF type system (that is explicitly out of spec.md §1's scope);
// it exists so the Session API can be exercised without one.
type FakeTypeIndex struct {
	WordSize     int
	LittleEndian bool

	byName  map[string]*QualifiedType
	finders []TypeFinder
}

// NewFakeTypeIndex mirrors spec.md §6's create(word_size,
// little_endian).
func NewFakeTypeIndex(wordSize int, littleEndian bool) *FakeTypeIndex {
	return &FakeTypeIndex{
		WordSize:     wordSize,
		LittleEndian: littleEndian,
		byName:       make(map[string]*QualifiedType),
	}
}

// Register adds a type directly, for tests and for a DWARF index's
// own population step (not part of the spec.md §6 contract, but
// needed by any concrete TypeIndex).
func (idx *FakeTypeIndex) Register(t *QualifiedType) {
	idx.byName[t.Name] = t
}

func (idx *FakeTypeIndex) AddFinder(fn TypeFinder) {
	idx.finders = append(idx.finders, fn)
}

func (idx *FakeTypeIndex) Find(name, filename, language string) (*QualifiedType, error) {
	if t, ok := idx.byName[name]; ok {
		return t, nil
	}
	for _, fn := range idx.finders {
		if t, ok, err := fn(name, filename, language); err != nil {
			return nil, err
		} else if ok {
			return t, nil
		}
	}
	return nil, &itarget.Error{Kind: itarget.KindLookup, Msg: "type not found: " + name}
}

func (idx *FakeTypeIndex) FindMember(t *QualifiedType, name string) (*Member, error) {
	if t.Kind != KindStruct {
		return nil, &itarget.Error{Kind: itarget.KindInvalidArgument, Msg: "not a struct type"}
	}
	for i := range t.Members {
		if t.Members[i].Name == name {
			return &t.Members[i], nil
		}
	}
	return nil, &itarget.Error{Kind: itarget.KindLookup, Msg: "no such member: " + name}
}

// symbolEntry is what FakeSymbolIndex keeps per registered symbol:
// everything Find needs to build a RelocationRequest.
type symbolEntry struct {
	sym     itarget.Symbol
	program *itarget.ELFFile
	die     any
}

// FakeSymbolIndex is a minimal, in-memory SymbolIndex: a name-keyed
// table of pre-populated symbols (standing in for a real DWARF-backed
// index's DIE walk) that still runs every lookup through the
// registered relocation callback, exactly as spec.md §4.6/§6 require.
type FakeSymbolIndex struct {
	byName map[string]*symbolEntry
	reloc  func(*itarget.RelocationRequest) error
}

func NewFakeSymbolIndex() *FakeSymbolIndex {
	return &FakeSymbolIndex{byName: make(map[string]*symbolEntry)}
}

// Register adds a symbol as it would appear in DWARF, before
// relocation: Address is the link-time/DWARF-declared address.
func (idx *FakeSymbolIndex) Register(sym itarget.Symbol, program *itarget.ELFFile, die any) {
	idx.byName[sym.Name] = &symbolEntry{sym: sym, program: program, die: die}
}

func (idx *FakeSymbolIndex) SetRelocationCallback(cb func(*itarget.RelocationRequest) error) {
	idx.reloc = cb
}

func (idx *FakeSymbolIndex) Find(name, filename string, flags SymbolFlags) (*itarget.Symbol, error) {
	e, ok := idx.byName[name]
	if !ok {
		return nil, &itarget.Error{Kind: itarget.KindLookup, Msg: "symbol not found: " + name}
	}
	sym := e.sym // copy: the callback must only mutate the copy we hand out
	if sym.IsEnumerator {
		// Enumerators are immediate constants; spec.md §8 scenario 6
		// requires no memory read and, by extension, no relocation.
		return &sym, nil
	}
	if idx.reloc != nil {
		req := &itarget.RelocationRequest{Program: e.program, Name: name, DIE: e.die, Symbol: &sym}
		if err := idx.reloc(req); err != nil {
			return nil, err
		}
	}
	return &sym, nil
}

// FakeObjectAPI implements ObjectAPI (internal/target's capability
// trait, spec.md §9) against an explicit in-memory graph of values,
// standing in for a real object/value evaluator walking target
// memory. It exists only to let the kernel ET_REL relocation branch
// and its tests run without a live kernel.
type FakeObjectAPI struct {
	Roots   map[string]itarget.Value
	Members map[itarget.Address]map[string]itarget.Value // addr -> member name -> value
	CStrs   map[itarget.Address]string
	Uints   map[itarget.Address]uint64
	// ContainerOf offsets: keyed by (typeName, member), the byte
	// delta subtracted from the member's address to reach the
	// container's address (a stand-in for a real container_of, which
	// would consult DWARF's member byte offset for typeName.member).
	ContainerOffsets map[string]int64
}

func NewFakeObjectAPI() *FakeObjectAPI {
	return &FakeObjectAPI{
		Roots:            make(map[string]itarget.Value),
		Members:          make(map[itarget.Address]map[string]itarget.Value),
		CStrs:            make(map[itarget.Address]string),
		Uints:            make(map[itarget.Address]uint64),
		ContainerOffsets: make(map[string]int64),
	}
}

func (o *FakeObjectAPI) GlobalRoot(name string) (itarget.Value, error) {
	v, ok := o.Roots[name]
	if !ok {
		return itarget.Value{}, &itarget.Error{Kind: itarget.KindLookup, Msg: "no such global: " + name}
	}
	return v, nil
}

func (o *FakeObjectAPI) ReadUnsigned(v itarget.Value) (uint64, error) {
	u, ok := o.Uints[v.Addr]
	if !ok {
		return 0, &itarget.Error{Kind: itarget.KindFault, Msg: "no value at address"}
	}
	return u, nil
}

func (o *FakeObjectAPI) ReadCString(v itarget.Value, max int) (string, error) {
	s, ok := o.CStrs[v.Addr]
	if !ok {
		return "", &itarget.Error{Kind: itarget.KindFault, Msg: "no string at address"}
	}
	if len(s) > max {
		s = s[:max]
	}
	return s, nil
}

func (o *FakeObjectAPI) MemberDereference(v itarget.Value, member string) (itarget.Value, error) {
	members, ok := o.Members[v.Addr]
	if !ok {
		return itarget.Value{}, &itarget.Error{Kind: itarget.KindLookup, Msg: "no members at address"}
	}
	mv, ok := members[member]
	if !ok {
		return itarget.Value{}, &itarget.Error{Kind: itarget.KindLookup, Msg: "no such member: " + member}
	}
	return mv, nil
}

func (o *FakeObjectAPI) ContainerOf(v itarget.Value, typeName, member string) (itarget.Value, error) {
	off, ok := o.ContainerOffsets[typeName+"."+member]
	if !ok {
		return itarget.Value{}, &itarget.Error{Kind: itarget.KindLookup, Msg: "no container_of offset for " + typeName + "." + member}
	}
	return itarget.Value{Addr: v.Addr.Add(-off), Type: typeName}, nil
}

func (o *FakeObjectAPI) Subscript(v itarget.Value, index int64) (itarget.Value, error) {
	members, ok := o.Members[v.Addr]
	if !ok {
		return itarget.Value{}, &itarget.Error{Kind: itarget.KindLookup, Msg: "no array at address"}
	}
	key := indexKey(index)
	mv, ok := members[key]
	if !ok {
		return itarget.Value{}, &itarget.Error{Kind: itarget.KindLookup, Msg: "index out of range"}
	}
	return mv, nil
}

func (o *FakeObjectAPI) AddressOf(v itarget.Value) (itarget.Address, error) {
	return v.Addr, nil
}

func indexKey(i int64) string {
	const digits = "0123456789"
	if i == 0 {
		return "[0]"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf []byte
	for i > 0 {
		buf = append([]byte{digits[i%10]}, buf...)
		i /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return "[" + string(buf) + "]"
}
