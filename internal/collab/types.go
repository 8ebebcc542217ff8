// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package collab implements the external collaborator interfaces
// spec.md §6 names but places out of this core's scope: a DWARF type
// index, a symbol index, and the object/value evaluation API the
// kernel relocation branch needs. corewalk's bootstrap and
// address-translation layer (internal/target, target) is the thing
// under specification; this package is a minimal, clearly-labeled
// stand-in for the systems a real debugger would plug in instead, kept
// just complete enough to exercise the relocation callback and the
// Session API end to end.
package collab

import (
	itarget "github.com/nrednav/corewalk/internal/target"
)

// TypeKind distinguishes the handful of DWARF type shapes the
// relocation and member/element introspection paths need to tell
// apart (spec.md §6's find_member, and the External Interfaces'
// session_member_info/session_element_info).
type TypeKind int

const (
	KindBase TypeKind = iota
	KindStruct
	KindPointer
	KindArray
	KindEnum
)

// Member describes one field of a struct type.
type Member struct {
	Name         string
	Type         *QualifiedType
	BitOffset    uint64
	BitFieldSize uint64 // 0 when not a bitfield
}

// Enumerator is one named value of an enum type.
type Enumerator struct {
	Name    string
	Signed  bool
	SValue  int64
	UValue  uint64
}

// QualifiedType stands in for the DWARF type-index's richer qualified
// type (cv-qualifiers, language, etc.) — corewalk only needs enough of
// it to answer member/element queries and to tell an enumerator's
// signedness apart (spec.md §6, §8 scenario 6).
type QualifiedType struct {
	Name         string
	Kind         TypeKind
	ByteSize     int64
	ElemType     *QualifiedType // set for KindPointer, KindArray
	ElemBitSize  int64          // set for KindPointer, KindArray
	Members      []Member       // set for KindStruct
	Enumerators  map[string]Enumerator
	EnumSigned   bool
}

// TypeFinder is registered with a TypeIndex via AddFinder, per spec.md
// §6's add_finder(fn, arg). Each finder gets a chance to resolve name
// before the index gives up.
type TypeFinder func(name, filename, language string) (*QualifiedType, bool, error)

// TypeIndex is spec.md §6's external type index: "create(word_size,
// little_endian), add_finder(fn, arg), find(name, filename, language),
// find_member(type, name, len)".
type TypeIndex interface {
	AddFinder(fn TypeFinder)
	Find(name, filename, language string) (*QualifiedType, error)
	FindMember(t *QualifiedType, name string) (*Member, error)
}

// SymbolFlags narrows a SymbolIndex.Find / FindObject lookup, per
// spec.md §6's find(name, filename, flags) and
// session_find_object(..., kind_flags).
type SymbolFlags uint32

const (
	SymbolFlagNone     SymbolFlags = 0
	SymbolFlagVariable SymbolFlags = 1 << iota
	SymbolFlagFunction
	SymbolFlagConstant
)

// SymbolIndex is spec.md §6's external symbol index: "find(name,
// filename, flags) that invokes the registered relocation callback".
type SymbolIndex interface {
	SetRelocationCallback(cb func(*itarget.RelocationRequest) error)
	Find(name, filename string, flags SymbolFlags) (*itarget.Symbol, error)
}
