// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collab

import (
	"testing"

	itarget "github.com/nrednav/corewalk/internal/target"
)

func TestFakeTypeIndexFindRegistered(t *testing.T) {
	idx := NewFakeTypeIndex(8, true)
	idx.Register(&QualifiedType{Name: "struct task_struct", Kind: KindStruct})
	qt, err := idx.Find("struct task_struct", "", "c")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if qt.Kind != KindStruct {
		t.Errorf("Kind = %v, want KindStruct", qt.Kind)
	}
}

func TestFakeTypeIndexFallsBackToFinder(t *testing.T) {
	idx := NewFakeTypeIndex(8, true)
	called := false
	idx.AddFinder(func(name, filename, language string) (*QualifiedType, bool, error) {
		called = true
		if name == "int" {
			return &QualifiedType{Name: "int", Kind: KindBase, ByteSize: 4}, true, nil
		}
		return nil, false, nil
	})
	qt, err := idx.Find("int", "", "c")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !called {
		t.Error("finder was never invoked")
	}
	if qt.ByteSize != 4 {
		t.Errorf("ByteSize = %d, want 4", qt.ByteSize)
	}
}

func TestFakeTypeIndexNotFound(t *testing.T) {
	idx := NewFakeTypeIndex(8, true)
	if _, err := idx.Find("nope", "", ""); err == nil {
		t.Fatal("want error for an unregistered type")
	}
}

func TestFakeTypeIndexFindMemberRejectsNonStruct(t *testing.T) {
	idx := NewFakeTypeIndex(8, true)
	if _, err := idx.FindMember(&QualifiedType{Kind: KindBase}, "x"); err == nil {
		t.Fatal("want error calling FindMember on a non-struct type")
	}
}

func TestFakeSymbolIndexEnumeratorSkipsRelocation(t *testing.T) {
	// spec.md §8 scenario 6: an enumerator constant must resolve without
	// invoking the relocation callback and without any memory read.
	idx := NewFakeSymbolIndex()
	idx.Register(itarget.Symbol{Name: "TASK_RUNNING", IsEnumerator: true, SValue: 0}, nil, nil)
	relocCalled := false
	idx.SetRelocationCallback(func(*itarget.RelocationRequest) error {
		relocCalled = true
		return nil
	})
	sym, err := idx.Find("TASK_RUNNING", "", SymbolFlagConstant)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !sym.IsEnumerator {
		t.Error("want IsEnumerator true")
	}
	if relocCalled {
		t.Error("relocation callback was invoked for an enumerator constant")
	}
}

func TestFakeSymbolIndexInvokesRelocationForVariable(t *testing.T) {
	idx := NewFakeSymbolIndex()
	idx.Register(itarget.Symbol{Name: "jiffies", Address: 0x1000}, nil, nil)
	var seenReq *itarget.RelocationRequest
	idx.SetRelocationCallback(func(req *itarget.RelocationRequest) error {
		seenReq = req
		req.Symbol.Address = req.Symbol.Address.Add(0x2000)
		return nil
	})
	sym, err := idx.Find("jiffies", "", SymbolFlagVariable)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if seenReq == nil {
		t.Fatal("relocation callback was never invoked")
	}
	if sym.Address != 0x3000 {
		t.Errorf("Address = %s, want 0x3000", sym.Address)
	}
}

func TestFakeSymbolIndexNotFound(t *testing.T) {
	idx := NewFakeSymbolIndex()
	if _, err := idx.Find("nope", "", 0); err == nil {
		t.Fatal("want error for an unregistered symbol")
	}
}

func TestFakeObjectAPIMemberAndContainerOf(t *testing.T) {
	api := NewFakeObjectAPI()
	head := itarget.Value{Addr: 0x1000, Type: "list_head"}
	modListField := itarget.Value{Addr: 0x2008, Type: "list_head"} // &mod.list
	api.Roots["modules"] = head
	api.Members[head.Addr] = map[string]itarget.Value{"next": modListField}
	api.ContainerOffsets["module.list"] = 8 // list_head is 8 bytes into module

	got, err := api.GlobalRoot("modules")
	if err != nil || got.Addr != head.Addr {
		t.Fatalf("GlobalRoot = %v, %v", got, err)
	}
	next, err := api.MemberDereference(head, "next")
	if err != nil || next.Addr != modListField.Addr {
		t.Fatalf("MemberDereference = %v, %v", next, err)
	}
	mod, err := api.ContainerOf(next, "module", "list")
	if err != nil {
		t.Fatalf("ContainerOf: %v", err)
	}
	if mod.Addr != 0x2000 {
		t.Errorf("container address = %s, want 0x2000", mod.Addr)
	}
}

func TestFakeObjectAPISubscript(t *testing.T) {
	api := NewFakeObjectAPI()
	arr := itarget.Value{Addr: 0x4000, Type: "attrs"}
	elem := itarget.Value{Addr: 0x4010, Type: "attr"}
	api.Members[arr.Addr] = map[string]itarget.Value{"[2]": elem}
	got, err := api.Subscript(arr, 2)
	if err != nil {
		t.Fatalf("Subscript: %v", err)
	}
	if got.Addr != elem.Addr {
		t.Errorf("Subscript(2) = %s, want %s", got.Addr, elem.Addr)
	}
}

func TestFakeObjectAPIReadCStringTruncatesAtMax(t *testing.T) {
	api := NewFakeObjectAPI()
	v := itarget.Value{Addr: 0x5000}
	api.CStrs[v.Addr] = "ext4"
	s, err := api.ReadCString(v, 2)
	if err != nil {
		t.Fatalf("ReadCString: %v", err)
	}
	if s != "ex" {
		t.Errorf("ReadCString truncated to %q, want %q", s, "ex")
	}
}
