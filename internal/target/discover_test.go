// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindVmlinuxNoCandidateOpens(t *testing.T) {
	ef, found, err := FindVmlinux([]string{"/nonexistent/vmlinux-a", "/nonexistent/vmlinux-b"})
	if err != nil {
		t.Fatalf("FindVmlinux: %v", err)
	}
	if found || ef != nil {
		t.Errorf("FindVmlinux() = %v, %v, want nil, false", ef, found)
	}
}

func TestFindVmlinuxNonELFCandidateIsNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-elf")
	if err := os.WriteFile(path, []byte("not an ELF file"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, found, err := FindVmlinux([]string{path})
	if found {
		t.Error("want found=false for a non-ELF candidate")
	}
	if err != nil {
		t.Errorf("a single non-ELF candidate with nothing else tried should not surface an error: %v", err)
	}
}

func TestDiscoverModulesNoRootExists(t *testing.T) {
	roots := []ModuleSearchRoot{{Dir: "/nonexistent/modules/root", Suffix: ".ko"}}
	res, err := DiscoverModules(roots, func(string) (bool, error) { return false, nil })
	if err != nil {
		t.Fatalf("DiscoverModules: %v", err)
	}
	if res.RootExisted {
		t.Error("want RootExisted=false when no root directory exists")
	}
}

func TestDiscoverModulesWalksMatchingSuffix(t *testing.T) {
	dir := t.TempDir()
	moduleDir := filepath.Join(dir, "kernel")
	if err := os.MkdirAll(moduleDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.ko", "b.ko", "c.txt"} {
		if err := os.WriteFile(filepath.Join(moduleDir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var offered []string
	res, err := DiscoverModules([]ModuleSearchRoot{{Dir: moduleDir, Suffix: ".ko"}}, func(p string) (bool, error) {
		offered = append(offered, p)
		return true, nil
	})
	if err != nil {
		t.Fatalf("DiscoverModules: %v", err)
	}
	if len(offered) != 2 {
		t.Fatalf("offered %d files, want 2 (.ko only): %v", len(offered), offered)
	}
	if len(res.Found) != 2 {
		t.Errorf("Found = %v, want 2 entries", res.Found)
	}
}

func TestDiscoverModulesTreatsMissingDebugAsNonFatal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.ko"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := DiscoverModules([]ModuleSearchRoot{{Dir: dir, Suffix: ".ko"}}, func(string) (bool, error) {
		return false, newErr(KindMissingDebug, "no DWARF")
	})
	if err != nil {
		t.Fatalf("DiscoverModules should tolerate KindMissingDebug per-file, got: %v", err)
	}
	if res.MissingCount != 1 {
		t.Errorf("MissingCount = %d, want 1", res.MissingCount)
	}
}

func TestDiscoverUserspaceDebugInfoSwallowsNotELF(t *testing.T) {
	table := NewMappingTable()
	must(t, table.Append(0x1000, 0x2000, 0, "/bin/prog"))
	found, err := DiscoverUserspaceDebugInfo(table, func(string) (bool, error) {
		return false, newErr(KindNotELF, "not elf")
	})
	if err != nil {
		t.Fatalf("want tolerated error, got: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("found = %v, want none", found)
	}
}

func TestDiscoverUserspaceDebugInfoPropagatesFatalError(t *testing.T) {
	table := NewMappingTable()
	must(t, table.Append(0x1000, 0x2000, 0, "/bin/prog"))
	_, err := DiscoverUserspaceDebugInfo(table, func(string) (bool, error) {
		return false, newErr(KindOther, "disk on fire")
	})
	if err == nil {
		t.Fatal("want a non-tolerable error to propagate")
	}
}
