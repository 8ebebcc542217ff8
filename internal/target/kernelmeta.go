// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"bufio"
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// procfsMagic is the f_type value statfs(2) reports for procfs, per
// spec.md §4.4 step 2.
const procfsMagic = 0x9fa0

// vmcoreinfoSysfsPath is read to locate VMCOREINFO when probing
// /proc/kcore, per spec.md §4.4 step 3.
const vmcoreinfoSysfsPath = "/sys/kernel/vmcoreinfo"

// KernelBootstrapInput bundles what the Kernel Metadata Resolver needs
// from the note pass and the core dump's program headers, so it does
// not have to know how a *target.Target assembles those (the
// resolver is exercised directly in tests without a full bootstrap).
type KernelBootstrapInput struct {
	VMCOREINFONote   *VmcoreInfo // non-nil if an in-dump VMCOREINFO note parsed
	HaveTaskStruct   bool
	HaveNonZeroPAddr bool // any PT_LOAD declared a non-zero p_paddr
	BackingPath      string
	BackingFile      *os.File
}

// ResolveKernelMetadata runs the four-branch decision tree of spec.md
// §4.4. Branches 2-4 are only attempted when branch 1 (an in-dump
// note) is unavailable.
func ResolveKernelMetadata(in KernelBootstrapInput, warn func(string)) (*VmcoreInfo, error) {
	// 1. In-dump VMCOREINFO note.
	if in.VMCOREINFONote != nil {
		return in.VMCOREINFONote, nil
	}

	// 2. NT_TASKSTRUCT present and backing file looks like /proc/kcore.
	if in.HaveTaskStruct {
		isKcore, statErr := looksLikeProcfs(in.BackingPath)
		if statErr != nil {
			// Open Question (spec.md §9): the original swallows this
			// error via an unreachable goto. corewalk decides
			// explicitly: a failed statfs means "not kcore", and the
			// failure is surfaced as a warning rather than dropped.
			if warn != nil {
				warn(fmt.Sprintf("statfs %s: %v (treating as not /proc/kcore)", in.BackingPath, statErr))
			}
		} else if isKcore {
			return resolveViaKcore(in, warn)
		}
	}

	return nil, newErr(KindInvalidArgument, "core dump has neither NT_FILE nor VMCOREINFO")
}

func looksLikeProcfs(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return false, osErr("statfs", path, err)
	}
	return int64(st.Type) == procfsMagic, nil
}

func resolveViaKcore(in KernelBootstrapInput, warn func(string)) (*VmcoreInfo, error) {
	// 3. Physical-address path: only possible when program headers
	// advertised non-zero physical addresses.
	if in.HaveNonZeroPAddr {
		info, err := resolveViaSysfsVmcoreinfo(in.BackingFile)
		if err == nil {
			return info, nil
		}
		if warn != nil {
			warn(fmt.Sprintf("reading %s: %v, falling back to kallsyms diff", vmcoreinfoSysfsPath, err))
		}
	}

	// 4. Fallback: uname release + kallsyms/vmlinux _stext diff.
	return resolveViaKallsymsDiff()
}

// resolveViaSysfsVmcoreinfo implements spec.md §4.4 step 3: read
// "%llx %llx\n" from /sys/kernel/vmcoreinfo to get the physical
// address and size of the VMCOREINFO note, read it via the physical
// segment reader, validate the Elf64_Nhdr + "VMCOREINFO" name
// (n_namesz == 11, i.e. 10 chars + NUL), then parse the descriptor.
func resolveViaSysfsVmcoreinfo(backing *os.File) (*VmcoreInfo, error) {
	raw, err := os.ReadFile(vmcoreinfoSysfsPath)
	if err != nil {
		return nil, osErr("read", vmcoreinfoSysfsPath, err)
	}
	var addr, size uint64
	if _, err := fmt.Sscanf(string(raw), "%x %x\n", &addr, &size); err != nil {
		return nil, wrapErr(KindOther, "malformed "+vmcoreinfoSysfsPath, err)
	}

	// Read the note header + name + descriptor as a physical read
	// against the backing /proc/kcore file. The Elf64_Nhdr is three
	// 4-byte words (namesz, descsz, type) followed by the (padded)
	// name and the (padded) descriptor.
	hdr := make([]byte, 12)
	if _, err := backing.ReadAt(hdr, int64(addr)); err != nil {
		return nil, osErr("pread", backing.Name(), err)
	}
	c := NewCursor(hdr, binary.LittleEndian)
	namesz := c.Uint32()
	descsz := c.Uint32()
	_ = c.Uint32() // n_type, unchecked: only the name identifies VMCOREINFO
	if namesz != 11 {
		return nil, newErr(KindELFFormat, "vmcoreinfo note has unexpected name length")
	}
	nameBuf := make([]byte, 12) // namesz padded to 4
	if _, err := backing.ReadAt(nameBuf, int64(addr)+12); err != nil {
		return nil, osErr("pread", backing.Name(), err)
	}
	if string(nameBuf[:10]) != "VMCOREINFO" {
		return nil, newErr(KindELFFormat, "vmcoreinfo note name mismatch")
	}
	descOff := int64(addr) + 12 + 12
	if uint64(descOff-int64(addr))+uint64(descsz) > size {
		return nil, newErr(KindELFFormat, "vmcoreinfo descriptor outside advertised size")
	}
	desc := make([]byte, descsz)
	if _, err := backing.ReadAt(desc, descOff); err != nil {
		return nil, osErr("pread", backing.Name(), err)
	}
	return ParseVMCOREINFO(desc)
}

// resolveViaKallsymsDiff implements spec.md §4.4 step 4.
func resolveViaKallsymsDiff() (*VmcoreInfo, error) {
	release, err := unameRelease()
	if err != nil {
		return nil, err
	}

	kallsymsAddr, err := lookupKallsyms("_stext")
	if err != nil {
		return nil, err
	}

	vmlinux, found, err := FindVmlinux(DefaultVmlinuxSearchPath(release))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newErr(KindMissingDebug, "no vmlinux found for kallsyms fallback")
	}
	defer vmlinux.Close()

	sym, err := vmlinux.SymbolByName("_stext")
	if err != nil {
		return nil, err
	}

	return &VmcoreInfo{
		OSRelease:   release,
		KASLROffset: kallsymsAddr - sym.Value,
		haveKASLR:   true,
	}, nil
}

func unameRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", osErr("uname", "", err)
	}
	return cstr(uts.Release[:]), nil
}

func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// lookupKallsyms scans /proc/kallsyms for name, a whitespace-delimited
// three-column text file (hex address, type, symbol name), per
// spec.md §6. Grounded on
// other_examples/219afcd5_VladMinzatu-ebpf-profiler__internal-symbolizer-kernel_symbolizer.go.go's
// NewKallsymsResolver, which parses the same file the same way
// (bufio.Scanner + strings.Fields + strconv.ParseUint base 16).
func lookupKallsyms(name string) (uint64, error) {
	f, err := os.Open("/proc/kallsyms")
	if err != nil {
		return 0, osErr("open", "/proc/kallsyms", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		if fields[2] != name {
			continue
		}
		addr, err := strconv.ParseUint(fields[0], 16, 64)
		if err != nil {
			continue
		}
		return addr, nil
	}
	if err := sc.Err(); err != nil {
		return 0, wrapErr(KindOther, "reading /proc/kallsyms", err)
	}
	return 0, newErr(KindLookup, "symbol not found in /proc/kallsyms: "+name)
}

// elfHasNonZeroPAddr reports whether any PT_LOAD program header in e
// declares a non-zero physical address, the gate for spec.md §4.4
// step 3.
func elfHasNonZeroPAddr(e *elf.File) bool {
	for _, p := range e.Progs {
		if p.Type == elf.PT_LOAD && p.Paddr != 0 {
			return true
		}
	}
	return false
}
