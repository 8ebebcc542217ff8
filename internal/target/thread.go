// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"encoding/binary"
)

// ThreadState is a snapshot of one OS thread's registers at the time
// of a core dump, carried forward unchanged from the teacher's
// internal/core.Thread (see SPEC_FULL.md §6's "thread/register
// snapshot retained on user-space cores" supplement): this core does
// not implement stack unwinding, but the data is already sitting in
// the NT_PRSTATUS note and a later layer will want it.
type ThreadState struct {
	Pid  uint64
	Regs []uint64
	PC   Address
	SP   Address
}

// ParsePRStatus decodes an NT_PRSTATUS descriptor for arch. Only
// amd64 is implemented, matching the teacher's own
// internal/core/process.go readPRStatus, which the teacher's comments
// note is arch-specific ("prstatus layout will probably be different
// for each arch/os combo"). Unsupported architectures return (nil,
// nil): the thread is silently skipped, as the teacher does via its
// `default:` case, rather than failing the whole bootstrap over a
// register snapshot the core doesn't otherwise need.
func ParsePRStatus(desc []byte, order binary.ByteOrder, arch string) (*ThreadState, error) {
	if arch != "amd64" {
		return nil, nil
	}
	if len(desc) < 112+216 {
		return nil, newErr(KindELFFormat, "truncated NT_PRSTATUS")
	}
	t := &ThreadState{}
	// 32 = offsetof(prstatus_t, pr_pid), 4 = sizeof(pid_t)
	t.Pid = uint64(order.Uint32(desc[32 : 32+4]))
	// 112 = offsetof(prstatus_t, pr_reg), 216 = sizeof(elf_gregset_t)
	reg := desc[112 : 112+216]
	for i := 0; i < len(reg); i += 8 {
		t.Regs = append(t.Regs, order.Uint64(reg[i:]))
	}
	// Register indices, per linux/x86 sys/user.h (same layout the
	// teacher documents in internal/core/process.go):
	//  16: rip, 19: rsp
	if len(t.Regs) > 19 {
		t.PC = Address(t.Regs[16])
		t.SP = Address(t.Regs[19])
	}
	return t, nil
}
