// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import "encoding/binary"

// atEntry is the AT_ENTRY auxv tag, per the Linux auxv ABI (same value
// on every architecture drgn and this core target).
const atEntry = 9

// ParseAuxv scans an NT_AUXV descriptor, a sequence of (tag, value)
// word pairs terminated by AT_NULL (tag 0), for AT_ENTRY: the
// main-executable's entry point, used to pick the main-executable
// mapping out of a core dump's NT_FILE table (a heuristic the teacher
// itself relies on in internal/core/process.go's findExec, though it
// gets there via /proc/<pid>/exe instead of auxv).
func ParseAuxv(desc []byte, order binary.ByteOrder, wordSize int) (Address, bool) {
	c := NewCursor(desc, order)
	for c.Remaining() >= 2*wordSize {
		tag := c.Word(wordSize)
		val := c.Word(wordSize)
		if c.Err() != nil {
			return 0, false
		}
		if tag == 0 {
			break
		}
		if tag == atEntry {
			return Address(val), true
		}
	}
	return 0, false
}
