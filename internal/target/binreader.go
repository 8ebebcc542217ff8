// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import "encoding/binary"

// Cursor is a bounds-checked reader over a fixed byte slice. It
// generalizes the inline "read a field, then reslice" style the
// teacher repo uses throughout its note-parsing code (see
// golang.org/x/debug's internal/core readNote/readNTFile, which slices
// a []byte by hand after every field) into a reusable, overflow-safe
// helper used by the Note Parser and the ELF Inspector.
type Cursor struct {
	b     []byte
	off   int
	order binary.ByteOrder
	err   error
}

// NewCursor returns a Cursor over b using the given byte order.
func NewCursor(b []byte, order binary.ByteOrder) *Cursor {
	return &Cursor{b: b, order: order}
}

// Err returns the first error encountered by any Read call, if any.
func (c *Cursor) Err() error { return c.err }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.b) - c.off }

func (c *Cursor) fail() {
	if c.err == nil {
		c.err = newErr(KindELFFormat, "truncated or out-of-bounds read")
	}
}

func (c *Cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.off+n < c.off || c.off+n > len(c.b) {
		c.fail()
		return nil
	}
	s := c.b[c.off : c.off+n]
	c.off += n
	return s
}

// Uint32 reads a 4-byte unsigned integer.
func (c *Cursor) Uint32() uint32 {
	s := c.take(4)
	if s == nil {
		return 0
	}
	return c.order.Uint32(s)
}

// Uint64 reads an 8-byte unsigned integer.
func (c *Cursor) Uint64() uint64 {
	s := c.take(8)
	if s == nil {
		return 0
	}
	return c.order.Uint64(s)
}

// Word reads a word-sized unsigned integer: 4 bytes for wordSize==4,
// 8 bytes for wordSize==8. Any other wordSize is a programmer error.
func (c *Cursor) Word(wordSize int) uint64 {
	switch wordSize {
	case 4:
		return uint64(c.Uint32())
	case 8:
		return c.Uint64()
	default:
		c.fail()
		return 0
	}
}

// Bytes reads n raw bytes.
func (c *Cursor) Bytes(n int) []byte {
	return c.take(n)
}

// Skip advances the cursor by n bytes without interpreting them.
func (c *Cursor) Skip(n int) {
	c.take(n)
}

// Align advances the cursor to the next multiple of n bytes (measured
// from the start of the underlying slice), matching ELF note padding
// rules (notes are padded to 4 or 8 bytes depending on p_align).
func (c *Cursor) Align(n int) {
	if c.err != nil || n <= 0 {
		return
	}
	rem := c.off % n
	if rem != 0 {
		c.Skip(n - rem)
	}
}

// CString reads a NUL-terminated string starting at the cursor and
// advances past the terminator. It does not consume any padding after
// the terminator; callers that need the cursor aligned afterwards
// should call Align.
func (c *Cursor) CString() string {
	if c.err != nil {
		return ""
	}
	rest := c.b[c.off:]
	i := indexByte(rest, 0)
	if i < 0 {
		c.fail()
		return ""
	}
	s := string(rest[:i])
	c.off += i + 1
	return s
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
