// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import "fmt"

// Address is a virtual or physical address in the target. It is
// modeled the same way golang.org/x/debug's internal/core.Address is
// used throughout the teacher repo (Address(prog.Vaddr), min.Add(n),
// max.Sub(a)): a plain integer with arithmetic helpers, not a pointer
// or an opaque handle.
type Address uint64

// Add returns a+Address(n).
func (a Address) Add(n int64) Address {
	return Address(int64(a) + n)
}

// Sub returns a-b as a byte count.
func (a Address) Sub(b Address) int64 {
	return int64(a) - int64(b)
}

func (a Address) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}
