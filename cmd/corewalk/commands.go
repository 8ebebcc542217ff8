// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	corewalk "github.com/nrednav/corewalk/target"
)

func newCoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "core <path>",
		Short: "Bootstrap from a core-dump file (process core or kernel crash dump)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			t, err := corewalk.FromCoreDump(args[0], options())
			if err != nil {
				exitf("%v\n", err)
			}
			defer t.Close()
			runSession(t)
		},
	}
}

func newKernelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kernel",
		Short: "Bootstrap from the running kernel (/proc/kcore)",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			t, err := corewalk.FromKernel(options())
			if err != nil {
				exitf("%v\n", err)
			}
			defer t.Close()
			runSession(t)
		},
	}
}

func newPIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pid <pid>",
		Short: "Bootstrap from a live process's address space",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				exitf("not a pid: %s\n", args[0])
			}
			t, err := corewalk.FromPID(pid, options())
			if err != nil {
				exitf("%v\n", err)
			}
			defer t.Close()
			runSession(t)
		},
	}
}

func options() corewalk.Options {
	return corewalk.Options{
		Logger:         logger(),
		ExtraDebugDirs: debugDirs,
	}
}

// runSession prints a short overview, any accumulated warnings, and
// drops into the interactive shell, matching the teacher's own
// cmd/viewcore pattern of printing p.Warnings() right after a
// successful bootstrap before doing anything else.
func runSession(t *corewalk.Target) {
	for _, w := range t.Warnings() {
		fmt.Printf("WARNING: %s\n", w)
	}
	fmt.Printf("word size: %d\nlittle endian: %t\n", t.WordSize(), t.IsLittleEndian())
	if t.Flags()&corewalk.IsLinuxKernel != 0 {
		fmt.Printf("kernel release: %s\n", t.KernelRelease())
	}
	if threads := t.Threads(); len(threads) > 0 {
		fmt.Printf("threads: %d\n", len(threads))
	}
	runShell(t)
}
