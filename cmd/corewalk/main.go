// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command corewalk is a command-line tool for bootstrapping a target
// session against a core dump, a running kernel, or a live process,
// and exploring the address space that results. Run "corewalk help"
// for a list of commands.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose   bool
	debugDirs []string
)

func main() {
	root := &cobra.Command{
		Use:   "corewalk",
		Short: "Bootstrap and explore a debugger target's address space",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	root.PersistentFlags().StringArrayVar(&debugDirs, "debug-dir", nil, "extra directory to search for debug info before the default paths (repeatable)")

	root.AddCommand(newCoreCmd())
	root.AddCommand(newKernelCmd())
	root.AddCommand(newPIDCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func logger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
