// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	itarget "github.com/nrednav/corewalk/internal/target"
	corewalk "github.com/nrednav/corewalk/target"
)

// runShell drives a small interactive shell over a bootstrapped
// session, the read/find-oriented analog of cmd/viewcore's "read" and
// "reachable" subcommands, but kept alive across commands instead of
// exiting after one.
func runShell(t *corewalk.Target) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "corewalk> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		exitf("can't start shell: %v\n", err)
	}
	defer rl.Close()

	fmt.Println(`commands: read <addr> [len]   find <name>   mappings   warnings   help   quit`)
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return
		case "help":
			fmt.Println(`commands: read <addr> [len]   find <name>   mappings   warnings   help   quit`)
		case "read":
			cmdRead(t, fields[1:])
		case "find":
			cmdFind(t, fields[1:])
		case "mappings":
			cmdMappings(t)
		case "warnings":
			for _, w := range t.Warnings() {
				fmt.Println(w)
			}
		default:
			fmt.Printf("unknown command: %s\n", fields[0])
		}
	}
}

func cmdRead(t *corewalk.Target, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: read <addr> [len]")
		return
	}
	addr, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
	if err != nil {
		fmt.Printf("bad address: %v\n", err)
		return
	}
	n := int64(256)
	if len(args) >= 2 {
		n, err = strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Printf("bad length: %v\n", err)
			return
		}
	}
	buf := make([]byte, n)
	if err := t.ReadMemory(buf, itarget.Address(addr)); err != nil {
		fmt.Printf("%v\n", err)
		return
	}
	for i, b := range buf {
		if i%16 == 0 {
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("%x:", addr+uint64(i))
		}
		fmt.Printf(" %02x", b)
	}
	fmt.Println()
}

func cmdMappings(t *corewalk.Target) {
	mappings := t.Mappings()
	if len(mappings) == 0 {
		fmt.Println("(no file-backed mappings)")
		return
	}
	for _, m := range mappings {
		fmt.Printf("%s-%s %s\n", m.VAddrStart, m.VAddrEnd, m.Path)
	}
}

func cmdFind(t *corewalk.Target, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: find <name>")
		return
	}
	obj, err := t.FindObject(args[0], "", 0)
	if err != nil {
		fmt.Printf("%v\n", err)
		return
	}
	if obj.IsConstant {
		fmt.Printf("%s = %d (constant)\n", args[0], obj.SValue)
		return
	}
	fmt.Printf("%s @ %s\n", args[0], obj.Address)
}
