// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import "fmt"

// Kind classifies a bootstrap or lookup failure. It does not replace
// Go's usual error wrapping; it is attached to an error so callers can
// tell "debug info missing" from "file corrupt" without parsing
// messages.
type Kind int

const (
	// KindOther is a parser or internal message that doesn't fit any
	// other kind.
	KindOther Kind = iota
	// KindOS wraps an OS errno, with the path and syscall name that
	// produced it.
	KindOS
	// KindLibelf wraps a low-level ELF parser error.
	KindLibelf
	// KindELFFormat means the container is well-formed ELF but the
	// payload inside it is semantically bad (e.g. a truncated NT_FILE
	// note).
	KindELFFormat
	// KindMissingDebug means executables were found but none carried
	// usable DWARF.
	KindMissingDebug
	// KindLookup means a symbol, section, module, or file mapping was
	// not found.
	KindLookup
	// KindFault means an address range is not backed by any segment,
	// or a read ran past a segment's file size.
	KindFault
	// KindOverflow means a numeric parse overflowed its destination.
	KindOverflow
	// KindInvalidArgument means a session was used across programs, or
	// a file was the wrong type for the operation requested of it.
	KindInvalidArgument
	// KindNotELF means a file that was expected to be ELF is not.
	KindNotELF

	// kindStop is a sentinel used internally by the mapping table's
	// append-with-merge path to signal "merged, caller may reclaim its
	// path buffer". It is never returned from an exported function.
	kindStop
)

func (k Kind) String() string {
	switch k {
	case KindOS:
		return "OS"
	case KindLibelf:
		return "LIBELF"
	case KindELFFormat:
		return "ELF_FORMAT"
	case KindMissingDebug:
		return "MISSING_DEBUG"
	case KindLookup:
		return "LOOKUP"
	case KindFault:
		return "FAULT"
	case KindOverflow:
		return "OVERFLOW"
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	case KindNotELF:
		return "NOT_ELF"
	case kindStop:
		return "STOP"
	default:
		return "OTHER"
	}
}

// Error is the error type returned by every operation in this package
// and its siblings under internal/. It carries a Kind so callers can
// classify failures (spec.md §7) without string matching, plus an
// optional wrapped cause, path, and syscall name for KindOS errors.
type Error struct {
	Kind    Kind
	Path    string // optional: file or device involved
	Syscall string // optional: syscall name, for KindOS
	Cause   error  // optional: wrapped underlying error
	Msg     string // human-readable detail
}

func (e *Error) Error() string {
	var where string
	switch {
	case e.Syscall != "" && e.Path != "":
		where = fmt.Sprintf("%s(%s): ", e.Syscall, e.Path)
	case e.Path != "":
		where = e.Path + ": "
	}
	if e.Cause != nil {
		if e.Msg != "" {
			return fmt.Sprintf("%s[%s] %s: %v", where, e.Kind, e.Msg, e.Cause)
		}
		return fmt.Sprintf("%s[%s] %v", where, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s[%s] %s", where, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target matches e by Kind, so callers can write
// errors.Is(err, &target.Error{Kind: target.KindLookup}).
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.Kind == e.Kind
}

func newErr(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapErr(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func osErr(syscallName, path string, cause error) error {
	return &Error{Kind: KindOS, Syscall: syscallName, Path: path, Cause: cause}
}

// isStop reports whether err is the internal append-with-merge
// sentinel. Never exported: callers outside this package can never
// construct or observe a kindStop error.
func isStop(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kindStop
}

var stopErr = &Error{Kind: kindStop}
