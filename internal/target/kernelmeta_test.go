// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import "testing"

func TestResolveKernelMetadataUsesInDumpNote(t *testing.T) {
	want := &VmcoreInfo{OSRelease: "5.10.0"}
	got, err := ResolveKernelMetadata(KernelBootstrapInput{VMCOREINFONote: want}, nil)
	if err != nil {
		t.Fatalf("ResolveKernelMetadata: %v", err)
	}
	if got != want {
		t.Error("want the in-dump note returned unchanged")
	}
}

func TestResolveKernelMetadataNeitherNoteFails(t *testing.T) {
	_, err := ResolveKernelMetadata(KernelBootstrapInput{}, nil)
	if err == nil {
		t.Fatal("want error when neither NT_FILE nor VMCOREINFO is present")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != KindInvalidArgument {
		t.Errorf("want KindInvalidArgument, got %v", err)
	}
}

func TestResolveKernelMetadataStatfsFailureWarnsAndFallsThrough(t *testing.T) {
	var warnings []string
	_, err := ResolveKernelMetadata(KernelBootstrapInput{
		HaveTaskStruct: true,
		BackingPath:    "/nonexistent/path/that/cannot/be/statfsed",
	}, func(msg string) { warnings = append(warnings, msg) })
	if err == nil {
		t.Fatal("want error: no kcore to fall back to")
	}
	if len(warnings) == 0 {
		t.Error("want a warning recorded for the failed statfs, not a silent failure")
	}
}

func TestLooksLikeProcfsEmptyPath(t *testing.T) {
	ok, err := looksLikeProcfs("")
	if err != nil || ok {
		t.Errorf("looksLikeProcfs(\"\") = %v, %v, want false, nil", ok, err)
	}
}
