// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

// cleanupAction is one entry in the Session Assembler's LIFO stack
// (spec.md §4.7). In C, spec.md describes this as {callback,
// opaque_arg}; a Go closure folds the two together.
type cleanupAction struct {
	id int
	fn func()
}

// CleanupStack is the assembler's resource-lifecycle discipline: every
// acquired resource is registered immediately after it becomes owned,
// and on any later bootstrap failure the stack runs in reverse,
// guaranteeing no leak and no double-free (spec.md §4.7, §8's
// "cleanup ordering" property). It also supports targeted removal
// ("detach") when a resource's ownership transfers elsewhere, e.g.
// from the assembler to the finished Target.
type CleanupStack struct {
	actions []cleanupAction
	nextID  int
	ran     bool
}

// Push registers fn to run on Unwind, returning a handle that can be
// passed to Detach to cancel it.
func (s *CleanupStack) Push(fn func()) int {
	s.nextID++
	id := s.nextID
	s.actions = append(s.actions, cleanupAction{id: id, fn: fn})
	return id
}

// Detach removes the action registered under id without running it,
// used when its responsibility has been transferred to the object
// being assembled (spec.md §4.7: "a cleanup may be detached when its
// responsibility is transferred elsewhere").
func (s *CleanupStack) Detach(id int) {
	for i, a := range s.actions {
		if a.id == id {
			s.actions = append(s.actions[:i], s.actions[i+1:]...)
			return
		}
	}
}

// Unwind runs every remaining action in reverse registration order,
// exactly once. Calling Unwind more than once is a no-op after the
// first call, matching the no-double-free guarantee.
func (s *CleanupStack) Unwind() {
	if s.ran {
		return
	}
	s.ran = true
	for i := len(s.actions) - 1; i >= 0; i-- {
		s.actions[i].fn()
	}
	s.actions = nil
}

