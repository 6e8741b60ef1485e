// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import "sync"

// StateStore owns the canonical GameState for one session.
//
// Read hands out deep snapshots, never a mutable alias. Apply runs the
// merge and the arc evaluation under a mutex so at most one apply
// executes at a time. Apply never fails: structural validation happens
// upstream in the DeltaExtractor; the store's job is atomicity.
type StateStore struct {
	mu      sync.Mutex
	state   GameState
	lastKey int64
}

// NewStateStore creates a store seeded with the given state.
func NewStateStore(initial GameState) *StateStore {
	return &StateStore{state: initial.Clone()}
}

// Read returns a snapshot of the current state.
func (s *StateStore) Read() GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Apply merges the delta, evaluates arc transitions, installs the result
// as the new canonical state, and returns a snapshot of it. A nil delta
// is legal and still records the interaction on the timeline.
//
// The timeline key is the interaction start time, bumped forward by one
// millisecond past the previous key when two interactions land in the
// same millisecond, keeping keys unique and strictly increasing.
func (s *StateStore) Apply(delta *Delta, inter Interaction) GameState {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inter.At
	if key <= s.lastKey {
		key = s.lastKey + 1
	}
	s.lastKey = key

	next := Merge(s.state, delta, inter, key)
	next = EvaluateArc(next)
	s.state = next
	return next.Clone()
}
