// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"reflect"
	"testing"
)

func testInteraction(at int64) Interaction {
	return Interaction{Query: "look around", Response: "You see the pod.", At: at}
}

func TestMerge_ProgressOverwriteAndClamp(t *testing.T) {
	t.Run("overwrite is not additive", func(t *testing.T) {
		state := NewGameState()
		state.ArcProgress[TrackArchitect] = 90

		delta := &Delta{ArcProgress: map[string]int{TrackArchitect: 50}}
		out := Merge(state, delta, testInteraction(1000), 1000)

		if got := out.ArcProgress[TrackArchitect]; got != 50 {
			t.Errorf("ArcProgress[architect] = %d, want 50 (overwrite, not additive)", got)
		}
	})

	t.Run("progress clamps to [0,100]", func(t *testing.T) {
		state := NewGameState()
		delta := &Delta{ArcProgress: map[string]int{
			TrackArchitect:     150,
			TrackQuietBuilders: -20,
		}}
		out := Merge(state, delta, testInteraction(1000), 1000)

		if got := out.ArcProgress[TrackArchitect]; got != 100 {
			t.Errorf("ArcProgress[architect] = %d, want 100", got)
		}
		if got := out.ArcProgress[TrackQuietBuilders]; got != 0 {
			t.Errorf("ArcProgress[quietBuilders] = %d, want 0", got)
		}
	})

	t.Run("relations clamp to [-100,100]", func(t *testing.T) {
		state := NewGameState()
		delta := &Delta{FactionRelations: map[string]int{
			FactionAlgol:      999,
			FactionProxyWorld: -999,
		}}
		out := Merge(state, delta, testInteraction(1000), 1000)

		if got := out.FactionRelations[FactionAlgol]; got != 100 {
			t.Errorf("FactionRelations[algol] = %d, want 100", got)
		}
		if got := out.FactionRelations[FactionProxyWorld]; got != -100 {
			t.Errorf("FactionRelations[proxyWorld] = %d, want -100", got)
		}
	})

	t.Run("unknown track names are ignored", func(t *testing.T) {
		state := NewGameState()
		delta := &Delta{ArcProgress: map[string]int{"conspiracy": 40}}
		out := Merge(state, delta, testInteraction(1000), 1000)

		if _, ok := out.ArcProgress["conspiracy"]; ok {
			t.Error("unknown progress track should not be created")
		}
	})
}

func TestMerge_SetUnionIdempotent(t *testing.T) {
	state := NewGameState()
	delta := &Delta{
		DiscoveredEchoes: []string{"ECHO-A-001", "ECHO-A-002"},
		CollectedIntel:   []string{"intel-1"},
	}

	once := Merge(state, delta, testInteraction(1000), 1000)
	twice := Merge(once, delta, testInteraction(2000), 2000)

	if !reflect.DeepEqual(once.DiscoveredEchoes, twice.DiscoveredEchoes) {
		t.Errorf("re-merging set additions changed DiscoveredEchoes: %v vs %v",
			once.DiscoveredEchoes, twice.DiscoveredEchoes)
	}
	if !reflect.DeepEqual(once.CollectedIntel, twice.CollectedIntel) {
		t.Errorf("re-merging set additions changed CollectedIntel: %v vs %v",
			once.CollectedIntel, twice.CollectedIntel)
	}
	if len(twice.DiscoveredEchoes) != 2 {
		t.Errorf("DiscoveredEchoes = %v, want 2 members", twice.DiscoveredEchoes)
	}
}

func TestMerge_ModuleProgress(t *testing.T) {
	t.Run("turn completion appends and advances turn cursor", func(t *testing.T) {
		state := NewGameState()
		delta := &Delta{ModuleProgress: &ModuleProgress{
			CompletedTurn: "M1-T1", NextTurn: "M1-T2",
		}}
		out := Merge(state, delta, testInteraction(1000), 1000)

		if !reflect.DeepEqual(out.CompletedTurns, []string{"M1-T1"}) {
			t.Errorf("CompletedTurns = %v, want [M1-T1]", out.CompletedTurns)
		}
		if out.CurrentTurn != "M1-T2" {
			t.Errorf("CurrentTurn = %q, want M1-T2", out.CurrentTurn)
		}
		if out.CurrentScene != state.CurrentScene {
			t.Error("turn completion must not move the scene cursor")
		}
	})

	t.Run("scene completion appends and advances scene cursor", func(t *testing.T) {
		state := NewGameState()
		delta := &Delta{ModuleProgress: &ModuleProgress{
			CompletedScene: "M1-SC1", NextScene: "M1-SC2",
		}}
		out := Merge(state, delta, testInteraction(1000), 1000)

		if !reflect.DeepEqual(out.CompletedTurns, []string{"M1-SC1"}) {
			t.Errorf("CompletedTurns = %v, want [M1-SC1]", out.CompletedTurns)
		}
		if out.CurrentScene != "M1-SC2" {
			t.Errorf("CurrentScene = %q, want M1-SC2", out.CurrentScene)
		}
	})

	t.Run("append-only log grows once per completion delta", func(t *testing.T) {
		state := NewGameState()
		for i, id := range []string{"M1-T1", "M1-T2", "M1-T3"} {
			delta := &Delta{ModuleProgress: &ModuleProgress{CompletedTurn: id}}
			state = Merge(state, delta, testInteraction(int64(1000+i)), int64(1000+i))
		}
		want := []string{"M1-T1", "M1-T2", "M1-T3"}
		if !reflect.DeepEqual(state.CompletedTurns, want) {
			t.Errorf("CompletedTurns = %v, want %v (append order preserved)", state.CompletedTurns, want)
		}
	})
}

func TestMerge_TimelineAlwaysAppended(t *testing.T) {
	t.Run("nil delta still records the interaction", func(t *testing.T) {
		state := NewGameState()
		out := Merge(state, nil, testInteraction(1234), 1234)

		entry, ok := out.Timeline[1234]
		if !ok {
			t.Fatal("timeline entry missing for nil delta")
		}
		if entry.Query != "look around" {
			t.Errorf("timeline Query = %q", entry.Query)
		}
		if entry.StateChanges != nil {
			t.Error("nil delta should record nil StateChanges")
		}
	})

	t.Run("delta merge records the delta", func(t *testing.T) {
		state := NewGameState()
		delta := &Delta{CollectedIntel: []string{"intel-9"}}
		out := Merge(state, delta, testInteraction(77), 77)

		if out.Timeline[77].StateChanges != delta {
			t.Error("timeline entry should carry the applied delta")
		}
	})
}

func TestMerge_ChoiceLog(t *testing.T) {
	state := NewGameState()
	delta := &Delta{Choice: &ChoiceDelta{
		TurnID: "M1-T1", Choice: "Broadcast Final Orders", Consequence: "The fleet hears you die.",
	}}
	out := Merge(state, delta, testInteraction(555), 555)

	if len(out.Choices) != 1 {
		t.Fatalf("Choices = %v, want one record", out.Choices)
	}
	c := out.Choices[0]
	if c.TurnID != "M1-T1" || c.Choice != "Broadcast Final Orders" || c.Timestamp != 555 {
		t.Errorf("unexpected choice record: %+v", c)
	}
}

func TestMerge_PureFunction(t *testing.T) {
	state := NewGameState()
	delta := &Delta{
		ArcProgress:      map[string]int{TrackArchitect: 10},
		DiscoveredEchoes: []string{"ECHO-X-001"},
	}
	_ = Merge(state, delta, testInteraction(1), 1)

	if state.ArcProgress[TrackArchitect] != 0 {
		t.Error("Merge mutated its input state")
	}
	if len(state.DiscoveredEchoes) != 0 {
		t.Error("Merge mutated the input echo set")
	}
	if len(state.Timeline) != 0 {
		t.Error("Merge mutated the input timeline")
	}
}
