// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import "testing"

func TestEvaluateArc_Transitions(t *testing.T) {
	t.Run("failed transfer discovery advances to The Quiet Builders", func(t *testing.T) {
		state := NewGameState()
		delta := &Delta{DiscoveredEchoes: []string{"failed_transfer_discovery"}}
		state = Merge(state, delta, testInteraction(1000), 1000)

		out := EvaluateArc(state)
		if out.CurrentArc != StageQuietBuilders {
			t.Errorf("CurrentArc = %q, want %q", out.CurrentArc, StageQuietBuilders)
		}
	})

	t.Run("no transition without the gating discovery", func(t *testing.T) {
		state := NewGameState()
		state.DiscoveredEchoes = []string{"ECHO-A-001", "settlement_discovery"}

		out := EvaluateArc(state)
		if out.CurrentArc != StageArchitect {
			t.Errorf("CurrentArc = %q, want %q (settlement gates a later edge)", out.CurrentArc, StageArchitect)
		}
	})

	t.Run("at most one edge fires per evaluation", func(t *testing.T) {
		state := NewGameState()
		state.DiscoveredEchoes = []string{"failed_transfer_discovery", "settlement_discovery"}

		out := EvaluateArc(state)
		if out.CurrentArc != StageQuietBuilders {
			t.Errorf("CurrentArc = %q, want %q (stage must not be skipped)", out.CurrentArc, StageQuietBuilders)
		}

		out = EvaluateArc(out)
		if out.CurrentArc != StageMistake {
			t.Errorf("CurrentArc = %q, want %q after second evaluation", out.CurrentArc, StageMistake)
		}
	})

	t.Run("terminal stage never moves", func(t *testing.T) {
		state := NewGameState()
		state.CurrentArc = StageMistake
		state.DiscoveredEchoes = []string{"failed_transfer_discovery", "settlement_discovery"}

		out := EvaluateArc(state)
		if out.CurrentArc != StageMistake {
			t.Errorf("CurrentArc = %q, want %q", out.CurrentArc, StageMistake)
		}
	})

	t.Run("stages never regress", func(t *testing.T) {
		state := NewGameState()
		state.CurrentArc = StageQuietBuilders
		// No discoveries at all; the machine holds position.
		state.DiscoveredEchoes = nil

		out := EvaluateArc(state)
		if out.CurrentArc != StageQuietBuilders {
			t.Errorf("CurrentArc = %q, want %q", out.CurrentArc, StageQuietBuilders)
		}
	})
}

func TestEvaluateArc_RepeatedEvaluationStable(t *testing.T) {
	state := NewGameState()
	state.DiscoveredEchoes = []string{"failed_transfer_discovery"}

	out := EvaluateArc(state)
	again := EvaluateArc(out)
	if again.CurrentArc != StageQuietBuilders {
		t.Errorf("CurrentArc = %q, want %q (transition must fire once and hold)", again.CurrentArc, StageQuietBuilders)
	}
}

func TestStageIndex(t *testing.T) {
	cases := []struct {
		stage ArcStage
		want  int
	}{
		{StageArchitect, 0},
		{StageQuietBuilders, 1},
		{StageMistake, 2},
		{ArcStage("The Unwritten"), -1},
	}
	for _, tc := range cases {
		if got := StageIndex(tc.stage); got != tc.want {
			t.Errorf("StageIndex(%q) = %d, want %d", tc.stage, got, tc.want)
		}
	}
}
