// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

// Interaction identifies one completed cycle for the audit timeline.
// At is the cycle's start time in milliseconds.
type Interaction struct {
	Query    string
	Response string
	At       int64
}

// Merge folds a validated delta into a state snapshot and returns the
// new state. It is a pure function: neither argument is mutated.
//
// Field rules:
//   - arcProgress / factionRelations: overwrite then clamp to bounds;
//     only the fixed track and faction names are applied.
//   - discoveredEchoes / collectedIntel: set union, idempotent.
//   - moduleProgress: append the completed id to completedTurns and
//     advance the matching cursor field. Not idempotent; re-delivery is
//     prevented by the session worker, not here.
//   - choice: append to the choice log, stamped with the cycle time.
//
// One timeline entry is appended per interaction, keyed by timelineKey,
// whether or not the delta carries any other change. The caller owns
// keeping timelineKey strictly increasing (see StateStore.Apply).
func Merge(state GameState, delta *Delta, inter Interaction, timelineKey int64) GameState {
	out := state.Clone()

	if delta != nil {
		for name, v := range delta.ArcProgress {
			if _, ok := out.ArcProgress[name]; !ok {
				continue
			}
			out.ArcProgress[name] = clamp(v, ProgressMin, ProgressMax)
		}
		for name, v := range delta.FactionRelations {
			if _, ok := out.FactionRelations[name]; !ok {
				continue
			}
			out.FactionRelations[name] = clamp(v, RelationMin, RelationMax)
		}

		out.DiscoveredEchoes = unionInto(out.DiscoveredEchoes, delta.DiscoveredEchoes)
		out.CollectedIntel = unionInto(out.CollectedIntel, delta.CollectedIntel)

		if mp := delta.ModuleProgress; mp != nil {
			switch {
			case mp.CompletedTurn != "":
				out.CompletedTurns = append(out.CompletedTurns, mp.CompletedTurn)
				out.CurrentTurn = mp.NextTurn
			case mp.CompletedScene != "":
				out.CompletedTurns = append(out.CompletedTurns, mp.CompletedScene)
				out.CurrentScene = mp.NextScene
			}
		}

		if c := delta.Choice; c != nil {
			out.Choices = append(out.Choices, ChoiceRecord{
				TurnID:      c.TurnID,
				Choice:      c.Choice,
				Consequence: c.Consequence,
				Timestamp:   inter.At,
			})
		}
	}

	out.Timeline[timelineKey] = TimelineEntry{
		Query:        inter.Query,
		Response:     inter.Response,
		StateChanges: delta,
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// unionInto appends the members of add that are not already in set,
// preserving first-seen order.
func unionInto(set, add []string) []string {
	seen := make(map[string]struct{}, len(set))
	for _, s := range set {
		seen[s] = struct{}{}
	}
	for _, s := range add {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		set = append(set, s)
	}
	return set
}
