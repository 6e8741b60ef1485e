// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

// Discovery ids that unlock arc transitions. Each gates exactly one
// edge of the stage chain.
const (
	echoFailedTransfer = "failed_transfer_discovery"
	echoSettlement     = "settlement_discovery"
)

// EvaluateArc runs the arc stage machine against a state snapshot and
// returns the possibly-advanced state. Pure function; run after every
// merge.
//
// The machine is finite and linear: The Architect advances to The Quiet
// Builders once "failed_transfer_discovery" is in the discovered echo
// set, and The Quiet Builders advances to The Mistake once
// "settlement_discovery" is. No other transition exists, stages never
// regress, and at most one edge fires per evaluation, so a stage is
// never skipped even if both discoveries land in a single merge.
func EvaluateArc(state GameState) GameState {
	out := state
	switch state.CurrentArc {
	case StageArchitect:
		if state.hasEcho(echoFailedTransfer) {
			out.CurrentArc = StageQuietBuilders
		}
	case StageQuietBuilders:
		if state.hasEcho(echoSettlement) {
			out.CurrentArc = StageMistake
		}
	}
	return out
}

// StageIndex returns the position of a stage in the fixed order, or -1
// for an unknown stage.
func StageIndex(s ArcStage) int {
	for i, stage := range arcOrder {
		if stage == s {
			return i
		}
	}
	return -1
}
