// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine implements the Echo Drift session engine: the canonical
// game state, the merge rules that fold oracle-extracted deltas into it,
// the narrative arc state machine, and the per-session cycle worker that
// serializes everything.
//
// # Architecture
//
// One interaction cycle runs narrate -> extract -> apply:
//
//	player query --> OracleGateway.Narrate   (oracle call #1)
//	             --> DeltaExtractor.Extract  (oracle call #2, validated)
//	             --> StateStore.Apply        (Merge + EvaluateArc, atomic)
//
// Each Session owns its own StateStore and drains queries through a
// single worker goroutine, so two in-flight cycles can never merge
// against the same starting snapshot.
//
// # Thread Safety
//
// GameState values handed out by the engine are deep snapshots; mutating
// one never touches canonical state. StateStore and Session are safe for
// concurrent use. Merge and EvaluateArc are pure functions.
package engine

// ArcStage is a top-level narrative stage. Stages form a fixed, ordered,
// one-directional chain; a session only ever moves forward along it.
type ArcStage string

const (
	StageArchitect     ArcStage = "The Architect"
	StageQuietBuilders ArcStage = "The Quiet Builders"
	StageMistake       ArcStage = "The Mistake"
)

// arcOrder is the only legal stage progression.
var arcOrder = []ArcStage{StageArchitect, StageQuietBuilders, StageMistake}

// Progress track and faction relation names. Deltas referencing any
// other name are ignored by Merge.
const (
	TrackArchitect     = "architect"
	TrackQuietBuilders = "quietBuilders"
	TrackMistake       = "mistake"

	FactionAlgol      = "algol"
	FactionProxyWorld = "proxyWorld"
	FactionThirdAlly  = "thirdAlly"
)

// Bounds for the numeric state fields. Merge clamps into these after
// every overwrite.
const (
	ProgressMin = 0
	ProgressMax = 100
	RelationMin = -100
	RelationMax = 100
)

// ChoiceRecord is one entry in the append-only choice log.
type ChoiceRecord struct {
	TurnID      string `json:"turnId"`
	Choice      string `json:"choice"`
	Consequence string `json:"consequence"`
	Timestamp   int64  `json:"timestamp"`
}

// TimelineEntry is the audit record for one interaction cycle. The
// timeline map key is the interaction's start time in milliseconds,
// bumped forward if needed so keys stay strictly increasing.
type TimelineEntry struct {
	Query        string `json:"query"`
	Response     string `json:"response"`
	StateChanges *Delta `json:"stateChanges"`
}

// ModuleState carries the fixed framing of the current module: where the
// player is and who they are. It is seeded at session start and only
// moves when reference content says so.
type ModuleState struct {
	Location         string `json:"location"`
	PlayerRole       string `json:"playerRole"`
	OpeningCinematic string `json:"openingCinematic"`
	Prompt           string `json:"prompt"`
}

// GameState is the canonical state of one narrative session.
//
// DiscoveredEchoes and CollectedIntel are sets (duplicates collapsed on
// merge); CompletedTurns and Choices are append-only logs; Timeline keys
// are unique and strictly increasing. CurrentModule, CurrentScene and
// CurrentTurn are identifiers into external reference content and are
// not validated against the store here.
type GameState struct {
	CurrentModule    string                  `json:"currentModule"`
	CurrentScene     string                  `json:"currentScene"`
	CurrentTurn      string                  `json:"currentTurn"`
	CurrentArc       ArcStage                `json:"currentArc"`
	ModuleState      ModuleState             `json:"moduleState"`
	ArcProgress      map[string]int          `json:"arcProgress"`
	FactionRelations map[string]int          `json:"factionRelations"`
	DiscoveredEchoes []string                `json:"discoveredEchoes"`
	CollectedIntel   []string                `json:"collectedIntel"`
	CompletedTurns   []string                `json:"completedTurns"`
	Choices          []ChoiceRecord          `json:"choices"`
	Timeline         map[int64]TimelineEntry `json:"timeline"`
}

// NewGameState returns the fixed opening state: Module 1, scene M1-SC1,
// the player is always Lt. Commander Iren Tazk aboard the CNS Vindicator.
func NewGameState() GameState {
	return GameState{
		CurrentModule: "Echo Drift - Module 1",
		CurrentScene:  "M1-SC1",
		CurrentTurn:   "",
		CurrentArc:    StageArchitect,
		ModuleState: ModuleState{
			Location:         "CNS Vindicator - Dorsal Command Pod",
			PlayerRole:       "Lt. Commander Iren Tazk",
			OpeningCinematic: "Battle was chaos. It always was. But this time, it broke us.",
			Prompt:           "36 seconds before second wave",
		},
		ArcProgress: map[string]int{
			TrackArchitect:     0,
			TrackQuietBuilders: 0,
			TrackMistake:       0,
		},
		FactionRelations: map[string]int{
			FactionAlgol:      0,
			FactionProxyWorld: 0,
			FactionThirdAlly:  0,
		},
		DiscoveredEchoes: []string{},
		CollectedIntel:   []string{},
		CompletedTurns:   []string{},
		Choices:          []ChoiceRecord{},
		Timeline:         map[int64]TimelineEntry{},
	}
}

// Clone returns a deep copy. Callers may mutate the copy freely.
func (g GameState) Clone() GameState {
	out := g
	out.ArcProgress = make(map[string]int, len(g.ArcProgress))
	for k, v := range g.ArcProgress {
		out.ArcProgress[k] = v
	}
	out.FactionRelations = make(map[string]int, len(g.FactionRelations))
	for k, v := range g.FactionRelations {
		out.FactionRelations[k] = v
	}
	out.DiscoveredEchoes = append([]string(nil), g.DiscoveredEchoes...)
	out.CollectedIntel = append([]string(nil), g.CollectedIntel...)
	out.CompletedTurns = append([]string(nil), g.CompletedTurns...)
	out.Choices = append([]ChoiceRecord(nil), g.Choices...)
	out.Timeline = make(map[int64]TimelineEntry, len(g.Timeline))
	for k, v := range g.Timeline {
		out.Timeline[k] = v
	}
	return out
}

// hasEcho reports set membership in DiscoveredEchoes.
func (g GameState) hasEcho(id string) bool {
	for _, e := range g.DiscoveredEchoes {
		if e == id {
			return true
		}
	}
	return false
}
