// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DeltaNumericBound is the sane-range gate applied to numeric delta
// fields before a delta is trusted. Values beyond it are treated as
// oracle garbage and fail validation outright; values inside it are
// still clamped to the real field bounds during merge.
const DeltaNumericBound = 1000

// deltaValidate is the validator instance for delta structures.
var deltaValidate = validator.New()

// Delta is a structured, partial description of how the state should
// change after one interaction. It is produced by the DeltaExtractor,
// consumed once by Merge, and discarded. All fields are optional.
type Delta struct {
	ArcProgress      map[string]int  `json:"arcProgress,omitempty" validate:"omitempty,dive,gte=-1000,lte=1000"`
	FactionRelations map[string]int  `json:"factionRelations,omitempty" validate:"omitempty,dive,gte=-1000,lte=1000"`
	DiscoveredEchoes []string        `json:"discoveredEchoes,omitempty"`
	CollectedIntel   []string        `json:"collectedIntel,omitempty"`
	ModuleProgress   *ModuleProgress `json:"moduleProgress,omitempty"`
	Choice           *ChoiceDelta    `json:"choice,omitempty"`
}

// ModuleProgress advances the module cursor. Exactly one of the two
// completion variants may be present: a turn completion moves
// currentTurn, a scene completion moves currentScene. Both append the
// completed identifier to the same log.
type ModuleProgress struct {
	CompletedTurn  string `json:"completedTurn,omitempty" validate:"excluded_with=CompletedScene"`
	NextTurn       string `json:"nextTurn,omitempty"`
	CompletedScene string `json:"completedScene,omitempty"`
	NextScene      string `json:"nextScene,omitempty"`
}

// ChoiceDelta records a decisive player choice for the append-only
// choice log. The merge stamps it with the interaction time.
type ChoiceDelta struct {
	TurnID      string `json:"turnId,omitempty"`
	Choice      string `json:"choice"`
	Consequence string `json:"consequence,omitempty"`
}

// IsEmpty reports whether the delta carries no change at all.
func (d *Delta) IsEmpty() bool {
	if d == nil {
		return true
	}
	return len(d.ArcProgress) == 0 &&
		len(d.FactionRelations) == 0 &&
		len(d.DiscoveredEchoes) == 0 &&
		len(d.CollectedIntel) == 0 &&
		d.ModuleProgress == nil &&
		d.Choice == nil
}

// ParseDelta turns raw oracle text into a validated Delta. Oracle
// output is untrusted: it may wrap the JSON in markdown fences or prose,
// carry both completion variants, or contain absurd numbers. Any of
// those yields a *ValidationError, never a crash.
func ParseDelta(raw string) (*Delta, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, &ValidationError{
			Reason: "no JSON object found in oracle output",
			Raw:    truncateRaw(raw),
		}
	}

	var d Delta
	if err := json.Unmarshal([]byte(text[start:end+1]), &d); err != nil {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("unparsable delta: %v", err),
			Raw:    truncateRaw(raw),
		}
	}

	// Check the completion variants first so the mutual-exclusion case
	// gets a precise reason rather than a generic bounds message.
	if d.ModuleProgress != nil && d.ModuleProgress.CompletedTurn != "" && d.ModuleProgress.CompletedScene != "" {
		return nil, &ValidationError{
			Reason: "moduleProgress carries both a turn and a scene completion",
			Raw:    truncateRaw(raw),
		}
	}
	if err := deltaValidate.Struct(&d); err != nil {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("delta out of bounds: %v", err),
			Raw:    truncateRaw(raw),
		}
	}
	return &d, nil
}

// truncateRaw bounds the raw oracle text kept on a ValidationError so
// diagnostics logs stay readable.
func truncateRaw(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
