// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"fmt"

	"github.com/echodrift/server/services/llm"
	"github.com/echodrift/server/services/session/datatypes"
)

// extractSystemPrompt asks the oracle to summarize one interaction as a
// constrained JSON delta. The reply is still untrusted; ParseDelta is
// the gate.
const extractSystemPrompt = `Analyze the game interaction and extract state changes. Respond with a single JSON object and nothing else, using these fields:
- arcProgress: { architect, quietBuilders, mistake } (0-100 progress values)
- factionRelations: { algol, proxyWorld, thirdAlly } (-100 to 100 relationship values)
- discoveredEchoes: [array of echo IDs discovered]
- collectedIntel: [array of intel items found]
- moduleProgress: { completedTurn, nextTurn } or { completedScene, nextScene } (never both completions)
- choice: { turnId, choice, consequence } when the player made a decisive choice
Only include fields that have changed.`

// DeltaExtractor runs oracle call #2 of the cycle: it asks the oracle
// to restate the interaction as a structured delta and validates the
// answer before anyone trusts it.
type DeltaExtractor struct {
	client llm.LLMClient
}

// NewDeltaExtractor wires an oracle backend.
func NewDeltaExtractor(client llm.LLMClient) *DeltaExtractor {
	return &DeltaExtractor{client: client}
}

// Extract returns a validated Delta for the interaction, a
// *ValidationError when the oracle's answer does not survive the gate,
// or a cycle error when the oracle itself fails. Callers treat a
// *ValidationError as a degrade (narrative delivered, no state change)
// and everything else as a cycle abort.
func (x *DeltaExtractor) Extract(ctx context.Context, playerQuery, narrativeText string) (*Delta, error) {
	messages := []datatypes.Message{
		{Role: datatypes.RoleSystem, Content: extractSystemPrompt},
		{Role: datatypes.RoleUser, Content: fmt.Sprintf("Player: %s\nAI: %s", playerQuery, narrativeText)},
	}

	raw, err := x.client.Chat(ctx, messages, llm.GenerationParams{})
	if err != nil {
		return nil, classifyOracleErr("extract", err)
	}
	return ParseDelta(raw)
}
