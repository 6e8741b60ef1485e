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
	"log/slog"
	"strings"

	"github.com/echodrift/server/services/llm"
	"github.com/echodrift/server/services/session/datatypes"
	"github.com/echodrift/server/services/session/engine/actions"
)

// ReferenceData is the slice of the read-only reference store the
// narrate prompt needs for grounding. Lookups may run concurrently with
// anything; nothing is ever written through this interface.
type ReferenceData interface {
	// ModuleNumber resolves a module name to its ordinal.
	ModuleNumber(ctx context.Context, moduleName string) (int, error)
	// EchoTitles lists the echo-event titles whose replay reference
	// belongs to the given module.
	EchoTitles(ctx context.Context, moduleNumber int) ([]string, error)
}

// OracleGateway produces narrative text for a player query. It builds
// the game-master system prompt from the state snapshot, the embedded
// action catalog and reference-store grounding, then makes one oracle
// call. It never mutates state.
type OracleGateway struct {
	client  llm.LLMClient
	refs    ReferenceData
	catalog *actions.Catalog
}

// NewOracleGateway wires an oracle backend and reference data to the
// embedded action catalog. refs may be nil; the prompt then goes out
// without echo grounding, which degrades narrative quality but not
// correctness.
func NewOracleGateway(client llm.LLMClient, refs ReferenceData) (*OracleGateway, error) {
	catalog, err := actions.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load the action catalog: %w", err)
	}
	return &OracleGateway{client: client, refs: refs, catalog: catalog}, nil
}

// Narrate runs oracle call #1 of the cycle. Failures map onto the cycle
// taxonomy: deadline -> ErrOracleTimeout, reference lookup failure ->
// ErrReferenceStoreUnavailable, anything else -> ErrOracleUnavailable.
func (g *OracleGateway) Narrate(ctx context.Context, state GameState, playerQuery string) (string, error) {
	echoTitles, err := g.groundingTitles(ctx, state)
	if err != nil {
		return "", err
	}

	messages := []datatypes.Message{
		{Role: datatypes.RoleSystem, Content: g.systemPrompt(state, echoTitles)},
		{Role: datatypes.RoleUser, Content: playerQuery},
	}
	text, err := g.client.Chat(ctx, messages, llm.GenerationParams{})
	if err != nil {
		return "", classifyOracleErr("narrate", err)
	}
	return text, nil
}

// groundingTitles fetches the echo-event titles for the current module.
func (g *OracleGateway) groundingTitles(ctx context.Context, state GameState) ([]string, error) {
	if g.refs == nil {
		return nil, nil
	}
	moduleNumber, err := g.refs.ModuleNumber(ctx, state.CurrentModule)
	if err != nil {
		return nil, fmt.Errorf("module lookup: %w: %v", ErrReferenceStoreUnavailable, err)
	}
	titles, err := g.refs.EchoTitles(ctx, moduleNumber)
	if err != nil {
		return nil, fmt.Errorf("echo lookup: %w: %v", ErrReferenceStoreUnavailable, err)
	}
	return titles, nil
}

// systemPrompt renders the fixed game-master framing around the current
// state. The narrative is on rails: the player is always Iren Tazk and
// the opening scene offers exactly the catalog actions.
func (g *OracleGateway) systemPrompt(state GameState, echoTitles []string) string {
	var b strings.Builder

	b.WriteString("You are Echo Drift's game master. You are running a fixed narrative. ")
	b.WriteString("The player is ALWAYS " + state.ModuleState.PlayerRole + ". ")
	b.WriteString("NEVER ask about character creation, module selection, or startup options.\n\n")

	b.WriteString("For new games, immediately start with:\n")
	b.WriteString("\"" + state.ModuleState.OpeningCinematic + "\"\n\n")

	b.WriteString("Then present ONLY these options:\n")
	for i, a := range g.catalog.Actions {
		fmt.Fprintf(&b, "%d. %s (requires %s)\n", i+1, a.Action, strings.Join(a.Requires, " or "))
	}

	b.WriteString("\nCurrent State:\n")
	fmt.Fprintf(&b, "Module: %s\n", state.CurrentModule)
	fmt.Fprintf(&b, "Scene: %s\n", state.CurrentScene)
	fmt.Fprintf(&b, "Arc: %s\n", state.CurrentArc)
	fmt.Fprintf(&b, "Location: %s\n", g.catalog.Location)
	fmt.Fprintf(&b, "Role: %s\n", g.catalog.Role)

	if len(echoTitles) > 0 {
		fmt.Fprintf(&b, "\nEcho Events: %s\n", strings.Join(echoTitles, ", "))
	}

	b.WriteString("\nIMPORTANT: Present the story directly. No character creation. ")
	b.WriteString("No module selection. No startup options. Only the scene actions above.")

	prompt := b.String()
	slog.Debug("Built narrate system prompt", "bytes", len(prompt), "echo_titles", len(echoTitles))
	return prompt
}
