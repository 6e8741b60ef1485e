// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides the oracle boundary: a text-in/text-out client
// interface and its backends. The engine treats every backend as an
// opaque, untrusted, possibly slow oracle; nothing above this package
// assumes any structure in the generated text.
package llm

import (
	"context"

	"github.com/echodrift/server/services/session/datatypes"
)

// GenerationParams tunes a single oracle request. Nil pointer fields
// mean "backend default".
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient is the standard interface for any oracle backend.
type LLMClient interface {
	// Generate produces text from a single bare prompt.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	// Chat produces text from an ordered list of role-tagged messages.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)
}
