// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package refstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// The shapes below cover only the fields the session engine reads.
// The collections carry far more; the engine does not care.

// Module is one narrative module document.
type Module struct {
	Module       string `bson:"module"`
	ModuleNumber int    `bson:"moduleNumber"`
	Focus        string `bson:"focus"`
}

// EchoEvent is one replayable echo inside an echo drift document.
type EchoEvent struct {
	EchoID          string `bson:"echoID"`
	Title           string `bson:"title"`
	ReplayReference string `bson:"replayReference"`
}

// EchoDrift is one document of the Echo_Drifts collection.
type EchoDrift struct {
	EchoEvents []EchoEvent `bson:"echoEvents"`
}

// ModuleNumber resolves a module name to its ordinal. An unknown module
// resolves to 1 so the opening module still grounds its prompt when the
// store content and the session cursor drift apart.
func (s *Store) ModuleNumber(ctx context.Context, moduleName string) (int, error) {
	var m Module
	err := s.db.Collection("Modules").
		FindOne(ctx, bson.D{{Key: "module", Value: moduleName}}).
		Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("module lookup for %q failed: %w", moduleName, err)
	}
	if m.ModuleNumber <= 0 {
		return 1, nil
	}
	return m.ModuleNumber, nil
}

// EchoTitles lists the echo-event titles whose replay reference belongs
// to the given module (replay references look like "M1-T3"; the module
// prefix selects them).
func (s *Store) EchoTitles(ctx context.Context, moduleNumber int) ([]string, error) {
	filter := bson.D{{
		Key:   "echoEvents.replayReference",
		Value: primitive.Regex{Pattern: ModuleReplayPrefix(moduleNumber)},
	}}
	cur, err := s.db.Collection(DefaultCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("echo drift query failed: %w", err)
	}
	defer cur.Close(ctx)

	var drifts []EchoDrift
	if err := cur.All(ctx, &drifts); err != nil {
		return nil, fmt.Errorf("echo drift cursor read failed: %w", err)
	}

	var titles []string
	for _, d := range drifts {
		for _, e := range d.EchoEvents {
			titles = append(titles, e.Title)
		}
	}
	return titles, nil
}

// ModuleReplayPrefix builds the replay-reference regex for a module.
func ModuleReplayPrefix(moduleNumber int) string {
	return fmt.Sprintf("^M%d-", moduleNumber)
}
