// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package refstore reads the external narrative reference data from
// MongoDB: modules, NPCs, echo drifts, intel assets and the timeline.
// Everything here is read-only; the session engine never writes through
// this package, and nothing here touches session state.
package refstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultDatabase is the reference database name.
const DefaultDatabase = "EchoDrrift"

// DefaultCollection backs the bare game-state read endpoint.
const DefaultCollection = "Echo_Drifts"

// ValidCollections is the closed set of reference collections exposed
// over the REST surface. Requests naming anything else are rejected
// before the store is touched.
var ValidCollections = []string{
	"Echo_Drifts",
	"Intel_Assets",
	"Modules",
	"NPCs",
	"Tazk",
	"Timeline",
}

// IsValidCollection reports membership in ValidCollections.
func IsValidCollection(name string) bool {
	for _, c := range ValidCollections {
		if c == name {
			return true
		}
	}
	return false
}

// ValidCollectionList renders the valid set for error messages.
func ValidCollectionList() string {
	return strings.Join(ValidCollections, ", ")
}

// Store is a read-only handle on the reference database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB and verifies the connection with a ping.
// dbName falls back to DefaultDatabase when empty.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("MongoDB URI not set")
	}
	if dbName == "" {
		dbName = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}

	slog.Info("Connected to reference store", "database", dbName)
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// FindAll returns the full contents of one reference collection. The
// caller is expected to have validated the name against
// ValidCollections first.
func (s *Store) FindAll(ctx context.Context, collection string) ([]bson.M, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("query on %s failed: %w", collection, err)
	}
	defer cur.Close(ctx)

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cursor read on %s failed: %w", collection, err)
	}
	if docs == nil {
		docs = []bson.M{}
	}
	return docs, nil
}
