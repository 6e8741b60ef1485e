// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/echodrift/server/services/refstore"
	"github.com/echodrift/server/services/session/observability"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel"
)

var collectionsTracer = otel.Tracer("echodrift.session.handlers")

// ReferenceReader is the read-only slice of the reference store the
// collection endpoints need. *refstore.Store implements it; tests stub
// it.
type ReferenceReader interface {
	FindAll(ctx context.Context, collection string) ([]bson.M, error)
}

// GetCollection serves GET /api/:collection for the fixed reference
// collection set. An unrecognized name gets a 400 listing the valid
// names; a store failure gets a 500. store may be nil (reference store
// unreachable at startup), which reads as a store failure.
func GetCollection(store ReferenceReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := collectionsTracer.Start(c.Request.Context(), "GetCollection")
		defer span.End()

		collection := c.Param("collection")
		if !refstore.IsValidCollection(collection) {
			observability.CollectionReadsTotal.WithLabelValues("invalid", "rejected").Inc()
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid collection. Must be one of: %s", refstore.ValidCollectionList()),
			})
			return
		}

		serveCollection(ctx, c, store, collection)
	}
}

// GetGameState serves GET /api/game-state. It reads the default
// reference collection; live session state travels over the websocket
// channel, not this endpoint.
func GetGameState(store ReferenceReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := collectionsTracer.Start(c.Request.Context(), "GetGameState")
		defer span.End()
		serveCollection(ctx, c, store, refstore.DefaultCollection)
	}
}

func serveCollection(ctx context.Context, c *gin.Context, store ReferenceReader, collection string) {
	if store == nil {
		observability.CollectionReadsTotal.WithLabelValues(collection, "error").Inc()
		slog.Error("Reference store not connected", "collection", collection)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reference store unavailable"})
		return
	}

	docs, err := store.FindAll(ctx, collection)
	if err != nil {
		observability.CollectionReadsTotal.WithLabelValues(collection, "error").Inc()
		slog.Error("Reference collection query failed", "collection", collection, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reference store query failed"})
		return
	}

	observability.CollectionReadsTotal.WithLabelValues(collection, "ok").Inc()
	c.JSON(http.StatusOK, docs)
}
