// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/echodrift/server/services/session/engine"
	"github.com/echodrift/server/services/session/handlers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers every endpoint of the session service.
func SetupRoutes(router *gin.Engine, store handlers.ReferenceReader, mgr *engine.Manager) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Realtime session channel.
	router.GET("/ws", handlers.HandleSessionWebSocket(mgr))

	// Read-only reference data surface.
	api := router.Group("/api")
	{
		api.GET("/game-state", handlers.GetGameState(store))
		api.GET("/:collection", handlers.GetCollection(store))
	}
}
