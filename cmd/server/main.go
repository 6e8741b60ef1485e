// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command server starts the Echo Drift session server.
//
// Configuration comes from environment variables:
//
//   - PORT: HTTP server port (default: 3000)
//   - ORACLE_BACKEND: oracle provider - openai, ollama (default: openai)
//   - OPENAI_API_KEY / OPENAI_MODEL: OpenAI backend settings
//   - OLLAMA_BASE_URL / OLLAMA_MODEL: Ollama backend settings
//   - MONGODB_URI: reference store connection string (optional)
//   - MONGODB_DATABASE: reference database name (default: EchoDrrift)
//   - ORACLE_TIMEOUT_SECONDS: per-call oracle timeout (default: 60)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: localhost:4317)
//   - LOG_DIR: enable JSON file logging to this directory (optional)
//
// Usage:
//
//	go build -o server ./cmd/server
//	./server
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/echodrift/server/pkg/logging"
	"github.com/echodrift/server/services/session"
)

func main() {
	logger, err := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  os.Getenv("LOG_DIR"),
		Service: "session",
		JSON:    true,
	})
	if err != nil {
		logger = logging.Default()
		logger.Warn("File logging unavailable, using stderr only", "error", err)
	}
	defer logger.Close()
	logger.SetDefault()

	cfg := session.Config{
		Port:          getEnvInt("PORT", 3000),
		OracleBackend: getEnvString("ORACLE_BACKEND", "openai"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: os.Getenv("MONGODB_DATABASE"),
		OracleTimeout: time.Duration(getEnvInt("ORACLE_TIMEOUT_SECONDS", 60)) * time.Second,
		OTelEndpoint:  getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	slog.Info("Starting Echo Drift server",
		"port", cfg.Port,
		"oracle_backend", cfg.OracleBackend,
		"reference_store", cfg.MongoURI != "",
	)

	svc, err := session.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create session service: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Session service error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
