// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session provides the Echo Drift session service.
//
// This package contains the Service type that coordinates all components
// of the server: HTTP routing, the websocket session channel, the oracle
// backends, the MongoDB reference store, and observability
// infrastructure.
//
// # Usage
//
//	cfg := session.Config{Port: 3000, OracleBackend: "openai"}
//	svc, err := session.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/echodrift/server/services/llm"
	"github.com/echodrift/server/services/refstore"
	"github.com/echodrift/server/services/session/engine"
	"github.com/echodrift/server/services/session/handlers"
	"github.com/echodrift/server/services/session/routes"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Service defines the contract for the session service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// Config holds session service configuration options. All fields are
// optional with defaults applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 3000
	Port int

	// OracleBackend selects the oracle provider.
	// Valid values: "openai", "ollama". Default: "openai"
	OracleBackend string

	// MongoURI is the reference store connection string. If empty or
	// unreachable, the service runs without reference data: collection
	// endpoints answer 500 and narrate prompts go out ungrounded.
	MongoURI string

	// MongoDatabase is the reference database name.
	// Default: refstore.DefaultDatabase
	MongoDatabase string

	// OracleTimeout bounds each oracle call inside a cycle.
	// Default: engine.DefaultOracleTimeout
	OracleTimeout time.Duration

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "localhost:4317"
	OTelEndpoint string

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string
}

// service implements Service for production use.
type service struct {
	config        Config
	router        *gin.Engine
	oracleClient  llm.LLMClient
	refStore      *refstore.Store
	manager       *engine.Manager
	tracerCleanup func(context.Context)
}

// New creates a session Service with the given configuration.
//
// Initialization order: defaults, tracing, reference store (optional),
// oracle client, session manager, routes. A missing reference store is
// a warning, not a failure; the affected endpoints degrade. An
// unusable oracle backend is fatal because no cycle can run without it.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if err := s.initRefStore(); err != nil {
		slog.Warn("Reference store initialization failed, running without reference data",
			"error", err)
		// Not fatal - collection reads 500, prompts lose grounding.
	}

	if err := s.initOracleClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize oracle client: %w", err)
	}

	if err := s.initManager(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize session manager: %w", err)
	}

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting session server", "port", s.config.Port)
	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	if cfg.OracleBackend == "" {
		cfg.OracleBackend = "openai"
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = refstore.DefaultDatabase
	}
	if cfg.OracleTimeout == 0 {
		cfg.OracleTimeout = engine.DefaultOracleTimeout
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "localhost:4317"
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing with an OTLP
// exporter. Uses an insecure gRPC connection, appropriate for internal
// networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("echodrift-session")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}
	return cleanup, nil
}

// initRefStore connects to the MongoDB reference store if configured.
func (s *service) initRefStore() error {
	if s.config.MongoURI == "" {
		slog.Info("MongoDB URI not configured, running without reference data")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := refstore.Connect(ctx, s.config.MongoURI, s.config.MongoDatabase)
	if err != nil {
		return err
	}
	s.refStore = store
	return nil
}

// initOracleClient creates the oracle backend named by the config.
func (s *service) initOracleClient() error {
	var err error
	switch s.config.OracleBackend {
	case "openai":
		s.oracleClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI oracle backend")
	case "ollama":
		s.oracleClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama oracle backend")
	default:
		slog.Warn("Unknown oracle backend, defaulting to openai", "backend", s.config.OracleBackend)
		s.oracleClient, err = llm.NewOpenAIClient()
	}
	return err
}

// initManager wires the oracle gateway and the delta extractor into a
// session factory. All sessions share the stateless gateway pair; each
// gets its own state store and worker.
func (s *service) initManager() error {
	var refs engine.ReferenceData
	if s.refStore != nil {
		refs = s.refStore
	}

	gateway, err := engine.NewOracleGateway(s.oracleClient, refs)
	if err != nil {
		return err
	}
	extractor := engine.NewDeltaExtractor(s.oracleClient)

	timeout := s.config.OracleTimeout
	s.manager = engine.NewManager(func(id string) *engine.Session {
		return engine.NewSession(id, gateway, extractor, timeout)
	})
	return nil
}

// initRouter sets up the Gin engine, middleware and routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("echodrift-session"))

	// Keep the interface truly nil when the store is absent so the
	// handlers' nil check works.
	var store handlers.ReferenceReader
	if s.refStore != nil {
		store = s.refStore
	}
	routes.SetupRoutes(s.router, store, s.manager)
}

// cleanup releases resources on Run exit or failed initialization.
func (s *service) cleanup() {
	if s.manager != nil {
		s.manager.CloseAll()
	}
	if s.refStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.refStore.Close(ctx); err != nil {
			slog.Warn("Reference store close error", "error", err)
		}
		cancel()
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

var _ Service = (*service)(nil)
