// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/echodrift/server/services/session/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var cycleTracer = otel.Tracer("echodrift.session.engine")

// DefaultOracleTimeout bounds each of the two oracle calls in a cycle.
const DefaultOracleTimeout = 60 * time.Second

// Narrator produces narrative text for a player query against a state
// snapshot. Implemented by OracleGateway; stubbed in tests.
type Narrator interface {
	Narrate(ctx context.Context, state GameState, playerQuery string) (string, error)
}

// Extractor turns one interaction into a validated Delta. Implemented
// by DeltaExtractor; stubbed in tests.
type Extractor interface {
	Extract(ctx context.Context, playerQuery, narrativeText string) (*Delta, error)
}

// CycleResult is what one successful (or degraded) interaction cycle
// hands back to the gateway.
type CycleResult struct {
	Narrative string
	State     GameState
}

type cycleReply struct {
	res CycleResult
	err error
}

type cycleJob struct {
	ctx   context.Context
	query string
	reply chan cycleReply
}

// Session is one logical narrative session: an owned StateStore plus a
// single worker goroutine draining a FIFO job queue.
//
// The worker is the only writer of the store, which makes the whole
// cycle - narrate, extract, merge, arc check - atomic with respect to
// it. Two queries submitted concurrently serialize here; the second
// cycle always observes the state produced by the first one's merge,
// closing the lost-update race a shared snapshot would open.
type Session struct {
	ID string

	store         *StateStore
	narrator      Narrator
	extractor     Extractor
	oracleTimeout time.Duration

	jobs      chan cycleJob
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session seeded with the fixed opening state and
// starts its worker. oracleTimeout <= 0 uses DefaultOracleTimeout.
func NewSession(id string, narrator Narrator, extractor Extractor, oracleTimeout time.Duration) *Session {
	if oracleTimeout <= 0 {
		oracleTimeout = DefaultOracleTimeout
	}
	s := &Session{
		ID:            id,
		store:         NewStateStore(NewGameState()),
		narrator:      narrator,
		extractor:     extractor,
		oracleTimeout: oracleTimeout,
		jobs:          make(chan cycleJob, 16),
		done:          make(chan struct{}),
	}
	go s.run()
	return s
}

// Snapshot returns the current state.
func (s *Session) Snapshot() GameState {
	return s.store.Read()
}

// Submit queues one player query and blocks until its cycle finishes.
// Queued jobs run strictly in submission order. Returns
// ErrSessionClosed after Close.
func (s *Session) Submit(ctx context.Context, query string) (CycleResult, error) {
	job := cycleJob{ctx: ctx, query: query, reply: make(chan cycleReply, 1)}
	select {
	case s.jobs <- job:
	case <-s.done:
		return CycleResult{}, ErrSessionClosed
	case <-ctx.Done():
		return CycleResult{}, ctx.Err()
	}

	// reply is buffered, so the worker never blocks on an abandoned job.
	select {
	case r := <-job.reply:
		return r.res, r.err
	case <-s.done:
		return CycleResult{}, ErrSessionClosed
	case <-ctx.Done():
		return CycleResult{}, ctx.Err()
	}
}

// Close stops the worker. In-flight cycles finish; queued jobs are
// abandoned and their submitters receive ErrSessionClosed.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		case job := <-s.jobs:
			res, err := s.cycle(job.ctx, job.query)
			job.reply <- cycleReply{res: res, err: err}
		}
	}
}

// cycle executes one full interaction: narrate -> extract -> apply.
// Oracle failures abort before any state change. A validation failure
// is an intentional degrade: the narrative is still returned, the state
// change is dropped and the store stays untouched.
func (s *Session) cycle(ctx context.Context, query string) (CycleResult, error) {
	ctx, span := cycleTracer.Start(ctx, "Session.cycle")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.ID))

	start := time.Now()
	state := s.store.Read()

	narrateCtx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	narrateStart := time.Now()
	narrative, err := s.narrator.Narrate(narrateCtx, state, query)
	cancel()
	observability.OracleRequestSeconds.WithLabelValues("narrate").Observe(time.Since(narrateStart).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.CyclesTotal.WithLabelValues(observability.CycleError).Inc()
		return CycleResult{}, err
	}

	extractCtx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	extractStart := time.Now()
	delta, err := s.extractor.Extract(extractCtx, query, narrative)
	cancel()
	observability.OracleRequestSeconds.WithLabelValues("extract").Observe(time.Since(extractStart).Seconds())
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			slog.Warn("Delta failed validation, delivering narrative without state change",
				"session_id", s.ID, "reason", verr.Reason, "raw", verr.Raw)
			observability.ValidationFailuresTotal.Inc()
			observability.CyclesTotal.WithLabelValues(observability.CycleDegraded).Inc()
			return CycleResult{Narrative: narrative, State: state}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.CyclesTotal.WithLabelValues(observability.CycleError).Inc()
		return CycleResult{}, err
	}

	snapshot := s.store.Apply(delta, Interaction{
		Query:    query,
		Response: narrative,
		At:       start.UnixMilli(),
	})
	observability.CyclesTotal.WithLabelValues(observability.CycleOK).Inc()
	slog.Info("Interaction cycle complete",
		"session_id", s.ID,
		"arc", snapshot.CurrentArc,
		"empty_delta", delta.IsEmpty(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return CycleResult{Narrative: narrative, State: snapshot}, nil
}
