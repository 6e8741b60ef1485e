// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the session
// service: interaction cycle outcomes, oracle latency, validation-gate
// rejections, live session count and reference collection reads.
//
// Metrics are exposed on /metrics. All operations are thread-safe via
// Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "echodrift"
	sessionSubsystem = "session"
)

// Cycle outcome label values for CyclesTotal.
const (
	CycleOK       = "ok"
	CycleDegraded = "degraded"
	CycleError    = "error"
)

var (
	// CyclesTotal counts completed interaction cycles by outcome:
	// ok (state merged), degraded (validation failure, narrative only),
	// error (cycle aborted).
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: sessionSubsystem,
			Name:      "cycles_total",
			Help:      "Interaction cycles completed, by outcome.",
		},
		[]string{"outcome"},
	)

	// OracleRequestSeconds observes the latency of each oracle call.
	OracleRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: sessionSubsystem,
			Name:      "oracle_request_seconds",
			Help:      "Oracle call latency by operation (narrate, extract).",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"operation"},
	)

	// ValidationFailuresTotal counts oracle deltas rejected by the
	// validation gate (intentional degrades, not errors).
	ValidationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: sessionSubsystem,
			Name:      "validation_failures_total",
			Help:      "Oracle deltas rejected by the validation gate.",
		},
	)

	// ActiveSessions tracks live narrative sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: sessionSubsystem,
			Name:      "active_sessions",
			Help:      "Narrative sessions currently held in memory.",
		},
	)

	// CollectionReadsTotal counts reference collection reads by
	// collection name and result.
	CollectionReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "refstore",
			Name:      "collection_reads_total",
			Help:      "Reference collection reads, by collection and status.",
		},
		[]string{"collection", "status"},
	)
)
