// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the judge service.
//
// # Description
//
// Metrics cover the judgment pipeline end to end:
//   - Run counters by mode, debate selection and outcome
//   - Active run gauge
//   - Run duration histograms
//   - Stage error counters
//   - Debate round counters by bracket
//   - Persistence outcome counters
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for judge pipeline metrics
const judgeSubsystem = "judge"

// JudgeMetrics holds all Prometheus metrics for the judgment pipeline.
//
// Initialize once at startup via InitMetrics(). Every recording helper is
// nil-safe so library callers without metrics keep working.
type JudgeMetrics struct {
	// RunsTotal counts completed pipeline runs.
	// Labels: mode (base, deep), debate (arena, all, none), status (ok, failed)
	RunsTotal *prometheus.CounterVec

	// ActiveRuns tracks pipeline runs currently in flight.
	ActiveRuns prometheus.Gauge

	// RunDurationSeconds measures total run duration.
	// Labels: mode, debate
	RunDurationSeconds *prometheus.HistogramVec

	// StageErrorsTotal counts stage failures.
	// Labels: stage (engines, base, deep, debate, persist)
	StageErrorsTotal *prometheus.CounterVec

	// DebateRoundsTotal counts judged exchanges.
	// Labels: match_key (arena, all_to_all, final_match)
	DebateRoundsTotal *prometheus.CounterVec

	// PersistOutcomesTotal counts save attempts.
	// Labels: outcome (ok, skipped, error)
	PersistOutcomesTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of JudgeMetrics.
// Initialized by InitMetrics(); nil when the service runs without metrics.
var DefaultMetrics *JudgeMetrics

// InitMetrics initializes the default metrics instance.
//
// Call once at startup; a second call panics on duplicate registration.
func InitMetrics() *JudgeMetrics {
	DefaultMetrics = &JudgeMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: judgeSubsystem,
				Name:      "runs_total",
				Help:      "Total pipeline runs by mode, debate selection and status",
			},
			[]string{"mode", "debate", "status"},
		),

		ActiveRuns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: judgeSubsystem,
				Name:      "active_runs",
				Help:      "Pipeline runs currently in flight",
			},
		),

		RunDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: judgeSubsystem,
				Name:      "run_duration_seconds",
				Help:      "Total pipeline run duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode", "debate"},
		),

		StageErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: judgeSubsystem,
				Name:      "stage_errors_total",
				Help:      "Stage failures by pipeline stage",
			},
			[]string{"stage"},
		),

		DebateRoundsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: judgeSubsystem,
				Name:      "debate_rounds_total",
				Help:      "Judged debate exchanges by bracket",
			},
			[]string{"match_key"},
		),

		PersistOutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: judgeSubsystem,
				Name:      "persist_outcomes_total",
				Help:      "Run persistence attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// RunStarted increments the active run gauge.
func (m *JudgeMetrics) RunStarted() {
	if m == nil {
		return
	}
	m.ActiveRuns.Inc()
}

// RunEnded records a completed run and decrements the active gauge.
func (m *JudgeMetrics) RunEnded(mode, debate string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.ActiveRuns.Dec()
	m.RunsTotal.WithLabelValues(mode, debate, status).Inc()
	m.RunDurationSeconds.WithLabelValues(mode, debate).Observe(seconds)
}

// RunAborted decrements the active gauge without recording an outcome.
// Used when a run is canceled before reaching a terminal result.
func (m *JudgeMetrics) RunAborted() {
	if m == nil {
		return
	}
	m.ActiveRuns.Dec()
}

// RecordStageError counts one stage failure.
func (m *JudgeMetrics) RecordStageError(stage string) {
	if m == nil {
		return
	}
	m.StageErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordDebateRound counts one judged exchange.
func (m *JudgeMetrics) RecordDebateRound(matchKey string) {
	if m == nil {
		return
	}
	m.DebateRoundsTotal.WithLabelValues(matchKey).Inc()
}

// RecordPersistOutcome counts one save attempt.
func (m *JudgeMetrics) RecordPersistOutcome(ok bool, skipped bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case skipped:
		outcome = "skipped"
	case !ok:
		outcome = "error"
	}
	m.PersistOutcomesTotal.WithLabelValues(outcome).Inc()
}
