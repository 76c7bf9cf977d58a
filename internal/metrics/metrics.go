// Package metrics declares the Prometheus collectors exported by the decision service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchTasks counts dispatched search tasks by result (ok, error, timeout).
	SearchTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showdown_search_tasks_total",
		Help: "Search tasks dispatched to the engine by result",
	}, []string{"result"})

	// SearchDuration tracks wall time of a single search task.
	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "showdown_search_duration_seconds",
		Help:    "Duration of one determinization search",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
	})

	// SearchBudget tracks the per-determinization budget handed to the engine.
	SearchBudget = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "showdown_search_budget_ms",
		Help:    "Per-determinization search budget in milliseconds",
		Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3200},
	})

	// TimeBank is the remaining bank of the most recently allocated turn.
	TimeBank = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "showdown_time_bank_ms",
		Help: "Remaining search time bank after the last allocation",
	})

	// Decisions counts final choices by how they were produced.
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showdown_decisions_total",
		Help: "Decisions made by source (search, shortcut, heuristic, preview, noop)",
	}, []string{"source"})

	// OHKOThreats counts turns where the opponent could knock out the active unit in one hit.
	OHKOThreats = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showdown_ohko_threats_total",
		Help: "Turns flagged with a one-hit knockout threat",
	})

	// DamageFallbacks counts damage lookups answered by the local estimate.
	DamageFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showdown_damage_fallbacks_total",
		Help: "Damage lookups that fell back to the heuristic estimate",
	})

	// ExperienceWriteErrors counts swallowed experience log failures by sink.
	ExperienceWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showdown_experience_write_errors_total",
		Help: "Experience records that failed to persist",
	}, []string{"sink"})

	// ActiveSessions is the number of open decision sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "showdown_active_sessions",
		Help: "Open websocket decision sessions",
	})

	// HTTPRequests counts REST and upgrade requests by method and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showdown_http_requests_total",
		Help: "HTTP requests served by method and status class",
	}, []string{"method", "status"})
)
