// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics provides Prometheus instrumentation for the dedup
// engine, using promauto package-level vars for each series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CandidatesExamined counts candidates pulled off the store cursor
	// during candidate generation, per index.
	CandidatesExamined = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_candidates_examined_total",
			Help: "Total number of candidate records examined during generation",
		},
		[]string{"index"},
	)

	// BudgetTrips counts probes that exceeded the per-(index,key)
	// candidate ceiling.
	BudgetTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_budget_trips_total",
			Help: "Total number of candidate-generation probes that tripped the budget guard",
		},
		[]string{"index"},
	)

	// Matches counts successful match-predicate decisions, tagged by the
	// rule that decided them.
	Matches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_matches_total",
			Help: "Total number of record pairs matched, by deciding rule",
		},
		[]string{"rule"},
	)

	// GroupMutations counts Group Manager state transitions, by
	// operation (create, grow, shrink, tombstone).
	GroupMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_group_mutations_total",
			Help: "Total number of dedup group mutations, by operation",
		},
		[]string{"op"},
	)

	// CascadeMatches counts component-part pairs joined by the cascader.
	CascadeMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_cascade_matches_total",
			Help: "Total number of component-part pairs joined by the cascader",
		},
	)

	// GroupSaveConflicts counts optimistic-concurrency retries on group
	// saves.
	GroupSaveConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_group_save_conflicts_total",
			Help: "Total number of optimistic-concurrency conflicts retried on group save",
		},
	)

	// DedupDuration measures wall-clock time of a single dedup(R) call.
	DedupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dedup_record_duration_seconds",
			Help:    "Duration of a single dedup(R) call in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
