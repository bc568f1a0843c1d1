// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bibliodedup/core/internal/metadata"
	"github.com/bibliodedup/core/internal/metrics"
	"github.com/bibliodedup/core/internal/models"
)

// Engine is the top-level entry point wiring the Candidate Generator,
// Match Predicate, Group Manager, and Component-Part Cascader into the
// Engine API.
type Engine struct {
	manager *GroupManager
}

// New assembles an Engine over store s, using formatMapper for the
// format-veto rule and metadata.NewView as the record factory. Workers
// may call DedupRecord concurrently for different subject records; a
// single call is internally sequential.
func New(s Store, formatMapper FormatMapper) *Engine {
	predicate := NewMatchPredicate(formatMapper)
	gen := NewCandidateGenerator(s)
	manager := NewGroupManager(s, gen, predicate, metadata.NewView, func() string { return uuid.New().String() }, nil)
	cascader := NewCascader(s, predicate, metadata.NewView, manager.markDuplicates)
	manager.cascader = cascader
	return &Engine{manager: manager}
}

// DedupRecord runs dedup(R): the full candidate-search, match, and
// group-maintenance flow for one subject record.
func (e *Engine) DedupRecord(ctx context.Context, r *models.Record) (bool, error) {
	start := time.Now()
	defer func() { metrics.DedupDuration.Observe(time.Since(start).Seconds()) }()
	return e.manager.Dedup(ctx, r)
}

// CheckDedupRecord verifies invariant 2 for group g, expelling members
// whose back-link is absent or mismatched, and returns human-readable
// repair lines.
func (e *Engine) CheckDedupRecord(ctx context.Context, g *models.DedupGroup) ([]string, error) {
	return e.manager.CheckDedupRecord(ctx, g)
}

// UpdateDedupCandidateKeys recomputes title_keys, isbn_keys, id_keys on r
// from rm.
func (e *Engine) UpdateDedupCandidateKeys(r *models.Record, rm metadata.View) {
	e.manager.UpdateDedupCandidateKeys(r, rm)
}
