// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"context"

	"github.com/bibliodedup/core/internal/logging"
	"github.com/bibliodedup/core/internal/metrics"
	"github.com/bibliodedup/core/internal/models"
	"github.com/bibliodedup/core/internal/store"
)

// candidateIndices is the fixed priority order probes run in: isbn_keys,
// then id_keys, then title_keys.
var candidateIndices = []struct {
	index store.KeyIndex
	keys  func(*models.Record) []string
}{
	{store.IndexISBN, func(r *models.Record) []string { return r.ISBNKeys }},
	{store.IndexID, func(r *models.Record) []string { return r.IDKeys }},
	{store.IndexTitle, func(r *models.Record) []string { return r.TitleKeys }},
}

// CandidateGenerator produces the bounded, filtered candidate stream the
// Group Manager's dedup(R) walks looking for a match.
type CandidateGenerator struct {
	store Store
	guard *budgetGuard
}

// NewCandidateGenerator builds a generator over s, with its own
// budget-guard registry, owned per generator instance rather than
// shared process-wide state.
func NewCandidateGenerator(s Store) *CandidateGenerator {
	return &CandidateGenerator{store: s, guard: newBudgetGuard()}
}

// Visit is called once per surviving candidate. Returning stop=true ends
// generation immediately (the caller found its match); a non-nil err
// aborts generation and propagates as a store error.
type Visit func(c *models.Record) (stop bool, err error)

// Generate walks subject's candidate keys across the three indices in
// priority order, applying the in-stream filters and budget guard of
// the candidate stream, invoking visit for each surviving candidate until visit
// requests a stop or the candidate pool is exhausted.
func (g *CandidateGenerator) Generate(ctx context.Context, subject *models.Record, visit Visit) error {
	for pass, entry := range candidateIndices {
		for _, key := range entry.keys(subject) {
			if key == "" {
				continue
			}
			stop, err := g.probe(ctx, entry.index, key, pass, subject, visit)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}
	return nil
}

// pass indices into candidateIndices: 0=isbn, 1=id, 2=title.
func (g *CandidateGenerator) probe(ctx context.Context, index store.KeyIndex, key string, pass int, subject *models.Record, visit Visit) (bool, error) {
	limit := g.guard.limit(string(index), key)

	cursor, err := g.store.FindRecordsByKey(ctx, index, key, store.RecordFilter{})
	if err != nil {
		return false, err
	}
	defer cursor.Close()

	examined := 0
	for cursor.Next() {
		examined++
		metrics.CandidatesExamined.WithLabelValues(string(index)).Inc()
		if examined > limit {
			g.guard.recordTrip(string(index), key)
			metrics.BudgetTrips.WithLabelValues(string(index)).Inc()
			logging.CtxDebug(ctx).Str("index", string(index)).Str("key", key).Int("limit", limit).
				Msg("dedup: candidate budget guard tripped")
			return false, nil
		}

		c, err := cursor.Record()
		if err != nil {
			return false, err
		}

		if !g.passesFilter(ctx, subject, c, pass) {
			continue
		}

		stop, err := visit(c)
		if err != nil {
			return false, err
		}
		if stop {
			return true, nil
		}
	}
	if err := cursor.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// passesFilter applies the per-candidate in-stream filters. The store
// query already excludes deleted records; the self and same-source checks
// are made here.
func (g *CandidateGenerator) passesFilter(ctx context.Context, subject, c *models.Record, pass int) bool {
	if c.ID == subject.ID {
		return false
	}
	if c.SourceID == subject.SourceID {
		return false
	}

	// pass 1 (id_keys) and pass 2 (title_keys): drop if the isbn pass
	// would already have surfaced this pair.
	if pass >= 1 && subject.SharesISBNKey(c) {
		return false
	}
	// pass 2 (title_keys) only: additionally drop if the id pass would
	// already have surfaced this pair.
	if pass >= 2 && subject.SharesIDKey(c) {
		return false
	}

	if g.violatesSourceUniqueness(ctx, subject, c) {
		return false
	}

	return true
}

// violatesSourceUniqueness reports whether admitting c as a candidate
// could lead to invariant 3's violation: c already belongs to a group
// other than subject's that contains a record from subject's source.
func (g *CandidateGenerator) violatesSourceUniqueness(ctx context.Context, subject, c *models.Record) bool {
	if c.DedupID == "" || c.DedupID == subject.DedupID {
		return false
	}

	group, err := g.store.FindOneGroup(ctx, c.DedupID)
	if err != nil {
		logging.CtxErr(ctx, err).Str("group", c.DedupID).Msg("dedup: candidate references missing group")
		return false
	}
	for _, memberID := range group.IDs {
		if memberID == c.ID {
			continue
		}
		member, err := g.store.FindOneRecord(ctx, memberID)
		if err != nil {
			logging.CtxErr(ctx, err).Str("record", memberID).Msg("dedup: group references missing record")
			continue
		}
		if member.SourceID == subject.SourceID {
			return true
		}
	}
	return false
}
