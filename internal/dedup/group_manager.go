// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bibliodedup/core/internal/logging"
	"github.com/bibliodedup/core/internal/metadata"
	"github.com/bibliodedup/core/internal/metrics"
	"github.com/bibliodedup/core/internal/models"
	"github.com/bibliodedup/core/internal/store"
	"github.com/bibliodedup/core/internal/strutil"
)

// maxLeaveDepth bounds the re-dedup recursion leave() triggers on a
// group's remaining members. The re-entry is a fixed-point search over a
// group whose membership only shrinks or stays fixed per pass and
// converges within one or two passes in practice, so depth 4 is a
// generous ceiling rather than an expected depth.
const maxLeaveDepth = 4

// GroupManager owns dedup-group lifecycle: creating, growing, shrinking,
// and deleting groups, and the bidirectional link between a group and its
// member records.
type GroupManager struct {
	store       Store
	gen         *CandidateGenerator
	predicate   *MatchPredicate
	metaFactory MetadataFactory
	idGen       IDGenerator
	cascader    *Cascader
}

// NewGroupManager wires the Group Manager's collaborators. cascader may
// be nil in tests that don't exercise component-part cascading.
func NewGroupManager(s Store, gen *CandidateGenerator, predicate *MatchPredicate, metaFactory MetadataFactory, idGen IDGenerator, cascader *Cascader) *GroupManager {
	return &GroupManager{
		store:       s,
		gen:         gen,
		predicate:   predicate,
		metaFactory: metaFactory,
		idGen:       idGen,
		cascader:    cascader,
	}
}

// Dedup drives the full flow for one subject record (dedup(R)): refresh
// its candidate keys, search for a match, and either join it to a group
// or detach it from its prior one.
func (m *GroupManager) Dedup(ctx context.Context, r *models.Record) (bool, error) {
	return m.dedupDepth(ctx, r, 0)
}

func (m *GroupManager) dedupDepth(ctx context.Context, r *models.Record, depth int) (bool, error) {
	rm, err := m.metaFactory(r.Format, r.Raw, r.OAIID, r.SourceID)
	if err != nil {
		return false, fmt.Errorf("dedup: build metadata view for %s: %w", r.ID, err)
	}
	m.UpdateDedupCandidateKeys(r, rm)

	var matched *models.Record
	err = m.gen.Generate(ctx, r, func(c *models.Record) (bool, error) {
		cm, err := m.metaFactory(c.Format, c.Raw, c.OAIID, c.SourceID)
		if err != nil {
			return false, fmt.Errorf("dedup: build metadata view for candidate %s: %w", c.ID, err)
		}
		if m.predicate.Match(r, rm, c, cm) {
			matched = c
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return false, err
	}

	if matched != nil {
		if err := m.markDuplicatesDepth(ctx, r, matched, depth); err != nil {
			return false, err
		}
		return true, nil
	}

	if r.DedupID != "" || r.UpdateNeeded {
		if r.DedupID != "" {
			if err := m.leave(ctx, r.DedupID, r.ID, depth); err != nil {
				return false, err
			}
		}
		r.DedupID = ""
		r.Updated = time.Now()
		r.UpdateNeeded = false
		if err := m.store.SaveRecord(ctx, r); err != nil {
			return false, err
		}
	}
	return false, nil
}

// markDuplicates resolves the post-state for a matched pair (A, B) by
// case on existing group membership.
func (m *GroupManager) markDuplicates(ctx context.Context, a, b *models.Record) error {
	return m.markDuplicatesDepth(ctx, a, b, 0)
}

// markDuplicatesDepth is markDuplicates carrying the leave() recursion
// depth of the dedup call that found the match, so detaching A from its
// old group stays under maxLeaveDepth.
func (m *GroupManager) markDuplicatesDepth(ctx context.Context, a, b *models.Record, depth int) error {
	var groupID string

	switch {
	case b.DedupID != "":
		groupID = b.DedupID
		if err := m.addMember(ctx, groupID, a.ID); err != nil {
			return err
		}
		if a.DedupID != "" && a.DedupID != groupID {
			if err := m.leave(ctx, a.DedupID, a.ID, depth); err != nil {
				return err
			}
		}
	case a.DedupID != "":
		groupID = a.DedupID
		if err := m.addMember(ctx, groupID, b.ID); err != nil {
			return err
		}
	default:
		groupID = m.idGen()
		g := &models.DedupGroup{ID: groupID, IDs: []string{a.ID, b.ID}}
		if err := m.store.InsertGroup(ctx, g); err != nil {
			return err
		}
		metrics.GroupMutations.WithLabelValues("create").Inc()
	}

	now := time.Now()
	_, err := m.store.UpdateRecords(ctx, store.RecordFilter{IDs: []string{a.ID, b.ID}}, func(r *models.Record) bool {
		r.DedupID = groupID
		r.Updated = now
		r.UpdateNeeded = false
		return true
	})
	if err != nil {
		return err
	}
	a.DedupID, b.DedupID = groupID, groupID

	if a.HostRecordID == "" && m.cascader != nil {
		if _, err := m.cascader.Cascade(ctx, a); err != nil {
			logging.CtxErr(ctx, err).Str("record", a.ID).Msg("dedup: component-part cascade failed")
		}
	}
	return nil
}

// addMember loads group groupID, adds memberID if absent, and saves with
// optimistic-concurrency retry.
func (m *GroupManager) addMember(ctx context.Context, groupID, memberID string) error {
	err := m.mutateGroupWithRetry(ctx, groupID, func(g *models.DedupGroup) bool {
		return g.Add(memberID)
	})
	if err == nil {
		metrics.GroupMutations.WithLabelValues("grow").Inc()
	}
	return err
}

// leave removes id from group g's membership, tombstoning or shrinking
// the group, then re-invokes Dedup on remaining members so
// they can re-group under the new composition. depth bounds that
// re-entry.
func (m *GroupManager) leave(ctx context.Context, groupID, id string, depth int) error {
	g, err := m.store.FindOneGroup(ctx, groupID)
	if err != nil {
		return err
	}
	prevChanged := g.Changed

	removed := g.Remove(id)
	if !removed {
		return nil
	}

	var orphan string
	switch len(g.IDs) {
	case 1:
		orphan = g.IDs[0]
		g.IDs = nil
		g.Deleted = true
	case 0:
		g.Deleted = true
	}

	if orphan != "" {
		if err := m.clearDedupID(ctx, orphan); err != nil {
			return err
		}
	}

	if err := m.store.SaveGroup(ctx, g, prevChanged); err != nil {
		return err
	}
	if g.Deleted {
		metrics.GroupMutations.WithLabelValues("tombstone").Inc()
	} else {
		metrics.GroupMutations.WithLabelValues("shrink").Inc()
	}

	if g.Deleted || depth >= maxLeaveDepth {
		if depth >= maxLeaveDepth && !g.Deleted {
			logging.CtxWarn(ctx).Str("group", groupID).Int("depth", depth).
				Msg("dedup: leave() re-dedup recursion bound reached")
		}
		return nil
	}

	for _, memberID := range append([]string(nil), g.IDs...) {
		member, err := m.store.FindOneRecord(ctx, memberID)
		if err != nil {
			logging.CtxErr(ctx, err).Str("record", memberID).Msg("dedup: group references missing record")
			continue
		}
		if _, err := m.dedupDepth(ctx, member, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (m *GroupManager) clearDedupID(ctx context.Context, recordID string) error {
	rec, err := m.store.FindOneRecord(ctx, recordID)
	if err != nil {
		return err
	}
	rec.DedupID = ""
	rec.Updated = time.Now()
	return m.store.SaveRecord(ctx, rec)
}

// mutateGroupWithRetry loads groupID, applies mutate, and saves with
// optimistic-concurrency retry via exponential backoff on
// ErrConcurrentGroupUpdate.
func (m *GroupManager) mutateGroupWithRetry(ctx context.Context, groupID string, mutate func(*models.DedupGroup) bool) error {
	op := func() error {
		g, err := m.store.FindOneGroup(ctx, groupID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !mutate(g) {
			return nil
		}
		err = m.store.SaveGroup(ctx, g, g.Changed)
		if err == store.ErrConcurrentGroupUpdate {
			metrics.GroupSaveConflicts.Inc()
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// UpdateDedupCandidateKeys recomputes title_keys, isbn_keys, id_keys on r
// from rm, omitting the field entirely when its resulting set is empty.
func (m *GroupManager) UpdateDedupCandidateKeys(r *models.Record, rm metadata.View) {
	r.ISBNKeys = emptyToNil(rm.ISBNs())
	r.IDKeys = emptyToNil(rm.UniqueIDs())
	if key := strutil.TitleKey(rm.Title(true)); key != "" {
		r.TitleKeys = []string{key}
	} else {
		r.TitleKeys = nil
	}
}

func emptyToNil(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	return ss
}

// CheckDedupRecord verifies invariant 2 for group g from the group's side:
// every id in g.ids must name a non-deleted Record whose dedup_id is g.
// Members failing the check are expelled from g and a human-readable
// repair line is returned for each. Records that claim dedup_id=g without
// appearing in g.ids are not searched for.
func (m *GroupManager) CheckDedupRecord(ctx context.Context, g *models.DedupGroup) ([]string, error) {
	var repairs []string
	var kept []string
	prevChanged := g.Changed

	for _, id := range g.IDs {
		rec, err := m.store.FindOneRecord(ctx, id)
		if err != nil {
			repairs = append(repairs, fmt.Sprintf("group %s: member %s missing, expelled", g.ID, id))
			continue
		}
		if rec.Deleted || rec.DedupID != g.ID {
			repairs = append(repairs, fmt.Sprintf("group %s: member %s back-link mismatch (dedup_id=%q), expelled", g.ID, id, rec.DedupID))
			continue
		}
		kept = append(kept, id)
	}

	if len(repairs) == 0 {
		return nil, nil
	}

	g.IDs = kept
	if !g.Live() {
		g.Deleted = true
		g.IDs = nil
	}
	if err := m.store.SaveGroup(ctx, g, prevChanged); err != nil {
		return repairs, err
	}
	return repairs, nil
}
