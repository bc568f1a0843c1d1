// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"bytes"
	"context"
	"sort"

	"github.com/bibliodedup/core/internal/logging"
	"github.com/bibliodedup/core/internal/metrics"
	"github.com/bibliodedup/core/internal/models"
	"github.com/bibliodedup/core/internal/strutil"
)

// Cascader lifts a newly-matched host record pair's match onto their
// ordered component-part sequences, all-or-nothing.
type Cascader struct {
	store       Store
	predicate   *MatchPredicate
	metaFactory MetadataFactory
	markPair    func(ctx context.Context, a, b *models.Record) error
}

// NewCascader wires the cascader. markPair is the Group Manager's
// markDuplicates, injected as a function value to avoid a cyclic
// dependency between the two collaborators within the package.
func NewCascader(s Store, predicate *MatchPredicate, metaFactory MetadataFactory, markPair func(ctx context.Context, a, b *models.Record) error) *Cascader {
	return &Cascader{store: s, predicate: predicate, metaFactory: metaFactory, markPair: markPair}
}

// Cascade attempts to lift host H's match onto its component-part
// sequence against every other live member of H's group, returning the
// number of component pairs joined. A non-nil error is
// always recovered locally by the caller; Cascade itself never aborts a
// dedup() call.
func (c *Cascader) Cascade(ctx context.Context, h *models.Record) (int, error) {
	if h.LinkingID == "" {
		logging.CtxError(ctx).Str("record", h.ID).Msg("dedup: cascade invoked on host with no linking id")
		return 0, ErrMissingLinkingID
	}

	group, err := c.store.FindOneGroup(ctx, h.DedupID)
	if err != nil {
		return 0, err
	}

	sH, err := c.sortedComponents(ctx, h.SourceID, h.LinkingID)
	if err != nil {
		return 0, err
	}
	if len(sH) == 0 {
		return 0, nil
	}

	for _, memberID := range group.IDs {
		if memberID == h.ID {
			continue
		}
		other, err := c.store.FindOneRecord(ctx, memberID)
		if err != nil {
			logging.CtxErr(ctx, err).Str("record", memberID).Msg("dedup: group references missing record")
			continue
		}
		if other.Deleted || other.SourceID == h.SourceID {
			continue
		}
		if other.LinkingID == "" {
			continue
		}

		sOther, err := c.sortedComponents(ctx, other.SourceID, other.LinkingID)
		if err != nil {
			return 0, err
		}
		if len(sOther) != len(sH) || len(sOther) == 0 {
			continue
		}

		if ok, err := c.allPairsMatch(ctx, sH, sOther); err != nil {
			return 0, err
		} else if !ok {
			continue
		}

		for i := range sH {
			if err := c.markPair(ctx, sH[i], sOther[i]); err != nil {
				return 0, err
			}
			metrics.CascadeMatches.Inc()
		}
		return len(sH), nil
	}

	return 0, nil
}

// sortedComponents returns every non-deleted record with
// (source_id, host_record_id) = (sourceID, linkingID), sorted by id sort
// key so two sources listing the same components in different storage
// order iterate aligned.
func (c *Cascader) sortedComponents(ctx context.Context, sourceID, linkingID string) ([]*models.Record, error) {
	cursor, err := c.store.FindComponentRecords(ctx, sourceID, linkingID)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var components []*models.Record
	for cursor.Next() {
		r, err := cursor.Record()
		if err != nil {
			return nil, err
		}
		components = append(components, r)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	sort.Slice(components, func(i, j int) bool {
		return bytes.Compare(strutil.IDSortKey(components[i].ID), strutil.IDSortKey(components[j].ID)) < 0
	})
	return components, nil
}

func (c *Cascader) allPairsMatch(ctx context.Context, sH, sOther []*models.Record) (bool, error) {
	for i := range sH {
		h, o := sH[i], sOther[i]
		hm, err := c.metaFactory(h.Format, h.Raw, h.OAIID, h.SourceID)
		if err != nil {
			return false, err
		}
		om, err := c.metaFactory(o.Format, o.Raw, o.OAIID, o.SourceID)
		if err != nil {
			return false, err
		}
		if !c.predicate.Match(h, hm, o, om) {
			return false, nil
		}
	}
	return true, nil
}
