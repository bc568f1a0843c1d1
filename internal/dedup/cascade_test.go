// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibliodedup/core/internal/models"
)

func TestCascader_AllComponentsMatchPositionally(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	hostA := &models.Record{ID: "hostA", SourceID: "s1", OAIID: "hostA", LinkingID: "hostA", DedupID: "g1"}
	hostB := &models.Record{ID: "hostB", SourceID: "s2", OAIID: "hostB", LinkingID: "hostB", DedupID: "g1"}
	fs.put(hostA)
	fs.put(hostB)
	require.NoError(t, fs.InsertGroup(ctx, &models.DedupGroup{ID: "g1", IDs: []string{"hostA", "hostB"}}))

	// Component ids are chosen so lexical/collation sort already aligns
	// A1<->B1, A2<->B2, A3<->B3 without relying on insertion order.
	a1 := &models.Record{ID: "a1", SourceID: "s1", OAIID: "a1", HostRecordID: "hostA"}
	a2 := &models.Record{ID: "a2", SourceID: "s1", OAIID: "a2", HostRecordID: "hostA"}
	a3 := &models.Record{ID: "a3", SourceID: "s1", OAIID: "a3", HostRecordID: "hostA"}
	b1 := &models.Record{ID: "b1", SourceID: "s2", OAIID: "b1", HostRecordID: "hostB"}
	b2 := &models.Record{ID: "b2", SourceID: "s2", OAIID: "b2", HostRecordID: "hostB"}
	b3 := &models.Record{ID: "b3", SourceID: "s2", OAIID: "b3", HostRecordID: "hostB"}
	for _, r := range []*models.Record{a1, a2, a3, b1, b2, b3} {
		fs.put(r)
	}

	views := map[string]*stubView{
		"a1": {title: "chapter one"}, "b1": {title: "chapter one"},
		"a2": {title: "chapter two"}, "b2": {title: "chapter two"},
		"a3": {title: "chapter three"}, "b3": {title: "chapter three"},
	}
	factory := testMetaFactory(views)
	predicate := NewMatchPredicate(newStubFormatMapper())

	var marked [][2]string
	markPair := func(ctx context.Context, x, y *models.Record) error {
		marked = append(marked, [2]string{x.ID, y.ID})
		return nil
	}
	cascader := NewCascader(fs, predicate, factory, markPair)

	n, err := cascader.Cascade(ctx, hostA)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, marked, 3)
}

func TestCascader_PartialMismatchIsAllOrNothing(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	hostA := &models.Record{ID: "hostA", SourceID: "s1", OAIID: "hostA", LinkingID: "hostA", DedupID: "g1"}
	hostB := &models.Record{ID: "hostB", SourceID: "s2", OAIID: "hostB", LinkingID: "hostB", DedupID: "g1"}
	fs.put(hostA)
	fs.put(hostB)
	require.NoError(t, fs.InsertGroup(ctx, &models.DedupGroup{ID: "g1", IDs: []string{"hostA", "hostB"}}))

	a1 := &models.Record{ID: "a1", SourceID: "s1", OAIID: "a1", HostRecordID: "hostA"}
	a2 := &models.Record{ID: "a2", SourceID: "s1", OAIID: "a2", HostRecordID: "hostA"}
	b1 := &models.Record{ID: "b1", SourceID: "s2", OAIID: "b1", HostRecordID: "hostB"}
	b2 := &models.Record{ID: "b2", SourceID: "s2", OAIID: "b2", HostRecordID: "hostB"}
	for _, r := range []*models.Record{a1, a2, b1, b2} {
		fs.put(r)
	}

	views := map[string]*stubView{
		"a1": {title: "chapter one"}, "b1": {title: "chapter one"},
		"a2": {title: "chapter two"}, "b2": {title: "an entirely different text"},
	}
	factory := testMetaFactory(views)
	predicate := NewMatchPredicate(newStubFormatMapper())

	var marked [][2]string
	markPair := func(ctx context.Context, x, y *models.Record) error {
		marked = append(marked, [2]string{x.ID, y.ID})
		return nil
	}
	cascader := NewCascader(fs, predicate, factory, markPair)

	n, err := cascader.Cascade(ctx, hostA)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "one mismatched component pair must veto the whole cascade")
	assert.Empty(t, marked)
}

func TestCascader_MissingLinkingIDErrors(t *testing.T) {
	fs := newFakeStore()
	predicate := NewMatchPredicate(newStubFormatMapper())
	cascader := NewCascader(fs, predicate, testMetaFactory(nil), func(context.Context, *models.Record, *models.Record) error { return nil })

	h := &models.Record{ID: "h", SourceID: "s1", DedupID: "g1"}
	_, err := cascader.Cascade(context.Background(), h)
	assert.ErrorIs(t, err, ErrMissingLinkingID)
}
