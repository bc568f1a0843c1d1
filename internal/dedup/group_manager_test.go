// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibliodedup/core/internal/metadata"
	"github.com/bibliodedup/core/internal/models"
)

// testMetaFactory looks up a canned view by the record's OAIID field,
// sidestepping real payload parsing in these engine-level tests.
func testMetaFactory(views map[string]*stubView) MetadataFactory {
	return func(format string, raw []byte, oaiID, sourceID string) (metadata.View, error) {
		return views[oaiID], nil
	}
}

func newTestManager(t *testing.T, fs *fakeStore, views map[string]*stubView) *GroupManager {
	t.Helper()
	gen := NewCandidateGenerator(fs)
	predicate := NewMatchPredicate(newStubFormatMapper())
	factory := testMetaFactory(views)
	idN := 0
	idGen := func() string {
		idN++
		return "group-" + string(rune('0'+idN))
	}
	manager := NewGroupManager(fs, gen, predicate, factory, idGen, nil)
	return manager
}

func TestGroupManager_ISBNMatchCreatesFreshGroup(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	a := &models.Record{ID: "a", SourceID: "s1", OAIID: "a", ISBNKeys: []string{"978-1"}}
	b := &models.Record{ID: "b", SourceID: "s2", OAIID: "b", ISBNKeys: []string{"978-1"}}
	fs.put(a)
	fs.put(b)

	views := map[string]*stubView{
		"a": {isbns: []string{"978-1"}},
		"b": {isbns: []string{"978-1"}},
	}
	manager := newTestManager(t, fs, views)

	matched, err := manager.Dedup(ctx, a)
	require.NoError(t, err)
	assert.True(t, matched)

	storedA, err := fs.FindOneRecord(ctx, "a")
	require.NoError(t, err)
	storedB, err := fs.FindOneRecord(ctx, "b")
	require.NoError(t, err)
	assert.NotEmpty(t, storedA.DedupID)
	assert.Equal(t, storedA.DedupID, storedB.DedupID)

	g, err := fs.FindOneGroup(ctx, storedA.DedupID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, g.IDs)
}

func TestGroupManager_SameSourceCandidatesRejected(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	a := &models.Record{ID: "a", SourceID: "s1", OAIID: "a", ISBNKeys: []string{"978-1"}}
	b := &models.Record{ID: "b", SourceID: "s1", OAIID: "b", ISBNKeys: []string{"978-1"}}
	fs.put(a)
	fs.put(b)

	views := map[string]*stubView{
		"a": {isbns: []string{"978-1"}},
		"b": {isbns: []string{"978-1"}},
	}
	manager := newTestManager(t, fs, views)

	matched, err := manager.Dedup(ctx, a)
	require.NoError(t, err)
	assert.False(t, matched, "candidates from the same source must never match (invariant 3)")
}

func TestGroupManager_ISSNVetoPreventsMatch(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	// TitleKeys hold the post-ingestion candidate key (leading article
	// stripped), matching what UpdateDedupCandidateKeys would have produced.
	a := &models.Record{ID: "a", SourceID: "s1", OAIID: "a", TitleKeys: []string{"same title"}}
	b := &models.Record{ID: "b", SourceID: "s2", OAIID: "b", TitleKeys: []string{"same title"}}
	fs.put(a)
	fs.put(b)

	views := map[string]*stubView{
		"a": {title: "the same title", issns: []string{"1111-1111"}},
		"b": {title: "the same title", issns: []string{"2222-2222"}},
	}
	manager := newTestManager(t, fs, views)

	matched, err := manager.Dedup(ctx, a)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestGroupManager_TitleAndAuthorNearMatch(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	a := &models.Record{ID: "a", SourceID: "s1", OAIID: "a", TitleKeys: []string{"art of computer programming"}}
	b := &models.Record{ID: "b", SourceID: "s2", OAIID: "b", TitleKeys: []string{"art of computer programming"}}
	fs.put(a)
	fs.put(b)

	views := map[string]*stubView{
		"a": {title: "the art of computer programming", author: "Knuth, Donald"},
		"b": {title: "the art of computer programming", author: "Knuth, D."},
	}
	manager := newTestManager(t, fs, views)

	matched, err := manager.Dedup(ctx, a)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestGroupManager_LeaveShrinksGroupToSingletonAndTombstones(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	g := &models.DedupGroup{ID: "g1", IDs: []string{"a", "b"}}
	require.NoError(t, fs.InsertGroup(ctx, g))

	a := &models.Record{ID: "a", SourceID: "s1", OAIID: "a", DedupID: "g1"}
	b := &models.Record{ID: "b", SourceID: "s2", OAIID: "b", DedupID: "g1", ISBNKeys: []string{"978-x"}}
	fs.put(a)
	fs.put(b)

	views := map[string]*stubView{
		"a": {}, // a's ISBN/title keys were cleared, so it generates no candidates
		"b": {isbns: []string{"978-x"}},
	}
	manager := newTestManager(t, fs, views)

	// a no longer shares any candidate key with b; dedup(a) should find no
	// match and detach it from g1, leaving b alone as an orphaned singleton.
	matched, err := manager.Dedup(ctx, a)
	require.NoError(t, err)
	assert.False(t, matched)

	storedA, err := fs.FindOneRecord(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, storedA.DedupID)

	storedG, err := fs.FindOneGroup(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, storedG.Deleted, "a group reduced to one member must be tombstoned")

	storedB, err := fs.FindOneRecord(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, storedB.DedupID, "the orphaned remaining member must have its dedup_id cleared")
}

func TestGroupManager_ExistingGroupGrowsOnNewMatch(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	g := &models.DedupGroup{ID: "g1", IDs: []string{"a", "b"}}
	require.NoError(t, fs.InsertGroup(ctx, g))

	a := &models.Record{ID: "a", SourceID: "s1", OAIID: "a", DedupID: "g1", ISBNKeys: []string{"978-1"}}
	b := &models.Record{ID: "b", SourceID: "s2", OAIID: "b", DedupID: "g1", ISBNKeys: []string{"978-1"}}
	c := &models.Record{ID: "c", SourceID: "s3", OAIID: "c", ISBNKeys: []string{"978-1"}}
	fs.put(a)
	fs.put(b)
	fs.put(c)

	views := map[string]*stubView{
		"a": {isbns: []string{"978-1"}},
		"b": {isbns: []string{"978-1"}},
		"c": {isbns: []string{"978-1"}},
	}
	manager := newTestManager(t, fs, views)

	matched, err := manager.Dedup(ctx, c)
	require.NoError(t, err)
	assert.True(t, matched)

	storedC, err := fs.FindOneRecord(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "g1", storedC.DedupID)

	storedG, err := fs.FindOneGroup(ctx, "g1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, storedG.IDs)
}

func TestGroupManager_CheckDedupRecordRepairsBackLinkMismatch(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	g := &models.DedupGroup{ID: "g1", IDs: []string{"a", "b"}}
	require.NoError(t, fs.InsertGroup(ctx, g))

	a := &models.Record{ID: "a", SourceID: "s1", DedupID: "g1"}
	b := &models.Record{ID: "b", SourceID: "s2", DedupID: "other-group"}
	fs.put(a)
	fs.put(b)

	manager := newTestManager(t, fs, nil)

	loaded, err := fs.FindOneGroup(ctx, "g1")
	require.NoError(t, err)
	repairs, err := manager.CheckDedupRecord(ctx, loaded)
	require.NoError(t, err)
	assert.Len(t, repairs, 1)

	storedG, err := fs.FindOneGroup(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, storedG.Deleted, "a group with only one valid member after repair is no longer live")
}
