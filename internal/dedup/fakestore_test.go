// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/bibliodedup/core/internal/models"
	"github.com/bibliodedup/core/internal/store"
)

// fakeStore is an in-memory Store used by group-manager and cascade
// tests, standing in for the DuckDB-backed store package.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*models.Record
	groups  map[string]*models.DedupGroup
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: map[string]*models.Record{},
		groups:  map[string]*models.DedupGroup{},
	}
}

func cloneRecord(r *models.Record) *models.Record {
	c := *r
	return &c
}

func cloneGroup(g *models.DedupGroup) *models.DedupGroup {
	c := *g
	c.IDs = append([]string(nil), g.IDs...)
	return &c
}

func (f *fakeStore) put(r *models.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[r.ID] = cloneRecord(r)
}

func (f *fakeStore) FindOneRecord(ctx context.Context, id string) (*models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneRecord(r), nil
}

func (f *fakeStore) FindRecordsByKey(ctx context.Context, index store.KeyIndex, key string, filter store.RecordFilter) (store.Cursor, error) {
	f.mu.Lock()
	var matches []*models.Record
	for _, r := range f.records {
		if r.Deleted {
			continue
		}
		if filter.SourceID != "" && r.SourceID != filter.SourceID {
			continue
		}
		var keys []string
		switch index {
		case store.IndexISBN:
			keys = r.ISBNKeys
		case store.IndexID:
			keys = r.IDKeys
		case store.IndexTitle:
			keys = r.TitleKeys
		}
		for _, k := range keys {
			if k == key {
				matches = append(matches, cloneRecord(r))
				break
			}
		}
	}
	f.mu.Unlock()
	return newFakeCursor(matches), nil
}

func (f *fakeStore) FindComponentRecords(ctx context.Context, sourceID, hostRecordID string) (store.Cursor, error) {
	f.mu.Lock()
	var matches []*models.Record
	for _, r := range f.records {
		if !r.Deleted && r.SourceID == sourceID && r.HostRecordID == hostRecordID {
			matches = append(matches, cloneRecord(r))
		}
	}
	f.mu.Unlock()
	return newFakeCursor(matches), nil
}

func (f *fakeStore) CountCandidates(ctx context.Context, index store.KeyIndex, key string) (int, error) {
	cur, _ := f.FindRecordsByKey(ctx, index, key, store.RecordFilter{})
	n := 0
	for cur.Next() {
		n++
	}
	return n, nil
}

func (f *fakeStore) SaveRecord(ctx context.Context, r *models.Record) error {
	f.put(r)
	return nil
}

func (f *fakeStore) InsertRecord(ctx context.Context, r *models.Record) error {
	f.put(r)
	return nil
}

func (f *fakeStore) UpdateRecords(ctx context.Context, filter store.RecordFilter, mutate func(*models.Record) bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idSet := map[string]bool{}
	for _, id := range filter.IDs {
		idSet[id] = true
	}
	n := 0
	for id, r := range f.records {
		if len(idSet) > 0 && !idSet[id] {
			continue
		}
		c := cloneRecord(r)
		if mutate(c) {
			f.records[id] = c
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) FindOneGroup(ctx context.Context, id string) (*models.DedupGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (f *fakeStore) FindGroupByMember(ctx context.Context, recordID string) (*models.DedupGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if !g.Deleted && g.Contains(recordID) {
			return cloneGroup(g), nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) InsertGroup(ctx context.Context, g *models.DedupGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.Changed.IsZero() {
		g.Changed = time.Now()
	}
	f.groups[g.ID] = cloneGroup(g)
	return nil
}

func (f *fakeStore) SaveGroup(ctx context.Context, g *models.DedupGroup, prevChanged time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.groups[g.ID]
	if ok && !existing.Changed.Equal(prevChanged) {
		return store.ErrConcurrentGroupUpdate
	}
	g.Changed = time.Now()
	f.groups[g.ID] = cloneGroup(g)
	return nil
}

func (f *fakeStore) RecordIDsNeedingDedup(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, r := range f.records {
		if !r.Deleted && (r.UpdateNeeded || r.DedupID == "") {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) LiveGroupIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, g := range f.groups {
		if !g.Deleted {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// fakeCursor adapts a pre-materialized slice to the store.Cursor interface,
// without requiring a live *sql.Rows.
type fakeCursor struct {
	records []*models.Record
	idx     int
}

func newFakeCursor(records []*models.Record) store.Cursor {
	return &fakeCursor{records: records, idx: -1}
}

func (c *fakeCursor) Next() bool {
	c.idx++
	return c.idx < len(c.records)
}

func (c *fakeCursor) Record() (*models.Record, error) {
	return c.records[c.idx], nil
}

func (c *fakeCursor) Err() error {
	return nil
}

func (c *fakeCursor) Close() error {
	return nil
}
