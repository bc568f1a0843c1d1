// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"context"
	"time"

	"github.com/bibliodedup/core/internal/metadata"
	"github.com/bibliodedup/core/internal/models"
	"github.com/bibliodedup/core/internal/store"
)

// Store is the narrow slice of the document store the engine depends on.
// Declaring it here (rather than depending on *store.Store directly) lets
// tests substitute an in-memory fake without a DuckDB file.
type Store interface {
	FindOneRecord(ctx context.Context, id string) (*models.Record, error)
	FindRecordsByKey(ctx context.Context, index store.KeyIndex, key string, filter store.RecordFilter) (store.Cursor, error)
	FindComponentRecords(ctx context.Context, sourceID, hostRecordID string) (store.Cursor, error)
	CountCandidates(ctx context.Context, index store.KeyIndex, key string) (int, error)
	SaveRecord(ctx context.Context, r *models.Record) error
	InsertRecord(ctx context.Context, r *models.Record) error
	UpdateRecords(ctx context.Context, filter store.RecordFilter, mutate func(*models.Record) bool) (int, error)

	FindOneGroup(ctx context.Context, id string) (*models.DedupGroup, error)
	FindGroupByMember(ctx context.Context, recordID string) (*models.DedupGroup, error)
	InsertGroup(ctx context.Context, g *models.DedupGroup) error
	SaveGroup(ctx context.Context, g *models.DedupGroup, prevChanged time.Time) error

	RecordIDsNeedingDedup(ctx context.Context) ([]string, error)
	LiveGroupIDs(ctx context.Context) ([]string, error)
}

// MetadataFactory builds a MetadataView from a record's raw payload. It
// matches metadata.NewView's signature so production code wires that
// function directly; tests substitute a stub that returns canned views.
type MetadataFactory func(format string, raw []byte, oaiID, sourceID string) (metadata.View, error)

// FormatMapper resolves a source-declared format tag to the canonical
// format the format-veto rule compares against.
type FormatMapper interface {
	MapFormat(sourceID, format string) string
}

// IDGenerator produces a fresh unique id, used when the Group Manager
// creates a new DedupGroup.
type IDGenerator func() string
