// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bibliodedup/core/internal/models"
)

// KeyIndex names one of the three indexed key child tables the Candidate
// Generator probes, in the Candidate Generator's fixed priority order.
type KeyIndex string

const (
	IndexISBN  KeyIndex = "isbn"
	IndexID    KeyIndex = "id"
	IndexTitle KeyIndex = "title"
)

func (k KeyIndex) table() string {
	switch k {
	case IndexISBN:
		return "record_isbn_keys"
	case IndexID:
		return "record_id_keys"
	case IndexTitle:
		return "record_title_keys"
	default:
		return ""
	}
}

const recordColumns = `id, source_id, format, oai_id, deleted, raw, host_record_id, linking_id, dedup_id, update_needed, updated, created_at`

func scanRecord(row interface{ Scan(...any) error }) (*models.Record, error) {
	var (
		r                                         models.Record
		oaiID, hostID, linkingID, dedupID sql.NullString
		updated                                   sql.NullTime
	)
	if err := row.Scan(
		&r.ID, &r.SourceID, &r.Format, &oaiID, &r.Deleted, &r.Raw,
		&hostID, &linkingID, &dedupID, &r.UpdateNeeded, &updated, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	r.OAIID = oaiID.String
	r.HostRecordID = hostID.String
	r.LinkingID = linkingID.String
	r.DedupID = dedupID.String
	if updated.Valid {
		r.Updated = updated.Time
	}
	return &r, nil
}

// FindOneRecord looks up a single record by primary id, per the Document
// Store's findOne(id) operation.
func (s *Store) FindOneRecord(ctx context.Context, id string) (*models.Record, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var rec *models.Record
	err := s.guarded(func() error {
		row := s.conn.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
		r, err := scanRecord(row)
		if err != nil {
			return err
		}
		rec = r
		return s.loadKeys(ctx, rec)
	})
	if err != nil {
		return nil, wrapStoreErr("find one record", err)
	}
	return rec, nil
}

// loadKeys populates a record's three key slices from the child tables.
func (s *Store) loadKeys(ctx context.Context, r *models.Record) error {
	for idx, dst := range map[KeyIndex]*[]string{
		IndexISBN:  &r.ISBNKeys,
		IndexID:    &r.IDKeys,
		IndexTitle: &r.TitleKeys,
	} {
		rows, err := s.conn.QueryContext(ctx, `SELECT key FROM `+idx.table()+` WHERE record_id = ?`, r.ID)
		if err != nil {
			return err
		}
		var keys []string
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return err
			}
			keys = append(keys, k)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		*dst = keys
	}
	return nil
}

// FindRecordsByKey returns a lazy cursor over every non-deleted record
// sharing key in the given index, optionally narrowed by filter. This is
// the Candidate Generator's sole entry point into the store: it probes
// one index at a time in the fixed priority order isbn_keys -> id_keys ->
// title_keys.
//
// The returned cursor does not eagerly load each record's key slices
// (loadKeys is not called per row) since the Match Predicate only needs
// the candidate's MetadataView, which is reconstructed from raw.
func (s *Store) FindRecordsByKey(ctx context.Context, index KeyIndex, key string, filter RecordFilter) (Cursor, error) {
	table := index.table()
	if table == "" {
		return nil, fmt.Errorf("store: unknown key index %q", index)
	}

	whereClause, filterArgs := buildWhereClause(filter)
	query := fmt.Sprintf(`
		SELECT %s FROM records
		WHERE id IN (SELECT record_id FROM %s WHERE key = ?)
		  AND deleted = false
		  AND %s`, recordColumns, table, whereClause)

	args := append([]any{key}, filterArgs...)

	var cursor *RecordCursor
	err := s.guarded(func() error {
		rows, err := s.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		cursor = &RecordCursor{rows: rows}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("find records by key", err)
	}
	return cursor, nil
}

// FindComponentRecords returns a lazy cursor over every non-deleted
// record with (source_id, host_record_id) = (sourceID, hostRecordID),
// the component-part lookup the Component-Part Cascader uses to build
// sortedComponents. This is a direct records-table predicate,
// not one of the three indexed key probes used by candidate generation.
func (s *Store) FindComponentRecords(ctx context.Context, sourceID, hostRecordID string) (Cursor, error) {
	var cursor *RecordCursor
	err := s.guarded(func() error {
		rows, err := s.conn.QueryContext(ctx, `
			SELECT `+recordColumns+` FROM records
			WHERE source_id = ? AND host_record_id = ? AND deleted = false`,
			sourceID, hostRecordID)
		if err != nil {
			return err
		}
		cursor = &RecordCursor{rows: rows}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("find component records", err)
	}
	return cursor, nil
}

// CountCandidates reports how many rows of index's key table carry key,
// without materializing the records. The Candidate Generator does not
// call it: its budget guard counts candidates as it reads the cursor.
func (s *Store) CountCandidates(ctx context.Context, index KeyIndex, key string) (int, error) {
	table := index.table()
	if table == "" {
		return 0, fmt.Errorf("store: unknown key index %q", index)
	}
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var n int
	err := s.guarded(func() error {
		return s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE key = ?`, key).Scan(&n)
	})
	if err != nil {
		return 0, wrapStoreErr("count candidates", err)
	}
	return n, nil
}

// InsertRecord inserts a new record and its indexed keys. CreatedAt is
// stamped if zero.
func (s *Store) InsertRecord(ctx context.Context, r *models.Record) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	return s.guarded(func() error {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return wrapStoreErr("insert record begin tx", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := insertRecordRow(ctx, tx, r); err != nil {
			return wrapStoreErr("insert record", err)
		}
		if err := replaceKeys(ctx, tx, r); err != nil {
			return wrapStoreErr("insert record keys", err)
		}
		if err := tx.Commit(); err != nil {
			return wrapStoreErr("insert record commit", err)
		}
		return nil
	})
}

// SaveRecord upserts a record by id: insert if absent, otherwise replace
// every column and re-derive the key child tables, per the Document
// Store's save() operation.
func (s *Store) SaveRecord(ctx context.Context, r *models.Record) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	return s.guarded(func() error {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return wrapStoreErr("save record begin tx", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, r.ID)
		if err != nil {
			return wrapStoreErr("save record delete", err)
		}
		if err := insertRecordRow(ctx, tx, r); err != nil {
			return wrapStoreErr("save record insert", err)
		}
		if err := replaceKeys(ctx, tx, r); err != nil {
			return wrapStoreErr("save record keys", err)
		}
		if err := tx.Commit(); err != nil {
			return wrapStoreErr("save record commit", err)
		}
		return nil
	})
}

// UpdateRecords applies the given mutator to every record matching
// filter, writing back only the records the mutator actually changed. It
// mirrors the Document Store's update(filter, changes, multi=true)
// operation: the predicate/mutation pair is expressed in Go rather than a
// query-language document, since the Group Manager's updates (DedupID,
// Updated, UpdateNeeded) are few and well-known.
func (s *Store) UpdateRecords(ctx context.Context, filter RecordFilter, mutate func(*models.Record) bool) (int, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	whereClause, args := buildWhereClause(filter)
	query := `SELECT ` + recordColumns + ` FROM records WHERE ` + whereClause

	var updated int
	err := s.guarded(func() error {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		var toWrite []*models.Record
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				rows.Close()
				return err
			}
			toWrite = append(toWrite, rec)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, rec := range toWrite {
			if !mutate(rec) {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, rec.ID); err != nil {
				return err
			}
			if err := insertRecordRow(ctx, tx, rec); err != nil {
				return err
			}
			if err := replaceKeys(ctx, tx, rec); err != nil {
				return err
			}
			updated++
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, wrapStoreErr("update records", err)
	}
	return updated, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecordRow(ctx context.Context, tx execer, r *models.Record) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SourceID, r.Format, nullable(r.OAIID), r.Deleted, r.Raw,
		nullable(r.HostRecordID), nullable(r.LinkingID), nullable(r.DedupID),
		r.UpdateNeeded, nullableTime(r.Updated), r.CreatedAt,
	)
	return err
}

func replaceKeys(ctx context.Context, tx execer, r *models.Record) error {
	deletes := []string{"record_isbn_keys", "record_id_keys", "record_title_keys"}
	for _, table := range deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE record_id = ?`, r.ID); err != nil {
			return err
		}
	}
	for _, k := range r.ISBNKeys {
		if _, err := tx.ExecContext(ctx, `INSERT INTO record_isbn_keys (record_id, key) VALUES (?, ?)`, r.ID, k); err != nil {
			return err
		}
	}
	for _, k := range r.IDKeys {
		if _, err := tx.ExecContext(ctx, `INSERT INTO record_id_keys (record_id, key) VALUES (?, ?)`, r.ID, k); err != nil {
			return err
		}
	}
	for _, k := range r.TitleKeys {
		if _, err := tx.ExecContext(ctx, `INSERT INTO record_title_keys (record_id, key) VALUES (?, ?)`, r.ID, k); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
