// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"

	"github.com/bibliodedup/core/internal/models"
)

// Cursor is the lazy-iterator contract find() operations return. It is
// declared as an interface (rather than callers depending on *RecordCursor
// directly) so consumers like internal/dedup can be tested against an
// in-memory fake without a live database connection.
type Cursor interface {
	Next() bool
	Record() (*models.Record, error)
	Err() error
	Close() error
}

// RecordCursor is a lazy, forward-only iterator over a record query
// result. find() streams lazily so consumers may stop early (e.g. the
// Candidate Generator's budget guard) without the store materializing
// the full result set.
type RecordCursor struct {
	rows *sql.Rows
	err  error
}

// Next advances the cursor. It returns false when the result set is
// exhausted or an error occurred; callers should check Err after a false
// return.
func (c *RecordCursor) Next() bool {
	if c.err != nil {
		return false
	}
	return c.rows.Next()
}

// Record decodes the row the cursor currently sits on.
func (c *RecordCursor) Record() (*models.Record, error) {
	rec, err := scanRecord(c.rows)
	if err != nil {
		c.err = err
		return nil, wrapStoreErr("cursor scan", err)
	}
	return rec, nil
}

// Err returns any error encountered during iteration, including those
// surfaced by the underlying driver after the last Next call.
func (c *RecordCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close releases the underlying query resources. Safe to call after a
// consumer stops iterating early, and safe to call twice.
func (c *RecordCursor) Close() error {
	return c.rows.Close()
}
