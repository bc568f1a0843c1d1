// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by the single-document lookups when no record or
// group matches.
var ErrNotFound = errors.New("store: not found")

// ErrConcurrentGroupUpdate is returned by SaveGroup when the group's
// changed timestamp no longer matches what the caller read, meaning
// another writer committed a mutation first. It is recoverable: callers
// (the Group Manager) are expected to reload the group and retry, not
// surface it to the operator as a StoreError.
var ErrConcurrentGroupUpdate = errors.New("store: concurrent group update")

// StoreError wraps an unrecoverable backing-store failure (connection
// loss, constraint violation, circuit open) distinct from the
// recoverable ErrConcurrentGroupUpdate.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return &StoreError{Op: op, Err: err}
}

// isTransient reports whether err looks like a transient DuckDB
// lock/concurrency condition worth retrying, as opposed to a structural
// failure (bad SQL, constraint violation) that retrying cannot fix.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "lock") ||
		strings.Contains(msg, "conflicting") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "concurren")
}
