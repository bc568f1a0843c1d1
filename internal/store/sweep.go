// SPDX-License-Identifier: AGPL-3.0-or-later

package store

// sweep.go supports the CLI driver's batch entry points: finding the
// records that need a dedup pass, and walking every live group for
// invariant checking. Neither is part of the Document Store contract of
// the repository's regular find/findOne/save/insert/update methods — they are bulk reads the
// driver issues directly against the records/dedup_groups tables.

import (
	"context"
)

// RecordIDsNeedingDedup returns the ids of non-deleted records with
// update_needed=true or no dedup_id assigned yet.
func (s *Store) RecordIDsNeedingDedup(ctx context.Context) ([]string, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var ids []string
	err := s.guarded(func() error {
		rows, err := s.conn.QueryContext(ctx, `
			SELECT id FROM records
			WHERE deleted = false AND (update_needed = true OR dedup_id IS NULL OR dedup_id = '')`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapStoreErr("list records needing dedup", err)
	}
	return ids, nil
}

// LiveGroupIDs returns the ids of every non-deleted dedup group.
func (s *Store) LiveGroupIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var ids []string
	err := s.guarded(func() error {
		rows, err := s.conn.QueryContext(ctx, `SELECT id FROM dedup_groups WHERE deleted = false`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapStoreErr("list live groups", err)
	}
	return ids, nil
}
