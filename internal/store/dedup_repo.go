// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/bibliodedup/core/internal/models"
)

// FindOneGroup looks up a dedup group by primary id.
func (s *Store) FindOneGroup(ctx context.Context, id string) (*models.DedupGroup, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var g *models.DedupGroup
	err := s.guarded(func() error {
		row := s.conn.QueryRowContext(ctx, `SELECT id, deleted, changed, created_at FROM dedup_groups WHERE id = ?`, id)
		group, err := scanGroup(row)
		if err != nil {
			return err
		}
		ids, err := s.loadGroupMembers(ctx, id)
		if err != nil {
			return err
		}
		group.IDs = ids
		g = group
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("find one group", err)
	}
	return g, nil
}

// FindGroupByMember returns the live group containing recordID, or
// ErrNotFound if the record belongs to none.
func (s *Store) FindGroupByMember(ctx context.Context, recordID string) (*models.DedupGroup, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var groupID string
	err := s.guarded(func() error {
		return s.conn.QueryRowContext(ctx, `
			SELECT g.id FROM dedup_groups g
			JOIN dedup_group_members m ON m.group_id = g.id
			WHERE m.record_id = ? AND g.deleted = false`, recordID).Scan(&groupID)
	})
	if err != nil {
		return nil, wrapStoreErr("find group by member", err)
	}
	return s.FindOneGroup(ctx, groupID)
}

func scanGroup(row interface{ Scan(...any) error }) (*models.DedupGroup, error) {
	var g models.DedupGroup
	if err := row.Scan(&g.ID, &g.Deleted, &g.Changed, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) loadGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT record_id FROM dedup_group_members WHERE group_id = ? ORDER BY ordinal ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertGroup creates a brand new dedup group.
func (s *Store) InsertGroup(ctx context.Context, g *models.DedupGroup) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	if g.Changed.IsZero() {
		g.Changed = g.CreatedAt
	}

	return s.guarded(func() error {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return wrapStoreErr("insert group begin tx", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `INSERT INTO dedup_groups (id, deleted, changed, created_at) VALUES (?, ?, ?, ?)`,
			g.ID, g.Deleted, g.Changed, g.CreatedAt); err != nil {
			return wrapStoreErr("insert group", err)
		}
		if err := replaceGroupMembers(ctx, tx, g); err != nil {
			return wrapStoreErr("insert group members", err)
		}
		if err := tx.Commit(); err != nil {
			return wrapStoreErr("insert group commit", err)
		}
		return nil
	})
}

// SaveGroup persists g using optimistic concurrency: the write only
// applies if the group's changed timestamp still equals prevChanged,
// i.e. nobody else committed a mutation since the caller read it. A
// caller that loses the race gets ErrConcurrentGroupUpdate back and is
// expected to reload the group and retry ("commit-time
// re-check" invariant), not treat it as a store failure.
func (s *Store) SaveGroup(ctx context.Context, g *models.DedupGroup, prevChanged time.Time) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	now := time.Now()

	return s.guarded(func() error {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return wrapStoreErr("save group begin tx", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, `
			UPDATE dedup_groups SET deleted = ?, changed = ?
			WHERE id = ? AND changed = ?`,
			g.Deleted, now, g.ID, prevChanged)
		if err != nil {
			return wrapStoreErr("save group update", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapStoreErr("save group rows affected", err)
		}
		if n == 0 {
			return ErrConcurrentGroupUpdate
		}

		if err := replaceGroupMembers(ctx, tx, g); err != nil {
			return wrapStoreErr("save group members", err)
		}
		if err := tx.Commit(); err != nil {
			return wrapStoreErr("save group commit", err)
		}
		g.Changed = now
		return nil
	})
}

func replaceGroupMembers(ctx context.Context, tx execer, g *models.DedupGroup) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM dedup_group_members WHERE group_id = ?`, g.ID); err != nil {
		return err
	}
	for i, id := range g.IDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dedup_group_members (group_id, record_id, ordinal) VALUES (?, ?, ?)`,
			g.ID, id, i); err != nil {
			return err
		}
	}
	return nil
}
