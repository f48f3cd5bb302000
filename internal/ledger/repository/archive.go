package repository

import (
	"context"
	"fmt"
	"time"
)

// IsArchived reports whether picklistID is hidden from conversion.
func (s *Store) IsArchived(ctx context.Context, picklistID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM archived_picklists WHERE pick_list_id = ?)`,
		picklistID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check archived: %w", err)
	}
	return exists, nil
}

// ArchivedPicklistIDs returns every archived picklist id.
func (s *Store) ArchivedPicklistIDs(ctx context.Context) (map[int64]bool, error) {
	return s.idSet(ctx, `SELECT pick_list_id FROM archived_picklists`, "list archived ids")
}

// Archive marks picklists as archived. Re-archiving refreshes the timestamp.
func (s *Store) Archive(ctx context.Context, picklistIDs []int64, archivedBy string) (int, error) {
	if len(picklistIDs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin archive: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO archived_picklists (pick_list_id, archived_at, archived_by)
		VALUES (?, ?, ?)
		ON CONFLICT(pick_list_id) DO UPDATE SET
			archived_at = excluded.archived_at,
			archived_by = excluded.archived_by`)
	if err != nil {
		return 0, fmt.Errorf("prepare archive: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, id := range picklistIDs {
		if _, err := stmt.ExecContext(ctx, id, now, archivedBy); err != nil {
			return 0, fmt.Errorf("archive picklist %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit archive: %w", err)
	}
	return len(picklistIDs), nil
}

// Unarchive removes archive marks. Ids that were not archived are ignored.
func (s *Store) Unarchive(ctx context.Context, picklistIDs []int64) (int64, error) {
	if len(picklistIDs) == 0 {
		return 0, nil
	}

	placeholders, args := inClause(picklistIDs)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM archived_picklists WHERE pick_list_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("unarchive picklists: %w", err)
	}
	return result.RowsAffected()
}

// ListArchived returns archived picklists, most recently archived first.
func (s *Store) ListArchived(ctx context.Context, limit, offset int) ([]ArchivedPicklist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pick_list_id, archived_at, archived_by
		FROM archived_picklists
		ORDER BY archived_at DESC, pick_list_id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list archived: %w", err)
	}
	defer rows.Close()

	items := make([]ArchivedPicklist, 0)
	for rows.Next() {
		var item ArchivedPicklist
		if err := rows.Scan(&item.PicklistID, &item.ArchivedAt, &item.ArchivedBy); err != nil {
			return nil, fmt.Errorf("scan archived: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived: %w", err)
	}
	return items, nil
}
