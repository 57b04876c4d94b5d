package store

import (
	"context"
	"database/sql"
	"fmt"

	"storymapper/api/internal/ordering"
)

const releaseColumns = `
	id, story_map_id, name, COALESCE(description, ''), start_date, due_date,
	shipped, is_unassigned, sort_order, created_by, updated_by, created_at, updated_at
`

func scanRelease(row interface{ Scan(...any) error }) (Release, error) {
	var r Release
	err := row.Scan(&r.ID, &r.StoryMapID, &r.Name, &r.Description, &r.StartDate, &r.DueDate,
		&r.Shipped, &r.IsUnassigned, &r.SortOrder, &r.CreatedBy, &r.UpdatedBy, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// InsertRelease appends a regular release at the end of the map's dense
// order. The unassigned sentinel is only ever created by CreateStoryMap.
func (s *PostgresStore) InsertRelease(ctx context.Context, r Release) (Release, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM releases WHERE story_map_id=$1
		`, r.StoryMapID).Scan(&count); err != nil {
			return fmt.Errorf("count releases: %w", err)
		}
		r.SortOrder = ordering.NextDense(count)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO releases (id, story_map_id, name, description, start_date, due_date, shipped, is_unassigned, sort_order, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9, $9)
		`, r.ID, r.StoryMapID, r.Name, r.Description, r.StartDate, r.DueDate, r.Shipped, r.SortOrder, r.CreatedBy); err != nil {
			return fmt.Errorf("insert release: %w", err)
		}
		return nil
	})
	if err != nil {
		return Release{}, err
	}
	return r, nil
}

func (s *PostgresStore) GetRelease(ctx context.Context, releaseID string) (Release, error) {
	return scanRelease(s.db.QueryRowContext(ctx, `
		SELECT `+releaseColumns+` FROM releases WHERE id=$1
	`, releaseID))
}

// GetUnassignedRelease finds the map's sentinel release. Its absence is
// reported as ErrUnassignedReleaseMissing, a consistency failure.
func (s *PostgresStore) GetUnassignedRelease(ctx context.Context, storyMapID string) (Release, error) {
	r, err := scanRelease(s.db.QueryRowContext(ctx, `
		SELECT `+releaseColumns+` FROM releases WHERE story_map_id=$1 AND is_unassigned
	`, storyMapID))
	if err == sql.ErrNoRows {
		return Release{}, ErrUnassignedReleaseMissing
	}
	if err != nil {
		return Release{}, fmt.Errorf("get unassigned release: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListReleases(ctx context.Context, storyMapID string) ([]Release, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+releaseColumns+` FROM releases
		WHERE story_map_id=$1
		ORDER BY sort_order ASC
	`, storyMapID)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	defer rows.Close()

	items := make([]Release, 0)
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate releases: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateRelease(ctx context.Context, r Release) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE releases SET name=$2, description=$3, start_date=$4, due_date=$5, shipped=$6, updated_by=$7, updated_at=NOW()
		WHERE id=$1
	`, r.ID, r.Name, r.Description, r.StartDate, r.DueDate, r.Shipped, r.UpdatedBy)
	if err != nil {
		return fmt.Errorf("update release: %w", err)
	}
	return nil
}

// DeleteRelease relocates every story in the release to the map's
// unassigned release, deletes the row and renumbers the survivors, all
// atomically. It returns the number of stories moved.
func (s *PostgresStore) DeleteRelease(ctx context.Context, releaseID, storyMapID string) (int, error) {
	var moved int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var unassignedID string
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM releases WHERE story_map_id=$1 AND is_unassigned FOR UPDATE
		`, storyMapID).Scan(&unassignedID)
		if err == sql.ErrNoRows {
			return ErrUnassignedReleaseMissing
		}
		if err != nil {
			return fmt.Errorf("find unassigned release: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE stories SET release_id=$2, updated_at=NOW() WHERE release_id=$1
		`, releaseID, unassignedID)
		if err != nil {
			return fmt.Errorf("relocate stories: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("relocate stories rows: %w", err)
		}
		moved = int(affected)

		if _, err := tx.ExecContext(ctx, `DELETE FROM releases WHERE id=$1`, releaseID); err != nil {
			return fmt.Errorf("delete release: %w", err)
		}
		return rewriteDenseOrder(ctx, tx, "releases", "story_map_id", storyMapID)
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func (s *PostgresStore) ReorderReleases(ctx context.Context, storyMapID, releaseID string, newIndex int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return reorderDense(ctx, tx, "releases", "story_map_id", storyMapID, releaseID, newIndex)
	})
}
