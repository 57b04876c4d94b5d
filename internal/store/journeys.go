package store

import (
	"context"
	"database/sql"
	"fmt"

	"storymapper/api/internal/ordering"
)

// InsertJourney appends the journey at the end of its map's dense order.
// The count and the insert share a transaction so the computed position
// cannot be stolen by a concurrent create.
func (s *PostgresStore) InsertJourney(ctx context.Context, j Journey) (Journey, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM journeys WHERE story_map_id=$1
		`, j.StoryMapID).Scan(&count); err != nil {
			return fmt.Errorf("count journeys: %w", err)
		}
		j.SortOrder = ordering.NextDense(count)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO journeys (id, story_map_id, name, description, color, sort_order, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		`, j.ID, j.StoryMapID, j.Name, j.Description, j.Color, j.SortOrder, j.CreatedBy); err != nil {
			return fmt.Errorf("insert journey: %w", err)
		}
		return nil
	})
	if err != nil {
		return Journey{}, err
	}
	return j, nil
}

func (s *PostgresStore) GetJourney(ctx context.Context, journeyID string) (Journey, error) {
	var j Journey
	err := s.db.QueryRowContext(ctx, `
		SELECT id, story_map_id, name, COALESCE(description, ''), COALESCE(color, ''), sort_order, created_by, updated_by, created_at, updated_at
		FROM journeys
		WHERE id=$1
	`, journeyID).Scan(&j.ID, &j.StoryMapID, &j.Name, &j.Description, &j.Color, &j.SortOrder, &j.CreatedBy, &j.UpdatedBy, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return Journey{}, err
	}
	return j, nil
}

func (s *PostgresStore) ListJourneys(ctx context.Context, storyMapID string) ([]Journey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, story_map_id, name, COALESCE(description, ''), COALESCE(color, ''), sort_order, created_by, updated_by, created_at, updated_at
		FROM journeys
		WHERE story_map_id=$1
		ORDER BY sort_order ASC
	`, storyMapID)
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}
	defer rows.Close()

	items := make([]Journey, 0)
	for rows.Next() {
		var j Journey
		if err := rows.Scan(&j.ID, &j.StoryMapID, &j.Name, &j.Description, &j.Color, &j.SortOrder, &j.CreatedBy, &j.UpdatedBy, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan journey: %w", err)
		}
		items = append(items, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journeys: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateJourney(ctx context.Context, j Journey) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE journeys SET name=$2, description=$3, color=$4, updated_by=$5, updated_at=NOW()
		WHERE id=$1
	`, j.ID, j.Name, j.Description, j.Color, j.UpdatedBy)
	if err != nil {
		return fmt.Errorf("update journey: %w", err)
	}
	return nil
}

// DeleteJourney removes the journey and closes the gap it leaves in the
// dense order. Steps and stories below it fall to the storage cascade.
func (s *PostgresStore) DeleteJourney(ctx context.Context, journeyID, storyMapID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM journeys WHERE id=$1`, journeyID); err != nil {
			return fmt.Errorf("delete journey: %w", err)
		}
		return rewriteDenseOrder(ctx, tx, "journeys", "story_map_id", storyMapID)
	})
}

// ReorderJourneys moves a journey to a new 0-based position and rewrites
// every sibling's sort_order, all inside one transaction.
func (s *PostgresStore) ReorderJourneys(ctx context.Context, storyMapID, journeyID string, newIndex int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return reorderDense(ctx, tx, "journeys", "story_map_id", storyMapID, journeyID, newIndex)
	})
}

// reorderDense implements the shared full-rewrite reorder for the dense
// entity tables (journeys, steps, releases). Siblings are locked for the
// duration of the transaction.
func reorderDense(ctx context.Context, tx *sql.Tx, table, scopeColumn, scopeID, targetID string, newIndex int) error {
	ids, err := lockedSiblingIDs(ctx, tx, table, scopeColumn, scopeID)
	if err != nil {
		return err
	}

	reordered, err := ordering.Reindex(ids, targetID, newIndex)
	if err != nil {
		return err
	}

	for position, id := range reordered {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET sort_order=$1, updated_at=NOW() WHERE id=$2`, table),
			position, id,
		); err != nil {
			return fmt.Errorf("rewrite %s order: %w", table, err)
		}
	}
	return nil
}

// rewriteDenseOrder renumbers the surviving siblings 0..n-1 after a
// deletion so the dense invariant holds.
func rewriteDenseOrder(ctx context.Context, tx *sql.Tx, table, scopeColumn, scopeID string) error {
	ids, err := lockedSiblingIDs(ctx, tx, table, scopeColumn, scopeID)
	if err != nil {
		return err
	}
	for position, id := range ids {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET sort_order=$1 WHERE id=$2`, table),
			position, id,
		); err != nil {
			return fmt.Errorf("rewrite %s order: %w", table, err)
		}
	}
	return nil
}

func lockedSiblingIDs(ctx context.Context, tx *sql.Tx, table, scopeColumn, scopeID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT id FROM %s WHERE %s=$1 ORDER BY sort_order ASC FOR UPDATE
	`, table, scopeColumn), scopeID)
	if err != nil {
		return nil, fmt.Errorf("lock %s siblings: %w", table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s ids: %w", table, err)
	}
	return ids, nil
}
