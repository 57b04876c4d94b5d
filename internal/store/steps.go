package store

import (
	"context"
	"database/sql"
	"fmt"

	"storymapper/api/internal/ordering"
)

const stepColumns = `
	s.id, s.journey_id, j.story_map_id, s.name, COALESCE(s.description, ''), s.sort_order,
	s.created_by, s.updated_by, s.created_at, s.updated_at
`

// InsertStep appends the step at the end of its journey's dense order.
func (s *PostgresStore) InsertStep(ctx context.Context, st Step) (Step, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM steps WHERE journey_id=$1
		`, st.JourneyID).Scan(&count); err != nil {
			return fmt.Errorf("count steps: %w", err)
		}
		st.SortOrder = ordering.NextDense(count)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO steps (id, journey_id, name, description, sort_order, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
		`, st.ID, st.JourneyID, st.Name, st.Description, st.SortOrder, st.CreatedBy); err != nil {
			return fmt.Errorf("insert step: %w", err)
		}
		return nil
	})
	if err != nil {
		return Step{}, err
	}
	return st, nil
}

// GetStep joins through the journey so the returned step carries its
// story map id for ownership checks.
func (s *PostgresStore) GetStep(ctx context.Context, stepID string) (Step, error) {
	var st Step
	err := s.db.QueryRowContext(ctx, `
		SELECT `+stepColumns+`
		FROM steps s
		JOIN journeys j ON j.id = s.journey_id
		WHERE s.id=$1
	`, stepID).Scan(&st.ID, &st.JourneyID, &st.StoryMapID, &st.Name, &st.Description, &st.SortOrder, &st.CreatedBy, &st.UpdatedBy, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return Step{}, err
	}
	return st, nil
}

func (s *PostgresStore) ListSteps(ctx context.Context, journeyID string) ([]Step, error) {
	return s.listSteps(ctx, `WHERE s.journey_id=$1 ORDER BY s.sort_order ASC`, journeyID)
}

// ListStepsByMap returns every step in the map ordered by journey then
// step position, used when assembling the full board.
func (s *PostgresStore) ListStepsByMap(ctx context.Context, storyMapID string) ([]Step, error) {
	return s.listSteps(ctx, `WHERE j.story_map_id=$1 ORDER BY j.sort_order ASC, s.sort_order ASC`, storyMapID)
}

func (s *PostgresStore) listSteps(ctx context.Context, clause string, arg any) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+stepColumns+`
		FROM steps s
		JOIN journeys j ON j.id = s.journey_id
	`+clause, arg)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	items := make([]Step, 0)
	for rows.Next() {
		var st Step
		if err := rows.Scan(&st.ID, &st.JourneyID, &st.StoryMapID, &st.Name, &st.Description, &st.SortOrder, &st.CreatedBy, &st.UpdatedBy, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		items = append(items, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateStep(ctx context.Context, st Step) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE steps SET name=$2, description=$3, updated_by=$4, updated_at=NOW()
		WHERE id=$1
	`, st.ID, st.Name, st.Description, st.UpdatedBy)
	if err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	return nil
}

// DeleteStep removes the step and renumbers its journey's survivors.
// Stories in the step fall to the storage cascade.
func (s *PostgresStore) DeleteStep(ctx context.Context, stepID, journeyID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE id=$1`, stepID); err != nil {
			return fmt.Errorf("delete step: %w", err)
		}
		return rewriteDenseOrder(ctx, tx, "steps", "journey_id", journeyID)
	})
}

func (s *PostgresStore) ReorderSteps(ctx context.Context, journeyID, stepID string, newIndex int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return reorderDense(ctx, tx, "steps", "journey_id", journeyID, stepID, newIndex)
	})
}
