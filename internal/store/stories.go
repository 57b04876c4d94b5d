package store

import (
	"context"
	"database/sql"
	"fmt"

	"storymapper/api/internal/ordering"
)

const storyColumns = `
	st.id, st.step_id, st.release_id, j.story_map_id, st.title, COALESCE(st.description, ''),
	st.status, st.size, st.sort_order, COALESCE(st.labels, ''),
	st.created_by, st.updated_by, st.created_at, st.updated_at
`

const storyJoins = `
	FROM stories st
	JOIN steps s ON s.id = st.step_id
	JOIN journeys j ON j.id = s.journey_id
`

func scanStory(row interface{ Scan(...any) error }) (Story, error) {
	var st Story
	err := row.Scan(&st.ID, &st.StepID, &st.ReleaseID, &st.StoryMapID, &st.Title, &st.Description,
		&st.Status, &st.Size, &st.SortOrder, &st.Labels,
		&st.CreatedBy, &st.UpdatedBy, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

// InsertStory places the story at the next 1000-spaced slot of its
// (step, release) cell. The count and insert share a transaction, but
// concurrent inserts into the same cell can still tie; ties are accepted.
func (s *PostgresStore) InsertStory(ctx context.Context, st Story) (Story, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM stories WHERE step_id=$1 AND release_id=$2
		`, st.StepID, st.ReleaseID).Scan(&count); err != nil {
			return fmt.Errorf("count cell stories: %w", err)
		}
		st.SortOrder = ordering.CellSlot(count)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stories (id, step_id, release_id, title, description, status, size, sort_order, labels, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		`, st.ID, st.StepID, st.ReleaseID, st.Title, st.Description, st.Status, st.Size, st.SortOrder, st.Labels, st.CreatedBy); err != nil {
			return fmt.Errorf("insert story: %w", err)
		}
		return nil
	})
	if err != nil {
		return Story{}, err
	}
	return st, nil
}

// GetStory joins the full parent chain so the returned story carries its
// story map id for ownership checks.
func (s *PostgresStore) GetStory(ctx context.Context, storyID string) (Story, error) {
	return scanStory(s.db.QueryRowContext(ctx, `
		SELECT `+storyColumns+storyJoins+`
		WHERE st.id=$1
	`, storyID))
}

func (s *PostgresStore) ListStoriesByMap(ctx context.Context, storyMapID string) ([]Story, error) {
	return s.listStories(ctx, `WHERE j.story_map_id=$1 ORDER BY st.sort_order ASC, st.created_at ASC`, storyMapID)
}

func (s *PostgresStore) ListStoriesByStep(ctx context.Context, stepID string) ([]Story, error) {
	return s.listStories(ctx, `WHERE st.step_id=$1 ORDER BY st.sort_order ASC, st.created_at ASC`, stepID)
}

func (s *PostgresStore) listStories(ctx context.Context, clause string, arg any) ([]Story, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+storyColumns+storyJoins+clause, arg)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	items := make([]Story, 0)
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		items = append(items, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stories: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateStory(ctx context.Context, st Story) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE stories SET title=$2, description=$3, status=$4, size=$5, sort_order=$6, labels=$7, updated_by=$8, updated_at=NOW()
		WHERE id=$1
	`, st.ID, st.Title, st.Description, st.Status, st.Size, st.SortOrder, st.Labels, st.UpdatedBy)
	if err != nil {
		return fmt.Errorf("update story: %w", err)
	}
	return nil
}

// MoveStory changes the story's cell and recomputes its sort key from
// the destination cell's population, in one transaction.
func (s *PostgresStore) MoveStory(ctx context.Context, storyID, stepID, releaseID, updatedBy string) (int, error) {
	var sortOrder int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM stories WHERE step_id=$1 AND release_id=$2 AND id<>$3
		`, stepID, releaseID, storyID).Scan(&count); err != nil {
			return fmt.Errorf("count destination cell: %w", err)
		}
		sortOrder = ordering.CellSlot(count)
		result, err := tx.ExecContext(ctx, `
			UPDATE stories SET step_id=$2, release_id=$3, sort_order=$4, updated_by=$5, updated_at=NOW()
			WHERE id=$1
		`, storyID, stepID, releaseID, sortOrder, updatedBy)
		if err != nil {
			return fmt.Errorf("move story: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("move story rows: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sortOrder, nil
}

// DeleteStory removes the story and its dependents in constraint order:
// links touching it (either direction), tag and persona junction rows,
// comments, attachment rows, then the story itself in one transaction.
// It returns the number of links removed and the attachment rows so the
// caller can clean up object storage after commit.
func (s *PostgresStore) DeleteStory(ctx context.Context, storyID string) (int, []Attachment, error) {
	var linksRemoved int
	var attachments []Attachment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM story_links WHERE source_story_id=$1 OR target_story_id=$1
		`, storyID)
		if err != nil {
			return fmt.Errorf("delete story links: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete story links rows: %w", err)
		}
		linksRemoved = int(affected)

		if _, err := tx.ExecContext(ctx, `DELETE FROM story_tags WHERE story_id=$1`, storyID); err != nil {
			return fmt.Errorf("delete story tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM story_personas WHERE story_id=$1`, storyID); err != nil {
			return fmt.Errorf("delete story personas: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE story_id=$1`, storyID); err != nil {
			return fmt.Errorf("delete story comments: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id, story_id, file_name, content_type, size, object_key, uploaded_by, created_at
			FROM attachments WHERE story_id=$1
		`, storyID)
		if err != nil {
			return fmt.Errorf("list story attachments: %w", err)
		}
		for rows.Next() {
			var a Attachment
			if err := rows.Scan(&a.ID, &a.StoryID, &a.FileName, &a.ContentType, &a.Size, &a.ObjectKey, &a.UploadedBy, &a.CreatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("scan attachment: %w", err)
			}
			attachments = append(attachments, a)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate attachments: %w", err)
		}
		rows.Close()

		if _, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE story_id=$1`, storyID); err != nil {
			return fmt.Errorf("delete attachments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM stories WHERE id=$1`, storyID); err != nil {
			return fmt.Errorf("delete story: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return linksRemoved, attachments, nil
}
