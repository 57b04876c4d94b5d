package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) InsertTag(ctx context.Context, t Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, story_map_id, name, color)
		VALUES ($1, $2, $3, $4)
	`, t.ID, t.StoryMapID, t.Name, t.Color)
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTag(ctx context.Context, tagID string) (Tag, error) {
	var t Tag
	err := s.db.QueryRowContext(ctx, `
		SELECT id, story_map_id, name, color, created_at, updated_at
		FROM tags
		WHERE id=$1
	`, tagID).Scan(&t.ID, &t.StoryMapID, &t.Name, &t.Color, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Tag{}, err
	}
	return t, nil
}

func (s *PostgresStore) ListTags(ctx context.Context, storyMapID string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, story_map_id, name, color, created_at, updated_at
		FROM tags
		WHERE story_map_id=$1
		ORDER BY name ASC
	`, storyMapID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	return collectTags(rows)
}

func (s *PostgresStore) UpdateTag(ctx context.Context, t Tag) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tags SET name=$2, color=$3, updated_at=NOW() WHERE id=$1
	`, t.ID, t.Name, t.Color)
	if err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	return nil
}

// DeleteTag removes the tag and its story assignments.
func (s *PostgresStore) DeleteTag(ctx context.Context, tagID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM story_tags WHERE tag_id=$1`, tagID); err != nil {
			return fmt.Errorf("delete tag assignments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id=$1`, tagID); err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		return nil
	})
}

// AssignTag is idempotent: assigning an already-assigned tag is a no-op.
func (s *PostgresStore) AssignTag(ctx context.Context, storyID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO story_tags (story_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT (story_id, tag_id) DO NOTHING
	`, storyID, tagID)
	if err != nil {
		return fmt.Errorf("assign tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnassignTag(ctx context.Context, storyID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM story_tags WHERE story_id=$1 AND tag_id=$2
	`, storyID, tagID)
	if err != nil {
		return fmt.Errorf("unassign tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTagsForStory(ctx context.Context, storyID string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.story_map_id, t.name, t.color, t.created_at, t.updated_at
		FROM tags t
		JOIN story_tags st ON st.tag_id = t.id
		WHERE st.story_id=$1
		ORDER BY t.name ASC
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("list tags for story: %w", err)
	}
	defer rows.Close()
	return collectTags(rows)
}

func collectTags(rows *sql.Rows) ([]Tag, error) {
	items := make([]Tag, 0)
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.StoryMapID, &t.Name, &t.Color, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return items, nil
}
