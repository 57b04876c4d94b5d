package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) InsertComment(ctx context.Context, c Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, story_id, author_id, author_name, content)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.StoryID, c.AuthorID, c.AuthorName, c.Content)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var c Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, story_id, author_id, author_name, content, created_at, updated_at
		FROM comments
		WHERE id=$1
	`, commentID).Scan(&c.ID, &c.StoryID, &c.AuthorID, &c.AuthorName, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, storyID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, story_id, author_id, author_name, content, created_at, updated_at
		FROM comments
		WHERE story_id=$1
		ORDER BY created_at ASC
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.StoryID, &c.AuthorID, &c.AuthorName, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateComment(ctx context.Context, c Comment) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE comments SET content=$2, updated_at=NOW() WHERE id=$1
	`, c.ID, c.Content)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
