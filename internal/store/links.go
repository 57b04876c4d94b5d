package store

import (
	"context"
	"fmt"
)

// InsertStoryLink stores a directed dependency edge. The unique
// constraint on (source, target, type) surfaces duplicates as a
// constraint violation for the caller to translate.
func (s *PostgresStore) InsertStoryLink(ctx context.Context, l StoryLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO story_links (id, source_story_id, target_story_id, link_type)
		VALUES ($1, $2, $3, $4)
	`, l.ID, l.SourceStoryID, l.TargetStoryID, l.LinkType)
	if err != nil {
		return fmt.Errorf("insert story link: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetStoryLink(ctx context.Context, linkID string) (StoryLink, error) {
	var l StoryLink
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_story_id, target_story_id, link_type, created_at
		FROM story_links
		WHERE id=$1
	`, linkID).Scan(&l.ID, &l.SourceStoryID, &l.TargetStoryID, &l.LinkType, &l.CreatedAt)
	if err != nil {
		return StoryLink{}, err
	}
	return l, nil
}

// ListLinksForStory returns every link touching the story in either
// direction, oldest first.
func (s *PostgresStore) ListLinksForStory(ctx context.Context, storyID string) ([]StoryLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_story_id, target_story_id, link_type, created_at
		FROM story_links
		WHERE source_story_id=$1 OR target_story_id=$1
		ORDER BY created_at ASC
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("list story links: %w", err)
	}
	defer rows.Close()

	items := make([]StoryLink, 0)
	for rows.Next() {
		var l StoryLink
		if err := rows.Scan(&l.ID, &l.SourceStoryID, &l.TargetStoryID, &l.LinkType, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan story link: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate story links: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteStoryLink(ctx context.Context, linkID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM story_links WHERE id=$1`, linkID)
	if err != nil {
		return fmt.Errorf("delete story link: %w", err)
	}
	return nil
}
