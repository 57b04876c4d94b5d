package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) InsertAttachment(ctx context.Context, a Attachment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, story_id, story_map_id, file_name, content_type, size, object_key, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.StoryID, a.StoryMapID, a.FileName, a.ContentType, a.Size, a.ObjectKey, a.UploadedBy)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAttachment(ctx context.Context, attachmentID string) (Attachment, error) {
	var a Attachment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, story_id, story_map_id, file_name, content_type, size, object_key, uploaded_by, created_at
		FROM attachments
		WHERE id=$1
	`, attachmentID).Scan(&a.ID, &a.StoryID, &a.StoryMapID, &a.FileName, &a.ContentType, &a.Size, &a.ObjectKey, &a.UploadedBy, &a.CreatedAt)
	if err != nil {
		return Attachment{}, err
	}
	return a, nil
}

func (s *PostgresStore) ListAttachments(ctx context.Context, storyID string) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, story_id, story_map_id, file_name, content_type, size, object_key, uploaded_by, created_at
		FROM attachments
		WHERE story_id=$1
		ORDER BY created_at ASC
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	items := make([]Attachment, 0)
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.StoryID, &a.StoryMapID, &a.FileName, &a.ContentType, &a.Size, &a.ObjectKey, &a.UploadedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteAttachment(ctx context.Context, attachmentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id=$1`, attachmentID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}
