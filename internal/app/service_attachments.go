package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"storymapper/api/internal/rbac"
	"storymapper/api/internal/store"
	"storymapper/api/internal/util"
)

const maxAttachmentSize = 25 << 20 // 25 MiB

// UploadAttachment streams the file into object storage first, then
// records the row. A failed insert removes the freshly stored blob.
func (s *Service) UploadAttachment(ctx context.Context, session Session, storyID, fileName, contentType string, size int64, body io.Reader) (wireAttachment, error) {
	if s.files == nil {
		return wireAttachment{}, domainError(http.StatusNotImplemented, "UNAVAILABLE", "attachment storage is not configured", nil)
	}
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return wireAttachment{}, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionWrite); err != nil {
		return wireAttachment{}, err
	}
	if fileName == "" {
		return wireAttachment{}, validationError("file name is required", nil)
	}
	if size <= 0 || size > maxAttachmentSize {
		return wireAttachment{}, validationError("file size must be between 1 byte and 25 MiB", nil)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	a := store.Attachment{
		ID:          util.NewID("att"),
		StoryID:     storyID,
		StoryMapID:  st.StoryMapID,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		UploadedBy:  session.UserID,
	}
	a.ObjectKey = fmt.Sprintf("%s/%s/%s", st.StoryMapID, storyID, a.ID)

	if err := s.files.Put(ctx, a.ObjectKey, body, size, contentType); err != nil {
		return wireAttachment{}, fmt.Errorf("store attachment: %w", err)
	}
	if err := s.store.InsertAttachment(ctx, a); err != nil {
		_ = s.files.Remove(ctx, a.ObjectKey)
		return wireAttachment{}, translateStoreError(err, "attachment")
	}
	created, err := s.store.GetAttachment(ctx, a.ID)
	if err != nil {
		return wireAttachment{}, translateStoreError(err, "attachment")
	}
	return toWireAttachment(created), nil
}

func (s *Service) ListAttachments(ctx context.Context, session Session, storyID string) ([]wireAttachment, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionRead); err != nil {
		return nil, err
	}
	attachments, err := s.store.ListAttachments(ctx, storyID)
	if err != nil {
		return nil, err
	}
	out := make([]wireAttachment, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, toWireAttachment(a))
	}
	return out, nil
}

// OpenAttachment returns the blob stream plus its metadata. The caller
// must close the reader.
func (s *Service) OpenAttachment(ctx context.Context, session Session, attachmentID string) (io.ReadCloser, wireAttachment, error) {
	if s.files == nil {
		return nil, wireAttachment{}, domainError(http.StatusNotImplemented, "UNAVAILABLE", "attachment storage is not configured", nil)
	}
	a, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, wireAttachment{}, translateStoreError(err, "attachment")
	}
	if err := s.requireAccess(ctx, session, a.StoryMapID, rbac.ActionRead); err != nil {
		return nil, wireAttachment{}, err
	}
	body, err := s.files.Get(ctx, a.ObjectKey)
	if err != nil {
		return nil, wireAttachment{}, fmt.Errorf("open attachment: %w", err)
	}
	return body, toWireAttachment(a), nil
}

func (s *Service) DeleteAttachment(ctx context.Context, session Session, attachmentID string) (wireAttachment, error) {
	a, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return wireAttachment{}, translateStoreError(err, "attachment")
	}
	if err := s.requireAccess(ctx, session, a.StoryMapID, rbac.ActionWrite); err != nil {
		return wireAttachment{}, err
	}
	if err := s.store.DeleteAttachment(ctx, attachmentID); err != nil {
		return wireAttachment{}, translateStoreError(err, "attachment")
	}
	if s.files != nil {
		_ = s.files.Remove(ctx, a.ObjectKey)
	}
	return toWireAttachment(a), nil
}
