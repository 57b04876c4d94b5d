package search

import (
	"context"
	"log"

	"storymapper/api/internal/store"
)

// Service is the facade that tries Meilisearch first and falls back to a
// plain Postgres match. Index writes are fire-and-forget: losing one only
// costs search freshness, never data.
type Service struct {
	meili *Meili
	pg    *PgSearch
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, pg *PgSearch) *Service {
	return &Service{meili: meili, pg: pg}
}

// Search returns matching stories for one story map.
func (s *Service) Search(ctx context.Context, storyMapID, query string) ([]store.Story, error) {
	query = normalizeQuery(query)
	if query == "" {
		return []store.Story{}, nil
	}

	if s.meili != nil && s.meili.Healthy() {
		ids, err := s.meili.Search(storyMapID, query)
		if err == nil {
			return s.pg.StoriesByID(ctx, storyMapID, ids)
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}

	return s.pg.Search(ctx, storyMapID, query)
}

// IndexStory pushes one story into the index.
func (s *Service) IndexStory(story store.Story) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	record := recordFromStory(story)
	go func() {
		if err := s.meili.IndexStory(record); err != nil {
			log.Printf("search: index story %s: %v", record.ID, err)
		}
	}()
}

// RemoveStory drops one story from the index.
func (s *Service) RemoveStory(storyMapID, storyID string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.RemoveStory(storyID); err != nil {
			log.Printf("search: remove story %s: %v", storyID, err)
		}
	}()
}

// RemoveMap drops every indexed story of a deleted story map.
func (s *Service) RemoveMap(storyMapID string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.RemoveMap(storyMapID); err != nil {
			log.Printf("search: remove map %s: %v", storyMapID, err)
		}
	}()
}

// ReindexAll loads every story from Postgres and pushes it to
// Meilisearch. Called at startup when the engine is reachable.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	records, err := s.pg.LoadAll(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexStories(records); err != nil {
		log.Printf("search: reindex failed: %v", err)
	}
}
