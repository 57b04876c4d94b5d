package search

import (
	"strings"

	"storymapper/api/internal/store"
)

// StoryRecord is the document shape pushed into the search index.
type StoryRecord struct {
	ID          string `json:"id"`
	StoryMapID  string `json:"story_map_id"`
	StepID      string `json:"step_id"`
	ReleaseID   string `json:"release_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Labels      string `json:"labels"`
}

func recordFromStory(story store.Story) StoryRecord {
	return StoryRecord{
		ID:          story.ID,
		StoryMapID:  story.StoryMapID,
		StepID:      story.StepID,
		ReleaseID:   story.ReleaseID,
		Title:       story.Title,
		Description: story.Description,
		Status:      story.Status,
		Labels:      story.Labels,
	}
}

func normalizeQuery(query string) string {
	return strings.TrimSpace(query)
}
