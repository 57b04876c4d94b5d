package search

import (
	"context"
	"database/sql"
	"fmt"

	"storymapper/api/internal/store"
)

// PgSearch is the fallback searcher: a case-insensitive substring match
// over title, description and labels, straight against Postgres. If
// Postgres is down the whole app is down, so this path has no health
// state of its own.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

const searchStoryColumns = `
	st.id, st.step_id, st.release_id, j.story_map_id, st.title, COALESCE(st.description, ''),
	st.status, st.size, st.sort_order, COALESCE(st.labels, ''),
	st.created_by, st.updated_by, st.created_at, st.updated_at
`

const searchStoryJoins = `
	FROM stories st
	JOIN steps s ON s.id = st.step_id
	JOIN journeys j ON j.id = s.journey_id
`

// Search matches stories in one story map, newest first.
func (p *PgSearch) Search(ctx context.Context, storyMapID, query string) ([]store.Story, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+searchStoryColumns+searchStoryJoins+`
		WHERE j.story_map_id = $1
		  AND (st.title ILIKE $2 OR st.description ILIKE $2 OR st.labels ILIKE $2)
		ORDER BY st.created_at DESC
		LIMIT 100
	`, storyMapID, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("search stories: %w", err)
	}
	defer rows.Close()
	return collectStories(rows)
}

// StoriesByID resolves index hits back to full rows, preserving the
// order of ids (the index's ranking).
func (p *PgSearch) StoriesByID(ctx context.Context, storyMapID string, ids []string) ([]store.Story, error) {
	if len(ids) == 0 {
		return []store.Story{}, nil
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+searchStoryColumns+searchStoryJoins+`
		WHERE j.story_map_id = $1 AND st.id = ANY($2)
	`, storyMapID, ids)
	if err != nil {
		return nil, fmt.Errorf("load stories by id: %w", err)
	}
	defer rows.Close()

	found, err := collectStories(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.Story, len(found))
	for _, story := range found {
		byID[story.ID] = story
	}
	ordered := make([]store.Story, 0, len(ids))
	for _, id := range ids {
		if story, ok := byID[id]; ok {
			ordered = append(ordered, story)
		}
	}
	return ordered, nil
}

// LoadAll returns every story in the database for full reindexing.
func (p *PgSearch) LoadAll(ctx context.Context) ([]StoryRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+searchStoryColumns+searchStoryJoins)
	if err != nil {
		return nil, fmt.Errorf("load stories: %w", err)
	}
	defer rows.Close()

	stories, err := collectStories(rows)
	if err != nil {
		return nil, err
	}
	records := make([]StoryRecord, 0, len(stories))
	for _, story := range stories {
		records = append(records, recordFromStory(story))
	}
	return records, nil
}

func collectStories(rows *sql.Rows) ([]store.Story, error) {
	stories := make([]store.Story, 0)
	for rows.Next() {
		var st store.Story
		if err := rows.Scan(&st.ID, &st.StepID, &st.ReleaseID, &st.StoryMapID, &st.Title, &st.Description,
			&st.Status, &st.Size, &st.SortOrder, &st.Labels,
			&st.CreatedBy, &st.UpdatedBy, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		stories = append(stories, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stories: %w", err)
	}
	return stories, nil
}
