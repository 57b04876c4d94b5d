package search

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxStories = "storymapper_stories"

// Meili maintains the story index in Meilisearch. It monitors the engine
// in the background so the facade can fall back to Postgres while the
// engine is down and reindex when it comes back.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the story index.
// An unreachable engine is not an error; the health loop keeps probing.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxStories,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxStories, err)
	}

	index := m.client.Index(idxStories)
	filterable := []interface{}{"story_map_id", "step_id", "release_id", "status"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxStories, err)
	}
	searchable := []string{"title", "description", "labels"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxStories, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search returns matching story ids for one story map, best match first.
func (m *Meili) Search(storyMapID, query string) ([]string, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.Index(idxStories).Search(query, &meili.SearchRequest{
		Limit:  100,
		Filter: fmt.Sprintf("story_map_id = %q", storyMapID),
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	ids := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if id := decodeString(hit, "id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// IndexStories bulk-indexes story records.
func (m *Meili) IndexStories(records []StoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxStories).AddDocuments(records, nil)
	return err
}

// IndexStory adds or updates one story in the index.
func (m *Meili) IndexStory(record StoryRecord) error {
	_, err := m.client.Index(idxStories).AddDocuments([]StoryRecord{record}, nil)
	return err
}

// RemoveStory deletes one story from the index.
func (m *Meili) RemoveStory(storyID string) error {
	_, err := m.client.Index(idxStories).DeleteDocument(storyID, nil)
	return err
}

// RemoveMap deletes every indexed story belonging to the story map.
func (m *Meili) RemoveMap(storyMapID string) error {
	_, err := m.client.Index(idxStories).DeleteDocumentsByFilter(
		fmt.Sprintf("story_map_id = %q", storyMapID), nil)
	return err
}
