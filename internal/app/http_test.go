package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storymapper/api/internal/store"
)

func newTestServer(t *testing.T, fs *fakeStore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHTTPServer(newTestService(fs), nil, "").Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeStore{})
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Fatalf("unexpected health payload: %v", body)
	}
}

func TestMissingBearerIsUnauthorized(t *testing.T) {
	srv := newTestServer(t, &fakeStore{})
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/story-maps", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if body["code"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected error payload: %v", body)
	}
}

func TestSignupThenCreateStoryMap(t *testing.T) {
	fs := &fakeStore{}
	statefulUsers(fs)
	var created store.StoryMap
	fs.createStoryMapFn = func(_ context.Context, m store.StoryMap, _ store.Release) error {
		created = m
		return nil
	}
	fs.getStoryMapFn = func(_ context.Context, id string) (store.StoryMap, error) {
		return created, nil
	}
	fs.listStoryMapsForUserFn = func(_ context.Context, userID string) ([]store.StoryMap, error) {
		return []store.StoryMap{created}, nil
	}
	srv := newTestServer(t, fs)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", "", map[string]string{
		"email":        "dana@example.com",
		"password":     "correct-horse",
		"display_name": "Dana",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status %d: %v", resp.StatusCode, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("no token in signup response")
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/story-maps", token, map[string]string{
		"name": "Checkout Flow",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create map status %d: %v", resp.StatusCode, body)
	}
	if body["name"] != "Checkout Flow" {
		t.Fatalf("unexpected map payload: %v", body)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/story-maps", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", resp.StatusCode)
	}
}

func TestProfileEndpoint(t *testing.T) {
	fs := &fakeStore{}
	statefulUsers(fs)
	srv := newTestServer(t, fs)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/auth/profile", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous profile status %d", resp.StatusCode)
	}

	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", "", map[string]string{
		"email": "ana@example.com", "password": "long-password", "display_name": "Ana",
	})
	token, _ := body["token"].(string)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/auth/profile", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status %d: %v", resp.StatusCode, body)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "ana@example.com" || user["display_name"] != "Ana" {
		t.Fatalf("unexpected profile payload: %v", body)
	}
}

func TestCreateDependencyUnderStory(t *testing.T) {
	fs := &fakeStore{}
	statefulUsers(fs)
	fs.getStoryFn = func(_ context.Context, id string) (store.Story, error) {
		return store.Story{ID: id, StoryMapID: "map_1"}, nil
	}
	var ownerID string
	fs.getStoryMapFn = func(_ context.Context, id string) (store.StoryMap, error) {
		return store.StoryMap{ID: id, OwnerID: ownerID}, nil
	}
	var inserted store.StoryLink
	fs.insertStoryLinkFn = func(_ context.Context, l store.StoryLink) error {
		inserted = l
		return nil
	}
	fs.getStoryLinkFn = func(_ context.Context, id string) (store.StoryLink, error) {
		return inserted, nil
	}
	srv := newTestServer(t, fs)

	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", "", map[string]string{
		"email": "lee@example.com", "password": "long-password", "display_name": "Lee",
	})
	token, _ := body["token"].(string)
	user, _ := body["user"].(map[string]any)
	ownerID, _ = user["id"].(string)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/stories/sty_a/dependencies", token, map[string]string{
		"target_story_id": "sty_b",
		"link_type":       store.LinkBlocks,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create dependency status %d: %v", resp.StatusCode, body)
	}
	if inserted.SourceStoryID != "sty_a" || inserted.TargetStoryID != "sty_b" {
		t.Fatalf("source not taken from the path: %+v", inserted)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/stories/sty_a/dependencies", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list dependencies status %d: %v", resp.StatusCode, body)
	}
	if _, ok := body["dependencies"]; !ok {
		t.Fatalf("expected dependencies key, got %v", body)
	}
}

func TestNotFoundErrorShape(t *testing.T) {
	fs := &fakeStore{}
	statefulUsers(fs)
	srv := newTestServer(t, fs)

	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", "", map[string]string{
		"email": "kim@example.com", "password": "long-password", "display_name": "Kim",
	})
	token, _ := body["token"].(string)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/journeys/jrn_missing", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["code"] != "NOT_FOUND" {
		t.Fatalf("unexpected error payload: %v", body)
	}
}
