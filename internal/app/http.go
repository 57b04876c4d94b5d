package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"storymapper/api/internal/auth"
	"storymapper/api/internal/export"
)

// boardExporter renders a board to a downloadable PDF.
type boardExporter interface {
	BoardPDF(ctx context.Context, board export.Board) ([]byte, error)
}

type HTTPServer struct {
	service    *Service
	exporter   boardExporter
	corsOrigin string
}

func NewHTTPServer(service *Service, exporter boardExporter, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, exporter: exporter, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if strings.HasPrefix(r.URL.Path, "/api/auth/") {
		s.handleAuth(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"user_id":       session.UserID,
			"display_name":  session.UserName,
			"email":         session.Email,
		})
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "story-maps":
		s.handleStoryMaps(w, r, session, parts[2:])
	case "journeys":
		s.handleJourneys(w, r, session, parts[2:])
	case "steps":
		s.handleSteps(w, r, session, parts[2:])
	case "releases":
		s.handleReleases(w, r, session, parts[2:])
	case "stories":
		s.handleStories(w, r, session, parts[2:])
	case "story-links":
		s.handleStoryLinks(w, r, session, parts[2:])
	case "tags":
		s.handleTags(w, r, session, parts[2:])
	case "personas":
		s.handlePersonas(w, r, session, parts[2:])
	case "comments":
		s.handleComments(w, r, session, parts[2:])
	case "attachments":
		s.handleAttachments(w, r, session, parts[2:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/auth/profile" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		profile, err := s.service.Profile(r.Context(), session)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": profile})
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	switch strings.TrimPrefix(r.URL.Path, "/api/auth/") {
	case "signup":
		var body struct {
			Email       string `json:"email"`
			Password    string `json:"password"`
			DisplayName string `json:"display_name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Signup(r.Context(), body.Email, body.Password, body.DisplayName)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sessionPayload(session))

	case "login":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(session))

	case "refresh":
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(session))

	case "logout":
		session := Session{}
		if token := bearerToken(r); token != "" {
			if parsed, err := s.service.SessionFromToken(r.Context(), token); err == nil {
				session = parsed
			}
		}
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), session, body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":         session.Token,
		"refresh_token": session.RefreshToken,
		"expires_at":    session.ExpiresAt,
		"user": map[string]any{
			"id":           session.UserID,
			"display_name": session.UserName,
			"email":        session.Email,
		},
	}
}

func (s *HTTPServer) handleStoryMaps(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		items, err := s.service.ListStoryMaps(r.Context(), session)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"story_maps": items})

	case len(rest) == 0 && r.Method == http.MethodPost:
		var input CreateStoryMapInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateStoryMap(r.Context(), session, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 1 && r.Method == http.MethodGet:
		m, err := s.service.GetStoryMap(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)

	case len(rest) == 1 && r.Method == http.MethodPatch:
		var input UpdateStoryMapInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateStoryMap(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteStoryMap(r.Context(), session, rest[0]); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 2 && rest[1] == "board" && r.Method == http.MethodGet:
		board, err := s.service.GetBoard(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, board)

	case len(rest) == 2 && rest[1] == "journeys" && r.Method == http.MethodGet:
		items, err := s.service.ListJourneys(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"journeys": items})

	case len(rest) == 2 && rest[1] == "journeys" && r.Method == http.MethodPost:
		var input CreateJourneyInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateJourney(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 2 && rest[1] == "releases" && r.Method == http.MethodGet:
		items, err := s.service.ListReleases(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"releases": items})

	case len(rest) == 2 && rest[1] == "releases" && r.Method == http.MethodPost:
		var input CreateReleaseInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateRelease(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 2 && rest[1] == "tags" && r.Method == http.MethodGet:
		items, err := s.service.ListTags(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tags": items})

	case len(rest) == 2 && rest[1] == "tags" && r.Method == http.MethodPost:
		var input CreateTagInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateTag(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 2 && rest[1] == "personas" && r.Method == http.MethodGet:
		items, err := s.service.ListPersonas(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"personas": items})

	case len(rest) == 2 && rest[1] == "personas" && r.Method == http.MethodPost:
		var input CreatePersonaInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreatePersona(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 2 && rest[1] == "members" && r.Method == http.MethodGet:
		items, err := s.service.ListMembers(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"members": items})

	case len(rest) == 2 && rest[1] == "members" && r.Method == http.MethodPost:
		var input MemberInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		member, err := s.service.AddMember(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, member)

	case len(rest) == 3 && rest[1] == "members" && r.Method == http.MethodDelete:
		if err := s.service.RemoveMember(r.Context(), session, rest[0], rest[2]); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 2 && rest[1] == "search" && r.Method == http.MethodGet:
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "VALIDATION", "q is required", nil)
			return
		}
		items, err := s.service.SearchStories(r.Context(), session, rest[0], query)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stories": items})

	case len(rest) == 2 && rest[1] == "export.pdf" && r.Method == http.MethodGet:
		s.handleExportPDF(w, r, session, rest[0])

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleExportPDF(w http.ResponseWriter, r *http.Request, session Session, storyMapID string) {
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "UNAVAILABLE", "PDF export is not configured", nil)
		return
	}
	board, err := s.service.GetBoard(r.Context(), session, storyMapID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	pdf, err := s.exporter.BoardPDF(r.Context(), exportBoard(board))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EXPORT_FAILED", "PDF export failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.SanitizeFilename(board.StoryMap.Name)+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *HTTPServer) handleJourneys(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 1 && r.Method == http.MethodGet:
		j, err := s.service.GetJourney(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, j)

	case len(rest) == 1 && r.Method == http.MethodPatch:
		var input UpdateJourneyInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateJourney(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		deleted, err := s.service.DeleteJourney(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleted)

	case len(rest) == 2 && rest[1] == "reorder" && r.Method == http.MethodPost:
		var input ReorderInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		moved, err := s.service.ReorderJourney(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, moved)

	case len(rest) == 2 && rest[1] == "steps" && r.Method == http.MethodGet:
		items, err := s.service.ListSteps(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"steps": items})

	case len(rest) == 2 && rest[1] == "steps" && r.Method == http.MethodPost:
		var input CreateStepInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		input.JourneyID = rest[0]
		created, err := s.service.CreateStep(r.Context(), session, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleSteps(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 1 && r.Method == http.MethodGet:
		st, err := s.service.GetStep(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)

	case len(rest) == 1 && r.Method == http.MethodPatch:
		var input UpdateStepInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateStep(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		deleted, err := s.service.DeleteStep(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleted)

	case len(rest) == 2 && rest[1] == "reorder" && r.Method == http.MethodPost:
		var input ReorderInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		moved, err := s.service.ReorderStep(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, moved)

	case len(rest) == 2 && rest[1] == "stories" && r.Method == http.MethodGet:
		items, err := s.service.ListStoriesByStep(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stories": items})

	case len(rest) == 2 && rest[1] == "stories" && r.Method == http.MethodPost:
		var input CreateStoryInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		input.StepID = rest[0]
		created, err := s.service.CreateStory(r.Context(), session, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleReleases(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 1 && r.Method == http.MethodGet:
		rel, err := s.service.GetRelease(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rel)

	case len(rest) == 1 && r.Method == http.MethodPatch:
		var input UpdateReleaseInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateRelease(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		deleted, err := s.service.DeleteRelease(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleted)

	case len(rest) == 2 && rest[1] == "reorder" && r.Method == http.MethodPost:
		var input ReorderInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		moved, err := s.service.ReorderRelease(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, moved)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleStories(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 1 && r.Method == http.MethodGet:
		detail, err := s.service.GetStory(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)

	case len(rest) == 1 && r.Method == http.MethodPatch:
		var input UpdateStoryInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateStory(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		deleted, err := s.service.DeleteStory(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleted)

	case len(rest) == 2 && rest[1] == "move" && r.Method == http.MethodPost:
		var input MoveStoryInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		moved, err := s.service.MoveStory(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, moved)

	case len(rest) == 2 && rest[1] == "dependencies" && r.Method == http.MethodGet:
		items, err := s.service.ListStoryLinks(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"dependencies": items})

	case len(rest) == 2 && rest[1] == "dependencies" && r.Method == http.MethodPost:
		var input CreateLinkInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		input.SourceStoryID = rest[0]
		created, err := s.service.CreateStoryLink(r.Context(), session, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 2 && rest[1] == "comments" && r.Method == http.MethodGet:
		items, err := s.service.ListComments(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": items})

	case len(rest) == 2 && rest[1] == "comments" && r.Method == http.MethodPost:
		var input CommentInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateComment(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case len(rest) == 3 && rest[1] == "tags" && r.Method == http.MethodPut:
		assigned, err := s.service.AssignTag(r.Context(), session, rest[0], rest[2])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, assigned)

	case len(rest) == 3 && rest[1] == "tags" && r.Method == http.MethodDelete:
		if err := s.service.UnassignTag(r.Context(), session, rest[0], rest[2]); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 3 && rest[1] == "personas" && r.Method == http.MethodPut:
		assigned, err := s.service.AssignPersona(r.Context(), session, rest[0], rest[2])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, assigned)

	case len(rest) == 3 && rest[1] == "personas" && r.Method == http.MethodDelete:
		if err := s.service.UnassignPersona(r.Context(), session, rest[0], rest[2]); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 2 && rest[1] == "attachments" && r.Method == http.MethodGet:
		items, err := s.service.ListAttachments(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attachments": items})

	case len(rest) == 2 && rest[1] == "attachments" && r.Method == http.MethodPost:
		s.handleUploadAttachment(w, r, session, rest[0])

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleUploadAttachment(w http.ResponseWriter, r *http.Request, session Session, storyID string) {
	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "file field is required", nil)
		return
	}
	defer file.Close()

	created, err := s.service.UploadAttachment(
		r.Context(), session, storyID,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file,
	)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleStoryLinks(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 1 && r.Method == http.MethodDelete:
		deleted, err := s.service.DeleteStoryLink(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleted)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleTags(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 1 && r.Method == http.MethodPatch:
		var input UpdateTagInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateTag(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		deleted, err := s.service.DeleteTag(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleted)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handlePersonas(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 1 && r.Method == http.MethodPatch:
		var input UpdatePersonaInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdatePersona(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		deleted, err := s.service.DeletePersona(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleted)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleComments(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 1 && r.Method == http.MethodPatch:
		var input CommentInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateComment(r.Context(), session, rest[0], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		deleted, err := s.service.DeleteComment(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleted)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleAttachments(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 1 && r.Method == http.MethodGet:
		body, meta, err := s.service.OpenAttachment(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		defer body.Close()
		w.Header().Set("Content-Type", meta.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.FileName))
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, body)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		deleted, err := s.service.DeleteAttachment(r.Context(), session, rest[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleted)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		s.writeServiceError(w, err)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
