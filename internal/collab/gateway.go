package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"storymapper/api/internal/app"
)

// Gateway upgrades HTTP requests on the collaboration endpoint and relays
// validated mutations to room peers. Every operation goes through the same
// service layer as the REST handlers, so the permission and ordering
// semantics are identical on both paths.
type Gateway struct {
	service *app.Service
	hub     *Hub
}

func NewGateway(service *app.Service, hub *Hub) *Gateway {
	return &Gateway{service: service, hub: hub}
}

func (g *Gateway) Handler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := handshakeToken(r)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		session, err := g.service.SessionFromToken(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf(`{"event":"ws_upgrade_failed","error":%q}`, err.Error())
			return
		}
		g.serve(conn, session)
	})
}

// handshakeToken reads the bearer token from the Authorization header or,
// for browser clients that cannot set headers on WebSocket dials, from the
// token query parameter.
func handshakeToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func (g *Gateway) serve(conn *websocket.Conn, session app.Session) {
	c := &client{
		id:      uuid.New().String(),
		session: session,
		conn:    conn,
		rooms:   make(map[string]bool),
	}
	log.Printf(`{"event":"ws_connected","conn_id":"%s","user_id":"%s"}`, c.id, session.UserID)

	defer func() {
		for _, storyMapID := range g.hub.Drop(c) {
			g.hub.Broadcast(storyMapID, EventUserLeft, RosterEntry{
				UserID:      session.UserID,
				DisplayName: session.UserName,
			}, "")
		}
		_ = conn.Close()
		log.Printf(`{"event":"ws_disconnected","conn_id":"%s","user_id":"%s"}`, c.id, session.UserID)
	}()

	for {
		var envelope Envelope
		if err := conn.ReadJSON(&envelope); err != nil {
			return
		}
		g.dispatch(context.Background(), c, envelope)
	}
}

func (g *Gateway) dispatch(ctx context.Context, c *client, envelope Envelope) {
	switch envelope.Type {
	case EventMapJoin:
		g.handleJoin(ctx, c, envelope)
	case EventMapLeave:
		g.handleLeave(c, envelope)
	case EventStoryCreate:
		g.handleStoryCreate(ctx, c, envelope)
	case EventStoryUpdate:
		g.handleStoryUpdate(ctx, c, envelope)
	case EventStoryMove:
		g.handleStoryMove(ctx, c, envelope)
	case EventStoryDelete:
		g.handleStoryDelete(ctx, c, envelope)
	case EventCommentCreate:
		g.handleCommentCreate(ctx, c, envelope)
	case EventCommentDelete:
		g.handleCommentDelete(ctx, c, envelope)
	default:
		c.sendError(CodeUpdateFailed, "unknown event type", map[string]any{"type": envelope.Type})
	}
}

// errorCode keeps ACCESS_DENIED and PERMISSION_DENIED from the service
// layer and maps everything else to the per-operation failure code.
func errorCode(err error, fallback string) string {
	var domainErr *app.DomainError
	if errors.As(err, &domainErr) {
		if domainErr.Code == CodeAccessDenied || domainErr.Code == CodePermissionDenied {
			return domainErr.Code
		}
	}
	return fallback
}

func errorMessage(err error) string {
	var domainErr *app.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "operation failed"
}

func (g *Gateway) emitError(c *client, err error, fallback string, context map[string]any) {
	c.sendError(errorCode(err, fallback), errorMessage(err), context)
}

// requireRoom rejects room-scoped mutations from clients that never joined
// the story map room.
func (g *Gateway) requireRoom(c *client, storyMapID string) bool {
	if storyMapID == "" || !g.hub.Member(storyMapID, c) {
		c.sendError(CodeAccessDenied, "join the story map room first", map[string]any{
			"story_map_id": storyMapID,
		})
		return false
	}
	return true
}

type joinPayload struct {
	StoryMapID string `json:"story_map_id"`
}

func (g *Gateway) handleJoin(ctx context.Context, c *client, envelope Envelope) {
	var payload joinPayload
	if err := decodePayload(envelope, &payload); err != nil || payload.StoryMapID == "" {
		c.sendError(CodeJoinFailed, "story_map_id is required", nil)
		return
	}

	// Access check mirrors the REST read path.
	storyMap, err := g.service.GetStoryMap(ctx, c.session, payload.StoryMapID)
	if err != nil {
		g.emitError(c, err, CodeJoinFailed, map[string]any{"story_map_id": payload.StoryMapID})
		return
	}

	roster := g.hub.Join(payload.StoryMapID, c)
	_ = c.send(EventMapJoined, map[string]any{
		"story_map": storyMap,
		"roster":    roster,
	})
	g.hub.Broadcast(payload.StoryMapID, EventUserJoined, RosterEntry{
		UserID:      c.session.UserID,
		DisplayName: c.session.UserName,
	}, c.id)
}

func (g *Gateway) handleLeave(c *client, envelope Envelope) {
	var payload joinPayload
	if err := decodePayload(envelope, &payload); err != nil || payload.StoryMapID == "" {
		return
	}
	g.hub.Leave(payload.StoryMapID, c)
	g.hub.Broadcast(payload.StoryMapID, EventUserLeft, RosterEntry{
		UserID:      c.session.UserID,
		DisplayName: c.session.UserName,
	}, "")
}

// storyInRoom verifies the story actually belongs to the claimed room
// before a mutation runs, so a client cannot bounce events for one map
// into another map's room.
func (g *Gateway) storyInRoom(ctx context.Context, c *client, storyMapID, storyID, code string) bool {
	actual, err := g.service.StoryMapIDForStory(ctx, c.session, storyID)
	if err != nil {
		g.emitError(c, err, code, map[string]any{
			"story_map_id": storyMapID,
			"story_id":     storyID,
		})
		return false
	}
	if actual != storyMapID {
		c.sendError(code, "story belongs to a different story map", map[string]any{
			"story_map_id": storyMapID,
			"story_id":     storyID,
		})
		return false
	}
	return true
}

type storyCreatePayload struct {
	StoryMapID string `json:"story_map_id"`
	app.CreateStoryInput
}

func (g *Gateway) handleStoryCreate(ctx context.Context, c *client, envelope Envelope) {
	var payload storyCreatePayload
	if err := decodePayload(envelope, &payload); err != nil {
		c.sendError(CodeCreateFailed, "invalid payload", nil)
		return
	}
	if !g.requireRoom(c, payload.StoryMapID) {
		return
	}
	created, err := g.service.CreateStory(ctx, c.session, payload.CreateStoryInput)
	if err != nil {
		g.emitError(c, err, CodeCreateFailed, map[string]any{
			"story_map_id": payload.StoryMapID,
			"step_id":      payload.StepID,
		})
		return
	}
	// The claimed room only selects the fan-out target; the entity's own
	// map decides whether the event may go there.
	if created.StoryMapID != payload.StoryMapID {
		c.sendError(CodeCreateFailed, "story belongs to a different story map", map[string]any{
			"story_map_id": payload.StoryMapID,
			"step_id":      payload.StepID,
		})
		return
	}
	// Creates go to everyone, the sender included, so optimistic UIs can
	// reconcile against the authoritative payload.
	g.hub.Broadcast(payload.StoryMapID, EventStoryCreated, created, "")
}

type storyUpdatePayload struct {
	StoryMapID string `json:"story_map_id"`
	StoryID    string `json:"story_id"`
	app.UpdateStoryInput
}

func (g *Gateway) handleStoryUpdate(ctx context.Context, c *client, envelope Envelope) {
	var payload storyUpdatePayload
	if err := decodePayload(envelope, &payload); err != nil {
		c.sendError(CodeUpdateFailed, "invalid payload", nil)
		return
	}
	if !g.requireRoom(c, payload.StoryMapID) {
		return
	}
	if !g.storyInRoom(ctx, c, payload.StoryMapID, payload.StoryID, CodeUpdateFailed) {
		return
	}
	updated, err := g.service.UpdateStory(ctx, c.session, payload.StoryID, payload.UpdateStoryInput)
	if err != nil {
		g.emitError(c, err, CodeUpdateFailed, map[string]any{
			"story_map_id": payload.StoryMapID,
			"story_id":     payload.StoryID,
		})
		return
	}
	// The sender already holds the optimistic result, peers only.
	g.hub.Broadcast(payload.StoryMapID, EventStoryUpdated, updated, c.id)
}

type storyMovePayload struct {
	StoryMapID string `json:"story_map_id"`
	StoryID    string `json:"story_id"`
	app.MoveStoryInput
}

func (g *Gateway) handleStoryMove(ctx context.Context, c *client, envelope Envelope) {
	var payload storyMovePayload
	if err := decodePayload(envelope, &payload); err != nil {
		c.sendError(CodeMoveFailed, "invalid payload", nil)
		return
	}
	if !g.requireRoom(c, payload.StoryMapID) {
		return
	}
	if !g.storyInRoom(ctx, c, payload.StoryMapID, payload.StoryID, CodeMoveFailed) {
		return
	}
	moved, err := g.service.MoveStory(ctx, c.session, payload.StoryID, payload.MoveStoryInput)
	if err != nil {
		g.emitError(c, err, CodeMoveFailed, map[string]any{
			"story_map_id": payload.StoryMapID,
			"story_id":     payload.StoryID,
		})
		return
	}
	g.hub.Broadcast(payload.StoryMapID, EventStoryMoved, moved, c.id)
}

type storyDeletePayload struct {
	StoryMapID string `json:"story_map_id"`
	StoryID    string `json:"story_id"`
}

func (g *Gateway) handleStoryDelete(ctx context.Context, c *client, envelope Envelope) {
	var payload storyDeletePayload
	if err := decodePayload(envelope, &payload); err != nil {
		c.sendError(CodeDeleteFailed, "invalid payload", nil)
		return
	}
	if !g.requireRoom(c, payload.StoryMapID) {
		return
	}
	if !g.storyInRoom(ctx, c, payload.StoryMapID, payload.StoryID, CodeDeleteFailed) {
		return
	}
	deleted, err := g.service.DeleteStory(ctx, c.session, payload.StoryID)
	if err != nil {
		g.emitError(c, err, CodeDeleteFailed, map[string]any{
			"story_map_id": payload.StoryMapID,
			"story_id":     payload.StoryID,
		})
		return
	}
	g.hub.Broadcast(payload.StoryMapID, EventStoryDeleted, deleted, "")
}

type commentCreatePayload struct {
	StoryMapID string `json:"story_map_id"`
	StoryID    string `json:"story_id"`
	Content    string `json:"content"`
}

func (g *Gateway) handleCommentCreate(ctx context.Context, c *client, envelope Envelope) {
	var payload commentCreatePayload
	if err := decodePayload(envelope, &payload); err != nil {
		c.sendError(CodeCreateFailed, "invalid payload", nil)
		return
	}
	if !g.requireRoom(c, payload.StoryMapID) {
		return
	}
	if !g.storyInRoom(ctx, c, payload.StoryMapID, payload.StoryID, CodeCreateFailed) {
		return
	}
	created, err := g.service.CreateComment(ctx, c.session, payload.StoryID, app.CommentInput{Content: payload.Content})
	if err != nil {
		g.emitError(c, err, CodeCreateFailed, map[string]any{
			"story_map_id": payload.StoryMapID,
			"story_id":     payload.StoryID,
		})
		return
	}
	g.hub.Broadcast(payload.StoryMapID, EventCommentCreated, created, "")
}

type commentDeletePayload struct {
	StoryMapID string `json:"story_map_id"`
	CommentID  string `json:"comment_id"`
}

func (g *Gateway) handleCommentDelete(ctx context.Context, c *client, envelope Envelope) {
	var payload commentDeletePayload
	if err := decodePayload(envelope, &payload); err != nil {
		c.sendError(CodeDeleteFailed, "invalid payload", nil)
		return
	}
	if !g.requireRoom(c, payload.StoryMapID) {
		return
	}
	deleted, err := g.service.DeleteComment(ctx, c.session, payload.CommentID)
	if err != nil {
		g.emitError(c, err, CodeDeleteFailed, map[string]any{
			"story_map_id": payload.StoryMapID,
			"comment_id":   payload.CommentID,
		})
		return
	}
	if !g.storyInRoom(ctx, c, payload.StoryMapID, deleted.StoryID, CodeDeleteFailed) {
		return
	}
	g.hub.Broadcast(payload.StoryMapID, EventCommentDeleted, deleted, "")
}

func decodePayload(envelope Envelope, target any) error {
	if len(envelope.Payload) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(envelope.Payload, target)
}
