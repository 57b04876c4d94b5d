package collab

import "encoding/json"

// Client->server event names.
const (
	EventMapJoin       = "map.join"
	EventMapLeave      = "map.leave"
	EventStoryCreate   = "story.create"
	EventStoryUpdate   = "story.update"
	EventStoryMove     = "story.move"
	EventStoryDelete   = "story.delete"
	EventCommentCreate = "comment.create"
	EventCommentDelete = "comment.delete"
)

// Server->client event names.
const (
	EventMapJoined      = "map.joined"
	EventUserJoined     = "user.joined"
	EventUserLeft       = "user.left"
	EventStoryCreated   = "story.created"
	EventStoryUpdated   = "story.updated"
	EventStoryMoved     = "story.moved"
	EventStoryDeleted   = "story.deleted"
	EventCommentCreated = "comment.created"
	EventCommentDeleted = "comment.deleted"
	EventError          = "error"
)

// Stable error codes carried on the error event.
const (
	CodeAccessDenied     = "ACCESS_DENIED"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeJoinFailed       = "JOIN_FAILED"
	CodeCreateFailed     = "CREATE_FAILED"
	CodeUpdateFailed     = "UPDATE_FAILED"
	CodeMoveFailed       = "MOVE_FAILED"
	CodeDeleteFailed     = "DELETE_FAILED"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outbound pairs an event name with an arbitrary JSON payload.
type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorPayload is sent back to the originating client only.
type ErrorPayload struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Context map[string]any `json:"context,omitempty"`
}

// RosterEntry describes one connected member of a room.
type RosterEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}
