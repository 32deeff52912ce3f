package hub

import (
	"encoding/json"

	"collab-backend/internal/model"
)

// Client-to-server event types
const (
	EventJoin            = "join"
	EventLeave           = "leave"
	EventEdit            = "edit"
	EventTitleUpdate     = "title-update"
	EventThumbnailUpdate = "thumbnail-update"
	EventCursorUpdate    = "cursor-update"
)

// Server-to-client event types
const (
	EventInitialState = "initial-state"
	EventUserJoined   = "user-joined"
	EventUserLeft     = "user-left"
	EventError        = "error"
)

// Envelope is the wire frame for every WebSocket message in both directions.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// JoinPayload room selection sent right after the upgrade
type JoinPayload struct {
	Room string `json:"room"`
}

// EditPayload full board state sent on every change. Inbound payloads carry
// no user or room fields: identity comes from the validated token and the
// room from the join, so a client cannot speak for another user or into a
// room it never joined.
type EditPayload struct {
	Elements      json.RawMessage `json:"elements"`
	ViewState     json.RawMessage `json:"viewState"`
	EmbeddedFiles json.RawMessage `json:"embeddedFiles"`
	Title         *string         `json:"title,omitempty"`
}

// EditRelayPayload board state stamped with the editing user
type EditRelayPayload struct {
	UserID        int64           `json:"userId"`
	Elements      json.RawMessage `json:"elements"`
	ViewState     json.RawMessage `json:"viewState"`
	EmbeddedFiles json.RawMessage `json:"embeddedFiles"`
	Title         *string         `json:"title,omitempty"`
}

// TitlePayload immediate title change
type TitlePayload struct {
	Title string `json:"title"`
}

// TitleRelayPayload title change stamped with the editing user
type TitleRelayPayload struct {
	UserID int64  `json:"userId"`
	Title  string `json:"title"`
}

// ThumbnailPayload immediate preview image change
type ThumbnailPayload struct {
	Thumbnail string `json:"thumbnail"`
}

// CursorRelayPayload opaque pointer state stamped with the moving user
type CursorRelayPayload struct {
	UserID   int64           `json:"userId"`
	UserName string          `json:"userName"`
	Cursor   json.RawMessage `json:"cursor"`
}

// PresencePayload membership change notification. ActiveUsers is the room's
// member list after the change, so clients render presence without a
// follow-up request.
type PresencePayload struct {
	UserID      int64    `json:"userId"`
	UserName    string   `json:"userName"`
	ActiveUsers []Member `json:"activeUsers"`
}

// ErrorPayload structured failure report
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BoardState is the document snapshot served to a joining client.
type BoardState struct {
	WhiteboardKey string          `json:"whiteboardKey"`
	Title         string          `json:"title"`
	Elements      json.RawMessage `json:"elements"`
	ViewState     json.RawMessage `json:"viewState"`
	EmbeddedFiles json.RawMessage `json:"embeddedFiles"`
	Thumbnail     *string         `json:"thumbnail,omitempty"`
	ProjectID     *int64          `json:"projectId,omitempty"`
	UpdatedAt     int64           `json:"updatedAt"`
}

// BoardStateFrom converts a stored document to its wire form. The JSON
// columns are already serialized, so they pass through without re-encoding.
func BoardStateFrom(doc *model.WhiteboardDocument) BoardState {
	return BoardState{
		WhiteboardKey: doc.WhiteboardKey,
		Title:         doc.Title,
		Elements:      json.RawMessage(doc.Elements),
		ViewState:     json.RawMessage(doc.ViewState),
		EmbeddedFiles: json.RawMessage(doc.EmbeddedFiles),
		Thumbnail:     doc.Thumbnail,
		ProjectID:     doc.ProjectID,
		UpdatedAt:     doc.UpdatedAt.UnixMilli(),
	}
}
