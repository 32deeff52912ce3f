package handler

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/contrib/websocket"

	"collab-backend/internal/hub"
	"collab-backend/internal/service"
)

// Wire error codes
const (
	CodeValidation = "VALIDATION"
	CodeNotFound   = "NOT_FOUND"
	CodeForbidden  = "FORBIDDEN"
	CodeStorage    = "STORAGE"
)

// inboundMessage raw client frame; payload decoding depends on the type
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// BoardWSHandler drives one WebSocket connection through the board protocol:
// join a room, receive the initial state, then exchange live events until the
// socket closes.
type BoardWSHandler struct {
	hub    *hub.Hub
	boards *service.WhiteboardService
}

// NewBoardWSHandler creates a BoardWSHandler
func NewBoardWSHandler(h *hub.Hub, boards *service.WhiteboardService) *BoardWSHandler {
	return &BoardWSHandler{hub: h, boards: boards}
}

// HandleWebSocket runs the connection's read loop. Identity and organization
// were validated by the upgrade middleware and arrive through locals.
func (h *BoardWSHandler) HandleWebSocket(c *websocket.Conn) {
	userID, ok1 := c.Locals("userID").(int64)
	nickname, ok2 := c.Locals("nickname").(string)
	orgID, ok3 := c.Locals("orgID").(int64)

	if !ok1 || !ok2 || !ok3 {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"code":"VALIDATION","message":"invalid session"}}`))
		c.Close()
		return
	}

	conn := hub.NewConn(c, userID, nickname, orgID)
	joined := false

	log.Printf("[Board] client connected: org=%d, user=%d", orgID, userID)

	defer func() {
		h.hub.Leave(conn)
		c.Close()
		log.Printf("[Board] client disconnected: org=%d, user=%d", orgID, userID)
	}()

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			conn.SendError(CodeValidation, "malformed message")
			continue
		}

		if msg.Type == hub.EventJoin {
			if joined {
				conn.SendError(CodeValidation, "already joined a room")
				continue
			}
			if h.handleJoin(conn, msg.Payload) {
				joined = true
			}
			continue
		}

		if !joined {
			conn.SendError(CodeValidation, "join a room first")
			continue
		}

		switch msg.Type {
		case hub.EventLeave:
			return
		case hub.EventEdit:
			h.handleEdit(conn, msg.Payload)
		case hub.EventTitleUpdate:
			h.handleTitle(conn, msg.Payload)
		case hub.EventThumbnailUpdate:
			h.handleThumbnail(conn, msg.Payload)
		case hub.EventCursorUpdate:
			h.hub.PublishCursor(conn, msg.Payload)
		default:
			conn.SendError(CodeValidation, "unknown message type")
		}
	}
}

// handleJoin resolves the room, serves the initial state, and registers the
// connection. Returns false when the client must retry with a valid room.
func (h *BoardWSHandler) handleJoin(conn *hub.Conn, payload json.RawMessage) bool {
	var join hub.JoinPayload
	if err := json.Unmarshal(payload, &join); err != nil {
		conn.SendError(CodeValidation, "malformed join payload")
		return false
	}

	ref, err := service.ParseRoomKey(join.Room)
	if err != nil {
		conn.SendError(errorCode(err), err.Error())
		return false
	}

	doc, err := h.boards.Bootstrap(conn.OrgID, ref, conn.UserID)
	if err != nil {
		conn.SendError(errorCode(err), "failed to load board")
		return false
	}

	// The snapshot goes out before the room registration, so the initial
	// state is always the first frame and no relay can precede it.
	conn.Send(hub.Envelope{Type: hub.EventInitialState, Payload: hub.BoardStateFrom(doc)})
	h.hub.Join(conn, ref)
	return true
}

func (h *BoardWSHandler) handleEdit(conn *hub.Conn, payload json.RawMessage) {
	var edit hub.EditPayload
	if err := json.Unmarshal(payload, &edit); err != nil {
		conn.SendError(CodeValidation, "malformed edit payload")
		return
	}
	if len(edit.Elements) == 0 || len(edit.ViewState) == 0 || len(edit.EmbeddedFiles) == 0 {
		conn.SendError(CodeValidation, "elements, viewState and embeddedFiles are required")
		return
	}
	h.hub.PublishEdit(conn, edit)
}

func (h *BoardWSHandler) handleTitle(conn *hub.Conn, payload json.RawMessage) {
	var req hub.TitlePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		conn.SendError(CodeValidation, "malformed title payload")
		return
	}

	ref := conn.RoomRef()
	if err := h.boards.UpdateTitleInRoom(conn.OrgID, ref, req.Title, conn.UserID); err != nil {
		conn.SendError(errorCode(err), "failed to update title")
		return
	}
	h.hub.PublishTitle(conn, req.Title)
}

func (h *BoardWSHandler) handleThumbnail(conn *hub.Conn, payload json.RawMessage) {
	var req hub.ThumbnailPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		conn.SendError(CodeValidation, "malformed thumbnail payload")
		return
	}

	ref := conn.RoomRef()
	if err := h.boards.UpdateThumbnailInRoom(conn.OrgID, ref, req.Thumbnail, conn.UserID); err != nil {
		conn.SendError(errorCode(err), "failed to update thumbnail")
		return
	}
	h.hub.PublishThumbnail(conn, req.Thumbnail)
}

// errorCode maps service errors to wire codes. Anything unclassified is a
// storage failure.
func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation):
		return CodeValidation
	case errors.Is(err, service.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, service.ErrForbidden):
		return CodeForbidden
	default:
		return CodeStorage
	}
}
