package hub

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"collab-backend/internal/service"
)

// textMessage matches websocket.TextMessage; kept local so the hub does not
// depend on the transport package.
const textMessage = 1

// socket is the slice of the WebSocket connection the hub writes to.
type socket interface {
	WriteMessage(messageType int, data []byte) error
}

// Conn is one client connection inside a room. A user with two browser tabs
// holds two Conns.
type Conn struct {
	ID       string
	UserID   int64
	UserName string
	OrgID    int64

	sock    socket
	writeMu sync.Mutex

	// Managed by the connection's own read goroutine via Hub.Join and
	// Hub.Leave, so no lock is needed.
	room *room
}

// NewConn wraps an upgraded WebSocket connection
func NewConn(sock socket, userID int64, userName string, orgID int64) *Conn {
	return &Conn{
		ID:       uuid.New().String(),
		UserID:   userID,
		UserName: userName,
		OrgID:    orgID,
		sock:     sock,
	}
}

// RoomRef returns the reference of the room this connection is in. The zero
// value means the connection has not joined yet.
func (c *Conn) RoomRef() service.RoomRef {
	if c.room == nil {
		return service.RoomRef{}
	}
	return c.room.ref
}

// Send marshals and writes one envelope. Writes are serialized because the
// room loop and the read handler both send on the same connection.
func (c *Conn) Send(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("[Hub] marshal failed for %s event: %v", env.Type, err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.sock.WriteMessage(textMessage, data); err != nil {
		log.Printf("[Hub] write failed to user %d: %v", c.UserID, err)
	}
}

// SendError reports a structured failure to this client only.
func (c *Conn) SendError(code, message string) {
	c.Send(Envelope{Type: EventError, Payload: ErrorPayload{Code: code, Message: message}})
}
