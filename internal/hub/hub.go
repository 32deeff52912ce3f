package hub

import (
	"fmt"
	"log"
	"sync"
	"time"

	"collab-backend/internal/service"
)

// Persister is the storage slice the hub flushes coalesced snapshots to.
type Persister interface {
	SaveSnapshot(orgID int64, ref service.RoomRef, snap service.Snapshot, userID int64) error
}

// Mirror publishes room membership to an external observer, best effort.
type Mirror interface {
	Join(roomKey string, userID int64, userName string)
	Leave(roomKey string, userID int64)
}

// Member is one distinct user present in a room.
type Member struct {
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
}

// Hub is the room registry. It routes connections to rooms, creates rooms on
// first join, and retires them once empty with nothing left to write.
type Hub struct {
	persister   Persister
	mirror      Mirror
	quietPeriod time.Duration
	roomBuffer  int

	mu    sync.Mutex
	rooms map[string]*room
}

// New creates a Hub. mirror may be nil when presence mirroring is disabled.
func New(persister Persister, mirror Mirror, quietPeriod time.Duration, roomBuffer int) *Hub {
	if quietPeriod <= 0 {
		quietPeriod = 2 * time.Second
	}
	if roomBuffer <= 0 {
		roomBuffer = 256
	}
	return &Hub{
		persister:   persister,
		mirror:      mirror,
		quietPeriod: quietPeriod,
		roomBuffer:  roomBuffer,
		rooms:       make(map[string]*room),
	}
}

func roomKey(orgID int64, ref service.RoomRef) string {
	return fmt.Sprintf("%d/%s", orgID, ref.Key())
}

// Join places a connection in a room, creating the room if needed. When the
// user was not yet present, the other members are notified.
func (h *Hub) Join(c *Conn, ref service.RoomRef) {
	key := roomKey(c.OrgID, ref)

	for {
		h.mu.Lock()
		r, exists := h.rooms[key]
		if !exists {
			r = newRoom(h, key, c.OrgID, ref)
			h.rooms[key] = r
			go r.run()
		}
		first, ok := r.addConn(c)
		if !ok {
			// Lost a race with retirement; replace the dead room and retry.
			delete(h.rooms, key)
			h.mu.Unlock()
			continue
		}
		h.mu.Unlock()

		c.room = r
		if first {
			r.post(roomMsg{
				kind: msgBroadcast,
				env: Envelope{Type: EventUserJoined, Payload: PresencePayload{
					UserID:      c.UserID,
					UserName:    c.UserName,
					ActiveUsers: r.members(),
				}},
				exclude: c,
			})
			if h.mirror != nil {
				go h.mirror.Join(key, c.UserID, c.UserName)
			}
		}
		return
	}
}

// Leave removes a connection from its room. The room is retired by its own
// loop once it is empty and has no pending write.
func (h *Hub) Leave(c *Conn) {
	r := c.room
	if r == nil {
		return
	}
	c.room = nil

	last := r.removeConn(c)
	if last {
		r.post(roomMsg{
			kind: msgBroadcast,
			env: Envelope{Type: EventUserLeft, Payload: PresencePayload{
				UserID:      c.UserID,
				UserName:    c.UserName,
				ActiveUsers: r.members(),
			}},
			exclude: c,
		})
		if h.mirror != nil {
			go h.mirror.Leave(r.key, c.UserID)
		}
	}
	r.send(roomMsg{kind: msgCheckEmpty})
}

// PublishEdit relays a board change to the room and arms the write coalescer.
// The origin never receives its own edit back.
func (h *Hub) PublishEdit(c *Conn, payload EditPayload) {
	r := c.room
	if r == nil {
		return
	}

	snap := service.Snapshot{
		Elements:      string(payload.Elements),
		ViewState:     string(payload.ViewState),
		EmbeddedFiles: string(payload.EmbeddedFiles),
		Title:         payload.Title,
	}
	relay := EditRelayPayload{
		UserID:        c.UserID,
		Elements:      payload.Elements,
		ViewState:     payload.ViewState,
		EmbeddedFiles: payload.EmbeddedFiles,
		Title:         payload.Title,
	}
	r.post(roomMsg{
		kind:    msgEdit,
		env:     Envelope{Type: EventEdit, Payload: relay},
		exclude: c,
		snap:    snap,
		userID:  c.UserID,
	})
}

// PublishTitle relays a title change. Persistence happens immediately in the
// handler, so the room only fans out.
func (h *Hub) PublishTitle(c *Conn, title string) {
	h.broadcast(c, Envelope{Type: EventTitleUpdate, Payload: TitleRelayPayload{UserID: c.UserID, Title: title}})
}

// PublishThumbnail relays a thumbnail change.
func (h *Hub) PublishThumbnail(c *Conn, thumbnail string) {
	h.broadcast(c, Envelope{Type: EventThumbnailUpdate, Payload: ThumbnailPayload{Thumbnail: thumbnail}})
}

// PublishCursor relays an opaque pointer update. Cursor traffic is never
// persisted.
func (h *Hub) PublishCursor(c *Conn, cursor []byte) {
	h.broadcast(c, Envelope{
		Type:    EventCursorUpdate,
		Payload: CursorRelayPayload{UserID: c.UserID, UserName: c.UserName, Cursor: cursor},
	})
}

func (h *Hub) broadcast(c *Conn, env Envelope) {
	r := c.room
	if r == nil {
		return
	}
	r.post(roomMsg{kind: msgBroadcast, env: env, exclude: c})
}

// Invalidate discards any pending write for a room, after its document was
// deleted out of band.
func (h *Hub) Invalidate(orgID int64, ref service.RoomRef) {
	h.mu.Lock()
	r, exists := h.rooms[roomKey(orgID, ref)]
	h.mu.Unlock()
	if !exists {
		return
	}
	r.send(roomMsg{kind: msgInvalidate})
}

// ActiveUsers lists the distinct users present in a room.
func (h *Hub) ActiveUsers(orgID int64, ref service.RoomRef) []Member {
	h.mu.Lock()
	r, exists := h.rooms[roomKey(orgID, ref)]
	h.mu.Unlock()
	if !exists {
		return []Member{}
	}
	return r.members()
}

// RoomCount reports how many rooms are live.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Shutdown force-flushes every room's pending write and stops the loops. Used
// on graceful server shutdown so the quiet period cannot swallow final edits.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	live := make([]*room, 0, len(h.rooms))
	for _, r := range h.rooms {
		live = append(live, r)
	}
	h.mu.Unlock()

	log.Printf("[Hub] draining %d room(s)", len(live))
	for _, r := range live {
		r.send(roomMsg{kind: msgDrain})
	}
	for _, r := range live {
		<-r.done
	}
}

// remove unregisters a retired room. The loop may have lost its map slot to a
// newer room for the same key, in which case nothing happens.
func (h *Hub) remove(r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[r.key] == r {
		delete(h.rooms, r.key)
	}
}
