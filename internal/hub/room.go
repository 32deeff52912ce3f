package hub

import (
	"log"
	"sync"
	"time"

	"collab-backend/internal/service"
)

type msgKind int

const (
	msgEdit msgKind = iota
	msgBroadcast
	msgFlushDone
	msgInvalidate
	msgCheckEmpty
	msgDrain
)

// roomMsg is one unit of work for a room's consumer loop. Which fields are
// set depends on the kind.
type roomMsg struct {
	kind    msgKind
	env     Envelope
	exclude *Conn
	snap    service.Snapshot
	userID  int64
	err     error
}

type memberEntry struct {
	name string
	refs int
}

type pendingWrite struct {
	snap   service.Snapshot
	userID int64
}

// room owns everything for one whiteboard: the connection set, the presence
// counts, and the write coalescing state. A single goroutine consumes the
// inbox, which gives every client a consistent event order and keeps at most
// one storage write in flight.
type room struct {
	key   string
	orgID int64
	ref   service.RoomRef

	hub   *Hub
	inbox chan roomMsg
	done  chan struct{}

	mu      sync.RWMutex
	conns   map[string]*Conn
	users   map[int64]*memberEntry
	stopped bool

	// Owned by the consumer goroutine, never touched elsewhere.
	pending  *pendingWrite
	flushing bool
	queued   bool
	draining bool
}

func newRoom(h *Hub, key string, orgID int64, ref service.RoomRef) *room {
	return &room{
		key:   key,
		orgID: orgID,
		ref:   ref,
		hub:   h,
		inbox: make(chan roomMsg, h.roomBuffer),
		done:  make(chan struct{}),
		conns: make(map[string]*Conn),
		users: make(map[int64]*memberEntry),
	}
}

// post hands a message to the consumer loop without blocking. A full inbox
// means the room is hopelessly behind, so the message is dropped with a log
// instead of stalling the caller's read loop. Broadcast traffic only; control
// messages go through send.
func (r *room) post(m roomMsg) {
	select {
	case r.inbox <- m:
	default:
		log.Printf("[Hub] room %s inbox full, dropping %d message", r.key, m.kind)
	}
}

// send delivers a control message, waiting for inbox space. Losing one of
// these wedges the room (a dropped drain hangs shutdown, a dropped
// check-empty leaks the room), so the send blocks until the loop accepts it
// or has already exited.
func (r *room) send(m roomMsg) {
	select {
	case r.inbox <- m:
	case <-r.done:
	}
}

// run is the room's consumer loop. It exits when the room is retired or
// drained during shutdown.
func (r *room) run() {
	defer close(r.done)

	timer := time.NewTimer(r.hub.quietPeriod)
	if !timer.Stop() {
		<-timer.C
	}
	stopTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
	resetTimer := func() {
		stopTimer()
		timer.Reset(r.hub.quietPeriod)
	}

	for {
		select {
		case m := <-r.inbox:
			switch m.kind {
			case msgEdit:
				r.pending = &pendingWrite{snap: m.snap, userID: m.userID}
				resetTimer()
				r.fanOut(m.env, m.exclude)

			case msgBroadcast:
				r.fanOut(m.env, m.exclude)

			case msgFlushDone:
				r.flushing = false
				if m.err != nil {
					log.Printf("[Hub] flush failed for room %s, dropping snapshot: %v", r.key, m.err)
				}
				if r.draining {
					if r.retire(stopTimer, true) {
						return
					}
					continue
				}
				if r.queued && r.pending != nil {
					r.queued = false
					r.startFlush()
					continue
				}
				r.queued = false
				if r.retire(stopTimer, false) {
					return
				}

			case msgInvalidate:
				r.pending = nil
				r.queued = false
				stopTimer()
				if r.retire(stopTimer, false) {
					return
				}

			case msgCheckEmpty:
				if r.retire(stopTimer, false) {
					return
				}

			case msgDrain:
				r.draining = true
				if r.flushing {
					continue // finish after the in-flight write reports back
				}
				if r.retire(stopTimer, true) {
					return
				}
			}

		case <-timer.C:
			if r.pending == nil {
				continue
			}
			if r.flushing {
				r.queued = true
				continue
			}
			r.startFlush()
		}
	}
}

// startFlush hands the pending snapshot to storage on a separate goroutine,
// so the loop keeps relaying events while the write is in flight.
func (r *room) startFlush() {
	write := r.pending
	r.pending = nil
	r.flushing = true

	go func() {
		err := r.hub.persister.SaveSnapshot(r.orgID, r.ref, write.snap, write.userID)
		r.send(roomMsg{kind: msgFlushDone, err: err})
	}()
}

// retire tears the room down when nothing keeps it alive. During a drain the
// remaining snapshot is written synchronously before the loop exits.
func (r *room) retire(stopTimer func(), drain bool) bool {
	if r.flushing {
		return false
	}

	if drain {
		stopTimer()
		if r.pending != nil {
			write := r.pending
			r.pending = nil
			if err := r.hub.persister.SaveSnapshot(r.orgID, r.ref, write.snap, write.userID); err != nil {
				log.Printf("[Hub] drain flush failed for room %s: %v", r.key, err)
			}
		}
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		r.hub.remove(r)
		return true
	}

	if r.pending != nil {
		return false
	}

	r.mu.Lock()
	if len(r.conns) > 0 {
		r.mu.Unlock()
		return false
	}
	r.stopped = true
	r.mu.Unlock()

	stopTimer()
	r.hub.remove(r)
	return true
}

// fanOut delivers an envelope to every connection except the origin.
func (r *room) fanOut(env Envelope, exclude *Conn) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.conns {
		if c == exclude {
			continue
		}
		c.Send(env)
	}
}

// addConn registers a connection and bumps the user's presence count. It
// refuses connections once the room has been retired, so the caller must
// recreate the room and retry.
func (r *room) addConn(c *Conn) (first, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return false, false
	}

	r.conns[c.ID] = c
	entry, exists := r.users[c.UserID]
	if !exists {
		entry = &memberEntry{name: c.UserName}
		r.users[c.UserID] = entry
	}
	entry.refs++
	return entry.refs == 1, true
}

// removeConn drops a connection and reports whether it was the user's last
// one in this room.
func (r *room) removeConn(c *Conn) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[c.ID]; !exists {
		return false
	}
	delete(r.conns, c.ID)

	entry, exists := r.users[c.UserID]
	if !exists {
		return false
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(r.users, c.UserID)
		return true
	}
	return false
}

// members returns the distinct users currently present.
func (r *room) members() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Member, 0, len(r.users))
	for id, entry := range r.users {
		out = append(out, Member{UserID: id, UserName: entry.name})
	}
	return out
}
