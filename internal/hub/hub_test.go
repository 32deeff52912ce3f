package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collab-backend/internal/service"
)

// fakeSocket records every frame written to a connection.
type fakeSocket struct {
	mu     sync.Mutex
	frames []Envelope
}

func (f *fakeSocket) WriteMessage(_ int, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	f.mu.Lock()
	f.frames = append(f.frames, env)
	f.mu.Unlock()
	return nil
}

func (f *fakeSocket) count(eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, env := range f.frames {
		if env.Type == eventType {
			n++
		}
	}
	return n
}

func (f *fakeSocket) lastPayload(t *testing.T, eventType string) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.frames) - 1; i >= 0; i-- {
		if f.frames[i].Type != eventType {
			continue
		}
		payload, ok := f.frames[i].Payload.(map[string]any)
		require.True(t, ok, "payload of %s is not an object", eventType)
		return payload
	}
	t.Fatalf("no %s frame recorded", eventType)
	return nil
}

// memberIDs extracts the user ids from a presence payload's activeUsers list.
func memberIDs(t *testing.T, payload map[string]any) []any {
	t.Helper()
	list, ok := payload["activeUsers"].([]any)
	require.True(t, ok, "activeUsers missing or not a list")
	ids := make([]any, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.(map[string]any)["userId"])
	}
	return ids
}

// recordingPersister captures flushed snapshots. An optional gate blocks the
// write until released, and in-flight writes are counted to catch overlap.
type recordingPersister struct {
	mu       sync.Mutex
	saves    []service.Snapshot
	refs     []service.RoomRef
	users    []int64
	failErr  error
	fails    int
	gate     chan struct{}
	started  chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (r *recordingPersister) SaveSnapshot(orgID int64, ref service.RoomRef, snap service.Snapshot, userID int64) error {
	cur := r.inFlight.Add(1)
	if max := r.maxSeen.Load(); cur > max {
		r.maxSeen.Store(cur)
	}
	defer r.inFlight.Add(-1)

	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.gate != nil {
		<-r.gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		r.fails++
		return r.failErr
	}
	r.saves = append(r.saves, snap)
	r.refs = append(r.refs, ref)
	r.users = append(r.users, userID)
	return nil
}

func (r *recordingPersister) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *recordingPersister) failCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fails
}

func (r *recordingPersister) setFail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failErr = err
}

func (r *recordingPersister) elements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.saves))
	for i, s := range r.saves {
		out[i] = s.Elements
	}
	return out
}

func joinConn(h *Hub, ref service.RoomRef, userID int64, name string) (*Conn, *fakeSocket) {
	sock := &fakeSocket{}
	conn := NewConn(sock, userID, name, 1)
	h.Join(conn, ref)
	return conn, sock
}

func editOf(elements string) EditPayload {
	return EditPayload{
		Elements:      json.RawMessage(elements),
		ViewState:     json.RawMessage(`{"zoom":1}`),
		EmbeddedFiles: json.RawMessage(`{}`),
	}
}

func boardRoom(key string) service.RoomRef {
	return service.RoomRef{BoardKey: key}
}

func TestPublishEdit_ExcludesOrigin(t *testing.T) {
	store := &recordingPersister{}
	h := New(store, nil, time.Hour, 64)

	a, aSock := joinConn(h, boardRoom("room-x"), 100, "alice")
	_, bSock := joinConn(h, boardRoom("room-x"), 200, "bob")

	h.PublishEdit(a, editOf(`[{"id":"r1"}]`))

	require.Eventually(t, func() bool {
		return bSock.count(EventEdit) == 1
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, 0, aSock.count(EventEdit))

	payload := bSock.lastPayload(t, EventEdit)
	require.Equal(t, float64(100), payload["userId"])
}

func TestCursorRelay_NeverPersisted(t *testing.T) {
	store := &recordingPersister{}
	h := New(store, nil, 30*time.Millisecond, 64)

	a, _ := joinConn(h, boardRoom("room-c"), 100, "alice")
	_, bSock := joinConn(h, boardRoom("room-c"), 200, "bob")

	h.PublishCursor(a, []byte(`{"x":10,"y":20}`))

	require.Eventually(t, func() bool {
		return bSock.count(EventCursorUpdate) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 0, store.count())
}

func TestCoalescing_OneWriteWithLastState(t *testing.T) {
	store := &recordingPersister{}
	h := New(store, nil, 30*time.Millisecond, 64)

	a, _ := joinConn(h, boardRoom("room-y"), 100, "alice")

	for i := 0; i < 5; i++ {
		h.PublishEdit(a, editOf(`[{"rev":`+string(rune('0'+i))+`}]`))
	}

	require.Eventually(t, func() bool {
		return store.count() == 1
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, []string{`[{"rev":4}]`}, store.elements())

	// The quiet period elapsed once; no further writes follow.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, store.count())
}

func TestFlushFailure_DroppedWithoutRetry(t *testing.T) {
	store := &recordingPersister{}
	store.setFail(errors.New("storage offline"))
	h := New(store, nil, 20*time.Millisecond, 64)

	a, _ := joinConn(h, boardRoom("room-f"), 100, "alice")

	h.PublishEdit(a, editOf(`[{"lost":true}]`))

	require.Eventually(t, func() bool {
		return store.failCount() == 1
	}, time.Second, 5*time.Millisecond)

	// The failed snapshot is dropped: no retry fires on its own.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, store.failCount())
	require.Equal(t, 0, store.count())

	// The room keeps accepting edits; the next flush carries only new state.
	store.setFail(nil)
	h.PublishEdit(a, editOf(`[{"fresh":true}]`))

	require.Eventually(t, func() bool {
		return store.count() == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{`[{"fresh":true}]`}, store.elements())
}

func TestQuietPeriod_RestartsOnEveryEdit(t *testing.T) {
	store := &recordingPersister{}
	h := New(store, nil, 120*time.Millisecond, 64)

	a, _ := joinConn(h, boardRoom("room-q"), 100, "alice")

	for i := 0; i < 3; i++ {
		h.PublishEdit(a, editOf(`[1]`))
		time.Sleep(40 * time.Millisecond)
	}

	// Edits kept arriving inside the quiet period, so nothing flushed yet.
	require.Equal(t, 0, store.count())

	require.Eventually(t, func() bool {
		return store.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestFlush_SingleInFlight(t *testing.T) {
	store := &recordingPersister{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 4),
	}
	h := New(store, nil, 20*time.Millisecond, 64)

	a, _ := joinConn(h, boardRoom("room-z"), 100, "alice")

	h.PublishEdit(a, editOf(`[1]`))
	<-store.started // first flush is now blocked in storage

	// New edits land while the write is in flight; their quiet period expires
	// but the follow-up flush must wait for the first to finish.
	h.PublishEdit(a, editOf(`[2]`))
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(1), store.inFlight.Load())

	store.gate <- struct{}{} // release first write
	<-store.started          // second flush started
	store.gate <- struct{}{}

	require.Eventually(t, func() bool {
		return store.count() == 2
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, []string{`[1]`, `[2]`}, store.elements())
	require.Equal(t, int32(1), store.maxSeen.Load())
}

func TestPresence_RefCountedPerUser(t *testing.T) {
	store := &recordingPersister{}
	h := New(store, nil, time.Hour, 64)

	_, bSock := joinConn(h, boardRoom("room-p"), 200, "bob")

	// Two tabs of the same user: one join notification, one leave.
	a1, _ := joinConn(h, boardRoom("room-p"), 100, "alice")
	a2, _ := joinConn(h, boardRoom("room-p"), 100, "alice")

	require.Eventually(t, func() bool {
		return bSock.count(EventUserJoined) == 1
	}, time.Second, 5*time.Millisecond)

	// The notification carries the full member list alongside who joined.
	joined := bSock.lastPayload(t, EventUserJoined)
	require.Equal(t, float64(100), joined["userId"])
	require.ElementsMatch(t, []any{float64(100), float64(200)}, memberIDs(t, joined))

	require.Len(t, h.ActiveUsers(1, boardRoom("room-p")), 2)

	h.Leave(a1)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, bSock.count(EventUserLeft))

	h.Leave(a2)
	require.Eventually(t, func() bool {
		return bSock.count(EventUserLeft) == 1
	}, time.Second, 5*time.Millisecond)

	left := bSock.lastPayload(t, EventUserLeft)
	require.Equal(t, float64(100), left["userId"])
	require.Equal(t, []any{float64(200)}, memberIDs(t, left))

	require.Len(t, h.ActiveUsers(1, boardRoom("room-p")), 1)
}

func TestRoom_RetiresAfterLastLeaveAndFlush(t *testing.T) {
	store := &recordingPersister{}
	h := New(store, nil, 20*time.Millisecond, 64)

	a, _ := joinConn(h, boardRoom("room-r"), 100, "alice")
	require.Equal(t, 1, h.RoomCount())

	h.PublishEdit(a, editOf(`[1]`))
	h.Leave(a)

	// Leaving never drops the buffered state; it flushes on schedule first.
	require.Eventually(t, func() bool {
		return store.count() == 1 && h.RoomCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestInvalidate_DiscardsPendingWrite(t *testing.T) {
	store := &recordingPersister{}
	h := New(store, nil, 50*time.Millisecond, 64)

	a, _ := joinConn(h, boardRoom("room-i"), 100, "alice")
	h.PublishEdit(a, editOf(`[1]`))
	h.Invalidate(1, boardRoom("room-i"))

	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 0, store.count())

	// The room itself stays alive for its remaining member.
	require.Equal(t, 1, h.RoomCount())
}

func TestShutdown_FlushesPendingImmediately(t *testing.T) {
	store := &recordingPersister{}
	h := New(store, nil, time.Hour, 64)

	a, _ := joinConn(h, boardRoom("room-s"), 100, "alice")
	h.PublishEdit(a, editOf(`[{"final":true}]`))

	h.Shutdown()

	require.Equal(t, 1, store.count())
	require.Equal(t, []string{`[{"final":true}]`}, store.elements())
	require.Equal(t, 0, h.RoomCount())
}

// stalledSocket blocks every write until released, simulating a peer that
// stopped reading.
type stalledSocket struct {
	entered chan struct{}
	release chan struct{}
}

func (s *stalledSocket) WriteMessage(int, []byte) error {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return nil
}

func TestShutdown_DrainsSaturatedRoom(t *testing.T) {
	store := &recordingPersister{}
	h := New(store, nil, time.Hour, 1)

	a, _ := joinConn(h, boardRoom("room-sat"), 100, "alice")

	stalled := &stalledSocket{entered: make(chan struct{}, 1), release: make(chan struct{})}
	b := NewConn(stalled, 200, "bob", 1)
	h.Join(b, boardRoom("room-sat"))

	h.PublishEdit(a, editOf(`[1]`))
	<-stalled.entered // the loop is wedged writing to the stalled peer

	h.PublishEdit(a, editOf(`[2]`)) // fills the single-slot inbox
	h.PublishEdit(a, editOf(`[3]`)) // dropped, the room is behind

	done := make(chan struct{})
	go func() {
		h.Shutdown()
		close(done)
	}()

	// The drain must wait for inbox space rather than being dropped.
	select {
	case <-done:
		t.Fatal("shutdown returned before the room drained")
	case <-time.After(50 * time.Millisecond):
	}

	close(stalled.release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown hung after the peer recovered")
	}

	require.Equal(t, []string{`[2]`}, store.elements())
	require.Equal(t, 0, h.RoomCount())
}

func TestJoin_AfterRetireCreatesFreshRoom(t *testing.T) {
	store := &recordingPersister{}
	h := New(store, nil, 10*time.Millisecond, 64)

	a, _ := joinConn(h, boardRoom("room-f"), 100, "alice")
	h.Leave(a)

	require.Eventually(t, func() bool {
		return h.RoomCount() == 0
	}, time.Second, 5*time.Millisecond)

	_, _ = joinConn(h, boardRoom("room-f"), 100, "alice")
	require.Equal(t, 1, h.RoomCount())
	require.Len(t, h.ActiveUsers(1, boardRoom("room-f")), 1)
}
