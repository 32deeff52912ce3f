package presence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	m := NewManagerFromClient(client)
	t.Cleanup(func() { m.Close() })
	return m, mr
}

func TestMirror_JoinAndMembers(t *testing.T) {
	m, _ := newTestManager(t)

	m.Join("1/project-10", 100, "alice")
	m.Join("1/project-10", 200, "bob")

	members, err := m.Members("1/project-10")
	require.NoError(t, err)
	require.Len(t, members, 2)

	names := map[int64]string{}
	for _, member := range members {
		names[member.UserID] = member.UserName
		require.NotZero(t, member.JoinedAt)
	}
	require.Equal(t, "alice", names[100])
	require.Equal(t, "bob", names[200])
}

func TestMirror_Leave(t *testing.T) {
	m, _ := newTestManager(t)

	m.Join("1/board-x", 100, "alice")
	m.Join("1/board-x", 200, "bob")
	m.Leave("1/board-x", 100)

	members, err := m.Members("1/board-x")
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, int64(200), members[0].UserID)
}

func TestMirror_RoomsAreIsolated(t *testing.T) {
	m, _ := newTestManager(t)

	m.Join("1/board-a", 100, "alice")
	m.Join("2/board-a", 100, "alice")
	m.Leave("1/board-a", 100)

	members, err := m.Members("2/board-a")
	require.NoError(t, err)
	require.Len(t, members, 1)
}

func TestMirror_RoomExpires(t *testing.T) {
	m, mr := newTestManager(t)

	m.Join("1/board-ttl", 100, "alice")
	require.True(t, mr.Exists("presence:room:1/board-ttl"))

	mr.FastForward(roomTTL + 1)
	require.False(t, mr.Exists("presence:room:1/board-ttl"))
}

func TestMirror_Health(t *testing.T) {
	m, mr := newTestManager(t)

	require.NoError(t, m.Health(context.Background()))

	mr.Close()
	require.Error(t, m.Health(context.Background()))
}
