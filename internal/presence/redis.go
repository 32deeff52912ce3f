package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// roomTTL keeps stale rooms from lingering after a crash. Membership is
	// re-asserted on every join, so a live room never expires.
	roomTTL = 30 * time.Minute

	opTimeout = 2 * time.Second
)

// MemberData is what the mirror stores per user in a room set.
type MemberData struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	JoinedAt int64  `json:"joined_at"`
}

// Manager mirrors room membership into Redis so operators and sibling
// services can observe who is on which board. The hub is the source of truth;
// every call here is best effort.
type Manager struct {
	client *redis.Client
}

// NewManager connects to Redis
func NewManager(addr string, password string, db int) *Manager {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Manager{client: rdb}
}

// NewManagerFromClient wraps an existing client, mainly for tests.
func NewManagerFromClient(client *redis.Client) *Manager {
	return &Manager{client: client}
}

func (m *Manager) roomSetKey(roomKey string) string {
	return fmt.Sprintf("presence:room:%s", roomKey)
}

// Join records a user as present in a room.
func (m *Manager) Join(roomKey string, userID int64, userName string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := json.Marshal(MemberData{
		UserID:   userID,
		UserName: userName,
		JoinedAt: time.Now().Unix(),
	})
	if err != nil {
		log.Printf("[Presence] marshal failed for user %d: %v", userID, err)
		return
	}

	key := m.roomSetKey(roomKey)
	if err := m.client.HSet(ctx, key, fmt.Sprintf("%d", userID), data).Err(); err != nil {
		log.Printf("[Presence] join mirror failed for room %s: %v", roomKey, err)
		return
	}
	if err := m.client.Expire(ctx, key, roomTTL).Err(); err != nil {
		log.Printf("[Presence] TTL refresh failed for room %s: %v", roomKey, err)
	}
}

// Leave drops a user from a room's member set.
func (m *Manager) Leave(roomKey string, userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := m.client.HDel(ctx, m.roomSetKey(roomKey), fmt.Sprintf("%d", userID)).Err(); err != nil {
		log.Printf("[Presence] leave mirror failed for room %s: %v", roomKey, err)
	}
}

// Members lists the mirrored membership of a room.
func (m *Manager) Members(roomKey string) ([]MemberData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	values, err := m.client.HGetAll(ctx, m.roomSetKey(roomKey)).Result()
	if err != nil {
		return nil, err
	}

	members := make([]MemberData, 0, len(values))
	for _, raw := range values {
		var data MemberData
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			continue
		}
		members = append(members, data)
	}
	return members, nil
}

// Health pings Redis for the health endpoint.
func (m *Manager) Health(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (m *Manager) Close() error {
	return m.client.Close()
}
