package service

import (
	"fmt"
	"strconv"
	"strings"
)

// RoomRef resolved collaboration room target: either a project-scoped board
// ("project-{id}") or a standalone board addressed by its whiteboard key.
type RoomRef struct {
	ProjectID *int64
	BoardKey  string
}

// ParseRoomKey parses the room key clients send on join/edit.
func ParseRoomKey(roomKey string) (RoomRef, error) {
	roomKey = strings.TrimSpace(roomKey)
	if roomKey == "" {
		return RoomRef{}, fmt.Errorf("%w: room key is required", ErrValidation)
	}

	// 1. Project-scoped room: "project-{id}"
	if strings.HasPrefix(roomKey, "project-") {
		idStr := strings.TrimPrefix(roomKey, "project-")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			return RoomRef{}, fmt.Errorf("%w: malformed project room key %q", ErrValidation, roomKey)
		}
		return RoomRef{ProjectID: &id}, nil
	}

	// 2. Anything else is a standalone board key
	return RoomRef{BoardKey: roomKey}, nil
}

// Key canonical room key for registry and presence maps.
func (r RoomRef) Key() string {
	if r.ProjectID != nil {
		return fmt.Sprintf("project-%d", *r.ProjectID)
	}
	return r.BoardKey
}
