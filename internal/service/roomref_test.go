package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoomKey_ProjectRoom(t *testing.T) {
	ref, err := ParseRoomKey("project-42")
	require.NoError(t, err)
	require.NotNil(t, ref.ProjectID)
	require.Equal(t, int64(42), *ref.ProjectID)
	require.Empty(t, ref.BoardKey)
	require.Equal(t, "project-42", ref.Key())
}

func TestParseRoomKey_BoardKey(t *testing.T) {
	ref, err := ParseRoomKey("a3f8c2d1-board")
	require.NoError(t, err)
	require.Nil(t, ref.ProjectID)
	require.Equal(t, "a3f8c2d1-board", ref.BoardKey)
	require.Equal(t, "a3f8c2d1-board", ref.Key())
}

func TestParseRoomKey_TrimsWhitespace(t *testing.T) {
	ref, err := ParseRoomKey("  project-7  ")
	require.NoError(t, err)
	require.NotNil(t, ref.ProjectID)
	require.Equal(t, int64(7), *ref.ProjectID)
}

func TestParseRoomKey_Invalid(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"project-",
		"project-abc",
		"project-0",
		"project--3",
	}
	for _, room := range cases {
		_, err := ParseRoomKey(room)
		require.ErrorIs(t, err, ErrValidation, "room %q", room)
	}
}
