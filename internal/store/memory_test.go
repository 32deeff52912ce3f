package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"collab-backend/internal/model"
)

func seedDoc(t *testing.T, s *MemoryStore, orgID int64, key string, projectID *int64, ownerID int64) *model.WhiteboardDocument {
	t.Helper()
	doc := &model.WhiteboardDocument{
		WhiteboardKey:  key,
		Title:          "Board",
		Elements:       "[]",
		ViewState:      "{}",
		EmbeddedFiles:  "{}",
		ProjectID:      projectID,
		OwnerUserID:    ownerID,
		OrganizationID: orgID,
	}
	require.NoError(t, s.Insert(doc))
	return doc
}

func TestMemoryStore_OrganizationScoping(t *testing.T) {
	s := NewMemoryStore()
	doc := seedDoc(t, s, 1, "key-1", nil, 100)

	_, err := s.FindByID(2, doc.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindByKey(2, "key-1")
	require.ErrorIs(t, err, ErrNotFound)

	found, err := s.FindByID(1, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "key-1", found.WhiteboardKey)
}

func TestMemoryStore_FindByProject(t *testing.T) {
	s := NewMemoryStore()
	pid := int64(5)
	seedDoc(t, s, 1, "proj-board", &pid, 100)

	found, err := s.FindByProject(1, 5)
	require.NoError(t, err)
	require.Equal(t, "proj-board", found.WhiteboardKey)

	_, err = s.FindByProject(2, 5)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindByProject(1, 6)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_FindStandaloneOldestWins(t *testing.T) {
	s := NewMemoryStore()
	first := seedDoc(t, s, 1, "first", nil, 100)
	seedDoc(t, s, 1, "second", nil, 100)

	found, err := s.FindStandalone(1, 100)
	require.NoError(t, err)
	require.Equal(t, first.ID, found.ID)

	// Project-linked boards never count as standalone.
	pid := int64(9)
	seedDoc(t, s, 1, "linked", &pid, 101)
	_, err = s.FindStandalone(1, 101)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SetTitleAndThumbnail(t *testing.T) {
	s := NewMemoryStore()
	seedDoc(t, s, 1, "key-1", nil, 100)

	ok, err := s.SetTitle(1, "key-1", "Renamed", 101)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SetTitle(2, "key-1", "Hijack", 200)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.SetThumbnail(1, "key-1", "thumb")
	require.NoError(t, err)
	require.True(t, ok)

	doc, err := s.FindByKey(1, "key-1")
	require.NoError(t, err)
	require.Equal(t, "Renamed", doc.Title)
	require.Equal(t, int64(101), doc.LastModifiedByUserID)
	require.NotNil(t, doc.Thumbnail)
	require.Equal(t, "thumb", *doc.Thumbnail)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	doc := seedDoc(t, s, 1, "key-1", nil, 100)

	ok, err := s.Delete(2, doc.ID)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, s.Count())

	ok, err = s.Delete(1, doc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, s.Count())
}

func TestMemoryStore_CloneIsolation(t *testing.T) {
	s := NewMemoryStore()
	doc := seedDoc(t, s, 1, "key-1", nil, 100)

	found, err := s.FindByID(1, doc.ID)
	require.NoError(t, err)
	found.Elements = `[{"mutated":true}]`

	again, err := s.FindByID(1, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "[]", again.Elements)
}
