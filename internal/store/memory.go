package store

import (
	"sync"
	"time"

	"collab-backend/internal/model"
)

// MemoryStore in-process DocumentStore. Backs tests and DB-less development
// runs; applies the same organization scoping rules as the Postgres store.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[int64]*model.WhiteboardDocument
	nextID int64
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[int64]*model.WhiteboardDocument),
		nextID: 1,
	}
}

func (s *MemoryStore) FindByID(orgID, id int64) (*model.WhiteboardDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok || doc.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (s *MemoryStore) FindByKey(orgID int64, whiteboardKey string) (*model.WhiteboardDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.docs {
		if doc.OrganizationID == orgID && doc.WhiteboardKey == whiteboardKey {
			return clone(doc), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindByProject(orgID, projectID int64) (*model.WhiteboardDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.docs {
		if doc.OrganizationID == orgID && doc.ProjectID != nil && *doc.ProjectID == projectID {
			return clone(doc), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindStandalone(orgID, ownerUserID int64) (*model.WhiteboardDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *model.WhiteboardDocument
	for _, doc := range s.docs {
		if doc.OrganizationID != orgID || doc.ProjectID != nil || doc.OwnerUserID != ownerUserID {
			continue
		}
		// oldest row wins, matching the Postgres ORDER BY id ASC
		if found == nil || doc.ID < found.ID {
			found = doc
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return clone(found), nil
}

func (s *MemoryStore) Insert(doc *model.WhiteboardDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.ID = s.nextID
	s.nextID++
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	s.docs[doc.ID] = clone(doc)
	return nil
}

func (s *MemoryStore) Save(doc *model.WhiteboardDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.UpdatedAt = time.Now()
	s.docs[doc.ID] = clone(doc)
	return nil
}

func (s *MemoryStore) SetTitle(orgID int64, whiteboardKey, title string, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.docs {
		if doc.OrganizationID == orgID && doc.WhiteboardKey == whiteboardKey {
			doc.Title = title
			doc.LastModifiedByUserID = userID
			doc.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) SetThumbnail(orgID int64, whiteboardKey, thumbnail string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.docs {
		if doc.OrganizationID == orgID && doc.WhiteboardKey == whiteboardKey {
			doc.Thumbnail = &thumbnail
			doc.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Delete(orgID, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok || doc.OrganizationID != orgID {
		return false, nil
	}
	delete(s.docs, id)
	return true, nil
}

// Count reports the number of stored documents (test helper).
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.docs)
}

func clone(doc *model.WhiteboardDocument) *model.WhiteboardDocument {
	c := *doc
	if doc.Thumbnail != nil {
		t := *doc.Thumbnail
		c.Thumbnail = &t
	}
	if doc.ProjectID != nil {
		p := *doc.ProjectID
		c.ProjectID = &p
	}
	return &c
}
