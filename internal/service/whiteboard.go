package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"collab-backend/internal/model"
	"collab-backend/internal/store"
)

// Snapshot full replacement state for a whiteboard. Payloads are opaque JSON;
// the engine never merges them.
type Snapshot struct {
	Elements      string
	ViewState     string
	EmbeddedFiles string
	Title         *string
}

// WhiteboardService owns document resolution, tenant guarding, and
// persistence semantics for whiteboards.
type WhiteboardService struct {
	store    store.DocumentStore
	projects ProjectDirectory
}

// NewWhiteboardService creates a WhiteboardService
func NewWhiteboardService(st store.DocumentStore, projects ProjectDirectory) *WhiteboardService {
	return &WhiteboardService{store: st, projects: projects}
}

// Bootstrap returns the persisted document for a room, or a default empty
// document when none exists yet. First-open clients must never see an error.
func (s *WhiteboardService) Bootstrap(orgID int64, ref RoomRef, userID int64) (*model.WhiteboardDocument, error) {
	if ref.ProjectID != nil {
		// fails closed: a project outside the caller's organization is not-found
		if _, err := s.projects.GetProjectByID(*ref.ProjectID, orgID); err != nil {
			return nil, err
		}
	}

	doc, err := s.locate(orgID, ref, userID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Nothing persisted yet: serve a baseline without writing anything.
	return &model.WhiteboardDocument{
		WhiteboardKey:  ref.BoardKey,
		Title:          model.DefaultBoardTitle,
		Elements:       model.EmptyElements,
		ViewState:      model.EmptyViewState,
		EmbeddedFiles:  model.EmptyEmbeddedFiles,
		ProjectID:      ref.ProjectID,
		OwnerUserID:    userID,
		OrganizationID: orgID,
	}, nil
}

// SaveSnapshot persists a full whiteboard state, creating the document lazily
// on the first save for a room. The document's organization is always derived
// from the linked project, never taken from the client.
func (s *WhiteboardService) SaveSnapshot(orgID int64, ref RoomRef, snap Snapshot, userID int64) error {
	var projectID *int64
	if ref.ProjectID != nil {
		project, err := s.projects.GetProjectByID(*ref.ProjectID, orgID)
		if err != nil {
			return err
		}
		orgID = project.OrganizationID
		projectID = &project.ID
	}

	doc, err := s.locate(orgID, ref, userID)
	switch {
	case err == nil:
		if doc.OrganizationID != orgID {
			// cannot happen with scoped lookups; refuse to reparent regardless
			return fmt.Errorf("%w: document belongs to another organization", ErrForbidden)
		}
		doc.Elements = snap.Elements
		doc.ViewState = snap.ViewState
		doc.EmbeddedFiles = snap.EmbeddedFiles
		if title := titleOf(snap); title != "" {
			doc.Title = title
		}
		doc.LastModifiedByUserID = userID
		return s.store.Save(doc)

	case errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrNotFound):
		key := ref.BoardKey
		if key == "" {
			key = uuid.New().String()
		}
		title := titleOf(snap)
		if title == "" {
			title = model.DefaultBoardTitle
		}
		return s.store.Insert(&model.WhiteboardDocument{
			WhiteboardKey:        key,
			Title:                title,
			Elements:             snap.Elements,
			ViewState:            snap.ViewState,
			EmbeddedFiles:        snap.EmbeddedFiles,
			ProjectID:            projectID,
			OwnerUserID:          userID,
			LastModifiedByUserID: userID,
			OrganizationID:       orgID,
		})

	default:
		return err
	}
}

// UpdateTitle writes the title immediately, bypassing the coalescer. A title
// edit can land before the first flush, in which case the row is created
// lazily around it.
func (s *WhiteboardService) UpdateTitle(orgID int64, whiteboardKey, title string, userID int64) error {
	title = strings.TrimSpace(title)
	if whiteboardKey == "" || title == "" || userID == 0 {
		return fmt.Errorf("%w: whiteboard key, title and user id are required", ErrValidation)
	}

	ok, err := s.store.SetTitle(orgID, whiteboardKey, title, userID)
	if err != nil {
		return err
	}
	if !ok {
		return s.store.Insert(&model.WhiteboardDocument{
			WhiteboardKey:        whiteboardKey,
			Title:                title,
			Elements:             model.EmptyElements,
			ViewState:            model.EmptyViewState,
			EmbeddedFiles:        model.EmptyEmbeddedFiles,
			OwnerUserID:          userID,
			LastModifiedByUserID: userID,
			OrganizationID:       orgID,
		})
	}
	return nil
}

// UpdateTitleInRoom renames the document behind a live room, creating it when
// the rename lands before the first snapshot flush.
func (s *WhiteboardService) UpdateTitleInRoom(orgID int64, ref RoomRef, title string, userID int64) error {
	title = strings.TrimSpace(title)
	if title == "" || userID == 0 {
		return fmt.Errorf("%w: title and user id are required", ErrValidation)
	}

	var projectID *int64
	if ref.ProjectID != nil {
		project, err := s.projects.GetProjectByID(*ref.ProjectID, orgID)
		if err != nil {
			return err
		}
		orgID = project.OrganizationID
		projectID = &project.ID
	}

	doc, err := s.locate(orgID, ref, userID)
	switch {
	case err == nil:
		_, err = s.store.SetTitle(orgID, doc.WhiteboardKey, title, userID)
		return err

	case errors.Is(err, ErrNotFound):
		key := ref.BoardKey
		if key == "" {
			key = uuid.New().String()
		}
		return s.store.Insert(&model.WhiteboardDocument{
			WhiteboardKey:        key,
			Title:                title,
			Elements:             model.EmptyElements,
			ViewState:            model.EmptyViewState,
			EmbeddedFiles:        model.EmptyEmbeddedFiles,
			ProjectID:            projectID,
			OwnerUserID:          userID,
			LastModifiedByUserID: userID,
			OrganizationID:       orgID,
		})

	default:
		return err
	}
}

// UpdateThumbnailInRoom stores the preview image for a live room's document.
// Unlike titles there is nothing worth creating a row for.
func (s *WhiteboardService) UpdateThumbnailInRoom(orgID int64, ref RoomRef, thumbnail string, userID int64) error {
	if thumbnail == "" {
		return fmt.Errorf("%w: thumbnail is required", ErrValidation)
	}

	if ref.ProjectID != nil {
		project, err := s.projects.GetProjectByID(*ref.ProjectID, orgID)
		if err != nil {
			return err
		}
		orgID = project.OrganizationID
	}

	doc, err := s.locate(orgID, ref, userID)
	if err != nil {
		return err
	}

	ok, err := s.store.SetThumbnail(orgID, doc.WhiteboardKey, thumbnail)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: whiteboard for room %q", ErrNotFound, ref.Key())
	}
	return nil
}

// UpdateThumbnail writes the preview image immediately, bypassing the
// coalescer. A thumbnail only makes sense for a board that has been saved.
func (s *WhiteboardService) UpdateThumbnail(orgID int64, whiteboardKey, thumbnail string) error {
	if whiteboardKey == "" || thumbnail == "" {
		return fmt.Errorf("%w: whiteboard key and thumbnail are required", ErrValidation)
	}

	ok, err := s.store.SetThumbnail(orgID, whiteboardKey, thumbnail)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: whiteboard %q", ErrNotFound, whiteboardKey)
	}
	return nil
}

// Delete removes a document and returns the room reference it served, so the
// caller can invalidate any pending in-memory write for that room.
func (s *WhiteboardService) Delete(orgID, id int64) (RoomRef, error) {
	doc, err := s.store.FindByID(orgID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RoomRef{}, fmt.Errorf("%w: whiteboard %d", ErrNotFound, id)
		}
		return RoomRef{}, err
	}

	ok, err := s.store.Delete(orgID, id)
	if err != nil {
		return RoomRef{}, err
	}
	if !ok {
		return RoomRef{}, fmt.Errorf("%w: whiteboard %d", ErrNotFound, id)
	}

	ref := RoomRef{BoardKey: doc.WhiteboardKey}
	if doc.ProjectID != nil {
		ref = RoomRef{ProjectID: doc.ProjectID}
	}
	return ref, nil
}

// locate resolves the persisted document for a room: exact whiteboard key
// first, then project link, then the caller's standalone board.
func (s *WhiteboardService) locate(orgID int64, ref RoomRef, userID int64) (*model.WhiteboardDocument, error) {
	var (
		doc *model.WhiteboardDocument
		err error
	)
	switch {
	case ref.BoardKey != "":
		doc, err = s.store.FindByKey(orgID, ref.BoardKey)
	case ref.ProjectID != nil:
		doc, err = s.store.FindByProject(orgID, *ref.ProjectID)
	default:
		doc, err = s.store.FindStandalone(orgID, userID)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: whiteboard for room %q", ErrNotFound, ref.Key())
		}
		return nil, err
	}
	return doc, nil
}

func titleOf(snap Snapshot) string {
	if snap.Title == nil {
		return ""
	}
	return strings.TrimSpace(*snap.Title)
}
