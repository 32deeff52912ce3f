package store

import (
	"errors"

	"collab-backend/internal/model"
)

// ErrNotFound a document matching the scoped lookup does not exist. A row in
// another organization is reported identically.
var ErrNotFound = errors.New("whiteboard document not found")

// DocumentStore durable storage primitives for whiteboard documents. Every
// lookup and write carries the caller's organization id; implementations must
// never match rows outside that organization.
type DocumentStore interface {
	FindByID(orgID, id int64) (*model.WhiteboardDocument, error)
	FindByKey(orgID int64, whiteboardKey string) (*model.WhiteboardDocument, error)
	FindByProject(orgID, projectID int64) (*model.WhiteboardDocument, error)
	// FindStandalone locates a user's project-less board.
	FindStandalone(orgID, ownerUserID int64) (*model.WhiteboardDocument, error)

	Insert(doc *model.WhiteboardDocument) error
	Save(doc *model.WhiteboardDocument) error

	// Narrow single-field writes, independent of full-snapshot saves.
	// The bool result reports whether a row was matched.
	SetTitle(orgID int64, whiteboardKey, title string, userID int64) (bool, error)
	SetThumbnail(orgID int64, whiteboardKey, thumbnail string) (bool, error)

	// Delete hard-deletes a document; a miss (including cross-tenant) is
	// reported as false, not an error.
	Delete(orgID, id int64) (bool, error)
}
