package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"collab-backend/internal/model"
)

// GormStore DocumentStore backed by Postgres through GORM
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore on an established connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindByID(orgID, id int64) (*model.WhiteboardDocument, error) {
	var doc model.WhiteboardDocument
	err := s.db.Where("organization_id = ? AND id = ?", orgID, id).First(&doc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (s *GormStore) FindByKey(orgID int64, whiteboardKey string) (*model.WhiteboardDocument, error) {
	var doc model.WhiteboardDocument
	err := s.db.Where("organization_id = ? AND whiteboard_key = ?", orgID, whiteboardKey).First(&doc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (s *GormStore) FindByProject(orgID, projectID int64) (*model.WhiteboardDocument, error) {
	var doc model.WhiteboardDocument
	err := s.db.Where("organization_id = ? AND project_id = ?", orgID, projectID).First(&doc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (s *GormStore) FindStandalone(orgID, ownerUserID int64) (*model.WhiteboardDocument, error) {
	var doc model.WhiteboardDocument
	err := s.db.Where("organization_id = ? AND project_id IS NULL AND owner_user_id = ?", orgID, ownerUserID).
		Order("id ASC").
		First(&doc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (s *GormStore) Insert(doc *model.WhiteboardDocument) error {
	if err := s.db.Create(doc).Error; err != nil {
		return fmt.Errorf("insert whiteboard document: %w", err)
	}
	return nil
}

func (s *GormStore) Save(doc *model.WhiteboardDocument) error {
	if err := s.db.Save(doc).Error; err != nil {
		return fmt.Errorf("save whiteboard document: %w", err)
	}
	return nil
}

func (s *GormStore) SetTitle(orgID int64, whiteboardKey, title string, userID int64) (bool, error) {
	res := s.db.Model(&model.WhiteboardDocument{}).
		Where("organization_id = ? AND whiteboard_key = ?", orgID, whiteboardKey).
		Updates(map[string]interface{}{
			"title":                    title,
			"last_modified_by_user_id": userID,
			"updated_at":               time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("update whiteboard title: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) SetThumbnail(orgID int64, whiteboardKey, thumbnail string) (bool, error) {
	res := s.db.Model(&model.WhiteboardDocument{}).
		Where("organization_id = ? AND whiteboard_key = ?", orgID, whiteboardKey).
		Updates(map[string]interface{}{
			"thumbnail":  thumbnail,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("update whiteboard thumbnail: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) Delete(orgID, id int64) (bool, error) {
	res := s.db.Where("organization_id = ? AND id = ?", orgID, id).
		Delete(&model.WhiteboardDocument{})
	if res.Error != nil {
		return false, fmt.Errorf("delete whiteboard document: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("query whiteboard document: %w", err)
}
