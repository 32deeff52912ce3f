package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"collab-backend/internal/model"
)

// UserDirectory lookup contract for platform accounts
type UserDirectory interface {
	GetUserByID(id int64) (*model.User, error)
}

// ProjectDirectory tenant-scoped lookup contract for projects. A project in
// another organization must be reported as ErrNotFound.
type ProjectDirectory interface {
	GetProjectByID(projectID, orgID int64) (*model.Project, error)
}

// Directory GORM-backed implementation of the lookup contracts
type Directory struct {
	db *gorm.DB
}

// NewDirectory creates a Directory
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) GetUserByID(id int64) (*model.User, error) {
	var user model.User
	if err := d.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("lookup user %d: %w", id, err)
	}
	return &user, nil
}

func (d *Directory) GetProjectByID(projectID, orgID int64) (*model.Project, error) {
	var project model.Project
	err := d.db.Where("id = ? AND organization_id = ?", projectID, orgID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// cross-tenant and genuinely-absent projects are indistinguishable
			return nil, fmt.Errorf("%w: project %d", ErrNotFound, projectID)
		}
		return nil, fmt.Errorf("lookup project %d: %w", projectID, err)
	}
	return &project, nil
}

// IsOrganizationMember reports active membership; used by the gateway to
// re-validate the organization a connection claims.
func (d *Directory) IsOrganizationMember(orgID, userID int64) bool {
	var count int64
	d.db.Model(&model.OrganizationMember{}).
		Where("organization_id = ? AND user_id = ? AND status = ?", orgID, userID, model.MemberStatusActive.String()).
		Count(&count)
	return count > 0
}
