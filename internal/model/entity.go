package model

import (
	"time"
)

// User platform account
type User struct {
	ID         int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email      string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Nickname   string  `gorm:"type:varchar(100);not null" json:"nickname"`
	ProfileImg *string `gorm:"type:text" json:"profile_img,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Memberships []OrganizationMember `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Organization tenant root; the unit of data isolation
type Organization struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	OwnerID   int64     `gorm:"not null" json:"owner_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Owner    User                 `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members  []OrganizationMember `gorm:"foreignKey:OrganizationID" json:"members,omitempty"`
	Projects []Project            `gorm:"foreignKey:OrganizationID" json:"projects,omitempty"`
}

func (Organization) TableName() string {
	return "organizations"
}

// OrganizationMember membership row linking a user to a tenant
type OrganizationMember struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID int64     `gorm:"not null;index" json:"organization_id"`
	UserID         int64     `gorm:"not null;index" json:"user_id"`
	Status         string    `gorm:"type:varchar(20);default:'ACTIVE'" json:"status"` // PENDING, ACTIVE, LEFT
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (OrganizationMember) TableName() string {
	return "organization_members"
}

// Project tenant-scoped project; a project has at most one whiteboard
type Project struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID int64     `gorm:"not null;index" json:"organization_id"`
	OwnerID        int64     `gorm:"not null" json:"owner_id"`
	Name           string    `gorm:"type:varchar(200);not null" json:"name"`
	Description    *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Organization Organization        `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Owner        User                `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Whiteboard   *WhiteboardDocument `gorm:"foreignKey:ProjectID" json:"whiteboard,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

// WhiteboardDocument authoritative whiteboard state. The engine never
// interprets elements/view_state/embedded_files; every write replaces them
// wholesale (last full state wins).
type WhiteboardDocument struct {
	ID                   int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	WhiteboardKey        string  `gorm:"type:varchar(100);uniqueIndex;not null" json:"whiteboard_key"`
	Title                string  `gorm:"type:varchar(200);not null" json:"title"`
	Elements             string  `gorm:"type:jsonb;not null" json:"elements"`       // opaque ordered drawable list
	ViewState            string  `gorm:"type:jsonb;not null" json:"view_state"`     // opaque zoom/pan/selection
	EmbeddedFiles        string  `gorm:"type:jsonb;not null" json:"embedded_files"` // opaque keyed blob of small assets
	Thumbnail            *string `gorm:"type:text" json:"thumbnail,omitempty"`      // encoded preview image
	// Uniqueness of the project link is a partial index created during
	// migration; a tag-level uniqueIndex cannot express the NULL carve-out.
	ProjectID            *int64  `json:"project_id,omitempty"`
	OwnerUserID          int64   `gorm:"not null" json:"owner_user_id"`
	LastModifiedByUserID int64   `json:"last_modified_by_user_id"`
	OrganizationID       int64   `gorm:"not null;index" json:"organization_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Project      *Project     `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Owner        User         `gorm:"foreignKey:OwnerUserID" json:"owner,omitempty"`
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (WhiteboardDocument) TableName() string {
	return "whiteboard_documents"
}
