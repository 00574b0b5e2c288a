package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectMember связывает пользователя с проектом и его ролью в нём
type ProjectMember struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_project_user"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_project_user;index"`
	Role      string    `gorm:"size:20;not null;default:member"`
	JoinedAt  time.Time `gorm:"autoCreateTime"`

	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Роли участника проекта
const (
	MemberRoleOwner  = "owner"
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
	MemberRoleViewer = "viewer"
	// legacy value still granted stewardship by the permission rules
	MemberRoleManager = "manager"
)

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// StewardRoles may manage a project's tasks and (for managers) delete the project.
var StewardRoles = []string{MemberRoleOwner, MemberRoleAdmin, MemberRoleManager}

func IsStewardRole(role string) bool {
	for _, r := range StewardRoles {
		if r == role {
			return true
		}
	}
	return false
}
