package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Роли пользователя в системе
const (
	UserRoleManager  = "manager"
	UserRoleEmployee = "employee"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	Username       string    `gorm:"size:30;not null"`
	HashedPassword string    `gorm:"not null"`
	Role           string    `gorm:"size:10;not null;default:employee"`
	IsActive       bool      `gorm:"not null;default:true"`
	IsStaff        bool      `gorm:"not null;default:false"`
	IsSuperuser    bool      `gorm:"not null;default:false"`
	JoinedAt       time.Time `gorm:"autoCreateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// BeforeSave: менеджер всегда получает флаг is_staff
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Role == UserRoleManager {
		u.IsStaff = true
	}
	return nil
}
