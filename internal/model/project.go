package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectPlanned   ProjectStatus = "planned"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

type Project struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Title       string        `gorm:"size:200;not null"`
	Description string
	StartDate   time.Time     `gorm:"type:date;not null"`
	EndDate     *time.Time    `gorm:"type:date"`
	Status      ProjectStatus `gorm:"size:20;not null;default:planned"`
	CreatedByID *uuid.UUID    `gorm:"type:uuid;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	CreatedBy *User           `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	Members   []ProjectMember `gorm:"foreignKey:ProjectID"`
	Tasks     []Task          `gorm:"foreignKey:ProjectID"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanned, ProjectActive, ProjectCompleted:
		return true
	}
	return false
}
