package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskToDo       TaskStatus = "to-do"
	TaskInProgress TaskStatus = "in-progress"
	TaskDone       TaskStatus = "done"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

type Task struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Title        string       `gorm:"size:200;not null"`
	Description  string
	ProjectID    uuid.UUID    `gorm:"type:uuid;not null;index"`
	AssignedToID *uuid.UUID   `gorm:"type:uuid;index"`
	Status       TaskStatus   `gorm:"size:20;not null;default:to-do"`
	Priority     TaskPriority `gorm:"size:20;not null;default:medium"`
	CreatedByID  *uuid.UUID   `gorm:"type:uuid"`
	StartDate    *time.Time   `gorm:"type:date"`
	DueDate      *time.Time   `gorm:"type:date;index"`
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Project    *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	AssignedTo *User    `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL"`
	CreatedBy  *User    `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps CompletedAt in step with Status on every create and save.
func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.SyncCompletion(time.Now())
	return nil
}

// SyncCompletion sets CompletedAt when the task is done and clears it otherwise.
// An existing completion time is kept.
func (t *Task) SyncCompletion(now time.Time) {
	if t.Status == TaskDone {
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		return
	}
	t.CompletedAt = nil
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskToDo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
