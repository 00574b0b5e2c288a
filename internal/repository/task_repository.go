package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pms/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// TaskFilter holds optional list filters; zero values are ignored.
type TaskFilter struct {
	Status           string
	Priority         string
	AssignedUsername string
	ProjectID        *uuid.UUID
	CreatedByID      *uuid.UUID
	AssignedToID     *uuid.UUID
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Omit("Project", "AssignedTo", "CreatedBy").Create(task).Error
}

// GetVisible retrieves a task with its relations if it lies inside vis
func (r *TaskRepository) GetVisible(ctx context.Context, vis Visibility, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := withTaskDetails(r.visible(ctx, vis)).Where("tasks.id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// List retrieves visible tasks matching the filter, newest first
func (r *TaskRepository) List(ctx context.Context, vis Visibility, filter TaskFilter, page Page) ([]model.Task, int64, error) {
	q := r.filtered(r.visible(ctx, vis), filter).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []model.Task
	err := page.apply(withTaskDetails(q).Order("tasks.created_at DESC")).Find(&tasks).Error
	return tasks, total, err
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	result := r.db.WithContext(ctx).Omit("Project", "AssignedTo", "CreatedBy").Save(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task by its ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignedInProject reports whether the user holds a task in the project other than excludeID.
func (r *TaskRepository) AssignedInProject(ctx context.Context, userID, projectID uuid.UUID, excludeID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("assigned_to_id = ? AND project_id = ?", userID, projectID)
	return exists(excluding(q, excludeID))
}

// HighPriorityDueOn reports whether the user holds another high-priority task due on day,
// in any project.
func (r *TaskRepository) HighPriorityDueOn(ctx context.Context, userID uuid.UUID, day time.Time, excludeID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("assigned_to_id = ? AND priority = ? AND due_date = ?", userID, model.PriorityHigh, day)
	return exists(excluding(q, excludeID))
}

// DueOn returns open, assigned tasks whose due date is day
func (r *TaskRepository) DueOn(ctx context.Context, day time.Time) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("due_date = ? AND status <> ? AND assigned_to_id IS NOT NULL", day, model.TaskDone).
		Find(&tasks).Error
	return tasks, err
}

// GetWithAssignee retrieves a task and its assigned user
func (r *TaskRepository) GetWithAssignee(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Preload("AssignedTo").Preload("Project").First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) visible(ctx context.Context, vis Visibility) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Task{})
	if vis.Unrestricted {
		return q
	}
	members := r.db.Model(&model.ProjectMember{}).Select("project_id").Where("user_id = ?", vis.UserID)
	return q.Where("(tasks.created_by_id = ? OR tasks.assigned_to_id = ? OR tasks.project_id IN (?))",
		vis.UserID, vis.UserID, members)
}

func (r *TaskRepository) filtered(q *gorm.DB, f TaskFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("tasks.status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("tasks.priority = ?", f.Priority)
	}
	if f.AssignedUsername != "" {
		users := r.db.Model(&model.User{}).Select("id").Where("username = ?", f.AssignedUsername)
		q = q.Where("tasks.assigned_to_id IN (?)", users)
	}
	if f.ProjectID != nil {
		q = q.Where("tasks.project_id = ?", *f.ProjectID)
	}
	if f.CreatedByID != nil {
		q = q.Where("tasks.created_by_id = ?", *f.CreatedByID)
	}
	if f.AssignedToID != nil {
		q = q.Where("tasks.assigned_to_id = ?", *f.AssignedToID)
	}
	return q
}

func withTaskDetails(q *gorm.DB) *gorm.DB {
	return q.Preload("Project").Preload("AssignedTo").Preload("CreatedBy")
}

func excluding(q *gorm.DB, id *uuid.UUID) *gorm.DB {
	if id != nil {
		q = q.Where("id <> ?", *id)
	}
	return q
}

func exists(q *gorm.DB) (bool, error) {
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
