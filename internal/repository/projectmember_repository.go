package repository

import (
	"context"
	"errors"

	"pms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectMemberRepository struct {
	db *gorm.DB
}

func NewProjectMemberRepository(db *gorm.DB) *ProjectMemberRepository {
	return &ProjectMemberRepository{db: db}
}

// Add создаёт запись участника с указанной ролью
func (r *ProjectMemberRepository) Add(ctx context.Context, projectID, userID uuid.UUID, role string) error {
	return r.db.WithContext(ctx).Create(&model.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}).Error
}

// Ensure создаёт запись участника, если её ещё нет. Существующая роль не меняется.
func (r *ProjectMemberRepository) Ensure(ctx context.Context, projectID, userID uuid.UUID, role string) (bool, error) {
	var existing model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := r.Add(ctx, projectID, userID, role); err != nil {
		return false, err
	}
	return true, nil
}

// GetRole возвращает роль пользователя в проекте или пустую строку, если он не участник
func (r *ProjectMemberRepository) GetRole(ctx context.Context, projectID, userID uuid.UUID) (string, error) {
	var member model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

// RemoveWithRole удаляет участника, только если его роль совпадает с role
func (r *ProjectMemberRepository) RemoveWithRole(ctx context.Context, projectID, userID uuid.UUID, role string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ? AND role = ?", projectID, userID, role).
		Delete(&model.ProjectMember{})
	return result.RowsAffected > 0, result.Error
}

// CountAssignedTasks считает задачи пользователя в проекте
func (r *ProjectMemberRepository) CountAssignedTasks(ctx context.Context, projectID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("project_id = ? AND assigned_to_id = ?", projectID, userID).
		Count(&count).Error
	return count, err
}
