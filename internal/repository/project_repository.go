package repository

import (
	"context"
	"errors"

	"pms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// ProjectFilter holds the optional list filters. UserID keeps projects created by or
// shared with that user.
type ProjectFilter struct {
	UserID *uuid.UUID
	Status string
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// GetVisible loads a project with its creator, members and tasks. Projects outside vis
// are reported as ErrNotFound.
func (r *ProjectRepository) GetVisible(ctx context.Context, vis Visibility, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	err := withProjectDetails(r.visible(ctx, vis)).Where("projects.id = ?", id).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// List returns one page of visible projects, newest first, and the total match count.
func (r *ProjectRepository) List(ctx context.Context, vis Visibility, filter ProjectFilter, page Page) ([]model.Project, int64, error) {
	q := r.visible(ctx, vis)
	if filter.UserID != nil {
		q = q.Where("(projects.created_by_id = ? OR projects.id IN (?))",
			*filter.UserID, r.memberProjectIDs(*filter.UserID))
	}
	if filter.Status != "" {
		q = q.Where("projects.status = ?", filter.Status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []model.Project
	err := page.apply(withProjectDetails(q).Order("projects.created_at DESC")).Find(&projects).Error
	return projects, total, err
}

// Latest returns the n most recently created visible projects.
func (r *ProjectRepository) Latest(ctx context.Context, vis Visibility, n int) ([]model.Project, error) {
	var projects []model.Project
	err := withProjectDetails(r.visible(ctx, vis)).
		Order("projects.created_at DESC").
		Limit(n).
		Find(&projects).Error
	return projects, err
}

// ListCreatedBy returns projects created by the user.
func (r *ProjectRepository) ListCreatedBy(ctx context.Context, userID uuid.UUID, status string) ([]model.Project, error) {
	q := r.db.WithContext(ctx).Model(&model.Project{}).Where("projects.created_by_id = ?", userID)
	return r.find(q, status)
}

// ListInvolving returns projects where the user is a member or has an assigned task.
func (r *ProjectRepository) ListInvolving(ctx context.Context, userID uuid.UUID, status string) ([]model.Project, error) {
	q := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("(projects.id IN (?) OR projects.id IN (?))", r.memberProjectIDs(userID), r.assignedProjectIDs(userID))
	return r.find(q, status)
}

func (r *ProjectRepository) ListAll(ctx context.Context, status string) ([]model.Project, error) {
	return r.find(r.db.WithContext(ctx).Model(&model.Project{}), status)
}

// ListVisibleByIDs resolves the given ids inside vis. Unknown or hidden ids are skipped.
func (r *ProjectRepository) ListVisibleByIDs(ctx context.Context, vis Visibility, ids []uuid.UUID) ([]model.Project, error) {
	var projects []model.Project
	err := r.visible(ctx, vis).Where("projects.id IN ?", ids).Find(&projects).Error
	return projects, err
}

func (r *ProjectRepository) Update(ctx context.Context, project *model.Project) error {
	result := r.db.WithContext(ctx).Omit("CreatedBy", "Members", "Tasks").Save(project)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIDs removes the projects together with their tasks and memberships and
// returns the number of deleted projects.
func (r *ProjectRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id IN ?", ids).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id IN ?", ids).Delete(&model.ProjectMember{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&model.Project{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}

func (r *ProjectRepository) visible(ctx context.Context, vis Visibility) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Project{})
	if vis.Unrestricted {
		return q
	}
	return q.Where("(projects.id IN (?) OR projects.id IN (?) OR projects.created_by_id = ?)",
		r.memberProjectIDs(vis.UserID), r.assignedProjectIDs(vis.UserID), vis.UserID)
}

func (r *ProjectRepository) memberProjectIDs(userID uuid.UUID) *gorm.DB {
	return r.db.Model(&model.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)
}

func (r *ProjectRepository) assignedProjectIDs(userID uuid.UUID) *gorm.DB {
	return r.db.Model(&model.Task{}).Select("project_id").Where("assigned_to_id = ?", userID)
}

func (r *ProjectRepository) find(q *gorm.DB, status string) ([]model.Project, error) {
	if status != "" {
		q = q.Where("projects.status = ?", status)
	}
	var projects []model.Project
	err := withProjectDetails(q).Order("projects.created_at DESC").Find(&projects).Error
	return projects, err
}

func withProjectDetails(q *gorm.DB) *gorm.DB {
	return q.Preload("CreatedBy").Preload("Members.User").Preload("Tasks")
}
