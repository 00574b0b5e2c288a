package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pms/internal/model"
	"pms/internal/policy"
	"pms/internal/repository"
	"pms/internal/validation"

	"github.com/google/uuid"
)

// LatestProjectsLimit is how many projects the "latest" listing returns.
const LatestProjectsLimit = 2

type ProjectService struct {
	store *repository.Store
	now   func() time.Time
}

func NewProjectService(store *repository.Store) *ProjectService {
	return &ProjectService{store: store, now: time.Now}
}

// ProjectInput carries the writable project fields; nil fields are left unchanged.
// ClearEndDate makes the project open-ended.
type ProjectInput struct {
	Title        *string
	Description  *string
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
	Status       *model.ProjectStatus
}

// Create stores a new project and makes the actor its owner.
func (s *ProjectService) Create(ctx context.Context, actor policy.Actor, in ProjectInput) (project *model.Project, err error) {
	ctx, span := startSpan(ctx, "ProjectService.Create", actor)
	defer func() { endSpan(span, err) }()

	if !policy.Can(actor.Role(), policy.ResourceProject, policy.ActionCreate, policy.Authenticated) {
		return nil, ErrForbidden
	}

	creator := actor.ID
	project = &model.Project{
		StartDate:   validation.Day(s.now()),
		Status:      model.ProjectPlanned,
		CreatedByID: &creator,
	}
	applyProjectInput(project, in)
	if in.Title == nil || *in.Title == "" {
		return nil, validation.Errors{"title": {"This field is required."}}
	}
	if err := validation.ValidateProjectDates(project.StartDate, project.EndDate); err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Projects.Create(ctx, project); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		if err := tx.Members.Add(ctx, project.ID, actor.ID, model.MemberRoleOwner); err != nil {
			return fmt.Errorf("add project owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.Projects.GetVisible(ctx, repository.Visibility{Unrestricted: true}, project.ID)
}

// List returns one page of the projects the actor can see.
func (s *ProjectService) List(ctx context.Context, actor policy.Actor, filter repository.ProjectFilter, page repository.Page) (projects []model.Project, total int64, err error) {
	ctx, span := startSpan(ctx, "ProjectService.List", actor)
	defer func() { endSpan(span, err) }()

	if !policy.Can(actor.Role(), policy.ResourceProject, policy.ActionList, policy.Authenticated) {
		return nil, 0, ErrForbidden
	}
	return s.store.Projects.List(ctx, visibility(actor), filter, page)
}

// Get returns a project the actor may retrieve.
func (s *ProjectService) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (project *model.Project, err error) {
	ctx, span := startSpan(ctx, "ProjectService.Get", actor)
	defer func() { endSpan(span, err) }()

	return s.authorized(ctx, actor, id, policy.ActionRetrieve)
}

// Update applies a partial update to a project.
func (s *ProjectService) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, in ProjectInput) (project *model.Project, err error) {
	ctx, span := startSpan(ctx, "ProjectService.Update", actor)
	defer func() { endSpan(span, err) }()

	project, err = s.authorized(ctx, actor, id, policy.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if in.Title != nil && *in.Title == "" {
		return nil, validation.Errors{"title": {"This field may not be blank."}}
	}

	applyProjectInput(project, in)
	if err := validation.ValidateProjectDates(project.StartDate, project.EndDate); err != nil {
		return nil, err
	}
	if err := s.store.Projects.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return s.store.Projects.GetVisible(ctx, repository.Visibility{Unrestricted: true}, project.ID)
}

// Delete removes a project together with its tasks and memberships.
func (s *ProjectService) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "ProjectService.Delete", actor)
	defer func() { endSpan(span, err) }()

	project, err := s.authorized(ctx, actor, id, policy.ActionDestroy)
	if err != nil {
		return err
	}
	if _, err := s.store.Projects.DeleteByIDs(ctx, []uuid.UUID{project.ID}); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// BulkDelete deletes every listed project or none of them. Each project must be visible
// to the actor and either created by them or the actor must be a superuser.
func (s *ProjectService) BulkDelete(ctx context.Context, actor policy.Actor, ids []uuid.UUID) (deleted int64, err error) {
	ctx, span := startSpan(ctx, "ProjectService.BulkDelete", actor)
	defer func() { endSpan(span, err) }()

	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, validation.Errors{"ids": {"This field is required."}}
	}

	projects, err := s.store.Projects.ListVisibleByIDs(ctx, visibility(actor), ids)
	if err != nil {
		return 0, fmt.Errorf("resolve projects: %w", err)
	}

	deletable := 0
	for _, p := range projects {
		if actor.IsSuperuser || (p.CreatedByID != nil && *p.CreatedByID == actor.ID) {
			deletable++
		}
	}
	if deletable < len(ids) {
		return 0, ErrForbidden
	}

	deleted, err = s.store.Projects.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete projects: %w", err)
	}
	return deleted, nil
}

// Latest returns the most recently created projects the actor can see.
func (s *ProjectService) Latest(ctx context.Context, actor policy.Actor) (projects []model.Project, err error) {
	ctx, span := startSpan(ctx, "ProjectService.Latest", actor)
	defer func() { endSpan(span, err) }()

	return s.store.Projects.Latest(ctx, visibility(actor), LatestProjectsLimit)
}

// UserProjects lists projects by the actor's role: everything for a superadmin, created
// projects for a manager, and projects the actor belongs to or works on otherwise.
func (s *ProjectService) UserProjects(ctx context.Context, actor policy.Actor, status string) (projects []model.Project, err error) {
	ctx, span := startSpan(ctx, "ProjectService.UserProjects", actor)
	defer func() { endSpan(span, err) }()

	switch actor.Role() {
	case policy.RoleSuperadmin:
		return s.store.Projects.ListAll(ctx, status)
	case policy.RoleManager:
		return s.store.Projects.ListCreatedBy(ctx, actor.ID, status)
	default:
		return s.store.Projects.ListInvolving(ctx, actor.ID, status)
	}
}

// Tasks lists the tasks of a project the actor may retrieve.
func (s *ProjectService) Tasks(ctx context.Context, actor policy.Actor, projectID uuid.UUID, filter repository.TaskFilter) (tasks []model.Task, err error) {
	ctx, span := startSpan(ctx, "ProjectService.Tasks", actor)
	defer func() { endSpan(span, err) }()

	project, err := s.authorized(ctx, actor, projectID, policy.ActionRetrieve)
	if err != nil {
		return nil, err
	}
	filter.ProjectID = &project.ID
	tasks, _, err = s.store.Tasks.List(ctx, repository.Visibility{Unrestricted: true}, filter, repository.Page{})
	return tasks, err
}

// authorized loads a visible project and checks action against the actor's relation to it.
func (s *ProjectService) authorized(ctx context.Context, actor policy.Actor, id uuid.UUID, action policy.Action) (*model.Project, error) {
	project, err := s.store.Projects.GetVisible(ctx, visibility(actor), id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}

	rel, err := projectRelation(ctx, s.store, actor, project.ID, project.CreatedByID)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor.Role(), policy.ResourceProject, action, rel) {
		return nil, ErrForbidden
	}
	return project, nil
}

func applyProjectInput(p *model.Project, in ProjectInput) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.StartDate != nil {
		p.StartDate = validation.Day(*in.StartDate)
	}
	if in.EndDate != nil {
		end := validation.Day(*in.EndDate)
		p.EndDate = &end
	} else if in.ClearEndDate {
		p.EndDate = nil
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
}

// projectRelation describes how the actor relates to a project.
func projectRelation(ctx context.Context, store *repository.Store, actor policy.Actor, projectID uuid.UUID, createdBy *uuid.UUID) (policy.Relation, error) {
	rel := policy.Authenticated
	if createdBy != nil && *createdBy == actor.ID {
		rel |= policy.Creator
	}
	role, err := store.Members.GetRole(ctx, projectID, actor.ID)
	if err != nil {
		return 0, fmt.Errorf("load membership: %w", err)
	}
	if role != "" {
		rel |= policy.Member
	}
	if model.IsStewardRole(role) {
		rel |= policy.Steward
	}
	return rel, nil
}

func visibility(actor policy.Actor) repository.Visibility {
	return repository.Visibility{UserID: actor.ID, Unrestricted: actor.SeesEverything()}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
