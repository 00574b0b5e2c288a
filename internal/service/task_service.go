package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pms/internal/membership"
	"pms/internal/model"
	"pms/internal/policy"
	"pms/internal/repository"
	"pms/internal/validation"

	"github.com/google/uuid"
)

type TaskService struct {
	store *repository.Store
	now   func() time.Time
}

func NewTaskService(store *repository.Store) *TaskService {
	return &TaskService{store: store, now: time.Now}
}

// TaskInput carries the writable task fields; nil fields are left unchanged.
// AssignedToSet distinguishes an explicit unassignment (nil AssignedToID) from an
// omitted field.
type TaskInput struct {
	Title         *string
	Description   *string
	ProjectID     *uuid.UUID
	AssignedToSet bool
	AssignedToID  *uuid.UUID
	Status        *model.TaskStatus
	Priority      *model.TaskPriority
	StartDate     *time.Time
	DueDate       *time.Time
}

// Create validates and stores a new task, then adds its assignee to the project.
func (s *TaskService) Create(ctx context.Context, actor policy.Actor, in TaskInput) (task *model.Task, err error) {
	ctx, span := startSpan(ctx, "TaskService.Create", actor)
	defer func() { endSpan(span, err) }()

	if !policy.Can(actor.Role(), policy.ResourceTask, policy.ActionCreate, policy.Authenticated) {
		return nil, ErrForbidden
	}
	if in.Title == nil || *in.Title == "" {
		return nil, validation.Errors{"title": {"This field is required."}}
	}
	if in.ProjectID == nil {
		return nil, validation.Errors{"project_id": {"This field is required."}}
	}

	project, err := s.resolveProject(ctx, actor, *in.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, in); err != nil {
		return nil, err
	}

	in = normalizeDates(in)
	candidate := validation.TaskCandidate{
		Project:    project,
		StartDate:  in.StartDate,
		DueDate:    in.DueDate,
		AssignedTo: in.AssignedToID,
	}
	if err := s.validator().ValidateTask(ctx, candidate, s.now()); err != nil {
		return nil, err
	}

	creator := actor.ID
	task = &model.Task{
		ProjectID:   project.ID,
		Status:      model.TaskToDo,
		Priority:    model.PriorityMedium,
		CreatedByID: &creator,
	}
	applyTaskInput(task, in)

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Tasks.Create(ctx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		syncMembership(ctx, tx, "create", func(sync *membership.Synchronizer) error {
			return sync.TaskCreated(ctx, task)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.Tasks.GetVisible(ctx, repository.Visibility{Unrestricted: true}, task.ID)
}

// List returns one page of the tasks the actor can see.
func (s *TaskService) List(ctx context.Context, actor policy.Actor, filter repository.TaskFilter, page repository.Page) (tasks []model.Task, total int64, err error) {
	ctx, span := startSpan(ctx, "TaskService.List", actor)
	defer func() { endSpan(span, err) }()

	if !policy.Can(actor.Role(), policy.ResourceTask, policy.ActionList, policy.Authenticated) {
		return nil, 0, ErrForbidden
	}
	return s.store.Tasks.List(ctx, visibility(actor), filter, page)
}

// MyTasks lists everything for a superadmin, created tasks for a manager and assigned
// tasks for everyone else.
func (s *TaskService) MyTasks(ctx context.Context, actor policy.Actor, page repository.Page) (tasks []model.Task, total int64, err error) {
	ctx, span := startSpan(ctx, "TaskService.MyTasks", actor)
	defer func() { endSpan(span, err) }()

	var filter repository.TaskFilter
	switch actor.Role() {
	case policy.RoleSuperadmin:
	case policy.RoleManager:
		filter.CreatedByID = &actor.ID
	default:
		filter.AssignedToID = &actor.ID
	}
	return s.store.Tasks.List(ctx, repository.Visibility{Unrestricted: true}, filter, page)
}

// Get returns a task the actor may retrieve.
func (s *TaskService) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (task *model.Task, err error) {
	ctx, span := startSpan(ctx, "TaskService.Get", actor)
	defer func() { endSpan(span, err) }()

	return s.authorized(ctx, actor, id, policy.ActionRetrieve)
}

// Update applies a partial update and reconciles project membership when the
// assignment or the project changes.
func (s *TaskService) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, in TaskInput) (task *model.Task, err error) {
	ctx, span := startSpan(ctx, "TaskService.Update", actor)
	defer func() { endSpan(span, err) }()

	task, err = s.authorized(ctx, actor, id, policy.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if in.Title != nil && *in.Title == "" {
		return nil, validation.Errors{"title": {"This field may not be blank."}}
	}

	// перенос в другой проект равносилен созданию задачи в нём
	project := task.Project
	moved := in.ProjectID != nil && *in.ProjectID != task.ProjectID
	if moved {
		if !actor.CanCreate() {
			return nil, ErrForbidden
		}
		if project, err = s.resolveProject(ctx, actor, *in.ProjectID); err != nil {
			return nil, err
		}
	}
	if err := s.checkAssignee(ctx, in); err != nil {
		return nil, err
	}

	in = normalizeDates(in)
	candidate := validation.TaskCandidate{
		TaskID:          &task.ID,
		Project:         project,
		StartDate:       in.StartDate,
		DueDate:         in.DueDate,
		StoredDueDate:   task.DueDate,
		StoredStartDate: task.StartDate,
		ProjectChanged:  moved,
	}
	switch {
	case in.AssignedToSet:
		candidate.AssignedTo = in.AssignedToID
	case moved:
		candidate.AssignedTo = task.AssignedToID
	}
	if err := s.validator().ValidateTask(ctx, candidate, s.now()); err != nil {
		return nil, err
	}

	before := detached(task)
	applyTaskInput(task, in)
	if project != nil {
		task.ProjectID = project.ID
	}
	after := detached(task)

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Tasks.Update(ctx, &after); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		syncMembership(ctx, tx, "update", func(sync *membership.Synchronizer) error {
			return sync.TaskUpdated(ctx, &before, &after)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.Tasks.GetVisible(ctx, repository.Visibility{Unrestricted: true}, task.ID)
}

// Delete removes a task and drops its assignee's membership if it was their last task
// in the project.
func (s *TaskService) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "TaskService.Delete", actor)
	defer func() { endSpan(span, err) }()

	task, err := s.authorized(ctx, actor, id, policy.ActionDestroy)
	if err != nil {
		return err
	}
	removed := detached(task)

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Tasks.Delete(ctx, removed.ID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		syncMembership(ctx, tx, "delete", func(sync *membership.Synchronizer) error {
			return sync.TaskDeleted(ctx, &removed)
		})
		return nil
	})
}

// authorized loads a visible task and checks action against the actor's relation to it.
func (s *TaskService) authorized(ctx context.Context, actor policy.Actor, id uuid.UUID, action policy.Action) (*model.Task, error) {
	task, err := s.store.Tasks.GetVisible(ctx, visibility(actor), id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}

	var createdBy *uuid.UUID
	if task.Project != nil {
		createdBy = task.Project.CreatedByID
	}
	rel, err := projectRelation(ctx, s.store, actor, task.ProjectID, createdBy)
	if err != nil {
		return nil, err
	}
	// project creator is not a task relation
	rel &^= policy.Creator
	if task.CreatedByID != nil && *task.CreatedByID == actor.ID {
		rel |= policy.Creator
	}
	if task.AssignedToID != nil && *task.AssignedToID == actor.ID {
		rel |= policy.Assignee
	}

	if !policy.Can(actor.Role(), policy.ResourceTask, action, rel) {
		return nil, ErrForbidden
	}
	return task, nil
}

func (s *TaskService) validator() *validation.Validator {
	return validation.New(s.store.Tasks)
}

// resolveProject loads the target project of a task write. Projects the actor cannot
// see are reported as missing.
func (s *TaskService) resolveProject(ctx context.Context, actor policy.Actor, id uuid.UUID) (*model.Project, error) {
	project, err := s.store.Projects.GetVisible(ctx, visibility(actor), id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, validation.Errors{"project_id": {fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", id)}}
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	return project, nil
}

func (s *TaskService) checkAssignee(ctx context.Context, in TaskInput) error {
	if !in.AssignedToSet || in.AssignedToID == nil {
		return nil
	}
	ok, err := s.store.Users.Exists(ctx, *in.AssignedToID)
	if err != nil {
		return fmt.Errorf("load assignee: %w", err)
	}
	if !ok {
		return validation.Errors{"assigned_to_id": {fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", *in.AssignedToID)}}
	}
	return nil
}

// syncMembership runs the synchronizer under a savepoint of tx. A failure rolls back the
// savepoint only and is logged; the task write still commits.
func syncMembership(ctx context.Context, tx *repository.Store, op string, fn func(*membership.Synchronizer) error) {
	err := tx.Transaction(ctx, func(sp *repository.Store) error {
		return fn(membership.NewSynchronizer(sp.Members))
	})
	if err != nil {
		log.Printf("⚠️  membership sync after task %s failed: %v", op, err)
	}
}

func applyTaskInput(t *model.Task, in TaskInput) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.AssignedToSet {
		t.AssignedToID = in.AssignedToID
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.StartDate != nil {
		t.StartDate = in.StartDate
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
}

func normalizeDates(in TaskInput) TaskInput {
	if in.StartDate != nil {
		d := validation.Day(*in.StartDate)
		in.StartDate = &d
	}
	if in.DueDate != nil {
		d := validation.Day(*in.DueDate)
		in.DueDate = &d
	}
	return in
}

// detached copies a task without its loaded associations.
func detached(t *model.Task) model.Task {
	c := *t
	c.Project = nil
	c.AssignedTo = nil
	c.CreatedBy = nil
	return c
}
