// Package membership keeps project membership rows in step with task assignments.
package membership

import (
	"context"
	"fmt"

	"pms/internal/model"

	"github.com/google/uuid"
)

// Store is the slice of persistence the synchronizer needs.
type Store interface {
	Ensure(ctx context.Context, projectID, userID uuid.UUID, role string) (bool, error)
	CountAssignedTasks(ctx context.Context, projectID, userID uuid.UUID) (int64, error)
	RemoveWithRole(ctx context.Context, projectID, userID uuid.UUID, role string) (bool, error)
}

// Synchronizer derives "member" rows from task assignments. Rows with any other role
// (owner, admin, viewer) are never removed by it.
type Synchronizer struct {
	store Store
}

func NewSynchronizer(store Store) *Synchronizer {
	return &Synchronizer{store: store}
}

// TaskCreated makes the assignee of a new task a project member.
func (s *Synchronizer) TaskCreated(ctx context.Context, task *model.Task) error {
	return s.ensure(ctx, task.ProjectID, task.AssignedToID)
}

// TaskUpdated reconciles membership after an update moved the assignment, the project,
// or both. before and after are the task as stored before and after the write.
func (s *Synchronizer) TaskUpdated(ctx context.Context, before, after *model.Task) error {
	if sameUser(before.AssignedToID, after.AssignedToID) && before.ProjectID == after.ProjectID {
		return nil
	}
	if err := s.release(ctx, before.ProjectID, before.AssignedToID); err != nil {
		return err
	}
	return s.ensure(ctx, after.ProjectID, after.AssignedToID)
}

// TaskDeleted drops the former assignee's membership once they hold no task in the project.
func (s *Synchronizer) TaskDeleted(ctx context.Context, task *model.Task) error {
	return s.release(ctx, task.ProjectID, task.AssignedToID)
}

func (s *Synchronizer) ensure(ctx context.Context, projectID uuid.UUID, userID *uuid.UUID) error {
	if userID == nil || projectID == uuid.Nil {
		return nil
	}
	if _, err := s.store.Ensure(ctx, projectID, *userID, model.MemberRoleMember); err != nil {
		return fmt.Errorf("ensure member %s in project %s: %w", *userID, projectID, err)
	}
	return nil
}

func (s *Synchronizer) release(ctx context.Context, projectID uuid.UUID, userID *uuid.UUID) error {
	if userID == nil {
		return nil
	}
	remaining, err := s.store.CountAssignedTasks(ctx, projectID, *userID)
	if err != nil {
		return fmt.Errorf("count tasks of %s in project %s: %w", *userID, projectID, err)
	}
	if remaining > 0 {
		return nil
	}
	if _, err := s.store.RemoveWithRole(ctx, projectID, *userID, model.MemberRoleMember); err != nil {
		return fmt.Errorf("remove member %s from project %s: %w", *userID, projectID, err)
	}
	return nil
}

func sameUser(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
