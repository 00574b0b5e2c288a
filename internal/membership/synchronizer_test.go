package membership_test

import (
	"context"
	"testing"

	"pms/internal/membership"
	"pms/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ensure(ctx context.Context, projectID, userID uuid.UUID, role string) (bool, error) {
	args := m.Called(ctx, projectID, userID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CountAssignedTasks(ctx context.Context, projectID, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) RemoveWithRole(ctx context.Context, projectID, userID uuid.UUID, role string) (bool, error) {
	args := m.Called(ctx, projectID, userID, role)
	return args.Bool(0), args.Error(1)
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestTaskCreated_EnsuresAssigneeMembership(t *testing.T) {
	// Arrange
	store := new(MockStore)
	sync := membership.NewSynchronizer(store)
	projectID, userID := uuid.New(), uuid.New()
	store.On("Ensure", mock.Anything, projectID, userID, model.MemberRoleMember).Return(true, nil)

	// Act
	err := sync.TaskCreated(context.Background(), &model.Task{ProjectID: projectID, AssignedToID: &userID})

	// Assert
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestTaskCreated_UnassignedIsNoop(t *testing.T) {
	store := new(MockStore)
	sync := membership.NewSynchronizer(store)

	err := sync.TaskCreated(context.Background(), &model.Task{ProjectID: uuid.New()})

	assert.NoError(t, err)
	store.AssertNotCalled(t, "Ensure", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskUpdated_Reassignment(t *testing.T) {
	// Arrange
	store := new(MockStore)
	sync := membership.NewSynchronizer(store)
	projectID, a, b := uuid.New(), uuid.New(), uuid.New()

	store.On("CountAssignedTasks", mock.Anything, projectID, a).Return(int64(0), nil)
	store.On("RemoveWithRole", mock.Anything, projectID, a, model.MemberRoleMember).Return(true, nil)
	store.On("Ensure", mock.Anything, projectID, b, model.MemberRoleMember).Return(true, nil)

	// Act
	err := sync.TaskUpdated(context.Background(),
		&model.Task{ProjectID: projectID, AssignedToID: ptr(a)},
		&model.Task{ProjectID: projectID, AssignedToID: ptr(b)},
	)

	// Assert
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestTaskUpdated_PreviousAssigneeKeepsOtherTasks(t *testing.T) {
	store := new(MockStore)
	sync := membership.NewSynchronizer(store)
	projectID, a := uuid.New(), uuid.New()

	store.On("CountAssignedTasks", mock.Anything, projectID, a).Return(int64(1), nil)

	err := sync.TaskUpdated(context.Background(),
		&model.Task{ProjectID: projectID, AssignedToID: ptr(a)},
		&model.Task{ProjectID: projectID},
	)

	assert.NoError(t, err)
	store.AssertNotCalled(t, "RemoveWithRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Ensure", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskUpdated_SameAssigneeIsNoop(t *testing.T) {
	store := new(MockStore)
	sync := membership.NewSynchronizer(store)
	projectID, a := uuid.New(), uuid.New()

	err := sync.TaskUpdated(context.Background(),
		&model.Task{ProjectID: projectID, AssignedToID: ptr(a)},
		&model.Task{ProjectID: projectID, AssignedToID: ptr(a)},
	)

	assert.NoError(t, err)
	store.AssertExpectations(t)
	assert.Empty(t, store.Calls)
}

func TestTaskUpdated_ProjectMove(t *testing.T) {
	store := new(MockStore)
	sync := membership.NewSynchronizer(store)
	oldProject, newProject, a := uuid.New(), uuid.New(), uuid.New()

	store.On("CountAssignedTasks", mock.Anything, oldProject, a).Return(int64(0), nil)
	store.On("RemoveWithRole", mock.Anything, oldProject, a, model.MemberRoleMember).Return(true, nil)
	store.On("Ensure", mock.Anything, newProject, a, model.MemberRoleMember).Return(true, nil)

	err := sync.TaskUpdated(context.Background(),
		&model.Task{ProjectID: oldProject, AssignedToID: ptr(a)},
		&model.Task{ProjectID: newProject, AssignedToID: ptr(a)},
	)

	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestTaskDeleted_ReleasesLastTask(t *testing.T) {
	store := new(MockStore)
	sync := membership.NewSynchronizer(store)
	projectID, a := uuid.New(), uuid.New()

	store.On("CountAssignedTasks", mock.Anything, projectID, a).Return(int64(0), nil)
	store.On("RemoveWithRole", mock.Anything, projectID, a, model.MemberRoleMember).Return(false, nil)

	err := sync.TaskDeleted(context.Background(), &model.Task{ProjectID: projectID, AssignedToID: ptr(a)})

	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestTaskDeleted_StoreFailureIsReturned(t *testing.T) {
	store := new(MockStore)
	sync := membership.NewSynchronizer(store)
	projectID, a := uuid.New(), uuid.New()

	store.On("CountAssignedTasks", mock.Anything, projectID, a).Return(int64(0), assert.AnError)

	err := sync.TaskDeleted(context.Background(), &model.Task{ProjectID: projectID, AssignedToID: ptr(a)})

	assert.ErrorIs(t, err, assert.AnError)
}
