package model_test

import (
	"testing"
	"time"

	"pms/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestTaskSyncCompletion(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name   string
		task   model.Task
		expect *time.Time
	}{
		{name: "done sets completion", task: model.Task{Status: model.TaskDone}, expect: &now},
		{name: "done keeps existing completion", task: model.Task{Status: model.TaskDone, CompletedAt: &earlier}, expect: &earlier},
		{name: "reopened clears completion", task: model.Task{Status: model.TaskInProgress, CompletedAt: &earlier}, expect: nil},
		{name: "to-do has none", task: model.Task{Status: model.TaskToDo}, expect: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.task.SyncCompletion(now)
			assert.Equal(t, tt.expect, tt.task.CompletedAt)
		})
	}
}

func TestUserBeforeSaveMarksManagersStaff(t *testing.T) {
	manager := &model.User{Role: model.UserRoleManager}
	employee := &model.User{Role: model.UserRoleEmployee}

	assert.NoError(t, manager.BeforeSave(nil))
	assert.NoError(t, employee.BeforeSave(nil))

	assert.True(t, manager.IsStaff)
	assert.False(t, employee.IsStaff)
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, model.TaskStatus("in-progress").Valid())
	assert.False(t, model.TaskStatus("blocked").Valid())
	assert.True(t, model.TaskPriority("high").Valid())
	assert.False(t, model.TaskPriority("urgent").Valid())
	assert.True(t, model.ProjectStatus("completed").Valid())
	assert.False(t, model.ProjectStatus("archived").Valid())
}

func TestIsStewardRole(t *testing.T) {
	for _, role := range []string{model.MemberRoleOwner, model.MemberRoleAdmin, model.MemberRoleManager} {
		assert.True(t, model.IsStewardRole(role), role)
	}
	assert.False(t, model.IsStewardRole(model.MemberRoleMember))
	assert.False(t, model.IsStewardRole(model.MemberRoleViewer))
	assert.False(t, model.IsStewardRole(""))
}
