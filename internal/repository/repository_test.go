package repository_test

import (
	"context"
	"testing"
	"time"

	"pms/internal/database"
	"pms/internal/model"
	"pms/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(database.Models...))
	return repository.NewStore(db)
}

func newUser(t *testing.T, s *repository.Store, name string) *model.User {
	t.Helper()
	u := &model.User{Email: name + "@example.com", Username: name, HashedPassword: "x", IsActive: true}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func newProject(t *testing.T, s *repository.Store, title string, owner *model.User) *model.Project {
	t.Helper()
	p := &model.Project{Title: title, StartDate: day(0), Status: model.ProjectPlanned, CreatedByID: &owner.ID}
	require.NoError(t, s.Projects.Create(context.Background(), p))
	return p
}

func newTask(t *testing.T, s *repository.Store, p *model.Project, assignee *model.User, mutate func(*model.Task)) *model.Task {
	t.Helper()
	task := &model.Task{Title: "task", ProjectID: p.ID, Status: model.TaskToDo, Priority: model.PriorityMedium}
	if assignee != nil {
		task.AssignedToID = &assignee.ID
	}
	if mutate != nil {
		mutate(task)
	}
	require.NoError(t, s.Tasks.Create(context.Background(), task))
	return task
}

func day(offset int) time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestProjectVisibility(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := newUser(t, s, "owner")
	member := newUser(t, s, "member")
	assignee := newUser(t, s, "assignee")
	stranger := newUser(t, s, "stranger")

	p := newProject(t, s, "Apollo", owner)
	require.NoError(t, s.Members.Add(ctx, p.ID, member.ID, model.MemberRoleViewer))
	newTask(t, s, p, assignee, nil)

	for _, u := range []*model.User{owner, member, assignee} {
		got, err := s.Projects.GetVisible(ctx, repository.Visibility{UserID: u.ID}, p.ID)
		require.NoError(t, err, u.Username)
		assert.Equal(t, p.ID, got.ID)
	}

	_, err := s.Projects.GetVisible(ctx, repository.Visibility{UserID: stranger.ID}, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.Projects.GetVisible(ctx, repository.Visibility{UserID: stranger.ID, Unrestricted: true}, p.ID)
	assert.NoError(t, err)
}

func TestProjectList_PagesAndFilters(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := newUser(t, s, "owner")
	other := newUser(t, s, "other")

	for _, title := range []string{"P1", "P2", "P3"} {
		newProject(t, s, title, owner)
	}
	done := newProject(t, s, "P4", other)
	done.Status = model.ProjectCompleted
	require.NoError(t, s.Projects.Update(ctx, done))

	all := repository.Visibility{Unrestricted: true}

	projects, total, err := s.Projects.List(ctx, all, repository.ProjectFilter{}, repository.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, projects, 2)

	_, total, err = s.Projects.List(ctx, all, repository.ProjectFilter{UserID: &owner.ID}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	projects, total, err = s.Projects.List(ctx, all, repository.ProjectFilter{Status: string(model.ProjectCompleted)}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "P4", projects[0].Title)
}

func TestProjectDeleteByIDs_Cascades(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := newUser(t, s, "owner")
	alice := newUser(t, s, "alice")

	p1 := newProject(t, s, "P1", owner)
	p2 := newProject(t, s, "P2", owner)
	require.NoError(t, s.Members.Add(ctx, p1.ID, alice.ID, model.MemberRoleMember))
	task := newTask(t, s, p1, alice, nil)
	kept := newTask(t, s, p2, alice, nil)

	deleted, err := s.Projects.DeleteByIDs(ctx, []uuid.UUID{p1.ID})

	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	_, err = s.Tasks.GetWithAssignee(ctx, task.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Tasks.GetWithAssignee(ctx, kept.ID)
	assert.NoError(t, err)
	role, err := s.Members.GetRole(ctx, p1.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "", role)
}

func TestMembers_EnsureAndRemoveWithRole(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := newUser(t, s, "owner")
	alice := newUser(t, s, "alice")
	p := newProject(t, s, "Apollo", owner)
	require.NoError(t, s.Members.Add(ctx, p.ID, owner.ID, model.MemberRoleOwner))

	created, err := s.Members.Ensure(ctx, p.ID, alice.ID, model.MemberRoleMember)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Members.Ensure(ctx, p.ID, alice.ID, model.MemberRoleMember)
	require.NoError(t, err)
	assert.False(t, created)

	// существующая роль не меняется
	created, err = s.Members.Ensure(ctx, p.ID, owner.ID, model.MemberRoleMember)
	require.NoError(t, err)
	assert.False(t, created)

	removed, err := s.Members.RemoveWithRole(ctx, p.ID, owner.ID, model.MemberRoleMember)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = s.Members.RemoveWithRole(ctx, p.ID, alice.ID, model.MemberRoleMember)
	require.NoError(t, err)
	assert.True(t, removed)

	loaded, err := s.Projects.GetVisible(ctx, repository.Visibility{UserID: owner.ID}, p.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Members, 1)
	assert.Equal(t, model.MemberRoleOwner, loaded.Members[0].Role)
	assert.Equal(t, "owner", loaded.Members[0].User.Username)
}

func TestMembers_DuplicateRowRejected(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := newUser(t, s, "owner")
	p := newProject(t, s, "Apollo", owner)

	require.NoError(t, s.Members.Add(ctx, p.ID, owner.ID, model.MemberRoleOwner))
	assert.Error(t, s.Members.Add(ctx, p.ID, owner.ID, model.MemberRoleMember))
}

func TestTaskVisibility(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := newUser(t, s, "owner")
	alice := newUser(t, s, "alice")
	stranger := newUser(t, s, "stranger")
	p := newProject(t, s, "Apollo", owner)
	require.NoError(t, s.Members.Add(ctx, p.ID, owner.ID, model.MemberRoleOwner))
	task := newTask(t, s, p, alice, nil)

	for _, u := range []*model.User{owner, alice} {
		_, err := s.Tasks.GetVisible(ctx, repository.Visibility{UserID: u.ID}, task.ID)
		assert.NoError(t, err, u.Username)
	}
	_, err := s.Tasks.GetVisible(ctx, repository.Visibility{UserID: stranger.ID}, task.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	tasks, total, err := s.Tasks.List(ctx, repository.Visibility{UserID: stranger.ID}, repository.TaskFilter{}, repository.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, tasks)
}

func TestTaskAssignmentLookups(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := newUser(t, s, "owner")
	alice := newUser(t, s, "alice")
	p1 := newProject(t, s, "P1", owner)
	p2 := newProject(t, s, "P2", owner)
	due := day(3)
	task := newTask(t, s, p1, alice, func(task *model.Task) {
		task.Priority = model.PriorityHigh
		task.DueDate = &due
	})

	taken, err := s.Tasks.AssignedInProject(ctx, alice.ID, p1.ID, nil)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = s.Tasks.AssignedInProject(ctx, alice.ID, p1.ID, &task.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = s.Tasks.AssignedInProject(ctx, alice.ID, p2.ID, nil)
	require.NoError(t, err)
	assert.False(t, taken)

	clash, err := s.Tasks.HighPriorityDueOn(ctx, alice.ID, due, nil)
	require.NoError(t, err)
	assert.True(t, clash)

	clash, err = s.Tasks.HighPriorityDueOn(ctx, alice.ID, day(4), nil)
	require.NoError(t, err)
	assert.False(t, clash)

	count, err := s.Members.CountAssignedTasks(ctx, p1.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTaskDueOn(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := newUser(t, s, "owner")
	alice := newUser(t, s, "alice")
	p := newProject(t, s, "Apollo", owner)
	tomorrow := day(1)
	later := day(2)

	due := newTask(t, s, p, alice, func(task *model.Task) { task.DueDate = &tomorrow })
	newTask(t, s, p, alice, func(task *model.Task) { task.DueDate = &tomorrow; task.Status = model.TaskDone })
	newTask(t, s, p, nil, func(task *model.Task) { task.DueDate = &tomorrow })
	newTask(t, s, p, alice, func(task *model.Task) { task.DueDate = &later })

	tasks, err := s.Tasks.DueOn(ctx, tomorrow)

	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, due.ID, tasks[0].ID)

	loaded, err := s.Tasks.GetWithAssignee(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.AssignedTo.Username)
	assert.Equal(t, "Apollo", loaded.Project.Title)
}

func TestTaskCompletedAtSetOnSave(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := newUser(t, s, "owner")
	p := newProject(t, s, "Apollo", owner)
	task := newTask(t, s, p, nil, func(task *model.Task) { task.Status = model.TaskDone })
	assert.NotNil(t, task.CompletedAt)

	task.Status = model.TaskInProgress
	require.NoError(t, s.Tasks.Update(ctx, task))

	stored, err := s.Tasks.GetWithAssignee(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CompletedAt)
}

func TestStoreTransactionRollsBack(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	owner := newUser(t, s, "owner")

	err := s.Transaction(ctx, func(tx *repository.Store) error {
		p := &model.Project{Title: "Doomed", StartDate: day(0), Status: model.ProjectPlanned, CreatedByID: &owner.ID}
		require.NoError(t, tx.Projects.Create(ctx, p))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	projects, err := s.Projects.ListAll(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, projects)
}
