package service_test

import (
	"context"
	"testing"
	"time"

	"pms/internal/auth"
	"pms/internal/database"
	"pms/internal/model"
	"pms/internal/policy"
	"pms/internal/repository"
	"pms/internal/service"
	"pms/internal/validation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	store    *repository.Store
	projects *service.ProjectService
	tasks    *service.TaskService
	users    *service.UserService
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(database.Models...))

	store := repository.NewStore(db)
	return &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		store:    store,
		projects: service.NewProjectService(store),
		tasks:    service.NewTaskService(store),
		users:    service.NewUserService(store.Users, auth.NewTokenManager("test-secret", time.Hour)),
	}
}

func (f *fixture) actor(username string, staff, superuser bool) policy.Actor {
	f.t.Helper()
	u := &model.User{
		Email:          username + "@example.com",
		Username:       username,
		HashedPassword: "x",
		Role:           model.UserRoleEmployee,
		IsActive:       true,
		IsStaff:        staff,
		IsSuperuser:    superuser,
	}
	require.NoError(f.t, f.store.Users.Create(f.ctx, u))
	return policy.Actor{ID: u.ID, IsStaff: staff, IsSuperuser: superuser}
}

func (f *fixture) project(owner policy.Actor, title string) *model.Project {
	f.t.Helper()
	p, err := f.projects.Create(f.ctx, owner, service.ProjectInput{Title: &title})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) task(creator policy.Actor, projectID uuid.UUID, title string, assignee *uuid.UUID) *model.Task {
	f.t.Helper()
	in := service.TaskInput{Title: &title, ProjectID: &projectID}
	if assignee != nil {
		in.AssignedToSet = true
		in.AssignedToID = assignee
	}
	task, err := f.tasks.Create(f.ctx, creator, in)
	require.NoError(f.t, err)
	return task
}

func (f *fixture) role(projectID, userID uuid.UUID) string {
	f.t.Helper()
	role, err := f.store.Members.GetRole(f.ctx, projectID, userID)
	require.NoError(f.t, err)
	return role
}

func str(s string) *string { return &s }

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func dayAt(offset int) *time.Time {
	d := validation.Day(time.Now()).AddDate(0, 0, offset)
	return &d
}
