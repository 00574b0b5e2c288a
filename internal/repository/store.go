package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store bundles the repositories that share one *gorm.DB (or one transaction).
type Store struct {
	db       *gorm.DB
	Users    *UserRepository
	Projects *ProjectRepository
	Tasks    *TaskRepository
	Members  *ProjectMemberRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewUserRepository(db),
		Projects: NewProjectRepository(db),
		Tasks:    NewTaskRepository(db),
		Members:  NewProjectMemberRepository(db),
	}
}

// Transaction runs fn against a Store bound to a single transaction. Calling it on a
// Store that is already inside a transaction opens a savepoint instead.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Visibility narrows queries to the records an actor may see.
type Visibility struct {
	UserID       uuid.UUID
	Unrestricted bool
}

// Page is a limit/offset window over an ordered result set.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	return q
}
