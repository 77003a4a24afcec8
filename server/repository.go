package server

import (
	"context"
	"errors"

	"github.com/existflow/ironnote/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique value is already taken
	ErrConflict = errors.New("already exists")
)

// Repository is the storage behind the API. Deleting a parent deletes its
// descendants. List methods return rows in creation order.
type Repository interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUserByID(ctx context.Context, id string) (model.User, error)

	CreateSession(ctx context.Context, s model.Session) error
	GetSession(ctx context.Context, token string) (model.Session, error)
	DeleteSession(ctx context.Context, token string) error

	ListProjects(ctx context.Context, userID string) ([]model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
	UpdateProject(ctx context.Context, p model.Project) error
	DeleteProject(ctx context.Context, id string) error

	ListSections(ctx context.Context, projectID string) ([]model.Section, error)
	GetSection(ctx context.Context, id string) (model.Section, error)
	CreateSection(ctx context.Context, s model.Section) (model.Section, error)
	UpdateSection(ctx context.Context, s model.Section) error
	DeleteSection(ctx context.Context, id string) error

	ListNotes(ctx context.Context, sectionID string) ([]model.Note, error)
	GetNote(ctx context.Context, id string) (model.Note, error)
	CreateNote(ctx context.Context, n model.Note) (model.Note, error)
	UpdateNote(ctx context.Context, n model.Note) error
	DeleteNote(ctx context.Context, id string) error

	ListTodos(ctx context.Context, noteID string) ([]model.Todo, error)
	GetTodo(ctx context.Context, id string) (model.Todo, error)
	CreateTodo(ctx context.Context, t model.Todo) (model.Todo, error)
	UpdateTodo(ctx context.Context, t model.Todo) error
	DeleteTodo(ctx context.Context, id string) error

	Close() error
}
