package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/existflow/ironnote/internal/model"
	"github.com/google/uuid"
)

// MemoryRepository keeps everything in process memory. It backs the server
// when no database is configured and the tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    []model.User
	sessions map[string]model.Session
	projects []model.Project
	sections []model.Section
	notes    []model.Note
	todos    []model.Todo
}

// NewMemoryRepository returns an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]model.Session)}
}

func (r *MemoryRepository) Close() error { return nil }

// Users

func (r *MemoryRepository) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return model.User{}, ErrConflict
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	r.users = append(r.users, u)
	return u, nil
}

func (r *MemoryRepository) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return first(r.users, func(u model.User) bool { return u.Username == username })
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return first(r.users, func(u model.User) bool { return u.ID == id })
}

// Sessions

func (r *MemoryRepository) CreateSession(ctx context.Context, s model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.CreatedAt = time.Now()
	r.sessions[s.Token] = s
	return nil
}

func (r *MemoryRepository) GetSession(ctx context.Context, token string) (model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[token]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepository) DeleteSession(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

// Projects

func (r *MemoryRepository) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter(r.projects, func(p model.Project) bool { return p.CreatedBy == userID }), nil
}

func (r *MemoryRepository) GetProject(ctx context.Context, id string) (model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return first(r.projects, func(p model.Project) bool { return p.ID == id })
}

func (r *MemoryRepository) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	r.projects = append(r.projects, p)
	return p, nil
}

func (r *MemoryRepository) UpdateProject(ctx context.Context, p model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return replace(r.projects, p)
}

func (r *MemoryRepository) DeleteProject(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ok bool
	if r.projects, ok = remove(r.projects, id); !ok {
		return ErrNotFound
	}
	for _, s := range filter(r.sections, func(s model.Section) bool { return s.ProjectID == id }) {
		r.deleteSection(s.ID)
	}
	return nil
}

// Sections

func (r *MemoryRepository) ListSections(ctx context.Context, projectID string) ([]model.Section, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter(r.sections, func(s model.Section) bool { return s.ProjectID == projectID }), nil
}

func (r *MemoryRepository) GetSection(ctx context.Context, id string) (model.Section, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return first(r.sections, func(s model.Section) bool { return s.ID == id })
}

func (r *MemoryRepository) CreateSection(ctx context.Context, s model.Section) (model.Section, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now()
	r.sections = append(r.sections, s)
	return s, nil
}

func (r *MemoryRepository) UpdateSection(ctx context.Context, s model.Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return replace(r.sections, s)
}

func (r *MemoryRepository) DeleteSection(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.deleteSection(id) {
		return ErrNotFound
	}
	return nil
}

// deleteSection removes a section and its notes; the caller holds the lock
func (r *MemoryRepository) deleteSection(id string) bool {
	var ok bool
	if r.sections, ok = remove(r.sections, id); !ok {
		return false
	}
	for _, n := range filter(r.notes, func(n model.Note) bool { return n.SectionID == id }) {
		r.deleteNote(n.ID)
	}
	return true
}

// Notes

func (r *MemoryRepository) ListNotes(ctx context.Context, sectionID string) ([]model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter(r.notes, func(n model.Note) bool { return n.SectionID == sectionID }), nil
}

func (r *MemoryRepository) GetNote(ctx context.Context, id string) (model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return first(r.notes, func(n model.Note) bool { return n.ID == id })
}

func (r *MemoryRepository) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.NewString()
	n.Todos = nil
	r.notes = append(r.notes, n)
	return n, nil
}

func (r *MemoryRepository) UpdateNote(ctx context.Context, n model.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.Todos = nil
	return replace(r.notes, n)
}

func (r *MemoryRepository) DeleteNote(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.deleteNote(id) {
		return ErrNotFound
	}
	return nil
}

// deleteNote removes a note and its todos; the caller holds the lock
func (r *MemoryRepository) deleteNote(id string) bool {
	var ok bool
	if r.notes, ok = remove(r.notes, id); !ok {
		return false
	}
	r.todos = filter(r.todos, func(t model.Todo) bool { return t.NoteID != id })
	return true
}

// Todos

func (r *MemoryRepository) ListTodos(ctx context.Context, noteID string) ([]model.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter(r.todos, func(t model.Todo) bool { return t.NoteID == noteID }), nil
}

func (r *MemoryRepository) GetTodo(ctx context.Context, id string) (model.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return first(r.todos, func(t model.Todo) bool { return t.ID == id })
}

func (r *MemoryRepository) CreateTodo(ctx context.Context, t model.Todo) (model.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.NewString()
	r.todos = append(r.todos, t)
	return t, nil
}

func (r *MemoryRepository) UpdateTodo(ctx context.Context, t model.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return replace(r.todos, t)
}

func (r *MemoryRepository) DeleteTodo(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ok bool
	if r.todos, ok = remove(r.todos, id); !ok {
		return ErrNotFound
	}
	return nil
}

func first[T any](items []T, match func(T) bool) (T, error) {
	for _, item := range items {
		if match(item) {
			return item, nil
		}
	}
	var zero T
	return zero, ErrNotFound
}

// filter returns a new slice, never nil, so lists encode as []
func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func replace[T model.Entity](items []T, v T) error {
	for i := range items {
		if items[i].GetID() == v.GetID() {
			items[i] = v
			return nil
		}
	}
	return ErrNotFound
}

func remove[T model.Entity](items []T, id string) ([]T, bool) {
	for i := range items {
		if items[i].GetID() == id {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}
