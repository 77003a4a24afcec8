// Package store holds the in-memory entity hierarchy for the active view.
//
// The store keeps three collections: the user's projects, the sections of
// the open project, and the notes (with their todos) of the open section.
// Order is slice position everywhere and ids are unique within a collection.
// Mutations go through Apply, which returns the inverse change so callers can
// roll an optimistic update back with a single call.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/order"
)

var (
	// ErrNotFound is returned when a change targets an id that is not held
	ErrNotFound = errors.New("entity not found")
	// ErrDuplicate is returned when adding an id that is already held
	ErrDuplicate = errors.New("duplicate entity id")
)

// Op is the kind of mutation in a Change
type Op int

const (
	OpAdd      Op = iota // insert Entity at Index (append when out of range)
	OpUpdate             // replace the entity with Entity.GetID()
	OpRemove             // drop ID
	OpReplace            // swap ID for Entity, which may carry a new id
	OpReorder            // move ID onto ToID (todos only)
	OpSetOrder           // put todos of ParentID in Order (used to undo OpReorder)
)

func (o Op) String() string {
	return [...]string{"add", "update", "remove", "replace", "reorder", "set-order"}[o]
}

// Change is one mutation of the store
type Change struct {
	Op       Op
	Kind     model.Kind
	ParentID string // owning note for todos
	ID       string
	ToID     string
	Index    int
	Entity   model.Entity
	Order    []string
}

// Store is the local entity store. It is safe for concurrent use.
type Store struct {
	fetcher Fetcher
	cache   SnapshotCache

	mu       sync.RWMutex
	projects []model.Project
	sections []model.Section
	notes    []model.Note
	scopes   map[ScopeKind]ScopeState
	edits    *Edits
}

// New creates an empty store. cache may be nil.
func New(fetcher Fetcher, cache SnapshotCache) *Store {
	return &Store{
		fetcher: fetcher,
		cache:   cache,
		scopes:  make(map[ScopeKind]ScopeState),
		edits:   newEdits(),
	}
}

// Edits exposes per-entity edit sessions
func (s *Store) Edits() *Edits { return s.edits }

// Projects returns a copy of the held projects
func (s *Store) Projects() []model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.projects)
}

// Sections returns a copy of the held sections
func (s *Store) Sections() []model.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sections)
}

// Notes returns a deep copy of the held notes and their todos
func (s *Store) Notes() []model.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneNotes(s.notes)
}

// Note returns one note with its todos
func (s *Store) Note(id string) (model.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.notes, id)
	if i < 0 {
		return model.Note{}, false
	}
	n := s.notes[i]
	n.Todos = slices.Clone(n.Todos)
	return n, true
}

// Todos returns the ordered todos of a note
func (s *Store) Todos(noteID string) []model.Todo {
	n, _ := s.Note(noteID)
	return n.Todos
}

// Project, Section and Todo look up single entities
func (s *Store) Project(id string) (model.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.projects, id)
}

func (s *Store) Section(id string) (model.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.sections, id)
}

func (s *Store) Todo(id string) (model.Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ni := s.noteOfTodo(id); ni >= 0 {
		return find(s.notes[ni].Todos, id)
	}
	return model.Todo{}, false
}

// Lookup returns any held entity by kind and id
func (s *Store) Lookup(kind model.Kind, id string) (model.Entity, bool) {
	switch kind {
	case model.KindProject:
		return s.Project(id)
	case model.KindSection:
		return s.Section(id)
	case model.KindNote:
		return s.Note(id)
	case model.KindTodo:
		return s.Todo(id)
	}
	return nil, false
}

// Has reports whether an entity is held
func (s *Store) Has(kind model.Kind, id string) bool {
	_, ok := s.Lookup(kind, id)
	return ok
}

// State returns the load state for a scope kind
func (s *Store) State(kind ScopeKind) ScopeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[kind]
}

// BeginEdit opens an edit session on a held entity
func (s *Store) BeginEdit(kind model.Kind, id, draft string) error {
	if !s.Has(kind, id) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return s.edits.begin(kind, id, draft)
}

// RequestDelete marks a held entity as pending deletion. Nothing is removed.
func (s *Store) RequestDelete(kind model.Kind, id string) error {
	if !s.Has(kind, id) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return s.edits.requestDelete(kind, id)
}

// Apply performs change and returns the change that undoes it.
func (s *Store) Apply(c Change) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		inverse Change
		err     error
	)
	switch c.Kind {
	case model.KindProject:
		s.projects, inverse, err = applyTo(s.projects, c, nil)
	case model.KindSection:
		s.sections, inverse, err = applyTo(s.sections, c, nil)
	case model.KindNote:
		s.notes, inverse, err = applyTo(s.notes, c, keepTodos)
		if n, ok := inverse.Entity.(model.Note); ok && inverse.Op != OpAdd {
			n.Todos = nil
			inverse.Entity = n
		}
	case model.KindTodo:
		inverse, err = s.applyTodo(c)
	default:
		err = fmt.Errorf("unknown kind %q", c.Kind)
	}
	if err != nil {
		return Change{}, err
	}

	s.afterApply(c, inverse)
	return inverse, nil
}

// afterApply keeps edit sessions in line with the collections
func (s *Store) afterApply(c, inverse Change) {
	switch c.Op {
	case OpRemove:
		s.edits.forget(c.Kind, c.ID)
		if note, ok := inverse.Entity.(model.Note); ok {
			for _, t := range note.Todos {
				s.edits.forget(model.KindTodo, t.ID)
			}
		}
	case OpReplace:
		if newID := c.Entity.GetID(); newID != c.ID {
			s.edits.rename(c.Kind, c.ID, newID)
		}
	}
}

func (s *Store) applyTodo(c Change) (Change, error) {
	ni := -1
	if c.ParentID != "" {
		ni = indexOf(s.notes, c.ParentID)
	} else if c.Op != OpAdd && c.Op != OpSetOrder {
		ni = s.noteOfTodo(c.ID)
	}
	if ni < 0 {
		return Change{}, fmt.Errorf("note %q for todo %q: %w", c.ParentID, c.ID, ErrNotFound)
	}
	note := &s.notes[ni]

	switch c.Op {
	case OpReorder:
		prev := order.IDs(note.Todos, model.Todo.GetID)
		note.Todos, _ = order.Move(note.Todos, model.Todo.GetID, c.ID, c.ToID)
		return Change{Op: OpSetOrder, Kind: model.KindTodo, ParentID: note.ID, Order: prev}, nil

	case OpSetOrder:
		prev := order.IDs(note.Todos, model.Todo.GetID)
		note.Todos = order.ApplyHint(note.Todos, model.Todo.GetID, c.Order)
		return Change{Op: OpSetOrder, Kind: model.KindTodo, ParentID: note.ID, Order: prev}, nil
	}

	todos, inverse, err := applyTo(note.Todos, c, nil)
	if err != nil {
		return Change{}, err
	}
	note.Todos = todos
	inverse.ParentID = note.ID
	return inverse, nil
}

func (s *Store) noteOfTodo(todoID string) int {
	for i := range s.notes {
		if indexOf(s.notes[i].Todos, todoID) >= 0 {
			return i
		}
	}
	return -1
}

// applyTo runs an add/update/remove/replace on one ordered collection.
// merge, when set, combines the held value with the incoming one.
func applyTo[T model.Entity](items []T, c Change, merge func(old, incoming T) T) ([]T, Change, error) {
	base := Change{Kind: c.Kind, ParentID: c.ParentID}

	switch c.Op {
	case OpAdd:
		v, err := entityAs[T](c)
		if err != nil {
			return items, Change{}, err
		}
		if v.GetID() == "" {
			return items, Change{}, fmt.Errorf("add %s: empty id", c.Kind)
		}
		if indexOf(items, v.GetID()) >= 0 {
			return items, Change{}, fmt.Errorf("add %s %s: %w", c.Kind, v.GetID(), ErrDuplicate)
		}
		idx := c.Index
		if idx < 0 || idx > len(items) {
			idx = len(items)
		}
		base.Op, base.ID = OpRemove, v.GetID()
		return slices.Insert(slices.Clone(items), idx, v), base, nil

	case OpUpdate, OpReplace:
		v, err := entityAs[T](c)
		if err != nil {
			return items, Change{}, err
		}
		target := c.ID
		if c.Op == OpUpdate || target == "" {
			target = v.GetID()
		}
		i := indexOf(items, target)
		if i < 0 {
			return items, Change{}, fmt.Errorf("%s %s %s: %w", c.Op, c.Kind, target, ErrNotFound)
		}
		if v.GetID() != target {
			if j := indexOf(items, v.GetID()); j >= 0 {
				return items, Change{}, fmt.Errorf("%s %s %s: %w", c.Op, c.Kind, v.GetID(), ErrDuplicate)
			}
		}
		prev := items[i]
		if merge != nil {
			v = merge(prev, v)
		}
		out := slices.Clone(items)
		out[i] = v
		base.Op, base.ID, base.Entity = c.Op, v.GetID(), prev
		return out, base, nil

	case OpRemove:
		i := indexOf(items, c.ID)
		if i < 0 {
			return items, Change{}, fmt.Errorf("remove %s %s: %w", c.Kind, c.ID, ErrNotFound)
		}
		base.Op, base.Index, base.Entity = OpAdd, i, items[i]
		return slices.Delete(slices.Clone(items), i, i+1), base, nil
	}

	return items, Change{}, fmt.Errorf("op %s not supported for %s", c.Op, c.Kind)
}

func entityAs[T model.Entity](c Change) (T, error) {
	v, ok := c.Entity.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %s: entity has type %T, want %T", c.Op, c.Kind, c.Entity, zero)
	}
	return v, nil
}

// keepTodos makes note updates title-only. Todos belong to their own
// changes, so the held list always survives an update, a replace or the
// undo of either.
func keepTodos(old, incoming model.Note) model.Note {
	incoming.Todos = old.Todos
	return incoming
}

func indexOf[T model.Entity](items []T, id string) int {
	for i, it := range items {
		if it.GetID() == id {
			return i
		}
	}
	return -1
}

func find[T model.Entity](items []T, id string) (T, bool) {
	if i := indexOf(items, id); i >= 0 {
		return items[i], true
	}
	var zero T
	return zero, false
}

func cloneNotes(notes []model.Note) []model.Note {
	out := make([]model.Note, len(notes))
	for i, n := range notes {
		n.Todos = slices.Clone(n.Todos)
		out[i] = n
	}
	return out
}
