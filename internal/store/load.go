package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/ironnote/internal/logger"
	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/order"
)

// Load fetches scope and replaces the matching collection wholesale.
//
// The remote result is authoritative. The only thing carried over from
// earlier state is todo order: if the same notes scope is held in memory or
// cached, its todo order is reapplied, because reordering is local-only.
//
// When the fetch fails the error is recorded in the scope state and returned.
// A cached snapshot, if any, is installed and the state becomes Stale.
// Otherwise data already held for the same scope stays put. There is no retry.
func (s *Store) Load(ctx context.Context, scope Scope) error {
	snap, err := s.fetcher.Fetch(ctx, scope)
	if err != nil {
		logger.Warn("Scope load failed", logger.F("scope", scope.Key()), logger.F("error", err))

		status := StatusFailed
		if cached, ok := s.readCache(ctx, scope); ok {
			s.install(cached)
			status = StatusStale
		} else if held, _ := s.CurrentScope(scope.Kind); held != scope {
			s.install(Snapshot{Scope: scope})
		}
		s.setState(ScopeState{Scope: scope, Status: status, Err: err})
		return fmt.Errorf("load %s: %w", scope, err)
	}

	snap.Scope = scope
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	if scope.Kind == ScopeNotes {
		snap.Notes = s.withTodoOrderHint(ctx, scope, snap.Notes)
	}

	s.install(snap)
	s.setState(ScopeState{Scope: scope, Status: StatusReady, LoadedAt: snap.FetchedAt})
	logger.Debug("Scope loaded",
		logger.F("scope", scope.Key()),
		logger.F("projects", len(snap.Projects)),
		logger.F("sections", len(snap.Sections)),
		logger.F("notes", len(snap.Notes)))

	s.PersistSnapshot(ctx, scope)
	return nil
}

// LoadCached installs the cached snapshot of scope without fetching, for a
// fast first paint. It reports whether a snapshot was found.
func (s *Store) LoadCached(ctx context.Context, scope Scope) bool {
	cached, ok := s.readCache(ctx, scope)
	if !ok {
		return false
	}
	s.install(cached)
	s.setState(ScopeState{Scope: scope, Status: StatusCached, LoadedAt: cached.FetchedAt})
	return true
}

// PersistSnapshot mirrors the held collection of scope into the durable
// cache. Failures are logged and otherwise ignored.
func (s *Store) PersistSnapshot(ctx context.Context, scope Scope) {
	if s.cache == nil {
		return
	}
	snap, ok := s.Snapshot(scope)
	if !ok {
		return
	}
	if err := s.cache.Put(ctx, scope.Key(), snap); err != nil {
		logger.Warn("Snapshot write failed", logger.F("scope", scope.Key()), logger.F("error", err))
	}
}

// Snapshot returns the held collection for scope. ok is false when a
// different scope of that kind is held.
func (s *Store) Snapshot(scope Scope) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.scopes[scope.Kind].Scope != scope {
		return Snapshot{}, false
	}
	snap := Snapshot{Scope: scope, FetchedAt: s.scopes[scope.Kind].LoadedAt}
	switch scope.Kind {
	case ScopeProjects:
		snap.Projects = append([]model.Project{}, s.projects...)
	case ScopeSections:
		snap.Sections = append([]model.Section{}, s.sections...)
	case ScopeNotes:
		snap.Notes = cloneNotes(s.notes)
	}
	return snap, true
}

// CurrentScope returns the scope held for kind
func (s *Store) CurrentScope(kind ScopeKind) (Scope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scopes[kind]
	return st.Scope, ok && st.Scope.ID != ""
}

func (s *Store) readCache(ctx context.Context, scope Scope) (Snapshot, bool) {
	if s.cache == nil {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := s.cache.Get(ctx, scope.Key(), &snap); err != nil {
		if !isMiss(err) {
			logger.Warn("Snapshot read failed", logger.F("scope", scope.Key()), logger.F("error", err))
		}
		return Snapshot{}, false
	}
	if snap.Scope != scope {
		return Snapshot{}, false
	}
	return snap, true
}

// withTodoOrderHint reorders fetched todos by the last known local order
func (s *Store) withTodoOrderHint(ctx context.Context, scope Scope, notes []model.Note) []model.Note {
	prev, ok := s.Snapshot(scope)
	if !ok {
		prev, ok = s.readCache(ctx, scope)
	}
	if !ok {
		return notes
	}

	hints := make(map[string][]string, len(prev.Notes))
	for _, n := range prev.Notes {
		hints[n.ID] = order.IDs(n.Todos, model.Todo.GetID)
	}
	for i := range notes {
		if hint, ok := hints[notes[i].ID]; ok {
			notes[i].Todos = order.ApplyHint(notes[i].Todos, model.Todo.GetID, hint)
		}
	}
	return notes
}

// install replaces the collection of snap's scope kind. Edit sessions of
// entities the new collection no longer holds are dropped.
func (s *Store) install(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch snap.Scope.Kind {
	case ScopeProjects:
		s.projects = nonNil(snap.Projects)
		s.edits.retain(model.KindProject, idSet(s.projects))
	case ScopeSections:
		s.sections = nonNil(snap.Sections)
		s.edits.retain(model.KindSection, idSet(s.sections))
	case ScopeNotes:
		notes := nonNil(snap.Notes)
		todos := make(map[string]bool)
		for i := range notes {
			notes[i].Todos = nonNil(notes[i].Todos)
			for _, t := range notes[i].Todos {
				todos[t.ID] = true
			}
		}
		s.notes = notes
		s.edits.retain(model.KindNote, idSet(s.notes))
		s.edits.retain(model.KindTodo, todos)
	}
}

func idSet[T model.Entity](items []T) map[string]bool {
	ids := make(map[string]bool, len(items))
	for _, it := range items {
		ids[it.GetID()] = true
	}
	return ids
}

func (s *Store) setState(st ScopeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[st.Scope.Kind] = st
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// isMiss recognises a cache "no entry" error
func isMiss(err error) bool {
	var m interface{ Miss() bool }
	return errors.As(err, &m) && m.Miss()
}
