package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/existflow/ironnote/internal/api"
	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/store"
)

// todoFetchLimit caps concurrent todo listings when loading a section
const todoFetchLimit = 4

// Fetch lists a scope from the API. It implements store.Fetcher.
func (r *Reconciler) Fetch(ctx context.Context, scope store.Scope) (store.Snapshot, error) {
	if !r.remote.IsLoggedIn() {
		return store.Snapshot{}, api.ErrNoSession
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snap := store.Snapshot{Scope: scope}
	var err error
	switch scope.Kind {
	case store.ScopeProjects:
		snap.Projects, err = r.remote.ListProjects(ctx, scope.ID)
	case store.ScopeSections:
		snap.Sections, err = r.remote.ListSections(ctx, scope.ID)
	case store.ScopeNotes:
		snap.Notes, err = r.fetchNotes(ctx, scope.ID)
	default:
		err = fmt.Errorf("unknown scope %q", scope.Kind)
	}
	if err != nil {
		return store.Snapshot{}, err
	}
	snap.FetchedAt = time.Now()
	return snap, nil
}

// fetchNotes lists the notes of a section and the todos of each note
func (r *Reconciler) fetchNotes(ctx context.Context, sectionID string) ([]model.Note, error) {
	notes, err := r.remote.ListNotes(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(todoFetchLimit)
	for i := range notes {
		g.Go(func() error {
			todos, err := r.remote.ListTodos(gctx, notes[i].ID)
			if err != nil {
				return fmt.Errorf("todos of note %s: %w", notes[i].ID, err)
			}
			notes[i].Todos = todos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return notes, nil
}

// Load refreshes scope from the API. A failure is reported once and the
// store falls back to whatever it has cached.
func (r *Reconciler) Load(ctx context.Context, scope store.Scope) error {
	err := r.store.Load(ctx, scope)
	if err == nil {
		return nil
	}

	if api.IsUnauthorized(err) {
		r.requireLogin()
	}
	if !errors.Is(err, api.ErrNoSession) {
		r.notify(Error, failureMessage(fmt.Sprintf("load %s", scope.Kind), err))
	}
	return err
}

// LoadProjects loads the projects of the logged-in user
func (r *Reconciler) LoadProjects(ctx context.Context) error {
	userID, err := r.remote.UserID()
	if err != nil {
		r.requireLogin()
		return err
	}
	return r.Load(ctx, store.ProjectsScope(userID))
}

// Hydrate installs cached snapshots for scopes so a view can paint before
// its first fetch completes
func (r *Reconciler) Hydrate(ctx context.Context, scopes ...store.Scope) {
	for _, s := range scopes {
		r.store.LoadCached(ctx, s)
	}
}
