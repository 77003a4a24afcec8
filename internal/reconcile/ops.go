package reconcile

import (
	"context"
	"fmt"

	"github.com/existflow/ironnote/internal/logger"
	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/store"
)

// CreateProject adds a project and returns the server-assigned id
func (r *Reconciler) CreateProject(ctx context.Context, p model.Project) (string, error) {
	p = model.NewProject(p.Name, p.Color, p.Description)
	p.ID = model.NewTempID()

	return r.create(ctx, model.KindProject, "", func() bool { return true }, p, p.Validate, p.Name,
		func(ctx context.Context) (model.Entity, error) {
			return entity(r.remote.CreateProject(ctx, p))
		})
}

// CreateSection adds a section to a project
func (r *Reconciler) CreateSection(ctx context.Context, s model.Section) (string, error) {
	s = model.NewSection(s.ProjectID, s.Title, s.Text, s.Color)
	s.ID = model.NewTempID()

	inView := func() bool { return r.inView(store.SectionsScope(s.ProjectID)) }
	return r.create(ctx, model.KindSection, "", inView, s, s.Validate, s.Title,
		func(ctx context.Context) (model.Entity, error) {
			return entity(r.remote.CreateSection(ctx, s))
		})
}

// CreateNote adds a note to a section
func (r *Reconciler) CreateNote(ctx context.Context, n model.Note) (string, error) {
	n = model.NewNote(n.SectionID, n.Title)
	n.ID = model.NewTempID()
	n.Todos = []model.Todo{}

	inView := func() bool { return r.inView(store.NotesScope(n.SectionID)) }
	return r.create(ctx, model.KindNote, "", inView, n, n.Validate, n.Title,
		func(ctx context.Context) (model.Entity, error) {
			return entity(r.remote.CreateNote(ctx, n))
		})
}

// CreateTodo appends a todo to a note
func (r *Reconciler) CreateTodo(ctx context.Context, t model.Todo) (string, error) {
	t = model.NewTodo(t.NoteID, t.Content)
	t.ID = model.NewTempID()

	inView := func() bool { return r.store.Has(model.KindNote, t.NoteID) }
	return r.create(ctx, model.KindTodo, t.NoteID, inView, t, t.Validate, t.Content,
		func(ctx context.Context) (model.Entity, error) {
			return entity(r.remote.CreateTodo(ctx, t))
		})
}

// create shows temp in the store while the call runs, then swaps in the
// server's entity. When the parent is not in view only the call is made.
// A reload during the call drops temp; the server's entity is then added
// if its parent is still shown and the reload did not already bring it.
func (r *Reconciler) create(ctx context.Context, kind model.Kind, parentID string, inView func() bool,
	temp model.Entity, validate func() error, label string,
	send func(context.Context) (model.Entity, error)) (string, error) {

	m := mutation{
		kind:     kind,
		id:       temp.GetID(),
		action:   fmt.Sprintf("create %s", kind),
		validate: validate,
		call:     send,
		success:  fmt.Sprintf("Created %s %q", kind, label),
	}
	if inView() {
		m.optimistic = &store.Change{Op: store.OpAdd, Kind: kind, ParentID: parentID, Index: -1, Entity: temp}
		m.confirm = func(e model.Entity) *store.Change {
			switch {
			case r.store.Has(kind, temp.GetID()):
				return &store.Change{Op: store.OpReplace, Kind: kind, ParentID: parentID, ID: temp.GetID(), Entity: e}
			case r.store.Has(kind, e.GetID()) || !inView():
				return nil
			}
			if n, ok := e.(model.Note); ok && n.Todos == nil {
				n.Todos = []model.Todo{}
				e = n
			}
			return &store.Change{Op: store.OpAdd, Kind: kind, ParentID: parentID, Index: -1, Entity: e}
		}
	}

	created, err := r.reconcile(ctx, m)
	if err != nil {
		return "", err
	}
	return created.GetID(), nil
}

// UpdateProject patches a project
func (r *Reconciler) UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) error {
	cur, held := r.store.Project(id)
	return r.update(ctx, model.KindProject, id, patch.Validate, held, patch.Apply(cur),
		func(ctx context.Context) (model.Entity, error) {
			return entity(r.remote.UpdateProject(ctx, id, patch))
		})
}

// UpdateSection patches a section
func (r *Reconciler) UpdateSection(ctx context.Context, id string, patch model.SectionPatch) error {
	cur, held := r.store.Section(id)
	return r.update(ctx, model.KindSection, id, patch.Validate, held, patch.Apply(cur),
		func(ctx context.Context) (model.Entity, error) {
			return entity(r.remote.UpdateSection(ctx, id, patch))
		})
}

// UpdateNote patches a note title. Its todos are untouched.
func (r *Reconciler) UpdateNote(ctx context.Context, id string, patch model.NotePatch) error {
	cur, held := r.store.Note(id)
	return r.update(ctx, model.KindNote, id, patch.Validate, held, patch.Apply(cur),
		func(ctx context.Context) (model.Entity, error) {
			return entity(r.remote.UpdateNote(ctx, id, patch))
		})
}

// UpdateTodo patches a todo's content or completion
func (r *Reconciler) UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) error {
	cur, held := r.store.Todo(id)
	return r.update(ctx, model.KindTodo, id, patch.Validate, held, patch.Apply(cur),
		func(ctx context.Context) (model.Entity, error) {
			return entity(r.remote.UpdateTodo(ctx, id, patch))
		})
}

// ToggleTodo flips a held todo between open and completed
func (r *Reconciler) ToggleTodo(ctx context.Context, id string) error {
	cur, ok := r.store.Todo(id)
	if !ok {
		return fmt.Errorf("todo %s: %w", id, store.ErrNotFound)
	}
	return r.UpdateTodo(ctx, id, model.TodoPatch{IsCompleted: model.Ptr(!cur.IsCompleted)})
}

func (r *Reconciler) update(ctx context.Context, kind model.Kind, id string, validate func() error,
	held bool, next model.Entity, send func(context.Context) (model.Entity, error)) error {

	m := mutation{
		kind:     kind,
		id:       id,
		action:   fmt.Sprintf("update %s", kind),
		validate: validate,
		call:     send,
		success:  fmt.Sprintf("Updated %s", kind),
	}
	if held {
		m.optimistic = &store.Change{Op: store.OpUpdate, Kind: kind, Entity: next}
		m.confirm = func(e model.Entity) *store.Change {
			return &store.Change{Op: store.OpUpdate, Kind: kind, Entity: e}
		}
	}
	_, err := r.reconcile(ctx, m)
	return err
}

// CommitEdit saves the draft of the entity being edited. The edit ends only
// when the save succeeds, so a rejected draft can be fixed and retried.
func (r *Reconciler) CommitEdit(ctx context.Context, kind model.Kind, id string) error {
	draft, err := r.store.Edits().Draft(kind, id)
	if err != nil {
		return err
	}

	switch kind {
	case model.KindProject:
		err = r.UpdateProject(ctx, id, model.ProjectPatch{Name: &draft})
	case model.KindSection:
		err = r.UpdateSection(ctx, id, model.SectionPatch{Title: &draft})
	case model.KindNote:
		err = r.UpdateNote(ctx, id, model.NotePatch{Title: &draft})
	case model.KindTodo:
		err = r.UpdateTodo(ctx, id, model.TodoPatch{Content: &draft})
	default:
		err = fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return err
	}
	r.store.Edits().CancelEdit(kind, id)
	return nil
}

// RequestDelete marks an entity for deletion. Nothing is sent or removed.
func (r *Reconciler) RequestDelete(kind model.Kind, id string) error {
	if err := r.store.RequestDelete(kind, id); err != nil {
		return err
	}
	logger.Debug("Delete requested", logger.F("kind", kind), logger.F("id", id))
	return nil
}

// CancelDelete drops a pending delete without any call
func (r *Reconciler) CancelDelete(kind model.Kind, id string) bool {
	return r.store.Edits().CancelDelete(kind, id)
}

// ConfirmDelete deletes a pending entity remotely and then locally. On
// failure the entity stays, still marked, so the user can retry or cancel.
func (r *Reconciler) ConfirmDelete(ctx context.Context, kind model.Kind, id string) error {
	if !r.store.Edits().IsPendingDelete(kind, id) {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotPending)
	}

	_, err := r.reconcile(ctx, mutation{
		kind:   kind,
		id:     id,
		action: fmt.Sprintf("delete %s", kind),
		call: func(ctx context.Context) (model.Entity, error) {
			return nil, r.deleteRemote(ctx, kind, id)
		},
		confirm: func(model.Entity) *store.Change {
			return &store.Change{Op: store.OpRemove, Kind: kind, ID: id}
		},
		success: fmt.Sprintf("Deleted %s", kind),
	})
	if err != nil {
		return err
	}
	r.store.Edits().CancelDelete(kind, id)
	return nil
}

func (r *Reconciler) deleteRemote(ctx context.Context, kind model.Kind, id string) error {
	switch kind {
	case model.KindProject:
		return r.remote.DeleteProject(ctx, id)
	case model.KindSection:
		return r.remote.DeleteSection(ctx, id)
	case model.KindNote:
		return r.remote.DeleteNote(ctx, id)
	case model.KindTodo:
		return r.remote.DeleteTodo(ctx, id)
	}
	return fmt.Errorf("unknown kind %q", kind)
}

// Reorder moves todo fromID onto toID inside a note. Order is local only:
// the result is kept in the store and the cache, never sent to the API.
func (r *Reconciler) Reorder(ctx context.Context, noteID, fromID, toID string) error {
	if fromID == toID {
		return nil
	}
	if _, err := r.store.Apply(store.Change{
		Op: store.OpReorder, Kind: model.KindTodo, ParentID: noteID, ID: fromID, ToID: toID,
	}); err != nil {
		return err
	}
	r.persist(ctx, model.KindTodo)
	return nil
}

// inView reports whether scope is the one the store holds for its kind
func (r *Reconciler) inView(scope store.Scope) bool {
	cur, ok := r.store.CurrentScope(scope.Kind)
	return ok && cur == scope
}

func entity[T model.Entity](v T, err error) (model.Entity, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
