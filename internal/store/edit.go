package store

import (
	"errors"
	"strings"
	"sync"

	"github.com/existflow/ironnote/internal/model"
)

var (
	// ErrEditInProgress is returned when another entity of the same kind is being edited
	ErrEditInProgress = errors.New("another edit is in progress")
	// ErrNotEditing is returned when a draft is set or committed without BeginEdit
	ErrNotEditing = errors.New("entity is not being edited")
	// ErrPendingDelete is returned when editing an entity that awaits delete confirmation
	ErrPendingDelete = errors.New("entity is pending deletion")
	// ErrNotPending is returned when confirming a delete that was never requested
	ErrNotPending = errors.New("delete was not requested")
)

// EditMode is the per-entity interaction state
type EditMode int

const (
	Viewing EditMode = iota
	Editing
	PendingDelete
)

func (m EditMode) String() string {
	switch m {
	case Editing:
		return "editing"
	case PendingDelete:
		return "pending-delete"
	default:
		return "viewing"
	}
}

// EditState is the state of one entity. Draft is only meaningful while Editing.
type EditState struct {
	Mode  EditMode
	Draft string
}

type editKey struct {
	kind model.Kind
	id   string
}

// Edits tracks edit sessions by entity id, so a session survives reorders.
// At most one entity per kind can be Editing at a time; kinds are independent.
type Edits struct {
	mu     sync.Mutex
	states map[editKey]EditState
}

func newEdits() *Edits {
	return &Edits{states: make(map[editKey]EditState)}
}

// State returns the entity's state, Viewing when untracked
func (e *Edits) State(kind model.Kind, id string) EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[editKey{kind, id}]
}

// Active returns the id being edited for kind
func (e *Edits) Active(kind model.Kind) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, st := range e.states {
		if k.kind == kind && st.Mode == Editing {
			return k.id, true
		}
	}
	return "", false
}

func (e *Edits) begin(kind model.Kind, id, draft string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := editKey{kind, id}
	switch e.states[key].Mode {
	case Editing:
		return nil
	case PendingDelete:
		return ErrPendingDelete
	}
	for k, st := range e.states {
		if k.kind == kind && st.Mode == Editing {
			return ErrEditInProgress
		}
	}
	e.states[key] = EditState{Mode: Editing, Draft: draft}
	return nil
}

// SetDraft replaces the draft of an entity being edited
func (e *Edits) SetDraft(kind model.Kind, id, draft string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := editKey{kind, id}
	if e.states[key].Mode != Editing {
		return ErrNotEditing
	}
	e.states[key] = EditState{Mode: Editing, Draft: draft}
	return nil
}

// Draft returns the trimmed draft of an entity being edited
func (e *Edits) Draft(kind model.Kind, id string) (string, error) {
	st := e.State(kind, id)
	if st.Mode != Editing {
		return "", ErrNotEditing
	}
	return strings.TrimSpace(st.Draft), nil
}

// CancelEdit drops the draft and returns the entity to Viewing
func (e *Edits) CancelEdit(kind model.Kind, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := editKey{kind, id}
	if e.states[key].Mode == Editing {
		delete(e.states, key)
	}
}

func (e *Edits) requestDelete(kind model.Kind, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := editKey{kind, id}
	if e.states[key].Mode == Editing {
		return ErrEditInProgress
	}
	e.states[key] = EditState{Mode: PendingDelete}
	return nil
}

// CancelDelete clears a pending delete marker. It reports whether one was set.
func (e *Edits) CancelDelete(kind model.Kind, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := editKey{kind, id}
	if e.states[key].Mode != PendingDelete {
		return false
	}
	delete(e.states, key)
	return true
}

// IsPendingDelete reports whether a delete was requested and not yet resolved
func (e *Edits) IsPendingDelete(kind model.Kind, id string) bool {
	return e.State(kind, id).Mode == PendingDelete
}

// rename moves any state from a temporary id to the server id
func (e *Edits) rename(kind model.Kind, from, to string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.states[editKey{kind, from}]; ok {
		delete(e.states, editKey{kind, from})
		e.states[editKey{kind, to}] = st
	}
}

// retain forgets every state of kind whose id is not in held
func (e *Edits) retain(kind model.Kind, held map[string]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k := range e.states {
		if k.kind == kind && !held[k.id] {
			delete(e.states, k)
		}
	}
}

func (e *Edits) forget(kind model.Kind, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, editKey{kind, id})
}
