// Package reconcile keeps the local store and the remote API in step.
//
// Every mutation runs the same protocol: validate, require a session, claim
// the entity, apply optimistically, call the API under a timeout, then either
// merge the server's answer or undo the optimistic change. Each outcome
// produces exactly one notification.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/existflow/ironnote/internal/api"
	"github.com/existflow/ironnote/internal/logger"
	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/store"
)

// ErrBusy is returned when a mutation for the same entity is still in flight
var ErrBusy = errors.New("a change to this item is still being saved")

// DefaultTimeout bounds each remote call when Options.Timeout is zero
const DefaultTimeout = 15 * time.Second

// Remote is the collaborator API. *api.Client implements it.
type Remote interface {
	IsLoggedIn() bool
	UserID() (string, error)

	ListProjects(ctx context.Context, userID string) ([]model.Project, error)
	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
	UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (model.Project, error)
	DeleteProject(ctx context.Context, id string) error

	ListSections(ctx context.Context, projectID string) ([]model.Section, error)
	CreateSection(ctx context.Context, s model.Section) (model.Section, error)
	UpdateSection(ctx context.Context, id string, patch model.SectionPatch) (model.Section, error)
	DeleteSection(ctx context.Context, id string) error

	ListNotes(ctx context.Context, sectionID string) ([]model.Note, error)
	CreateNote(ctx context.Context, n model.Note) (model.Note, error)
	UpdateNote(ctx context.Context, id string, patch model.NotePatch) (model.Note, error)
	DeleteNote(ctx context.Context, id string) error

	ListTodos(ctx context.Context, noteID string) ([]model.Todo, error)
	CreateTodo(ctx context.Context, t model.Todo) (model.Todo, error)
	UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (model.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
}

// Options configures a Reconciler. Zero values are usable.
type Options struct {
	Timeout  time.Duration
	Notifier Notifier
	// OnLoginRequired runs when there is no session or the API answers 401
	OnLoginRequired func()
}

// Reconciler owns the store and mediates every change to it
type Reconciler struct {
	remote   Remote
	store    *store.Store
	notifier Notifier
	timeout  time.Duration
	onLogin  func()

	mu       sync.Mutex
	inflight map[flightKey]struct{}
}

type flightKey struct {
	kind model.Kind
	id   string
}

// New creates a reconciler and the store it drives. cache may be nil.
func New(remote Remote, cache store.SnapshotCache, opts Options) *Reconciler {
	r := &Reconciler{
		remote:   remote,
		notifier: opts.Notifier,
		timeout:  opts.Timeout,
		onLogin:  opts.OnLoginRequired,
		inflight: make(map[flightKey]struct{}),
	}
	if r.notifier == nil {
		r.notifier = discard{}
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	r.store = store.New(r, cache)
	return r
}

// Store returns the store this reconciler mutates
func (r *Reconciler) Store() *store.Store { return r.store }

// mutation describes one pass through the protocol
type mutation struct {
	kind   model.Kind
	id     string // busy-guard key; the temporary id for creates
	action string // "create project", used in failure messages

	validate func() error
	// optimistic is applied before the call and undone on failure
	optimistic *store.Change
	call       func(ctx context.Context) (model.Entity, error)
	// confirm turns the server's answer into the change that settles the store
	confirm func(model.Entity) *store.Change
	success string
}

func (r *Reconciler) reconcile(ctx context.Context, m mutation) (model.Entity, error) {
	if m.validate != nil {
		if err := m.validate(); err != nil {
			r.notify(Warning, capitalize(err.Error()))
			return nil, err
		}
	}

	if !r.remote.IsLoggedIn() {
		r.requireLogin()
		return nil, api.ErrNoSession
	}

	release, err := r.claim(m.kind, m.id)
	if err != nil {
		r.notify(Warning, capitalize(err.Error()))
		return nil, err
	}
	defer release()

	var inverse *store.Change
	if m.optimistic != nil {
		inv, err := r.store.Apply(*m.optimistic)
		if err != nil {
			r.notify(Error, fmt.Sprintf("Failed to %s", m.action))
			return nil, err
		}
		inverse = &inv
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	entity, err := m.call(callCtx)
	if err != nil {
		if inverse != nil {
			if _, rerr := r.store.Apply(*inverse); rerr != nil {
				logger.Warn("Revert failed", logger.F("action", m.action), logger.F("id", m.id), logger.F("error", rerr))
			}
		}
		logger.Warn("Remote change failed",
			logger.F("action", m.action),
			logger.F("id", m.id),
			logger.F("duration", time.Since(start)),
			logger.F("error", err))

		r.notify(Error, failureMessage(m.action, err))
		if api.IsUnauthorized(err) {
			r.requireLogin()
		}
		return nil, err
	}

	if m.confirm != nil {
		if c := m.confirm(entity); c != nil {
			if _, err := r.store.Apply(*c); err != nil {
				logger.Warn("Confirm not applied", logger.F("action", m.action), logger.F("id", m.id), logger.F("error", err))
			}
		}
	}

	logger.Info("Remote change applied", logger.F("action", m.action), logger.F("duration", time.Since(start)))
	r.notify(Success, m.success)
	r.persist(ctx, m.kind)
	return entity, nil
}

// claim marks (kind, id) in flight until release is called
func (r *Reconciler) claim(kind model.Kind, id string) (func(), error) {
	key := flightKey{kind, id}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[key]; busy {
		return nil, ErrBusy
	}
	r.inflight[key] = struct{}{}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.inflight, key)
	}, nil
}

// Busy reports whether a change to the entity is in flight
func (r *Reconciler) Busy(kind model.Kind, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, busy := r.inflight[flightKey{kind, id}]
	return busy
}

func (r *Reconciler) notify(level Level, msg string) {
	r.notifier.Notify(Notification{Level: level, Message: msg})
}

func (r *Reconciler) requireLogin() {
	logger.Info("Login required")
	if r.onLogin != nil {
		r.onLogin()
	}
}

// persist writes the snapshot of the scope that holds kind
func (r *Reconciler) persist(ctx context.Context, kind model.Kind) {
	sk := scopeKindOf(kind)
	if scope, ok := r.store.CurrentScope(sk); ok {
		r.store.PersistSnapshot(context.WithoutCancel(ctx), scope)
	}
}

func scopeKindOf(kind model.Kind) store.ScopeKind {
	switch kind {
	case model.KindProject:
		return store.ScopeProjects
	case model.KindSection:
		return store.ScopeSections
	default:
		return store.ScopeNotes
	}
}

// failureMessage prefers the server's own words
func failureMessage(action string, err error) string {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.UserMessage(fmt.Sprintf("Failed to %s", action))
	case errors.Is(err, api.ErrNoSession):
		return "Please log in again"
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Timed out trying to %s", action)
	case errors.Is(err, api.ErrTransport):
		return fmt.Sprintf("Failed to %s: server unreachable", action)
	default:
		return fmt.Sprintf("Failed to %s", action)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
