package store

import (
	"context"
	"time"

	"github.com/existflow/ironnote/internal/model"
)

// ScopeKind names the collection a scope loads
type ScopeKind string

const (
	ScopeProjects ScopeKind = "projects" // projects of a user
	ScopeSections ScopeKind = "sections" // sections of a project
	ScopeNotes    ScopeKind = "notes"    // notes of a section, with their todos
)

// Scope identifies one loadable collection
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id"`
}

func ProjectsScope(userID string) Scope    { return Scope{Kind: ScopeProjects, ID: userID} }
func SectionsScope(projectID string) Scope { return Scope{Kind: ScopeSections, ID: projectID} }
func NotesScope(sectionID string) Scope    { return Scope{Kind: ScopeNotes, ID: sectionID} }

// Key is the durable cache key for the scope
func (s Scope) Key() string {
	return string(s.Kind) + ":" + s.ID
}

func (s Scope) String() string { return s.Key() }

// Snapshot is the content of one scope, as fetched or as cached
type Snapshot struct {
	Scope     Scope           `json:"scope"`
	Projects  []model.Project `json:"projects,omitempty"`
	Sections  []model.Section `json:"sections,omitempty"`
	Notes     []model.Note    `json:"notes,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Fetcher loads a scope from the authoritative source
type Fetcher interface {
	Fetch(ctx context.Context, scope Scope) (Snapshot, error)
}

// SnapshotCache is the durable mirror. internal/cache.Cache implements it.
type SnapshotCache interface {
	Put(ctx context.Context, key string, v any) error
	Get(ctx context.Context, key string, v any) error
}

// LoadStatus describes what the held collection of a scope kind reflects
type LoadStatus int

const (
	StatusEmpty  LoadStatus = iota // never loaded
	StatusReady                    // last fetch succeeded
	StatusStale                    // fetch failed, showing the cached snapshot
	StatusFailed                   // fetch failed, nothing cached
	StatusCached                   // hydrated from cache, not fetched yet
)

func (s LoadStatus) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusStale:
		return "stale"
	case StatusFailed:
		return "failed"
	case StatusCached:
		return "cached"
	default:
		return "empty"
	}
}

// ScopeState is the UI-visible load state of a scope kind
type ScopeState struct {
	Scope    Scope
	Status   LoadStatus
	Err      error
	LoadedAt time.Time
}
