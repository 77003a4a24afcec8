package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/existflow/ironnote/internal/api"
	"github.com/existflow/ironnote/internal/cache"
	"github.com/existflow/ironnote/internal/logger"
	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/order"
	"github.com/existflow/ironnote/internal/reconcile"
	"github.com/existflow/ironnote/internal/store"
)

// Pane represents which pane is focused
type Pane int

const (
	PaneProjects Pane = iota
	PaneSections
	PaneNotes
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAdd
	ModeEdit
	ModeConfirmDelete
	ModeDrag
	ModeViewText
	ModeHelp
)

// target is the entity a modal acts on
type target struct {
	kind  model.Kind
	id    string
	label string
}

// row is one line of the notes pane: a note header or one of its todos
type row struct {
	note   model.Note
	todo   model.Todo
	isTodo bool
}

func (r row) kind() model.Kind {
	if r.isTodo {
		return model.KindTodo
	}
	return model.KindNote
}

func (r row) id() string {
	if r.isTodo {
		return r.todo.ID
	}
	return r.note.ID
}

func (r row) label() string {
	if r.isTodo {
		return r.todo.Content
	}
	return r.note.Title
}

// Model is the main TUI model
type Model struct {
	rec    *reconcile.Reconciler
	client *api.Client
	cache  *cache.Cache

	ctx    context.Context
	cancel context.CancelFunc

	notices   chan reconcile.Notification // filled by the reconciler, drained by waitForNotice
	cacheChan chan struct{}               // signalled when another process writes the cache

	// UI state
	width      int
	height     int
	pane       Pane
	mode       Mode
	projCursor int
	secCursor  int
	rowCursor  int

	// Input
	input     textinput.Model
	addKind   model.Kind
	addParent string
	target    target

	drag order.Drag

	notice   *reconcile.Notification
	noticeAt time.Time
	message  string
}

// noticeTTL is how long a notification stays in the status bar
const noticeTTL = 5 * time.Second

// NewModel creates a new TUI model. c may be nil when the cache could not
// be opened.
func NewModel(client *api.Client, c *cache.Cache, timeout time.Duration) Model {
	logger.Info("Initializing TUI model")

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		client:    client,
		cache:     c,
		ctx:       ctx,
		cancel:    cancel,
		notices:   make(chan reconcile.Notification, 16),
		cacheChan: make(chan struct{}, 1), // Buffered to avoid blocking
		pane:      PaneProjects,
		mode:      ModeNormal,
		input:     ti,
	}

	var snapshots store.SnapshotCache
	if c != nil {
		snapshots = c
	}
	notices := m.notices
	m.rec = reconcile.New(client, snapshots, reconcile.Options{
		Timeout:  timeout,
		Notifier: channelNotifier(notices),
		OnLoginRequired: func() {
			channelNotifier(notices).Notify(reconcile.Notification{
				Level:   reconcile.Warning,
				Message: "Not logged in. Run 'ironnote auth login' first.",
			})
		},
	})

	// paint from the cache before the first fetch returns
	if userID, err := client.UserID(); err == nil {
		m.rec.Hydrate(ctx, store.ProjectsScope(userID))
	}
	return m
}

// channelNotifier forwards notifications to the UI loop, dropping them when
// the UI has fallen behind
func channelNotifier(ch chan<- reconcile.Notification) reconcile.Notifier {
	return reconcile.NotifierFunc(func(n reconcile.Notification) {
		select {
		case ch <- n:
		default:
			logger.Warn("Notification dropped", logger.F("message", n.Message))
		}
	})
}

func (m *Model) store() *store.Store { return m.rec.Store() }

func (m *Model) currentProject() (model.Project, bool) {
	projects := m.store().Projects()
	if m.projCursor < len(projects) {
		return projects[m.projCursor], true
	}
	return model.Project{}, false
}

// openProject is the project whose sections are held
func (m *Model) openProject() (model.Project, bool) {
	scope, ok := m.store().CurrentScope(store.ScopeSections)
	if !ok {
		return model.Project{}, false
	}
	return m.store().Project(scope.ID)
}

func (m *Model) currentSection() (model.Section, bool) {
	sections := m.store().Sections()
	if m.secCursor < len(sections) {
		return sections[m.secCursor], true
	}
	return model.Section{}, false
}

// openSection is the section whose notes are held
func (m *Model) openSection() (model.Section, bool) {
	scope, ok := m.store().CurrentScope(store.ScopeNotes)
	if !ok {
		return model.Section{}, false
	}
	return m.store().Section(scope.ID)
}

// rows flattens the held notes and their todos in display order
func (m *Model) rows() []row {
	var rows []row
	for _, n := range m.store().Notes() {
		rows = append(rows, row{note: n})
		for _, t := range n.Todos {
			rows = append(rows, row{note: n, todo: t, isTodo: true})
		}
	}
	return rows
}

func (m *Model) currentRow() (row, bool) {
	rows := m.rows()
	if m.rowCursor < len(rows) {
		return rows[m.rowCursor], true
	}
	return row{}, false
}

// selected returns the entity under the cursor of the focused pane
func (m *Model) selected() (target, bool) {
	switch m.pane {
	case PaneProjects:
		if p, ok := m.currentProject(); ok {
			return target{model.KindProject, p.ID, p.Name}, true
		}
	case PaneSections:
		if s, ok := m.currentSection(); ok {
			return target{model.KindSection, s.ID, s.Title}, true
		}
	case PaneNotes:
		if r, ok := m.currentRow(); ok {
			return target{r.kind(), r.id(), r.label()}, true
		}
	}
	return target{}, false
}

// clampCursors keeps cursors in range after the collections change
func (m *Model) clampCursors() {
	m.projCursor = clamp(m.projCursor, len(m.store().Projects()))
	m.secCursor = clamp(m.secCursor, len(m.store().Sections()))
	m.rowCursor = clamp(m.rowCursor, len(m.rows()))
}

// rowIndex returns the position of the row holding id, or -1
func (m *Model) rowIndex(kind model.Kind, id string) int {
	for i, r := range m.rows() {
		if r.kind() == kind && r.id() == id {
			return i
		}
	}
	return -1
}

func clamp(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}
