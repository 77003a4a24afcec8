package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/ironnote/internal/api"
	"github.com/existflow/ironnote/internal/logger"
	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/order"
	"github.com/existflow/ironnote/internal/reconcile"
	"github.com/existflow/ironnote/internal/store"
)

// Init starts the first load, the clock and the background listeners
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadProjectsCmd(),
		tickCmd(),
		m.waitForNotice(),
		m.watchCache(),
		m.waitForCacheChange(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.notice != nil && time.Since(m.noticeAt) >= noticeTTL {
			m.notice = nil
		}
		return m, tickCmd()

	case refreshMsg:
		m.clampCursors()
		return m, nil

	case noticeMsg:
		n := reconcile.Notification(msg)
		m.notice = &n
		m.noticeAt = time.Now()
		return m, m.waitForNotice()

	case cacheChangedMsg:
		logger.Debug("Cache changed by another process, reloading")
		m.message = "Changes from another session, reloading"
		return m, tea.Batch(m.reloadCmd(), m.waitForCacheChange())

	case watchEndedMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			logger.Warn("Cache watcher stopped", logger.F("error", msg.err))
		}
		return m, nil

	case loadedMsg:
		return m.handleLoaded(msg)

	case doneMsg:
		m.clampCursors()
		if msg.edit != nil && msg.err != nil && m.mode == ModeNormal {
			m.resumeEdit(*msg.edit)
		}
		return m, nil

	case loggedOutMsg:
		switch {
		case errors.Is(msg.err, api.ErrNoSession):
			m.message = "Not logged in"
		case msg.err != nil:
			m.message = fmt.Sprintf("Logout failed: %v", msg.err)
		default:
			m.message = "Logged out"
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		// Handle mode-specific input
		switch m.mode {
		case ModeAdd, ModeEdit:
			return m.updateInput(msg)
		case ModeConfirmDelete:
			return m.handleConfirmKeys(msg)
		case ModeDrag:
			return m.handleDragKeys(msg)
		case ModeViewText, ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}

		// Normal mode key handling
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

// handleLoaded drills down to the first project and section the first
// time their parents arrive
func (m Model) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	m.clampCursors()
	if msg.err != nil {
		if !quietError(msg.err) {
			m.message = fmt.Sprintf("Showing %s from cache", msg.kind)
		}
		if msg.kind != store.ScopeProjects || m.store().State(store.ScopeProjects).Status != store.StatusStale {
			return m, nil
		}
	}

	switch msg.kind {
	case store.ScopeProjects:
		if _, open := m.store().CurrentScope(store.ScopeSections); !open {
			if p, ok := m.currentProject(); ok {
				return m, m.loadCmd(store.SectionsScope(p.ID))
			}
		}
	case store.ScopeSections:
		if _, open := m.store().CurrentScope(store.ScopeNotes); !open {
			if s, ok := m.currentSection(); ok {
				return m, m.loadCmd(store.NotesScope(s.ID))
			}
		}
	}
	return m, nil
}

// handleNormalKeys handles key presses in normal mode
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message = ""

	switch {
	case key.Matches(msg, keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp

	case key.Matches(msg, keys.Tab):
		m.pane = (m.pane + 1) % 3

	case key.Matches(msg, keys.Left):
		if m.pane > PaneProjects {
			m.pane--
		}

	case key.Matches(msg, keys.Right):
		if m.pane < PaneNotes {
			m.pane++
		}

	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, keys.Enter):
		return m.open()

	case key.Matches(msg, keys.Add):
		return m.startAdd()

	case key.Matches(msg, keys.NewNote):
		s, ok := m.openSection()
		if !ok {
			m.message = "Open a section first"
			return m, nil
		}
		return m.beginInput(ModeAdd, model.KindNote, s.ID, "New note title...")

	case key.Matches(msg, keys.Edit):
		if t, ok := m.selected(); ok {
			return m.startEdit(t)
		}

	case key.Matches(msg, keys.Done):
		if r, ok := m.currentRow(); ok && m.pane == PaneNotes && r.isTodo {
			return m, m.toggleCmd(r.todo.ID)
		}

	case key.Matches(msg, keys.Delete):
		if t, ok := m.selected(); ok {
			return m.startDelete(t)
		}

	case key.Matches(msg, keys.Grab):
		if r, ok := m.currentRow(); ok && m.pane == PaneNotes && r.isTodo {
			m.startDrag(r.todo.ID, order.RegionHandle)
		}

	case key.Matches(msg, keys.View):
		s, ok := m.currentSection()
		if m.pane != PaneSections || !ok {
			s, ok = m.openSection()
		}
		if ok {
			m.target = target{model.KindSection, s.ID, s.Title}
			m.mode = ModeViewText
		}

	case key.Matches(msg, keys.Refresh):
		m.message = "Reloading..."
		return m, m.reloadCmd()

	case key.Matches(msg, keys.Logout):
		return m, m.logoutCmd()
	}

	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.pane {
	case PaneProjects:
		m.projCursor = clamp(m.projCursor+delta, len(m.store().Projects()))
	case PaneSections:
		m.secCursor = clamp(m.secCursor+delta, len(m.store().Sections()))
	case PaneNotes:
		m.rowCursor = clamp(m.rowCursor+delta, len(m.rows()))
	}
}

// open loads the children of the selected project or section, or toggles
// the selected todo
func (m Model) open() (tea.Model, tea.Cmd) {
	switch m.pane {
	case PaneProjects:
		p, ok := m.currentProject()
		if !ok {
			return m, nil
		}
		m.secCursor = 0
		m.pane = PaneSections
		return m, m.loadCmd(store.SectionsScope(p.ID))

	case PaneSections:
		s, ok := m.currentSection()
		if !ok {
			return m, nil
		}
		m.rowCursor = 0
		m.pane = PaneNotes
		return m, m.loadCmd(store.NotesScope(s.ID))

	case PaneNotes:
		if r, ok := m.currentRow(); ok && r.isTodo {
			return m, m.toggleCmd(r.todo.ID)
		}
	}
	return m, nil
}

func (m Model) startAdd() (tea.Model, tea.Cmd) {
	switch m.pane {
	case PaneProjects:
		return m.beginInput(ModeAdd, model.KindProject, "", "New project name...")

	case PaneSections:
		p, ok := m.openProject()
		if !ok {
			m.message = "Open a project first"
			return m, nil
		}
		return m.beginInput(ModeAdd, model.KindSection, p.ID, "New section title...")

	case PaneNotes:
		if r, ok := m.currentRow(); ok {
			return m.beginInput(ModeAdd, model.KindTodo, r.note.ID, "New todo...")
		}
		if s, ok := m.openSection(); ok {
			return m.beginInput(ModeAdd, model.KindNote, s.ID, "New note title...")
		}
		m.message = "Open a section first"
	}
	return m, nil
}

func (m Model) beginInput(mode Mode, kind model.Kind, parentID, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.addKind = kind
	m.addParent = parentID
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
	return m, nil
}

func (m Model) startEdit(t target) (tea.Model, tea.Cmd) {
	if err := m.store().BeginEdit(t.kind, t.id, t.label); err != nil {
		m.message = editError(t.kind, err)
		return m, nil
	}
	m.resumeEdit(t)
	return m, nil
}

// resumeEdit opens the edit modal on the draft of a live edit session
func (m *Model) resumeEdit(t target) {
	st := m.store().Edits().State(t.kind, t.id)
	if st.Mode != store.Editing {
		return
	}
	m.mode = ModeEdit
	m.target = t
	m.input.Placeholder = fmt.Sprintf("%s...", t.kind)
	m.input.SetValue(st.Draft)
	m.input.CursorEnd()
	m.input.Focus()
}

func editError(kind model.Kind, err error) string {
	switch {
	case errors.Is(err, store.ErrEditInProgress):
		return fmt.Sprintf("Another %s is being edited", kind)
	case errors.Is(err, store.ErrPendingDelete):
		return "Confirm or cancel the delete first"
	default:
		return err.Error()
	}
}

func (m Model) startDelete(t target) (tea.Model, tea.Cmd) {
	if err := m.rec.RequestDelete(t.kind, t.id); err != nil {
		m.message = editError(t.kind, err)
		return m, nil
	}
	m.target = t
	m.mode = ModeConfirmDelete
	return m, nil
}

func (m Model) toggleCmd(todoID string) tea.Cmd {
	rec := m.rec
	return m.mutate(func(ctx context.Context) error {
		return rec.ToggleTodo(ctx, todoID)
	})
}

// updateInput handles the add and edit modals
func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == ModeEdit {
			m.store().Edits().CancelEdit(m.target.kind, m.target.id)
		}
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil

	case tea.KeyEnter:
		value := m.input.Value()
		mode := m.mode
		m.mode = ModeNormal
		m.input.Blur()

		if mode == ModeEdit {
			if err := m.store().Edits().SetDraft(m.target.kind, m.target.id, value); err != nil {
				m.message = editError(m.target.kind, err)
				return m, nil
			}
			return m, m.commitEditCmd(m.target)
		}
		return m, m.createCmd(m.addKind, m.addParent, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := m.target
	switch {
	case key.Matches(msg, keys.Yes):
		m.mode = ModeNormal
		rec := m.rec
		return m, m.mutate(func(ctx context.Context) error {
			return rec.ConfirmDelete(ctx, t.kind, t.id)
		})
	case key.Matches(msg, keys.No):
		m.rec.CancelDelete(t.kind, t.id)
		m.mode = ModeNormal
	}
	return m, nil
}

func (m *Model) startDrag(todoID string, region order.Region) bool {
	if err := m.drag.Start(todoID, region); err != nil {
		return false
	}
	m.mode = ModeDrag
	m.message = "Moving todo: ↑/↓ to choose, enter to drop, esc to cancel"
	return true
}

func (m Model) handleDragKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.drag.Cancel()
		m.mode = ModeNormal
		m.message = ""

	case key.Matches(msg, keys.Up):
		m.dragStep(-1)

	case key.Matches(msg, keys.Down):
		m.dragStep(1)

	case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Grab):
		m.drop(m.drag.Target())
	}
	return m, nil
}

// dragStep moves the drop target to the neighbouring todo of the same note
func (m *Model) dragStep(delta int) {
	rows := m.rows()
	from := m.rowIndex(model.KindTodo, m.drag.From())
	cur := m.rowIndex(model.KindTodo, m.drag.Target())
	if from < 0 || cur < 0 {
		return
	}
	noteID := rows[from].note.ID
	next := cur + delta
	if next < 0 || next >= len(rows) || !rows[next].isTodo || rows[next].note.ID != noteID {
		return
	}
	m.drag.Over(rows[next].todo.ID)
	m.rowCursor = next
}

// drop finishes the gesture on toID and reorders the note's todos
func (m *Model) drop(toID string) {
	m.mode = ModeNormal
	m.message = ""

	from := m.rowIndex(model.KindTodo, m.drag.From())
	fromID, toID, err := m.drag.Drop(toID)
	if err != nil || from < 0 || toID == "" {
		return
	}
	noteID := m.rows()[from].note.ID
	if err := m.rec.Reorder(m.ctx, noteID, fromID, toID); err != nil {
		logger.Warn("Reorder failed", logger.F("todo", fromID), logger.F("error", err))
		m.message = fmt.Sprintf("Could not move todo: %v", err)
		return
	}
	if i := m.rowIndex(model.KindTodo, fromID); i >= 0 {
		m.rowCursor = i
	}
}

// handleMouse maps clicks to the pane, row and region under the pointer
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	pane := paneAt(msg.X)
	idx := msg.Y - listTop

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || m.mode != ModeNormal {
			return m, nil
		}
		return m.click(pane, idx, msg.X-notesLeft)

	case tea.MouseActionMotion:
		if m.mode == ModeDrag && pane == PaneNotes {
			rows := m.rows()
			from := m.rowIndex(model.KindTodo, m.drag.From())
			if idx >= 0 && idx < len(rows) && from >= 0 &&
				rows[idx].isTodo && rows[idx].note.ID == rows[from].note.ID {
				m.drag.Over(rows[idx].todo.ID)
				m.rowCursor = idx
			}
		}

	case tea.MouseActionRelease:
		if m.mode == ModeDrag {
			m.drop(m.drag.Target())
		}
	}
	return m, nil
}

func (m Model) click(pane Pane, idx, col int) (tea.Model, tea.Cmd) {
	m.message = ""
	switch pane {
	case PaneProjects:
		if idx < 0 || idx >= len(m.store().Projects()) {
			return m, nil
		}
		m.pane, m.projCursor = PaneProjects, idx
		return m.open()

	case PaneSections:
		if idx < 0 || idx >= len(m.store().Sections()) {
			return m, nil
		}
		m.pane, m.secCursor = PaneSections, idx
		return m.open()
	}

	rows := m.rows()
	if idx < 0 || idx >= len(rows) {
		return m, nil
	}
	m.pane, m.rowCursor = PaneNotes, idx
	r := rows[idx]
	if !r.isTodo {
		return m, nil
	}

	region := todoRegion(col, m.notesWidth())
	if m.startDrag(r.todo.ID, region) {
		return m, nil
	}
	t := target{model.KindTodo, r.todo.ID, r.todo.Content}
	switch region {
	case order.RegionCheckbox:
		return m, m.toggleCmd(r.todo.ID)
	case order.RegionEditButton:
		return m.startEdit(t)
	case order.RegionDeleteButton:
		return m.startDelete(t)
	}
	return m, nil
}
