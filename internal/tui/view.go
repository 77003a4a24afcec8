package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/order"
	"github.com/existflow/ironnote/internal/store"
)

// Layout. Mouse handling relies on these staying in sync with the renderers.
const (
	projectsWidth = 22
	sectionsWidth = 26
	// first list line: one line of padding plus four header lines
	listTop = 5
	// first column of the notes pane content: both columns, their right
	// borders and the notes pane padding
	notesLeft = projectsWidth + 1 + sectionsWidth + 1 + 2

	// todo row layout: "❯ ⠿ [x] content ✎ ✗"
	handleCol   = 2
	checkboxCol = 4
	prefixWidth = 8
	suffix      = " ✎ ✗"
	suffixWidth = 4
)

// paneAt returns the pane under screen column x
func paneAt(x int) Pane {
	switch {
	case x < projectsWidth+1:
		return PaneProjects
	case x < projectsWidth+1+sectionsWidth+1:
		return PaneSections
	default:
		return PaneNotes
	}
}

// todoRegion maps a column inside a todo row of the given width to the
// part of the row drawn there
func todoRegion(col, width int) order.Region {
	switch {
	case col >= handleCol && col < checkboxCol:
		return order.RegionHandle
	case col >= checkboxCol && col < prefixWidth:
		return order.RegionCheckbox
	case col >= width-2 && col < width:
		return order.RegionDeleteButton
	case col >= width-4 && col < width-2:
		return order.RegionEditButton
	default:
		return order.RegionContent
	}
}

// notesWidth is the content width of the notes pane
func (m Model) notesWidth() int {
	w := m.width - notesLeft - 2
	if w < prefixWidth+suffixWidth+8 {
		w = prefixWidth + suffixWidth + 8
	}
	return w
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	// Build the layout
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderProjects(), m.renderSections(), m.renderNotes())

	switch m.mode {
	case ModeAdd, ModeEdit:
		mainContent = m.place(m.renderInputModal())
	case ModeConfirmDelete:
		mainContent = m.place(m.renderDeleteModal())
	case ModeViewText:
		mainContent = m.place(m.renderTextModal())
	case ModeHelp:
		mainContent = m.renderHelp()
	}

	// Combine with status bar
	return lipgloss.JoinVertical(lipgloss.Left, mainContent, m.renderStatusBar())
}

func (m Model) place(modal string) string {
	return lipgloss.Place(
		m.width, m.height-2,
		lipgloss.Center, lipgloss.Center,
		modal,
		lipgloss.WithWhitespaceChars(" "),
	)
}

func rule(width int) string {
	return lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", width))
}

// statusLine describes the load state of a scope kind
func (m Model) statusLine(kind store.ScopeKind) string {
	st := m.store().State(kind)
	switch st.Status {
	case store.StatusStale:
		return lipgloss.NewStyle().Foreground(Offline).Render("📴 offline")
	case store.StatusFailed:
		return lipgloss.NewStyle().Foreground(Danger).Render("✗ failed to load")
	case store.StatusCached:
		return HelpStyle.Render("cached, loading...")
	case store.StatusReady:
		return HelpStyle.Render("updated " + st.LoadedAt.Format("15:04:05"))
	default:
		if st.Scope.ID == "" && kind != store.ScopeProjects {
			return HelpStyle.Render("nothing open")
		}
		return HelpStyle.Render("loading...")
	}
}

func (m Model) itemStyle(pane Pane, selected bool) (string, lipgloss.Style) {
	if !selected {
		return "  ", ItemStyle
	}
	if m.pane == pane {
		return "❯ ", ItemSelectedStyle
	}
	return "❯ ", ItemStyle
}

// decorate marks entities waiting on the server or on a delete confirmation
func (m Model) decorate(kind model.Kind, id, line string, style lipgloss.Style) string {
	switch {
	case m.store().Edits().IsPendingDelete(kind, id):
		return DeletePendingStyle.Render(line + " 🗑️")
	case model.IsTempID(id), m.rec.Busy(kind, id):
		return PendingStyle.Render(line + " …")
	}
	return style.Render(line)
}

func (m Model) renderProjects() string {
	var s string
	s += HeaderStyle.Render("IronNote") + "\n"
	s += m.statusLine(store.ScopeProjects) + "\n"
	s += rule(projectsWidth-2) + "\n\n"

	open, _ := m.openProject()
	for i, p := range m.store().Projects() {
		cursor, style := m.itemStyle(PaneProjects, i == m.projCursor)
		marker := " "
		if p.ID == open.ID {
			marker = "•"
		}
		line := fmt.Sprintf("%s%s %s%s", cursor, colorDot(p.Color), truncate(p.Name, projectsWidth-8), marker)
		s += m.decorate(model.KindProject, p.ID, line, style) + "\n"
	}
	if len(m.store().Projects()) == 0 {
		s += HelpStyle.Render("No projects") + "\n"
	}

	s += "\n" + rule(projectsWidth-2) + "\n"
	s += HelpStyle.Render("a new project")

	return SidebarStyle.Width(projectsWidth).Height(m.height - 2).Render(s)
}

func (m Model) renderSections() string {
	var s string
	title := "Sections"
	if p, ok := m.openProject(); ok {
		title = truncate(p.Name, sectionsWidth-4)
	}
	s += HeaderStyle.Render(title) + "\n"
	s += m.statusLine(store.ScopeSections) + "\n"
	s += rule(sectionsWidth-2) + "\n\n"

	open, _ := m.openSection()
	for i, sec := range m.store().Sections() {
		cursor, style := m.itemStyle(PaneSections, i == m.secCursor)
		marker := " "
		if sec.ID == open.ID {
			marker = "•"
		}
		line := fmt.Sprintf("%s%s %s%s", cursor, colorDot(sec.Color), truncate(sec.Title, sectionsWidth-8), marker)
		s += m.decorate(model.KindSection, sec.ID, line, style) + "\n"
	}
	if _, ok := m.openProject(); ok && len(m.store().Sections()) == 0 {
		s += HelpStyle.Render("No sections") + "\n"
	}

	return ColumnStyle.Width(sectionsWidth).Height(m.height - 2).Render(s)
}

func (m Model) renderNotes() string {
	width := m.notesWidth()
	var s string

	sec, ok := m.openSection()
	if !ok {
		return NotesStyle.Width(width + 4).Height(m.height - 2).Render("No section selected")
	}

	pending, total := 0, 0
	for _, n := range m.store().Notes() {
		pending += n.Pending()
		total += len(n.Todos)
	}
	header := fmt.Sprintf("%s (%s todos)", sec.Title, countLabel(pending, total))
	s += HeaderStyle.Render(header) + "\n"
	s += m.statusLine(store.ScopeNotes) + "\n"
	s += rule(width) + "\n\n"

	rows := m.rows()
	if len(rows) == 0 {
		s += HelpStyle.Render("No notes yet. Press 'n' to add one.")
	}
	for i, r := range rows {
		if r.isTodo {
			s += m.renderTodoRow(r.todo, i == m.rowCursor, width) + "\n"
		} else {
			s += m.renderNoteRow(r.note, i == m.rowCursor) + "\n"
		}
	}

	return NotesStyle.Width(width + 4).Height(m.height - 2).Render(s)
}

func (m Model) renderNoteRow(n model.Note, selected bool) string {
	cursor, style := m.itemStyle(PaneNotes, selected)
	line := fmt.Sprintf("%s📝 %s  %s", cursor, NoteTitleStyle.Render(n.Title),
		HelpStyle.Render(countLabel(n.Pending(), len(n.Todos))))
	return m.decorate(model.KindNote, n.ID, line, style)
}

func (m Model) renderTodoRow(t model.Todo, selected bool, width int) string {
	cursor, style := m.itemStyle(PaneNotes, selected)
	box := "[ ]"
	if t.IsCompleted {
		box = "[x]"
		style = TodoDoneStyle
	}

	dragging := m.mode == ModeDrag
	switch {
	case dragging && t.ID == m.drag.From():
		style = DragStyle
	case dragging && t.ID == m.drag.Target():
		style = DropTargetStyle
	}

	content := padRight(truncate(t.Content, width-prefixWidth-suffixWidth), width-prefixWidth-suffixWidth)
	line := cursor + HandleStyle.Render("⠿") + " " + box + " " + content + HelpStyle.Render(suffix)
	return m.decorate(model.KindTodo, t.ID, line, style)
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.message != "":
		left = m.message
	case m.notice != nil:
		left = NoticeStyle(m.notice.Level).Render(m.notice.Message)
	default:
		left = "? help"
	}

	user := "not logged in"
	if m.client.IsLoggedIn() {
		user = "👤 " + m.client.Session().Username
	}
	right := fmt.Sprintf("%s  %s", user, time.Now().Format("15:04"))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return StatusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderInputModal() string {
	var title string
	if m.mode == ModeEdit {
		title = fmt.Sprintf("Edit %s", m.target.kind)
	} else {
		title = fmt.Sprintf("New %s", m.addKind)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		HeaderStyle.Render(title),
		"",
		m.input.View(),
		"",
		HelpStyle.Render("enter save • esc cancel"),
	)
	return ModalStyle.Width(60).Render(content)
}

func (m Model) renderDeleteModal() string {
	t := m.target
	warning := ""
	switch t.kind {
	case model.KindProject:
		warning = "Its sections, notes and todos are deleted too."
	case model.KindSection:
		warning = "Its notes and todos are deleted too."
	case model.KindNote:
		warning = "Its todos are deleted too."
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Foreground(Danger).Render(fmt.Sprintf("Delete %s?", t.kind)),
		"",
		truncate(t.label, 50),
		HelpStyle.Render(warning),
		"",
		HelpStyle.Render("y delete • n cancel"),
	)
	return DangerModalStyle.Width(60).Render(content)
}

func (m Model) renderTextModal() string {
	sec, ok := m.store().Section(m.target.id)
	if !ok {
		return ModalStyle.Render("Section is gone")
	}
	width := m.width * 2 / 3
	if width < 40 {
		width = 40
	}
	body := RenderMarkdown(sec.Text, width-6)
	if body == "" {
		body = HelpStyle.Render("This section has no text.")
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		HeaderStyle.Render(sec.Title),
		"",
		body,
		"",
		HelpStyle.Render("any key to close"),
	)
	return ModalStyle.Width(width).Render(content)
}

func (m Model) renderHelp() string {
	bindings := []struct{ keys, desc string }{
		{"↑/k ↓/j", "Move cursor"},
		{"←/h →/l tab", "Switch pane"},
		{"enter", "Open project or section, toggle todo"},
		{"a", "Add project, section or todo"},
		{"n", "New note in the open section"},
		{"e", "Edit selected item"},
		{"x / space", "Toggle todo"},
		{"d", "Delete selected item"},
		{"g", "Grab a todo, g or enter to drop"},
		{"v", "Show section text"},
		{"r", "Reload from server"},
		{"L", "Log out"},
		{"q", "Quit"},
	}

	var s string
	s += HeaderStyle.Render("IronNote keys") + "\n\n"
	for _, b := range bindings {
		s += fmt.Sprintf("  %-14s %s\n", b.keys, HelpStyle.Render(b.desc))
	}
	s += "\n" + HelpStyle.Render("Mouse: drag a todo by its ⠿ handle, click [ ] to toggle, ✎ to edit, ✗ to delete.")
	s += "\n\n" + HelpStyle.Render("Press any key to close")

	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, s)
}
