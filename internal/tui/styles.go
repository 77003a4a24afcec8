package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/ironnote/internal/reconcile"
)

// Color palette
var (
	// Notification colors
	NoticeSuccess = lipgloss.Color("#95E1A3") // Green
	NoticeWarning = lipgloss.Color("#FFE66D") // Yellow
	NoticeError   = lipgloss.Color("#FF6B6B") // Red
	Offline       = lipgloss.Color("#6C757D") // Gray

	// UI colors
	Primary   = lipgloss.Color("#4ECDC4")
	Secondary = lipgloss.Color("#6C757D")
	Surface   = lipgloss.Color("#16213e")
	Text      = lipgloss.Color("#FFFFFF")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
	Highlight = lipgloss.Color("#4ECDC4")
	Danger    = lipgloss.Color("#FF6B6B")
)

// Styles
var (
	// Header
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	// Projects column
	SidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(Border).
			Padding(1, 1)

	// Sections column
	ColumnStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(Border).
			Padding(1, 1)

	// Notes and todos
	NotesStyle = lipgloss.NewStyle().
			Padding(1, 2)

	ItemStyle = lipgloss.NewStyle()

	ItemSelectedStyle = lipgloss.NewStyle().
				Background(Surface).
				Bold(true)

	NoteTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Text)

	TodoDoneStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Strikethrough(true)

	// Rows waiting on the server or on a delete confirmation
	PendingStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true)

	DeletePendingStyle = lipgloss.NewStyle().
				Foreground(Danger)

	// Row being dragged
	DragStyle = lipgloss.NewStyle().
			Foreground(Highlight).
			Bold(true)

	DropTargetStyle = lipgloss.NewStyle().
			Foreground(Highlight).
			Underline(true)

	HandleStyle = lipgloss.NewStyle().Foreground(Secondary)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	// Input modal
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	DangerModalStyle = ModalStyle.
				BorderForeground(Danger)

	// Help text
	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)
)

// NoticeStyle returns the status bar style for a notification level
func NoticeStyle(level reconcile.Level) lipgloss.Style {
	switch level {
	case reconcile.Success:
		return lipgloss.NewStyle().Foreground(NoticeSuccess)
	case reconcile.Warning:
		return lipgloss.NewStyle().Foreground(NoticeWarning)
	default:
		return lipgloss.NewStyle().Foreground(NoticeError).Bold(true)
	}
}

// colorDot renders a project or section color swatch
func colorDot(hex string) string {
	if hex == "" {
		return HelpStyle.Render("●")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("●")
}
