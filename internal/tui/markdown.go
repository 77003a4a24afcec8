package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

var (
	mdMu sync.Mutex
	// one renderer per wrap width; building one is not cheap
	mdRenderers = map[int]*glamour.TermRenderer{}
)

// RenderMarkdown renders section text for the terminal. It falls back to the
// raw text when rendering fails.
func RenderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}

	mdMu.Lock()
	defer mdMu.Unlock()

	r := mdRenderers[width]
	if r == nil {
		var err error
		// a fixed style avoids terminal background queries that can block inside the TUI
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRenderers[width] = r
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// countLabel formats "pending/total"
func countLabel(pending, total int) string {
	return fmt.Sprintf("%d/%d", pending, total)
}
