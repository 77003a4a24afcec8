package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/ironnote/internal/api"
	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/reconcile"
	"github.com/existflow/ironnote/internal/store"
)

// tickMsg is sent every second for time updates
type tickMsg time.Time

// refreshMsg asks for a repaint after an optimistic change landed
type refreshMsg struct{}

// noticeMsg carries a notification from the reconciler
type noticeMsg reconcile.Notification

// cacheChangedMsg is sent when another process wrote the cache
type cacheChangedMsg struct{}

// watchEndedMsg is sent when the cache watcher stops
type watchEndedMsg struct{ err error }

// loadedMsg is sent when a scope load finished, successfully or not
type loadedMsg struct {
	kind store.ScopeKind
	err  error
}

// doneMsg is sent when a mutation finished. edit is set when the mutation
// committed an edit session.
type doneMsg struct {
	err  error
	edit *target
}

// loggedOutMsg is sent after the session was dropped
type loggedOutMsg struct{ err error }

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// repaintSoon lets the optimistic change of an in-flight mutation show
// before the server answers
func repaintSoon() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

// waitForNotice listens for reconciler notifications
func (m Model) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		select {
		case n := <-m.notices:
			return noticeMsg(n)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// waitForCacheChange listens for cache writes from other processes
func (m Model) waitForCacheChange() tea.Cmd {
	if m.cache == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-m.cacheChan:
			return cacheChangedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// watchCache runs the cache watcher until the model is closed
func (m Model) watchCache() tea.Cmd {
	if m.cache == nil {
		return nil
	}
	c, ch, ctx := m.cache, m.cacheChan, m.ctx
	return func() tea.Msg {
		err := c.Watch(ctx, func() {
			// Non-blocking send to trigger UI refresh
			select {
			case ch <- struct{}{}:
			default:
			}
		})
		return watchEndedMsg{err: err}
	}
}

func (m Model) loadProjectsCmd() tea.Cmd {
	rec, ctx := m.rec, m.ctx
	return func() tea.Msg {
		return loadedMsg{kind: store.ScopeProjects, err: rec.LoadProjects(ctx)}
	}
}

func (m Model) loadCmd(scope store.Scope) tea.Cmd {
	rec, ctx := m.rec, m.ctx
	return func() tea.Msg {
		return loadedMsg{kind: scope.Kind, err: rec.Load(ctx, scope)}
	}
}

// reloadCmd refreshes every scope currently on screen
func (m Model) reloadCmd() tea.Cmd {
	cmds := []tea.Cmd{m.loadProjectsCmd()}
	for _, kind := range []store.ScopeKind{store.ScopeSections, store.ScopeNotes} {
		if scope, ok := m.store().CurrentScope(kind); ok {
			cmds = append(cmds, m.loadCmd(scope))
		}
	}
	return tea.Batch(cmds...)
}

// mutate runs fn off the UI loop. The reconciler reports the outcome
// through notifications, so doneMsg only carries the error for bookkeeping.
func (m Model) mutate(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return tea.Batch(func() tea.Msg {
		return doneMsg{err: fn(ctx)}
	}, repaintSoon())
}

func (m Model) commitEditCmd(t target) tea.Cmd {
	rec, ctx := m.rec, m.ctx
	return tea.Batch(func() tea.Msg {
		return doneMsg{err: rec.CommitEdit(ctx, t.kind, t.id), edit: &t}
	}, repaintSoon())
}

func (m Model) createCmd(kind model.Kind, parentID, text string) tea.Cmd {
	rec := m.rec
	return m.mutate(func(ctx context.Context) error {
		var err error
		switch kind {
		case model.KindProject:
			_, err = rec.CreateProject(ctx, model.NewProject(text, "", ""))
		case model.KindSection:
			_, err = rec.CreateSection(ctx, model.NewSection(parentID, text, "", ""))
		case model.KindNote:
			_, err = rec.CreateNote(ctx, model.NewNote(parentID, text))
		case model.KindTodo:
			_, err = rec.CreateTodo(ctx, model.NewTodo(parentID, text))
		}
		return err
	})
}

func (m Model) logoutCmd() tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		if !client.IsLoggedIn() {
			return loggedOutMsg{err: api.ErrNoSession}
		}
		return loggedOutMsg{err: client.Logout(ctx)}
	}
}

// quietError reports errors the reconciler already surfaced
func quietError(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, api.ErrNoSession)
}
