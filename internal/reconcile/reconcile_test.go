package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/ironnote/internal/api"
	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/order"
	"github.com/existflow/ironnote/internal/store"
)

func newTestReconciler(t *testing.T, remote *fakeRemote) (*Reconciler, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	return New(remote, nil, Options{Notifier: rec, Timeout: time.Second}), rec
}

// withNote gives the remote one note with todos A, B, C and loads it
func withNote(t *testing.T, remote *fakeRemote, r *Reconciler) {
	t.Helper()
	remote.notes = []model.Note{{ID: "n1", SectionID: "s1", Title: "Groceries"}}
	for _, id := range []string{"A", "B", "C"} {
		remote.todos = append(remote.todos, model.Todo{ID: id, NoteID: "n1", Content: "item " + id})
	}
	require.NoError(t, r.Load(context.Background(), store.NotesScope("s1")))
}

func todoIDs(r *Reconciler) []string {
	return order.IDs(r.Store().Todos("n1"), model.Todo.GetID)
}

func TestCreateProjectTakesServerID(t *testing.T) {
	remote := newFakeRemote()
	r, rec := newTestReconciler(t, remote)
	ctx := context.Background()
	require.NoError(t, r.LoadProjects(ctx))
	require.Empty(t, r.Store().Projects())

	id, err := r.CreateProject(ctx, model.Project{Name: "X"})
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	projects := r.Store().Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, "42", projects[0].ID)
	assert.Equal(t, "X", projects[0].Name)
	assert.Equal(t, model.DefaultProjectColor, projects[0].Color)

	assert.Equal(t, 1, rec.Count(Success))
	assert.Equal(t, 0, rec.Count(Error))
}

func TestBlankCreateNeverCallsOrMutates(t *testing.T) {
	remote := newFakeRemote()
	r, rec := newTestReconciler(t, remote)
	ctx := context.Background()

	_, err := r.CreateProject(ctx, model.Project{Name: "   "})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	_, err = r.CreateTodo(ctx, model.Todo{NoteID: "n1", Content: "\t"})
	require.Error(t, err)

	assert.Zero(t, remote.total())
	assert.Empty(t, r.Store().Projects())
	assert.Equal(t, 2, rec.Count(Warning))
	assert.Len(t, rec.All(), 2)
}

func TestFailedCreateDropsTemporaryEntity(t *testing.T) {
	remote := newFakeRemote()
	remote.fail["CreateProject"] = &api.Error{Status: 500, Message: "database unavailable"}
	r, rec := newTestReconciler(t, remote)

	_, err := r.CreateProject(context.Background(), model.Project{Name: "Work"})
	require.Error(t, err)

	assert.Empty(t, r.Store().Projects())
	require.Len(t, rec.All(), 1)
	last, _ := rec.Last()
	assert.Equal(t, Notification{Level: Error, Message: "database unavailable"}, last)
}

func TestCreateTodoAppendsAndConfirms(t *testing.T) {
	remote := newFakeRemote()
	r, _ := newTestReconciler(t, remote)
	withNote(t, remote, r)

	id, err := r.CreateTodo(context.Background(), model.Todo{NoteID: "n1", Content: "  eggs  "})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", id}, todoIDs(r))
	td, ok := r.Store().Todo(id)
	require.True(t, ok)
	assert.Equal(t, "eggs", td.Content)
	assert.False(t, model.IsTempID(id))
}

func TestFailedTodoUpdateReverts(t *testing.T) {
	remote := newFakeRemote()
	r, rec := newTestReconciler(t, remote)
	withNote(t, remote, r)
	remote.fail["UpdateTodo"] = fmt.Errorf("%w: connection refused", api.ErrTransport)

	err := r.UpdateTodo(context.Background(), "B", model.TodoPatch{
		Content:     model.Ptr("changed"),
		IsCompleted: model.Ptr(true),
	})
	require.ErrorIs(t, err, api.ErrTransport)

	td, _ := r.Store().Todo("B")
	assert.Equal(t, model.Todo{ID: "B", NoteID: "n1", Content: "item B"}, td)
	assert.Equal(t, 1, rec.Count(Error))
	assert.Len(t, rec.All(), 1)
}

func TestToggleTodo(t *testing.T) {
	remote := newFakeRemote()
	r, _ := newTestReconciler(t, remote)
	withNote(t, remote, r)

	require.NoError(t, r.ToggleTodo(context.Background(), "A"))
	td, _ := r.Store().Todo("A")
	assert.True(t, td.IsCompleted)
	assert.ErrorIs(t, r.ToggleTodo(context.Background(), "zzz"), store.ErrNotFound)
}

func TestNoSessionCallsLoginHook(t *testing.T) {
	remote := newFakeRemote()
	remote.loggedIn = false
	hooked := 0
	r := New(remote, nil, Options{OnLoginRequired: func() { hooked++ }})

	_, err := r.CreateProject(context.Background(), model.Project{Name: "Work"})
	assert.ErrorIs(t, err, api.ErrNoSession)
	assert.Equal(t, 1, hooked)
	assert.Zero(t, remote.total())
	assert.Empty(t, r.Store().Projects())
}

func TestUnauthorizedResponseCallsLoginHook(t *testing.T) {
	remote := newFakeRemote()
	hooked := 0
	rec := &Recorder{}
	r := New(remote, nil, Options{Notifier: rec, OnLoginRequired: func() { hooked++ }})
	withNote(t, remote, r)
	remote.fail["UpdateTodo"] = &api.Error{Status: 401, Message: "session expired"}

	err := r.UpdateTodo(context.Background(), "A", model.TodoPatch{IsCompleted: model.Ptr(true)})
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, 1, hooked)
	assert.Equal(t, 1, rec.Count(Error))
}

func TestDeleteIsTwoPhase(t *testing.T) {
	remote := newFakeRemote()
	r, _ := newTestReconciler(t, remote)
	withNote(t, remote, r)
	ctx := context.Background()

	assert.ErrorIs(t, r.ConfirmDelete(ctx, model.KindTodo, "B"), store.ErrNotPending)

	require.NoError(t, r.RequestDelete(model.KindTodo, "B"))
	assert.Equal(t, []string{"A", "B", "C"}, todoIDs(r))
	assert.True(t, r.CancelDelete(model.KindTodo, "B"))
	assert.Equal(t, []string{"A", "B", "C"}, todoIDs(r))
	assert.Zero(t, remote.count("DeleteTodo"))

	require.NoError(t, r.RequestDelete(model.KindTodo, "B"))
	require.NoError(t, r.ConfirmDelete(ctx, model.KindTodo, "B"))
	assert.Equal(t, []string{"A", "C"}, todoIDs(r))
	assert.Equal(t, 1, remote.count("DeleteTodo"))
	assert.False(t, r.Store().Edits().IsPendingDelete(model.KindTodo, "B"))
}

func TestFailedDeleteKeepsEntity(t *testing.T) {
	remote := newFakeRemote()
	r, rec := newTestReconciler(t, remote)
	withNote(t, remote, r)
	remote.fail["DeleteNote"] = &api.Error{Status: 500}

	require.NoError(t, r.RequestDelete(model.KindNote, "n1"))
	require.Error(t, r.ConfirmDelete(context.Background(), model.KindNote, "n1"))

	assert.True(t, r.Store().Has(model.KindNote, "n1"))
	assert.True(t, r.Store().Edits().IsPendingDelete(model.KindNote, "n1"))
	last, _ := rec.Last()
	assert.Equal(t, Notification{Level: Error, Message: "Failed to delete note"}, last)
}

func TestSecondMutationOfSameEntityIsBusy(t *testing.T) {
	remote := newFakeRemote()
	gate := remote.block("UpdateTodo")
	r, _ := newTestReconciler(t, remote)
	withNote(t, remote, r)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- r.UpdateTodo(ctx, "A", model.TodoPatch{Content: model.Ptr("first")})
	}()
	require.Eventually(t, func() bool { return r.Busy(model.KindTodo, "A") }, time.Second, 5*time.Millisecond)

	err := r.UpdateTodo(ctx, "A", model.TodoPatch{Content: model.Ptr("second")})
	assert.ErrorIs(t, err, ErrBusy)
	// other entities are not blocked by the guard
	assert.False(t, r.Busy(model.KindTodo, "B"))

	close(gate)
	require.NoError(t, <-done)
	td, _ := r.Store().Todo("A")
	assert.Equal(t, "first", td.Content)
	assert.Equal(t, 1, remote.count("UpdateTodo"))
}

func TestRemoteCallTimesOut(t *testing.T) {
	remote := newFakeRemote()
	defer close(remote.block("UpdateTodo"))
	rec := &Recorder{}
	r := New(remote, nil, Options{Notifier: rec, Timeout: 20 * time.Millisecond})
	withNote(t, remote, r)

	err := r.UpdateTodo(context.Background(), "C", model.TodoPatch{IsCompleted: model.Ptr(true)})
	require.True(t, errors.Is(err, context.DeadlineExceeded))

	td, _ := r.Store().Todo("C")
	assert.False(t, td.IsCompleted)
	last, _ := rec.Last()
	assert.Equal(t, "Timed out trying to update todo", last.Message)
}

func TestReorderIsLocalAndSurvivesReload(t *testing.T) {
	remote := newFakeRemote()
	r, _ := newTestReconciler(t, remote)
	withNote(t, remote, r)
	ctx := context.Background()
	before := remote.total()

	require.NoError(t, r.Reorder(ctx, "n1", "A", "C"))
	assert.Equal(t, []string{"B", "C", "A"}, todoIDs(r))
	assert.Equal(t, before, remote.total())

	require.NoError(t, r.Reorder(ctx, "n1", "B", "B"))
	assert.Equal(t, []string{"B", "C", "A"}, todoIDs(r))

	require.NoError(t, r.Load(ctx, store.NotesScope("s1")))
	assert.Equal(t, []string{"B", "C", "A"}, todoIDs(r))
}

func TestLoadListsTodosPerNote(t *testing.T) {
	remote := newFakeRemote()
	r, _ := newTestReconciler(t, remote)
	remote.notes = []model.Note{
		{ID: "n1", SectionID: "s1", Title: "One"},
		{ID: "n2", SectionID: "s1", Title: "Two"},
		{ID: "n3", SectionID: "s1", Title: "Three"},
	}
	remote.todos = []model.Todo{{ID: "t1", NoteID: "n2", Content: "x"}}

	require.NoError(t, r.Load(context.Background(), store.NotesScope("s1")))
	assert.Equal(t, 3, remote.count("ListTodos"))

	n2, _ := r.Store().Note("n2")
	assert.Len(t, n2.Todos, 1)
	n1, _ := r.Store().Note("n1")
	assert.NotNil(t, n1.Todos)
	assert.Empty(t, n1.Todos)
}

func TestLoadFailureIsReportedOnce(t *testing.T) {
	remote := newFakeRemote()
	remote.fail["ListSections"] = &api.Error{Status: 503, Message: "maintenance"}
	r, rec := newTestReconciler(t, remote)

	err := r.Load(context.Background(), store.SectionsScope("p1"))
	require.Error(t, err)

	st := r.Store().State(store.ScopeSections)
	assert.Equal(t, store.StatusFailed, st.Status)
	assert.Equal(t, 1, remote.count("ListSections"))
	require.Len(t, rec.All(), 1)
	assert.Equal(t, "maintenance", rec.All()[0].Message)
}

func TestCommitEdit(t *testing.T) {
	remote := newFakeRemote()
	r, _ := newTestReconciler(t, remote)
	withNote(t, remote, r)
	ctx := context.Background()
	edits := r.Store().Edits()

	require.NoError(t, r.Store().BeginEdit(model.KindTodo, "A", "item A"))
	require.NoError(t, edits.SetDraft(model.KindTodo, "A", "   "))
	require.Error(t, r.CommitEdit(ctx, model.KindTodo, "A"))
	assert.Equal(t, store.Editing, edits.State(model.KindTodo, "A").Mode)

	require.NoError(t, edits.SetDraft(model.KindTodo, "A", "  bread "))
	require.NoError(t, r.CommitEdit(ctx, model.KindTodo, "A"))

	td, _ := r.Store().Todo("A")
	assert.Equal(t, "bread", td.Content)
	assert.Equal(t, store.Viewing, edits.State(model.KindTodo, "A").Mode)
}

func TestNoteTitleUpdateKeepsTodos(t *testing.T) {
	remote := newFakeRemote()
	r, _ := newTestReconciler(t, remote)
	withNote(t, remote, r)

	require.NoError(t, r.UpdateNote(context.Background(), "n1", model.NotePatch{Title: model.Ptr("Shopping")}))
	n, _ := r.Store().Note("n1")
	assert.Equal(t, "Shopping", n.Title)
	assert.Len(t, n.Todos, 3)
}

func TestFailedNoteUpdateKeepsTodoChanges(t *testing.T) {
	remote := newFakeRemote()
	r, rec := newTestReconciler(t, remote)
	withNote(t, remote, r)
	ctx := context.Background()
	gate := remote.block("UpdateNote")

	done := make(chan error, 1)
	go func() {
		done <- r.UpdateNote(ctx, "n1", model.NotePatch{Title: model.Ptr("Shopping")})
	}()
	require.Eventually(t, func() bool {
		n, _ := r.Store().Note("n1")
		return n.Title == "Shopping"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Reorder(ctx, "n1", "A", "C"))
	id, err := r.CreateTodo(ctx, model.Todo{NoteID: "n1", Content: "D"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A", id}, todoIDs(r))

	remote.mu.Lock()
	remote.fail["UpdateNote"] = &api.Error{Status: 500, Message: "title locked"}
	remote.mu.Unlock()
	close(gate)
	require.Error(t, <-done)

	n, _ := r.Store().Note("n1")
	assert.Equal(t, "Groceries", n.Title)
	assert.Equal(t, []string{"B", "C", "A", id}, todoIDs(r))
	last, _ := rec.Last()
	assert.Equal(t, Notification{Level: Error, Message: "title locked"}, last)
}

func TestCreateLandsAfterReloadDuringCall(t *testing.T) {
	remote := newFakeRemote()
	r, rec := newTestReconciler(t, remote)
	withNote(t, remote, r)
	ctx := context.Background()
	gate := remote.block("CreateTodo")

	type created struct {
		id  string
		err error
	}
	done := make(chan created, 1)
	go func() {
		id, err := r.CreateTodo(ctx, model.Todo{NoteID: "n1", Content: "D"})
		done <- created{id, err}
	}()
	require.Eventually(t, func() bool { return len(todoIDs(r)) == 4 }, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Load(ctx, store.NotesScope("s1")))
	assert.Equal(t, []string{"A", "B", "C"}, todoIDs(r))

	close(gate)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, []string{"A", "B", "C", res.id}, todoIDs(r))
	last, _ := rec.Last()
	assert.Equal(t, Notification{Level: Success, Message: `Created todo "D"`}, last)
}

func TestCreateAfterReloadDoesNotDuplicate(t *testing.T) {
	remote := newFakeRemote()
	r, _ := newTestReconciler(t, remote)
	withNote(t, remote, r)
	ctx := context.Background()
	gate := remote.block("CreateTodo")

	done := make(chan error, 1)
	go func() {
		_, err := r.CreateTodo(ctx, model.Todo{NoteID: "n1", Content: "D"})
		done <- err
	}()
	require.Eventually(t, func() bool { return len(todoIDs(r)) == 4 }, time.Second, 5*time.Millisecond)

	// the reload already sees the todo the server is about to confirm
	remote.mu.Lock()
	remote.todos = append(remote.todos, model.Todo{ID: "42", NoteID: "n1", Content: "D"})
	remote.mu.Unlock()
	require.NoError(t, r.Load(ctx, store.NotesScope("s1")))

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"A", "B", "C", "42"}, todoIDs(r))
}
