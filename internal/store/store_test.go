package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/ironnote/internal/model"
	"github.com/existflow/ironnote/internal/order"
)

type fakeFetcher struct {
	snaps map[string]Snapshot
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, scope Scope) (Snapshot, error) {
	f.calls++
	if f.err != nil {
		return Snapshot{}, f.err
	}
	return f.snaps[scope.Key()], nil
}

type miss struct{}

func (miss) Error() string { return "miss" }
func (miss) Miss() bool    { return true }

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Put(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *memCache) Get(_ context.Context, key string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return miss{}
	}
	return json.Unmarshal(b, v)
}

func todoIDs(s *Store, noteID string) []string {
	return order.IDs(s.Todos(noteID), model.Todo.GetID)
}

func notesSnapshot(sectionID string, todos ...string) Snapshot {
	note := model.Note{ID: "n1", SectionID: sectionID, Title: "Groceries"}
	for _, id := range todos {
		note.Todos = append(note.Todos, model.Todo{ID: id, NoteID: "n1", Content: "item " + id})
	}
	return Snapshot{Scope: NotesScope(sectionID), Notes: []model.Note{note}}
}

func loadedStore(t *testing.T, todos ...string) *Store {
	t.Helper()
	f := &fakeFetcher{snaps: map[string]Snapshot{"notes:s1": notesSnapshot("s1", todos...)}}
	s := New(f, nil)
	require.NoError(t, s.Load(context.Background(), NotesScope("s1")))
	return s
}

func TestApplyReturnsInverse(t *testing.T) {
	s := New(&fakeFetcher{}, nil)

	p := model.Project{ID: "local-1", Name: "Work"}
	inv, err := s.Apply(Change{Op: OpAdd, Kind: model.KindProject, Entity: p, Index: -1})
	require.NoError(t, err)
	assert.Equal(t, OpRemove, inv.Op)
	assert.Len(t, s.Projects(), 1)

	_, err = s.Apply(inv)
	require.NoError(t, err)
	assert.Empty(t, s.Projects())
}

func TestApplyAddDuplicate(t *testing.T) {
	s := New(&fakeFetcher{}, nil)
	p := model.Project{ID: "1", Name: "Work"}
	_, err := s.Apply(Change{Op: OpAdd, Kind: model.KindProject, Entity: p})
	require.NoError(t, err)

	_, err = s.Apply(Change{Op: OpAdd, Kind: model.KindProject, Entity: p})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Len(t, s.Projects(), 1)
}

func TestApplyRemoveRestoresPosition(t *testing.T) {
	s := New(&fakeFetcher{}, nil)
	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Apply(Change{Op: OpAdd, Kind: model.KindSection, Index: -1,
			Entity: model.Section{ID: id, ProjectID: "p", Title: id}})
		require.NoError(t, err)
	}

	inv, err := s.Apply(Change{Op: OpRemove, Kind: model.KindSection, ID: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, order.IDs(s.Sections(), model.Section.GetID))

	_, err = s.Apply(inv)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order.IDs(s.Sections(), model.Section.GetID))
}

func TestReplaceSwapsTempID(t *testing.T) {
	s := New(&fakeFetcher{}, nil)
	tmp := model.Project{ID: "local-x", Name: "Work"}
	_, err := s.Apply(Change{Op: OpAdd, Kind: model.KindProject, Entity: tmp})
	require.NoError(t, err)
	require.NoError(t, s.BeginEdit(model.KindProject, "local-x", "Work"))

	_, err = s.Apply(Change{Op: OpReplace, Kind: model.KindProject, ID: "local-x",
		Entity: model.Project{ID: "42", Name: "Work"}})
	require.NoError(t, err)

	projects := s.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, "42", projects[0].ID)
	assert.False(t, s.Has(model.KindProject, "local-x"))

	id, ok := s.Edits().Active(model.KindProject)
	assert.True(t, ok)
	assert.Equal(t, "42", id)
}

func TestNoteUpdateKeepsTodos(t *testing.T) {
	s := loadedStore(t, "t1", "t2")

	_, err := s.Apply(Change{Op: OpUpdate, Kind: model.KindNote,
		Entity: model.Note{ID: "n1", SectionID: "s1", Title: "Shopping"}})
	require.NoError(t, err)

	n, ok := s.Note("n1")
	require.True(t, ok)
	assert.Equal(t, "Shopping", n.Title)
	assert.Len(t, n.Todos, 2)
}

func TestUndoingNoteUpdateKeepsLaterTodoChanges(t *testing.T) {
	s := loadedStore(t, "t1", "t2", "t3")

	held, _ := s.Note("n1")
	held.Title = "Shopping"
	inv, err := s.Apply(Change{Op: OpUpdate, Kind: model.KindNote, Entity: held})
	require.NoError(t, err)
	assert.Nil(t, inv.Entity.(model.Note).Todos)

	_, err = s.Apply(Change{Op: OpReorder, Kind: model.KindTodo, ParentID: "n1", ID: "t1", ToID: "t3"})
	require.NoError(t, err)
	_, err = s.Apply(Change{Op: OpAdd, Kind: model.KindTodo, ParentID: "n1", Index: -1,
		Entity: model.Todo{ID: "t4", NoteID: "n1", Content: "eggs"}})
	require.NoError(t, err)

	_, err = s.Apply(inv)
	require.NoError(t, err)

	n, _ := s.Note("n1")
	assert.Equal(t, "Groceries", n.Title)
	assert.Equal(t, []string{"t2", "t3", "t1", "t4"}, todoIDs(s, "n1"))
}

func TestRemovedNoteComesBackWithTodos(t *testing.T) {
	s := loadedStore(t, "t1", "t2")

	inv, err := s.Apply(Change{Op: OpRemove, Kind: model.KindNote, ID: "n1"})
	require.NoError(t, err)
	assert.False(t, s.Has(model.KindNote, "n1"))

	_, err = s.Apply(inv)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, todoIDs(s, "n1"))
}

func TestTodoAddAndUpdate(t *testing.T) {
	s := loadedStore(t, "t1")

	_, err := s.Apply(Change{Op: OpAdd, Kind: model.KindTodo, ParentID: "n1", Index: -1,
		Entity: model.Todo{ID: "t2", NoteID: "n1", Content: "milk"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, todoIDs(s, "n1"))

	inv, err := s.Apply(Change{Op: OpUpdate, Kind: model.KindTodo,
		Entity: model.Todo{ID: "t2", NoteID: "n1", Content: "milk", IsCompleted: true}})
	require.NoError(t, err)
	td, _ := s.Todo("t2")
	assert.True(t, td.IsCompleted)

	_, err = s.Apply(inv)
	require.NoError(t, err)
	td, _ = s.Todo("t2")
	assert.False(t, td.IsCompleted)
}

func TestReorderTodos(t *testing.T) {
	s := loadedStore(t, "A", "B", "C")

	inv, err := s.Apply(Change{Op: OpReorder, Kind: model.KindTodo, ParentID: "n1", ID: "A", ToID: "C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, todoIDs(s, "n1"))

	_, err = s.Apply(inv)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, todoIDs(s, "n1"))
}

func TestReorderKeepsEditSession(t *testing.T) {
	s := loadedStore(t, "A", "B", "C")
	require.NoError(t, s.BeginEdit(model.KindTodo, "B", "item B"))
	require.NoError(t, s.Edits().SetDraft(model.KindTodo, "B", "  edited  "))

	_, err := s.Apply(Change{Op: OpReorder, Kind: model.KindTodo, ParentID: "n1", ID: "B", ToID: "C"})
	require.NoError(t, err)

	id, ok := s.Edits().Active(model.KindTodo)
	require.True(t, ok)
	assert.Equal(t, "B", id)
	draft, err := s.Edits().Draft(model.KindTodo, "B")
	require.NoError(t, err)
	assert.Equal(t, "edited", draft)
}

func TestSingleEditPerKind(t *testing.T) {
	s := loadedStore(t, "A", "B")

	require.NoError(t, s.BeginEdit(model.KindTodo, "A", ""))
	assert.ErrorIs(t, s.BeginEdit(model.KindTodo, "B", ""), ErrEditInProgress)
	// kinds are independent
	assert.NoError(t, s.BeginEdit(model.KindNote, "n1", "Groceries"))

	s.Edits().CancelEdit(model.KindTodo, "A")
	assert.NoError(t, s.BeginEdit(model.KindTodo, "B", ""))
	assert.ErrorIs(t, s.BeginEdit(model.KindTodo, "missing", ""), ErrNotFound)
}

func TestRequestDeleteRemovesNothing(t *testing.T) {
	s := loadedStore(t, "A")

	require.NoError(t, s.RequestDelete(model.KindNote, "n1"))
	assert.True(t, s.Has(model.KindNote, "n1"))
	assert.True(t, s.Edits().IsPendingDelete(model.KindNote, "n1"))
	assert.ErrorIs(t, s.BeginEdit(model.KindNote, "n1", ""), ErrPendingDelete)

	assert.True(t, s.Edits().CancelDelete(model.KindNote, "n1"))
	assert.False(t, s.Edits().CancelDelete(model.KindNote, "n1"))
	assert.True(t, s.Has(model.KindNote, "n1"))
}

func TestRemoveNoteForgetsTodoEdits(t *testing.T) {
	s := loadedStore(t, "A")
	require.NoError(t, s.BeginEdit(model.KindTodo, "A", "x"))

	_, err := s.Apply(Change{Op: OpRemove, Kind: model.KindNote, ID: "n1"})
	require.NoError(t, err)

	_, ok := s.Edits().Active(model.KindTodo)
	assert.False(t, ok)
}

func TestReloadDropsEditsOfVanishedEntities(t *testing.T) {
	f := &fakeFetcher{snaps: map[string]Snapshot{"notes:s1": notesSnapshot("s1", "A", "B")}}
	s := New(f, nil)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, NotesScope("s1")))

	require.NoError(t, s.BeginEdit(model.KindTodo, "A", "draft"))
	require.NoError(t, s.RequestDelete(model.KindTodo, "B"))
	require.NoError(t, s.BeginEdit(model.KindNote, "n1", "Groceries"))

	f.snaps["notes:s1"] = notesSnapshot("s1", "B", "C")
	require.NoError(t, s.Load(ctx, NotesScope("s1")))

	assert.Equal(t, Viewing, s.Edits().State(model.KindTodo, "A").Mode)
	assert.NoError(t, s.BeginEdit(model.KindTodo, "C", "item C"))
	// entities that are still held keep their state
	assert.True(t, s.Edits().IsPendingDelete(model.KindTodo, "B"))
	assert.Equal(t, Editing, s.Edits().State(model.KindNote, "n1").Mode)
}

func TestLoadEmptyScope(t *testing.T) {
	s := New(&fakeFetcher{snaps: map[string]Snapshot{}}, nil)

	require.NoError(t, s.Load(context.Background(), SectionsScope("p1")))
	assert.NotNil(t, s.Sections())
	assert.Empty(t, s.Sections())
	assert.Equal(t, StatusReady, s.State(ScopeSections).Status)
}

func TestLoadReplacesCollection(t *testing.T) {
	f := &fakeFetcher{snaps: map[string]Snapshot{
		"projects:u1": {Projects: []model.Project{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}},
	}}
	s := New(f, nil)
	_, err := s.Apply(Change{Op: OpAdd, Kind: model.KindProject, Entity: model.Project{ID: "local-z", Name: "Z"}})
	require.NoError(t, err)

	require.NoError(t, s.Load(context.Background(), ProjectsScope("u1")))
	assert.Equal(t, []string{"1", "2"}, order.IDs(s.Projects(), model.Project.GetID))
}

func TestLoadFailureFallsBackToCache(t *testing.T) {
	c := newMemCache()
	f := &fakeFetcher{snaps: map[string]Snapshot{
		"projects:u1": {Projects: []model.Project{{ID: "1", Name: "A"}}},
	}}
	ctx := context.Background()

	require.NoError(t, New(f, c).Load(ctx, ProjectsScope("u1")))

	boom := errors.New("connection refused")
	f.err = boom
	s := New(f, c)
	err := s.Load(ctx, ProjectsScope("u1"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, f.calls)

	st := s.State(ScopeProjects)
	assert.Equal(t, StatusStale, st.Status)
	assert.ErrorIs(t, st.Err, boom)
	assert.Len(t, s.Projects(), 1)
}

func TestLoadFailureWithoutCache(t *testing.T) {
	f := &fakeFetcher{err: errors.New("down")}
	s := New(f, newMemCache())

	assert.Error(t, s.Load(context.Background(), ProjectsScope("u1")))
	assert.Equal(t, StatusFailed, s.State(ScopeProjects).Status)
	assert.Empty(t, s.Projects())
	assert.Equal(t, 1, f.calls)
}

func TestReloadKeepsLocalTodoOrder(t *testing.T) {
	c := newMemCache()
	f := &fakeFetcher{snaps: map[string]Snapshot{"notes:s1": notesSnapshot("s1", "A", "B", "C")}}
	ctx := context.Background()

	s := New(f, c)
	require.NoError(t, s.Load(ctx, NotesScope("s1")))
	_, err := s.Apply(Change{Op: OpReorder, Kind: model.KindTodo, ParentID: "n1", ID: "A", ToID: "C"})
	require.NoError(t, err)
	s.PersistSnapshot(ctx, NotesScope("s1"))

	// same process
	require.NoError(t, s.Load(ctx, NotesScope("s1")))
	assert.Equal(t, []string{"B", "C", "A"}, todoIDs(s, "n1"))

	// fresh process, order comes from the cache
	f.snaps["notes:s1"] = notesSnapshot("s1", "A", "B", "C", "D")
	fresh := New(f, c)
	require.NoError(t, fresh.Load(ctx, NotesScope("s1")))
	assert.Equal(t, []string{"B", "C", "A", "D"}, todoIDs(fresh, "n1"))
}

func TestLoadCached(t *testing.T) {
	c := newMemCache()
	ctx := context.Background()
	assert.False(t, New(&fakeFetcher{}, c).LoadCached(ctx, NotesScope("s1")))

	require.NoError(t, c.Put(ctx, "notes:s1", notesSnapshot("s1", "A")))
	s := New(&fakeFetcher{}, c)
	require.True(t, s.LoadCached(ctx, NotesScope("s1")))
	assert.Equal(t, StatusCached, s.State(ScopeNotes).Status)
	assert.Equal(t, []string{"A"}, todoIDs(s, "n1"))
}
