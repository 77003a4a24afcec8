package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/existflow/ironnote/internal/model"
)

// fakeRemote is an in-memory API. Methods named in fail return that error.
type fakeRemote struct {
	mu       sync.Mutex
	loggedIn bool
	nextID   int
	calls    map[string]int
	fail     map[string]error
	gates    map[string]chan struct{} // methods listed here wait until their channel closes

	projects []model.Project
	sections []model.Section
	notes    []model.Note
	todos    []model.Todo
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		loggedIn: true,
		nextID:   42,
		calls:    make(map[string]int),
		fail:     make(map[string]error),
		gates:    make(map[string]chan struct{}),
	}
}

func (f *fakeRemote) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.fail[method]
}

func (f *fakeRemote) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRemote) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeRemote) id() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprint(f.nextID)
	f.nextID++
	return id
}

// block makes method wait until the returned channel is closed
func (f *fakeRemote) block(method string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[method] = gate
	return gate
}

func (f *fakeRemote) wait(ctx context.Context, method string) error {
	f.mu.Lock()
	gate := f.gates[method]
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeRemote) IsLoggedIn() bool { return f.loggedIn }

func (f *fakeRemote) UserID() (string, error) { return "u1", nil }

func (f *fakeRemote) ListProjects(_ context.Context, _ string) ([]model.Project, error) {
	if err := f.enter("ListProjects"); err != nil {
		return nil, err
	}
	return append([]model.Project{}, f.projects...), nil
}

func (f *fakeRemote) CreateProject(_ context.Context, p model.Project) (model.Project, error) {
	if err := f.enter("CreateProject"); err != nil {
		return model.Project{}, err
	}
	p.ID = f.id()
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeRemote) UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (model.Project, error) {
	if err := f.enter("UpdateProject"); err != nil {
		return model.Project{}, err
	}
	if err := f.wait(ctx, "UpdateProject"); err != nil {
		return model.Project{}, err
	}
	for i := range f.projects {
		if f.projects[i].ID == id {
			f.projects[i] = patch.Apply(f.projects[i])
			return f.projects[i], nil
		}
	}
	return model.Project{}, fmt.Errorf("no project %s", id)
}

func (f *fakeRemote) DeleteProject(_ context.Context, _ string) error {
	return f.enter("DeleteProject")
}

func (f *fakeRemote) ListSections(_ context.Context, _ string) ([]model.Section, error) {
	if err := f.enter("ListSections"); err != nil {
		return nil, err
	}
	return append([]model.Section{}, f.sections...), nil
}

func (f *fakeRemote) CreateSection(_ context.Context, s model.Section) (model.Section, error) {
	if err := f.enter("CreateSection"); err != nil {
		return model.Section{}, err
	}
	s.ID = f.id()
	return s, nil
}

func (f *fakeRemote) UpdateSection(_ context.Context, id string, patch model.SectionPatch) (model.Section, error) {
	if err := f.enter("UpdateSection"); err != nil {
		return model.Section{}, err
	}
	return patch.Apply(model.Section{ID: id}), nil
}

func (f *fakeRemote) DeleteSection(_ context.Context, _ string) error {
	return f.enter("DeleteSection")
}

func (f *fakeRemote) ListNotes(_ context.Context, _ string) ([]model.Note, error) {
	if err := f.enter("ListNotes"); err != nil {
		return nil, err
	}
	return append([]model.Note{}, f.notes...), nil
}

func (f *fakeRemote) CreateNote(_ context.Context, n model.Note) (model.Note, error) {
	if err := f.enter("CreateNote"); err != nil {
		return model.Note{}, err
	}
	n.ID = f.id()
	n.Todos = nil
	return n, nil
}

func (f *fakeRemote) UpdateNote(ctx context.Context, id string, patch model.NotePatch) (model.Note, error) {
	if err := f.wait(ctx, "UpdateNote"); err != nil {
		return model.Note{}, err
	}
	if err := f.enter("UpdateNote"); err != nil {
		return model.Note{}, err
	}
	for _, n := range f.notes {
		if n.ID == id {
			n = patch.Apply(n)
			n.Todos = nil
			return n, nil
		}
	}
	return model.Note{}, fmt.Errorf("no note %s", id)
}

func (f *fakeRemote) DeleteNote(_ context.Context, _ string) error {
	return f.enter("DeleteNote")
}

func (f *fakeRemote) ListTodos(_ context.Context, noteID string) ([]model.Todo, error) {
	if err := f.enter("ListTodos"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Todo
	for _, t := range f.todos {
		if t.NoteID == noteID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRemote) CreateTodo(ctx context.Context, t model.Todo) (model.Todo, error) {
	if err := f.enter("CreateTodo"); err != nil {
		return model.Todo{}, err
	}
	if err := f.wait(ctx, "CreateTodo"); err != nil {
		return model.Todo{}, err
	}
	t.ID = f.id()
	return t, nil
}

func (f *fakeRemote) UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (model.Todo, error) {
	if err := f.enter("UpdateTodo"); err != nil {
		return model.Todo{}, err
	}
	if err := f.wait(ctx, "UpdateTodo"); err != nil {
		return model.Todo{}, err
	}
	for _, t := range f.todos {
		if t.ID == id {
			return patch.Apply(t), nil
		}
	}
	return model.Todo{}, fmt.Errorf("no todo %s", id)
}

func (f *fakeRemote) DeleteTodo(_ context.Context, _ string) error {
	return f.enter("DeleteTodo")
}
