package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/existflow/ironnote/internal/model"
)

// Projects

// ListProjects returns the projects owned by userID
func (c *Client) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	var out []model.Project
	err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/users/%s/projects", url.PathEscape(userID)), true, nil, &out)
	return orEmpty(out), err
}

// CreateProject creates p and returns it with its server-assigned id
func (c *Client) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	p.ID = ""
	var out model.Project
	err := c.doRequest(ctx, http.MethodPost, "/projects", true, p, &out)
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (model.Project, error) {
	var out model.Project
	err := c.doRequest(ctx, http.MethodPatch, "/projects/"+url.PathEscape(id), true, patch, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id), true, nil, nil)
}

// Sections

func (c *Client) ListSections(ctx context.Context, projectID string) ([]model.Section, error) {
	var out []model.Section
	err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/projects/%s/sections", url.PathEscape(projectID)), true, nil, &out)
	return orEmpty(out), err
}

func (c *Client) CreateSection(ctx context.Context, s model.Section) (model.Section, error) {
	s.ID = ""
	var out model.Section
	err := c.doRequest(ctx, http.MethodPost, "/sections", true, s, &out)
	return out, err
}

func (c *Client) UpdateSection(ctx context.Context, id string, patch model.SectionPatch) (model.Section, error) {
	var out model.Section
	err := c.doRequest(ctx, http.MethodPatch, "/sections/"+url.PathEscape(id), true, patch, &out)
	return out, err
}

func (c *Client) DeleteSection(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/sections/"+url.PathEscape(id), true, nil, nil)
}

// Notes

func (c *Client) ListNotes(ctx context.Context, sectionID string) ([]model.Note, error) {
	var out []model.Note
	err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/sections/%s/notes", url.PathEscape(sectionID)), true, nil, &out)
	return orEmpty(out), err
}

// CreateNote creates the note without todos; todos are created separately
func (c *Client) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	n.ID = ""
	n.Todos = nil
	var out model.Note
	err := c.doRequest(ctx, http.MethodPost, "/notes", true, n, &out)
	return out, err
}

func (c *Client) UpdateNote(ctx context.Context, id string, patch model.NotePatch) (model.Note, error) {
	var out model.Note
	err := c.doRequest(ctx, http.MethodPatch, "/notes/"+url.PathEscape(id), true, patch, &out)
	return out, err
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/notes/"+url.PathEscape(id), true, nil, nil)
}

// Todos

func (c *Client) ListTodos(ctx context.Context, noteID string) ([]model.Todo, error) {
	var out []model.Todo
	err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/notes/%s/todos", url.PathEscape(noteID)), true, nil, &out)
	return orEmpty(out), err
}

func (c *Client) CreateTodo(ctx context.Context, t model.Todo) (model.Todo, error) {
	t.ID = ""
	var out model.Todo
	err := c.doRequest(ctx, http.MethodPost, "/todos", true, t, &out)
	return out, err
}

func (c *Client) UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (model.Todo, error) {
	var out model.Todo
	err := c.doRequest(ctx, http.MethodPatch, "/todos/"+url.PathEscape(id), true, patch, &out)
	return out, err
}

func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), true, nil, nil)
}

// orEmpty turns a JSON null list into an empty one
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
