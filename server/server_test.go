package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/ironnote/internal/model"
)

type testUser struct {
	t      *testing.T
	h      http.Handler
	token  string
	userID string
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	srv := NewWithRepository(NewMemoryRepository())
	t.Cleanup(func() { _ = srv.Close() })
	return srv.Router()
}

// do sends body as JSON and decodes the response into out when given
func do(t *testing.T, h http.Handler, method, path, token string, body, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func register(t *testing.T, h http.Handler, username string) *testUser {
	t.Helper()
	var res authResponse
	rec := do(t, h, http.MethodPost, "/register", "", registerRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse",
	}, &res)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, res.Token)
	return &testUser{t: t, h: h, token: res.Token, userID: res.UserID}
}

func (u *testUser) do(method, path string, body, out any) *httptest.ResponseRecorder {
	u.t.Helper()
	return do(u.t, u.h, method, path, u.token, body, out)
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterLoginAndMe(t *testing.T) {
	h := newTestServer(t)
	alice := register(t, h, "alice")

	var me map[string]any
	rec := alice.do(http.MethodGet, "/me", nil, &me)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", me["username"])
	assert.NotContains(t, me, "password_hash")
	assert.NotContains(t, rec.Body.String(), "correct horse")

	rec = do(t, h, http.MethodPost, "/register", "", registerRequest{
		Username: "alice", Email: "other@example.com", Password: "correct horse",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/login", "", loginRequest{Username: "alice", Password: "wrong password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", errorBody(t, rec))

	var res authResponse
	rec = do(t, h, http.MethodPost, "/login", "", loginRequest{Username: "alice", Password: "correct horse"}, &res)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice.userID, res.UserID)
	assert.NotEqual(t, alice.token, res.Token)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/register", "", registerRequest{
		Username: "bob", Email: "bob@example.com", Password: "short",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "8 characters")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/me", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authorization required", errorBody(t, rec))

	rec = do(t, h, http.MethodPost, "/projects", "not-a-token", model.Project{Name: "X"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	h := newTestServer(t)
	alice := register(t, h, "alice")

	rec := alice.do(http.MethodPost, "/logout", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = alice.do(http.MethodGet, "/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProjectLifecycle(t *testing.T) {
	h := newTestServer(t)
	alice := register(t, h, "alice")

	rec := alice.do(http.MethodGet, "/users/"+alice.userID+"/projects", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	var p model.Project
	rec = alice.do(http.MethodPost, "/projects", model.Project{Name: "  Work  "}, &p)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Work", p.Name)
	assert.Equal(t, model.DefaultProjectColor, p.Color)
	assert.Equal(t, alice.userID, p.CreatedBy)

	var renamed model.Project
	rec = alice.do(http.MethodPatch, "/projects/"+p.ID, model.ProjectPatch{Name: model.Ptr("Home")}, &renamed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Home", renamed.Name)
	assert.Equal(t, p.Color, renamed.Color)

	rec = alice.do(http.MethodPatch, "/projects/"+p.ID, model.ProjectPatch{Name: model.Ptr("   ")}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "project name is required", errorBody(t, rec))

	var projects []model.Project
	alice.do(http.MethodGet, "/users/"+alice.userID+"/projects", nil, &projects)
	require.Len(t, projects, 1)
	assert.Equal(t, "Home", projects[0].Name)

	rec = alice.do(http.MethodDelete, "/projects/"+p.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = alice.do(http.MethodDelete, "/projects/"+p.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "project not found", errorBody(t, rec))
}

func TestCreateRejectsBlankFields(t *testing.T) {
	h := newTestServer(t)
	alice := register(t, h, "alice")

	rec := alice.do(http.MethodPost, "/projects", model.Project{Name: " "}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var p model.Project
	alice.do(http.MethodPost, "/projects", model.Project{Name: "P"}, &p)
	var s model.Section
	alice.do(http.MethodPost, "/sections", model.Section{ProjectID: p.ID, Title: "S"}, &s)
	var n model.Note
	alice.do(http.MethodPost, "/notes", model.Note{SectionID: s.ID, Title: "N"}, &n)

	rec = alice.do(http.MethodPost, "/todos", model.Todo{NoteID: n.ID, Content: "\t"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "todo content is required", errorBody(t, rec))
}

func TestDeletingProjectCascades(t *testing.T) {
	h := newTestServer(t)
	alice := register(t, h, "alice")

	var p model.Project
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/projects", model.Project{Name: "P"}, &p).Code)
	var s model.Section
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/sections", model.Section{ProjectID: p.ID, Title: "S", Text: "# Hi"}, &s).Code)
	var n model.Note
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/notes", model.Note{SectionID: s.ID, Title: "N"}, &n).Code)
	var todo model.Todo
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/todos", model.Todo{NoteID: n.ID, Content: "milk"}, &todo).Code)

	var todos []model.Todo
	alice.do(http.MethodGet, "/notes/"+n.ID+"/todos", nil, &todos)
	require.Len(t, todos, 1)

	var done model.Todo
	rec := alice.do(http.MethodPatch, "/todos/"+todo.ID, model.TodoPatch{IsCompleted: model.Ptr(true)}, &done)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, done.IsCompleted)
	assert.Equal(t, "milk", done.Content)

	require.Equal(t, http.StatusNoContent, alice.do(http.MethodDelete, "/projects/"+p.ID, nil, nil).Code)

	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, "/projects/"+p.ID+"/sections", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, "/sections/"+s.ID+"/notes", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, "/notes/"+n.ID+"/todos", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodPatch, "/todos/"+todo.ID, model.TodoPatch{IsCompleted: model.Ptr(false)}, nil).Code)
}

func TestUsersOnlySeeTheirOwnData(t *testing.T) {
	h := newTestServer(t)
	alice := register(t, h, "alice")
	bob := register(t, h, "bob")

	var p model.Project
	alice.do(http.MethodPost, "/projects", model.Project{Name: "Secret"}, &p)
	var s model.Section
	alice.do(http.MethodPost, "/sections", model.Section{ProjectID: p.ID, Title: "S"}, &s)

	rec := bob.do(http.MethodGet, "/users/"+alice.userID+"/projects", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = bob.do(http.MethodPatch, "/projects/"+p.ID, model.ProjectPatch{Name: model.Ptr("Mine")}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = bob.do(http.MethodPost, "/sections", model.Section{ProjectID: p.ID, Title: "Intrusion"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = bob.do(http.MethodDelete, "/sections/"+s.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var sections []model.Section
	alice.do(http.MethodGet, "/projects/"+p.ID+"/sections", nil, &sections)
	assert.Len(t, sections, 1)
}
