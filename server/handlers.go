package server

import (
	"errors"
	"net/http"

	"github.com/existflow/ironnote/internal/logger"
	"github.com/existflow/ironnote/internal/model"
	"github.com/labstack/echo/v4"
)

// Ownership. Entities of other users read as missing so ids do not leak.

func (s *Server) ownedProject(c echo.Context, id string) (model.Project, error) {
	p, err := s.repo.GetProject(c.Request().Context(), id)
	if err != nil {
		return model.Project{}, err
	}
	if p.CreatedBy != userID(c) {
		return model.Project{}, ErrNotFound
	}
	return p, nil
}

func (s *Server) ownedSection(c echo.Context, id string) (model.Section, error) {
	sec, err := s.repo.GetSection(c.Request().Context(), id)
	if err != nil {
		return model.Section{}, err
	}
	if _, err := s.ownedProject(c, sec.ProjectID); err != nil {
		return model.Section{}, err
	}
	return sec, nil
}

func (s *Server) ownedNote(c echo.Context, id string) (model.Note, error) {
	n, err := s.repo.GetNote(c.Request().Context(), id)
	if err != nil {
		return model.Note{}, err
	}
	if _, err := s.ownedSection(c, n.SectionID); err != nil {
		return model.Note{}, err
	}
	return n, nil
}

func (s *Server) ownedTodo(c echo.Context, id string) (model.Todo, error) {
	t, err := s.repo.GetTodo(c.Request().Context(), id)
	if err != nil {
		return model.Todo{}, err
	}
	if _, err := s.ownedNote(c, t.NoteID); err != nil {
		return model.Todo{}, err
	}
	return t, nil
}

// repoError maps a repository error to a response
func repoError(c echo.Context, kind model.Kind, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fail(c, http.StatusNotFound, string(kind)+" not found")
	}
	logger.Error("Repository error",
		logger.F("kind", kind),
		logger.F("uri", c.Request().RequestURI),
		logger.F("error", err))
	return fail(c, http.StatusInternalServerError, "internal error")
}

// validator is implemented by entities and patches
type validator interface {
	Validate() error
}

// invalid writes a 400 when v does not validate
func invalid(c echo.Context, v validator) (bool, error) {
	if err := v.Validate(); err != nil {
		return true, fail(c, http.StatusBadRequest, err.Error())
	}
	return false, nil
}

// Projects

func (s *Server) handleListProjects(c echo.Context) error {
	if c.Param("id") != userID(c) {
		return fail(c, http.StatusForbidden, "cannot list another user's projects")
	}
	projects, err := s.repo.ListProjects(c.Request().Context(), userID(c))
	if err != nil {
		return repoError(c, model.KindProject, err)
	}
	return c.JSON(http.StatusOK, projects)
}

func (s *Server) handleCreateProject(c echo.Context) error {
	var req model.Project
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	p := model.NewProject(req.Name, req.Color, req.Description)
	p.CreatedBy = userID(c)
	if bad, err := invalid(c, p); bad {
		return err
	}

	created, err := s.repo.CreateProject(c.Request().Context(), p)
	if err != nil {
		return repoError(c, model.KindProject, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateProject(c echo.Context) error {
	p, err := s.ownedProject(c, c.Param("id"))
	if err != nil {
		return repoError(c, model.KindProject, err)
	}

	var patch model.ProjectPatch
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	if bad, err := invalid(c, patch); bad {
		return err
	}

	p = patch.Apply(p)
	if err := s.repo.UpdateProject(c.Request().Context(), p); err != nil {
		return repoError(c, model.KindProject, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeleteProject(c echo.Context) error {
	p, err := s.ownedProject(c, c.Param("id"))
	if err != nil {
		return repoError(c, model.KindProject, err)
	}
	if err := s.repo.DeleteProject(c.Request().Context(), p.ID); err != nil {
		return repoError(c, model.KindProject, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Sections

func (s *Server) handleListSections(c echo.Context) error {
	p, err := s.ownedProject(c, c.Param("id"))
	if err != nil {
		return repoError(c, model.KindProject, err)
	}
	sections, err := s.repo.ListSections(c.Request().Context(), p.ID)
	if err != nil {
		return repoError(c, model.KindSection, err)
	}
	return c.JSON(http.StatusOK, sections)
}

func (s *Server) handleCreateSection(c echo.Context) error {
	var req model.Section
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	sec := model.NewSection(req.ProjectID, req.Title, req.Text, req.Color)
	if bad, err := invalid(c, sec); bad {
		return err
	}
	if _, err := s.ownedProject(c, sec.ProjectID); err != nil {
		return repoError(c, model.KindProject, err)
	}

	created, err := s.repo.CreateSection(c.Request().Context(), sec)
	if err != nil {
		return repoError(c, model.KindSection, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateSection(c echo.Context) error {
	sec, err := s.ownedSection(c, c.Param("id"))
	if err != nil {
		return repoError(c, model.KindSection, err)
	}

	var patch model.SectionPatch
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	if bad, err := invalid(c, patch); bad {
		return err
	}

	sec = patch.Apply(sec)
	if err := s.repo.UpdateSection(c.Request().Context(), sec); err != nil {
		return repoError(c, model.KindSection, err)
	}
	return c.JSON(http.StatusOK, sec)
}

func (s *Server) handleDeleteSection(c echo.Context) error {
	sec, err := s.ownedSection(c, c.Param("id"))
	if err != nil {
		return repoError(c, model.KindSection, err)
	}
	if err := s.repo.DeleteSection(c.Request().Context(), sec.ID); err != nil {
		return repoError(c, model.KindSection, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Notes

func (s *Server) handleListNotes(c echo.Context) error {
	sec, err := s.ownedSection(c, c.Param("id"))
	if err != nil {
		return repoError(c, model.KindSection, err)
	}
	notes, err := s.repo.ListNotes(c.Request().Context(), sec.ID)
	if err != nil {
		return repoError(c, model.KindNote, err)
	}
	return c.JSON(http.StatusOK, notes)
}

func (s *Server) handleCreateNote(c echo.Context) error {
	var req model.Note
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	n := model.NewNote(req.SectionID, req.Title)
	if bad, err := invalid(c, n); bad {
		return err
	}
	if _, err := s.ownedSection(c, n.SectionID); err != nil {
		return repoError(c, model.KindSection, err)
	}

	created, err := s.repo.CreateNote(c.Request().Context(), n)
	if err != nil {
		return repoError(c, model.KindNote, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateNote(c echo.Context) error {
	n, err := s.ownedNote(c, c.Param("id"))
	if err != nil {
		return repoError(c, model.KindNote, err)
	}

	var patch model.NotePatch
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	if bad, err := invalid(c, patch); bad {
		return err
	}

	n = patch.Apply(n)
	if err := s.repo.UpdateNote(c.Request().Context(), n); err != nil {
		return repoError(c, model.KindNote, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) handleDeleteNote(c echo.Context) error {
	n, err := s.ownedNote(c, c.Param("id"))
	if err != nil {
		return repoError(c, model.KindNote, err)
	}
	if err := s.repo.DeleteNote(c.Request().Context(), n.ID); err != nil {
		return repoError(c, model.KindNote, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Todos

func (s *Server) handleListTodos(c echo.Context) error {
	n, err := s.ownedNote(c, c.Param("id"))
	if err != nil {
		return repoError(c, model.KindNote, err)
	}
	todos, err := s.repo.ListTodos(c.Request().Context(), n.ID)
	if err != nil {
		return repoError(c, model.KindTodo, err)
	}
	return c.JSON(http.StatusOK, todos)
}

func (s *Server) handleCreateTodo(c echo.Context) error {
	var req model.Todo
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	t := model.NewTodo(req.NoteID, req.Content)
	t.IsCompleted = req.IsCompleted
	if bad, err := invalid(c, t); bad {
		return err
	}
	if _, err := s.ownedNote(c, t.NoteID); err != nil {
		return repoError(c, model.KindNote, err)
	}

	created, err := s.repo.CreateTodo(c.Request().Context(), t)
	if err != nil {
		return repoError(c, model.KindTodo, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateTodo(c echo.Context) error {
	t, err := s.ownedTodo(c, c.Param("id"))
	if err != nil {
		return repoError(c, model.KindTodo, err)
	}

	var patch model.TodoPatch
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	if bad, err := invalid(c, patch); bad {
		return err
	}

	t = patch.Apply(t)
	if err := s.repo.UpdateTodo(c.Request().Context(), t); err != nil {
		return repoError(c, model.KindTodo, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleDeleteTodo(c echo.Context) error {
	t, err := s.ownedTodo(c, c.Param("id"))
	if err != nil {
		return repoError(c, model.KindTodo, err)
	}
	if err := s.repo.DeleteTodo(c.Request().Context(), t.ID); err != nil {
		return repoError(c, model.KindTodo, err)
	}
	return c.NoContent(http.StatusNoContent)
}
