// Package server is the reference IronNote API server.
package server

import (
	"net/http"
	"time"

	"github.com/existflow/ironnote/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// sessionTTL is how long a login stays valid
const sessionTTL = 30 * 24 * time.Hour

// Server is the API server
type Server struct {
	repo Repository
	echo *echo.Echo
}

// New creates a server backed by Postgres at dbURL, or by memory when
// dbURL is empty
func New(dbURL string) (*Server, error) {
	if dbURL == "" {
		logger.Warn("DATABASE_URL not set, data is kept in memory only")
		return NewWithRepository(NewMemoryRepository()), nil
	}

	repo, err := NewPostgresRepository(dbURL)
	if err != nil {
		return nil, err
	}
	return NewWithRepository(repo), nil
}

// NewWithRepository creates a server on top of repo
func NewWithRepository(repo Repository) *Server {
	s := &Server{repo: repo}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	// Health check
	e.GET("/health", s.handleHealth)

	// API v1
	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)

	// Auth endpoints (public)
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)

	// Protected endpoints
	protected := api.Group("")
	protected.Use(s.authMiddleware)
	protected.GET("/me", s.handleMe)
	protected.POST("/logout", s.handleLogout)

	protected.GET("/users/:id/projects", s.handleListProjects)
	protected.POST("/projects", s.handleCreateProject)
	protected.PATCH("/projects/:id", s.handleUpdateProject)
	protected.DELETE("/projects/:id", s.handleDeleteProject)

	protected.GET("/projects/:id/sections", s.handleListSections)
	protected.POST("/sections", s.handleCreateSection)
	protected.PATCH("/sections/:id", s.handleUpdateSection)
	protected.DELETE("/sections/:id", s.handleDeleteSection)

	protected.GET("/sections/:id/notes", s.handleListNotes)
	protected.POST("/notes", s.handleCreateNote)
	protected.PATCH("/notes/:id", s.handleUpdateNote)
	protected.DELETE("/notes/:id", s.handleDeleteNote)

	protected.GET("/notes/:id/todos", s.handleListTodos)
	protected.POST("/todos", s.handleCreateTodo)
	protected.PATCH("/todos/:id", s.handleUpdateTodo)
	protected.DELETE("/todos/:id", s.handleDeleteTodo)

	s.echo = e
}

// Close closes the repository
func (s *Server) Close() error {
	return s.repo.Close()
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// fail writes the error body every non-2xx response carries
func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}
