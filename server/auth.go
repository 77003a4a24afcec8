package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/ironnote/internal/logger"
	"github.com/existflow/ironnote/internal/model"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	UserID    string `json:"user_id"`
}

// handleRegister handles user registration
func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	// Validate
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "username, email, and password required")
	}

	if len(req.Password) < 8 {
		return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("bcrypt failed", logger.F("error", err))
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	user, err := s.repo.CreateUser(c.Request().Context(), model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, ErrConflict) {
		return fail(c, http.StatusConflict, "username or email already exists")
	}
	if err != nil {
		logger.Error("Create user failed", logger.F("error", err))
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	logger.Info("User registered", logger.F("username", req.Username))
	return s.startSession(c, user.ID)
}

// handleLogin handles user login
func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	// Find user
	user, err := s.repo.GetUserByUsername(c.Request().Context(), strings.TrimSpace(req.Username))
	if err != nil {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}

	logger.Info("User logged in", logger.F("username", user.Username))
	return s.startSession(c, user.ID)
}

// handleLogout ends the session the request was made with
func (s *Server) handleLogout(c echo.Context) error {
	token, _ := c.Get("token").(string)
	if err := s.repo.DeleteSession(c.Request().Context(), token); err != nil {
		logger.Error("Delete session failed", logger.F("error", err))
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return c.NoContent(http.StatusNoContent)
}

// handleMe returns current user info
func (s *Server) handleMe(c echo.Context) error {
	user, err := s.repo.GetUserByID(c.Request().Context(), userID(c))
	if err != nil {
		return fail(c, http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, user)
}

// startSession creates a session for userID and writes the auth response
func (s *Server) startSession(c echo.Context, userID string) error {
	token, err := newToken()
	if err != nil {
		logger.Error("Token generation failed", logger.F("error", err))
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	expiresAt := time.Now().Add(sessionTTL)
	err = s.repo.CreateSession(c.Request().Context(), model.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		logger.Error("Create session failed", logger.F("error", err))
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, authResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		UserID:    userID,
	})
}

// newToken returns 32 random bytes, hex encoded
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
