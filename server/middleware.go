package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/ironnote/internal/logger"
	"github.com/labstack/echo/v4"
)

// requestLogger logs every request with its outcome
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		// Process request
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		res := c.Response()
		log := logger.With(
			logger.F("request_id", res.Header().Get(echo.HeaderXRequestID)),
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
		)
		status := logger.F("status", res.Status)
		size := logger.F("size", res.Size)
		took := logger.F("duration", time.Since(start).String())
		if res.Status >= http.StatusInternalServerError {
			log.Error("HTTP Response", status, size, took)
		} else {
			log.Info("HTTP Response", status, size, took)
		}
		return nil
	}
}

// userID returns the id the auth middleware stored on the context
func userID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}

// authMiddleware checks for valid session token
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Get token from Authorization header
		auth := c.Request().Header.Get("Authorization")
		if auth == "" {
			return fail(c, http.StatusUnauthorized, "authorization required")
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth {
			return fail(c, http.StatusUnauthorized, "invalid authorization format")
		}

		// Validate session
		session, err := s.repo.GetSession(c.Request().Context(), token)
		if errors.Is(err, ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid token")
		}
		if err != nil {
			logger.Error("Session lookup failed", logger.F("error", err))
			return fail(c, http.StatusInternalServerError, "internal error")
		}

		if session.IsExpired() {
			return fail(c, http.StatusUnauthorized, "token expired")
		}

		// Add user ID and token to context
		c.Set("user_id", session.UserID)
		c.Set("token", token)
		return next(c)
	}
}
