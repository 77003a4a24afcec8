// Package api is the HTTP client for the IronNote REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/existflow/ironnote/internal/logger"
	"github.com/existflow/ironnote/internal/model"
	"github.com/google/uuid"
)

// Session is the persisted login state
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Client talks to the API server. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	sessionPath string

	mu      sync.RWMutex
	session Session
}

// NewClient creates a client for baseURL. The session is loaded from
// sessionPath when it exists; an empty sessionPath keeps it in memory only.
func NewClient(baseURL, sessionPath string) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		sessionPath: sessionPath,
	}
	c.loadSession()
	return c
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) loadSession() {
	if c.sessionPath == "" {
		return
	}
	data, err := os.ReadFile(c.sessionPath)
	if err != nil {
		return
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		logger.Warn("Ignoring unreadable session file", logger.F("path", c.sessionPath), logger.F("error", err))
		return
	}
	c.session = s
}

func (c *Client) saveSession() error {
	if c.sessionPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.sessionPath), 0755); err != nil {
		return err
	}

	c.mu.RLock()
	data, err := json.MarshalIndent(c.session, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(c.sessionPath, data, 0600)
}

// SetSession replaces the current session in memory
func (c *Client) SetSession(s Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// Session returns the current session
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// IsLoggedIn returns true if a non-expired token is stored
func (c *Client) IsLoggedIn() bool {
	s := c.Session()
	if s.Token == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || time.Now().Before(s.ExpiresAt)
}

// UserID returns the logged-in user's id or ErrNoSession
func (c *Client) UserID() (string, error) {
	if !c.IsLoggedIn() {
		return "", ErrNoSession
	}
	return c.Session().UserID, nil
}

// doRequest sends body as JSON and decodes a 2xx response into out.
// Authenticated requests fail with ErrNoSession without touching the network.
func (c *Client) doRequest(ctx context.Context, method, path string, authed bool, body, out any) error {
	var token string
	if authed {
		if !c.IsLoggedIn() {
			return ErrNoSession
		}
		token = c.Session().Token
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := c.baseURL + "/api/v1" + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger.Debug("HTTP Request", logger.F("method", method), logger.F("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("HTTP request failed", logger.F("error", err), logger.F("url", url))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	logger.Debug("HTTP Response",
		logger.F("method", method),
		logger.F("url", url),
		logger.F("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &Error{Status: resp.StatusCode, Message: errorMessage(respBody)}
		logger.Warn("API rejected request",
			logger.F("method", method),
			logger.F("url", url),
			logger.F("status", resp.StatusCode),
			logger.F("message", apiErr.Message))
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from a body
func errorMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		return parsed.Message
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

type authResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	ExpiresAt string `json:"expires_at"`
}

func (c *Client) storeAuth(username string, res authResponse) error {
	if res.Token == "" {
		return errors.New("server returned no token")
	}
	s := Session{Token: res.Token, UserID: res.UserID, Username: username}
	if res.ExpiresAt != "" {
		s.ExpiresAt, _ = time.Parse(time.RFC3339, res.ExpiresAt)
	}
	c.SetSession(s)
	return c.saveSession()
}

// Register creates a new account and logs in
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	var res authResponse
	err := c.doRequest(ctx, http.MethodPost, "/register", false, map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	return c.storeAuth(username, res)
}

// Login authenticates with username and password
func (c *Client) Login(ctx context.Context, username, password string) error {
	var res authResponse
	err := c.doRequest(ctx, http.MethodPost, "/login", false, map[string]string{
		"username": username,
		"password": password,
	}, &res)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return c.storeAuth(username, res)
}

// Logout ends the server session (best effort) and clears the local one
func (c *Client) Logout(ctx context.Context) error {
	if c.IsLoggedIn() {
		if err := c.doRequest(ctx, http.MethodPost, "/logout", true, nil, nil); err != nil {
			logger.Warn("Server logout failed", logger.F("error", err))
		}
	}
	c.SetSession(Session{})
	return c.saveSession()
}

// Me returns the current user
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.doRequest(ctx, http.MethodGet, "/me", true, nil, &u)
	return u, err
}

// Health checks the server
func (c *Client) Health(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/health", false, nil, nil)
}
