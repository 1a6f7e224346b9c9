// Package client is a typed HTTP client for the TaskTrail API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
)

// DefaultBaseURL is the server address used when neither a flag nor a session names one.
const DefaultBaseURL = "http://localhost:5000"

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// IsTokenExpired reports whether err is the server telling the caller to log in again.
func IsTokenExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "token_expired"
}

// IsUnauthorized reports whether err is any 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Client talks to one TaskTrail server on behalf of one session.
type Client struct {
	session    *Session
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New returns a client bound to session. The session must carry a BaseURL;
// its Token may be empty for Register, Login and Health.
func New(session *Session, opts ...Option) *Client {
	if session == nil {
		session = &Session{}
	}
	if session.BaseURL == "" {
		session.BaseURL = DefaultBaseURL
	}
	c := &Client{
		session:    session,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint := strings.TrimRight(c.session.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			if eb.Error != "" {
				apiErr.Message = eb.Error
			}
			apiErr.Code = eb.Code
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type authResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// Register creates an account and returns a new logged-in session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Session, error) {
	var res authResponse
	in := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, in, &res); err != nil {
		return nil, err
	}
	return &Session{BaseURL: c.session.BaseURL, Token: res.Token, User: res.User}, nil
}

// Login exchanges credentials for a new session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var res authResponse
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, in, &res); err != nil {
		return nil, err
	}
	return &Session{BaseURL: c.session.BaseURL, Token: res.Token, User: res.User}, nil
}

// Me returns the user the session's token belongs to.
func (c *Client) Me(ctx context.Context) (*models.PublicUser, error) {
	var res struct {
		User models.PublicUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// ListTasks returns the caller's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	query := url.Values{}
	if filter.Urgency != nil {
		query.Set("urgency", string(*filter.Urgency))
	}
	if filter.Completed != nil {
		query.Set("completed", strconv.FormatBool(*filter.Completed))
	}
	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", query, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

type taskEnvelope struct {
	Task models.Task `json:"task"`
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var res taskEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res.Task, nil
}

// CreateTask creates a task owned by the session's user.
func (c *Client) CreateTask(ctx context.Context, req models.TaskCreateRequest) (*models.Task, error) {
	var res taskEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/tasks", nil, req, &res); err != nil {
		return nil, err
	}
	return &res.Task, nil
}

// UpdateTask sends only the fields set in patch.
func (c *Client) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	in := map[string]any{}
	if patch.Title != nil {
		in["title"] = *patch.Title
	}
	if patch.Description != nil {
		in["description"] = *patch.Description
	}
	if patch.Urgency != nil {
		in["urgency"] = string(*patch.Urgency)
	}
	if patch.Completed != nil {
		in["completed"] = *patch.Completed
	}
	var res taskEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), nil, in, &res); err != nil {
		return nil, err
	}
	return &res.Task, nil
}

// DeleteTask permanently removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil, nil)
}

// Health checks the server and, when db is true, its database.
func (c *Client) Health(ctx context.Context, db bool) error {
	path := "/api/health"
	if db {
		path += "/db"
	}
	return c.do(ctx, http.MethodGet, path, nil, nil, nil)
}
