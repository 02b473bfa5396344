// Package resttodo implements the service.Service interface against
// the todos REST backend.
package resttodo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"tdo/internal/apierr"
	"tdo/internal/config"
	"tdo/internal/service"
	"tdo/internal/session"
)

// APITimeout is the timeout for API calls.
const APITimeout = 10 * time.Second

// Client implements service.Service over the REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Client
}

// New creates a client for the backend at cfg.BaseURL, with the token
// pair persisted in the config directory.
func New(cfg *config.Config) *Client {
	return NewWithStore(cfg.BaseURL, session.NewFileStore(cfg.TokenPath()), nil)
}

// NewWithStore creates a client with an explicit token store and HTTP
// client (for testing).
func NewWithStore(baseURL string, store session.Store, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
	c.session = session.NewClient(httpClient, store, c.refreshToken)
	return c
}

// Session exposes the session client for auth state queries.
func (c *Client) Session() *session.Client {
	return c.session
}

// Login implements service.Service.
func (c *Client) Login(ctx context.Context, creds service.Credentials) (service.AuthResult, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return service.AuthResult{}, apierr.Validationf("email and password are required")
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result service.AuthResult
	err := c.doJSONAnon(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": creds.Password,
	}, &result)
	if err != nil {
		return service.AuthResult{}, err
	}

	err = c.session.SetToken(&oauth2.Token{
		AccessToken:  result.Token,
		RefreshToken: result.RefreshToken,
	})
	if err != nil {
		return service.AuthResult{}, fmt.Errorf("storing tokens: %w", err)
	}
	return result, nil
}

// Register implements service.Service. Does not auto-login.
func (c *Client) Register(ctx context.Context, reg service.Registration) (service.AuthResult, error) {
	name := strings.TrimSpace(reg.Name)
	email := strings.TrimSpace(reg.Email)
	if name == "" || email == "" || reg.Password == "" {
		return service.AuthResult{}, apierr.Validationf("name, email and password are required")
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result service.AuthResult
	err := c.doJSONAnon(ctx, http.MethodPost, "/auth/register", map[string]string{
		"username": name,
		"email":    email,
		"password": reg.Password,
	}, &result)
	if err != nil {
		return service.AuthResult{}, err
	}
	return result, nil
}

// Logout implements service.Service. Idempotent.
func (c *Client) Logout() error {
	return c.session.Clear()
}

// ListTodos implements service.Service.
func (c *Client) ListTodos(ctx context.Context, spec service.QuerySpec) ([]service.Todo, service.Pagination, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result struct {
		Todos      []service.Todo     `json:"todos"`
		Pagination service.Pagination `json:"pagination"`
	}
	path := "/todos?" + queryParams(spec.Normalized()).Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, service.Pagination{}, err
	}
	return result.Todos, result.Pagination, nil
}

// GetTodo implements service.Service.
func (c *Client) GetTodo(ctx context.Context, id string) (service.Todo, error) {
	if id == "" {
		return service.Todo{}, apierr.Validationf("todo ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var todo service.Todo
	if err := c.doJSON(ctx, http.MethodGet, "/todos/"+url.PathEscape(id), nil, &todo); err != nil {
		return service.Todo{}, err
	}
	return todo, nil
}

// CreateTodo implements service.Service.
func (c *Client) CreateTodo(ctx context.Context, input service.TodoInput) (service.Todo, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return service.Todo{}, apierr.Validationf("title is required")
	}
	if len(title) > service.MaxTitleLength {
		return service.Todo{}, apierr.Validationf("title exceeds %d characters", service.MaxTitleLength)
	}
	desc := strings.TrimSpace(input.Description)
	if len(desc) > service.MaxDescriptionLength {
		return service.Todo{}, apierr.Validationf("description exceeds %d characters", service.MaxDescriptionLength)
	}
	priority := input.Priority
	if priority == "" {
		priority = service.PriorityMedium
	}

	payload := map[string]any{
		"title":       title,
		"description": desc,
		"priority":    priority,
		"completed":   input.Completed,
	}
	if len(input.Tags) > 0 {
		payload["tags"] = input.Tags
	}
	if len(input.AssignedUsers) > 0 {
		payload["assignedUsers"] = input.AssignedUsers
	}
	if !input.DueDate.IsZero() {
		payload["dueDate"] = input.DueDate.Format(time.RFC3339)
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var todo service.Todo
	if err := c.doJSON(ctx, http.MethodPost, "/todos", payload, &todo); err != nil {
		return service.Todo{}, err
	}
	return todo, nil
}

// UpdateTodo implements service.Service. Only set fields are sent.
func (c *Client) UpdateTodo(ctx context.Context, id string, patch service.TodoPatch) (service.Todo, error) {
	if id == "" {
		return service.Todo{}, apierr.Validationf("todo ID is required")
	}

	payload := map[string]any{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return service.Todo{}, apierr.Validationf("title is required")
		}
		if len(title) > service.MaxTitleLength {
			return service.Todo{}, apierr.Validationf("title exceeds %d characters", service.MaxTitleLength)
		}
		payload["title"] = title
	}
	if patch.Description != nil {
		desc := strings.TrimSpace(*patch.Description)
		if len(desc) > service.MaxDescriptionLength {
			return service.Todo{}, apierr.Validationf("description exceeds %d characters", service.MaxDescriptionLength)
		}
		payload["description"] = desc
	}
	if patch.Priority != nil {
		payload["priority"] = *patch.Priority
	}
	if patch.Completed != nil {
		payload["completed"] = *patch.Completed
	}
	if len(patch.Tags) > 0 {
		payload["tags"] = patch.Tags
	}
	if len(patch.AssignedUsers) > 0 {
		payload["assignedUsers"] = patch.AssignedUsers
	}
	if patch.DueDate != nil {
		payload["dueDate"] = patch.DueDate.Format(time.RFC3339)
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var todo service.Todo
	if err := c.doJSON(ctx, http.MethodPut, "/todos/"+url.PathEscape(id), payload, &todo); err != nil {
		return service.Todo{}, err
	}
	return todo, nil
}

// DeleteTodo implements service.Service.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	if id == "" {
		return apierr.Validationf("todo ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	return c.doJSON(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, nil)
}

// AddNote implements service.Service. Notes are append-only; the
// backend returns the whole updated record.
func (c *Client) AddNote(ctx context.Context, id, content string) (service.Todo, error) {
	if id == "" {
		return service.Todo{}, apierr.Validationf("todo ID is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return service.Todo{}, apierr.Validationf("note content is required")
	}
	if len(content) > service.MaxNoteLength {
		return service.Todo{}, apierr.Validationf("note exceeds %d characters", service.MaxNoteLength)
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var todo service.Todo
	err := c.doJSON(ctx, http.MethodPost, "/todos/"+url.PathEscape(id)+"/notes",
		map[string]string{"content": content}, &todo)
	if err != nil {
		return service.Todo{}, err
	}
	return todo, nil
}

// ExportCSV implements service.Service.
func (c *Client) ExportCSV(ctx context.Context, spec service.QuerySpec) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/todos/export/csv?"+queryParams(spec.Normalized()).Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// ListUsers implements service.Service.
func (c *Client) ListUsers(ctx context.Context) ([]service.User, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var users []service.User
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile implements service.Service.
func (c *Client) UpdateProfile(ctx context.Context, update service.ProfileUpdate) (service.User, error) {
	if update.NewPassword != "" && update.CurrentPassword == "" {
		return service.User{}, apierr.Validationf("current password is required to set a new password")
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var user service.User
	if err := c.doJSON(ctx, http.MethodPut, "/users/profile", update, &user); err != nil {
		return service.User{}, err
	}
	return user, nil
}

// refreshToken exchanges the refresh token at the backend's refresh
// endpoint. Goes through the bare HTTP client, never through
// session.Do, so a failing refresh cannot recurse.
func (c *Client) refreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh-token", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apierr.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh rejected (status %d)", resp.StatusCode)
	}

	var payload struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding refresh response: %w", err)
	}
	if payload.Token == "" {
		return nil, fmt.Errorf("refresh response missing token")
	}
	return &oauth2.Token{AccessToken: payload.Token, RefreshToken: payload.RefreshToken}, nil
}

// newRequest builds a JSON request. Bodies are built from a byte
// buffer so the session client can replay them after a refresh.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON sends the request through the session client and decodes the
// JSON response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.session.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// doJSONAnon sends an anonymous request through the bare HTTP client,
// bypassing the session's 401 handling. Login and register must not
// trigger a refresh: a 401 from those endpoints means bad credentials.
func (c *Client) doJSONAnon(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apierr.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Message string `json:"message"`
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err == nil {
			_ = json.Unmarshal(data, &payload)
		}
		return &apierr.ServerError{Status: resp.StatusCode, Message: payload.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// queryParams maps a QuerySpec onto the backend's listing parameters,
// dropping absent constraints the way the web client cleans params.
func queryParams(spec service.QuerySpec) url.Values {
	params := url.Values{}
	if s := strings.TrimSpace(spec.Search); s != "" {
		params.Set("search", s)
	}
	if spec.Priority != "" {
		params.Set("priority", strings.ToLower(spec.Priority))
	}
	if spec.Completed != nil {
		params.Set("completed", strconv.FormatBool(*spec.Completed))
	}
	if len(spec.AssignedUsers) > 0 {
		params.Set("assignedUsers", strings.Join(spec.AssignedUsers, ","))
	}
	params.Set("sortBy", spec.SortBy)
	params.Set("sortDirection", spec.SortDir)
	params.Set("page", strconv.Itoa(spec.Page))
	params.Set("limit", strconv.Itoa(spec.PageSize))
	return params
}
