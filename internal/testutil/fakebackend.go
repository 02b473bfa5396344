package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"tdo/internal/query"
	"tdo/internal/service"
)

// FakeBackend is an in-process REST backend implementing the auth and
// todos contract, for exercising the session client's refresh flow
// over real HTTP.
type FakeBackend struct {
	Server *httptest.Server

	mu            sync.Mutex
	accessToken   string
	refreshToken  string
	tokenSeq      int
	refreshCalls  int
	loginCalls    int
	rejectRefresh bool
	refreshDelay  time.Duration
	todos         []service.Todo
	nextID        int
}

// NewFakeBackend starts the backend. Callers must Close it.
func NewFakeBackend() *FakeBackend {
	b := &FakeBackend{}

	r := mux.NewRouter()
	r.HandleFunc("/auth/login", b.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", b.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh-token", b.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/todos/export/csv", b.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/todos", b.handleList).Methods(http.MethodGet)
	r.HandleFunc("/todos", b.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/todos/{id}", b.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/todos/{id}", b.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/todos/{id}", b.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/todos/{id}/notes", b.handleAddNote).Methods(http.MethodPost)
	r.HandleFunc("/users", b.handleUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/profile", b.handleProfile).Methods(http.MethodPut)

	b.Server = httptest.NewServer(r)
	return b
}

// Close shuts the backend down.
func (b *FakeBackend) Close() { b.Server.Close() }

// URL returns the backend's base URL.
func (b *FakeBackend) URL() string { return b.Server.URL }

// Seed replaces the stored todos.
func (b *FakeBackend) Seed(todos []service.Todo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.todos = append([]service.Todo(nil), todos...)
}

// IssueSession mints a valid token pair without going through login,
// returning (access, refresh).
func (b *FakeBackend) IssueSession() (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenSeq++
	b.accessToken = "access-" + strconv.Itoa(b.tokenSeq)
	b.refreshToken = "refresh-1"
	return b.accessToken, b.refreshToken
}

// ExpireAccess invalidates the current access token so the next
// authenticated request gets a 401.
func (b *FakeBackend) ExpireAccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessToken = ""
}

// RejectRefresh makes the refresh endpoint fail with 401.
func (b *FakeBackend) RejectRefresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectRefresh = true
}

// SetRefreshDelay delays refresh responses, widening the window in
// which concurrent 401 handlers could pile onto the refresh endpoint.
func (b *FakeBackend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshDelay = d
}

// RefreshCalls reports how many refresh requests were received.
func (b *FakeBackend) RefreshCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

// LoginCalls reports how many login requests were received.
func (b *FakeBackend) LoginCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loginCalls
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if body.Password == "wrong" {
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	b.mu.Lock()
	b.loginCalls++
	b.tokenSeq++
	b.accessToken = "access-" + strconv.Itoa(b.tokenSeq)
	b.refreshToken = "refresh-1"
	access, refresh := b.accessToken, b.refreshToken
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"token":        access,
		"refreshToken": refresh,
		"user":         service.User{ID: "u1", Username: "tester", Email: body.Email},
	})
}

func (b *FakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Email == "" || body.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "all fields are required")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user": service.User{ID: "u2", Username: body.Username, Email: body.Email},
	})
}

func (b *FakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	b.refreshCalls++
	delay := b.refreshDelay
	reject := b.rejectRefresh || body.RefreshToken == "" || body.RefreshToken != b.refreshToken
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if reject {
		writeJSONError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	b.mu.Lock()
	b.tokenSeq++
	b.accessToken = "access-" + strconv.Itoa(b.tokenSeq)
	access := b.accessToken
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"token": access})
}

// authorized validates the bearer token, writing a 401 on failure.
func (b *FakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	b.mu.Lock()
	access := b.accessToken
	b.mu.Unlock()

	if access == "" || r.Header.Get("Authorization") != "Bearer "+access {
		writeJSONError(w, http.StatusUnauthorized, "token expired")
		return false
	}
	return true
}

func (b *FakeBackend) handleList(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	spec := specFromQuery(r)

	b.mu.Lock()
	todos := append([]service.Todo(nil), b.todos...)
	b.mu.Unlock()

	result, err := query.Apply(todos, spec)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"todos": result.Items,
		"pagination": service.Pagination{
			Page:  result.Page,
			Pages: result.PageCount,
			Total: result.TotalCount,
			Limit: spec.Normalized().PageSize,
		},
	})
}

func (b *FakeBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	var body struct {
		Title         string   `json:"title"`
		Description   string   `json:"description"`
		Priority      string   `json:"priority"`
		Completed     bool     `json:"completed"`
		Tags          []string `json:"tags"`
		AssignedUsers []string `json:"assignedUsers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		writeJSONError(w, http.StatusBadRequest, "title is required")
		return
	}

	b.mu.Lock()
	b.nextID++
	todo := service.Todo{
		ID:            "todo-" + strconv.Itoa(b.nextID),
		Title:         body.Title,
		Description:   body.Description,
		Priority:      body.Priority,
		Completed:     body.Completed,
		Tags:          body.Tags,
		AssignedUsers: body.AssignedUsers,
		CreatedAt:     time.Now(),
	}
	b.todos = append(b.todos, todo)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, todo)
}

func (b *FakeBackend) handleGet(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.todos {
		if t.ID == id {
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	writeJSONError(w, http.StatusNotFound, "todo not found")
}

func (b *FakeBackend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	id := mux.Vars(r)["id"]

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.todos {
		if b.todos[i].ID != id {
			continue
		}
		if v, ok := body["title"].(string); ok {
			b.todos[i].Title = v
		}
		if v, ok := body["description"].(string); ok {
			b.todos[i].Description = v
		}
		if v, ok := body["priority"].(string); ok {
			b.todos[i].Priority = v
		}
		if v, ok := body["completed"].(bool); ok {
			b.todos[i].Completed = v
		}
		writeJSON(w, http.StatusOK, b.todos[i])
		return
	}
	writeJSONError(w, http.StatusNotFound, "todo not found")
}

func (b *FakeBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	id := mux.Vars(r)["id"]

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.todos {
		if b.todos[i].ID == id {
			b.todos = append(b.todos[:i], b.todos[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
	}
	writeJSONError(w, http.StatusNotFound, "todo not found")
}

func (b *FakeBackend) handleAddNote(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	id := mux.Vars(r)["id"]

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content == "" {
		writeJSONError(w, http.StatusBadRequest, "content is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.todos {
		if b.todos[i].ID == id {
			b.todos[i].Notes = append(b.todos[i].Notes, service.Note{
				Content:   body.Content,
				CreatedAt: time.Now(),
			})
			writeJSON(w, http.StatusOK, b.todos[i])
			return
		}
	}
	writeJSONError(w, http.StatusNotFound, "todo not found")
}

func (b *FakeBackend) handleExport(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	fmt.Fprintln(w, "id,title,priority,completed")

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.todos {
		fmt.Fprintf(w, "%s,%s,%s,%t\n", t.ID, t.Title, t.Priority, t.Completed)
	}
}

func (b *FakeBackend) handleUsers(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, []service.User{
		{ID: "u1", Username: "tester", Email: "tester@example.com"},
	})
}

func (b *FakeBackend) handleProfile(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	var body service.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body")
		return
	}
	writeJSON(w, http.StatusOK, service.User{ID: "u1", Username: body.Name, Email: body.Email})
}

// specFromQuery decodes the listing parameters.
func specFromQuery(r *http.Request) service.QuerySpec {
	q := r.URL.Query()
	spec := service.QuerySpec{
		Search:   q.Get("search"),
		Priority: q.Get("priority"),
		SortBy:   q.Get("sortBy"),
		SortDir:  q.Get("sortDirection"),
	}
	if v := q.Get("completed"); v != "" {
		completed := v == "true"
		spec.Completed = &completed
	}
	if v := q.Get("page"); v != "" {
		spec.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		spec.PageSize, _ = strconv.Atoi(v)
	}
	return spec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
