package resttodo_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"tdo/internal/apierr"
	"tdo/internal/backend/resttodo"
	"tdo/internal/service"
	"tdo/internal/session"
	"tdo/internal/testutil"
)

// newClient wires a REST client against the fake backend with a
// freshly issued session.
func newClient(t *testing.T, backend *testutil.FakeBackend) *resttodo.Client {
	t.Helper()

	access, refresh := backend.IssueSession()
	store := &session.MemStore{}
	if err := store.Save(&oauth2.Token{AccessToken: access, RefreshToken: refresh}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	return resttodo.NewWithStore(backend.URL(), store, backend.Server.Client())
}

func TestLogin_StoresBothTokens(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	store := &session.MemStore{}
	c := resttodo.NewWithStore(backend.URL(), store, backend.Server.Client())

	result, err := c.Login(context.Background(), service.Credentials{
		Email:    "  tester@example.com  ",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.User.Email != "tester@example.com" {
		t.Errorf("expected trimmed email echoed back, got %q", result.User.Email)
	}

	tok, err := store.Load()
	if err != nil || tok == nil {
		t.Fatalf("expected stored token pair, got tok=%v err=%v", tok, err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		t.Error("expected both tokens stored after login")
	}
}

func TestLogin_ValidationBeforeNetwork(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	c := resttodo.NewWithStore(backend.URL(), &session.MemStore{}, backend.Server.Client())

	cases := []service.Credentials{
		{Email: "", Password: "secret"},
		{Email: "a@b.c", Password: ""},
		{Email: "   ", Password: "secret"},
	}
	for _, creds := range cases {
		_, err := c.Login(context.Background(), creds)
		if !apierr.IsValidation(err) {
			t.Errorf("creds %+v: expected ValidationError, got %v", creds, err)
		}
	}
	if backend.LoginCalls() != 0 {
		t.Errorf("expected no login requests, got %d", backend.LoginCalls())
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	c := resttodo.NewWithStore(backend.URL(), &session.MemStore{}, backend.Server.Client())

	_, err := c.Login(context.Background(), service.Credentials{
		Email:    "tester@example.com",
		Password: "wrong",
	})
	var srvErr *apierr.ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if srvErr.Status != 401 {
		t.Errorf("expected status 401, got %d", srvErr.Status)
	}
}

func TestRegister_DoesNotStoreTokens(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	store := &session.MemStore{}
	c := resttodo.NewWithStore(backend.URL(), store, backend.Server.Client())

	result, err := c.Register(context.Background(), service.Registration{
		Name:     " newuser ",
		Email:    " new@example.com ",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.User.Username != "newuser" {
		t.Errorf("expected trimmed username, got %q", result.User.Username)
	}

	tok, _ := store.Load()
	if tok != nil {
		t.Error("register must not auto-login")
	}
}

func TestRegister_Validation(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	c := resttodo.NewWithStore(backend.URL(), &session.MemStore{}, backend.Server.Client())

	_, err := c.Register(context.Background(), service.Registration{Name: "x", Email: "", Password: "y"})
	if !apierr.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestListTodos_QueryRoundTrip(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.Seed([]service.Todo{
		{ID: "1", Title: "buy milk", Priority: service.PriorityHigh, Tags: []string{"errand"}, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", Title: "write report", Priority: service.PriorityLow, CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "3", Title: "buy eggs", Priority: service.PriorityHigh, CreatedAt: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
	})

	c := newClient(t, backend)

	todos, pagination, err := c.ListTodos(context.Background(), service.QuerySpec{
		Priority: service.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("expected 2 high-priority todos, got %d", len(todos))
	}
	if pagination.Total != 2 || pagination.Pages != 1 {
		t.Errorf("unexpected pagination: %+v", pagination)
	}
	// Default sort createdAt desc: newest first
	if todos[0].ID != "3" {
		t.Errorf("expected newest first, got %s", todos[0].ID)
	}
}

func TestCreateTodo_ShapesPayload(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	c := newClient(t, backend)

	todo, err := c.CreateTodo(context.Background(), service.TodoInput{
		Title:       "  buy milk  ",
		Description: " from the corner shop ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if todo.Title != "buy milk" {
		t.Errorf("expected trimmed title, got %q", todo.Title)
	}
	if todo.Priority != service.PriorityMedium {
		t.Errorf("expected default priority medium, got %q", todo.Priority)
	}
}

func TestCreateTodo_Validation(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	c := newClient(t, backend)

	cases := []struct {
		name  string
		input service.TodoInput
	}{
		{"empty title", service.TodoInput{Title: "   "}},
		{"title too long", service.TodoInput{Title: strings.Repeat("x", service.MaxTitleLength+1)}},
		{"description too long", service.TodoInput{Title: "ok", Description: strings.Repeat("d", service.MaxDescriptionLength+1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.CreateTodo(context.Background(), tc.input)
			if !apierr.IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestUpdateTodo_PartialPatch(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.Seed([]service.Todo{
		{ID: "1", Title: "original", Description: "keep me", Priority: service.PriorityLow},
	})

	c := newClient(t, backend)

	completed := true
	todo, err := c.UpdateTodo(context.Background(), "1", service.TodoPatch{Completed: &completed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !todo.Completed {
		t.Error("expected todo marked completed")
	}
	if todo.Title != "original" || todo.Description != "keep me" {
		t.Errorf("partial update touched other fields: %+v", todo)
	}
}

func TestDeleteTodo_NotFound(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	c := newClient(t, backend)

	err := c.DeleteTodo(context.Background(), "missing")
	var srvErr *apierr.ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if srvErr.Status != 404 {
		t.Errorf("expected 404, got %d", srvErr.Status)
	}
}

func TestAddNote_AppendsInOrder(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.Seed([]service.Todo{{ID: "1", Title: "with notes"}})

	c := newClient(t, backend)

	if _, err := c.AddNote(context.Background(), "1", "first"); err != nil {
		t.Fatalf("first note: %v", err)
	}
	todo, err := c.AddNote(context.Background(), "1", "second")
	if err != nil {
		t.Fatalf("second note: %v", err)
	}

	if len(todo.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(todo.Notes))
	}
	if todo.Notes[0].Content != "first" || todo.Notes[1].Content != "second" {
		t.Errorf("notes out of append order: %+v", todo.Notes)
	}
}

func TestExportCSV(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.Seed([]service.Todo{
		{ID: "1", Title: "buy milk", Priority: service.PriorityHigh},
	})

	c := newClient(t, backend)

	data, err := c.ExportCSV(context.Background(), service.QuerySpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "id,title,priority,completed") {
		t.Errorf("expected CSV header, got %q", text)
	}
	if !strings.Contains(text, "buy milk") {
		t.Errorf("expected todo row in CSV, got %q", text)
	}
}

func TestListTodos_ExpiredSessionRecovers(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.Seed([]service.Todo{{ID: "1", Title: "survives refresh"}})

	c := newClient(t, backend)
	backend.ExpireAccess()

	todos, _, err := c.ListTodos(context.Background(), service.QuerySpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(todos) != 1 {
		t.Fatalf("expected 1 todo after transparent refresh, got %d", len(todos))
	}
	if backend.RefreshCalls() != 1 {
		t.Errorf("expected exactly 1 refresh call, got %d", backend.RefreshCalls())
	}
}

func TestLogout_Idempotent(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	c := newClient(t, backend)
	if err := c.Logout(); err != nil {
		t.Fatalf("first logout: %v", err)
	}
	if err := c.Logout(); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if c.Session().Authenticated() {
		t.Error("expected anonymous after logout")
	}
}

func TestUpdateProfile_PasswordFieldsTogether(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	c := newClient(t, backend)

	_, err := c.UpdateProfile(context.Background(), service.ProfileUpdate{NewPassword: "next"})
	if !apierr.IsValidation(err) {
		t.Errorf("expected ValidationError for lone new password, got %v", err)
	}

	user, err := c.UpdateProfile(context.Background(), service.ProfileUpdate{
		Name: "renamed", CurrentPassword: "old", NewPassword: "next",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != "renamed" {
		t.Errorf("expected updated username, got %q", user.Username)
	}
}
