// Package testutil provides testing utilities.
package testutil

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"tdo/internal/query"
	"tdo/internal/service"
)

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = errors.New("not found")

// FakeService is an in-memory implementation of service.Service for
// testing. Listing runs the same query engine the --local path uses,
// so the fake behaves like a filtering backend.
type FakeService struct {
	mu     sync.RWMutex
	todos  []service.Todo
	users  []service.User
	nextID int

	// Error injection for testing
	LoginErr    error
	RegisterErr error
	ListErr     error
	GetErr      error
	CreateErr   error
	UpdateErr   error
	DeleteErr   error
	NoteErr     error
	ExportErr   error
	UsersErr    error
	ProfileErr  error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{}
}

// AddTodo adds a todo and returns its generated ID.
func (f *FakeService) AddTodo(t service.Todo) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if t.ID == "" {
		t.ID = "todo-" + strconv.Itoa(f.nextID)
	}
	if t.Priority == "" {
		t.Priority = service.PriorityMedium
	}
	f.todos = append(f.todos, t)
	return t.ID
}

// AddUser adds a user.
func (f *FakeService) AddUser(u service.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, u)
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, creds service.Credentials) (service.AuthResult, error) {
	if f.LoginErr != nil {
		return service.AuthResult{}, f.LoginErr
	}
	return service.AuthResult{
		Token:        "fake-token",
		RefreshToken: "fake-refresh",
		User:         service.User{Username: "tester", Email: creds.Email},
	}, nil
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, reg service.Registration) (service.AuthResult, error) {
	if f.RegisterErr != nil {
		return service.AuthResult{}, f.RegisterErr
	}
	return service.AuthResult{
		User: service.User{Username: reg.Name, Email: reg.Email},
	}, nil
}

// Logout implements service.Service.
func (f *FakeService) Logout() error { return nil }

// ListTodos implements service.Service.
func (f *FakeService) ListTodos(ctx context.Context, spec service.QuerySpec) ([]service.Todo, service.Pagination, error) {
	if f.ListErr != nil {
		return nil, service.Pagination{}, f.ListErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	result, err := query.Apply(f.todos, spec)
	if err != nil {
		return nil, service.Pagination{}, err
	}
	spec = spec.Normalized()
	return result.Items, service.Pagination{
		Page:  result.Page,
		Pages: result.PageCount,
		Total: result.TotalCount,
		Limit: spec.PageSize,
	}, nil
}

// GetTodo implements service.Service.
func (f *FakeService) GetTodo(ctx context.Context, id string) (service.Todo, error) {
	if f.GetErr != nil {
		return service.Todo{}, f.GetErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.todos {
		if t.ID == id {
			return t, nil
		}
	}
	return service.Todo{}, ErrNotFound
}

// CreateTodo implements service.Service.
func (f *FakeService) CreateTodo(ctx context.Context, input service.TodoInput) (service.Todo, error) {
	if f.CreateErr != nil {
		return service.Todo{}, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	priority := input.Priority
	if priority == "" {
		priority = service.PriorityMedium
	}
	todo := service.Todo{
		ID:            "todo-" + strconv.Itoa(f.nextID),
		Title:         input.Title,
		Description:   input.Description,
		Priority:      priority,
		Completed:     input.Completed,
		Tags:          input.Tags,
		AssignedUsers: input.AssignedUsers,
		CreatedAt:     time.Now(),
		DueDate:       input.DueDate,
	}
	f.todos = append(f.todos, todo)
	return todo, nil
}

// UpdateTodo implements service.Service.
func (f *FakeService) UpdateTodo(ctx context.Context, id string, patch service.TodoPatch) (service.Todo, error) {
	if f.UpdateErr != nil {
		return service.Todo{}, f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.todos {
		if f.todos[i].ID != id {
			continue
		}
		if patch.Title != nil {
			f.todos[i].Title = *patch.Title
		}
		if patch.Description != nil {
			f.todos[i].Description = *patch.Description
		}
		if patch.Priority != nil {
			f.todos[i].Priority = *patch.Priority
		}
		if patch.Completed != nil {
			f.todos[i].Completed = *patch.Completed
		}
		if patch.Tags != nil {
			f.todos[i].Tags = patch.Tags
		}
		if patch.AssignedUsers != nil {
			f.todos[i].AssignedUsers = patch.AssignedUsers
		}
		if patch.DueDate != nil {
			f.todos[i].DueDate = *patch.DueDate
		}
		return f.todos[i], nil
	}
	return service.Todo{}, ErrNotFound
}

// DeleteTodo implements service.Service.
func (f *FakeService) DeleteTodo(ctx context.Context, id string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.todos {
		if f.todos[i].ID == id {
			f.todos = append(f.todos[:i], f.todos[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// AddNote implements service.Service. Appends, never reorders.
func (f *FakeService) AddNote(ctx context.Context, id, content string) (service.Todo, error) {
	if f.NoteErr != nil {
		return service.Todo{}, f.NoteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.todos {
		if f.todos[i].ID == id {
			f.todos[i].Notes = append(f.todos[i].Notes, service.Note{
				Content:   content,
				CreatedAt: time.Now(),
			})
			return f.todos[i], nil
		}
	}
	return service.Todo{}, ErrNotFound
}

// ExportCSV implements service.Service.
func (f *FakeService) ExportCSV(ctx context.Context, spec service.QuerySpec) ([]byte, error) {
	if f.ExportErr != nil {
		return nil, f.ExportErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	spec.PageSize = len(f.todos) + 1
	result, err := query.Apply(f.todos, spec)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "title", "priority", "completed"})
	for _, t := range result.Items {
		_ = w.Write([]string{t.ID, t.Title, t.Priority, fmt.Sprintf("%t", t.Completed)})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ListUsers implements service.Service.
func (f *FakeService) ListUsers(ctx context.Context) ([]service.User, error) {
	if f.UsersErr != nil {
		return nil, f.UsersErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.User, len(f.users))
	copy(out, f.users)
	return out, nil
}

// UpdateProfile implements service.Service.
func (f *FakeService) UpdateProfile(ctx context.Context, update service.ProfileUpdate) (service.User, error) {
	if f.ProfileErr != nil {
		return service.User{}, f.ProfileErr
	}
	return service.User{Username: update.Name, Email: update.Email}, nil
}
