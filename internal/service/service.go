// Package service defines the backend-agnostic interface for todo operations.
package service

import "context"

// Service defines the interface for todo backend operations.
// All REST calls go through this interface.
// Commands never import the HTTP client directly.
type Service interface {
	// Login authenticates with email and password and stores the
	// returned token pair. Fails with a validation error before any
	// network call if email or password is empty.
	Login(ctx context.Context, creds Credentials) (AuthResult, error)

	// Register creates a new account. Does not log in.
	Register(ctx context.Context, reg Registration) (AuthResult, error)

	// Logout clears the stored token pair. Idempotent.
	Logout() error

	// ListTodos fetches todos matching the spec, with paging metadata.
	ListTodos(ctx context.Context, spec QuerySpec) ([]Todo, Pagination, error)

	// GetTodo fetches a single todo by ID.
	GetTodo(ctx context.Context, id string) (Todo, error)

	// CreateTodo creates a new todo.
	CreateTodo(ctx context.Context, input TodoInput) (Todo, error)

	// UpdateTodo applies a partial update to a todo.
	UpdateTodo(ctx context.Context, id string, patch TodoPatch) (Todo, error)

	// DeleteTodo deletes a todo by ID.
	DeleteTodo(ctx context.Context, id string) error

	// AddNote appends a note to a todo and returns the updated record.
	AddNote(ctx context.Context, id, content string) (Todo, error)

	// ExportCSV fetches the CSV export for todos matching the spec.
	ExportCSV(ctx context.Context, spec QuerySpec) ([]byte, error)

	// ListUsers returns all users available for assignment.
	ListUsers(ctx context.Context) ([]User, error)

	// UpdateProfile updates the authenticated user's profile.
	UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error)
}
