// Package service defines the backend-agnostic interface for todo operations.
package service

import "time"

// Priority levels for a todo, ranked high > medium > low.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Sort keys accepted by list queries.
const (
	SortByCreatedAt = "createdAt"
	SortByDueDate   = "dueDate"
	SortByPriority  = "priority"
	SortByTitle     = "title"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Field limits enforced before any network call.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MaxNoteLength        = 1000
)

// DefaultPageSize is the number of todos per page.
const DefaultPageSize = 10

// Note is a single note attached to a todo. Notes are append-only:
// the client never reorders or truncates the sequence.
type Note struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Todo represents a single todo item. The backend owns the record;
// the client holds a possibly-stale copy.
type Todo struct {
	ID            string    `json:"_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Priority      string    `json:"priority"`
	Completed     bool      `json:"completed"`
	Tags          []string  `json:"tags"`
	AssignedUsers []string  `json:"assignedUsers"`
	Notes         []Note    `json:"notes"`
	CreatedAt     time.Time `json:"createdAt"`
	DueDate       time.Time `json:"dueDate"`
}

// QuerySpec describes a desired view of the todo collection: search,
// field filters, sort and page. Zero values mean "no constraint",
// except Page/PageSize which are normalized to 1/DefaultPageSize.
type QuerySpec struct {
	Search        string
	Priority      string
	Completed     *bool
	AssignedUsers []string
	SortBy        string
	SortDir       string
	Page          int
	PageSize      int
}

// Normalized returns a copy of the spec with defaults filled in.
// The receiver is not modified.
func (s QuerySpec) Normalized() QuerySpec {
	out := s
	if out.SortBy == "" {
		out.SortBy = SortByCreatedAt
	}
	if out.SortDir == "" {
		out.SortDir = SortDesc
	}
	if out.Page < 1 {
		out.Page = 1
	}
	if out.PageSize < 1 {
		out.PageSize = DefaultPageSize
	}
	return out
}

// Pagination is the paging metadata returned alongside a todo listing.
type Pagination struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
	Limit int `json:"limit"`
}

// User is a backend user, used for assignment.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Credentials are the login inputs.
type Credentials struct {
	Email    string
	Password string
}

// Registration are the sign-up inputs.
type Registration struct {
	Name     string
	Email    string
	Password string
}

// ProfileUpdate carries the updatable profile fields. Password fields
// are optional and only sent together.
type ProfileUpdate struct {
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty"`
}

// AuthResult is the payload returned by login and register.
type AuthResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// TodoInput carries the fields for creating a todo.
type TodoInput struct {
	Title         string
	Description   string
	Priority      string
	Completed     bool
	Tags          []string
	AssignedUsers []string
	DueDate       time.Time
}

// TodoPatch carries a partial update. Nil fields are not sent.
type TodoPatch struct {
	Title         *string
	Description   *string
	Priority      *string
	Completed     *bool
	Tags          []string
	AssignedUsers []string
	DueDate       *time.Time
}
