// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tdo/internal/service"
)

// FormatTodo formats a single todo line.
// Format: "{N:>4}  [{x| }] {PRIORITY:<6}  {TITLE}  {#tags}"
func FormatTodo(w io.Writer, num int, t service.Todo) {
	box := " "
	if t.Completed {
		box = "x"
	}
	line := fmt.Sprintf("%4d  [%s] %-6s  %s", num, box, t.Priority, normalizeTitle(t.Title))
	if len(t.Tags) > 0 {
		line += "  #" + strings.Join(t.Tags, " #")
	}
	fmt.Fprintln(w, line)
}

// FormatTodoDetail formats the full record, one field per line.
func FormatTodoDetail(w io.Writer, t service.Todo) {
	fmt.Fprintf(w, "id:        %s\n", t.ID)
	fmt.Fprintf(w, "title:     %s\n", normalizeTitle(t.Title))
	if t.Description != "" {
		fmt.Fprintf(w, "desc:      %s\n", t.Description)
	}
	fmt.Fprintf(w, "priority:  %s\n", t.Priority)
	fmt.Fprintf(w, "completed: %t\n", t.Completed)
	if len(t.Tags) > 0 {
		fmt.Fprintf(w, "tags:      %s\n", strings.Join(t.Tags, ", "))
	}
	if len(t.AssignedUsers) > 0 {
		fmt.Fprintf(w, "assigned:  %s\n", strings.Join(t.AssignedUsers, ", "))
	}
	if !t.DueDate.IsZero() {
		fmt.Fprintf(w, "due:       %s\n", t.DueDate.Format("2006-01-02"))
	}
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(w, "created:   %s\n", t.CreatedAt.Format("2006-01-02"))
	}
	for _, n := range t.Notes {
		fmt.Fprintf(w, "note:      %s (%s)\n", n.Content, n.CreatedAt.Format("2006-01-02 15:04"))
	}
}

// FormatPagination formats the paging footer.
// Format: "page {N}/{M} ({TOTAL} todos)"
func FormatPagination(w io.Writer, p service.Pagination) {
	noun := "todos"
	if p.Total == 1 {
		noun = "todo"
	}
	fmt.Fprintf(w, "page %d/%d (%d %s)\n", p.Page, p.Pages, p.Total, noun)
}

// FormatUser formats a user line for the users command.
func FormatUser(w io.Writer, u service.User) {
	if u.Email != "" {
		fmt.Fprintf(w, "%s  <%s>\n", u.Username, u.Email)
	} else {
		fmt.Fprintln(w, u.Username)
	}
}

// normalizeTitle normalizes a todo title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
