// Package query implements the client-side filter/sort/paginate engine
// for an in-memory todo collection.
package query

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"tdo/internal/apierr"
	"tdo/internal/service"
)

// Result is the visible slice for a query plus pagination metadata.
type Result struct {
	// Items is the page slice, a fresh sequence independent of the
	// input collection.
	Items []service.Todo

	// TotalCount is the number of records matching the filters,
	// before paging.
	TotalCount int

	// PageCount is ceil(TotalCount / PageSize), 0 when nothing matches.
	PageCount int

	// Page is the effective page after clamping.
	Page int
}

var priorityRank = map[string]int{
	service.PriorityHigh:   3,
	service.PriorityMedium: 2,
	service.PriorityLow:    1,
}

// Apply produces the filtered, sorted and paged view of todos for
// spec. It never mutates todos or spec and is deterministic: identical
// arguments yield identical results, safe to re-invoke on every input
// change and discard stale outputs.
func Apply(todos []service.Todo, spec service.QuerySpec) (Result, error) {
	spec = spec.Normalized()
	if err := validate(spec); err != nil {
		return Result{}, err
	}

	filtered := filter(todos, spec)
	sortTodos(filtered, spec.SortBy, spec.SortDir)

	total := len(filtered)
	pages := 0
	if total > 0 {
		pages = (total + spec.PageSize - 1) / spec.PageSize
	}

	page := spec.Page
	if page < 1 {
		page = 1
	}
	if max := pages; max > 0 && page > max {
		page = max
	}

	start := (page - 1) * spec.PageSize
	end := start + spec.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	items := make([]service.Todo, end-start)
	copy(items, filtered[start:end])

	return Result{Items: items, TotalCount: total, PageCount: pages, Page: page}, nil
}

// validate fails fast on malformed constraints instead of silently
// ignoring them.
func validate(spec service.QuerySpec) error {
	switch spec.SortBy {
	case service.SortByCreatedAt, service.SortByDueDate, service.SortByPriority, service.SortByTitle:
	default:
		return apierr.Validationf("invalid sort key: %s", spec.SortBy)
	}
	switch spec.SortDir {
	case service.SortAsc, service.SortDesc:
	default:
		return apierr.Validationf("invalid sort direction: %s", spec.SortDir)
	}
	if spec.Priority != "" {
		if _, ok := priorityRank[spec.Priority]; !ok {
			return apierr.Validationf("invalid priority filter: %s", spec.Priority)
		}
	}
	return nil
}

// filter applies the search term and field filters, composed with AND.
// The returned slice is fresh; todos is only read.
func filter(todos []service.Todo, spec service.QuerySpec) []service.Todo {
	term := strings.ToLower(strings.TrimSpace(spec.Search))

	out := make([]service.Todo, 0, len(todos))
	for _, t := range todos {
		if term != "" && !matchesSearch(t, term) {
			continue
		}
		if spec.Priority != "" && t.Priority != spec.Priority {
			continue
		}
		if spec.Completed != nil && t.Completed != *spec.Completed {
			continue
		}
		if len(spec.AssignedUsers) > 0 && !containsAll(t.AssignedUsers, spec.AssignedUsers) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// matchesSearch reports whether the lower-cased term appears as a
// substring of the title, description or any tag.
func matchesSearch(t service.Todo, term string) bool {
	if strings.Contains(strings.ToLower(t.Title), term) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), term) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// containsAll reports whether have is a superset of want.
func containsAll(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sortTodos stable-sorts in place. Ties keep their original relative
// order; descending negates the natural comparator.
func sortTodos(todos []service.Todo, key, dir string) {
	var cmp func(a, b service.Todo) int
	switch key {
	case service.SortByTitle:
		coll := collate.New(language.Und, collate.IgnoreCase)
		cmp = func(a, b service.Todo) int {
			return coll.CompareString(a.Title, b.Title)
		}
	case service.SortByPriority:
		cmp = func(a, b service.Todo) int {
			return priorityRank[a.Priority] - priorityRank[b.Priority]
		}
	case service.SortByDueDate:
		cmp = func(a, b service.Todo) int {
			return a.DueDate.Compare(b.DueDate)
		}
	default: // createdAt
		cmp = func(a, b service.Todo) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	sort.SliceStable(todos, func(i, j int) bool {
		c := cmp(todos[i], todos[j])
		if dir == service.SortDesc {
			return c > 0
		}
		return c < 0
	})
}
