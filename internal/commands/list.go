package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tdo/internal/config"
	"tdo/internal/exitcode"
	"tdo/internal/output"
	"tdo/internal/query"
	"tdo/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command. Filtering, sorting and paging
// are delegated to the backend by default; with --local the full
// collection is fetched once and the query engine evaluates it
// client-side.
type ListCmd struct {
	search   string
	priority string
	status   string
	assigned string
	sortBy   string
	sortDir  string
	page     int
	pageSize int
	local    bool
}

// SetPage sets the page number (for testing).
func (c *ListCmd) SetPage(page int) {
	c.page = page
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List todos" }
func (c *ListCmd) Usage() string {
	return "tdo list [--search <term>] [--priority <p>] [--status completed|pending] [--assigned <users>] [--sort <key>] [--dir asc|desc] [--page <n>] [--page-size <n>] [--local]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.search, "s", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.assigned, "assigned", "", "")
	fs.StringVar(&c.sortBy, "sort", service.SortByCreatedAt, "")
	fs.StringVar(&c.sortDir, "dir", service.SortDesc, "")
	fs.IntVar(&c.page, "page", 1, "")
	fs.IntVar(&c.pageSize, "page-size", service.DefaultPageSize, "")
	fs.BoolVar(&c.local, "local", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if c.page < 1 {
		fmt.Fprintf(errOut, "error: invalid page number: %d\n", c.page)
		return exitcode.UserError
	}
	if c.pageSize < 1 {
		fmt.Fprintf(errOut, "error: invalid page size: %d\n", c.pageSize)
		return exitcode.UserError
	}

	spec, err := c.buildSpec()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	var todos []service.Todo
	var pagination service.Pagination
	if c.local {
		todos, pagination, err = listLocal(ctx, svc, spec)
	} else {
		todos, pagination, err = svc.ListTodos(ctx, spec)
	}
	if err != nil {
		return fail(errOut, err)
	}

	if len(todos) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no todos found")
		}
		return exitcode.Success
	}

	startNum := (pagination.Page-1)*pagination.Limit + 1
	for i, t := range todos {
		output.FormatTodo(out, startNum+i, t)
	}
	if !cfg.Quiet {
		output.FormatPagination(out, pagination)
	}
	return exitcode.Success
}

// buildSpec translates list flags into a QuerySpec.
func (c *ListCmd) buildSpec() (service.QuerySpec, error) {
	spec := service.QuerySpec{
		Search:   c.search,
		Priority: strings.ToLower(c.priority),
		SortBy:   c.sortBy,
		SortDir:  c.sortDir,
		Page:     c.page,
		PageSize: c.pageSize,
	}

	switch c.status {
	case "":
	case "completed":
		completed := true
		spec.Completed = &completed
	case "pending":
		completed := false
		spec.Completed = &completed
	default:
		return service.QuerySpec{}, fmt.Errorf("invalid status filter: %s", c.status)
	}

	if c.assigned != "" {
		for _, u := range strings.Split(c.assigned, ",") {
			if u = strings.TrimSpace(u); u != "" {
				spec.AssignedUsers = append(spec.AssignedUsers, u)
			}
		}
	}
	return spec, nil
}

// listLocal fetches the whole collection and runs the query engine
// client-side, producing the same view the backend would.
func listLocal(ctx context.Context, svc service.Service, spec service.QuerySpec) ([]service.Todo, service.Pagination, error) {
	all, err := fetchAll(ctx, svc)
	if err != nil {
		return nil, service.Pagination{}, err
	}

	result, err := query.Apply(all, spec)
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

// fetchAll pages through the unfiltered collection.
func fetchAll(ctx context.Context, svc service.Service) ([]service.Todo, error) {
	const fetchPageSize = 100

	var all []service.Todo
	for page := 1; ; page++ {
		todos, pagination, err := svc.ListTodos(ctx, service.QuerySpec{
			Page:     page,
			PageSize: fetchPageSize,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, todos...)
		if page >= pagination.Pages || len(todos) == 0 {
			break
		}
	}
	return all, nil
}
