package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"tdo/internal/config"
	"tdo/internal/exitcode"
	"tdo/internal/service"
)

func init() {
	Register(&ExportCmd{})
}

// ExportCmd implements the export command: CSV export of the todos
// matching the current filters, written to a file or stdout.
type ExportCmd struct {
	search   string
	priority string
	status   string
	assigned string
	outPath  string
}

func (c *ExportCmd) Name() string      { return "export" }
func (c *ExportCmd) Aliases() []string { return nil }
func (c *ExportCmd) Synopsis() string  { return "Export todos as CSV" }
func (c *ExportCmd) Usage() string {
	return "tdo export [--search <term>] [--priority <p>] [--status completed|pending] [--assigned <users>] [--out <file>]"
}
func (c *ExportCmd) NeedsAuth() bool { return true }

func (c *ExportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.assigned, "assigned", "", "")
	fs.StringVar(&c.outPath, "out", "todos.csv", "")
	fs.StringVar(&c.outPath, "o", "todos.csv", "")
}

func (c *ExportCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	spec := service.QuerySpec{
		Search:   c.search,
		Priority: strings.ToLower(c.priority),
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
		fmt.Fprintf(errOut, "error: invalid status filter: %s\n", c.status)
		return exitcode.UserError
	}
	spec.AssignedUsers = splitList(c.assigned)

	data, err := svc.ExportCSV(ctx, spec)
	if err != nil {
		return fail(errOut, err)
	}

	if c.outPath == "-" {
		if _, err := out.Write(data); err != nil {
			fmt.Fprintf(errOut, "error: writing export: %v\n", err)
			return exitcode.UserError
		}
		return exitcode.Success
	}

	if err := os.WriteFile(c.outPath, data, 0644); err != nil {
		fmt.Fprintf(errOut, "error: writing %s: %v\n", c.outPath, err)
		return exitcode.UserError
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "exported to %s\n", c.outPath)
	}
	return exitcode.Success
}
