package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"tdo/internal/config"
	"tdo/internal/exitcode"
	"tdo/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only flags that were actually
// provided are sent, so an edit is always a partial update.
type EditCmd struct {
	title       string
	description string
	priority    string
	tags        string
	assigned    string
	due         string

	fs *flag.FlagSet
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Update fields of a todo" }
func (c *EditCmd) Usage() string {
	return "tdo edit [--title <t>] [--desc <text>] [--priority <p>] [--tags <t1,t2>] [--assigned <users>] [--due <YYYY-MM-DD>] <id>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.fs = fs
	fs.StringVar(&c.title, "title", "", "")
	fs.StringVar(&c.description, "desc", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.tags, "tags", "", "")
	fs.StringVar(&c.assigned, "assigned", "", "")
	fs.StringVar(&c.due, "due", "", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: todo ID required")
		return exitcode.UserError
	}

	set := map[string]bool{}
	if c.fs != nil {
		c.fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	}

	patch := service.TodoPatch{}
	changed := false
	if set["title"] {
		patch.Title = &c.title
		changed = true
	}
	if set["desc"] {
		patch.Description = &c.description
		changed = true
	}
	if set["priority"] {
		p := strings.ToLower(c.priority)
		patch.Priority = &p
		changed = true
	}
	if set["tags"] {
		patch.Tags = splitList(c.tags)
		changed = true
	}
	if set["assigned"] {
		patch.AssignedUsers = splitList(c.assigned)
		changed = true
	}
	if set["due"] {
		due, err := time.Parse("2006-01-02", c.due)
		if err != nil {
			fmt.Fprintf(errOut, "error: invalid due date: %s\n", c.due)
			return exitcode.UserError
		}
		patch.DueDate = &due
		changed = true
	}

	if !changed {
		fmt.Fprintln(errOut, "error: nothing to update")
		return exitcode.UserError
	}

	if _, err := svc.UpdateTodo(ctx, args[0], patch); err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
