package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tdo/internal/config"
	"tdo/internal/exitcode"
	"tdo/internal/service"
)

func init() {
	Register(&NoteCmd{})
}

// NoteCmd implements the note command. Notes are append-only: the
// backend adds the note to the end of the sequence and returns the
// updated record.
type NoteCmd struct{}

func (c *NoteCmd) Name() string      { return "note" }
func (c *NoteCmd) Aliases() []string { return nil }
func (c *NoteCmd) Synopsis() string  { return "Append a note to a todo" }
func (c *NoteCmd) Usage() string     { return "tdo note <id> <content...>" }
func (c *NoteCmd) NeedsAuth() bool   { return true }

func (c *NoteCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *NoteCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(errOut, "error: todo ID and note content required")
		return exitcode.UserError
	}

	id := args[0]
	content := strings.Join(args[1:], " ")

	todo, err := svc.AddNote(ctx, id, content)
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok (%d notes)\n", len(todo.Notes))
	}
	return exitcode.Success
}
