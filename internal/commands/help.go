package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tdo/internal/config"
	"tdo/internal/exitcode"
	"tdo/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tdo help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tdo                                          List todos (first page, newest first)
  tdo list [filters] [--sort <key>] [--dir asc|desc] [--page <n>] [--page-size <n>] [--local]
  tdo add [--desc <text>] [--priority <p>] [--tags <t1,t2>] [--assigned <users>] [--due <date>] <title...>
  tdo edit [fields] <id>
  tdo done [--undo] <id>
  tdo rm <id>
  tdo show <id>
  tdo note <id> <content...>
  tdo export [filters] [--out <file>]
  tdo users
  tdo profile [--name <n>] [--email <e>] [--current-password <p> --new-password <p>]
  tdo register --name <n> --email <address>
  tdo login --email <address>
  tdo logout
  tdo help
  tdo version

Filters:
  --search <term>                 Match title, description or tags
  --priority low|medium|high      Filter by priority
  --status completed|pending      Filter by completion
  --assigned <u1,u2>              Todos assigned to all given users

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Verbose logging to the log file
`
