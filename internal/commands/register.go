package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"tdo/internal/apierr"
	"tdo/internal/config"
	"tdo/internal/exitcode"
	"tdo/internal/service"
)

func init() {
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command. Registration does not
// log in; run login afterwards.
type RegisterCmd struct {
	name     string
	email    string
	password string
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account" }
func (c *RegisterCmd) Usage() string {
	return "tdo register --name <n> --email <address> [--password <p>]"
}
func (c *RegisterCmd) NeedsAuth() bool { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if c.name == "" || c.email == "" {
		fmt.Fprintln(errOut, "error: name and email required")
		return exitcode.UserError
	}

	password := c.password
	if password == "" {
		fmt.Fprint(errOut, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(errOut, "error: could not read password")
			return exitcode.UserError
		}
		password = strings.TrimRight(line, "\r\n")
	}

	result, err := svc.Register(ctx, service.Registration{
		Name:     c.name,
		Email:    c.email,
		Password: password,
	})
	if err != nil {
		if apierr.IsValidation(err) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		var srvErr *apierr.ServerError
		if errors.As(err, &srvErr) {
			fmt.Fprintf(errOut, "error: %v\n", srvErr)
			return exitcode.AuthError
		}
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "registered %s (run: tdo login)\n", result.User.Username)
	}
	return exitcode.Success
}
