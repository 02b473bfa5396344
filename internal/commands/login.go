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
	"time"

	"tdo/internal/apierr"
	"tdo/internal/config"
	"tdo/internal/exitcode"
	"tdo/internal/service"
	"tdo/internal/session"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email    string
	password string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in and store the session" }
func (c *LoginCmd) Usage() string     { return "tdo login --email <address> [--password <p>]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.email, "e", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

// sessionHolder is implemented by backends that own a session client.
type sessionHolder interface {
	Session() *session.Client
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	// Check if already logged in (stored token still ahead of expiry)
	if holder, ok := svc.(sessionHolder); ok && cfg.HasToken() {
		if exp, ok := holder.Session().TokenExpiry(); ok && exp.After(time.Now()) {
			if !cfg.Quiet {
				fmt.Fprintln(out, "already logged in")
			}
			return exitcode.Success
		}
	}

	if c.email == "" {
		fmt.Fprintln(errOut, "error: email required")
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

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: creating config dir: %v\n", err)
		return exitcode.AuthError
	}

	result, err := svc.Login(ctx, service.Credentials{Email: c.email, Password: password})
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
		fmt.Fprintf(out, "logged in as %s\n", result.User.Username)
	}
	return exitcode.Success
}
