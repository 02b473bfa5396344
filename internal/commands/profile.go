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
	Register(&ProfileCmd{})
}

// ProfileCmd implements the profile command. Password change requires
// both --current-password and --new-password.
type ProfileCmd struct {
	name            string
	email           string
	currentPassword string
	newPassword     string
}

func (c *ProfileCmd) Name() string      { return "profile" }
func (c *ProfileCmd) Aliases() []string { return nil }
func (c *ProfileCmd) Synopsis() string  { return "Update the signed-in user's profile" }
func (c *ProfileCmd) Usage() string {
	return "tdo profile [--name <n>] [--email <e>] [--current-password <p> --new-password <p>]"
}
func (c *ProfileCmd) NeedsAuth() bool { return true }

func (c *ProfileCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.currentPassword, "current-password", "", "")
	fs.StringVar(&c.newPassword, "new-password", "", "")
}

func (c *ProfileCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if c.name == "" && c.email == "" && c.newPassword == "" {
		fmt.Fprintln(errOut, "error: nothing to update")
		return exitcode.UserError
	}

	user, err := svc.UpdateProfile(ctx, service.ProfileUpdate{
		Name:            c.name,
		Email:           c.email,
		CurrentPassword: c.currentPassword,
		NewPassword:     c.newPassword,
	})
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "updated profile for %s\n", user.Username)
	}
	return exitcode.Success
}
