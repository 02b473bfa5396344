package commands_test

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"tdo/internal/apierr"
	"tdo/internal/commands"
	"tdo/internal/config"
	"tdo/internal/exitcode"
	"tdo/internal/service"
	"tdo/internal/testutil"
)

// Tests for login command
func TestLoginCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, svc,
		[]string{"--email", "tester@example.com", "--password", "secret"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "logged in as tester\n" {
		t.Errorf("unexpected confirmation: %q", stdout)
	}
}

func TestLoginCommand_MissingEmail(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, svc, []string{"--password", "secret"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: email required\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestLoginCommand_BadCredentials(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.LoginErr = &apierr.ServerError{Status: 401, Message: "invalid credentials"}

	_, stderr, code := runCommand(t, &commands.LoginCmd{}, svc,
		[]string{"--email", "tester@example.com", "--password", "wrong"}, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: invalid credentials (status 401)\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestLoginCommand_ValidationError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.LoginErr = apierr.Validationf("email and password are required")

	_, stderr, code := runCommand(t, &commands.LoginCmd{}, svc,
		[]string{"--email", "tester@example.com", "--password", "x"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: email and password are required\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

// Tests for register command
func TestRegisterCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := runCommand(t, &commands.RegisterCmd{}, svc,
		[]string{"--name", "newuser", "--email", "new@example.com", "--password", "secret"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "registered newuser (run: tdo login)\n" {
		t.Errorf("unexpected confirmation: %q", stdout)
	}
}

func TestRegisterCommand_MissingFields(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := runCommand(t, &commands.RegisterCmd{}, svc, []string{"--name", "newuser"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: name and email required\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestRegisterCommand_DuplicateEmail(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.RegisterErr = &apierr.ServerError{Status: 409, Message: "email already in use"}

	_, stderr, code := runCommand(t, &commands.RegisterCmd{}, svc,
		[]string{"--name", "newuser", "--email", "taken@example.com", "--password", "secret"}, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: email already in use (status 409)\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

// Tests for logout command
func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := runCommand(t, &commands.LogoutCmd{}, svc, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "not logged in\n" {
		t.Errorf("unexpected output: %q", stdout)
	}
}

func TestLogoutCommand_WithStoredSession(t *testing.T) {
	svc := testutil.NewFakeService()

	dir := t.TempDir()
	cfg := &config.Config{Dir: dir}
	if err := os.WriteFile(filepath.Join(dir, config.TokenFile), []byte("{}"), 0600); err != nil {
		t.Fatalf("seeding token file: %v", err)
	}

	stdout, stderr, code := runCommandWithConfig(t, &commands.LogoutCmd{}, svc, nil, cfg)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("unexpected output: %q", stdout)
	}
}

// runCommandWithConfig runs a command against an explicit config, for
// tests that need a pre-seeded config directory.
func runCommandWithConfig(t *testing.T, cmd commands.Command, svc service.Service, args []string, cfg *config.Config) (stdout, stderr string, code int) {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), cfg, svc, fs.Args(), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}
