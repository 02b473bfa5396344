package commands

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"tdo/internal/apierr"
	"tdo/internal/exitcode"
)

// fail prints err and maps it to an exit code. Errors are never
// swallowed: everything the backend or the validator reports reaches
// errOut. A session-expired error has already cleared the stored
// tokens by the time it arrives here.
func fail(errOut io.Writer, err error) int {
	switch {
	case apierr.IsValidation(err):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, apierr.ErrSessionExpired):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	var srvErr *apierr.ServerError
	if errors.As(err, &srvErr) {
		fmt.Fprintf(errOut, "error: %v\n", srvErr)
		if srvErr.Status == http.StatusNotFound {
			return exitcode.UserError
		}
		return exitcode.BackendError
	}

	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}
