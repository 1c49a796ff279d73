// Package probe holds the connection parameters shared by every collector
// and the error taxonomy used to decide whether a probe aborts or carries on
// with a warning.
package probe

import (
	"errors"
	"fmt"
)

// ErrPrivilegeEscalation is recorded as a warning when the enable secret is
// rejected. The probe continues unprivileged.
var ErrPrivilegeEscalation = errors.New("enable password may be invalid; continuing without privilege mode")

// ConnectionError reports an authentication or transport failure. It is
// always fatal for the probe.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CommandError reports that a device answered a required command with an
// error marker. Output holds the raw device text.
type CommandError struct {
	Command string
	Output  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Output)
}

// BackendUnavailableError reports that an optional collection backend cannot
// run at all (missing platform support, unsupported credential form).
// Orchestrators treat it as a reason to fall back, not as a failure.
type BackendUnavailableError struct {
	Backend string
	Reason  string
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Backend, e.Reason)
}

// IsFatal reports whether err must abort a probe. An unavailable backend or
// a rejected enable secret on its own is recoverable; an error that merely
// contains one among other failures is not.
func IsFatal(err error) bool {
	switch err.(type) {
	case nil:
		return false
	case *BackendUnavailableError:
		return false
	}
	return err != ErrPrivilegeEscalation
}
