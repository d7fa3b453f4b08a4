package beads

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fancypantalons/bdedit/internal/command"
)

// ErrJSONOutput is wrapped by errors for a successful bd run whose stdout is
// not valid JSON.
var ErrJSONOutput = errors.New("failed to parse JSON output")

// ErrNotFound is returned when bd reports no issue for an id.
var ErrNotFound = errors.New("issue not found")

// SubprocessError reports a bd invocation that failed. ExitCode is -1 when
// the process could not be started or was killed.
type SubprocessError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *SubprocessError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		stderr = "no error output"
	}
	if e.ExitCode < 0 {
		if e.Err != nil {
			return fmt.Sprintf("bd %s: %v", strings.Join(e.Args, " "), e.Err)
		}
		return fmt.Sprintf("bd %s: %s", strings.Join(e.Args, " "), stderr)
	}
	return fmt.Sprintf("bd %s exited with code %d: %s", strings.Join(e.Args, " "), e.ExitCode, stderr)
}

func (e *SubprocessError) Unwrap() error {
	return e.Err
}

// ApplyError reports the command that stopped an apply run. Commands before
// Index were applied and are not rolled back.
type ApplyError struct {
	Index   int
	Total   int
	Command command.Command
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("command %d of %d failed (%s): %v", e.Index+1, e.Total, e.Command.String(), e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Applied returns how many commands succeeded before the failure.
func (e *ApplyError) Applied() int {
	return e.Index
}
