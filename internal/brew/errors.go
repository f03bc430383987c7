package brew

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrToolNotFound is matched by errors.Is for any *ToolNotFoundError.
var ErrToolNotFound = errors.New("homebrew not found")

// ToolNotFoundError is returned when no brew executable exists at any of the
// probed locations. No process is spawned in that case.
type ToolNotFoundError struct {
	Searched []string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("Homebrew not found (looked in %s). Please install it at https://brew.sh",
		strings.Join(e.Searched, ", "))
}

func (e *ToolNotFoundError) Is(target error) bool {
	return target == ErrToolNotFound
}

// SpawnError is returned when the brew process could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExecutionError is returned when brew ran but exited non-zero.
// Stderr holds the captured diagnostic text verbatim.
type ExecutionError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ExecutionError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("brew %s failed (exit %d): %s", strings.Join(e.Args, " "), e.ExitCode, msg)
}

// DecodeError describes a structural violation in brew's JSON payload.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "invalid outdated payload: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ParseError is returned by the check service when brew exited cleanly but
// its output could not be interpreted, usually a brew version/schema mismatch.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "failed to parse brew output: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsExecutionError reports whether err is (or wraps) an *ExecutionError.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError
	return errors.As(err, &execErr)
}
