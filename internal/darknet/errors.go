package darknet

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// FormatError means a detection line did not match the tool's output layout.
// It signals corrupted or unexpected tool output and aborts the whole parse.
type FormatError struct {
	Line   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed detection line %q: %s", e.Line, e.Reason)
}

// ProcessError means the detector could not be started or exited unsuccessfully.
// We prefer to report the tool's stderr over the bare exit status.
type ProcessError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("detector %q failed: %v: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("detector %q failed: %v", e.Command, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code, or -1 if the process never ran to completion.
func (e *ProcessError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func newProcessError(command string, err error) *ProcessError {
	pe := &ProcessError{Command: command, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		pe.Stderr = strings.TrimSpace(string(exitErr.Stderr))
	}
	return pe
}

// CountMismatchError means the tool produced a different number of image blocks
// than the number of images it was given, so results cannot be paired with inputs.
type CountMismatchError struct {
	Images int
	Blocks int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("detector returned %d image blocks for %d images", e.Blocks, e.Images)
}
