package apply

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransform is returned when the program fails for a record and
	// the error policy is OnErrorExit. The error is a *TransformError.
	ErrTransform = errors.New("transformation failed")

	// ErrConsistency means that not every record was written at the end of
	// the run. It indicates a bug.
	ErrConsistency = errors.New("internal consistency error")

	ErrInvalidOptions = errors.New("invalid options")
)

// TransformError describes a run of the program that exited with a
// non-zero code
type TransformError struct {
	Name     string
	ExitCode int
	Stderr   []byte
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("record %s: exit code %d: %s", e.Name, e.ExitCode, e.Message())
}

func (e *TransformError) Unwrap() error {
	return ErrTransform
}

// Message returns stderr of the program as text
func (e *TransformError) Message() string {
	return strings.TrimSpace(strings.ToValidUTF8(string(e.Stderr), "�"))
}
