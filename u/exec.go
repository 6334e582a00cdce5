package u

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// ExecResult is the outcome of a program that ran to completion
type ExecResult struct {
	Stdout []byte
	Stderr []byte
	// 0 means success. -1 if the program was terminated by a signal
	ExitCode int
}

// RunWithInput runs exe with stdin as its full input, closes the input
// and collects stdout and stderr.
// A non-zero exit code is not an error, it's reported in ExecResult.
// err is returned if the program couldn't be started or ctx was cancelled.
func RunWithInput(ctx context.Context, stdin []byte, exe string, args ...string) (*ExecResult, error) {
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &ExecResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if err == nil {
		return res, nil
	}
	// killed because of cancellation is not the program's failure
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return nil, err
}
