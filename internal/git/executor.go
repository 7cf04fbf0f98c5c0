package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/bashhack/autosave/internal/errors"
)

// Result holds the captured output of a finished command.
type Result struct {
	Stdout string
	Stderr string
}

// CommandExecutor defines an interface for executing commands
type CommandExecutor interface {
	// Execute runs cmd, capturing stdout and stderr. A non-zero exit, a
	// spawn failure or an expired ctx is returned as a *errors.GitError.
	Execute(ctx context.Context, cmd *exec.Cmd) (Result, error)
}

// ExecExecutor is the default implementation of CommandExecutor
// that delegates to the os/exec package
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Execute implements CommandExecutor.Execute
func (e *ExecExecutor) Execute(ctx context.Context, cmd *exec.Cmd) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	operation, args := describe(cmd.Args)

	sentinel := errors.ErrGitOperationFailed
	if ctx.Err() == context.DeadlineExceeded {
		sentinel = errors.ErrCommandTimeout
	}

	// Keep both in the chain: callers match the sentinel, IsRepository needs the exit code.
	return res, errors.NewGitError(operation, args, fmt.Errorf("%w: %w", sentinel, err), res.Stderr)
}

// describe splits "git -C <repo> <sub> <args...>" into the subcommand and its
// arguments. Anything that does not look like a git invocation is returned as-is.
func describe(argv []string) (string, []string) {
	if len(argv) == 0 {
		return "", nil
	}
	rest := argv[1:]
	for len(rest) >= 2 && rest[0] == "-C" {
		rest = rest[2:]
	}
	if len(rest) == 0 {
		return argv[0], nil
	}
	return rest[0], rest[1:]
}
