package git

import (
	"context"
	"os/exec"
	"strings"
)

// MockCommandExecutor records every command and answers from ExecuteFn.
type MockCommandExecutor struct {
	Output    string
	LastCmd   *exec.Cmd
	Commands  []*exec.Cmd
	ExecuteFn func(ctx context.Context, cmd *exec.Cmd) (Result, error)
}

// Execute implements the CommandExecutor interface
func (m *MockCommandExecutor) Execute(ctx context.Context, cmd *exec.Cmd) (Result, error) {
	m.LastCmd = cmd
	m.Commands = append(m.Commands, cmd)

	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, cmd)
	}

	return Result{Stdout: m.Output}, nil
}

// Subcommands returns the git subcommand lines that were run, without "git -C <repo>".
func (m *MockCommandExecutor) Subcommands() []string {
	var lines []string
	for _, cmd := range m.Commands {
		op, args := describe(cmd.Args)
		lines = append(lines, strings.TrimSpace(op+" "+strings.Join(args, " ")))
	}
	return lines
}

// NewMockCommandExecutor creates a new mock executor
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Commands: make([]*exec.Cmd, 0),
	}
}
