package git

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bashhack/autosave/internal/errors"
)

// DefaultCommandTimeout bounds every git invocation.
const DefaultCommandTimeout = 30 * time.Second

// waitDelay bounds how long Run waits for I/O after the process is killed,
// e.g. when an ssh child of `git push` keeps stderr open.
const waitDelay = 2 * time.Second

// Repository is the narrow set of version-control operations autosave needs.
// Client implements it by shelling out to git; tests substitute fakes.
type Repository interface {
	// Status returns the porcelain status lines; empty means a clean tree.
	Status(ctx context.Context) ([]string, error)

	// ListTracked returns the repo-relative paths recorded in the index.
	ListTracked(ctx context.Context) ([]string, error)

	// StageAll stages every modification, addition and deletion.
	StageAll(ctx context.Context) error

	// Commit records the staged tree with the given message.
	Commit(ctx context.Context, message string) error

	// Push pushes the current HEAD to branch on remote.
	Push(ctx context.Context, remote, branch string) error

	// CurrentBranch returns the checked-out branch, or "" when detached.
	CurrentBranch(ctx context.Context) (string, error)
}

// Client runs git commands against a single working tree.
type Client struct {
	repoPath string
	timeout  time.Duration
	executor CommandExecutor
}

// NewClient creates a Client backed by the real git binary.
func NewClient(repoPath string, timeout time.Duration) *Client {
	return NewClientWithExecutor(repoPath, timeout, NewExecExecutor())
}

// NewClientWithExecutor creates a Client with a custom executor.
func NewClientWithExecutor(repoPath string, timeout time.Duration, executor CommandExecutor) *Client {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Client{
		repoPath: repoPath,
		timeout:  timeout,
		executor: executor,
	}
}

// RepoPath returns the working tree this client operates on.
func (c *Client) RepoPath() string {
	return c.repoPath
}

// IsRepository checks if the given path is a git repository
// Returns true if it is a repository, false otherwise.
// If path is not a repository due to git exit code 128, returns (false, nil).
// For other errors (git not found, permission issues, etc), returns (false, err).
func IsRepository(path string) (bool, error) {
	client := NewClient(path, DefaultCommandTimeout)
	if _, err := client.run(context.Background(), "rev-parse", "--is-inside-work-tree"); err != nil {
		// 128 is git's generic fatal exit; for rev-parse it means "not a repository"
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 128 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Status implements Repository.Status
func (c *Client) Status(ctx context.Context) ([]string, error) {
	res, err := c.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return splitLines(res.Stdout), nil
}

// ListTracked implements Repository.ListTracked
func (c *Client) ListTracked(ctx context.Context) ([]string, error) {
	res, err := c.run(ctx, "ls-files", "-z")
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, p := range strings.Split(res.Stdout, "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// StageAll implements Repository.StageAll
func (c *Client) StageAll(ctx context.Context) error {
	_, err := c.run(ctx, "add", "-A")
	return err
}

// Commit implements Repository.Commit
func (c *Client) Commit(ctx context.Context, message string) error {
	_, err := c.run(ctx, "commit", "-m", message)
	return err
}

// Push implements Repository.Push
func (c *Client) Push(ctx context.Context, remote, branch string) error {
	_, err := c.run(ctx, "push", remote, branch)
	return err
}

// CurrentBranch implements Repository.CurrentBranch
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// ExcludeLocally appends pattern to the repository's info/exclude file unless
// an identical line is already there. Unlike .gitignore this file is never
// committed, so it keeps local-only artifacts such as the sentinel out of `add -A`.
// A leading slash anchors pattern at the client's directory, which may be a
// subdirectory of the worktree.
func (c *Client) ExcludeLocally(ctx context.Context, pattern string) error {
	if strings.HasPrefix(pattern, "/") {
		res, err := c.run(ctx, "rev-parse", "--show-prefix")
		if err != nil {
			return err
		}
		pattern = "/" + strings.TrimSpace(res.Stdout) + strings.TrimPrefix(pattern, "/")
	}

	res, err := c.run(ctx, "rev-parse", "--git-path", "info/exclude")
	if err != nil {
		return err
	}

	excludePath := strings.TrimSpace(res.Stdout)
	if !filepath.IsAbs(excludePath) {
		excludePath = filepath.Join(c.repoPath, excludePath)
	}

	if existing, err := os.ReadFile(excludePath); err == nil {
		scanner := bufio.NewScanner(strings.NewReader(string(existing)))
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) == pattern {
				return nil
			}
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to read exclude file")
	}

	if err := os.MkdirAll(filepath.Dir(excludePath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create exclude directory")
	}

	f, err := os.OpenFile(excludePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open exclude file")
	}
	if _, err := fmt.Fprintf(f, "\n# added by autosave\n%s\n", pattern); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "failed to write exclude file")
	}
	return f.Close()
}

// run executes a git command in the repository directory. Cancelling ctx does
// not interrupt a running command; only the client timeout bounds it.
func (c *Client) run(ctx context.Context, args ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	allArgs := append([]string{"-C", c.repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", allArgs...)
	cmd.WaitDelay = waitDelay
	// Unattended: a credential prompt would otherwise block until the timeout.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	return c.executor.Execute(ctx, cmd)
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, "\r"))
		}
	}
	return lines
}
