//go:build integration
// +build integration

package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

func skipUnlessEnabled(t *testing.T) {
	t.Helper()
	if os.Getenv("AUTOSAVE_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test. Set AUTOSAVE_INTEGRATION_TESTS=1 to run")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// setupTestRepo creates a working tree with one commit and a bare "origin"
// it can push to. It returns the working tree and the bare repository.
func setupTestRepo(t *testing.T) (string, string) {
	t.Helper()

	root := t.TempDir()
	remote := filepath.Join(root, "remote.git")
	work := filepath.Join(root, "work")

	runGit(t, root, "init", "-q", "--bare", remote)
	runGit(t, root, "init", "-q", "-b", "main", work)
	runGit(t, work, "config", "user.email", "test@example.com")
	runGit(t, work, "config", "user.name", "Test User")
	runGit(t, work, "config", "commit.gpgsign", "false")
	runGit(t, work, "remote", "add", "origin", remote)

	if err := os.WriteFile(filepath.Join(work, "README.md"), []byte("# notes\n"), 0o644); err != nil {
		t.Fatalf("Failed to write README: %v", err)
	}
	runGit(t, work, "add", "README.md")
	runGit(t, work, "commit", "-q", "-m", "Initial commit")
	runGit(t, work, "push", "-q", "origin", "main")

	return work, remote
}

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
)

// buildAutosave compiles the binary once per test run.
func buildAutosave(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		_, file, _, _ := runtime.Caller(0)
		moduleRoot := filepath.Join(filepath.Dir(file), "..", "..")

		dir, err := os.MkdirTemp("", "autosave-bin-")
		if err != nil {
			buildErr = err
			return
		}
		binPath = filepath.Join(dir, "autosave")

		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/autosave")
		cmd.Dir = moduleRoot
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = &buildFailure{err: err, out: string(out)}
		}
	})

	if buildErr != nil {
		t.Fatalf("Failed to build autosave: %v", buildErr)
	}
	return binPath
}

type buildFailure struct {
	err error
	out string
}

func (b *buildFailure) Error() string {
	return b.err.Error() + "\n" + b.out
}

// syncBuffer is a bytes.Buffer safe to read while a child process writes it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// startAutosave launches the binary against repo with a fast cadence.
func startAutosave(t *testing.T, repo string, extra ...string) (*exec.Cmd, *syncBuffer) {
	t.Helper()

	args := append([]string{"--repo", repo, "--interval", "100ms", "--debounce", "500ms", "--no-color"}, extra...)
	cmd := exec.Command(buildAutosave(t), args...)
	out := &syncBuffer{}
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start autosave: %v", err)
	}

	t.Cleanup(func() {
		if cmd.ProcessState == nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}
	})

	return cmd, out
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("Timed out after %s waiting for %s", timeout, what)
}

// waitReady blocks until the watcher has taken its initial baseline. Edits
// made before that point become part of the baseline and are never seen.
func waitReady(t *testing.T, out *syncBuffer) {
	t.Helper()
	waitFor(t, 10*time.Second, "watcher to be ready", func() bool {
		return strings.Contains(out.String(), "Ready, watching for changes")
	})
}
