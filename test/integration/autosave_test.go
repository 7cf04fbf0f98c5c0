//go:build integration
// +build integration

package integration

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestEditIsCommittedAndPushed(t *testing.T) {
	skipUnlessEnabled(t)

	work, remote := setupTestRepo(t)
	cmd, out := startAutosave(t, work, "--commit-prefix", "[it] Save:")

	waitReady(t, out)
	if _, err := os.Stat(filepath.Join(work, ".autosave.pid")); err != nil {
		t.Fatalf("Expected lock file while running: %v", err)
	}

	if err := os.WriteFile(filepath.Join(work, "todo.md"), []byte("- buy milk\n"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	waitFor(t, 15*time.Second, "commit on the remote", func() bool {
		return runGit(t, remote, "rev-list", "--count", "main") == "2"
	})

	subject := runGit(t, remote, "log", "-1", "--pretty=%s", "main")
	pattern := regexp.MustCompile(`^\[it\] Save: \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
	if !pattern.MatchString(subject) {
		t.Errorf("Unexpected commit subject %q", subject)
	}

	files := runGit(t, remote, "ls-tree", "--name-only", "main")
	if strings.Contains(files, ".autosave.pid") {
		t.Errorf("Lock file was committed: %s", files)
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("Failed to signal autosave: %v", err)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("Expected clean exit, got %v\n%s", err, out.String())
	}

	if _, err := os.Stat(filepath.Join(work, ".autosave.pid")); !os.IsNotExist(err) {
		t.Errorf("Expected lock file to be removed on exit, stat err: %v", err)
	}
	if !strings.Contains(out.String(), "Session duration") {
		t.Errorf("Expected session summary in output:\n%s", out.String())
	}
}

func TestFallbackBranchWhenPrimaryRejected(t *testing.T) {
	skipUnlessEnabled(t)

	work, remote := setupTestRepo(t)

	// Reject every update to main on the remote.
	hook := filepath.Join(remote, "hooks", "update")
	script := "#!/bin/sh\n[ \"$1\" = \"refs/heads/main\" ] && exit 1\nexit 0\n"
	if err := os.WriteFile(hook, []byte(script), 0o755); err != nil {
		t.Fatalf("Failed to install hook: %v", err)
	}

	cmd, out := startAutosave(t, work, "--fallback-branch", "main:refs/heads/rescue")
	waitReady(t, out)

	if err := os.WriteFile(filepath.Join(work, "draft.txt"), []byte("draft\n"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	waitFor(t, 15*time.Second, "push to the fallback branch", func() bool {
		return strings.Contains(out.String(), "Successfully auto-saved")
	})

	if got := runGit(t, remote, "rev-list", "--count", "rescue"); got != "2" {
		t.Errorf("Expected the save on the fallback ref, rev-list count = %s", got)
	}
	if got := runGit(t, remote, "rev-list", "--count", "main"); got != "1" {
		t.Errorf("Expected main to be untouched, rev-list count = %s", got)
	}

	_ = cmd.Process.Signal(syscall.SIGINT)
	_ = cmd.Wait()
}

func TestSecondInstanceIsRefused(t *testing.T) {
	skipUnlessEnabled(t)

	work, _ := setupTestRepo(t)
	first, firstOut := startAutosave(t, work)
	waitReady(t, firstOut)

	second, out := startAutosave(t, work)
	err := second.Wait()
	if err == nil {
		t.Fatalf("Expected the second instance to fail\n%s", out.String())
	}
	if code := second.ProcessState.ExitCode(); code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(out.String(), "already running") {
		t.Errorf("Expected an already-running error, got:\n%s", out.String())
	}

	// The first instance still owns the lock.
	if _, err := os.Stat(filepath.Join(work, ".autosave.pid")); err != nil {
		t.Errorf("Lock file disappeared: %v", err)
	}

	_ = first.Process.Signal(syscall.SIGTERM)
	_ = first.Wait()
}

func TestUnsavedWorkFromBeforeStartIsSaved(t *testing.T) {
	skipUnlessEnabled(t)

	work, remote := setupTestRepo(t)
	if err := os.WriteFile(filepath.Join(work, "left-over.txt"), []byte("from last time\n"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	cmd, out := startAutosave(t, work)

	waitFor(t, 15*time.Second, "left-over work on the remote", func() bool {
		return runGit(t, remote, "rev-list", "--count", "main") == "2"
	})
	if !strings.Contains(out.String(), "Unsaved changes found at startup") {
		t.Errorf("Expected startup detection message:\n%s", out.String())
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)
	_ = cmd.Wait()
}

func TestRunFromSubdirectoryDoesNotCommitLockFile(t *testing.T) {
	skipUnlessEnabled(t)

	work, remote := setupTestRepo(t)
	sub := filepath.Join(work, "notes")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	cmd, out := startAutosave(t, sub)
	waitReady(t, out)

	if err := os.WriteFile(filepath.Join(sub, "idea.md"), []byte("idea\n"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	waitFor(t, 15*time.Second, "commit on the remote", func() bool {
		return runGit(t, remote, "rev-list", "--count", "main") == "2"
	})

	files := runGit(t, remote, "ls-tree", "-r", "--name-only", "main")
	if !strings.Contains(files, "notes/idea.md") {
		t.Errorf("Expected notes/idea.md on the remote, got:\n%s", files)
	}
	if strings.Contains(files, ".autosave.pid") {
		t.Errorf("Lock file was committed:\n%s", files)
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)
	_ = cmd.Wait()
}

func TestNotRepositoryExitsWithError(t *testing.T) {
	skipUnlessEnabled(t)

	dir := t.TempDir()
	cmd, out := startAutosave(t, dir)
	if err := cmd.Wait(); err == nil {
		t.Fatalf("Expected failure outside a repository\n%s", out.String())
	}
	if !strings.Contains(out.String(), "not a git repository") {
		t.Errorf("Expected not-a-repository error, got:\n%s", out.String())
	}
}
