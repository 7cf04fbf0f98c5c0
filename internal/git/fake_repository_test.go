package git

import (
	"context"
	"fmt"
)

// fakeRepository is an in-memory Repository that tracks a dirty working
// tree, a staged index and a local commit log.
type fakeRepository struct {
	dirty   []string
	staged  []string
	commits []string
	pushed  map[string]int

	calls []string

	stageErr  error
	statusErr error
	commitErr error
	pushErrs  map[string]error
	branch    string
	branchErr error

	// onCall runs after each call is recorded, e.g. to cancel a context mid-save.
	onCall func(call string)
}

func (f *fakeRepository) record(call string) {
	f.calls = append(f.calls, call)
	if f.onCall != nil {
		f.onCall(call)
	}
}

func newFakeRepository(dirty ...string) *fakeRepository {
	return &fakeRepository{
		dirty:    dirty,
		pushed:   make(map[string]int),
		pushErrs: make(map[string]error),
	}
}

func (f *fakeRepository) Status(ctx context.Context) ([]string, error) {
	f.record("status")
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	var lines []string
	for _, p := range f.staged {
		lines = append(lines, "M  "+p)
	}
	for _, p := range f.dirty {
		lines = append(lines, " M "+p)
	}
	return lines, nil
}

func (f *fakeRepository) ListTracked(ctx context.Context) ([]string, error) {
	f.record("ls-files")
	return nil, nil
}

func (f *fakeRepository) StageAll(ctx context.Context) error {
	f.record("add")
	if f.stageErr != nil {
		return f.stageErr
	}
	f.staged = append(f.staged, f.dirty...)
	f.dirty = nil
	return nil
}

func (f *fakeRepository) Commit(ctx context.Context, message string) error {
	f.record("commit")
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits = append(f.commits, message)
	f.staged = nil
	return nil
}

func (f *fakeRepository) Push(ctx context.Context, remote, branch string) error {
	f.record(fmt.Sprintf("push %s %s", remote, branch))
	if err := f.pushErrs[branch]; err != nil {
		return err
	}
	f.pushed[branch]++
	return nil
}

func (f *fakeRepository) CurrentBranch(ctx context.Context) (string, error) {
	f.record("branch")
	return f.branch, f.branchErr
}
