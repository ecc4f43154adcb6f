// Package gitrepo implements the repository gateway over the git command
// line: blob hashes, dirty checks, single-path commits with enforced
// committer identity, and pushes. One Repo value is scoped to one backing
// repository directory; all write paths must run inside WithWriteLock, the
// process-wide mutual exclusion for that directory.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrRepoBusy is returned when git reports a transient lock conflict
// (typically a concurrent operation holding index.lock). Callers may retry
// after a short delay.
var ErrRepoBusy = errors.New("git repository busy")

// Repo is a gateway to one git repository.
type Repo struct {
	root string
	lock *repoLock
}

// Provider hands out gateways, sharing one write lock per repository root
// across every Repo created for it.
type Provider struct {
	locks *lockRegistry
}

// NewProvider returns a Provider with an empty lock registry.
func NewProvider() *Provider {
	return &Provider{locks: newLockRegistry()}
}

// Repo returns a gateway for the repository rooted at root.
func (p *Provider) Repo(root string) *Repo {
	return &Repo{root: root, lock: p.locks.get(root)}
}

// Root returns the repository root directory.
func (r *Repo) Root() string { return r.root }

// WithWriteLock runs fn while holding the exclusive write lock for this
// repository. The lock covers the whole repository, not a single file,
// because commits inspect and update repository-wide config and the working
// tree as a unit. The lock is released on every return path.
func (r *Repo) WithWriteLock(fn func() error) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return fn()
}

func (r *Repo) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.root

	output, err := cmd.CombinedOutput()
	if err != nil {
		if isBusyOutput(string(output)) {
			return output, fmt.Errorf("git %s: %w", args[0], ErrRepoBusy)
		}
		return output, fmt.Errorf("git %s failed: %w\n%s",
			strings.Join(args, " "), err, string(output))
	}
	return output, nil
}

// isBusyOutput recognizes git's transient contention failures.
func isBusyOutput(out string) bool {
	return strings.Contains(out, "index.lock") ||
		strings.Contains(out, "Another git process")
}

// BlobHash returns the blob hash of path at HEAD. It returns an empty
// string without error when the path does not exist in HEAD yet.
func (r *Repo) BlobHash(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-tree", "HEAD", "--", path)
	cmd.Dir = r.root
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git ls-tree failed: %w", err)
	}
	line := strings.TrimSpace(string(output))
	if line == "" {
		return "", nil
	}
	// Format: <mode> SP <type> SP <hash> TAB <path>
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return "", fmt.Errorf("git ls-tree: unexpected output %q", line)
	}
	return fields[2], nil
}

// IsDirty reports whether path has uncommitted changes in the working tree.
func (r *Repo) IsDirty(ctx context.Context, path string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain", "--", path)
	cmd.Dir = r.root
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("git status failed: %w", err)
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// EnsureCommitter checks the repository's configured commit identity and
// corrects it in place when it does not match. Git offers no per-commit
// committer override, so this runs before every commit.
func (r *Repo) EnsureCommitter(ctx context.Context, name, email string) error {
	if err := r.ensureConfig(ctx, "user.name", name); err != nil {
		return err
	}
	return r.ensureConfig(ctx, "user.email", email)
}

func (r *Repo) ensureConfig(ctx context.Context, key, expected string) error {
	cmd := exec.CommandContext(ctx, "git", "config", "--local", "--get", key)
	cmd.Dir = r.root
	output, err := cmd.Output()
	// A missing key exits non-zero; treat it the same as a mismatch.
	if err == nil && strings.TrimSpace(string(output)) == expected {
		return nil
	}
	if _, err := r.git(ctx, "config", "--local", key, expected); err != nil {
		return err
	}
	return nil
}

// Commit commits the single path with the supplied author, timestamp, and
// message. The path is staged first; ErrRepoBusy is surfaced for transient
// lock contention so the caller can retry.
func (r *Repo) Commit(ctx context.Context, path, author string, when time.Time, message string) error {
	if message == "" {
		return fmt.Errorf("commit message is required")
	}
	if _, err := r.git(ctx, "add", "--", path); err != nil {
		return err
	}
	args := []string{"commit", "-m", message}
	if author != "" {
		args = append(args, "--author", author)
	}
	args = append(args, "--date", when.Format(time.RFC3339), "--", path)
	_, err := r.git(ctx, args...)
	return err
}

// Push pushes the current branch to its upstream.
func (r *Repo) Push(ctx context.Context) error {
	_, err := r.git(ctx, "push")
	return err
}
