package services

import (
	"context"
	"time"

	"github.com/tbourn/go-translate-backend/internal/gitrepo"
)

// Gateway is the repository capability consumed by the sync, commit, and
// merge services: blob hashes, dirty checks, commits, push, and the
// repository-wide write lock. The production implementation shells out to
// git; tests substitute an in-memory fake.
type Gateway interface {
	// Root returns the repository root directory.
	Root() string
	// WithWriteLock runs fn while holding the repository write lock.
	WithWriteLock(fn func() error) error
	// BlobHash returns the blob hash of path at HEAD, or "" when the path
	// is not tracked.
	BlobHash(ctx context.Context, path string) (string, error)
	// IsDirty reports whether path has uncommitted changes.
	IsDirty(ctx context.Context, path string) (bool, error)
	// EnsureCommitter aligns the repository's commit identity with the
	// given name and email.
	EnsureCommitter(ctx context.Context, name, email string) error
	// Commit commits the single path with the supplied author, timestamp,
	// and message.
	Commit(ctx context.Context, path, author string, when time.Time, message string) error
	// Push pushes to the default remote.
	Push(ctx context.Context) error
}

// GatewayProvider hands out one Gateway per repository root. Gateways for
// the same root share the write lock.
type GatewayProvider interface {
	Gateway(root string) Gateway
}

// GitGateways adapts the git-CLI provider to the GatewayProvider contract.
type GitGateways struct {
	provider *gitrepo.Provider
}

// NewGitGateways returns a GatewayProvider backed by the git CLI.
func NewGitGateways() *GitGateways {
	return &GitGateways{provider: gitrepo.NewProvider()}
}

// Gateway implements GatewayProvider.
func (g *GitGateways) Gateway(root string) Gateway {
	return g.provider.Repo(root)
}
