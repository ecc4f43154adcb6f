// Package services – CommitService
//
// This file implements the commit pipeline for translation files. A commit
// is skipped when the file is clean, deferred when lazy commits are enabled
// and the caller did not force, and otherwise performed under the
// repository write lock with the project's committer identity enforced and
// the commit message rendered from the project template. Transient
// repository contention is retried exactly once after a short delay.
//
// CommitPending keeps different authors' edits in separate commits: before
// an edit by a new author touches the working tree, the previous author's
// accumulated changes are swept into their own forced commit.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/gitrepo"
	"github.com/tbourn/go-translate-backend/internal/observability"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

// CommitOptions control one commit attempt.
type CommitOptions struct {
	// Force commits even when lazy commits are enabled.
	Force bool
	// SyncRevision stores the post-commit blob hash so the next sync pass
	// is a no-op.
	SyncRevision bool
	// SkipPush suppresses the push-on-commit behavior for this commit.
	SkipPush bool
}

// CommitService serializes and performs repository commits.
type CommitService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Gateways provides repository access per component.
	Gateways GatewayProvider
	// Lazy defers unforced commits, leaving edits in the working tree.
	Lazy bool
	// RetryDelay is the wait before the single retry on a busy repository.
	RetryDelay time.Duration
	// Log is the structured logger.
	Log zerolog.Logger

	// Sleep is overridable in tests; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// NewCommitService constructs a CommitService.
func NewCommitService(db *gorm.DB, gw GatewayProvider, lazy bool, retryDelay time.Duration, log zerolog.Logger) *CommitService {
	return &CommitService{
		DB:         db,
		Gateways:   gw,
		Lazy:       lazy,
		RetryDelay: retryDelay,
		Log:        log,
		Sleep:      time.Sleep,
	}
}

// Commit commits t's backing file with the given author and timestamp. It
// returns false without error when the file is clean or the commit was
// deferred by the lazy policy. t must carry its preloaded component and
// project.
func (s *CommitService) Commit(ctx context.Context, t *domain.Translation, author string, when time.Time, opts CommitOptions) (bool, error) {
	g := s.Gateways.Gateway(t.Component.RepoPath)

	proceed, err := s.shouldCommit(ctx, g, t, opts)
	if err != nil || !proceed {
		return false, err
	}
	if err := g.WithWriteLock(func() error {
		return s.commitHeld(ctx, g, t, author, when)
	}); err != nil {
		observability.ObserveCommit(t.Component.Project.Slug, t.Component.Slug, err)
		return false, err
	}
	observability.ObserveCommit(t.Component.Project.Slug, t.Component.Slug, nil)
	return true, s.afterCommit(ctx, g, t, opts)
}

// CommitHeld is Commit for callers already inside the repository write
// lock, such as the merge paths that batch file mutation and commit under
// one lock acquisition.
func (s *CommitService) CommitHeld(ctx context.Context, g Gateway, t *domain.Translation, author string, when time.Time, opts CommitOptions) (bool, error) {
	proceed, err := s.shouldCommit(ctx, g, t, opts)
	if err != nil || !proceed {
		return false, err
	}
	err = s.commitHeld(ctx, g, t, author, when)
	observability.ObserveCommit(t.Component.Project.Slug, t.Component.Slug, err)
	if err != nil {
		return false, err
	}
	return true, s.afterCommit(ctx, g, t, opts)
}

func (s *CommitService) shouldCommit(ctx context.Context, g Gateway, t *domain.Translation, opts CommitOptions) (bool, error) {
	dirty, err := g.IsDirty(ctx, t.Filename)
	if err != nil {
		return false, fmt.Errorf("dirty check %s: %w", t.Filename, err)
	}
	if !dirty {
		return false, nil
	}
	if !opts.Force && s.Lazy {
		s.Log.Debug().
			Str("component", t.Component.Slug).
			Str("path", t.Filename).
			Msg("commit deferred, lazy commits enabled")
		return false, nil
	}
	return true, nil
}

func (s *CommitService) commitHeld(ctx context.Context, g Gateway, t *domain.Translation, author string, when time.Time) error {
	proj := t.Component.Project
	if err := g.EnsureCommitter(ctx, proj.CommitterName, proj.CommitterEmail); err != nil {
		return fmt.Errorf("ensure committer: %w", err)
	}

	msg := renderCommitMessage(proj.CommitMessage, t)
	err := g.Commit(ctx, t.Filename, commitAuthor(author, proj), when, msg)
	if errors.Is(err, gitrepo.ErrRepoBusy) {
		s.Log.Warn().
			Str("path", t.Filename).
			Dur("delay", s.RetryDelay).
			Msg("repository busy, retrying commit once")
		s.Sleep(s.RetryDelay)
		err = g.Commit(ctx, t.Filename, commitAuthor(author, proj), when, msg)
	}
	if err != nil {
		return fmt.Errorf("commit %s: %w", t.Filename, err)
	}
	return nil
}

func (s *CommitService) afterCommit(ctx context.Context, g Gateway, t *domain.Translation, opts CommitOptions) error {
	if opts.SyncRevision {
		rev, err := g.BlobHash(ctx, t.Filename)
		if err != nil {
			return fmt.Errorf("post-commit blob hash: %w", err)
		}
		if tpl := t.Component.Template; tpl != "" {
			tplRev, err := g.BlobHash(ctx, tpl)
			if err != nil {
				return fmt.Errorf("post-commit template hash: %w", err)
			}
			rev = rev + "," + tplRev
		}
		t.Revision = rev
		if err := repo.SaveTranslation(ctx, s.DB, t); err != nil {
			return err
		}
	}

	if t.Component.Project.PushOnCommit && !opts.SkipPush {
		log := s.Log.With().
			Str("component", t.Component.Slug).
			Str("path", t.Filename).
			Logger()
		// Fire and forget; a failed push is logged, never fatal.
		go func() {
			if err := g.Push(context.Background()); err != nil {
				log.Error().Err(err).Msg("push failed")
			}
		}()
	}
	return nil
}

// CommitPending sweeps uncommitted working-tree edits into a commit
// attributed to their original author before a different author's edit
// lands. It returns whether a commit was made.
func (s *CommitService) CommitPending(ctx context.Context, t *domain.Translation, author string) (bool, error) {
	prior, when, ok, err := s.pendingAuthor(ctx, t, author)
	if err != nil || !ok {
		return false, err
	}
	return s.Commit(ctx, t, prior, when, CommitOptions{Force: true, SyncRevision: true})
}

// CommitPendingHeld is CommitPending for callers holding the write lock.
func (s *CommitService) CommitPendingHeld(ctx context.Context, g Gateway, t *domain.Translation, author string) (bool, error) {
	prior, when, ok, err := s.pendingAuthor(ctx, t, author)
	if err != nil || !ok {
		return false, err
	}
	return s.CommitHeld(ctx, g, t, prior, when, CommitOptions{Force: true, SyncRevision: true})
}

// pendingAuthor resolves the author of the newest content change when it
// differs from the incoming author.
func (s *CommitService) pendingAuthor(ctx context.Context, t *domain.Translation, author string) (string, time.Time, bool, error) {
	last, err := repo.LastContentChange(ctx, s.DB, t.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, err
	}
	if last.Actor == "" || last.Actor == author {
		return "", time.Time{}, false, nil
	}
	return last.Actor, last.CreatedAt, true, nil
}

// renderCommitMessage substitutes the recognized placeholders of a
// project's commit message template.
func renderCommitMessage(tmpl string, t *domain.Translation) string {
	return strings.NewReplacer(
		"{language}", t.LanguageCode,
		"{language_name}", t.LanguageName,
		"{component}", t.Component.Name,
		"{subproject}", t.Component.Name, // legacy alias for {component}
		"{project}", t.Component.Project.Name,
		"{total}", strconv.FormatInt(t.Total, 10),
		"{fuzzy}", strconv.FormatInt(t.Fuzzy, 10),
		"{fuzzy_percent}", strconv.FormatFloat(t.FuzzyPercent(), 'f', 1, 64),
		"{translated}", strconv.FormatInt(t.Translated, 10),
		"{translated_percent}", strconv.FormatFloat(t.TranslatedPercent(), 'f', 1, 64),
	).Replace(tmpl)
}

// commitAuthor normalizes an actor into a git "Name <email>" identity,
// falling back to the project committer when the actor is unknown.
func commitAuthor(actor string, proj domain.Project) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return fmt.Sprintf("%s <%s>", proj.CommitterName, proj.CommitterEmail)
	}
	if strings.Contains(actor, "<") {
		return actor
	}
	return fmt.Sprintf("%s <%s>", actor, proj.CommitterEmail)
}
