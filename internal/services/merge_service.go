// Package services – MergeService
//
// This file implements the three merge algorithms: merging a parsed unit
// collection into a live file (honoring overwrite and fuzzy policy),
// recording a collection's entries as suggestions without touching the
// file, and dispatching an uploaded file either to a store merge across
// every propagation sibling or to suggestions on the originating
// translation. File-mutating paths run under the repository write lock for
// the whole mutate-save-commit span.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/cache"
	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/format"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

// UploadModeMarkFuzzy merges an upload into the files, marking every merged
// unit as needing review. The empty mode merges without the marker; any
// other value records suggestions instead.
const UploadModeMarkFuzzy = "mark-fuzzy"

// MergeOptions control a store merge.
type MergeOptions struct {
	// Overwrite replaces targets that are already translated.
	Overwrite bool
	// MergeHeader copies the source store's header metadata across.
	MergeHeader bool
	// AddFuzzy marks every merged unit fuzzy regardless of its state in
	// the source store.
	AddFuzzy bool
}

// UploadOptions control an upload merge.
type UploadOptions struct {
	// Overwrite replaces targets that are already translated.
	Overwrite bool
	// MergeHeader copies the upload's header metadata across.
	MergeHeader bool
	// Mode selects the merge branch: "" or UploadModeMarkFuzzy merge into
	// files, anything else records suggestions.
	Mode string
}

// MergeService reconciles uploaded or externally fetched unit collections
// against the index and the backing files.
type MergeService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Gateways provides repository access per component.
	Gateways GatewayProvider
	// Formats parses translation files and uploads.
	Formats *format.Registry
	// Commits performs the post-merge commits.
	Commits *CommitService
	// Sync re-syncs merged translations so callers observe fresh stats.
	Sync *SyncService
	// Cache holds derived values invalidated when suggestions land.
	Cache *cache.Cache
	// Log is the structured logger.
	Log zerolog.Logger
}

// NewMergeService constructs a MergeService.
func NewMergeService(db *gorm.DB, gw GatewayProvider, formats *format.Registry, commits *CommitService, sync *SyncService, c *cache.Cache, log zerolog.Logger) *MergeService {
	return &MergeService{
		DB:       db,
		Gateways: gw,
		Formats:  formats,
		Commits:  commits,
		Sync:     sync,
		Cache:    c,
		Log:      log,
	}
}

// MergeStore merges every translated unit of source into t's live file,
// then saves, commits, and synchronously re-syncs t. Units absent from the
// live file are skipped silently. Returns whether a commit was made.
func (s *MergeService) MergeStore(ctx context.Context, t *domain.Translation, source format.Store, author string, opts MergeOptions) (bool, error) {
	g := s.Gateways.Gateway(t.Component.RepoPath)

	var committed bool
	err := g.WithWriteLock(func() error {
		live, err := s.Formats.Open(filepath.Join(t.Component.RepoPath, t.Filename), t.Component.FormatHint)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnparsableFile, err)
		}

		for _, su := range source.Units() {
			if su.IsHeader() {
				if opts.MergeHeader {
					if hm, ok := live.(format.HeaderMerger); ok {
						hm.MergeHeader(source)
					}
				}
				continue
			}
			if !su.IsTranslated() {
				continue
			}
			dst := live.FindID(su.ID())
			if dst == nil {
				// Fall back to source-text lookup; the first structural
				// match wins and ambiguity is accepted, not diagnosed.
				if matches := live.FindSource(su.Source()); len(matches) > 0 {
					dst = matches[0]
				}
			}
			if dst == nil {
				continue
			}
			if !opts.Overwrite && dst.IsTranslated() {
				continue
			}
			dst.SetTargets(su.Targets())
			dst.MarkFuzzy(su.IsFuzzy() || opts.AddFuzzy)
		}

		// A prior author's pending edits go into their own commit before
		// this merge lands on top.
		if _, err := s.Commits.CommitPendingHeld(ctx, g, t, author); err != nil {
			return err
		}
		if err := live.Save(); err != nil {
			return fmt.Errorf("save %s: %w", t.Filename, err)
		}
		committed, err = s.Commits.CommitHeld(ctx, g, t, author, time.Now(), CommitOptions{Force: true, SyncRevision: true})
		return err
	})
	if err != nil {
		return false, err
	}

	if err := s.Sync.Reconcile(ctx, t.ID, author, true); err != nil {
		return committed, err
	}
	return committed, nil
}

// MergeSuggestions records every translated, non-header unit of source as a
// suggestion for t. The file is never touched and no deduplication is
// applied; orphaned suggestions are removed by the sync cleanup pass.
// Returns whether any suggestion was recorded.
func (s *MergeService) MergeSuggestions(ctx context.Context, t *domain.Translation, source format.Store, actor string) (bool, error) {
	projectID := t.Component.ProjectID
	var added bool
	for _, su := range source.Units() {
		if su.IsHeader() || !su.IsTranslated() {
			continue
		}
		sum := domain.Checksum(joinPlurals(su.Sources()), su.Context())
		err := repo.CreateSuggestion(ctx, s.DB, &domain.Suggestion{
			ProjectID:    projectID,
			LanguageCode: t.LanguageCode,
			Checksum:     sum,
			Target:       joinPlurals(su.Targets()),
			Actor:        actor,
		})
		if err != nil {
			return added, fmt.Errorf("record suggestion %s: %w", sum, err)
		}
		added = true
	}
	if added {
		if s.Cache != nil {
			s.Cache.Invalidate(cache.Key{TranslationID: t.ID, Kind: cache.KindSuggestions})
		}
		if err := repo.RecordChange(ctx, s.DB, t.ID, domain.ActionSuggestion, actor); err != nil {
			return added, err
		}
	}
	return added, nil
}

// MergeUpload parses an uploaded file and applies it. With mode "" or
// UploadModeMarkFuzzy it merges into t and every propagation sibling
// sharing t's language, OR-combining the results; any other mode records
// suggestions against t alone. A sibling that fails does not roll back
// siblings already merged; the result stays an aggregate boolean with
// per-sibling detail only in the log.
func (s *MergeService) MergeUpload(ctx context.Context, t *domain.Translation, fileBytes []byte, author string, opts UploadOptions) (bool, error) {
	source, err := s.Formats.OpenBytes(fileBytes, t.Component.FormatHint)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnparsableFile, err)
	}

	if opts.Mode != "" && opts.Mode != UploadModeMarkFuzzy {
		return s.MergeSuggestions(ctx, t, source, author)
	}

	siblings, err := repo.SiblingTranslations(ctx, s.DB, t)
	if err != nil {
		return false, err
	}

	var changed bool
	var errs []error
	for i := range siblings {
		sib := &siblings[i]
		committed, err := s.MergeStore(ctx, sib, source, author, MergeOptions{
			Overwrite:   opts.Overwrite,
			MergeHeader: opts.MergeHeader,
			AddFuzzy:    opts.Mode == UploadModeMarkFuzzy,
		})
		if err != nil {
			s.Log.Error().Err(err).
				Str("component", sib.Component.Slug).
				Str("language", sib.LanguageCode).
				Str("path", sib.Filename).
				Msg("upload merge failed for sibling")
			errs = append(errs, err)
			continue
		}
		changed = changed || committed
	}
	if changed {
		if err := repo.RecordChange(ctx, s.DB, t.ID, domain.ActionUpload, author); err != nil {
			errs = append(errs, err)
		}
	}
	return changed, errors.Join(errs...)
}
