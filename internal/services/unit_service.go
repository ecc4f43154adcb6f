// Package services – UnitService
//
// This file implements saving a single edited unit back to its backing
// file. The edit is gated by the component lock and the soft lock, the file
// mutation runs under the repository write lock with any prior author's
// pending edits swept into their own commit first, and the resulting commit
// follows the lazy policy. Accepting a suggestion rides the same path.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/format"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

// UnitService writes interactive edits through to the backing files.
type UnitService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Gateways provides repository access per component.
	Gateways GatewayProvider
	// Formats parses translation files.
	Formats *format.Registry
	// Locks gates interactive edits.
	Locks *LockService
	// Commits performs the post-edit commits.
	Commits *CommitService
	// Sync provides the per-unit recheck after an edit.
	Sync *SyncService
	// Stats recomputes counts after an edit.
	Stats *StatsService
	// SetTranslationTeam maintains the team header in formats that carry
	// header metadata.
	SetTranslationTeam bool
	// Log is the structured logger.
	Log zerolog.Logger
}

// SaveUnit updates the target text and fuzzy state of the unit identified
// by checksum, writes the backing file, and records the edit. The commit
// itself is deferred under the lazy policy until a forced commit sweeps it.
func (s *UnitService) SaveUnit(ctx context.Context, translationID, checksum string, targets []string, fuzzy bool, actor string) (*domain.Unit, error) {
	t, err := repo.GetTranslation(ctx, s.DB, translationID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTranslationNotFound
	}
	if err != nil {
		return nil, err
	}

	state, err := s.Locks.IsLocked(ctx, t, actor)
	if err != nil {
		return nil, err
	}
	if state.ComponentLocked {
		return nil, ErrComponentLocked
	}
	if state.OtherLocked {
		return nil, ErrLocked
	}

	u, err := repo.GetUnitByChecksum(ctx, s.DB, t.ID, checksum)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUnitNotFound
	}
	if err != nil {
		return nil, err
	}

	g := s.Gateways.Gateway(t.Component.RepoPath)
	if err := g.WithWriteLock(func() error {
		if _, err := s.Commits.CommitPendingHeld(ctx, g, t, actor); err != nil {
			return err
		}
		return s.writeEntry(t, u, targets, fuzzy, actor)
	}); err != nil {
		return nil, err
	}

	u.Target = joinPlurals(targets)
	u.Fuzzy = fuzzy
	u.Translated = u.Target != "" && !fuzzy
	if err := repo.SaveUnit(ctx, s.DB, u); err != nil {
		return nil, err
	}
	if err := repo.RecordChange(ctx, s.DB, t.ID, domain.ActionSave, actor); err != nil {
		return nil, err
	}
	if err := s.Sync.recheck(ctx, t.Component.ProjectID, t.LanguageCode, u); err != nil {
		return nil, err
	}
	if err := s.Stats.Update(ctx, t); err != nil {
		return nil, err
	}
	if err := s.Locks.Touch(ctx, t, actor); err != nil {
		return nil, err
	}

	// Deferred under the lazy policy; committed immediately otherwise.
	if _, err := s.Commits.Commit(ctx, t, actor, time.Now(), CommitOptions{SyncRevision: true}); err != nil {
		s.Log.Error().Err(err).
			Str("component", t.Component.Slug).
			Str("path", t.Filename).
			Msg("post-edit commit failed")
	}

	s.Log.Info().
		Str("component", t.Component.Slug).
		Str("language", t.LanguageCode).
		Str("checksum", checksum).
		Str("actor", actor).
		Msg("unit saved")
	return u, nil
}

// AcceptSuggestion applies a pending suggestion to the matching unit of the
// translation as a regular edit attributed to actor, then removes the
// suggestion. The unit resolved by the suggestion's checksum must exist in
// the translation's index.
func (s *UnitService) AcceptSuggestion(ctx context.Context, translationID, suggestionID, actor string) (*domain.Unit, error) {
	sug, err := repo.GetSuggestion(ctx, s.DB, suggestionID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrSuggestionNotFound
	}
	if err != nil {
		return nil, err
	}

	targets := strings.Split(sug.Target, domain.PluralSeparator)
	u, err := s.SaveUnit(ctx, translationID, sug.Checksum, targets, false, actor)
	if err != nil {
		return nil, err
	}
	if err := repo.DeleteSuggestion(ctx, s.DB, sug.ID); err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("suggestion", sug.ID).
		Str("checksum", sug.Checksum).
		Str("actor", actor).
		Msg("suggestion accepted")
	return u, nil
}

// writeEntry mutates the backing file for one unit edit. Caller holds the
// repository write lock.
func (s *UnitService) writeEntry(t *domain.Translation, u *domain.Unit, targets []string, fuzzy bool, actor string) error {
	comp := t.Component
	live, err := s.Formats.Open(filepath.Join(comp.RepoPath, t.Filename), comp.FormatHint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnparsableFile, err)
	}

	entry := live.FindID(u.Context)
	if entry == nil {
		if matches := live.FindSource(u.Source); len(matches) > 0 {
			entry = matches[0]
		}
	}
	if entry == nil && comp.Template != "" {
		// The template defines the entry but the live file lacks it yet.
		if !live.RequiresExplicitAdd() {
			return fmt.Errorf("%w: %s not in %s", ErrUnitNotFound, u.Context, t.Filename)
		}
		tmpl, err := s.Formats.Open(filepath.Join(comp.RepoPath, comp.Template), comp.FormatHint)
		if err != nil {
			return fmt.Errorf("%w: template: %v", ErrUnparsableFile, err)
		}
		te := tmpl.FindID(u.Context)
		if te == nil {
			return fmt.Errorf("%w: %s not in template", ErrUnitNotFound, u.Context)
		}
		entry, err = live.Add(te)
		if err != nil {
			return fmt.Errorf("add %s: %w", u.Context, err)
		}
	}
	if entry == nil {
		return fmt.Errorf("%w: %s not in %s", ErrUnitNotFound, u.Context, t.Filename)
	}

	entry.SetTargets(targets)
	entry.MarkFuzzy(fuzzy)
	s.updateHeader(live, t, actor)

	if err := live.Save(); err != nil {
		return fmt.Errorf("save %s: %w", t.Filename, err)
	}
	return nil
}

// updateHeader refreshes the file metadata on formats that carry it.
func (s *UnitService) updateHeader(live format.Store, t *domain.Translation, actor string) {
	hu, ok := live.(format.HeaderUpdater)
	if !ok {
		return
	}
	fields := map[string]string{
		"language":        t.LanguageCode,
		"last_translator": actor,
		"revision_date":   time.Now().UTC().Format(time.RFC3339),
	}
	if s.SetTranslationTeam {
		fields["translation_team"] = t.LanguageName
	}
	if addr := t.Component.ReportSourceBugs; addr != "" {
		fields["report_bugs_to"] = addr
	}
	hu.UpdateHeader(fields)
}
