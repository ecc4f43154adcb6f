// Package services – SyncService
//
// This file implements the reconciliation of the unit index against the
// current repository content. A translation is re-synced when the blob
// revision of its backing file (plus the template file, when the component
// declares one) differs from the revision recorded at the last sync. The
// pass upserts units keyed by content checksum, deletes units that vanished
// from the file, cleans up dependent records orphaned by those deletions,
// recomputes stats, and records an audit entry.
//
// It also discovers translations: expanding a component's file mask against
// the repository working tree creates missing Translation rows and removes
// rows whose file disappeared.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/checks"
	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/format"
	"github.com/tbourn/go-translate-backend/internal/notify"
	"github.com/tbourn/go-translate-backend/internal/observability"
	"github.com/tbourn/go-translate-backend/internal/repo"
	"github.com/tbourn/go-translate-backend/internal/sysutil"
)

// SyncService reconciles the unit index against repository content.
type SyncService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Gateways provides repository access per component.
	Gateways GatewayProvider
	// Formats parses translation files.
	Formats *format.Registry
	// Checks is the quality-check registry run against synced units.
	Checks *checks.Registry
	// Notifier receives new-string events; best effort, never fails a sync.
	Notifier notify.Notifier
	// Stats recomputes counts after every pass.
	Stats *StatsService
	// Log is the structured logger.
	Log zerolog.Logger
}

// NewSyncService constructs a SyncService.
func NewSyncService(db *gorm.DB, gw GatewayProvider, formats *format.Registry, reg *checks.Registry, n notify.Notifier, stats *StatsService, log zerolog.Logger) *SyncService {
	if n == nil {
		n = notify.NopNotifier{}
	}
	return &SyncService{
		DB:       db,
		Gateways: gw,
		Formats:  formats,
		Checks:   reg,
		Notifier: n,
		Stats:    stats,
		Log:      log,
	}
}

// Revision computes the current revision string for t: the blob hash of its
// file, with the template's blob hash appended after a comma when the
// component declares one. Coupling the template hash in makes a template
// change invalidate every sibling translation's stored revision.
func (s *SyncService) Revision(ctx context.Context, g Gateway, t *domain.Translation) (string, error) {
	rev, err := g.BlobHash(ctx, t.Filename)
	if err != nil {
		return "", fmt.Errorf("blob hash %s: %w", t.Filename, err)
	}
	if tpl := t.Component.Template; tpl != "" {
		tplRev, err := g.BlobHash(ctx, tpl)
		if err != nil {
			return "", fmt.Errorf("blob hash %s: %w", tpl, err)
		}
		rev = rev + "," + tplRev
	}
	return rev, nil
}

// Reconcile syncs one translation. With force false it is a cheap no-op
// when the stored revision still matches the repository. actor is recorded
// in the audit trail; empty means a system-triggered sync.
func (s *SyncService) Reconcile(ctx context.Context, translationID, actor string, force bool) error {
	started := time.Now()

	t, err := repo.GetTranslation(ctx, s.DB, translationID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrTranslationNotFound
	}
	if err != nil {
		return err
	}
	comp := t.Component

	err = s.reconcile(ctx, t, actor, force)
	observability.ObserveSync(comp.Project.Slug, comp.Slug, time.Since(started), err)
	if err != nil {
		s.Log.Error().Err(err).
			Str("component", comp.Slug).
			Str("language", t.LanguageCode).
			Str("path", t.Filename).
			Str("revision", t.Revision).
			Msg("sync failed")
	}
	return err
}

func (s *SyncService) reconcile(ctx context.Context, t *domain.Translation, actor string, force bool) error {
	comp := t.Component
	g := s.Gateways.Gateway(comp.RepoPath)

	rev, err := s.Revision(ctx, g, t)
	if err != nil {
		return err
	}
	if rev == t.Revision && !force {
		return nil
	}

	// Every existing unit is a deletion candidate until the file proves it
	// is still there.
	existing, err := repo.ListUnits(ctx, s.DB, t.ID)
	if err != nil {
		return err
	}
	candidates := make(map[string]string, len(existing)) // checksum -> unit id
	for _, u := range existing {
		candidates[u.Checksum] = u.ID
	}

	entries, err := s.loadEntries(t)
	if err != nil {
		return err
	}

	var created []*domain.Unit
	for pos, e := range entries {
		sum := domain.Checksum(e.source, e.context)
		u, isNew, err := repo.UpsertUnit(ctx, s.DB, t.ID, repo.UnitInput{
			Checksum: sum,
			Position: pos + 1,
			Source:   e.source,
			Target:   e.target,
			Context:  e.context,
			Fuzzy:    e.fuzzy,
		})
		if err != nil {
			return fmt.Errorf("upsert unit %s: %w", sum, err)
		}
		delete(candidates, sum)
		if isNew {
			created = append(created, u)
		}
		if err := s.recheck(ctx, comp.ProjectID, t.LanguageCode, u); err != nil {
			return err
		}
	}

	if err := s.sweepDeleted(ctx, t, candidates); err != nil {
		return err
	}

	if err := s.Stats.Update(ctx, t); err != nil {
		return err
	}
	t.Revision = rev
	if err := repo.SaveTranslation(ctx, s.DB, t); err != nil {
		return err
	}
	if err := repo.RecordChange(ctx, s.DB, t.ID, domain.ActionSync, actor); err != nil {
		return err
	}

	// New untranslated units mean brand-new source strings; tell whoever
	// cares, without letting them fail the sync.
	for _, u := range created {
		if !u.Translated {
			s.Notifier.NewString(ctx, comp.Project.Slug, comp.Slug, t.LanguageCode, u.Checksum)
		}
	}

	s.Log.Info().
		Str("component", comp.Slug).
		Str("language", t.LanguageCode).
		Str("revision", rev).
		Int("units", len(entries)).
		Int("created", len(created)).
		Msg("translation synced")
	return nil
}

// entry is one unit's file-derived state, normalized across the
// template-driven and direct iteration paths.
type entry struct {
	context string
	source  string
	target  string
	fuzzy   bool
}

// loadEntries opens t's backing file and enumerates its translatable
// entries. When the component declares a template, the template's units
// define the canonical set and ordering; the live file only contributes
// targets, and entries missing from it surface with an empty target.
func (s *SyncService) loadEntries(t *domain.Translation) ([]entry, error) {
	comp := t.Component
	path := filepath.Join(comp.RepoPath, t.Filename)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileMissing, t.Filename)
	}
	store, err := s.Formats.Open(path, comp.FormatHint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableFile, err)
	}

	if comp.Template == "" {
		var out []entry
		for _, u := range store.Units() {
			if !u.IsTranslatable() {
				continue
			}
			out = append(out, entry{
				context: u.Context(),
				source:  joinPlurals(u.Sources()),
				target:  joinPlurals(u.Targets()),
				fuzzy:   u.IsFuzzy(),
			})
		}
		return out, nil
	}

	tmpl, err := s.Formats.Open(filepath.Join(comp.RepoPath, comp.Template), comp.FormatHint)
	if err != nil {
		return nil, fmt.Errorf("%w: template: %v", ErrUnparsableFile, err)
	}
	var out []entry
	for _, tu := range tmpl.Units() {
		if !tu.IsTranslatable() {
			continue
		}
		e := entry{
			context: tu.ID(),
			source:  joinPlurals(tu.Sources()),
		}
		if live := store.FindID(tu.ID()); live != nil {
			e.target = joinPlurals(live.Targets())
			e.fuzzy = live.IsFuzzy()
		}
		out = append(out, e)
	}
	return out, nil
}

// sweepDeleted removes the units that no longer appear in the file and
// cleans up the dependent records their checksums held. Surviving units
// elsewhere in the project that share a swept checksum are rechecked, since
// consistency-style checks depend on sibling translations.
func (s *SyncService) sweepDeleted(ctx context.Context, t *domain.Translation, candidates map[string]string) error {
	if len(candidates) == 0 {
		return nil
	}
	ids := make([]string, 0, len(candidates))
	for _, id := range candidates {
		ids = append(ids, id)
	}
	sums, err := repo.DeleteUnits(ctx, s.DB, t.ID, ids)
	if err != nil {
		return fmt.Errorf("delete stale units: %w", err)
	}
	projectID := t.Component.ProjectID
	for _, sum := range sums {
		if err := repo.CleanupUnitData(ctx, s.DB, projectID, t.LanguageCode, sum); err != nil {
			return fmt.Errorf("cleanup %s: %w", sum, err)
		}
		survivors, err := repo.UnitsByChecksumLanguage(ctx, s.DB, projectID, t.LanguageCode, sum)
		if err != nil {
			return err
		}
		for i := range survivors {
			if err := s.recheck(ctx, projectID, t.LanguageCode, &survivors[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// recheck runs the quality checks against one unit and reconciles the
// stored check rows with the current outcome.
func (s *SyncService) recheck(ctx context.Context, projectID, languageCode string, u *domain.Unit) error {
	cu := checks.Unit{
		Sources:    u.SourcePlurals(),
		Targets:    u.TargetPlurals(),
		Context:    u.Context,
		Fuzzy:      u.Fuzzy,
		Translated: u.Translated,
	}

	if err := s.reconcileChecks(ctx, projectID, languageCode, u.Checksum, s.Checks.Failing(cu)); err != nil {
		return err
	}
	// Source-level checks live under the empty language code.
	return s.reconcileChecks(ctx, projectID, "", u.Checksum, s.Checks.FailingSource(cu))
}

func (s *SyncService) reconcileChecks(ctx context.Context, projectID, languageCode, checksum string, failing []string) error {
	want := make(map[string]bool, len(failing))
	for _, name := range failing {
		want[name] = true
	}
	stored, err := repo.ListChecks(ctx, s.DB, projectID, languageCode, checksum)
	if err != nil {
		return err
	}
	for _, c := range stored {
		if !want[c.Name] {
			if err := repo.DeleteCheck(ctx, s.DB, projectID, languageCode, checksum, c.Name); err != nil {
				return err
			}
		}
		delete(want, c.Name)
	}
	for name := range want {
		if _, err := repo.UpsertCheck(ctx, s.DB, projectID, languageCode, checksum, name); err != nil {
			return err
		}
	}
	return nil
}

// DiscoverTranslations expands the component's file mask against the
// repository working tree: a Translation row is created for every matching
// file and rows whose file vanished are deleted along with their units.
// Returns the ids of all current translations.
func (s *SyncService) DiscoverTranslations(ctx context.Context, componentID string) ([]string, error) {
	comp, err := repo.GetComponent(ctx, s.DB, componentID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTranslationNotFound
	}
	if err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(comp.RepoPath, comp.FileMask))
	if err != nil {
		return nil, fmt.Errorf("bad file mask %q: %w", comp.FileMask, err)
	}

	seen := make(map[string]bool, len(matches))
	var ids []string
	for _, m := range matches {
		rel, err := filepath.Rel(comp.RepoPath, m)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(rel)
		if rel == comp.Template {
			continue
		}
		code := languageFromMask(comp.FileMask, rel)
		if code == "" {
			continue
		}
		t, isNew, err := repo.GetOrCreateTranslation(ctx, s.DB, comp.ID, code, languageName(code), rel)
		if err != nil {
			return nil, err
		}
		if isNew {
			s.Log.Info().
				Str("component", comp.Slug).
				Str("language", code).
				Str("path", rel).
				Msg("translation discovered")
		}
		seen[t.ID] = true
		ids = append(ids, t.ID)
	}

	stored, err := repo.ListTranslations(ctx, s.DB, comp.ID)
	if err != nil {
		return nil, err
	}
	for _, t := range stored {
		if seen[t.ID] {
			continue
		}
		if err := repo.DeleteTranslation(ctx, s.DB, t.ID); err != nil {
			return nil, err
		}
		s.Log.Info().
			Str("component", comp.Slug).
			Str("language", t.LanguageCode).
			Str("path", t.Filename).
			Msg("translation removed, file gone from repository")
	}
	return ids, nil
}

// languageFromMask extracts the language code a mask's "*" matched in rel,
// or "" when rel does not fit the mask.
func languageFromMask(mask, rel string) string {
	star := strings.Index(mask, "*")
	if star < 0 {
		return ""
	}
	prefix, suffix := mask[:star], mask[star+1:]
	if !strings.HasPrefix(rel, prefix) || !strings.HasSuffix(rel, suffix) {
		return ""
	}
	code := rel[len(prefix) : len(rel)-len(suffix)]
	if code == "" || strings.Contains(code, "/") {
		return ""
	}
	return code
}

// languageName resolves a human-readable English name for a language code,
// falling back to the code itself when it does not parse.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return sysutil.FirstNonEmpty(display.English.Languages().Name(tag), code)
}

// joinPlurals stores a plural-form set as one string.
func joinPlurals(forms []string) string {
	return strings.Join(forms, domain.PluralSeparator)
}
