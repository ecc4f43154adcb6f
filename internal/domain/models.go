// Package domain defines the persistence models for projects, components,
// translations, and translation units. These types are mapped with GORM and
// form the core data layer of the translation backend: a queryable index of
// every localizable string held in repository-backed translation files.
package domain

import (
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
)

// PluralSeparator joins the individual forms of a plural source or target
// string into one stored column. It never occurs in real translation text.
const PluralSeparator = "\x00\x00"

// Change actions recorded in the audit trail. ActionSave and ActionUpload
// represent file content edits and are what LastContentChange considers
// when attributing pending commits. ActionSync is bookkeeping and
// ActionSuggestion never touches the file, so neither may claim
// authorship of working-tree edits.
const (
	ActionSync       = "sync"
	ActionSave       = "save"
	ActionUpload     = "upload"
	ActionSuggestion = "suggestion"
)

// Project groups components that share commit policy and committer identity.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Slug: URL-safe unique identifier.
//   - CommitMessage: template for generated commit messages; recognizes the
//     placeholders {language}, {language_name}, {component}, {project},
//     {total}, {fuzzy}, {fuzzy_percent}, {translated}, {translated_percent}.
//   - CommitterName / CommitterEmail: identity enforced on the backing
//     repository before every commit.
//   - PushOnCommit: push to the remote after every successful commit.
//   - SetTranslationTeam: maintain the translation team header in files that
//     support header metadata.
type Project struct {
	ID                 string         `json:"id"   gorm:"type:char(36);primaryKey"`
	Slug               string         `json:"slug" gorm:"type:varchar(64);not null;uniqueIndex"`
	Name               string         `json:"name" gorm:"type:varchar(128);not null"`
	CommitMessage      string         `json:"commit_message" gorm:"type:text;not null"`
	CommitterName      string         `json:"committer_name" gorm:"type:varchar(128);not null"`
	CommitterEmail     string         `json:"committer_email" gorm:"type:varchar(255);not null"`
	PushOnCommit       bool           `json:"push_on_commit" gorm:"not null;default:false"`
	SetTranslationTeam bool           `json:"set_translation_team" gorm:"not null"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Project.
func (Project) TableName() string { return "projects" }

// Component is one translatable resource inside a project: a set of sibling
// translation files in a single backing repository, matched by a file mask.
//
// Fields:
//   - RepoPath: filesystem path of the backing git repository.
//   - FileMask: glob relative to RepoPath with exactly one "*" standing in
//     for the language code (e.g. "locales/*.json").
//   - Template: optional path of the template file whose units define
//     canonical ids and ordering for every sibling language.
//   - FormatHint: adapter id used when format guessing fails.
//   - AllowPropagation: opt-in to receiving propagated uploads from sibling
//     translations of the same language.
//   - ReportSourceBugs: contact address written to file headers; empty
//     disables the header.
//   - Locked: component-level lock blocking all interactive edits.
type Component struct {
	ID               string         `json:"id"         gorm:"type:char(36);primaryKey"`
	ProjectID        string         `json:"project_id" gorm:"type:char(36);not null;index"`
	Slug             string         `json:"slug"       gorm:"type:varchar(64);not null;index"`
	Name             string         `json:"name"       gorm:"type:varchar(128);not null"`
	RepoPath         string         `json:"repo_path"  gorm:"type:varchar(255);not null"`
	FileMask         string         `json:"file_mask"  gorm:"type:varchar(255);not null"`
	Template         string         `json:"template"   gorm:"type:varchar(255)"`
	FormatHint       string         `json:"format_hint" gorm:"type:varchar(32)"`
	// AllowPropagation has no column default: gorm omits zero-value
	// fields that carry a default tag, so an opt-out false could never
	// reach the database. Same rule for every true-by-default boolean.
	AllowPropagation bool           `json:"allow_propagation" gorm:"not null"`
	ReportSourceBugs string         `json:"report_source_bugs" gorm:"type:varchar(255)"`
	Locked           bool           `json:"locked" gorm:"not null;default:false"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Component.
func (Component) TableName() string { return "components" }

// Translation pairs one language with one backing file inside a component.
//
// Revision holds the blob hash of the file at the last successful sync; when
// the component declares a template it is "filehash,templatehash" so template
// changes invalidate every sibling. It is allowed to go stale between syncs.
//
// LockActor/LockExpiry implement the advisory per-translation soft lock. The
// lock is expired the instant LockExpiry passes; expiry is evaluated lazily,
// there is no background sweeper.
type Translation struct {
	ID           string         `json:"id"           gorm:"type:char(36);primaryKey"`
	ComponentID  string         `json:"component_id" gorm:"type:char(36);not null;index:idx_component_lang,priority:1"`
	LanguageCode string         `json:"language_code" gorm:"type:varchar(20);not null;index:idx_component_lang,priority:2"`
	LanguageName string         `json:"language_name" gorm:"type:varchar(100);not null"`
	Filename     string         `json:"filename"     gorm:"type:varchar(255);not null"`
	Revision     string         `json:"revision"     gorm:"type:varchar(100);not null;default:''"`
	Total        int64          `json:"total"        gorm:"not null;default:0;index"`
	Translated   int64          `json:"translated"   gorm:"not null;default:0;index"`
	Fuzzy        int64          `json:"fuzzy"        gorm:"not null;default:0;index"`
	Enabled      bool           `json:"enabled"      gorm:"not null;index"`
	LockActor    string         `json:"lock_actor"   gorm:"type:varchar(64)"`
	LockExpiry   *time.Time     `json:"lock_expiry"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	Component Component `json:"-" gorm:"foreignKey:ComponentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Translation.
func (Translation) TableName() string { return "translations" }

// Untranslated returns the number of units without a finished translation.
func (t *Translation) Untranslated() int64 { return t.Total - t.Translated }

// TranslatedPercent returns the translation completeness in percent,
// rounded to one decimal place.
func (t *Translation) TranslatedPercent() float64 {
	return percent(t.Translated, t.Total)
}

// FuzzyPercent returns the share of fuzzy units in percent, rounded to one
// decimal place.
func (t *Translation) FuzzyPercent() float64 {
	return percent(t.Fuzzy, t.Total)
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}

// Unit is one translatable entry within a translation.
//
// Checksum is derived from source text and context only; it stays stable
// across re-syncs as long as the source string is unchanged, even when the
// target text or file position moves. Dependent records (Check, Suggestion,
// Comment) are keyed by checksum and shared across units in different
// languages or files that carry the same source string.
//
// Source and Target store plural-form sets joined with PluralSeparator;
// single-form strings contain no separator.
type Unit struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	TranslationID string         `json:"translation_id" gorm:"type:char(36);not null;index:idx_translation_checksum,priority:1"`
	Checksum      string         `json:"checksum"       gorm:"type:char(32);not null;index:idx_translation_checksum,priority:2;index"`
	Position      int            `json:"position"       gorm:"not null"`
	Source        string         `json:"source"         gorm:"type:text;not null"`
	Target        string         `json:"target"         gorm:"type:text;not null"`
	Context       string         `json:"context"        gorm:"type:text;not null;default:''"`
	Fuzzy         bool           `json:"fuzzy"          gorm:"not null;default:false;index"`
	Translated    bool           `json:"translated"     gorm:"not null;default:false;index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	Translation Translation `json:"-" gorm:"foreignKey:TranslationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Unit.
func (Unit) TableName() string { return "units" }

// SourcePlurals returns the individual plural forms of the source string.
func (u *Unit) SourcePlurals() []string {
	return strings.Split(u.Source, PluralSeparator)
}

// TargetPlurals returns the individual plural forms of the target string.
func (u *Unit) TargetPlurals() []string {
	return strings.Split(u.Target, PluralSeparator)
}

// IsPlural reports whether the unit carries more than one source form.
func (u *Unit) IsPlural() bool {
	return strings.Contains(u.Source, PluralSeparator)
}

// Check records one failing quality check against a source string.
// Language is empty for source-level checks; rows are keyed by project,
// language, and checksum so they are shared across units with the same
// source string, not duplicated per file.
type Check struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ProjectID    string    `json:"project_id" gorm:"type:char(36);not null;index:idx_check_key,priority:1"`
	LanguageCode string    `json:"language_code" gorm:"type:varchar(20);not null;default:'';index:idx_check_key,priority:2"`
	Checksum     string    `json:"checksum"   gorm:"type:char(32);not null;index:idx_check_key,priority:3"`
	Name         string    `json:"name"       gorm:"type:varchar(64);not null"`
	Ignored      bool      `json:"ignored"    gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Check.
func (Check) TableName() string { return "checks" }

// Suggestion is a proposed target text for a source string, keyed like Check
// by project, language, and checksum. Suggestions are never deduplicated on
// insert; orphans are removed by the sync cleanup pass.
type Suggestion struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ProjectID    string    `json:"project_id" gorm:"type:char(36);not null;index:idx_suggestion_key,priority:1"`
	LanguageCode string    `json:"language_code" gorm:"type:varchar(20);not null;index:idx_suggestion_key,priority:2"`
	Checksum     string    `json:"checksum"   gorm:"type:char(32);not null;index:idx_suggestion_key,priority:3"`
	Target       string    `json:"target"     gorm:"type:text;not null"`
	Actor        string    `json:"actor"      gorm:"type:varchar(64);not null"`
	CreatedAt    time.Time `json:"created_at"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Suggestion.
func (Suggestion) TableName() string { return "suggestions" }

// Comment is a translator note attached to a source string. Language is
// empty for source-level comments, which survive as long as any unit in the
// project still references the checksum.
type Comment struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ProjectID    string    `json:"project_id" gorm:"type:char(36);not null;index:idx_comment_key,priority:1"`
	LanguageCode string    `json:"language_code" gorm:"type:varchar(20);not null;default:'';index:idx_comment_key,priority:2"`
	Checksum     string    `json:"checksum"   gorm:"type:char(32);not null;index:idx_comment_key,priority:3"`
	Body         string    `json:"body"       gorm:"type:text;not null"`
	Actor        string    `json:"actor"      gorm:"type:varchar(64);not null"`
	CreatedAt    time.Time `json:"created_at"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// Change is one audit-trail entry for a translation. The most recent
// content change (ActionSave or ActionUpload) identifies the author of
// uncommitted working-tree edits for the lazy-commit pipeline.
type Change struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	TranslationID string    `json:"translation_id" gorm:"type:char(36);not null;index:idx_translation_changes,priority:1"`
	Action        string    `json:"action"         gorm:"type:varchar(32);not null"`
	Actor         string    `json:"actor"          gorm:"type:varchar(64)"`
	CreatedAt     time.Time `json:"created_at"     gorm:"index:idx_translation_changes,priority:2"`

	Translation Translation `json:"-" gorm:"foreignKey:TranslationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Change.
func (Change) TableName() string { return "changes" }
