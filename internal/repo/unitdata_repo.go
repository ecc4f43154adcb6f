package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// UpsertCheck records a failing quality check for the keyed unit content.
// An existing row for the same (project, language, checksum, name) is
// reset to unignored rather than duplicated.
func UpsertCheck(ctx context.Context, db *gorm.DB, projectID, languageCode, checksum, name string) (*domain.Check, error) {
	var c domain.Check
	err := db.WithContext(ctx).
		Where("project_id = ? AND language_code = ? AND checksum = ? AND name = ?",
			projectID, languageCode, checksum, name).
		First(&c).Error
	switch {
	case err == nil:
		if c.Ignored {
			c.Ignored = false
			if err := db.WithContext(ctx).Save(&c).Error; err != nil {
				return nil, err
			}
		}
		return &c, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		c = domain.Check{
			ID:           uuid.NewString(),
			ProjectID:    projectID,
			LanguageCode: languageCode,
			Checksum:     checksum,
			Name:         name,
			CreatedAt:    time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(&c).Error; err != nil {
			return nil, err
		}
		return &c, nil
	default:
		return nil, err
	}
}

// DeleteCheck removes one failing check row for the keyed unit content.
func DeleteCheck(ctx context.Context, db *gorm.DB, projectID, languageCode, checksum, name string) error {
	return db.WithContext(ctx).
		Unscoped().
		Where("project_id = ? AND language_code = ? AND checksum = ? AND name = ?",
			projectID, languageCode, checksum, name).
		Delete(&domain.Check{}).Error
}

// ListChecks returns the failing checks recorded for the keyed unit content.
func ListChecks(ctx context.Context, db *gorm.DB, projectID, languageCode, checksum string) ([]domain.Check, error) {
	var out []domain.Check
	err := db.WithContext(ctx).
		Where("project_id = ? AND language_code = ? AND checksum = ?", projectID, languageCode, checksum).
		Find(&out).Error
	return out, err
}

// CreateSuggestion stores a pending alternative target for the keyed unit
// content.
func CreateSuggestion(ctx context.Context, db *gorm.DB, s *domain.Suggestion) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(s).Error
}

// GetSuggestion returns one pending suggestion by id. Returns ErrNotFound
// when the record does not exist.
func GetSuggestion(ctx context.Context, db *gorm.DB, id string) (*domain.Suggestion, error) {
	var s domain.Suggestion
	err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSuggestions returns the pending suggestions for the keyed unit content.
func ListSuggestions(ctx context.Context, db *gorm.DB, projectID, languageCode, checksum string) ([]domain.Suggestion, error) {
	var out []domain.Suggestion
	err := db.WithContext(ctx).
		Where("project_id = ? AND language_code = ? AND checksum = ?", projectID, languageCode, checksum).
		Order("created_at").
		Find(&out).Error
	return out, err
}

// DeleteSuggestion removes one pending suggestion.
func DeleteSuggestion(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&domain.Suggestion{}).Error
}

// CreateComment stores a reader comment attached to the keyed unit content.
func CreateComment(ctx context.Context, db *gorm.DB, c *domain.Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(c).Error
}

// ListComments returns the comments attached to the keyed unit content.
// Language-level comments carry the language code; source-level comments
// carry an empty one.
func ListComments(ctx context.Context, db *gorm.DB, projectID, languageCode, checksum string) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Where("project_id = ? AND language_code = ? AND checksum = ?", projectID, languageCode, checksum).
		Order("created_at").
		Find(&out).Error
	return out, err
}

// CleanupUnitData removes checks, suggestions, and comments left behind by
// a deleted unit, unless another unit in the project still references the
// same checksum. Language-scoped rows go when no unit in that language
// shares the checksum; source-scoped rows (empty language) go only when no
// unit in any language does.
func CleanupUnitData(ctx context.Context, db *gorm.DB, projectID, languageCode, checksum string) error {
	sameLanguage, err := CountUnitsByChecksumLanguage(ctx, db, projectID, languageCode, checksum)
	if err != nil {
		return err
	}
	if sameLanguage == 0 {
		if err := deleteUnitData(ctx, db, projectID, languageCode, checksum); err != nil {
			return err
		}
	}
	anyLanguage, err := CountUnitsByChecksum(ctx, db, projectID, checksum)
	if err != nil {
		return err
	}
	if anyLanguage == 0 {
		return deleteUnitData(ctx, db, projectID, "", checksum)
	}
	return nil
}

func deleteUnitData(ctx context.Context, db *gorm.DB, projectID, languageCode, checksum string) error {
	cond := db.WithContext(ctx).Unscoped().
		Where("project_id = ? AND language_code = ? AND checksum = ?", projectID, languageCode, checksum)
	if err := cond.Delete(&domain.Check{}).Error; err != nil {
		return err
	}
	cond = db.WithContext(ctx).Unscoped().
		Where("project_id = ? AND language_code = ? AND checksum = ?", projectID, languageCode, checksum)
	if err := cond.Delete(&domain.Suggestion{}).Error; err != nil {
		return err
	}
	cond = db.WithContext(ctx).Unscoped().
		Where("project_id = ? AND language_code = ? AND checksum = ?", projectID, languageCode, checksum)
	return cond.Delete(&domain.Comment{}).Error
}
