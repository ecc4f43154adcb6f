// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Translation model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// GetTranslation fetches a translation by ID with its component and project
// preloaded. Returns ErrNotFound when the record does not exist.
func GetTranslation(ctx context.Context, db *gorm.DB, id string) (*domain.Translation, error) {
	var t domain.Translation
	err := db.WithContext(ctx).
		Preload("Component").
		Preload("Component.Project").
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetOrCreateTranslation finds the translation for (componentID,
// languageCode) or inserts a fresh disabled-lock row. The boolean reports
// whether a new row was created. An existing row whose filename differs is
// updated in place (the file moved within the repository).
func GetOrCreateTranslation(ctx context.Context, db *gorm.DB, componentID, languageCode, languageName, filename string) (*domain.Translation, bool, error) {
	var t domain.Translation
	err := db.WithContext(ctx).
		Where("component_id = ? AND language_code = ?", componentID, languageCode).
		First(&t).Error
	switch {
	case err == nil:
		if t.Filename != filename {
			t.Filename = filename
			// Force a full re-sync on the next pass.
			t.Revision = ""
			if err := db.WithContext(ctx).Save(&t).Error; err != nil {
				return nil, false, err
			}
		}
		return &t, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		t = domain.Translation{
			ID:           uuid.NewString(),
			ComponentID:  componentID,
			LanguageCode: languageCode,
			LanguageName: languageName,
			Filename:     filename,
			Enabled:      true,
			CreatedAt:    time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(&t).Error; err != nil {
			return nil, false, err
		}
		return &t, true, nil
	default:
		return nil, false, err
	}
}

// ListTranslations returns all translations of a component ordered by
// language code.
func ListTranslations(ctx context.Context, db *gorm.DB, componentID string) ([]domain.Translation, error) {
	var out []domain.Translation
	err := db.WithContext(ctx).
		Where("component_id = ?", componentID).
		Order("language_code").
		Find(&out).Error
	return out, err
}

// SiblingTranslations returns the candidate set for upload propagation:
// translations of the same language under the same project, restricted to
// the translation itself plus those whose component opts into propagation.
// Components and projects are preloaded for the merge path.
func SiblingTranslations(ctx context.Context, db *gorm.DB, t *domain.Translation) ([]domain.Translation, error) {
	var out []domain.Translation
	err := db.WithContext(ctx).
		Preload("Component").
		Preload("Component.Project").
		Joins("JOIN components ON components.id = translations.component_id").
		Where("components.project_id = ?", t.Component.ProjectID).
		Where("translations.language_code = ?", t.LanguageCode).
		Where("translations.id = ? OR components.allow_propagation = ?", t.ID, true).
		Order("translations.language_code").
		Find(&out).Error
	return out, err
}

// SaveTranslation persists every field of t.
func SaveTranslation(ctx context.Context, db *gorm.DB, t *domain.Translation) error {
	return db.WithContext(ctx).Save(t).Error
}

// UpdateTranslationLock persists only the soft-lock columns of t.
func UpdateTranslationLock(ctx context.Context, db *gorm.DB, t *domain.Translation) error {
	return db.WithContext(ctx).
		Model(&domain.Translation{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"lock_actor":  t.LockActor,
			"lock_expiry": t.LockExpiry,
		}).Error
}

// DeleteTranslation removes a translation; its units cascade via the
// foreign key constraint.
func DeleteTranslation(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Unscoped().
		Where("id = ?", id).
		Delete(&domain.Translation{}).Error
}
