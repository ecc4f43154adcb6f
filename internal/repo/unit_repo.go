// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Unit
// model, including the checksum-keyed upsert used by the sync engine and
// the cross-translation reference counts that drive dependent-record
// cleanup.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// UnitInput carries the file-derived state of one unit for upsert.
type UnitInput struct {
	Checksum string
	Position int
	Source   string
	Target   string
	Context  string
	Fuzzy    bool
}

// Translated reports whether the input counts as translated: a non-empty
// target that is not marked fuzzy.
func (in UnitInput) Translated() bool {
	return in.Target != "" && !in.Fuzzy
}

// UnitIDs returns the primary keys of every unit in a translation.
func UnitIDs(ctx context.Context, db *gorm.DB, translationID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Unit{}).
		Where("translation_id = ?", translationID).
		Pluck("id", &ids).Error
	return ids, err
}

// GetUnitByChecksum fetches one unit of a translation by checksum, or
// ErrNotFound.
func GetUnitByChecksum(ctx context.Context, db *gorm.DB, translationID, checksum string) (*domain.Unit, error) {
	var u domain.Unit
	err := db.WithContext(ctx).
		Where("translation_id = ? AND checksum = ?", translationID, checksum).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUnit creates or refreshes the unit keyed by (translation,
// checksum). The returned boolean reports creation. Position, source,
// target, context, and flags are always overwritten from the file state.
func UpsertUnit(ctx context.Context, db *gorm.DB, translationID string, in UnitInput) (*domain.Unit, bool, error) {
	u, err := GetUnitByChecksum(ctx, db, translationID, in.Checksum)
	switch {
	case err == nil:
		u.Position = in.Position
		u.Source = in.Source
		u.Target = in.Target
		u.Context = in.Context
		u.Fuzzy = in.Fuzzy
		u.Translated = in.Translated()
		if err := db.WithContext(ctx).Save(u).Error; err != nil {
			return nil, false, err
		}
		return u, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = &domain.Unit{
			ID:            uuid.NewString(),
			TranslationID: translationID,
			Checksum:      in.Checksum,
			Position:      in.Position,
			Source:        in.Source,
			Target:        in.Target,
			Context:       in.Context,
			Fuzzy:         in.Fuzzy,
			Translated:    in.Translated(),
			CreatedAt:     time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(u).Error; err != nil {
			return nil, false, err
		}
		return u, true, nil
	default:
		return nil, false, err
	}
}

// SaveUnit persists every field of u.
func SaveUnit(ctx context.Context, db *gorm.DB, u *domain.Unit) error {
	return db.WithContext(ctx).Save(u).Error
}

// DeleteUnits removes the given units and returns the distinct checksums of
// the deleted rows, which the caller uses for dependent-record cleanup.
func DeleteUnits(ctx context.Context, db *gorm.DB, translationID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var checksums []string
	err := db.WithContext(ctx).
		Model(&domain.Unit{}).
		Distinct("checksum").
		Where("translation_id = ? AND id IN ?", translationID, ids).
		Pluck("checksum", &checksums).Error
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).
		Unscoped().
		Where("translation_id = ? AND id IN ?", translationID, ids).
		Delete(&domain.Unit{}).Error
	return checksums, err
}

// UnitsByChecksumLanguage returns every unit under the project that shares
// checksum in the given language, across all components.
func UnitsByChecksumLanguage(ctx context.Context, db *gorm.DB, projectID, languageCode, checksum string) ([]domain.Unit, error) {
	var out []domain.Unit
	err := db.WithContext(ctx).
		Joins("JOIN translations ON translations.id = units.translation_id").
		Joins("JOIN components ON components.id = translations.component_id").
		Where("components.project_id = ?", projectID).
		Where("translations.language_code = ?", languageCode).
		Where("units.checksum = ?", checksum).
		Find(&out).Error
	return out, err
}

// CountUnitsByChecksumLanguage counts units under the project sharing
// checksum in the given language.
func CountUnitsByChecksumLanguage(ctx context.Context, db *gorm.DB, projectID, languageCode, checksum string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Unit{}).
		Joins("JOIN translations ON translations.id = units.translation_id").
		Joins("JOIN components ON components.id = translations.component_id").
		Where("components.project_id = ?", projectID).
		Where("translations.language_code = ?", languageCode).
		Where("units.checksum = ?", checksum).
		Count(&n).Error
	return n, err
}

// CountUnitsByChecksum counts units under the project sharing checksum in
// any language.
func CountUnitsByChecksum(ctx context.Context, db *gorm.DB, projectID, checksum string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Unit{}).
		Joins("JOIN translations ON translations.id = units.translation_id").
		Joins("JOIN components ON components.id = translations.component_id").
		Where("components.project_id = ?", projectID).
		Where("units.checksum = ?", checksum).
		Count(&n).Error
	return n, err
}

// ListUnits returns a translation's units in file order.
func ListUnits(ctx context.Context, db *gorm.DB, translationID string) ([]domain.Unit, error) {
	var out []domain.Unit
	err := db.WithContext(ctx).
		Where("translation_id = ?", translationID).
		Order("position").
		Find(&out).Error
	return out, err
}
