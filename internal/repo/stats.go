package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// UnitCounts is the aggregate of one translation's units.
type UnitCounts struct {
	Total      int64
	Translated int64
	Fuzzy      int64
}

// CountUnits aggregates the unit totals for a translation in one query.
func CountUnits(ctx context.Context, db *gorm.DB, translationID string) (UnitCounts, error) {
	var row struct {
		Total      int64
		Translated int64
		Fuzzy      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Unit{}).
		Select(
			"COUNT(*) AS total",
			"COALESCE(SUM(CASE WHEN translated THEN 1 ELSE 0 END), 0) AS translated",
			"COALESCE(SUM(CASE WHEN fuzzy THEN 1 ELSE 0 END), 0) AS fuzzy",
		).
		Where("translation_id = ?", translationID).
		Scan(&row).Error
	if err != nil {
		return UnitCounts{}, err
	}
	return UnitCounts{Total: row.Total, Translated: row.Translated, Fuzzy: row.Fuzzy}, nil
}

// ProjectCounts aggregates the stored per-translation totals across a whole
// project.
func ProjectCounts(ctx context.Context, db *gorm.DB, projectID string) (UnitCounts, error) {
	var row struct {
		Total      int64
		Translated int64
		Fuzzy      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Translation{}).
		Select(
			"COALESCE(SUM(total), 0) AS total",
			"COALESCE(SUM(translated), 0) AS translated",
			"COALESCE(SUM(fuzzy), 0) AS fuzzy",
		).
		Joins("JOIN components ON components.id = translations.component_id").
		Where("components.project_id = ?", projectID).
		Where("translations.enabled = ?", true).
		Scan(&row).Error
	if err != nil {
		return UnitCounts{}, err
	}
	return UnitCounts{Total: row.Total, Translated: row.Translated, Fuzzy: row.Fuzzy}, nil
}
