// Package services – StatsService
//
// Recomputes the derived unit counts of a translation after every
// successful sync or merge, persists them, publishes the Prometheus gauges,
// and drops any cached values derived from the old counts.
package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/cache"
	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/observability"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

// StatsService maintains per-translation aggregate counts.
type StatsService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Cache holds derived values invalidated on every recompute; optional.
	Cache *cache.Cache
}

// NewStatsService constructs a StatsService.
func NewStatsService(db *gorm.DB, c *cache.Cache) *StatsService {
	return &StatsService{DB: db, Cache: c}
}

// Update recounts t's units, stores the counts on t, refreshes the gauges,
// and invalidates t's cache entries. t must carry its preloaded component
// and project.
func (s *StatsService) Update(ctx context.Context, t *domain.Translation) error {
	counts, err := repo.CountUnits(ctx, s.DB, t.ID)
	if err != nil {
		return fmt.Errorf("count units: %w", err)
	}

	t.Total = counts.Total
	t.Translated = counts.Translated
	t.Fuzzy = counts.Fuzzy
	if err := repo.SaveTranslation(ctx, s.DB, t); err != nil {
		return fmt.Errorf("save counts: %w", err)
	}

	observability.SetUnitCounts(
		t.Component.Project.Slug, t.Component.Slug, t.LanguageCode,
		counts.Total, counts.Translated, counts.Fuzzy,
	)
	project, err := repo.ProjectCounts(ctx, s.DB, t.Component.ProjectID)
	if err != nil {
		return fmt.Errorf("count project units: %w", err)
	}
	observability.SetProjectCounts(t.Component.Project.Slug, project.Total, project.Translated)
	if s.Cache != nil {
		s.Cache.InvalidateTranslation(t.ID)
	}
	return nil
}
