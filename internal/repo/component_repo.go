package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// GetComponent fetches a component with its owning project preloaded.
func GetComponent(ctx context.Context, db *gorm.DB, id string) (*domain.Component, error) {
	var c domain.Component
	err := db.WithContext(ctx).
		Preload("Project").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComponents returns every component with projects preloaded, ordered
// by project and slug. The sync daemon walks this list.
func ListComponents(ctx context.Context, db *gorm.DB) ([]domain.Component, error) {
	var out []domain.Component
	err := db.WithContext(ctx).
		Preload("Project").
		Order("project_id, slug").
		Find(&out).Error
	return out, err
}

// SaveComponent persists every field of c.
func SaveComponent(ctx context.Context, db *gorm.DB, c *domain.Component) error {
	return db.WithContext(ctx).Save(c).Error
}
