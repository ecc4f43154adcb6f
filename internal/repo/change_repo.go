package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

// RecordChange appends one audit trail entry for a translation.
func RecordChange(ctx context.Context, db *gorm.DB, translationID, action, actor string) error {
	c := domain.Change{
		ID:            uuid.NewString(),
		TranslationID: translationID,
		Action:        action,
		Actor:         actor,
		CreatedAt:     time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(&c).Error
}

// LastContentChange returns the newest change entry for a translation that
// represents an actual file edit. Sync entries are bookkeeping and
// suggestion entries never touch the file, so both are skipped; counting
// them would hand authorship of uncommitted edits to the wrong actor. It
// feeds the authorship of lazy commits.
func LastContentChange(ctx context.Context, db *gorm.DB, translationID string) (*domain.Change, error) {
	var c domain.Change
	err := db.WithContext(ctx).
		Where("translation_id = ? AND action IN ?", translationID,
			[]string{domain.ActionSave, domain.ActionUpload}).
		Order("created_at DESC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChanges returns a translation's audit trail, newest first.
func ListChanges(ctx context.Context, db *gorm.DB, translationID string, limit int) ([]domain.Change, error) {
	var out []domain.Change
	q := db.WithContext(ctx).
		Where("translation_id = ?", translationID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
