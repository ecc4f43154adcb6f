// Package services – LockService
//
// This file implements the advisory per-translation soft lock that gates
// interactive edits. The lock is independent of the repository write lock:
// it blocks other editors by convention, never file I/O. Expiry is
// evaluated lazily on every check and cleared as a side effect; there is no
// background sweeper. All operations are total functions over current state
// and persist every change immediately.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/repo"
)

// LockState is the answer to an IsLocked query.
type LockState struct {
	// ComponentLocked reports a maintainer-level lock on the whole
	// component; it overrides everything else.
	ComponentLocked bool
	// OtherLocked reports a live soft lock held by a different actor.
	OtherLocked bool
	// OwnLock reports a live soft lock held by the querying actor.
	OwnLock bool
}

// Blocked reports whether the queried actor may not edit.
func (s LockState) Blocked() bool {
	return s.ComponentLocked || s.OtherLocked
}

// LockService manages translation soft locks.
type LockService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// AutoLock enables implicit lock acquisition on edits (Touch).
	AutoLock bool
	// AutoTime is the lifetime of automatically acquired locks.
	AutoTime time.Duration
	// ExplicitTime is the lifetime of explicitly requested locks.
	ExplicitTime time.Duration

	// Now returns the current time; overridable in tests.
	Now func() time.Time
}

// NewLockService constructs a LockService with the given policy.
func NewLockService(db *gorm.DB, autoLock bool, autoTime, explicitTime time.Duration) *LockService {
	return &LockService{
		DB:           db,
		AutoLock:     autoLock,
		AutoTime:     autoTime,
		ExplicitTime: explicitTime,
		Now:          time.Now,
	}
}

// IsLocked reports the lock state of t as seen by actor. An expired lock is
// cleared in place before the answer is computed.
func (s *LockService) IsLocked(ctx context.Context, t *domain.Translation, actor string) (LockState, error) {
	state := LockState{ComponentLocked: t.Component.Locked}

	if t.LockActor == "" {
		return state, nil
	}
	if t.LockExpiry == nil || !s.Now().Before(*t.LockExpiry) {
		// Lazy expiry: clear the stale lock as a side effect.
		t.LockActor = ""
		t.LockExpiry = nil
		if err := repo.UpdateTranslationLock(ctx, s.DB, t); err != nil {
			return state, err
		}
		return state, nil
	}
	if t.LockActor == actor {
		state.OwnLock = true
	} else {
		state.OtherLocked = true
	}
	return state, nil
}

// Acquire sets or clears the soft lock on t. An empty actor clears the lock
// immediately. Otherwise the expiry becomes now plus the explicit or auto
// duration, but an existing live lock is only ever extended forward, never
// shortened.
func (s *LockService) Acquire(ctx context.Context, t *domain.Translation, actor string, explicit bool) error {
	if actor == "" {
		t.LockActor = ""
		t.LockExpiry = nil
		return repo.UpdateTranslationLock(ctx, s.DB, t)
	}

	dur := s.AutoTime
	if explicit {
		dur = s.ExplicitTime
	}
	now := s.Now()
	expiry := now.Add(dur)

	live := t.LockActor != "" && t.LockExpiry != nil && now.Before(*t.LockExpiry)
	if live && t.LockExpiry.After(expiry) {
		expiry = *t.LockExpiry
	}

	t.LockActor = actor
	t.LockExpiry = &expiry
	return repo.UpdateTranslationLock(ctx, s.DB, t)
}

// Touch extends actor's live lock by the auto duration, or acquires a fresh
// auto lock when auto-locking is enabled. Called on every interactive edit.
func (s *LockService) Touch(ctx context.Context, t *domain.Translation, actor string) error {
	state, err := s.IsLocked(ctx, t, actor)
	if err != nil {
		return err
	}
	if state.OwnLock {
		return s.Acquire(ctx, t, actor, false)
	}
	if s.AutoLock && !state.OtherLocked {
		return s.Acquire(ctx, t, actor, false)
	}
	// A live lock held by someone else is left as it stands; extending a
	// foreign holder's expiry on every bystander edit would keep the lock
	// alive indefinitely.
	return nil
}

// SetComponentLock sets or clears the maintainer lock on a whole component.
// While set, every translation under the component rejects interactive
// edits regardless of soft-lock state.
func (s *LockService) SetComponentLock(ctx context.Context, componentID string, locked bool) error {
	c, err := repo.GetComponent(ctx, s.DB, componentID)
	if err != nil {
		return err
	}
	if c.Locked == locked {
		return nil
	}
	c.Locked = locked
	return repo.SaveComponent(ctx, s.DB, c)
}
