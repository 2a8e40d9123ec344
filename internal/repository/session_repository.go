package repository

import (
	"context"
	"errors"
	"time"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/observability"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	Create(s *domain.Session) error
	FindByTokenHash(hash string) (*domain.Session, error)
	// ListActiveByPrincipal returns unexpired, unrevoked sessions ordered
	// least-recently-used first, so Items[0] is the eviction candidate.
	ListActiveByPrincipal(principalID uint) ([]domain.Session, error)
	CountActiveByPrincipal(principalID uint) (int64, error)
	// RevokeByTokenHash is idempotent: revoking an absent or already
	// revoked session reports success with changed=false.
	RevokeByTokenHash(hash, reason string) (bool, error)
	RevokeByID(sessionID uint, reason string) (bool, error)
	// RevokeByPrincipalExcept revokes all of the principal's live
	// sessions but the given one.
	RevokeByPrincipalExcept(principalID, exceptSessionID uint, reason string) (int64, error)
	TouchLastSeen(sessionID uint, at time.Time) error
	CleanupExpired() (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(s *domain.Session) error {
	err := r.db.Create(s).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "create", "success")
	return nil
}

func (r *GormSessionRepository) FindByTokenHash(hash string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.Where("token_hash = ?", hash).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "session", "find_by_token_hash", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "session", "find_by_token_hash", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "find_by_token_hash", "success")
	return &s, nil
}

func (r *GormSessionRepository) ListActiveByPrincipal(principalID uint) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.Where("principal_id = ? AND revoked_at IS NULL AND expires_at > ?", principalID, time.Now()).
		Order("last_seen_at ASC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "list_active_by_principal", "error")
		return sessions, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "list_active_by_principal", "success")
	return sessions, nil
}

func (r *GormSessionRepository) CountActiveByPrincipal(principalID uint) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Session{}).
		Where("principal_id = ? AND revoked_at IS NULL AND expires_at > ?", principalID, time.Now()).
		Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "count_active_by_principal", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "count_active_by_principal", "success")
	return count, nil
}

func (r *GormSessionRepository) RevokeByTokenHash(hash, reason string) (bool, error) {
	now := time.Now().UTC()
	res := r.db.Model(&domain.Session{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Updates(map[string]any{"revoked_at": now, "revoked_reason": reason})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_token_hash", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_token_hash", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormSessionRepository) RevokeByID(sessionID uint, reason string) (bool, error) {
	now := time.Now().UTC()
	res := r.db.Model(&domain.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Updates(map[string]any{"revoked_at": now, "revoked_reason": reason})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_id", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_id", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormSessionRepository) RevokeByPrincipalExcept(principalID, exceptSessionID uint, reason string) (int64, error) {
	now := time.Now().UTC()
	res := r.db.Model(&domain.Session{}).
		Where("principal_id = ? AND id <> ? AND revoked_at IS NULL", principalID, exceptSessionID).
		Updates(map[string]any{"revoked_at": now, "revoked_reason": reason})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_principal_except", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_principal_except", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionRepository) TouchLastSeen(sessionID uint, at time.Time) error {
	err := r.db.Model(&domain.Session{}).
		Where("id = ?", sessionID).
		Update("last_seen_at", at).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "touch_last_seen", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "touch_last_seen", "success")
	return nil
}

func (r *GormSessionRepository) CleanupExpired() (int64, error) {
	res := r.db.Where("expires_at <= ?", time.Now()).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "cleanup_expired", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "cleanup_expired", "success")
	return res.RowsAffected, nil
}
