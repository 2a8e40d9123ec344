package repository

import (
	"context"
	"errors"
	"time"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/observability"

	"gorm.io/gorm"
)

var ErrPrincipalNotFound = errors.New("principal not found")

type PrincipalRepository interface {
	FindByID(id uint) (*domain.Principal, error)
	FindByIdentifier(identifier string) (*domain.Principal, error)
	Create(p *domain.Principal) error
	// UpdatePassword swaps the credential hash and clears the forced
	// password change flag in one write.
	UpdatePassword(principalID uint, passwordHash string) error
	TouchLastActive(principalID uint, at time.Time) error
	List(req PageRequest) (PageResult[domain.Principal], error)
}

type GormPrincipalRepository struct{ db *gorm.DB }

func NewPrincipalRepository(db *gorm.DB) PrincipalRepository { return &GormPrincipalRepository{db: db} }

func (r *GormPrincipalRepository) FindByID(id uint) (*domain.Principal, error) {
	var p domain.Principal
	err := r.db.First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "principal", "find_by_id", "not_found")
			return nil, ErrPrincipalNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "principal", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "principal", "find_by_id", "success")
	return &p, nil
}

func (r *GormPrincipalRepository) FindByIdentifier(identifier string) (*domain.Principal, error) {
	var p domain.Principal
	err := r.db.Where("identifier = ?", identifier).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "principal", "find_by_identifier", "not_found")
			return nil, ErrPrincipalNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "principal", "find_by_identifier", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "principal", "find_by_identifier", "success")
	return &p, nil
}

func (r *GormPrincipalRepository) Create(p *domain.Principal) error {
	err := r.db.Create(p).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "principal", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "principal", "create", "success")
	return nil
}

func (r *GormPrincipalRepository) UpdatePassword(principalID uint, passwordHash string) error {
	res := r.db.Model(&domain.Principal{}).
		Where("id = ?", principalID).
		Updates(map[string]any{"password_hash": passwordHash, "force_password_change": false})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "principal", "update_password", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "principal", "update_password", "not_found")
		return ErrPrincipalNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "principal", "update_password", "success")
	return nil
}

func (r *GormPrincipalRepository) TouchLastActive(principalID uint, at time.Time) error {
	err := r.db.Model(&domain.Principal{}).
		Where("id = ?", principalID).
		Update("last_active_at", at).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "principal", "touch_last_active", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "principal", "touch_last_active", "success")
	return nil
}

func (r *GormPrincipalRepository) List(req PageRequest) (PageResult[domain.Principal], error) {
	normalized := normalizePageRequest(req)
	result := PageResult[domain.Principal]{
		Page:     normalized.Page,
		PageSize: normalized.PageSize,
	}
	base := r.db.Model(&domain.Principal{})
	if err := base.Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "principal", "list", "error")
		return PageResult[domain.Principal]{}, err
	}
	offset := (normalized.Page - 1) * normalized.PageSize
	if err := base.Order("id ASC").Offset(offset).Limit(normalized.PageSize).Find(&result.Items).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "principal", "list", "error")
		return PageResult[domain.Principal]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, normalized.PageSize)
	observability.RecordRepositoryOperation(context.Background(), "principal", "list", "success")
	return result, nil
}
