package repository

import (
	"context"
	"errors"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/observability"

	"gorm.io/gorm"
)

var ErrEventNotFound = errors.New("event not found")

type EventRepository interface {
	Create(e *domain.Event) error
	FindByID(id uint) (*domain.Event, error)
	FindByExternalID(externalID string) (*domain.Event, error)
	Update(e *domain.Event) error
	DeleteByID(id uint) error
	ListByClub(clubID uint, req PageRequest) (PageResult[domain.Event], error)
}

type GormEventRepository struct{ db *gorm.DB }

func NewEventRepository(db *gorm.DB) EventRepository { return &GormEventRepository{db: db} }

func (r *GormEventRepository) Create(e *domain.Event) error {
	err := r.db.Create(e).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "event", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "event", "create", "success")
	return nil
}

func (r *GormEventRepository) FindByID(id uint) (*domain.Event, error) {
	var e domain.Event
	err := r.db.First(&e, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "event", "find_by_id", "not_found")
			return nil, ErrEventNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "event", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "event", "find_by_id", "success")
	return &e, nil
}

func (r *GormEventRepository) FindByExternalID(externalID string) (*domain.Event, error) {
	var e domain.Event
	err := r.db.Where("external_id = ?", externalID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "event", "find_by_external_id", "not_found")
			return nil, ErrEventNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "event", "find_by_external_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "event", "find_by_external_id", "success")
	return &e, nil
}

func (r *GormEventRepository) Update(e *domain.Event) error {
	err := r.db.Save(e).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "event", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "event", "update", "success")
	return nil
}

func (r *GormEventRepository) DeleteByID(id uint) error {
	res := r.db.Delete(&domain.Event{}, id)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "event", "delete_by_id", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "event", "delete_by_id", "not_found")
		return ErrEventNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "event", "delete_by_id", "success")
	return nil
}

func (r *GormEventRepository) ListByClub(clubID uint, req PageRequest) (PageResult[domain.Event], error) {
	normalized := normalizePageRequest(req)
	result := PageResult[domain.Event]{
		Page:     normalized.Page,
		PageSize: normalized.PageSize,
	}
	base := r.db.Model(&domain.Event{}).Where("club_id = ?", clubID)
	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "event", "list_by_club", "error")
		return PageResult[domain.Event]{}, err
	}
	offset := (normalized.Page - 1) * normalized.PageSize
	if err := base.Order("starts_at ASC").Offset(offset).Limit(normalized.PageSize).Find(&result.Items).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "event", "list_by_club", "error")
		return PageResult[domain.Event]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, normalized.PageSize)
	observability.RecordRepositoryOperation(context.Background(), "event", "list_by_club", "success")
	return result, nil
}
