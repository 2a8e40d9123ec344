package repository

import (
	"context"
	"errors"
	"time"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrClubNotFound       = errors.New("club not found")
	ErrMembershipNotFound = errors.New("membership not found")
)

type MembershipRepository interface {
	CreateClub(club *domain.Club) error
	FindClubByID(id uint) (*domain.Club, error)
	ListClubs() ([]domain.Club, error)

	CreatePending(m *domain.Membership) error
	FindMembershipByID(id uint) (*domain.Membership, error)
	// FindCurrent returns the student's pending or active membership for
	// the club, ignoring rejected rows.
	FindCurrent(studentID, clubID uint) (*domain.Membership, error)
	// Decide flips a pending membership to the given terminal-or-active
	// status. The conditional update makes the first writer win: a second
	// decision sees changed=false and the row untouched.
	Decide(membershipID uint, status domain.MembershipStatus, decidedAt time.Time) (bool, error)
	// DeleteActive removes the student's active membership; deleting a
	// non-member is a no-op.
	DeleteActive(studentID, clubID uint) (int64, error)

	ListActiveClubsByStudent(studentID uint) ([]domain.Club, error)
	ListRoster(clubID uint, req PageRequest) (PageResult[domain.Principal], error)
	ListPendingByClub(clubID uint) ([]domain.Membership, error)
}

type GormMembershipRepository struct{ db *gorm.DB }

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &GormMembershipRepository{db: db}
}

func (r *GormMembershipRepository) CreateClub(club *domain.Club) error {
	err := r.db.Create(club).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "club", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "club", "create", "success")
	return nil
}

func (r *GormMembershipRepository) FindClubByID(id uint) (*domain.Club, error) {
	var club domain.Club
	err := r.db.First(&club, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "club", "find_by_id", "not_found")
			return nil, ErrClubNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "club", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "club", "find_by_id", "success")
	return &club, nil
}

func (r *GormMembershipRepository) ListClubs() ([]domain.Club, error) {
	var clubs []domain.Club
	err := r.db.Order("name ASC").Find(&clubs).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "club", "list", "error")
		return clubs, err
	}
	observability.RecordRepositoryOperation(context.Background(), "club", "list", "success")
	return clubs, nil
}

func (r *GormMembershipRepository) CreatePending(m *domain.Membership) error {
	err := r.db.Create(m).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "membership", "create_pending", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "membership", "create_pending", "success")
	return nil
}

func (r *GormMembershipRepository) FindMembershipByID(id uint) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "membership", "find_by_id", "not_found")
			return nil, ErrMembershipNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "membership", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "membership", "find_by_id", "success")
	return &m, nil
}

func (r *GormMembershipRepository) FindCurrent(studentID, clubID uint) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.Where("student_id = ? AND club_id = ? AND status IN ?",
		studentID, clubID, []domain.MembershipStatus{domain.MembershipPending, domain.MembershipActive}).
		Order("id DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "membership", "find_current", "not_found")
			return nil, ErrMembershipNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "membership", "find_current", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "membership", "find_current", "success")
	return &m, nil
}

func (r *GormMembershipRepository) Decide(membershipID uint, status domain.MembershipStatus, decidedAt time.Time) (bool, error) {
	res := r.db.Model(&domain.Membership{}).
		Where("id = ? AND status = ?", membershipID, domain.MembershipPending).
		Updates(map[string]any{"status": status, "decided_at": decidedAt})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "membership", "decide", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "membership", "decide", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormMembershipRepository) DeleteActive(studentID, clubID uint) (int64, error) {
	res := r.db.Where("student_id = ? AND club_id = ? AND status = ?", studentID, clubID, domain.MembershipActive).
		Delete(&domain.Membership{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "membership", "delete_active", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "membership", "delete_active", "success")
	return res.RowsAffected, nil
}

func (r *GormMembershipRepository) ListActiveClubsByStudent(studentID uint) ([]domain.Club, error) {
	var clubs []domain.Club
	err := r.db.Model(&domain.Club{}).
		Joins("JOIN memberships m ON m.club_id = clubs.id").
		Where("m.student_id = ? AND m.status = ?", studentID, domain.MembershipActive).
		Order("clubs.name ASC").
		Find(&clubs).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "membership", "list_active_clubs", "error")
		return clubs, err
	}
	observability.RecordRepositoryOperation(context.Background(), "membership", "list_active_clubs", "success")
	return clubs, nil
}

func (r *GormMembershipRepository) ListRoster(clubID uint, req PageRequest) (PageResult[domain.Principal], error) {
	normalized := normalizePageRequest(req)
	result := PageResult[domain.Principal]{
		Page:     normalized.Page,
		PageSize: normalized.PageSize,
	}
	base := r.db.Model(&domain.Principal{}).
		Joins("JOIN memberships m ON m.student_id = principals.id").
		Where("m.club_id = ? AND m.status = ?", clubID, domain.MembershipActive)
	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "membership", "list_roster", "error")
		return PageResult[domain.Principal]{}, err
	}
	offset := (normalized.Page - 1) * normalized.PageSize
	if err := base.Order("principals.id ASC").Offset(offset).Limit(normalized.PageSize).Find(&result.Items).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "membership", "list_roster", "error")
		return PageResult[domain.Principal]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, normalized.PageSize)
	observability.RecordRepositoryOperation(context.Background(), "membership", "list_roster", "success")
	return result, nil
}

func (r *GormMembershipRepository) ListPendingByClub(clubID uint) ([]domain.Membership, error) {
	var pending []domain.Membership
	err := r.db.Where("club_id = ? AND status = ?", clubID, domain.MembershipPending).
		Order("requested_at ASC").
		Find(&pending).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "membership", "list_pending", "error")
		return pending, err
	}
	observability.RecordRepositoryOperation(context.Background(), "membership", "list_pending", "success")
	return pending, nil
}
