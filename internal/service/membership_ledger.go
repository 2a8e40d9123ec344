package service

import (
	"context"
	"errors"
	"time"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/observability"
	"github.com/campushub/campus-events-backend/internal/repository"
)

// MembershipLedger owns the join request lifecycle: request, decide,
// leave, and the read views built on top. Writes invalidate the club-set
// cache so reads after a decision see the new state at once.
type MembershipLedger struct {
	memberships repository.MembershipRepository
	authorizer  *RoleAuthorizer
	cache       MembershipCacheStore
	cacheTTL    time.Duration
	locks       *stripedMutex
}

func NewMembershipLedger(
	memberships repository.MembershipRepository,
	authorizer *RoleAuthorizer,
	cache MembershipCacheStore,
	cacheTTL time.Duration,
) *MembershipLedger {
	if cache == nil {
		cache = NewNoopMembershipCacheStore()
	}
	return &MembershipLedger{
		memberships: memberships,
		authorizer:  authorizer,
		cache:       cache,
		cacheTTL:    cacheTTL,
		locks:       newStripedMutex(),
	}
}

// RequestJoin files a pending membership for the student. Only student
// principals hold memberships; council tiers act on clubs through their
// role, not a roster row. The check and the insert run under the
// student's stripe so two racing requests for the same club produce
// exactly one pending row.
func (l *MembershipLedger) RequestJoin(ctx context.Context, student *domain.Principal, clubID uint) (*domain.Membership, error) {
	if student.Role != domain.RoleStudent {
		return nil, ErrNotAuthorized
	}
	club, err := l.memberships.FindClubByID(clubID)
	if err != nil {
		return nil, err
	}

	l.locks.Lock(student.ID)
	defer l.locks.Unlock(student.ID)

	current, err := l.memberships.FindCurrent(student.ID, club.ID)
	if err != nil && !errors.Is(err, repository.ErrMembershipNotFound) {
		return nil, err
	}
	if current != nil {
		switch current.Status {
		case domain.MembershipActive:
			return nil, ErrAlreadyMember
		case domain.MembershipPending:
			return nil, ErrDuplicateRequest
		}
	}

	m := &domain.Membership{
		StudentID:   student.ID,
		ClubID:      club.ID,
		Status:      domain.MembershipPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := l.memberships.CreatePending(m); err != nil {
		return nil, err
	}
	observability.RecordMembershipEvent("requested", string(domain.MembershipPending))
	return m, nil
}

// Decide settles a pending request. A rejected request leaves no trace
// in FindCurrent, so the student may apply again later. The conditional
// update makes racing deciders resolve to exactly one winner; every
// loser sees ErrAlreadyDecided regardless of which verdict won.
func (l *MembershipLedger) Decide(ctx context.Context, actor *domain.Principal, membershipID uint, approve bool) (*domain.Membership, error) {
	m, err := l.memberships.FindMembershipByID(membershipID)
	if err != nil {
		return nil, err
	}
	club, err := l.memberships.FindClubByID(m.ClubID)
	if err != nil {
		return nil, err
	}
	if decision := l.authorizer.Authorize(actor, ActionMembershipDecide, ClubResource(club)); !decision.Allowed {
		return nil, decision.Reason
	}

	status := domain.MembershipRejected
	if approve {
		status = domain.MembershipActive
	}
	now := time.Now().UTC()
	changed, err := l.memberships.Decide(m.ID, status, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrAlreadyDecided
	}
	m.Status = status
	m.DecidedAt = &now

	if approve {
		if err := l.cache.InvalidateStudent(ctx, m.StudentID); err != nil {
			observability.RecordMembershipEvent("cache_invalidate", "error")
		}
	}
	observability.RecordMembershipEvent("decided", string(status))
	return m, nil
}

// Leave removes the student's active membership. Leaving a club you are
// not in succeeds quietly.
func (l *MembershipLedger) Leave(ctx context.Context, student *domain.Principal, clubID uint) error {
	if _, err := l.memberships.FindClubByID(clubID); err != nil {
		return err
	}
	removed, err := l.memberships.DeleteActive(student.ID, clubID)
	if err != nil {
		return err
	}
	if removed > 0 {
		if err := l.cache.InvalidateStudent(ctx, student.ID); err != nil {
			observability.RecordMembershipEvent("cache_invalidate", "error")
		}
		observability.RecordMembershipEvent("left", string(domain.MembershipActive))
	}
	return nil
}

// ActiveClubs returns the clubs the student belongs to, served from the
// club-set cache when warm.
func (l *MembershipLedger) ActiveClubs(ctx context.Context, studentID uint) ([]domain.Club, error) {
	if ids, ok, err := l.cache.Get(ctx, studentID); err == nil && ok {
		clubs := make([]domain.Club, 0, len(ids))
		for _, id := range ids {
			club, err := l.memberships.FindClubByID(id)
			if err != nil {
				if errors.Is(err, repository.ErrClubNotFound) {
					continue
				}
				return nil, err
			}
			clubs = append(clubs, *club)
		}
		return clubs, nil
	}

	clubs, err := l.memberships.ListActiveClubsByStudent(studentID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(clubs))
	for i, club := range clubs {
		ids[i] = club.ID
	}
	if err := l.cache.Set(ctx, studentID, ids, l.cacheTTL); err != nil {
		observability.RecordMembershipEvent("cache_set", "error")
	}
	return clubs, nil
}

// Roster lists the club's active members, visible to the club's head
// and anyone at pr tier or above.
func (l *MembershipLedger) Roster(ctx context.Context, actor *domain.Principal, clubID uint, req repository.PageRequest) (repository.PageResult[domain.Principal], error) {
	club, err := l.memberships.FindClubByID(clubID)
	if err != nil {
		return repository.PageResult[domain.Principal]{}, err
	}
	if decision := l.authorizer.Authorize(actor, ActionRosterRead, ClubResource(club)); !decision.Allowed {
		return repository.PageResult[domain.Principal]{}, decision.Reason
	}
	return l.memberships.ListRoster(club.ID, req)
}

// PendingRequests lists undecided join requests, oldest first, under the
// same visibility rule as the roster.
func (l *MembershipLedger) PendingRequests(ctx context.Context, actor *domain.Principal, clubID uint) ([]domain.Membership, error) {
	club, err := l.memberships.FindClubByID(clubID)
	if err != nil {
		return nil, err
	}
	if decision := l.authorizer.Authorize(actor, ActionRosterRead, ClubResource(club)); !decision.Allowed {
		return nil, decision.Reason
	}
	return l.memberships.ListPendingByClub(club.ID)
}

// CreateClub registers a club. Restricted to oc tier and above since a
// club carries its own head assignment.
func (l *MembershipLedger) CreateClub(ctx context.Context, actor *domain.Principal, club *domain.Club) error {
	if actor.ForcePasswordChange {
		return ErrPasswordChangeRequired
	}
	if !actor.Role.AtLeast(domain.RoleOC) {
		return ErrNotAuthorized
	}
	return l.memberships.CreateClub(club)
}

// ListClubs returns every club, alphabetically. Open to any
// authenticated principal.
func (l *MembershipLedger) ListClubs(ctx context.Context) ([]domain.Club, error) {
	return l.memberships.ListClubs()
}

// ClubByID resolves a club or reports repository.ErrClubNotFound.
func (l *MembershipLedger) ClubByID(ctx context.Context, clubID uint) (*domain.Club, error) {
	return l.memberships.FindClubByID(clubID)
}
