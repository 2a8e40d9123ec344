package service

import (
	"sort"
	"sync"
	"time"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/repository"
)

type inMemorySessionRepo struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*domain.Session
	byHash map[string]*domain.Session
}

func newInMemorySessionRepo() *inMemorySessionRepo {
	return &inMemorySessionRepo{
		nextID: 1,
		byID:   map[uint]*domain.Session{},
		byHash: map[string]*domain.Session{},
	}
}

func (r *inMemorySessionRepo) Create(s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	cp.ID = r.nextID
	r.nextID++
	r.byID[cp.ID] = &cp
	r.byHash[cp.TokenHash] = &cp
	s.ID = cp.ID
	return nil
}

func (r *inMemorySessionRepo) FindByTokenHash(hash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byHash[hash]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *inMemorySessionRepo) ListActiveByPrincipal(principalID uint) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var active []domain.Session
	for _, s := range r.byID {
		if s.PrincipalID == principalID && s.RevokedAt == nil && s.ExpiresAt.After(now) {
			active = append(active, *s)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].LastSeenAt.Before(active[j].LastSeenAt)
	})
	return active, nil
}

func (r *inMemorySessionRepo) CountActiveByPrincipal(principalID uint) (int64, error) {
	active, _ := r.ListActiveByPrincipal(principalID)
	return int64(len(active)), nil
}

func (r *inMemorySessionRepo) RevokeByTokenHash(hash, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byHash[hash]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	s.RevokedAt = &now
	s.RevokedReason = &reason
	return true, nil
}

func (r *inMemorySessionRepo) RevokeByID(sessionID uint, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	s.RevokedAt = &now
	s.RevokedReason = &reason
	return true, nil
}

func (r *inMemorySessionRepo) RevokeByPrincipalExcept(principalID, exceptSessionID uint, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	now := time.Now().UTC()
	for _, s := range r.byID {
		if s.PrincipalID != principalID || s.ID == exceptSessionID || s.RevokedAt != nil {
			continue
		}
		s.RevokedAt = &now
		s.RevokedReason = &reason
		count++
	}
	return count, nil
}

func (r *inMemorySessionRepo) TouchLastSeen(sessionID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[sessionID]; ok {
		s.LastSeenAt = at
	}
	return nil
}

func (r *inMemorySessionRepo) CleanupExpired() (int64, error) { return 0, nil }

type inMemoryPrincipalRepo struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*domain.Principal
	byIdnt map[string]*domain.Principal
}

func newInMemoryPrincipalRepo() *inMemoryPrincipalRepo {
	return &inMemoryPrincipalRepo{
		nextID: 1,
		byID:   map[uint]*domain.Principal{},
		byIdnt: map[string]*domain.Principal{},
	}
}

func (r *inMemoryPrincipalRepo) FindByID(id uint) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPrincipalRepo) FindByIdentifier(identifier string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byIdnt[identifier]
	if !ok {
		return nil, repository.ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPrincipalRepo) Create(p *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	if cp.ID == 0 {
		cp.ID = r.nextID
		r.nextID++
	}
	r.byID[cp.ID] = &cp
	r.byIdnt[cp.Identifier] = &cp
	p.ID = cp.ID
	return nil
}

func (r *inMemoryPrincipalRepo) UpdatePassword(principalID uint, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[principalID]
	if !ok {
		return repository.ErrPrincipalNotFound
	}
	p.PasswordHash = passwordHash
	p.ForcePasswordChange = false
	return nil
}

func (r *inMemoryPrincipalRepo) TouchLastActive(principalID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[principalID]; ok {
		p.LastActiveAt = &at
	}
	return nil
}

func (r *inMemoryPrincipalRepo) List(req repository.PageRequest) (repository.PageResult[domain.Principal], error) {
	return repository.PageResult[domain.Principal]{}, nil
}

type inMemoryMembershipRepo struct {
	mu          sync.Mutex
	nextID      uint
	clubs       map[uint]*domain.Club
	memberships map[uint]*domain.Membership
}

func newInMemoryMembershipRepo() *inMemoryMembershipRepo {
	return &inMemoryMembershipRepo{
		nextID:      1,
		clubs:       map[uint]*domain.Club{},
		memberships: map[uint]*domain.Membership{},
	}
}

func (r *inMemoryMembershipRepo) CreateClub(club *domain.Club) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *club
	if cp.ID == 0 {
		cp.ID = r.nextID
		r.nextID++
	}
	r.clubs[cp.ID] = &cp
	club.ID = cp.ID
	return nil
}

func (r *inMemoryMembershipRepo) FindClubByID(id uint) (*domain.Club, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	club, ok := r.clubs[id]
	if !ok {
		return nil, repository.ErrClubNotFound
	}
	cp := *club
	return &cp, nil
}

func (r *inMemoryMembershipRepo) ListClubs() ([]domain.Club, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var clubs []domain.Club
	for _, club := range r.clubs {
		clubs = append(clubs, *club)
	}
	sort.Slice(clubs, func(i, j int) bool { return clubs[i].Name < clubs[j].Name })
	return clubs, nil
}

func (r *inMemoryMembershipRepo) CreatePending(m *domain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	cp.ID = r.nextID
	r.nextID++
	r.memberships[cp.ID] = &cp
	m.ID = cp.ID
	return nil
}

func (r *inMemoryMembershipRepo) FindMembershipByID(id uint) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[id]
	if !ok {
		return nil, repository.ErrMembershipNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *inMemoryMembershipRepo) FindCurrent(studentID, clubID uint) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *domain.Membership
	for _, m := range r.memberships {
		if m.StudentID != studentID || m.ClubID != clubID {
			continue
		}
		if m.Status != domain.MembershipPending && m.Status != domain.MembershipActive {
			continue
		}
		if found == nil || m.ID > found.ID {
			found = m
		}
	}
	if found == nil {
		return nil, repository.ErrMembershipNotFound
	}
	cp := *found
	return &cp, nil
}

func (r *inMemoryMembershipRepo) Decide(membershipID uint, status domain.MembershipStatus, decidedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[membershipID]
	if !ok || m.Status != domain.MembershipPending {
		return false, nil
	}
	m.Status = status
	m.DecidedAt = &decidedAt
	return true, nil
}

func (r *inMemoryMembershipRepo) DeleteActive(studentID, clubID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, m := range r.memberships {
		if m.StudentID == studentID && m.ClubID == clubID && m.Status == domain.MembershipActive {
			delete(r.memberships, id)
			count++
		}
	}
	return count, nil
}

func (r *inMemoryMembershipRepo) ListActiveClubsByStudent(studentID uint) ([]domain.Club, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var clubs []domain.Club
	for _, m := range r.memberships {
		if m.StudentID == studentID && m.Status == domain.MembershipActive {
			if club, ok := r.clubs[m.ClubID]; ok {
				clubs = append(clubs, *club)
			}
		}
	}
	sort.Slice(clubs, func(i, j int) bool { return clubs[i].Name < clubs[j].Name })
	return clubs, nil
}

func (r *inMemoryMembershipRepo) ListRoster(clubID uint, req repository.PageRequest) (repository.PageResult[domain.Principal], error) {
	return repository.PageResult[domain.Principal]{}, nil
}

func (r *inMemoryMembershipRepo) ListPendingByClub(clubID uint) ([]domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []domain.Membership
	for _, m := range r.memberships {
		if m.ClubID == clubID && m.Status == domain.MembershipPending {
			pending = append(pending, *m)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].RequestedAt.Before(pending[j].RequestedAt)
	})
	return pending, nil
}

type inMemoryEventRepo struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*domain.Event
}

func newInMemoryEventRepo() *inMemoryEventRepo {
	return &inMemoryEventRepo{nextID: 1, byID: map[uint]*domain.Event{}}
}

func (r *inMemoryEventRepo) Create(e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	cp.ID = r.nextID
	r.nextID++
	r.byID[cp.ID] = &cp
	e.ID = cp.ID
	return nil
}

func (r *inMemoryEventRepo) FindByID(id uint) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *inMemoryEventRepo) FindByExternalID(externalID string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.byID {
		if e.ExternalID == externalID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrEventNotFound
}

func (r *inMemoryEventRepo) Update(e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; !ok {
		return repository.ErrEventNotFound
	}
	cp := *e
	r.byID[e.ID] = &cp
	return nil
}

func (r *inMemoryEventRepo) DeleteByID(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repository.ErrEventNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *inMemoryEventRepo) ListByClub(clubID uint, req repository.PageRequest) (repository.PageResult[domain.Event], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var events []domain.Event
	for _, e := range r.byID {
		if e.ClubID == clubID {
			events = append(events, *e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartsAt.Before(events[j].StartsAt) })
	return repository.PageResult[domain.Event]{
		Items:      events,
		Total:      int64(len(events)),
		Page:       1,
		PageSize:   len(events),
		TotalPages: 1,
	}, nil
}
