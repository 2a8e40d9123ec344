package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/notify"
	"github.com/campushub/campus-events-backend/internal/repository"
)

// EventInput is the caller-supplied part of an event. Identity and
// ownership fields are filled in by the service.
type EventInput struct {
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
}

// EventService guards event writes and announcements behind the role
// authorizer: club heads act on their own club only, pr and above act
// anywhere.
type EventService struct {
	events      repository.EventRepository
	memberships repository.MembershipRepository
	authorizer  *RoleAuthorizer
	notifier    notify.Notifier
}

func NewEventService(
	events repository.EventRepository,
	memberships repository.MembershipRepository,
	authorizer *RoleAuthorizer,
	notifier notify.Notifier,
) *EventService {
	return &EventService{
		events:      events,
		memberships: memberships,
		authorizer:  authorizer,
		notifier:    notifier,
	}
}

func (s *EventService) Create(ctx context.Context, actor *domain.Principal, clubID uint, in EventInput) (*domain.Event, error) {
	club, err := s.memberships.FindClubByID(clubID)
	if err != nil {
		return nil, err
	}
	if decision := s.authorizer.Authorize(actor, ActionEventCreate, ClubResource(club)); !decision.Allowed {
		return nil, decision.Reason
	}
	event := &domain.Event{
		ExternalID:  uuid.NewString(),
		ClubID:      club.ID,
		Title:       in.Title,
		Description: in.Description,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		CreatedBy:   actor.ID,
	}
	if err := s.events.Create(event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) Update(ctx context.Context, actor *domain.Principal, eventID uint, in EventInput) (*domain.Event, error) {
	event, club, err := s.load(eventID)
	if err != nil {
		return nil, err
	}
	if decision := s.authorizer.Authorize(actor, ActionEventEdit, EventResource(club.ID, club.HeadPrincipalID)); !decision.Allowed {
		return nil, decision.Reason
	}
	event.Title = in.Title
	event.Description = in.Description
	event.StartsAt = in.StartsAt
	event.EndsAt = in.EndsAt
	if err := s.events.Update(event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, actor *domain.Principal, eventID uint) error {
	event, club, err := s.load(eventID)
	if err != nil {
		return err
	}
	if decision := s.authorizer.Authorize(actor, ActionEventDelete, EventResource(club.ID, club.HeadPrincipalID)); !decision.Allowed {
		return decision.Reason
	}
	return s.events.DeleteByID(event.ID)
}

// Get is open to any authenticated principal.
func (s *EventService) Get(ctx context.Context, eventID uint) (*domain.Event, error) {
	return s.events.FindByID(eventID)
}

// ListByClub is open to any authenticated principal.
func (s *EventService) ListByClub(ctx context.Context, clubID uint, req repository.PageRequest) (repository.PageResult[domain.Event], error) {
	if _, err := s.memberships.FindClubByID(clubID); err != nil {
		return repository.PageResult[domain.Event]{}, err
	}
	return s.events.ListByClub(clubID, req)
}

// BroadcastClub announces to one club's members. Same ownership rule as
// event writes.
func (s *EventService) BroadcastClub(ctx context.Context, actor *domain.Principal, clubID uint, subject, body string) error {
	club, err := s.memberships.FindClubByID(clubID)
	if err != nil {
		return err
	}
	if decision := s.authorizer.Authorize(actor, ActionClubBroadcast, ClubResource(club)); !decision.Allowed {
		return decision.Reason
	}
	return s.notifier.Announce(ctx, notify.Announcement{
		Scope:    notify.ScopeClub,
		ClubID:   club.ID,
		SenderID: actor.ID,
		Subject:  subject,
		Body:     body,
	})
}

// BroadcastCollege announces campus-wide, pr tier and above only.
func (s *EventService) BroadcastCollege(ctx context.Context, actor *domain.Principal, subject, body string) error {
	if decision := s.authorizer.Authorize(actor, ActionCollegeBroadcast, CollegeResource()); !decision.Allowed {
		return decision.Reason
	}
	return s.notifier.Announce(ctx, notify.Announcement{
		Scope:    notify.ScopeCollege,
		SenderID: actor.ID,
		Subject:  subject,
		Body:     body,
	})
}

func (s *EventService) load(eventID uint) (*domain.Event, *domain.Club, error) {
	event, err := s.events.FindByID(eventID)
	if err != nil {
		return nil, nil, err
	}
	club, err := s.memberships.FindClubByID(event.ClubID)
	if err != nil {
		return nil, nil, err
	}
	return event, club, nil
}
