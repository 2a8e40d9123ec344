package service

import (
	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/observability"
)

type Action string

const (
	ActionEventCreate      Action = "event:create"
	ActionEventEdit        Action = "event:edit"
	ActionEventDelete      Action = "event:delete"
	ActionClubBroadcast    Action = "broadcast:club"
	ActionCollegeBroadcast Action = "broadcast:college"
	ActionMembershipDecide Action = "membership:decide"
	ActionRosterRead       Action = "club:roster:read"
	ActionPasswordChange   Action = "auth:change_password"
)

// Resource identifies the target of an action. ClubID is zero for
// college-wide resources; HeadPrincipalID is the owning club's head.
type Resource struct {
	Type            string
	ClubID          uint
	HeadPrincipalID uint
}

func ClubResource(club *domain.Club) Resource {
	return Resource{Type: "club", ClubID: club.ID, HeadPrincipalID: club.HeadPrincipalID}
}

func EventResource(clubID, headPrincipalID uint) Resource {
	return Resource{Type: "event", ClubID: clubID, HeadPrincipalID: headPrincipalID}
}

func CollegeResource() Resource {
	return Resource{Type: "college"}
}

// Decision is the outcome of an authorization check. Reason is one of
// the sentinel errors when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  error
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(reason error) Decision { return Decision{Allowed: false, Reason: reason} }

// RoleAuthorizer is a pure function of (role tier, ownership relation,
// action); it consults no state beyond its inputs.
type RoleAuthorizer struct{}

func NewRoleAuthorizer() *RoleAuthorizer { return &RoleAuthorizer{} }

func (a *RoleAuthorizer) Authorize(principal *domain.Principal, action Action, res Resource) Decision {
	decision := a.evaluate(principal, action, res)
	outcome := "deny"
	if decision.Allowed {
		outcome = "allow"
	}
	observability.RecordAuthorizeDecision(string(action), outcome)
	return decision
}

func (a *RoleAuthorizer) evaluate(principal *domain.Principal, action Action, res Resource) Decision {
	// Password-change gate: a principal on a bootstrap password can do
	// nothing else until the change succeeds.
	if principal.ForcePasswordChange {
		if action == ActionPasswordChange {
			return allow()
		}
		return deny(ErrPasswordChangeRequired)
	}

	switch action {
	case ActionPasswordChange:
		return allow()

	case ActionCollegeBroadcast:
		// College-wide reach is reserved for pr/oc/admin; a club head's
		// authority stops at their club.
		if principal.Role.AtLeast(domain.RolePR) {
			return allow()
		}
		return deny(ErrNotAuthorized)

	case ActionEventCreate, ActionEventEdit, ActionEventDelete,
		ActionClubBroadcast, ActionMembershipDecide, ActionRosterRead:
		return a.evaluateClubScoped(principal, res)

	default:
		return deny(ErrNotAuthorized)
	}
}

func (a *RoleAuthorizer) evaluateClubScoped(principal *domain.Principal, res Resource) Decision {
	if principal.Role.AtLeast(domain.RolePR) {
		return allow()
	}
	if principal.Role == domain.RoleClubHead {
		if res.HeadPrincipalID == principal.ID {
			return allow()
		}
		return deny(ErrCrossClubDenied)
	}
	return deny(ErrNotAuthorized)
}
