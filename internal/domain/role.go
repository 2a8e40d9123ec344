package domain

import "fmt"

// Role is the single permission tier of a principal. Tiers are strictly
// ordered: student < club_head < pr < oc < admin.
type Role string

const (
	RoleStudent  Role = "student"
	RoleClubHead Role = "club_head"
	RolePR       Role = "pr"
	RoleOC       Role = "oc"
	RoleAdmin    Role = "admin"
)

var roleTiers = map[Role]int{
	RoleStudent:  0,
	RoleClubHead: 1,
	RolePR:       2,
	RoleOC:       3,
	RoleAdmin:    4,
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleTiers[r]; !ok {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// Tier returns the position of the role in the hierarchy. Unknown roles
// rank below student so a corrupt record never gains access.
func (r Role) Tier() int {
	tier, ok := roleTiers[r]
	if !ok {
		return -1
	}
	return tier
}

func (r Role) AtLeast(other Role) bool {
	return r.Tier() >= other.Tier()
}

// IsCouncil reports whether the role belongs to the council umbrella
// (club_head and above). Council principals carry the session cap.
func (r Role) IsCouncil() bool {
	return r.Tier() >= roleTiers[RoleClubHead]
}

func (r Role) String() string { return string(r) }
