// Package permission evaluates campaign-scoped capabilities for a resolved role.
//
// The same table is applied by the API before mutating campaign resources and by
// the client SDK before issuing a mutating call.
package permission

import "strings"

// Role is the caller's standing inside a single campaign.
type Role string

const (
	// RoleNone means no membership was found; every capability is denied.
	RoleNone    Role = ""
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleCreator Role = "CREATOR"
	RoleReader  Role = "READER"
)

// Capability names a campaign-scoped resource family.
type Capability string

const (
	Campaigns Capability = "campaigns"
	Forms     Capability = "forms"
	Questions Capability = "questions"
	Members   Capability = "members"
)

// Capabilities lists every capability the table covers.
var Capabilities = []Capability{Campaigns, Forms, Questions, Members}

// MemberRoles are the roles that can be stored on a membership row.
var MemberRoles = []Role{RoleAdmin, RoleCreator, RoleReader}

// ParseRole normalises a role string. Unknown values map to RoleNone.
func ParseRole(raw string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner
	case RoleAdmin:
		return RoleAdmin
	case RoleCreator:
		return RoleCreator
	case RoleReader:
		return RoleReader
	default:
		return RoleNone
	}
}

// IsMemberRole reports whether r may be assigned to a campaign member.
func IsMemberRole(r Role) bool {
	return r == RoleAdmin || r == RoleCreator || r == RoleReader
}

// FromNullable maps the nullable representation used by older clients, where a
// missing role stands for the campaign creator.
func FromNullable(role *string) Role {
	if role == nil {
		return RoleOwner
	}
	return ParseRole(*role)
}

// CanManage reports whether role may create or edit resources of the capability.
func CanManage(_ Capability, role Role) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleCreator:
		return true
	default:
		return false
	}
}

// CanDelete reports whether role may delete resources of the capability.
func CanDelete(_ Capability, role Role) bool {
	switch role {
	case RoleOwner, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanView reports whether role grants read access to the campaign.
func CanView(role Role) bool {
	return role != RoleNone
}

// IsReadOnly is true for roles that can see but not change a campaign.
func IsReadOnly(role Role) bool {
	return role == RoleReader
}

// Membership is the minimal view of a campaign member needed to resolve a role.
type Membership struct {
	UserID string
	Role   Role
}

// Resolve determines the caller's role. The campaign creator is always the
// owner; otherwise the matching membership row decides.
func Resolve(userID, creatorID string, members []Membership) Role {
	if userID == "" {
		return RoleNone
	}
	if creatorID != "" && userID == creatorID {
		return RoleOwner
	}
	for _, m := range members {
		if m.UserID == userID {
			return m.Role
		}
	}
	return RoleNone
}

// Label returns a display label for the role.
func (r Role) Label() string {
	switch r {
	case RoleOwner:
		return "Owner"
	case RoleAdmin:
		return "Administrator"
	case RoleCreator:
		return "Creator"
	case RoleReader:
		return "Reader"
	default:
		return "No access"
	}
}
