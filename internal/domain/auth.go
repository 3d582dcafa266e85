package domain

import "time"

// Role is the persisted account role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Capability is the access level an operation requires.
type Capability int

const (
	CapabilityAnonymous Capability = iota
	CapabilityUser
	CapabilityAdmin
)

func (c Capability) String() string {
	switch c {
	case CapabilityAdmin:
		return "admin"
	case CapabilityUser:
		return "user"
	default:
		return "anonymous"
	}
}

// Capability maps a role onto the capability it grants.
func (r Role) Capability() Capability {
	switch r {
	case RoleAdmin:
		return CapabilityAdmin
	case RoleUser:
		return CapabilityUser
	default:
		return CapabilityAnonymous
	}
}

// Principal is the authenticated caller passed explicitly into every operation.
// A nil *Principal is an anonymous caller.
type Principal struct {
	UserID  string
	Role    Role
	TokenID string
	Expires time.Time
}

// Capability returns the caller's capability; nil principals are anonymous.
func (p *Principal) Capability() Capability {
	if p == nil {
		return CapabilityAnonymous
	}
	return p.Role.Capability()
}
