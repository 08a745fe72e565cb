// Package access decides whether an identity may reach a role-restricted
// resource. It has no I/O; loading the identity is the caller's job.
package access

import "campus_bus/internal/models"

const (
	ReasonLoginRequired = "must log in"
	ReasonNoRole        = "no role assigned"
	ReasonRoleMismatch  = "role mismatch"
)

// Identity is the requester as seen by the gate.
type Identity struct {
	UserID        uint
	Username      string
	Role          models.Role
	IsSuperuser   bool
	Authenticated bool
}

// Anonymous is the identity of a request without a session or token.
func Anonymous() Identity {
	return Identity{}
}

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Check applies the gate rules in order: authentication, superuser bypass
// (admin only), role presence, then role equality.
func Check(id Identity, required models.Role) Decision {
	if !id.Authenticated {
		return deny(ReasonLoginRequired)
	}
	if id.IsSuperuser && required == models.RoleAdmin {
		return allow()
	}
	if id.Role == "" {
		return deny(ReasonNoRole)
	}
	if id.Role != required {
		return deny(ReasonRoleMismatch)
	}
	return allow()
}
