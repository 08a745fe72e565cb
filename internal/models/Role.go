package models

import "strings"

// Role is the single access tag carried by every account.
type Role string

const (
	RoleStudent Role = "student"
	RoleDriver  Role = "driver"
	RoleAdmin   Role = "admin"
)

// ParseRole normalises user input into a Role. An empty string maps to the
// student role, anything unknown is rejected.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if role == "" {
		return RoleStudent, true
	}
	return role, role.Valid()
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
