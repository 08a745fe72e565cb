package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"campus_bus/internal/models"
)

func TestCheck(t *testing.T) {
	student := Identity{UserID: 1, Role: models.RoleStudent, Authenticated: true}
	driver := Identity{UserID: 2, Role: models.RoleDriver, Authenticated: true}
	superuser := Identity{UserID: 3, Role: models.RoleStudent, IsSuperuser: true, Authenticated: true}
	roleless := Identity{UserID: 4, Authenticated: true}

	tests := []struct {
		name     string
		id       Identity
		required models.Role
		want     Decision
	}{
		{"anonymous student page", Anonymous(), models.RoleStudent, Decision{Reason: ReasonLoginRequired}},
		{"anonymous admin page", Anonymous(), models.RoleAdmin, Decision{Reason: ReasonLoginRequired}},
		{"anonymous superuser flag ignored", Identity{IsSuperuser: true}, models.RoleAdmin, Decision{Reason: ReasonLoginRequired}},
		{"student on student page", student, models.RoleStudent, Decision{Allowed: true}},
		{"student on driver page", student, models.RoleDriver, Decision{Reason: ReasonRoleMismatch}},
		{"driver on driver page", driver, models.RoleDriver, Decision{Allowed: true}},
		{"driver on admin page", driver, models.RoleAdmin, Decision{Reason: ReasonRoleMismatch}},
		{"superuser on admin page", superuser, models.RoleAdmin, Decision{Allowed: true}},
		{"superuser on driver page", superuser, models.RoleDriver, Decision{Reason: ReasonRoleMismatch}},
		{"no role", roleless, models.RoleStudent, Decision{Reason: ReasonNoRole}},
		{"no role superuser admin", Identity{IsSuperuser: true, Authenticated: true}, models.RoleAdmin, Decision{Allowed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.id, tt.required))
		})
	}
}
