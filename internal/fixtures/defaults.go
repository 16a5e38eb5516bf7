package fixtures

import (
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
)

// DefaultAllowances returns the yearly day allotment per leave type used when
// no LEAVE_ALLOWANCES are configured.
func DefaultAllowances() map[string]float64 {
	return map[string]float64{
		"annual":      12,
		"sick":        14,
		"marriage":    3,
		"maternity":   90,
		"paternity":   2,
		"bereavement": 2,
	}
}

// DemoUsers returns the accounts seeded into the in-memory store so the API
// can be exercised without an identity provider.
func DemoUsers(now time.Time) []user.User {
	seed := func(id, name string, role user.Role, status user.Status) user.User {
		return user.User{
			ID:        id,
			Name:      name,
			Email:     id + "@example.com",
			Role:      role,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	return []user.User{
		seed("admin", "HR Administrator", user.RoleAdmin, user.StatusActive),
		seed("manager", "Team Manager", user.RoleManager, user.StatusActive),
		seed("alice", "Alice Employee", user.RoleEmployee, user.StatusActive),
		seed("bob", "Bob Employee", user.RoleEmployee, user.StatusActive),
		// Deactivated accounts cannot submit.
		seed("carol", "Carol Former", user.RoleEmployee, user.StatusInactive),
	}
}
