package user

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"    // HR administrator - full access
	RoleManager  Role = "manager"  // Can approve leave
	RoleEmployee Role = "employee" // Regular employee
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending" // Still in onboarding
)

// User is the leave-relevant view of an account owned by the identity system.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin checks if user is an HR administrator
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsManager checks if user is manager or admin
func (u *User) IsManager() bool {
	return u.Role == RoleManager || u.IsAdmin()
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

func (u *User) IsInactive() bool {
	return u.Status == StatusInactive
}

// CanApprove checks if user can approve requests
func (u *User) CanApprove() bool {
	return u.IsManager() && !u.IsInactive()
}
