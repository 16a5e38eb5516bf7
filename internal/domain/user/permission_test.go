package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleEmployee, PermissionLeaveCreate))
	assert.False(t, HasPermission(RoleEmployee, PermissionLeaveApprove))
	assert.False(t, HasPermission(RoleEmployee, PermissionBalanceManage))
	assert.True(t, HasPermission(RoleManager, PermissionLeaveApprove))
	assert.True(t, HasPermission(RoleAdmin, PermissionBalanceManage))
	assert.False(t, HasPermission(Role("guest"), PermissionLeaveViewOwn))
}

func TestUser_IsManager(t *testing.T) {
	tests := []struct {
		role   Role
		status Status
		want   bool
		can    bool
	}{
		{RoleEmployee, StatusActive, false, false},
		{RoleManager, StatusActive, true, true},
		{RoleAdmin, StatusActive, true, true},
		{RoleManager, StatusInactive, true, false},
	}
	for _, tt := range tests {
		u := User{Role: tt.role, Status: tt.status}
		assert.Equal(t, tt.want, u.IsManager(), tt.role)
		assert.Equal(t, tt.can, u.CanApprove(), tt.role)
	}
}
