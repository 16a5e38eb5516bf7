package user

import (
	"context"
)

// UserRepository is a read-only view over the identity system.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (User, error)
	ListActive(ctx context.Context) ([]User, error)
}
