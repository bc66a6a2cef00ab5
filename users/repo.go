package users

import "context"

// UserRepo returns errors.ErrNotFound for unknown users.
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	SetStatus(ctx context.Context, id string, status Status) error
}
