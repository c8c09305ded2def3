package user

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleJobseeker Role = "jobseeker"
	RoleEmployer  Role = "employer"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
}

func (r Role) Valid() bool {
	return r == RoleJobseeker || r == RoleEmployer
}

type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Upsert creates the user or, when the email exists, replaces its password, name and role.
	Upsert(ctx context.Context, u *User) error
}
