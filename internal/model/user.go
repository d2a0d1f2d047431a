package model

import (
	"context"
	"time"
)

// UserStore defines persistence operations for users of both identity domains.
type UserStore interface {
	GetByEmail(ctx context.Context, scope Scope, email string) (User, error)
	GetByID(ctx context.Context, scope Scope, id int64) (User, error)
	Create(ctx context.Context, scope Scope, user User) (User, error)
	UpdatePasswordHash(ctx context.Context, scope Scope, id int64, passwordHash string) error
	Exists(ctx context.Context, scope Scope, email string) (bool, error)
}

// User is a service user or an application user. AppID is zero for service users.
type User struct {
	ID           int64
	AppID        int64
	Email        string
	PasswordHash string
	Banned       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Scope returns the scope the user belongs to.
func (u User) Scope() Scope {
	if u.AppID != 0 {
		return AppScope(u.AppID)
	}
	return ServiceScope()
}
