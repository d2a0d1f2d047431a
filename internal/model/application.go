package model

import (
	"context"
	"time"
)

// ApplicationStore defines persistence operations for tenants.
type ApplicationStore interface {
	GetByID(ctx context.Context, id int64) (Application, error)
	Create(ctx context.Context, app Application) (Application, error)
	UpdateSecret(ctx context.Context, id int64, encryptedSecret string) error
}

// Application is a tenant owned by a service user.
type Application struct {
	ID              int64
	OwnerID         int64
	Name            string
	Description     string
	EncryptedSecret string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
