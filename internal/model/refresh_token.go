package model

import (
	"context"
	"time"
)

// RefreshTokenStore persists refresh token hashes of one identity domain.
type RefreshTokenStore interface {
	Create(ctx context.Context, domain Domain, token RefreshToken) error
	GetByHash(ctx context.Context, domain Domain, tokenHash string) (RefreshToken, error)
	DeleteByHash(ctx context.Context, domain Domain, tokenHash string) error
	DeleteAllByUser(ctx context.Context, domain Domain, userID int64) error
	DeleteAllByApp(ctx context.Context, appID int64) error
}

// RefreshToken is the stored form of an opaque refresh token. The raw
// token is never persisted.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer usable at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
