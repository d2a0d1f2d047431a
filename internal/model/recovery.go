package model

import (
	"context"
	"time"
)

// RecoveryStore persists security questions of one identity domain.
type RecoveryStore interface {
	Create(ctx context.Context, domain Domain, recovery Recovery) (Recovery, error)
	GetByID(ctx context.Context, domain Domain, id int64) (Recovery, error)
	ListByUser(ctx context.Context, domain Domain, userID int64) ([]Recovery, error)
	Update(ctx context.Context, domain Domain, recovery Recovery) error
	Delete(ctx context.Context, domain Domain, id int64) error
}

// Recovery is a security question with the hash of its answer.
type Recovery struct {
	ID         int64
	UserID     int64
	Question   string
	AnswerHash string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RecoveryQuestion is the public projection of a Recovery.
type RecoveryQuestion struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
}
