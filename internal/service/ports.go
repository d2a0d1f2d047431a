package service

import (
	"context"

	"github.com/dtroode/appauth-server/internal/model"
)

// PasswordHasher hashes and verifies passwords and recovery answers.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
}

// SecretSealer generates a fresh tenant signing secret in sealed form.
type SecretSealer interface {
	NewSealedSecret() (string, error)
}

// EventRecorder counts authentication events by outcome.
type EventRecorder interface {
	RecordAuthEvent(domain model.Domain, event, outcome string)
}

// Event names and outcomes passed to EventRecorder.
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventRefresh        = "refresh"
	EventPasswordChange = "password_change"
	EventRecoveryReset  = "recovery_reset"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type noopEvents struct{}

func (noopEvents) RecordAuthEvent(model.Domain, string, string) {}

func eventsOrNoop(events EventRecorder) EventRecorder {
	if events == nil {
		return noopEvents{}
	}
	return events
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
