package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// Applications creates tenants and rotates their signing secrets.
type Applications struct {
	apps   model.ApplicationStore
	tokens model.RefreshTokenStore
	sealer SecretSealer
	tx     model.Transactor
	logger *logger.Logger
}

func NewApplications(
	apps model.ApplicationStore,
	tokens model.RefreshTokenStore,
	sealer SecretSealer,
	tx model.Transactor,
	logger *logger.Logger,
) *Applications {
	return &Applications{apps: apps, tokens: tokens, sealer: sealer, tx: tx, logger: logger}
}

// Create stores a new application of ownerID with a freshly sealed secret.
func (s *Applications) Create(ctx context.Context, ownerID int64, name, description string) (model.Application, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Application{}, apierrors.NewErrBadRequest("name is required")
	}

	sealed, err := s.sealer.NewSealedSecret()
	if err != nil {
		return model.Application{}, fmt.Errorf("failed to generate secret: %w", err)
	}

	app, err := s.apps.Create(ctx, model.Application{
		OwnerID:         ownerID,
		Name:            name,
		Description:     strings.TrimSpace(description),
		EncryptedSecret: sealed,
	})
	if errors.Is(err, model.ErrConflict) {
		return model.Application{}, apierrors.NewErrNameIsTaken(name)
	}
	if err != nil {
		s.logger.Error("Applications service: failed to create application",
			"owner_id", ownerID,
			"error", err.Error())
		return model.Application{}, fmt.Errorf("failed to create application: %w", err)
	}

	s.logger.Info("Applications service: application created",
		"owner_id", ownerID,
		"app_id", app.ID)

	return app, nil
}

// RegenerateSecret replaces the secret of appID. Tokens signed with the old
// secret stop verifying at once and all refresh tokens of the application's
// users are deleted in the same transaction.
func (s *Applications) RegenerateSecret(ctx context.Context, ownerID, appID int64) error {
	app, err := s.apps.GetByID(ctx, appID)
	if errors.Is(err, model.ErrNotFound) {
		return apierrors.NewErrApplicationNotFound(appID)
	}
	if err != nil {
		return fmt.Errorf("failed to get application: %w", err)
	}
	if app.OwnerID != ownerID {
		return apierrors.NewErrApplicationNotOwned()
	}

	sealed, err := s.sealer.NewSealedSecret()
	if err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.apps.UpdateSecret(ctx, appID, sealed); err != nil {
			return fmt.Errorf("failed to update secret: %w", err)
		}
		if err := s.tokens.DeleteAllByApp(ctx, appID); err != nil {
			return fmt.Errorf("failed to revoke refresh tokens: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Applications service: failed to regenerate secret",
			"app_id", appID,
			"error", err.Error())
		return err
	}

	s.logger.Info("Applications service: secret regenerated",
		"owner_id", ownerID,
		"app_id", appID)

	return nil
}
