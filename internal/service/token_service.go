package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// DefaultRefreshTTL is the refresh token lifetime when none is configured.
const DefaultRefreshTTL = 7 * 24 * time.Hour

// TokenService provides high-level operations for issuing, refreshing,
// and revoking tokens. It composes the TokenManager and RefreshTokenStore.
type TokenService struct {
	manager    model.TokenManager
	store      model.RefreshTokenStore
	users      model.UserStore
	tx         model.Transactor
	refreshTTL time.Duration
	events     EventRecorder
	logger     *logger.Logger
	now        func() time.Time
}

func NewTokenService(
	manager model.TokenManager,
	store model.RefreshTokenStore,
	users model.UserStore,
	tx model.Transactor,
	refreshTTL time.Duration,
	events EventRecorder,
	logger *logger.Logger,
) *TokenService {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		manager:    manager,
		store:      store,
		users:      users,
		tx:         tx,
		refreshTTL: refreshTTL,
		events:     eventsOrNoop(events),
		logger:     logger,
		now:        time.Now,
	}
}

// Issue mints an access token and a refresh token for user and stores the
// refresh token hash. Banned users get no tokens.
func (s *TokenService) Issue(ctx context.Context, user model.User) (model.TokenPair, error) {
	if user.Banned {
		return model.TokenPair{}, apierrors.NewErrUserBanned()
	}

	scope := user.Scope()
	access, err := s.manager.GenerateAccessToken(ctx, model.Identity{
		Domain: scope.Domain,
		UserID: user.ID,
		AppID:  scope.AppID,
	})
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, refreshHash, err := s.manager.GenerateRefreshToken()
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue refresh: %w", err)
	}

	rt := model.RefreshToken{
		UserID:    user.ID,
		TokenHash: refreshHash,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.store.Create(ctx, scope.Domain, rt); err != nil {
		return model.TokenPair{}, fmt.Errorf("persist refresh: %w", err)
	}

	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// deleted and its successor stored in the same transaction, so a token can
// be used at most once.
func (s *TokenService) Refresh(ctx context.Context, scope model.Scope, presented string) (model.TokenPair, error) {
	tokenHash := s.manager.HashRefreshToken(presented)

	var (
		pair    model.TokenPair
		expired bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		rt, err := s.store.GetByHash(ctx, scope.Domain, tokenHash)
		if errors.Is(err, model.ErrNotFound) {
			return apierrors.NewErrInvalidRefreshToken(err)
		}
		if err != nil {
			return fmt.Errorf("failed to get refresh token: %w", err)
		}

		if rt.Expired(s.now()) {
			expired = true
			return apierrors.NewErrRefreshTokenExpired()
		}

		user, err := s.users.GetByID(ctx, scope, rt.UserID)
		if errors.Is(err, model.ErrNotFound) {
			return apierrors.NewErrInvalidRefreshToken(fmt.Errorf("owner is not in scope %s: %w", scope, err))
		}
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user.Banned {
			return apierrors.NewErrUserBanned()
		}

		err = s.store.DeleteByHash(ctx, scope.Domain, tokenHash)
		if errors.Is(err, model.ErrNotFound) {
			// consumed by a concurrent refresh
			return apierrors.NewErrInvalidRefreshToken(err)
		}
		if err != nil {
			return fmt.Errorf("revoke old refresh: %w", err)
		}

		pair, err = s.Issue(ctx, user)
		return err
	})
	s.events.RecordAuthEvent(scope.Domain, EventRefresh, outcome(err))

	if expired {
		if delErr := s.store.DeleteByHash(ctx, scope.Domain, tokenHash); delErr != nil && !errors.Is(delErr, model.ErrNotFound) {
			s.logger.Warn("Token service: failed to delete expired refresh token",
				"scope", scope.String(),
				"error", delErr.Error())
		}
	}
	if err != nil {
		s.logger.Info("Token service: refresh rejected",
			"scope", scope.String(),
			"error", err.Error())
		return model.TokenPair{}, err
	}

	return pair, nil
}

// Revoke deletes a refresh token. Unknown tokens are ignored so logout is
// idempotent.
func (s *TokenService) Revoke(ctx context.Context, scope model.Scope, presented string) error {
	err := s.store.DeleteByHash(ctx, scope.Domain, s.manager.HashRefreshToken(presented))
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("revoke refresh: %w", err)
	}
	return nil
}

// RevokeAllForUser deletes every refresh token of a user.
func (s *TokenService) RevokeAllForUser(ctx context.Context, domain model.Domain, userID int64) error {
	if err := s.store.DeleteAllByUser(ctx, domain, userID); err != nil {
		return fmt.Errorf("revoke all refresh: %w", err)
	}
	return nil
}

// Verify checks an access token of the given domain and returns its subject.
func (s *TokenService) Verify(ctx context.Context, token string, domain model.Domain) (model.Identity, error) {
	identity, err := s.manager.ParseAccessToken(ctx, token, domain)
	if errors.Is(err, model.ErrTokenInvalid) {
		return model.Identity{}, apierrors.NewErrInvalidAuthorizationToken(err)
	}
	if err != nil {
		s.logger.Error("Token service: failed to verify access token",
			"domain", domain,
			"error", err.Error())
		return model.Identity{}, apierrors.NewErrInternalServerError(err)
	}
	return identity, nil
}
