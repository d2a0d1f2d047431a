package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// DefaultMinPasswordLength is used when no minimum is configured.
const DefaultMinPasswordLength = 12

// Auth registers users, logs them in and changes their passwords. All
// operations take the scope of the identity domain they act on.
type Auth struct {
	users             model.UserStore
	apps              model.ApplicationStore
	hasher            PasswordHasher
	tokens            *TokenService
	tx                model.Transactor
	minPasswordLength int
	events            EventRecorder
	logger            *logger.Logger
}

func NewAuth(
	users model.UserStore,
	apps model.ApplicationStore,
	hasher PasswordHasher,
	tokens *TokenService,
	tx model.Transactor,
	minPasswordLength int,
	events EventRecorder,
	logger *logger.Logger,
) *Auth {
	if minPasswordLength <= 0 {
		minPasswordLength = DefaultMinPasswordLength
	}
	return &Auth{
		users:             users,
		apps:              apps,
		hasher:            hasher,
		tokens:            tokens,
		tx:                tx,
		minPasswordLength: minPasswordLength,
		events:            eventsOrNoop(events),
		logger:            logger,
	}
}

func (a *Auth) Register(ctx context.Context, scope model.Scope, email, password string) (pair model.TokenPair, err error) {
	defer func() { a.events.RecordAuthEvent(scope.Domain, EventRegister, outcome(err)) }()

	a.logger.Debug("Auth service: starting user registration",
		"scope", scope.String(),
		"email", email)

	email, err = normalizeEmail(email)
	if err != nil {
		return model.TokenPair{}, err
	}
	if err := checkPasswordLength(password, a.minPasswordLength); err != nil {
		return model.TokenPair{}, err
	}

	if scope.IsApp() {
		if _, err := a.apps.GetByID(ctx, scope.AppID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.TokenPair{}, apierrors.NewErrApplicationNotFound(scope.AppID)
			}
			return model.TokenPair{}, fmt.Errorf("failed to get application: %w", err)
		}
	}

	exists, err := a.users.Exists(ctx, scope, email)
	if err != nil {
		a.logger.Error("Auth service: failed to check user existence",
			"scope", scope.String(),
			"email", email,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		a.logger.Info("Auth service: user already exists",
			"scope", scope.String(),
			"email", email)
		return model.TokenPair{}, apierrors.NewErrEmailIsTaken(email)
	}

	passwordHash, err := hashSecret(ctx, a.hasher, password, apierrors.NewErrPasswordTooLong)
	if err != nil {
		return model.TokenPair{}, err
	}

	err = a.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := a.users.Create(ctx, scope, model.User{Email: email, PasswordHash: passwordHash})
		if errors.Is(err, model.ErrConflict) {
			return apierrors.NewErrEmailIsTaken(email)
		}
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		pair, err = a.tokens.Issue(ctx, user)
		return err
	})
	if err != nil {
		a.logger.Error("Auth service: failed to register user",
			"scope", scope.String(),
			"email", email,
			"error", err.Error())
		return model.TokenPair{}, err
	}

	a.logger.Info("Auth service: user registered",
		"scope", scope.String(),
		"email", email)

	return pair, nil
}

func (a *Auth) Login(ctx context.Context, scope model.Scope, email, password string) (pair model.TokenPair, err error) {
	defer func() { a.events.RecordAuthEvent(scope.Domain, EventLogin, outcome(err)) }()

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := a.users.GetByEmail(ctx, scope, email)
	if errors.Is(err, model.ErrNotFound) {
		a.logger.Info("Auth service: login for unknown user",
			"scope", scope.String(),
			"email", email)
		equalizeVerify(ctx, a.hasher, password)
		return model.TokenPair{}, apierrors.NewErrInvalidCredentials(fmt.Errorf("user %s: %w", email, err))
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	ok, err := verifySecret(ctx, a.hasher, password, user.PasswordHash)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		a.logger.Info("Auth service: wrong password",
			"scope", scope.String(),
			"user_id", user.ID)
		return model.TokenPair{}, apierrors.NewErrInvalidCredentials(errors.New("password mismatch"))
	}

	pair, err = a.tokens.Issue(ctx, user)
	if err != nil {
		return model.TokenPair{}, err
	}

	a.logger.Info("Auth service: user logged in",
		"scope", scope.String(),
		"user_id", user.ID)

	return pair, nil
}

// ChangePassword replaces the password of userID after checking the current
// one and logs out every session of the user.
func (a *Auth) ChangePassword(ctx context.Context, scope model.Scope, userID int64, current, next string) (err error) {
	defer func() { a.events.RecordAuthEvent(scope.Domain, EventPasswordChange, outcome(err)) }()

	if current == next {
		return apierrors.NewErrSamePassword()
	}
	if err := checkPasswordLength(next, a.minPasswordLength); err != nil {
		return err
	}

	user, err := a.users.GetByID(ctx, scope, userID)
	if errors.Is(err, model.ErrNotFound) {
		return apierrors.NewErrUserNotFound()
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := verifySecret(ctx, a.hasher, current, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return apierrors.NewErrInvalidCredentials(errors.New("current password mismatch"))
	}

	passwordHash, err := hashSecret(ctx, a.hasher, next, apierrors.NewErrPasswordTooLong)
	if err != nil {
		return err
	}

	err = replacePassword(ctx, a.tx, a.users, a.tokens, scope, user.ID, passwordHash)
	if err != nil {
		a.logger.Error("Auth service: failed to change password",
			"scope", scope.String(),
			"user_id", user.ID,
			"error", err.Error())
		return err
	}

	a.logger.Info("Auth service: password changed",
		"scope", scope.String(),
		"user_id", user.ID)

	return nil
}

// replacePassword stores a new password hash and revokes every refresh
// token of the user in one transaction.
func replacePassword(
	ctx context.Context,
	tx model.Transactor,
	users model.UserStore,
	tokens *TokenService,
	scope model.Scope,
	userID int64,
	passwordHash string,
) error {
	return tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := users.UpdatePasswordHash(ctx, scope, userID, passwordHash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return tokens.RevokeAllForUser(ctx, scope.Domain, userID)
	})
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apierrors.NewErrBadRequest("invalid email")
	}
	return email, nil
}
