package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
	"github.com/dtroode/appauth-server/internal/password"
)

// Recovery manages security questions and answer based password resets.
type Recovery struct {
	users      model.UserStore
	recoveries model.RecoveryStore
	hasher     PasswordHasher
	tokens     *TokenService
	tx         model.Transactor
	events     EventRecorder
	logger     *logger.Logger
}

func NewRecovery(
	users model.UserStore,
	recoveries model.RecoveryStore,
	hasher PasswordHasher,
	tokens *TokenService,
	tx model.Transactor,
	events EventRecorder,
	logger *logger.Logger,
) *Recovery {
	return &Recovery{
		users:      users,
		recoveries: recoveries,
		hasher:     hasher,
		tokens:     tokens,
		tx:         tx,
		events:     eventsOrNoop(events),
		logger:     logger,
	}
}

// Add stores a new question for userID with a hashed answer.
func (r *Recovery) Add(ctx context.Context, scope model.Scope, userID int64, question, answer string) (model.RecoveryQuestion, error) {
	question = strings.TrimSpace(question)
	if question == "" || answer == "" {
		return model.RecoveryQuestion{}, apierrors.NewErrBadRequest("question and answer are required")
	}

	if _, err := r.getUser(ctx, scope, userID); err != nil {
		return model.RecoveryQuestion{}, err
	}

	answerHash, err := hashSecret(ctx, r.hasher, answer, apierrors.NewErrAnswerTooLong)
	if err != nil {
		return model.RecoveryQuestion{}, err
	}

	rec, err := r.recoveries.Create(ctx, scope.Domain, model.Recovery{
		UserID:     userID,
		Question:   question,
		AnswerHash: answerHash,
	})
	if err != nil {
		r.logger.Error("Recovery service: failed to create recovery",
			"scope", scope.String(),
			"user_id", userID,
			"error", err.Error())
		return model.RecoveryQuestion{}, fmt.Errorf("failed to create recovery: %w", err)
	}

	r.logger.Info("Recovery service: recovery added",
		"scope", scope.String(),
		"user_id", userID,
		"recovery_id", rec.ID)

	return model.RecoveryQuestion{ID: rec.ID, Question: rec.Question}, nil
}

// List returns the questions of userID without their answers.
func (r *Recovery) List(ctx context.Context, scope model.Scope, userID int64) ([]model.RecoveryQuestion, error) {
	list, err := r.recoveries.ListByUser(ctx, scope.Domain, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recoveries: %w", err)
	}
	return questions(list), nil
}

// Ask returns the questions registered for email. Service users with an
// unknown email get an empty list; application users get NotFound.
func (r *Recovery) Ask(ctx context.Context, scope model.Scope, email string) ([]model.RecoveryQuestion, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := r.users.GetByEmail(ctx, scope, email)
	if errors.Is(err, model.ErrNotFound) {
		if scope.IsApp() {
			return nil, apierrors.NewErrUserNotFound()
		}
		return []model.RecoveryQuestion{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return r.List(ctx, scope, user.ID)
}

// Reset sets a new password for the owner of recoveryID when answer matches.
// Every refresh token of the user is revoked with the password update.
func (r *Recovery) Reset(ctx context.Context, scope model.Scope, recoveryID int64, email, answer, newPassword string) (err error) {
	defer func() { r.events.RecordAuthEvent(scope.Domain, EventRecoveryReset, outcome(err)) }()

	if newPassword == "" {
		return apierrors.NewErrBadRequest("new password is required")
	}
	if len(newPassword) > password.MaxLength {
		return apierrors.NewErrPasswordTooLong(password.MaxLength)
	}
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := r.users.GetByEmail(ctx, scope, email)
	if errors.Is(err, model.ErrNotFound) {
		equalizeVerify(ctx, r.hasher, answer)
		return apierrors.NewErrInvalidCredentials(fmt.Errorf("user %s: %w", email, err))
	}
	if err != nil {
		return fmt.Errorf("failed to get user by email: %w", err)
	}

	rec, err := r.recoveries.GetByID(ctx, scope.Domain, recoveryID)
	if errors.Is(err, model.ErrNotFound) {
		return apierrors.NewErrInvalidCredentials(fmt.Errorf("recovery %d: %w", recoveryID, err))
	}
	if err != nil {
		return fmt.Errorf("failed to get recovery: %w", err)
	}

	if rec.UserID != user.ID {
		r.logger.Warn("Recovery service: recovery used by another user",
			"scope", scope.String(),
			"user_id", user.ID,
			"recovery_id", recoveryID)
		return apierrors.NewErrRecoveryNotOwned()
	}

	ok, err := verifySecret(ctx, r.hasher, answer, rec.AnswerHash)
	if err != nil {
		return fmt.Errorf("failed to verify answer: %w", err)
	}
	if !ok {
		return apierrors.NewErrInvalidCredentials(errors.New("answer mismatch"))
	}

	passwordHash, err := hashSecret(ctx, r.hasher, newPassword, apierrors.NewErrPasswordTooLong)
	if err != nil {
		return err
	}

	if err := replacePassword(ctx, r.tx, r.users, r.tokens, scope, user.ID, passwordHash); err != nil {
		r.logger.Error("Recovery service: failed to reset password",
			"scope", scope.String(),
			"user_id", user.ID,
			"error", err.Error())
		return err
	}

	r.logger.Info("Recovery service: password reset",
		"scope", scope.String(),
		"user_id", user.ID)

	return nil
}

// Update changes the question and/or answer of a recovery owned by userID.
// The caller must present the current account password.
func (r *Recovery) Update(ctx context.Context, scope model.Scope, userID, recoveryID int64, currentPassword, question, answer string) error {
	question = strings.TrimSpace(question)
	if question == "" && answer == "" {
		return apierrors.NewErrNothingToUpdate()
	}

	rec, err := r.authorize(ctx, scope, userID, recoveryID, currentPassword)
	if err != nil {
		return err
	}

	if question != "" {
		rec.Question = question
	}
	if answer != "" {
		rec.AnswerHash, err = hashSecret(ctx, r.hasher, answer, apierrors.NewErrAnswerTooLong)
		if err != nil {
			return err
		}
	}

	if err := r.recoveries.Update(ctx, scope.Domain, rec); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apierrors.NewErrRecoveryNotFound()
		}
		return fmt.Errorf("failed to update recovery: %w", err)
	}

	r.logger.Info("Recovery service: recovery updated",
		"scope", scope.String(),
		"user_id", userID,
		"recovery_id", recoveryID)

	return nil
}

// Remove deletes a recovery owned by userID after checking the current
// account password.
func (r *Recovery) Remove(ctx context.Context, scope model.Scope, userID, recoveryID int64, currentPassword string) error {
	if _, err := r.authorize(ctx, scope, userID, recoveryID, currentPassword); err != nil {
		return err
	}

	if err := r.recoveries.Delete(ctx, scope.Domain, recoveryID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apierrors.NewErrRecoveryNotFound()
		}
		return fmt.Errorf("failed to delete recovery: %w", err)
	}

	r.logger.Info("Recovery service: recovery removed",
		"scope", scope.String(),
		"user_id", userID,
		"recovery_id", recoveryID)

	return nil
}

// authorize checks the current password of userID and that it owns recoveryID.
func (r *Recovery) authorize(ctx context.Context, scope model.Scope, userID, recoveryID int64, currentPassword string) (model.Recovery, error) {
	user, err := r.getUser(ctx, scope, userID)
	if err != nil {
		return model.Recovery{}, err
	}

	ok, err := verifySecret(ctx, r.hasher, currentPassword, user.PasswordHash)
	if err != nil {
		return model.Recovery{}, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return model.Recovery{}, apierrors.NewErrInvalidCredentials(errors.New("current password mismatch"))
	}

	rec, err := r.recoveries.GetByID(ctx, scope.Domain, recoveryID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Recovery{}, apierrors.NewErrRecoveryNotFound()
	}
	if err != nil {
		return model.Recovery{}, fmt.Errorf("failed to get recovery: %w", err)
	}
	if rec.UserID != user.ID {
		return model.Recovery{}, apierrors.NewErrRecoveryNotOwned()
	}

	return rec, nil
}

func (r *Recovery) getUser(ctx context.Context, scope model.Scope, userID int64) (model.User, error) {
	user, err := r.users.GetByID(ctx, scope, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, apierrors.NewErrUserNotFound()
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func questions(list []model.Recovery) []model.RecoveryQuestion {
	out := make([]model.RecoveryQuestion, 0, len(list))
	for _, rec := range list {
		out = append(out, model.RecoveryQuestion{ID: rec.ID, Question: rec.Question})
	}
	return out
}
