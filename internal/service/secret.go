package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/password"
)

// unknownAccountHash is a bcrypt hash checked against when no account matches
// the presented email, so that the lookup costs as much as a wrong password.
const unknownAccountHash = "$2a$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga"

// hashSecret hashes a password or recovery answer. Plaintexts bcrypt cannot
// take come back as the BadRequest built by tooLong.
func hashSecret(ctx context.Context, hasher PasswordHasher, plaintext string, tooLong func(int) *apierrors.APIError) (string, error) {
	hash, err := hasher.Hash(ctx, plaintext)
	if errors.Is(err, password.ErrTooLong) {
		return "", tooLong(password.MaxLength)
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return hash, nil
}

// verifySecret reports whether plaintext matches hash. A plaintext too long
// to have been hashed is a mismatch.
func verifySecret(ctx context.Context, hasher PasswordHasher, plaintext, hash string) (bool, error) {
	ok, err := hasher.Verify(ctx, plaintext, hash)
	if errors.Is(err, password.ErrTooLong) {
		return false, nil
	}
	return ok, err
}

func equalizeVerify(ctx context.Context, hasher PasswordHasher, plaintext string) {
	_, _ = hasher.Verify(ctx, plaintext, unknownAccountHash)
}

func checkPasswordLength(plaintext string, minLength int) error {
	if len([]rune(plaintext)) < minLength {
		return apierrors.NewErrPasswordTooShort(minLength)
	}
	if len(plaintext) > password.MaxLength {
		return apierrors.NewErrPasswordTooLong(password.MaxLength)
	}
	return nil
}
