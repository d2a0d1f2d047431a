package model

import "errors"

var (
	// ErrNotFound is returned by stores when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by stores when a uniqueness constraint is violated.
	ErrConflict = errors.New("conflict")

	ErrTokenExpired = errors.New("refresh token expired")
	ErrTokenInvalid = errors.New("token is invalid")
)
