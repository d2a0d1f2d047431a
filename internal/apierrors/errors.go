// Package apierrors defines the error taxonomy surfaced to callers of the
// authentication core and its mapping onto HTTP and gRPC status codes.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies an APIError.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// APIError is an error safe to show to clients. Message is the public text;
// Err keeps the precise cause for logs and errors.Is checks.
type APIError struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an APIError of the given kind.
func New(kind Kind, message string, cause error) *APIError {
	return &APIError{Kind: kind, Message: message, Err: cause}
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind onto an HTTP status code.
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps the error kind onto a gRPC status code.
func (e *APIError) GRPCCode() codes.Code {
	switch e.Kind {
	case KindNotFound:
		return codes.NotFound
	case KindUnauthorized:
		return codes.Unauthenticated
	case KindForbidden:
		return codes.PermissionDenied
	case KindConflict:
		return codes.AlreadyExists
	case KindBadRequest:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// GRPCStatus lets status.FromError and status.Code recognise APIErrors. The
// cause is not sent to clients.
func (e *APIError) GRPCStatus() *status.Status {
	return status.New(e.GRPCCode(), e.Message)
}

// As extracts an APIError from err. Errors that carry none are reported as
// internal server errors wrapping err.
func As(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewErrInternalServerError(err)
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func NewErrInternalServerError(err error) *APIError {
	return New(KindInternal, "internal server error", err)
}

func NewErrBadRequest(message string) *APIError {
	return New(KindBadRequest, message, nil)
}

// NewErrInvalidCredentials hides whether the email or the password was wrong.
func NewErrInvalidCredentials(cause error) *APIError {
	return New(KindUnauthorized, "invalid credentials", cause)
}

func NewErrEmailIsTaken(email string) *APIError {
	return New(KindConflict, fmt.Sprintf("email %s is already registered", email), nil)
}

func NewErrNameIsTaken(name string) *APIError {
	return New(KindConflict, fmt.Sprintf("name %s is already taken", name), nil)
}

func NewErrUserNotFound() *APIError {
	return New(KindNotFound, "user not found", nil)
}

func NewErrApplicationNotFound(appID int64) *APIError {
	return New(KindNotFound, fmt.Sprintf("application %d not found", appID), nil)
}

func NewErrRoleNotFound() *APIError {
	return New(KindNotFound, "role not found", nil)
}

func NewErrRecoveryNotFound() *APIError {
	return New(KindNotFound, "recovery not found", nil)
}

func NewErrRecoveryNotOwned() *APIError {
	return New(KindForbidden, "recovery does not belong to the user", nil)
}

func NewErrApplicationNotOwned() *APIError {
	return New(KindForbidden, "application does not belong to the user", nil)
}

func NewErrUserBanned() *APIError {
	return New(KindForbidden, "user is banned", nil)
}

func NewErrInvalidRefreshToken(cause error) *APIError {
	return New(KindUnauthorized, "invalid refresh token", cause)
}

func NewErrRefreshTokenExpired() *APIError {
	return New(KindUnauthorized, "refresh token expired", nil)
}

func NewErrMissingAuthorizationToken() *APIError {
	return New(KindUnauthorized, "missing authorization token", nil)
}

func NewErrInvalidAuthorizationToken(cause error) *APIError {
	return New(KindUnauthorized, "invalid authorization token", cause)
}

func NewErrTenantMismatch() *APIError {
	return New(KindForbidden, "token was issued for another application", nil)
}

func NewErrInsufficientPermissions(missing []string) *APIError {
	return New(KindForbidden, "insufficient permissions",
		fmt.Errorf("missing permissions: %s", strings.Join(missing, ", ")))
}

func NewErrSamePassword() *APIError {
	return New(KindBadRequest, "new password must differ from the current one", nil)
}

func NewErrNothingToUpdate() *APIError {
	return New(KindBadRequest, "nothing to update", nil)
}

func NewErrPasswordTooShort(minLength int) *APIError {
	return New(KindBadRequest, fmt.Sprintf("password must be at least %d characters", minLength), nil)
}

func NewErrPasswordTooLong(maxLength int) *APIError {
	return New(KindBadRequest, fmt.Sprintf("password must be at most %d bytes", maxLength), nil)
}

func NewErrAnswerTooLong(maxLength int) *APIError {
	return New(KindBadRequest, fmt.Sprintf("answer must be at most %d bytes", maxLength), nil)
}
