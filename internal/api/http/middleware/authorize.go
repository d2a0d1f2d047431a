package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/appauth-server/internal/authz"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

const principalKey = "principal"

// Guard decides whether an identity holds the required permissions.
type Guard interface {
	CanActivate(ctx context.Context, required []string, identity *model.Identity) (authz.Principal, error)
}

// DecisionRecorder counts guard decisions per transport.
type DecisionRecorder interface {
	RecordGuardDecision(transport string, allowed bool)
}

// Authorize runs the permission guard in front of handlers.
type Authorize struct {
	guard    Guard
	recorder DecisionRecorder
	logger   *logger.Logger
}

// NewAuthorize creates a new Authorize middleware. recorder may be nil.
func NewAuthorize(guard Guard, recorder DecisionRecorder, logger *logger.Logger) *Authorize {
	return &Authorize{guard: guard, recorder: recorder, logger: logger}
}

// RequirePermissions lets the request through only when the authenticated
// user holds every listed permission. With no permissions it still requires
// an authenticated user that resolves.
func (m *Authorize) RequirePermissions(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var identity *model.Identity
		if id, ok := IdentityFromContext(c); ok {
			identity = &id
		}

		principal, err := m.guard.CanActivate(c.Request.Context(), permissions, identity)
		if m.recorder != nil {
			m.recorder.RecordGuardDecision("http", err == nil)
		}
		if err != nil {
			AbortWithError(c, m.logger, err)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFromContext returns the principal resolved by RequirePermissions.
func PrincipalFromContext(c *gin.Context) (authz.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return authz.Principal{}, false
	}
	principal, ok := value.(authz.Principal)
	return principal, ok
}
