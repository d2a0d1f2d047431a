package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

const identityKey = "identity"

// TokenVerifier validates bearer tokens of one identity domain.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, domain model.Domain) (model.Identity, error)
}

// Authenticate validates bearer tokens and stores the identity on the request.
type Authenticate struct {
	verifier TokenVerifier
	logger   *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(verifier TokenVerifier, logger *logger.Logger) *Authenticate {
	return &Authenticate{verifier: verifier, logger: logger}
}

// Require accepts only access tokens of domain. On routes carrying an :appId
// path parameter, application tokens must have been issued for that
// application.
func (m *Authenticate) Require(domain model.Domain) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, m.logger, apierrors.NewErrMissingAuthorizationToken())
			return
		}

		identity, err := m.verifier.Verify(c.Request.Context(), tokenString, domain)
		if err != nil {
			AbortWithError(c, m.logger, err)
			return
		}

		if domain == model.DomainApp {
			if raw := c.Param("appId"); raw != "" {
				appID, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					AbortWithError(c, m.logger, apierrors.NewErrBadRequest("invalid application id"))
					return
				}
				if appID != identity.AppID {
					m.logger.Warn("Authenticate: tenant mismatch",
						"token_app_id", identity.AppID,
						"path_app_id", appID,
						"user_id", identity.UserID)
					AbortWithError(c, m.logger, apierrors.NewErrTenantMismatch())
					return
				}
			}
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFromContext returns the identity set by Authenticate.
func IdentityFromContext(c *gin.Context) (model.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	identity, ok := value.(model.Identity)
	return identity, ok
}

func bearerToken(header string) (string, bool) {
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
