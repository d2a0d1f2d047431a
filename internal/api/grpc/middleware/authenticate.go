package middleware

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// Request metadata naming the identity domain of the bearer token and,
// optionally, the application the caller expects to act in.
const (
	DomainMetadataKey = "x-domain"
	AppIDMetadataKey  = "x-app-id"
)

// TokenVerifier validates access tokens of one identity domain.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, domain model.Domain) (model.Identity, error)
}

// Authenticate validates bearer tokens and injects the identity into context.
type Authenticate struct {
	verifier       TokenVerifier
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(verifier TokenVerifier, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{verifier: verifier, contextManager: contextManager, logger: logger}
}

// AuthFunc parses the authorization metadata, validates the token in the
// requested domain (application users by default) and returns a context
// carrying the identity.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)

	tokenString := strings.TrimSpace(strings.TrimPrefix(firstValue(md, "authorization"), "Bearer "))
	if tokenString == "" {
		return nil, apierrors.NewErrMissingAuthorizationToken()
	}

	domain := model.DomainApp
	if raw := firstValue(md, DomainMetadataKey); raw != "" {
		domain = model.Domain(raw)
		if domain != model.DomainApp && domain != model.DomainService {
			return nil, apierrors.NewErrBadRequest("unknown identity domain")
		}
	}

	identity, err := m.verifier.Verify(ctx, tokenString, domain)
	if err != nil {
		m.logger.Debug("Authenticate: token rejected",
			"domain", domain,
			"error", err.Error())
		return nil, apierrors.As(err)
	}

	if raw := firstValue(md, AppIDMetadataKey); raw != "" && domain == model.DomainApp {
		appID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apierrors.NewErrBadRequest("invalid application id")
		}
		if appID != identity.AppID {
			m.logger.Warn("Authenticate: tenant mismatch",
				"token_app_id", identity.AppID,
				"requested_app_id", appID,
				"user_id", identity.UserID)
			return nil, apierrors.NewErrTenantMismatch()
		}
	}

	noteIdentity(ctx, identity)
	return m.contextManager.SetIdentityToContext(ctx, identity), nil
}

func firstValue(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
