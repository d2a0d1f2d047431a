package context

import (
	"context"
	"strconv"

	"google.golang.org/grpc/metadata"

	"github.com/dtroode/appauth-server/internal/model"
)

// Metadata keys holding the authenticated identity in the incoming gRPC context.
const (
	domainKey string = "x-auth-domain"
	userIDKey string = "x-auth-user-id"
	appIDKey  string = "x-auth-app-id"
)

// Manager stores the identity established by the authenticate interceptor in
// incoming metadata, overwriting anything the client sent under the same keys.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetIdentityToContext returns ctx with identity in its incoming metadata.
func (m *Manager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	} else {
		md = md.Copy()
	}

	md.Set(domainKey, string(identity.Domain))
	md.Set(userIDKey, strconv.FormatInt(identity.UserID, 10))
	md.Set(appIDKey, strconv.FormatInt(identity.AppID, 10))

	return metadata.NewIncomingContext(ctx, md)
}

// GetIdentityFromContext reads the identity set by SetIdentityToContext.
func (m *Manager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return model.Identity{}, false
	}

	domain := model.Domain(first(md, domainKey))
	if domain != model.DomainService && domain != model.DomainApp {
		return model.Identity{}, false
	}

	userID, err := strconv.ParseInt(first(md, userIDKey), 10, 64)
	if err != nil || userID <= 0 {
		return model.Identity{}, false
	}

	appID, err := strconv.ParseInt(first(md, appIDKey), 10, 64)
	if err != nil {
		return model.Identity{}, false
	}
	if domain == model.DomainApp && appID <= 0 {
		return model.Identity{}, false
	}

	return model.Identity{Domain: domain, UserID: userID, AppID: appID}, true
}

func first(md metadata.MD, key string) string {
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
