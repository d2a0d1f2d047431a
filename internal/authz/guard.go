package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// Principal is an authenticated user re-resolved with roles and permissions.
type Principal struct {
	Identity    model.Identity
	User        model.User
	Roles       []model.Role
	Permissions PermissionSet
}

// Guard enforces required permissions for an authenticated identity.
type Guard struct {
	users  model.UserStore
	roles  model.RoleStore
	logger *logger.Logger
}

// NewGuard creates a Guard.
func NewGuard(users model.UserStore, roles model.RoleStore, logger *logger.Logger) *Guard {
	return &Guard{users: users, roles: roles, logger: logger}
}

// CanActivate re-resolves identity and checks that it holds every permission
// in required. It fails with Unauthorized when identity is nil or the user no
// longer resolves (deleted or banned since the token was issued) and with
// Forbidden when a permission is missing.
func (g *Guard) CanActivate(ctx context.Context, required []string, identity *model.Identity) (Principal, error) {
	if identity == nil {
		return Principal{}, apierrors.NewErrMissingAuthorizationToken()
	}

	principal, err := g.Resolve(ctx, *identity)
	if err != nil {
		return Principal{}, err
	}

	if missing := Missing(required, principal.Permissions); len(missing) > 0 {
		g.logger.Info("Guard: access denied",
			"domain", identity.Domain,
			"user_id", identity.UserID,
			"app_id", identity.AppID,
			"missing", missing)
		return Principal{}, apierrors.NewErrInsufficientPermissions(missing)
	}

	return principal, nil
}

// Resolve loads the user behind identity together with its permissions.
func (g *Guard) Resolve(ctx context.Context, identity model.Identity) (Principal, error) {
	user, err := g.users.GetByID(ctx, identity.Scope(), identity.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return Principal{}, apierrors.New(apierrors.KindUnauthorized, "user no longer exists", err)
	}
	if err != nil {
		return Principal{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Banned {
		return Principal{}, apierrors.New(apierrors.KindUnauthorized, "user is banned", nil)
	}

	var roles []model.Role
	if identity.Domain == model.DomainApp {
		roles, err = g.roles.FindRolesWithPermissions(ctx, identity.AppID, identity.UserID)
		if err != nil {
			return Principal{}, fmt.Errorf("failed to load roles: %w", err)
		}
	}

	return Principal{
		Identity:    identity,
		User:        user,
		Roles:       roles,
		Permissions: ResolvePermissions(roles),
	}, nil
}
