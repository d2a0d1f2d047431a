package middleware

import (
	"context"

	"google.golang.org/grpc"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/authz"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// Guard decides whether an identity holds the required permissions.
type Guard interface {
	CanActivate(ctx context.Context, required []string, identity *model.Identity) (authz.Principal, error)
}

// DecisionRecorder counts guard decisions per transport.
type DecisionRecorder interface {
	RecordGuardDecision(transport string, allowed bool)
}

// PermissionGuard checks the permissions a method requires before calling it.
// Methods absent from the table are not guarded.
type PermissionGuard struct {
	guard          Guard
	contextManager model.ContextManager
	recorder       DecisionRecorder
	required       map[string][]string
	logger         *logger.Logger
}

// NewPermissionGuard creates a PermissionGuard. required maps full method
// names to the permissions they need; an empty list still demands a resolvable
// user. recorder may be nil.
func NewPermissionGuard(
	guard Guard,
	contextManager model.ContextManager,
	recorder DecisionRecorder,
	required map[string][]string,
	logger *logger.Logger,
) *PermissionGuard {
	return &PermissionGuard{
		guard:          guard,
		contextManager: contextManager,
		recorder:       recorder,
		required:       required,
		logger:         logger,
	}
}

// HandleGRPC is the unary interceptor.
func (g *PermissionGuard) HandleGRPC(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	permissions, guarded := g.required[info.FullMethod]
	if !guarded {
		return handler(ctx, req)
	}

	var identity *model.Identity
	if id, ok := g.contextManager.GetIdentityFromContext(ctx); ok {
		identity = &id
	}

	_, err := g.guard.CanActivate(ctx, permissions, identity)
	if g.recorder != nil {
		g.recorder.RecordGuardDecision("grpc", err == nil)
	}
	if err != nil {
		apiErr := apierrors.As(err)
		if apiErr.Kind == apierrors.KindInternal {
			g.logger.Error("Permission guard: failed to resolve caller",
				"method", info.FullMethod,
				"error", err.Error())
		}
		return nil, apiErr
	}

	return handler(ctx, req)
}
