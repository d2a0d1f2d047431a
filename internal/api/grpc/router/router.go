package router

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/appauth-server/internal/api/grpc/handler"
	"github.com/dtroode/appauth-server/internal/api/grpc/middleware"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// Guard checks permissions and resolves principals.
type Guard interface {
	middleware.Guard
	handler.PrincipalResolver
}

// Router represents the gRPC router of the authentication core.
// It manages service registration and the interceptor chain.
type Router struct {
	verifier       middleware.TokenVerifier
	guard          Guard
	recorder       middleware.DecisionRecorder
	contextManager model.ContextManager
	logger         *logger.Logger
	health         *health.Server
}

// New creates new gRPC Router instance. recorder may be nil.
func New(
	verifier middleware.TokenVerifier,
	guard Guard,
	recorder middleware.DecisionRecorder,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Router {
	return &Router{
		verifier:       verifier,
		guard:          guard,
		recorder:       recorder,
		contextManager: contextManager,
		logger:         logger,
		health:         health.NewServer(),
	}
}

// Health returns the health service registered by Register.
func (r *Router) Health() *health.Server {
	return r.health
}

// requiredPermissions lists guarded methods. Both introspection calls only
// need a caller that still resolves.
var requiredPermissions = map[string][]string{
	handler.IntrospectMethod: {},
	handler.AuthorizeMethod:  {},
}

func authSkip(_ context.Context, c interceptors.CallMeta) bool {
	return !strings.HasPrefix(c.FullMethod(), "/grpc.health.v1.Health/") &&
		!strings.HasPrefix(c.FullMethod(), "/grpc.reflection.")
}

// Register registers all gRPC services and middleware.
// The unary chain is logging, authentication and the permission guard.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.verifier, r.contextManager, r.logger)
	guard := middleware.NewPermissionGuard(r.guard, r.contextManager, r.recorder, requiredPermissions, r.logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(authSkip),
			),
			guard.HandleGRPC,
		),
		grpc.ChainStreamInterceptor(
			selector.StreamServerInterceptor(
				auth.StreamServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(authSkip),
			),
		),
	)
	r.registerIntrospectionRoutes(s)
	r.registerHealthRoutes(s)

	return s
}

func (r *Router) registerIntrospectionRoutes(server *grpc.Server) {
	introspection := handler.NewIntrospection(r.guard, r.contextManager, r.logger)
	handler.RegisterIntrospectionServer(server, introspection)
}

func (r *Router) registerHealthRoutes(server *grpc.Server) {
	r.health.SetServingStatus(handler.IntrospectionServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, r.health)
}
