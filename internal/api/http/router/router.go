package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/appauth-server/internal/api/http/handler"
	"github.com/dtroode/appauth-server/internal/api/http/middleware"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// TokenService rotates refresh tokens and verifies access tokens.
type TokenService interface {
	handler.TokenService
	middleware.TokenVerifier
}

// Services groups the dependencies of the HTTP handlers.
type Services struct {
	Auth         handler.AuthService
	Tokens       TokenService
	Recovery     handler.RecoveryService
	Applications handler.ApplicationService
	Roles        handler.RoleService
	Guard        middleware.Guard
	DB           handler.Pinger
}

// Observability is implemented by the metrics registry.
type Observability interface {
	middleware.HTTPObserver
	middleware.DecisionRecorder
	Handler() http.Handler
}

// Router builds the gin engine of the HTTP transport.
type Router struct {
	services Services
	metrics  Observability
	logger   *logger.Logger
}

// New creates a new HTTP Router. metrics may be nil.
func New(services Services, metrics Observability, logger *logger.Logger) *Router {
	return &Router{services: services, metrics: metrics, logger: logger}
}

// Register wires middleware and every route into a new engine.
func (r *Router) Register() *gin.Engine {
	var (
		observer middleware.HTTPObserver
		recorder middleware.DecisionRecorder
	)
	if r.metrics != nil {
		observer = r.metrics
		recorder = r.metrics
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.NewLogging(r.logger, observer).Handle,
		middleware.Recovery(r.logger),
	)

	engine.GET("/healthz", handler.Health(r.services.DB))
	if r.metrics != nil {
		engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))
	}

	authenticate := middleware.NewAuthenticate(r.services.Tokens, r.logger)
	authorize := middleware.NewAuthorize(r.services.Guard, recorder, r.logger)

	auth := handler.NewAuth(r.services.Auth, r.services.Tokens, r.logger)
	recovery := handler.NewRecovery(r.services.Recovery, r.logger)
	apps := handler.NewApplication(r.services.Applications, r.services.Roles, r.logger)

	v1 := engine.Group("/v1")

	service := v1.Group("/service")
	r.registerDomainRoutes(service, authenticate.Require(model.DomainService), auth, recovery)

	applications := v1.Group("/apps")
	applications.POST("", authenticate.Require(model.DomainService), apps.Create)
	applications.POST("/:appId/secret", authenticate.Require(model.DomainService), apps.RegenerateSecret)

	tenant := applications.Group("/:appId")
	requireAppUser := authenticate.Require(model.DomainApp)
	r.registerDomainRoutes(tenant, requireAppUser, auth, recovery)
	tenant.GET("/me", requireAppUser, authorize.RequirePermissions(), auth.Me)
	tenant.PUT("/users/:userId/roles", requireAppUser,
		authorize.RequirePermissions(model.PermUsersManage), apps.AssignRoles)

	return engine
}

// registerDomainRoutes adds the authentication and recovery routes shared by
// both identity domains.
func (r *Router) registerDomainRoutes(
	group *gin.RouterGroup,
	requireUser gin.HandlerFunc,
	auth *handler.Auth,
	recovery *handler.Recovery,
) {
	authGroup := group.Group("/auth")
	authGroup.POST("/register", auth.Register)
	authGroup.POST("/login", auth.Login)
	authGroup.POST("/refresh", auth.Refresh)
	authGroup.POST("/logout", auth.Logout)
	authGroup.PUT("/password", requireUser, auth.ChangePassword)

	recoveryGroup := group.Group("/recovery")
	recoveryGroup.POST("/ask", recovery.Ask)
	recoveryGroup.POST("/reset", recovery.Reset)
	recoveryGroup.GET("", requireUser, recovery.List)
	recoveryGroup.POST("", requireUser, recovery.Add)
	recoveryGroup.PUT("/:id", requireUser, recovery.Update)
	recoveryGroup.DELETE("/:id", requireUser, recovery.Remove)
}
