package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

type callKey struct{}

// call collects what the inner interceptors learn about a request so the
// logging interceptor, which runs first, can report it once the call ends.
type call struct {
	identity      model.Identity
	authenticated bool
}

// noteIdentity records the identity the caller authenticated as. It is a
// no-op outside a logged call.
func noteIdentity(ctx context.Context, identity model.Identity) {
	if c, ok := ctx.Value(callKey{}).(*call); ok {
		c.identity = identity
		c.authenticated = true
	}
}

// Logging is a unary interceptor that logs each call with the identity domain
// it targets and, once authenticated, the resolved user and tenant.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs the outcome of a unary call. Denied calls are logged as
// warnings, server faults as errors.
func (l *Logging) HandleGRPC(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	md, _ := metadata.FromIncomingContext(ctx)
	domain := firstValue(md, DomainMetadataKey)
	if domain == "" {
		domain = string(model.DomainApp)
	}

	l.logger.Debug("gRPC call received",
		"method", info.FullMethod,
		"domain", domain,
		"requested_app_id", firstValue(md, AppIDMetadataKey))

	c := &call{}
	resp, err := handler(context.WithValue(ctx, callKey{}, c), req)

	code := status.Code(err)
	if _, ok := status.FromError(err); !ok {
		code = codes.Internal
	}

	attrs := []any{
		"method", info.FullMethod,
		"domain", domain,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", code.String(),
	}
	if c.authenticated {
		attrs = append(attrs, "user_id", c.identity.UserID)
		if c.identity.Domain == model.DomainApp {
			attrs = append(attrs, "app_id", c.identity.AppID)
		}
	}

	switch code {
	case codes.OK:
		l.logger.Info("gRPC call completed", attrs...)
	case codes.Unauthenticated, codes.PermissionDenied:
		l.logger.Warn("gRPC call denied", attrs...)
	case codes.Internal, codes.Unknown:
		l.logger.Error("gRPC call failed", append(attrs, "error", err.Error())...)
	default:
		l.logger.Info("gRPC call rejected", attrs...)
	}

	return resp, err
}
