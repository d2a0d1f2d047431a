package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/authz"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// Full method names of the introspection service.
const (
	IntrospectionServiceName = "authcore.v1.Introspection"
	IntrospectMethod         = "/" + IntrospectionServiceName + "/Introspect"
	AuthorizeMethod          = "/" + IntrospectionServiceName + "/Authorize"
)

// IntrospectionServer is the server API of authcore.v1.Introspection.
// Messages are well-known protobuf types so the service needs no generated code:
// Introspect takes Empty and returns a Struct describing the caller, Authorize
// takes a Struct with a "permissions" list and returns a BoolValue.
type IntrospectionServer interface {
	Introspect(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Authorize(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error)
}

// IntrospectionServiceDesc describes authcore.v1.Introspection for grpc.Server.
var IntrospectionServiceDesc = grpc.ServiceDesc{
	ServiceName: IntrospectionServiceName,
	HandlerType: (*IntrospectionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Introspect", Handler: introspectHandler},
		{MethodName: "Authorize", Handler: authorizeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authcore/v1/introspection.proto",
}

// RegisterIntrospectionServer registers srv on s.
func RegisterIntrospectionServer(s grpc.ServiceRegistrar, srv IntrospectionServer) {
	s.RegisterService(&IntrospectionServiceDesc, srv)
}

func introspectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IntrospectionServer).Introspect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: IntrospectMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IntrospectionServer).Introspect(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func authorizeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IntrospectionServer).Authorize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuthorizeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IntrospectionServer).Authorize(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// PrincipalResolver loads the user behind an identity with its permissions.
type PrincipalResolver interface {
	Resolve(ctx context.Context, identity model.Identity) (authz.Principal, error)
}

// Introspection lets resource servers inspect the caller of a bearer token.
type Introspection struct {
	resolver       PrincipalResolver
	contextManager model.ContextManager
	logger         *logger.Logger
}

var _ IntrospectionServer = (*Introspection)(nil)

// NewIntrospection creates a new Introspection handler.
func NewIntrospection(resolver PrincipalResolver, contextManager model.ContextManager, logger *logger.Logger) *Introspection {
	return &Introspection{resolver: resolver, contextManager: contextManager, logger: logger}
}

// Introspect returns the caller identity and its permission set.
func (h *Introspection) Introspect(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	principal, err := h.principal(ctx)
	if err != nil {
		return nil, handleError(err)
	}

	names := principal.Permissions.Names()
	permissions := make([]interface{}, 0, len(names))
	for _, name := range names {
		permissions = append(permissions, name)
	}

	resp, err := structpb.NewStruct(map[string]interface{}{
		"domain":      string(principal.Identity.Domain),
		"userId":      principal.User.ID,
		"appId":       principal.User.AppID,
		"email":       principal.User.Email,
		"permissions": permissions,
	})
	if err != nil {
		h.logger.Error("Introspection handler: failed to build response", "error", err.Error())
		return nil, handleError(err)
	}
	return resp, nil
}

// Authorize reports whether the caller holds every requested permission.
func (h *Introspection) Authorize(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error) {
	required, err := permissionList(req)
	if err != nil {
		return nil, handleError(err)
	}

	principal, err := h.principal(ctx)
	if err != nil {
		return nil, handleError(err)
	}

	allowed := authz.Authorize(required, principal.Permissions)
	h.logger.Debug("Introspection handler: authorize",
		"user_id", principal.User.ID,
		"app_id", principal.User.AppID,
		"required", required,
		"allowed", allowed)

	return wrapperspb.Bool(allowed), nil
}

func (h *Introspection) principal(ctx context.Context) (authz.Principal, error) {
	identity, ok := h.contextManager.GetIdentityFromContext(ctx)
	if !ok {
		return authz.Principal{}, apierrors.NewErrMissingAuthorizationToken()
	}
	return h.resolver.Resolve(ctx, identity)
}

func permissionList(req *structpb.Struct) ([]string, error) {
	value, ok := req.GetFields()["permissions"]
	if !ok {
		return nil, nil
	}
	list := value.GetListValue()
	if list == nil {
		return nil, apierrors.NewErrBadRequest("permissions must be a list of strings")
	}

	out := make([]string, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, apierrors.NewErrBadRequest("permissions must be a list of strings")
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}
