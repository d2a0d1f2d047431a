package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcctx "github.com/dtroode/appauth-server/internal/api/grpc/context"
	"github.com/dtroode/appauth-server/internal/authz"
	"github.com/dtroode/appauth-server/internal/model"
	"github.com/dtroode/appauth-server/internal/testutil"
)

type decisionCounter struct {
	allowed, denied int
}

func (d *decisionCounter) RecordGuardDecision(transport string, allowed bool) {
	if allowed {
		d.allowed++
		return
	}
	d.denied++
}

func TestPermissionGuard_HandleGRPC(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	ctx := context.Background()
	user, err := store.Users.Create(ctx, model.AppScope(1), model.User{Email: "a@x.com", PasswordHash: "h"})
	require.NoError(t, err)
	role := store.SeedRole(1, "reader", model.PermUsersRead)
	require.NoError(t, store.Roles.ReplaceUserRoles(ctx, 1, user.ID, []int64{role.ID}))

	cm := grpcctx.NewManager()
	required := map[string][]string{
		"/svc/Read":   {model.PermUsersRead},
		"/svc/Manage": {model.PermUsersRead, model.PermUsersManage},
	}
	ok := func(context.Context, interface{}) (interface{}, error) { return "ok", nil }

	authed := cm.SetIdentityToContext(ctx, model.Identity{Domain: model.DomainApp, UserID: user.ID, AppID: 1})

	tests := []struct {
		name     string
		ctx      context.Context
		method   string
		wantCode codes.Code
	}{
		{"unguarded method", ctx, "/svc/Free", codes.OK},
		{"no identity", ctx, "/svc/Read", codes.Unauthenticated},
		{"permission held", authed, "/svc/Read", codes.OK},
		{"one permission missing", authed, "/svc/Manage", codes.PermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := &decisionCounter{}
			g := NewPermissionGuard(authz.NewGuard(store.Users, store.Roles, testutil.MakeNoopLogger()),
				cm, counter, required, testutil.MakeNoopLogger())

			resp, err := g.HandleGRPC(tt.ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, ok)
			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode == codes.OK {
				assert.Equal(t, "ok", resp)
			}
			if tt.method == "/svc/Free" {
				assert.Zero(t, counter.allowed+counter.denied)
			}
		})
	}
}
