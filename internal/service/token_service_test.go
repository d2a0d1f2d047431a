package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/appauth-server/internal/apierrors"
	servermocks "github.com/dtroode/appauth-server/internal/mocks"
	"github.com/dtroode/appauth-server/internal/model"
	"github.com/dtroode/appauth-server/internal/testutil"
)

type tokenMocks struct {
	manager *servermocks.TokenManager
	store   *servermocks.RefreshTokenStore
	users   *servermocks.UserStore
	tx      *servermocks.Transactor
}

func newMockedTokenService(t *testing.T) (*TokenService, tokenMocks) {
	m := tokenMocks{
		manager: servermocks.NewTokenManager(t),
		store:   servermocks.NewRefreshTokenStore(t),
		users:   servermocks.NewUserStore(t),
		tx:      servermocks.NewTransactor(t),
	}
	svc := NewTokenService(m.manager, m.store, m.users, m.tx, time.Hour, nil, testutil.MakeNoopLogger())
	return svc, m
}

func TestTokenService_Issue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, m := newMockedTokenService(t)

	user := model.User{ID: 5, AppID: 2}
	m.manager.On("GenerateAccessToken", ctx, model.Identity{Domain: model.DomainApp, UserID: 5, AppID: 2}).Return("access", nil).Once()
	m.manager.On("GenerateRefreshToken").Return("refresh", "refresh-hash", nil).Once()
	m.store.On("Create", ctx, model.DomainApp, mock.MatchedBy(func(rt model.RefreshToken) bool {
		return rt.UserID == 5 && rt.TokenHash == "refresh-hash" && time.Until(rt.ExpiresAt) > 59*time.Minute
	})).Return(nil).Once()

	pair, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, pair)
}

func TestTokenService_Issue_ManagerError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, m := newMockedTokenService(t)

	m.manager.On("GenerateAccessToken", ctx, mock.Anything).Return("", assert.AnError).Once()

	_, err := svc.Issue(ctx, model.User{ID: 1})
	require.ErrorIs(t, err, assert.AnError)
}

func TestTokenService_Issue_Banned(t *testing.T) {
	t.Parallel()
	svc, _ := newMockedTokenService(t)

	_, err := svc.Issue(context.Background(), model.User{ID: 1, Banned: true})
	assert.True(t, apierrors.IsKind(err, apierrors.KindForbidden))
}

func TestTokenService_Refresh_Success(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, m := newMockedTokenService(t)

	m.manager.On("HashRefreshToken", "refresh-old").Return("hash-old").Once()
	m.tx.On("WithinTx", ctx).Return(nil).Once()
	m.store.On("GetByHash", ctx, model.DomainService, "hash-old").Return(model.RefreshToken{
		UserID:    1,
		TokenHash: "hash-old",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil).Once()
	m.users.On("GetByID", ctx, model.ServiceScope(), int64(1)).Return(model.User{ID: 1}, nil).Once()
	m.store.On("DeleteByHash", ctx, model.DomainService, "hash-old").Return(nil).Once()
	m.manager.On("GenerateAccessToken", ctx, model.Identity{Domain: model.DomainService, UserID: 1}).Return("access-new", nil).Once()
	m.manager.On("GenerateRefreshToken").Return("refresh-new", "hash-new", nil).Once()
	m.store.On("Create", ctx, model.DomainService, mock.Anything).Return(nil).Once()

	pair, err := svc.Refresh(ctx, model.ServiceScope(), "refresh-old")
	require.NoError(t, err)
	assert.Equal(t, "access-new", pair.AccessToken)
	assert.Equal(t, "refresh-new", pair.RefreshToken)
}

func TestTokenService_Refresh_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(ctx context.Context, m tokenMocks)
		kind    apierrors.Kind
		message string
	}{
		{
			name: "unknown token",
			setup: func(ctx context.Context, m tokenMocks) {
				m.store.On("GetByHash", ctx, model.DomainService, "h").Return(model.RefreshToken{}, model.ErrNotFound).Once()
			},
			kind:    apierrors.KindUnauthorized,
			message: "invalid refresh token",
		},
		{
			name: "expired token is deleted lazily",
			setup: func(ctx context.Context, m tokenMocks) {
				m.store.On("GetByHash", ctx, model.DomainService, "h").Return(model.RefreshToken{
					UserID: 1, TokenHash: "h", ExpiresAt: time.Now().Add(-time.Second),
				}, nil).Once()
				m.store.On("DeleteByHash", ctx, model.DomainService, "h").Return(nil).Once()
			},
			kind:    apierrors.KindUnauthorized,
			message: "refresh token expired",
		},
		{
			name: "banned user",
			setup: func(ctx context.Context, m tokenMocks) {
				m.store.On("GetByHash", ctx, model.DomainService, "h").Return(model.RefreshToken{
					UserID: 1, TokenHash: "h", ExpiresAt: time.Now().Add(time.Hour),
				}, nil).Once()
				m.users.On("GetByID", ctx, model.ServiceScope(), int64(1)).Return(model.User{ID: 1, Banned: true}, nil).Once()
			},
			kind:    apierrors.KindForbidden,
			message: "user is banned",
		},
		{
			name: "consumed concurrently",
			setup: func(ctx context.Context, m tokenMocks) {
				m.store.On("GetByHash", ctx, model.DomainService, "h").Return(model.RefreshToken{
					UserID: 1, TokenHash: "h", ExpiresAt: time.Now().Add(time.Hour),
				}, nil).Once()
				m.users.On("GetByID", ctx, model.ServiceScope(), int64(1)).Return(model.User{ID: 1}, nil).Once()
				m.store.On("DeleteByHash", ctx, model.DomainService, "h").Return(model.ErrNotFound).Once()
			},
			kind:    apierrors.KindUnauthorized,
			message: "invalid refresh token",
		},
		{
			name: "store failure",
			setup: func(ctx context.Context, m tokenMocks) {
				m.store.On("GetByHash", ctx, model.DomainService, "h").Return(model.RefreshToken{}, assert.AnError).Once()
			},
			kind:    apierrors.KindInternal,
			message: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			svc, m := newMockedTokenService(t)

			m.manager.On("HashRefreshToken", "raw").Return("h").Once()
			m.tx.On("WithinTx", ctx).Return(nil).Once()
			tt.setup(ctx, m)

			_, err := svc.Refresh(ctx, model.ServiceScope(), "raw")
			require.Error(t, err)
			apiErr := apierrors.As(err)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestTokenService_Revoke(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, m := newMockedTokenService(t)

	m.manager.On("HashRefreshToken", "known").Return("h1").Once()
	m.manager.On("HashRefreshToken", "unknown").Return("h2").Once()
	m.manager.On("HashRefreshToken", "broken").Return("h3").Once()
	m.store.On("DeleteByHash", ctx, model.DomainApp, "h1").Return(nil).Once()
	m.store.On("DeleteByHash", ctx, model.DomainApp, "h2").Return(model.ErrNotFound).Once()
	m.store.On("DeleteByHash", ctx, model.DomainApp, "h3").Return(assert.AnError).Once()

	require.NoError(t, svc.Revoke(ctx, model.AppScope(1), "known"))
	require.NoError(t, svc.Revoke(ctx, model.AppScope(1), "unknown"))
	require.ErrorIs(t, svc.Revoke(ctx, model.AppScope(1), "broken"), assert.AnError)
}

func TestTokenService_Verify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, m := newMockedTokenService(t)

	identity := model.Identity{Domain: model.DomainService, UserID: 3}
	m.manager.On("ParseAccessToken", ctx, "good", model.DomainService).Return(identity, nil).Once()
	m.manager.On("ParseAccessToken", ctx, "bad", model.DomainService).Return(model.Identity{}, model.ErrTokenInvalid).Once()
	m.manager.On("ParseAccessToken", ctx, "tampered", model.DomainService).Return(model.Identity{}, assert.AnError).Once()

	got, err := svc.Verify(ctx, "good", model.DomainService)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	_, err = svc.Verify(ctx, "bad", model.DomainService)
	assert.True(t, apierrors.IsKind(err, apierrors.KindUnauthorized))

	_, err = svc.Verify(ctx, "tampered", model.DomainService)
	assert.True(t, apierrors.IsKind(err, apierrors.KindInternal))
}

func TestTokenService_RefreshRotation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStack(t)

	first, err := s.auth.Register(ctx, model.ServiceScope(), "op@x.com", "OperatorPass1!")
	require.NoError(t, err)

	second, err := s.tokens.Refresh(ctx, model.ServiceScope(), first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = s.tokens.Refresh(ctx, model.ServiceScope(), first.RefreshToken)
	assert.True(t, apierrors.IsKind(err, apierrors.KindUnauthorized))

	_, err = s.tokens.Refresh(ctx, model.ServiceScope(), second.RefreshToken)
	require.NoError(t, err)
}

func TestTokenService_RefreshExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStack(t)

	pair, err := s.auth.Register(ctx, model.ServiceScope(), "op@x.com", "OperatorPass1!")
	require.NoError(t, err)
	user, err := s.store.Users.GetByEmail(ctx, model.ServiceScope(), "op@x.com")
	require.NoError(t, err)

	s.store.ExpireRefreshTokens(model.DomainService, user.ID, time.Now().Add(-time.Minute))

	_, err = s.tokens.Refresh(ctx, model.ServiceScope(), pair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, "refresh token expired", apierrors.As(err).Message)
	assert.Zero(t, s.store.RefreshTokenCount(model.DomainService, user.ID))
}

func TestTokenService_RefreshWrongScope(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStack(t)
	_, app1 := s.newApp(t, "one")
	_, app2 := s.newApp(t, "two")

	pair, err := s.auth.Register(ctx, model.AppScope(app1.ID), "u@x.com", "Sup3rSecretPW!")
	require.NoError(t, err)

	_, err = s.tokens.Refresh(ctx, model.AppScope(app2.ID), pair.RefreshToken)
	assert.True(t, apierrors.IsKind(err, apierrors.KindUnauthorized))

	_, err = s.tokens.Refresh(ctx, model.ServiceScope(), pair.RefreshToken)
	assert.True(t, apierrors.IsKind(err, apierrors.KindUnauthorized))

	_, err = s.tokens.Refresh(ctx, model.AppScope(app1.ID), pair.RefreshToken)
	require.NoError(t, err)
}

func TestTokenService_RefreshBanned(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStack(t)

	pair, err := s.auth.Register(ctx, model.ServiceScope(), "op@x.com", "OperatorPass1!")
	require.NoError(t, err)
	user, err := s.store.Users.GetByEmail(ctx, model.ServiceScope(), "op@x.com")
	require.NoError(t, err)
	s.store.SetBanned(model.DomainService, user.ID, true)

	_, err = s.tokens.Refresh(ctx, model.ServiceScope(), pair.RefreshToken)
	assert.True(t, apierrors.IsKind(err, apierrors.KindForbidden))
	assert.Equal(t, 1, s.store.RefreshTokenCount(model.DomainService, user.ID))
}
