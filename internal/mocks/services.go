package mocks

import (
	"context"
	"net"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/appauth-server/internal/model"
)

// TokenManager is a mock of model.TokenManager.
type TokenManager struct {
	mock.Mock
}

var _ model.TokenManager = (*TokenManager)(nil)

func (_m *TokenManager) GenerateAccessToken(ctx context.Context, subject model.Identity) (string, error) {
	ret := _m.Called(ctx, subject)
	return ret.String(0), ret.Error(1)
}

func (_m *TokenManager) GenerateRefreshToken() (string, string, error) {
	ret := _m.Called()
	return ret.String(0), ret.String(1), ret.Error(2)
}

func (_m *TokenManager) HashRefreshToken(raw string) string {
	ret := _m.Called(raw)
	return ret.String(0)
}

func (_m *TokenManager) ParseAccessToken(ctx context.Context, token string, domain model.Domain) (model.Identity, error) {
	ret := _m.Called(ctx, token, domain)
	return ret.Get(0).(model.Identity), ret.Error(1)
}

func NewTokenManager(t mockConstructorTestingT) *TokenManager {
	m := &TokenManager{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// PasswordHasher is a mock of the credential hasher used by services.
type PasswordHasher struct {
	mock.Mock
}

func (_m *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	ret := _m.Called(ctx, plaintext)
	return ret.String(0), ret.Error(1)
}

func (_m *PasswordHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	ret := _m.Called(ctx, plaintext, hash)
	return ret.Bool(0), ret.Error(1)
}

func NewPasswordHasher(t mockConstructorTestingT) *PasswordHasher {
	m := &PasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// SecretSealer is a mock of the tenant secret generator used by services.
type SecretSealer struct {
	mock.Mock
}

func (_m *SecretSealer) NewSealedSecret() (string, error) {
	ret := _m.Called()
	return ret.String(0), ret.Error(1)
}

func NewSecretSealer(t mockConstructorTestingT) *SecretSealer {
	m := &SecretSealer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ContextManager is a mock of model.ContextManager.
type ContextManager struct {
	mock.Mock
}

var _ model.ContextManager = (*ContextManager)(nil)

func (_m *ContextManager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	ret := _m.Called(ctx, identity)
	return ret.Get(0).(context.Context)
}

func (_m *ContextManager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	ret := _m.Called(ctx)
	return ret.Get(0).(model.Identity), ret.Bool(1)
}

func NewContextManager(t mockConstructorTestingT) *ContextManager {
	m := &ContextManager{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// TokenVerifier is a mock of the access token verifier used by transports.
type TokenVerifier struct {
	mock.Mock
}

func (_m *TokenVerifier) Verify(ctx context.Context, token string, domain model.Domain) (model.Identity, error) {
	ret := _m.Called(ctx, token, domain)
	return ret.Get(0).(model.Identity), ret.Error(1)
}

func NewTokenVerifier(t mockConstructorTestingT) *TokenVerifier {
	m := &TokenVerifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// SecurityLayer is a mock of model.SecurityLayer.
type SecurityLayer struct {
	mock.Mock
}

var _ model.SecurityLayer = (*SecurityLayer)(nil)

func (_m *SecurityLayer) Listen(protocol, addr string) (net.Listener, error) {
	ret := _m.Called(protocol, addr)
	var ln net.Listener
	if v := ret.Get(0); v != nil {
		ln = v.(net.Listener)
	}
	return ln, ret.Error(1)
}

func NewSecurityLayer(t mockConstructorTestingT) *SecurityLayer {
	m := &SecurityLayer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
