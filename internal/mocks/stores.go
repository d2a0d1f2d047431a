// Package mocks contains testify mocks of the store and service interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/appauth-server/internal/model"
)

type mockConstructorTestingT interface {
	mock.TestingT
	Cleanup(func())
}

// UserStore is a mock of model.UserStore.
type UserStore struct {
	mock.Mock
}

var _ model.UserStore = (*UserStore)(nil)

func (_m *UserStore) GetByEmail(ctx context.Context, scope model.Scope, email string) (model.User, error) {
	ret := _m.Called(ctx, scope, email)
	return ret.Get(0).(model.User), ret.Error(1)
}

func (_m *UserStore) GetByID(ctx context.Context, scope model.Scope, id int64) (model.User, error) {
	ret := _m.Called(ctx, scope, id)
	return ret.Get(0).(model.User), ret.Error(1)
}

func (_m *UserStore) Create(ctx context.Context, scope model.Scope, user model.User) (model.User, error) {
	ret := _m.Called(ctx, scope, user)
	return ret.Get(0).(model.User), ret.Error(1)
}

func (_m *UserStore) UpdatePasswordHash(ctx context.Context, scope model.Scope, id int64, passwordHash string) error {
	ret := _m.Called(ctx, scope, id, passwordHash)
	return ret.Error(0)
}

func (_m *UserStore) Exists(ctx context.Context, scope model.Scope, email string) (bool, error) {
	ret := _m.Called(ctx, scope, email)
	return ret.Bool(0), ret.Error(1)
}

// NewUserStore creates a UserStore mock whose expectations are asserted on cleanup.
func NewUserStore(t mockConstructorTestingT) *UserStore {
	m := &UserStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ApplicationStore is a mock of model.ApplicationStore.
type ApplicationStore struct {
	mock.Mock
}

var _ model.ApplicationStore = (*ApplicationStore)(nil)

func (_m *ApplicationStore) GetByID(ctx context.Context, id int64) (model.Application, error) {
	ret := _m.Called(ctx, id)
	return ret.Get(0).(model.Application), ret.Error(1)
}

func (_m *ApplicationStore) Create(ctx context.Context, app model.Application) (model.Application, error) {
	ret := _m.Called(ctx, app)
	return ret.Get(0).(model.Application), ret.Error(1)
}

func (_m *ApplicationStore) UpdateSecret(ctx context.Context, id int64, encryptedSecret string) error {
	ret := _m.Called(ctx, id, encryptedSecret)
	return ret.Error(0)
}

func NewApplicationStore(t mockConstructorTestingT) *ApplicationStore {
	m := &ApplicationStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// RoleStore is a mock of model.RoleStore.
type RoleStore struct {
	mock.Mock
}

var _ model.RoleStore = (*RoleStore)(nil)

func (_m *RoleStore) FindRolesWithPermissions(ctx context.Context, appID, userID int64) ([]model.Role, error) {
	ret := _m.Called(ctx, appID, userID)
	roles, _ := ret.Get(0).([]model.Role)
	return roles, ret.Error(1)
}

func (_m *RoleStore) GetByIDs(ctx context.Context, appID int64, ids []int64) ([]model.Role, error) {
	ret := _m.Called(ctx, appID, ids)
	roles, _ := ret.Get(0).([]model.Role)
	return roles, ret.Error(1)
}

func (_m *RoleStore) ReplaceUserRoles(ctx context.Context, appID, userID int64, roleIDs []int64) error {
	ret := _m.Called(ctx, appID, userID, roleIDs)
	return ret.Error(0)
}

func NewRoleStore(t mockConstructorTestingT) *RoleStore {
	m := &RoleStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// RecoveryStore is a mock of model.RecoveryStore.
type RecoveryStore struct {
	mock.Mock
}

var _ model.RecoveryStore = (*RecoveryStore)(nil)

func (_m *RecoveryStore) Create(ctx context.Context, domain model.Domain, recovery model.Recovery) (model.Recovery, error) {
	ret := _m.Called(ctx, domain, recovery)
	return ret.Get(0).(model.Recovery), ret.Error(1)
}

func (_m *RecoveryStore) GetByID(ctx context.Context, domain model.Domain, id int64) (model.Recovery, error) {
	ret := _m.Called(ctx, domain, id)
	return ret.Get(0).(model.Recovery), ret.Error(1)
}

func (_m *RecoveryStore) ListByUser(ctx context.Context, domain model.Domain, userID int64) ([]model.Recovery, error) {
	ret := _m.Called(ctx, domain, userID)
	list, _ := ret.Get(0).([]model.Recovery)
	return list, ret.Error(1)
}

func (_m *RecoveryStore) Update(ctx context.Context, domain model.Domain, recovery model.Recovery) error {
	ret := _m.Called(ctx, domain, recovery)
	return ret.Error(0)
}

func (_m *RecoveryStore) Delete(ctx context.Context, domain model.Domain, id int64) error {
	ret := _m.Called(ctx, domain, id)
	return ret.Error(0)
}

func NewRecoveryStore(t mockConstructorTestingT) *RecoveryStore {
	m := &RecoveryStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// RefreshTokenStore is a mock of model.RefreshTokenStore.
type RefreshTokenStore struct {
	mock.Mock
}

var _ model.RefreshTokenStore = (*RefreshTokenStore)(nil)

func (_m *RefreshTokenStore) Create(ctx context.Context, domain model.Domain, token model.RefreshToken) error {
	ret := _m.Called(ctx, domain, token)
	return ret.Error(0)
}

func (_m *RefreshTokenStore) GetByHash(ctx context.Context, domain model.Domain, tokenHash string) (model.RefreshToken, error) {
	ret := _m.Called(ctx, domain, tokenHash)
	return ret.Get(0).(model.RefreshToken), ret.Error(1)
}

func (_m *RefreshTokenStore) DeleteByHash(ctx context.Context, domain model.Domain, tokenHash string) error {
	ret := _m.Called(ctx, domain, tokenHash)
	return ret.Error(0)
}

func (_m *RefreshTokenStore) DeleteAllByUser(ctx context.Context, domain model.Domain, userID int64) error {
	ret := _m.Called(ctx, domain, userID)
	return ret.Error(0)
}

func (_m *RefreshTokenStore) DeleteAllByApp(ctx context.Context, appID int64) error {
	ret := _m.Called(ctx, appID)
	return ret.Error(0)
}

func NewRefreshTokenStore(t mockConstructorTestingT) *RefreshTokenStore {
	m := &RefreshTokenStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Transactor is a mock of model.Transactor. When the expectation returns
// nil the callback runs with the caller's context.
type Transactor struct {
	mock.Mock
}

var _ model.Transactor = (*Transactor)(nil)

func (_m *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ret := _m.Called(ctx)
	if err := ret.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

func NewTransactor(t mockConstructorTestingT) *Transactor {
	m := &Transactor{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
