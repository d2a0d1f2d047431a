package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/appauth-server/internal/model"
	"github.com/dtroode/appauth-server/internal/password"
	"github.com/dtroode/appauth-server/internal/testutil"
	"github.com/dtroode/appauth-server/internal/token"
	"github.com/dtroode/appauth-server/internal/vault"
)

const testMinPasswordLength = 12

// stack wires every service over one in-memory store with real crypto.
type stack struct {
	store    *testutil.MemoryStore
	jwt      *token.JWT
	tokens   *TokenService
	auth     *Auth
	recovery *Recovery
	apps     *Applications
	roles    *Roles
}

func newStack(t *testing.T) *stack {
	t.Helper()

	store := testutil.NewMemoryStore()
	v, err := vault.New(strings.Repeat("ab", vault.MasterKeySize))
	require.NoError(t, err)
	hasher, err := password.NewHasher(bcrypt.MinCost, 4)
	require.NoError(t, err)

	log := testutil.MakeNoopLogger()
	jwt := token.NewJWT(token.NewSecretResolver("global-test-secret", store.Applications, v), time.Minute)
	tokens := NewTokenService(jwt, store.RefreshTokens, store.Users, store, 0, nil, log)

	return &stack{
		store:    store,
		jwt:      jwt,
		tokens:   tokens,
		auth:     NewAuth(store.Users, store.Applications, hasher, tokens, store, testMinPasswordLength, nil, log),
		recovery: NewRecovery(store.Users, store.Recoveries, hasher, tokens, store, nil, log),
		apps:     NewApplications(store.Applications, store.RefreshTokens, v, store, log),
		roles:    NewRoles(store.Users, store.Roles, store, log),
	}
}

// newApp creates an operator and one application owned by it.
func (s *stack) newApp(t *testing.T, name string) (owner model.User, app model.Application) {
	t.Helper()
	ctx := context.Background()

	_, err := s.auth.Register(ctx, model.ServiceScope(), name+"-owner@x.com", "OwnerPassword1!")
	require.NoError(t, err)
	owner, err = s.store.Users.GetByEmail(ctx, model.ServiceScope(), name+"-owner@x.com")
	require.NoError(t, err)

	app, err = s.apps.Create(ctx, owner.ID, name, "")
	require.NoError(t, err)
	return owner, app
}
