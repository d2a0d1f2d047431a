package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/appauth-server/internal/model"
	"github.com/dtroode/appauth-server/internal/vault"
)

const testMasterKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type appsStub map[int64]model.Application

func (s appsStub) GetByID(_ context.Context, id int64) (model.Application, error) {
	app, ok := s[id]
	if !ok {
		return model.Application{}, model.ErrNotFound
	}
	return app, nil
}

func newTestManager(t *testing.T) (*JWT, appsStub, *vault.Vault) {
	t.Helper()

	v, err := vault.New(testMasterKey)
	require.NoError(t, err)

	apps := appsStub{}
	for _, id := range []int64{1, 2} {
		sealed, err := v.NewSealedSecret()
		require.NoError(t, err)
		apps[id] = model.Application{ID: id, EncryptedSecret: sealed}
	}

	return NewJWT(NewSecretResolver("global-secret", apps, v), time.Minute), apps, v
}

func TestJWT_ServiceToken_Roundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _, _ := newTestManager(t)

	access, err := j.GenerateAccessToken(ctx, model.Identity{Domain: model.DomainService, UserID: 7})
	require.NoError(t, err)

	got, err := j.ParseAccessToken(ctx, access, model.DomainService)
	require.NoError(t, err)
	assert.Equal(t, model.Identity{Domain: model.DomainService, UserID: 7}, got)
}

func TestJWT_AppToken_Roundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _, _ := newTestManager(t)
	subject := model.Identity{Domain: model.DomainApp, UserID: 3, AppID: 1}

	access, err := j.GenerateAccessToken(ctx, subject)
	require.NoError(t, err)

	got, err := j.ParseAccessToken(ctx, access, model.DomainApp)
	require.NoError(t, err)
	assert.Equal(t, subject, got)
}

func TestJWT_DomainMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _, _ := newTestManager(t)

	access, err := j.GenerateAccessToken(ctx, model.Identity{Domain: model.DomainService, UserID: 7})
	require.NoError(t, err)

	_, err = j.ParseAccessToken(ctx, access, model.DomainApp)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestJWT_TenantSecretsAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, apps, _ := newTestManager(t)

	access, err := j.GenerateAccessToken(ctx, model.Identity{Domain: model.DomainApp, UserID: 3, AppID: 1})
	require.NoError(t, err)

	// A token re-signed with another tenant's key must not verify.
	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(access, claims)
	require.NoError(t, err)
	claims.AppID = 2

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("guess"))
	require.NoError(t, err)

	_, err = j.ParseAccessToken(ctx, forged, model.DomainApp)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
	assert.Len(t, apps, 2)
}

func TestJWT_RegeneratedSecretInvalidatesTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, apps, v := newTestManager(t)

	access, err := j.GenerateAccessToken(ctx, model.Identity{Domain: model.DomainApp, UserID: 3, AppID: 1})
	require.NoError(t, err)
	_, err = j.ParseAccessToken(ctx, access, model.DomainApp)
	require.NoError(t, err)

	sealed, err := v.NewSealedSecret()
	require.NoError(t, err)
	apps[1] = model.Application{ID: 1, EncryptedSecret: sealed}

	_, err = j.ParseAccessToken(ctx, access, model.DomainApp)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestJWT_TamperedTenantSecretIsFatal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, apps, _ := newTestManager(t)

	access, err := j.GenerateAccessToken(ctx, model.Identity{Domain: model.DomainApp, UserID: 3, AppID: 1})
	require.NoError(t, err)

	apps[1] = model.Application{ID: 1, EncryptedSecret: "00:11:22"}

	_, err = j.ParseAccessToken(ctx, access, model.DomainApp)
	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrTokenInvalid))
	assert.ErrorIs(t, err, vault.ErrMalformedCiphertext)
}

type failingApps struct{}

func (failingApps) GetByID(context.Context, int64) (model.Application, error) {
	return model.Application{}, assert.AnError
}

func TestJWT_ResolverFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, apps, v := newTestManager(t)

	access, err := j.GenerateAccessToken(ctx, model.Identity{Domain: model.DomainApp, UserID: 3, AppID: 1})
	require.NoError(t, err)

	t.Run("store outage is not an invalid token", func(t *testing.T) {
		broken := NewJWT(NewSecretResolver("global-secret", failingApps{}, v), time.Minute)

		_, err := broken.ParseAccessToken(ctx, access, model.DomainApp)
		require.ErrorIs(t, err, assert.AnError)
		assert.False(t, errors.Is(err, model.ErrTokenInvalid))
	})

	t.Run("deleted application invalidates its tokens", func(t *testing.T) {
		delete(apps, 1)

		_, err := j.ParseAccessToken(ctx, access, model.DomainApp)
		require.ErrorIs(t, err, model.ErrTokenInvalid)
	})
}

func TestJWT_Expired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _, _ := newTestManager(t)
	j.now = func() time.Time { return time.Now().Add(-time.Hour) }

	access, err := j.GenerateAccessToken(ctx, model.Identity{Domain: model.DomainService, UserID: 1})
	require.NoError(t, err)

	j.now = time.Now
	_, err = j.ParseAccessToken(ctx, access, model.DomainService)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWT_UnknownApplication(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _, _ := newTestManager(t)

	_, err := j.GenerateAccessToken(ctx, model.Identity{Domain: model.DomainApp, UserID: 1, AppID: 99})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestJWT_RefreshToken(t *testing.T) {
	t.Parallel()

	j, _, _ := newTestManager(t)

	raw, hash, err := j.GenerateRefreshToken()
	require.NoError(t, err)
	assert.Len(t, raw, refreshTokenBytes*2)

	sum := sha256.Sum256([]byte(raw))
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)
	assert.Equal(t, hash, j.HashRefreshToken(raw))

	other, _, err := j.GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)
}
