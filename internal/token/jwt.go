package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/appauth-server/internal/model"
)

// Claims represents JWT claims of an access token.
type Claims struct {
	jwt.RegisteredClaims
	AppID     int64        `json:"app_id,omitempty"`
	Domain    model.Domain `json:"dom"`
	TokenType string       `json:"typ"`
}

const (
	// DefaultAccessTTL is the access token lifetime when none is configured.
	DefaultAccessTTL = 15 * time.Minute

	refreshTokenBytes = 64
	typeAccess        = "access"
)

var _ model.TokenManager = (*JWT)(nil)

// JWT implements TokenManager with HMAC signed access tokens. The signing
// key is looked up per token through a SecretResolver, so application user
// tokens are bound to their tenant's current secret.
type JWT struct {
	resolver  model.SecretResolver
	accessTTL time.Duration
	now       func() time.Time
}

// NewJWT creates a new JWT token manager.
func NewJWT(resolver model.SecretResolver, accessTTL time.Duration) *JWT {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	return &JWT{resolver: resolver, accessTTL: accessTTL, now: time.Now}
}

// GenerateAccessToken creates a short-lived access token for subject.
func (j *JWT) GenerateAccessToken(ctx context.Context, subject model.Identity) (string, error) {
	secret, err := j.resolver.Resolve(ctx, subject.Scope())
	if err != nil {
		return "", fmt.Errorf("failed to resolve signing secret: %w", err)
	}

	now := j.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(subject.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
		},
		Domain:    subject.Domain,
		TokenType: typeAccess,
	}
	if subject.Domain == model.DomainApp {
		claims.AppID = subject.AppID
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ParseAccessToken verifies tokenString for the expected identity domain.
// The key is derived from the claims: the global secret for service users,
// the decrypted tenant secret for application users. Errors that make the
// token unacceptable wrap model.ErrTokenInvalid. An unknown application
// makes the token invalid; any other failure to resolve the key, such as a
// store outage or a secret that can not be decrypted, is returned as is.
func (j *JWT) ParseAccessToken(ctx context.Context, tokenString string, domain model.Domain) (model.Identity, error) {
	claims := &Claims{}
	var resolveErr error
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if claims.Domain != domain {
			return nil, fmt.Errorf("domain mismatch: %q", claims.Domain)
		}
		scope := model.ServiceScope()
		if domain == model.DomainApp {
			if claims.AppID <= 0 {
				return nil, errors.New("app id claim is missing")
			}
			scope = model.AppScope(claims.AppID)
		}
		key, err := j.resolver.Resolve(ctx, scope)
		resolveErr = err
		return key, err
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if resolveErr != nil && !errors.Is(resolveErr, model.ErrNotFound) {
			return model.Identity{}, fmt.Errorf("failed to resolve signing key: %w", resolveErr)
		}
		return model.Identity{}, fmt.Errorf("%w: %w", model.ErrTokenInvalid, err)
	}
	if claims.TokenType != typeAccess {
		return model.Identity{}, fmt.Errorf("%w: token type mismatch: %s", model.ErrTokenInvalid, claims.TokenType)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return model.Identity{}, fmt.Errorf("%w: bad subject", model.ErrTokenInvalid)
	}

	return model.Identity{Domain: claims.Domain, UserID: userID, AppID: claims.AppID}, nil
}

// GenerateRefreshToken returns an opaque random token and its hash. Only
// the hash may be persisted.
func (j *JWT) GenerateRefreshToken() (string, string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	raw := hex.EncodeToString(buf)
	return raw, j.HashRefreshToken(raw), nil
}

// HashRefreshToken returns the hex SHA-256 digest of a raw refresh token.
func (j *JWT) HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
