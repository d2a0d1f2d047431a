package model

import "context"

// Identity is the verified subject of an access token.
type Identity struct {
	Domain Domain
	UserID int64
	AppID  int64
}

// Scope returns the scope the identity was issued for.
func (i Identity) Scope() Scope {
	if i.Domain == DomainApp {
		return AppScope(i.AppID)
	}
	return ServiceScope()
}

// TokenPair is returned by login, register and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenManager signs and verifies access tokens and mints opaque refresh tokens.
type TokenManager interface {
	GenerateAccessToken(ctx context.Context, subject Identity) (string, error)
	GenerateRefreshToken() (raw string, tokenHash string, err error)
	HashRefreshToken(raw string) string
	ParseAccessToken(ctx context.Context, token string, domain Domain) (Identity, error)
}

// SecretResolver returns the HMAC key that signs tokens of the given scope.
type SecretResolver interface {
	Resolve(ctx context.Context, scope Scope) ([]byte, error)
}
