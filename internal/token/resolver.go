package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/appauth-server/internal/model"
)

// ApplicationGetter loads the tenant record holding the sealed secret.
type ApplicationGetter interface {
	GetByID(ctx context.Context, id int64) (model.Application, error)
}

// Decrypter opens sealed tenant secrets.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

var _ model.SecretResolver = (*SecretResolver)(nil)

// SecretResolver resolves signing keys per scope. Tenant secrets are
// decrypted on every call and never kept beyond it.
type SecretResolver struct {
	globalSecret []byte
	apps         ApplicationGetter
	decrypter    Decrypter
}

// NewSecretResolver creates a resolver using globalSecret for service users
// and the sealed per-application secret for application users.
func NewSecretResolver(globalSecret string, apps ApplicationGetter, decrypter Decrypter) *SecretResolver {
	return &SecretResolver{
		globalSecret: []byte(globalSecret),
		apps:         apps,
		decrypter:    decrypter,
	}
}

// Resolve returns the HMAC key for scope.
func (r *SecretResolver) Resolve(ctx context.Context, scope model.Scope) ([]byte, error) {
	if !scope.IsApp() {
		if len(r.globalSecret) == 0 {
			return nil, errors.New("global secret is not configured")
		}
		return r.globalSecret, nil
	}

	app, err := r.apps.GetByID(ctx, scope.AppID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application %d: %w", scope.AppID, err)
	}

	secret, err := r.decrypter.Decrypt(app.EncryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secret of application %d: %w", scope.AppID, err)
	}

	return []byte(secret), nil
}
