package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dtroode/appauth-server/internal/model"
)

var _ model.ApplicationStore = (*ApplicationRepository)(nil)

type ApplicationRepository struct {
	db *Connection
}

func NewApplicationRepository(db *Connection) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (model.Application, error) {
	const query = `
        SELECT id, owner_id, name, description, encrypted_secret, created_at, updated_at
        FROM applications WHERE id = $1
    `
	var app model.Application
	err := r.db.conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&app.ID, &app.OwnerID, &app.Name, &app.Description, &app.EncryptedSecret, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Application{}, model.ErrNotFound
		}
		return model.Application{}, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

func (r *ApplicationRepository) Create(ctx context.Context, app model.Application) (model.Application, error) {
	const query = `
        INSERT INTO applications (owner_id, name, description, encrypted_secret)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `
	err := r.db.conn(ctx).QueryRowContext(ctx, query, app.OwnerID, app.Name, app.Description, app.EncryptedSecret).
		Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if hasPgCode(err, pgErrUniqueViolation) {
			return model.Application{}, model.ErrConflict
		}
		return model.Application{}, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}

func (r *ApplicationRepository) UpdateSecret(ctx context.Context, id int64, encryptedSecret string) error {
	const query = `UPDATE applications SET encrypted_secret = $1, updated_at = NOW() WHERE id = $2`

	res, err := r.db.conn(ctx).ExecContext(ctx, query, encryptedSecret, id)
	if err != nil {
		return fmt.Errorf("failed to update application secret: %w", err)
	}
	return rowsAffected(res)
}
