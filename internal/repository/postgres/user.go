package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dtroode/appauth-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, scope model.Scope, email string) (model.User, error) {
	return r.getOne(ctx, scope, "email", email)
}

func (r *UserRepository) GetByID(ctx context.Context, scope model.Scope, id int64) (model.User, error) {
	return r.getOne(ctx, scope, "id", id)
}

func (r *UserRepository) Create(ctx context.Context, scope model.Scope, user model.User) (model.User, error) {
	var row *sql.Row
	if scope.IsApp() {
		const query = `
            INSERT INTO app_users (app_id, email, password_hash)
            VALUES ($1, $2, $3)
            RETURNING id, created_at, updated_at
        `
		row = r.db.conn(ctx).QueryRowContext(ctx, query, scope.AppID, user.Email, user.PasswordHash)
	} else {
		const query = `
            INSERT INTO service_users (email, password_hash)
            VALUES ($1, $2)
            RETURNING id, created_at, updated_at
        `
		row = r.db.conn(ctx).QueryRowContext(ctx, query, user.Email, user.PasswordHash)
	}

	if err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if hasPgCode(err, pgErrUniqueViolation) {
			return model.User{}, model.ErrConflict
		}
		if hasPgCode(err, pgErrForeignKeyViolation) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	user.AppID = scope.AppID

	return user, nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, scope model.Scope, id int64, passwordHash string) error {
	query := `UPDATE ` + usersTable(scope.Domain) + ` SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	args := []any{passwordHash, id}
	if scope.IsApp() {
		query += ` AND app_id = $3`
		args = append(args, scope.AppID)
	}

	res, err := r.db.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	return rowsAffected(res)
}

func (r *UserRepository) Exists(ctx context.Context, scope model.Scope, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ` + usersTable(scope.Domain) + ` WHERE email = $1`
	args := []any{email}
	if scope.IsApp() {
		query += ` AND app_id = $2`
		args = append(args, scope.AppID)
	}
	query += `)`

	var exists bool
	if err := r.db.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) getOne(ctx context.Context, scope model.Scope, column string, value any) (model.User, error) {
	var (
		query string
		args  []any
	)
	if scope.IsApp() {
		query = `
            SELECT id, app_id, email, password_hash, banned, created_at, updated_at
            FROM app_users WHERE app_id = $1 AND ` + column + ` = $2
        `
		args = []any{scope.AppID, value}
	} else {
		query = `
            SELECT id, 0::BIGINT, email, password_hash, banned, created_at, updated_at
            FROM service_users WHERE ` + column + ` = $1
        `
		args = []any{value}
	}

	var u model.User
	err := r.db.conn(ctx).QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.AppID, &u.Email, &u.PasswordHash, &u.Banned, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return u, nil
}
