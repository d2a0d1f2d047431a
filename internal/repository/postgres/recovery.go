package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dtroode/appauth-server/internal/model"
)

var _ model.RecoveryStore = (*RecoveryRepository)(nil)

type RecoveryRepository struct {
	db *Connection
}

func NewRecoveryRepository(db *Connection) *RecoveryRepository {
	return &RecoveryRepository{db: db}
}

func (r *RecoveryRepository) Create(ctx context.Context, domain model.Domain, recovery model.Recovery) (model.Recovery, error) {
	query := `
        INSERT INTO ` + recoveriesTable(domain) + ` (user_id, question, answer_hash)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at
    `
	err := r.db.conn(ctx).QueryRowContext(ctx, query, recovery.UserID, recovery.Question, recovery.AnswerHash).
		Scan(&recovery.ID, &recovery.CreatedAt, &recovery.UpdatedAt)
	if err != nil {
		if hasPgCode(err, pgErrForeignKeyViolation) {
			return model.Recovery{}, model.ErrNotFound
		}
		return model.Recovery{}, fmt.Errorf("failed to create recovery: %w", err)
	}
	return recovery, nil
}

func (r *RecoveryRepository) GetByID(ctx context.Context, domain model.Domain, id int64) (model.Recovery, error) {
	query := `
        SELECT id, user_id, question, answer_hash, created_at, updated_at
        FROM ` + recoveriesTable(domain) + ` WHERE id = $1
    `
	var rec model.Recovery
	err := r.db.conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.UserID, &rec.Question, &rec.AnswerHash, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Recovery{}, model.ErrNotFound
		}
		return model.Recovery{}, fmt.Errorf("failed to get recovery: %w", err)
	}
	return rec, nil
}

func (r *RecoveryRepository) ListByUser(ctx context.Context, domain model.Domain, userID int64) ([]model.Recovery, error) {
	query := `
        SELECT id, user_id, question, answer_hash, created_at, updated_at
        FROM ` + recoveriesTable(domain) + ` WHERE user_id = $1
        ORDER BY id
    `
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recoveries: %w", err)
	}
	defer rows.Close()

	var list []model.Recovery
	for rows.Next() {
		var rec model.Recovery
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Question, &rec.AnswerHash, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recovery: %w", err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recoveries: %w", err)
	}
	return list, nil
}

func (r *RecoveryRepository) Update(ctx context.Context, domain model.Domain, recovery model.Recovery) error {
	query := `
        UPDATE ` + recoveriesTable(domain) + `
        SET question = $1, answer_hash = $2, updated_at = NOW()
        WHERE id = $3 AND user_id = $4
    `
	res, err := r.db.conn(ctx).ExecContext(ctx, query, recovery.Question, recovery.AnswerHash, recovery.ID, recovery.UserID)
	if err != nil {
		return fmt.Errorf("failed to update recovery: %w", err)
	}
	return rowsAffected(res)
}

func (r *RecoveryRepository) Delete(ctx context.Context, domain model.Domain, id int64) error {
	res, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM `+recoveriesTable(domain)+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recovery: %w", err)
	}
	return rowsAffected(res)
}
