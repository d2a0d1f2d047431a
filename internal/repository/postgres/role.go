package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/dtroode/appauth-server/internal/model"
)

var _ model.RoleStore = (*RoleRepository)(nil)

type RoleRepository struct {
	db *Connection
}

func NewRoleRepository(db *Connection) *RoleRepository {
	return &RoleRepository{db: db}
}

const roleSelect = `
    SELECT r.id, r.app_id, r.name, r.description, p.id, p.name, p.description
    FROM roles r
    LEFT JOIN role_permissions rp ON rp.role_id = r.id
    LEFT JOIN permissions p ON p.id = rp.permission_id
`

func (r *RoleRepository) FindRolesWithPermissions(ctx context.Context, appID, userID int64) ([]model.Role, error) {
	query := roleSelect + `
    JOIN app_user_roles ur ON ur.role_id = r.id
    WHERE r.app_id = $1 AND ur.user_id = $2
    ORDER BY r.id, p.id
`
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, appID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	return scanRoles(rows)
}

func (r *RoleRepository) GetByIDs(ctx context.Context, appID int64, ids []int64) ([]model.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, appID)
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
	}

	query := roleSelect + `
    WHERE r.app_id = $1 AND r.id IN (` + strings.Join(placeholders, ", ") + `)
    ORDER BY r.id, p.id
`
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	return scanRoles(rows)
}

// ReplaceUserRoles sets the roles of an application user to roleIDs.
func (r *RoleRepository) ReplaceUserRoles(ctx context.Context, appID, userID int64, roleIDs []int64) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		q := r.db.conn(ctx)

		var exists bool
		err := q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM app_users WHERE id = $1 AND app_id = $2)`, userID, appID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return model.ErrNotFound
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM app_user_roles WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear roles: %w", err)
		}

		for _, roleID := range roleIDs {
			_, err := q.ExecContext(ctx,
				`INSERT INTO app_user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID)
			if err != nil {
				if hasPgCode(err, pgErrForeignKeyViolation) {
					return model.ErrNotFound
				}
				return fmt.Errorf("failed to assign role %d: %w", roleID, err)
			}
		}
		return nil
	})
}

func scanRoles(rows *sql.Rows) ([]model.Role, error) {
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var (
			role     model.Role
			permID   sql.NullInt64
			permName sql.NullString
			permDesc sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.AppID, &role.Name, &role.Description, &permID, &permName, &permDesc); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}

		if n := len(roles); n == 0 || roles[n-1].ID != role.ID {
			roles = append(roles, role)
		}
		if permID.Valid {
			last := &roles[len(roles)-1]
			last.Permissions = append(last.Permissions, model.Permission{
				ID:          permID.Int64,
				Name:        permName.String,
				Description: permDesc.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}
	return roles, nil
}
