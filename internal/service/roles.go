package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// Roles changes role assignments of application users.
type Roles struct {
	users  model.UserStore
	roles  model.RoleStore
	tx     model.Transactor
	logger *logger.Logger
}

func NewRoles(users model.UserStore, roles model.RoleStore, tx model.Transactor, logger *logger.Logger) *Roles {
	return &Roles{users: users, roles: roles, tx: tx, logger: logger}
}

// AssignRoles replaces the roles of an application user. Every role must
// belong to appID.
func (s *Roles) AssignRoles(ctx context.Context, appID, userID int64, roleIDs []int64) ([]model.Role, error) {
	ids := uniqueIDs(roleIDs)

	var assigned []model.Role
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByID(ctx, model.AppScope(appID), userID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return apierrors.NewErrUserNotFound()
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		roles, err := s.roles.GetByIDs(ctx, appID, ids)
		if err != nil {
			return fmt.Errorf("failed to get roles: %w", err)
		}
		if len(roles) != len(ids) {
			return apierrors.NewErrRoleNotFound()
		}

		if err := s.roles.ReplaceUserRoles(ctx, appID, userID, ids); err != nil {
			return fmt.Errorf("failed to replace roles: %w", err)
		}
		assigned = roles
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Roles service: roles assigned",
		"app_id", appID,
		"user_id", userID,
		"roles", ids)

	return assigned, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
