package model

import "context"

// Permission names of the seeded catalog.
const (
	PermUsersRead       = "users.read"
	PermUsersManage     = "users.manage"
	PermRolesRead       = "roles.read"
	PermRolesManage     = "roles.manage"
	PermPermissionsRead = "permissions.read"
	PermRecoveryManage  = "recovery.manage"
)

// RoleStore defines the role and permission lookups used by access control.
type RoleStore interface {
	FindRolesWithPermissions(ctx context.Context, appID, userID int64) ([]Role, error)
	GetByIDs(ctx context.Context, appID int64, ids []int64) ([]Role, error)
	ReplaceUserRoles(ctx context.Context, appID, userID int64, roleIDs []int64) error
}

// Role groups permissions inside one application.
type Role struct {
	ID          int64
	AppID       int64
	Name        string
	Description string
	Permissions []Permission
}

// Permission is an entry of the global, pre-seeded catalog.
type Permission struct {
	ID          int64
	Name        string
	Description string
}
