package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/appauth-server/internal/api/http/middleware"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// ApplicationService manages tenants owned by service users.
type ApplicationService interface {
	Create(ctx context.Context, ownerID int64, name, description string) (model.Application, error)
	RegenerateSecret(ctx context.Context, ownerID, appID int64) error
}

// RoleService changes role assignments of application users.
type RoleService interface {
	AssignRoles(ctx context.Context, appID, userID int64, roleIDs []int64) ([]model.Role, error)
}

type createApplicationRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type applicationResponse struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type assignRolesRequest struct {
	RoleIDs []int64 `json:"roleIds"`
}

type roleResponse struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Application handles tenant management and role assignment.
type Application struct {
	applicationService ApplicationService
	roleService        RoleService
	logger             *logger.Logger
}

// NewApplication creates a new Application handler.
func NewApplication(applicationService ApplicationService, roleService RoleService, logger *logger.Logger) *Application {
	return &Application{applicationService: applicationService, roleService: roleService, logger: logger}
}

// Create registers an application owned by the authenticated service user.
// The signing secret never leaves the service.
func (h *Application) Create(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req createApplicationRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	app, err := h.applicationService.Create(c.Request.Context(), id.UserID, req.Name, req.Description)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, applicationResponse{
		ID:          app.ID,
		OwnerID:     app.OwnerID,
		Name:        app.Name,
		Description: app.Description,
		CreatedAt:   app.CreatedAt,
	})
}

// RegenerateSecret rotates the signing secret, invalidating every token of
// the application's users.
func (h *Application) RegenerateSecret(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	appID, err := pathID(c, "appId")
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	if err := h.applicationService.RegenerateSecret(c.Request.Context(), id.UserID, appID); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AssignRoles replaces the roles of an application user.
func (h *Application) AssignRoles(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req assignRolesRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	roles, err := h.roleService.AssignRoles(c.Request.Context(), id.AppID, userID, req.RoleIDs)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	resp := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		names := make([]string, 0, len(role.Permissions))
		for _, p := range role.Permissions {
			names = append(names, p.Name)
		}
		resp = append(resp, roleResponse{ID: role.ID, Name: role.Name, Permissions: names})
	}
	c.JSON(http.StatusOK, resp)
}
