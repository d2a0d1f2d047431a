package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/appauth-server/internal/api/http/middleware"
	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// AuthService defines registration, login and password change.
type AuthService interface {
	Register(ctx context.Context, scope model.Scope, email, password string) (model.TokenPair, error)
	Login(ctx context.Context, scope model.Scope, email, password string) (model.TokenPair, error)
	ChangePassword(ctx context.Context, scope model.Scope, userID int64, current, next string) error
}

// TokenService defines refresh token rotation and logout.
type TokenService interface {
	Refresh(ctx context.Context, scope model.Scope, refreshToken string) (model.TokenPair, error)
	Revoke(ctx context.Context, scope model.Scope, refreshToken string) error
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type meResponse struct {
	Domain      model.Domain `json:"domain"`
	UserID      int64        `json:"userId"`
	AppID       int64        `json:"appId,omitempty"`
	Email       string       `json:"email"`
	Permissions []string     `json:"permissions"`
}

// Auth handles authentication endpoints of both identity domains.
type Auth struct {
	authService  AuthService
	tokenService TokenService
	logger       *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, tokenService TokenService, logger *logger.Logger) *Auth {
	return &Auth{authService: authService, tokenService: tokenService, logger: logger}
}

// Register creates a user and returns its first token pair.
func (h *Auth) Register(c *gin.Context) {
	scope, err := pathScope(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	pair, err := h.authService.Register(c.Request.Context(), scope, req.Email, req.Password)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, pair)
}

// Login exchanges credentials for a token pair.
func (h *Auth) Login(c *gin.Context) {
	scope, err := pathScope(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), scope, req.Email, req.Password)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh rotates a refresh token.
func (h *Auth) Refresh(c *gin.Context) {
	scope, err := pathScope(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	pair, err := h.tokenService.Refresh(c.Request.Context(), scope, req.RefreshToken)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout revokes a refresh token. Unknown tokens are accepted.
func (h *Auth) Logout(c *gin.Context) {
	scope, err := pathScope(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	if err := h.tokenService.Revoke(c.Request.Context(), scope, req.RefreshToken); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangePassword replaces the password of the authenticated user.
func (h *Auth) ChangePassword(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req changePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	err = h.authService.ChangePassword(c.Request.Context(), id.Scope(), id.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated application user with its permissions.
func (h *Auth) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		middleware.AbortWithError(c, h.logger, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	c.JSON(http.StatusOK, meResponse{
		Domain:      principal.Identity.Domain,
		UserID:      principal.User.ID,
		AppID:       principal.User.AppID,
		Email:       principal.User.Email,
		Permissions: principal.Permissions.Names(),
	})
}
