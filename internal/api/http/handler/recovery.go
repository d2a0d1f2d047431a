package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/appauth-server/internal/api/http/middleware"
	"github.com/dtroode/appauth-server/internal/logger"
	"github.com/dtroode/appauth-server/internal/model"
)

// RecoveryService manages security questions and password reset.
type RecoveryService interface {
	Add(ctx context.Context, scope model.Scope, userID int64, question, answer string) (model.RecoveryQuestion, error)
	List(ctx context.Context, scope model.Scope, userID int64) ([]model.RecoveryQuestion, error)
	Ask(ctx context.Context, scope model.Scope, email string) ([]model.RecoveryQuestion, error)
	Reset(ctx context.Context, scope model.Scope, recoveryID int64, email, answer, newPassword string) error
	Update(ctx context.Context, scope model.Scope, userID, recoveryID int64, currentPassword, question, answer string) error
	Remove(ctx context.Context, scope model.Scope, userID, recoveryID int64, currentPassword string) error
}

type addRecoveryRequest struct {
	Question string `json:"question" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
}

type updateRecoveryRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	Question        string `json:"question"`
	Answer          string `json:"answer"`
}

type removeRecoveryRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
}

type askRecoveryRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetPasswordRequest struct {
	RecoveryID  int64  `json:"recoveryId" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Answer      string `json:"answer" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// Recovery handles security question endpoints.
type Recovery struct {
	recoveryService RecoveryService
	logger          *logger.Logger
}

// NewRecovery creates a new Recovery handler.
func NewRecovery(recoveryService RecoveryService, logger *logger.Logger) *Recovery {
	return &Recovery{recoveryService: recoveryService, logger: logger}
}

func (h *Recovery) Add(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req addRecoveryRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	question, err := h.recoveryService.Add(c.Request.Context(), id.Scope(), id.UserID, req.Question, req.Answer)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

func (h *Recovery) List(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	questions, err := h.recoveryService.List(c.Request.Context(), id.Scope(), id.UserID)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(questions))
}

// Ask returns the questions registered for an email. It is public.
func (h *Recovery) Ask(c *gin.Context) {
	scope, err := pathScope(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req askRecoveryRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	questions, err := h.recoveryService.Ask(c.Request.Context(), scope, req.Email)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(questions))
}

// Reset sets a new password after a correct answer. It is public.
func (h *Recovery) Reset(c *gin.Context) {
	scope, err := pathScope(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req resetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	err = h.recoveryService.Reset(c.Request.Context(), scope, req.RecoveryID, req.Email, req.Answer, req.NewPassword)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Recovery) Update(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	recoveryID, err := pathID(c, "id")
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req updateRecoveryRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	err = h.recoveryService.Update(c.Request.Context(), id.Scope(), id.UserID, recoveryID,
		req.CurrentPassword, req.Question, req.Answer)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Recovery) Remove(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	recoveryID, err := pathID(c, "id")
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	var req removeRecoveryRequest
	if err := bindJSON(c, &req); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}

	if err := h.recoveryService.Remove(c.Request.Context(), id.Scope(), id.UserID, recoveryID, req.CurrentPassword); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func nonNil(questions []model.RecoveryQuestion) []model.RecoveryQuestion {
	if questions == nil {
		return []model.RecoveryQuestion{}
	}
	return questions
}
