// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/domain/user"
)

// AccountService is the account flow behind the auth endpoints
type AccountService interface {
	Register(ctx context.Context, req *user.RegisterRequest) (*user.User, error)
	Activate(ctx context.Context, req *user.ActivateRequest) error
	RequestPasswordReset(ctx context.Context, req *user.PasswordResetRequest) error
	CompletePasswordReset(ctx context.Context, req *user.PasswordResetCompleteRequest) error
	Login(ctx context.Context, req *user.LoginRequest) (*user.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, userID uint, req *user.ChangePasswordRequest) error
	Me(ctx context.Context, userID uint) (*user.User, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	userService AccountService
	logger      *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService AccountService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
	}
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register handles POST /accounts/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	u, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully. Check your email to activate the account.",
		"data": gin.H{
			"id":    u.ID,
			"email": u.Email,
		},
	})
}

// Activate handles POST /accounts/activate
func (h *AuthHandler) Activate(c *gin.Context) {
	var req user.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.Activate(c.Request.Context(), &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User account activated successfully."})
}

// Login handles POST /accounts/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tokens, err := h.userService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Login successful",
		"data":    tokens,
	})
}

// RefreshToken handles POST /accounts/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	access, err := h.userService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Token refreshed successfully",
		"data":    gin.H{"access_token": access},
	})
}

// Logout handles POST /accounts/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// RequestPasswordReset handles POST /accounts/password-reset/request
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req user.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.RequestPasswordReset(c.Request.Context(), &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If you are registered, you will receive an email with instructions.",
	})
}

// CompletePasswordReset handles POST /accounts/password-reset/complete
func (h *AuthHandler) CompletePasswordReset(c *gin.Context) {
	var req user.PasswordResetCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.CompletePasswordReset(c.Request.Context(), &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully."})
}

// Me handles GET /accounts/me
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	u, err := h.userService.Me(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User retrieved successfully",
		"data":    u,
	})
}

// ChangePassword handles PUT /accounts/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req user.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), actor.UserID, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
