// internal/interfaces/http/handlers/user_admin.go
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/user"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/pagination"
)

// UserAdminService is the administrator side of account management
type UserAdminService interface {
	ListUsers(ctx context.Context, actor auth.Actor, req *user.UserListRequest, page pagination.Params) (*user.UserListResponse, error)
	ExportUsers(ctx context.Context, actor auth.Actor, req *user.UserListRequest) ([]byte, string, error)
	AdminActivate(ctx context.Context, actor auth.Actor, userID uint) error
	ChangeGroup(ctx context.Context, actor auth.Actor, userID uint, group string) error
}

// UserAdminHandler handles admin user management endpoints
type UserAdminHandler struct {
	adminService UserAdminService
	config       *config.Config
	logger       *logrus.Logger
}

// NewUserAdminHandler creates a new user admin handler
func NewUserAdminHandler(adminService UserAdminService, cfg *config.Config, logger *logrus.Logger) *UserAdminHandler {
	return &UserAdminHandler{
		adminService: adminService,
		config:       cfg,
		logger:       logger,
	}
}

// ListUsers handles GET /admin/users
func (h *UserAdminHandler) ListUsers(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	page, ok := pageParams(c, h.config)
	if !ok {
		return
	}

	var req user.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.adminService.ListUsers(c.Request.Context(), actor, &req, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Users retrieved successfully",
		"data":    response,
	})
}

// ExportUsers handles GET /admin/users/export
func (h *UserAdminHandler) ExportUsers(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req user.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	data, filename, err := h.adminService.ExportUsers(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// ActivateUser handles POST /accounts/:id/activate
func (h *UserAdminHandler) ActivateUser(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	userID, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	if err := h.adminService.AdminActivate(c.Request.Context(), actor, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User account activated successfully."})
}

// ChangeGroup handles POST /accounts/:id/change-group
func (h *UserAdminHandler) ChangeGroup(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	userID, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	var req user.ChangeGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.adminService.ChangeGroup(c.Request.Context(), actor, userID, req.Group); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User group changed to %s.", req.Group)})
}
