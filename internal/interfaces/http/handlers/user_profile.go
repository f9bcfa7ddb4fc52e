// internal/interfaces/http/handlers/user_profile.go
package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/domain/user"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
)

// ProfileService creates and reads user profiles
type ProfileService interface {
	CreateProfile(ctx context.Context, actor auth.Actor, userID uint, req *user.ProfileRequest, avatar *multipart.FileHeader) (*user.Profile, error)
	GetProfile(ctx context.Context, userID uint) (*user.Profile, error)
}

// ProfileHandler handles user profile endpoints
type ProfileHandler struct {
	profileService ProfileService
	logger         *logrus.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService ProfileService, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// CreateProfile handles POST /profiles/users/:user_id (multipart form)
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id", "user")
	if !ok {
		return
	}

	var req user.ProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	avatar, err := c.FormFile("avatar")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		respondBindError(c, err)
		return
	}

	profile, err := h.profileService.CreateProfile(c.Request.Context(), actor, userID, &req, avatar)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Profile created successfully",
		"data":    profile,
	})
}

// GetProfile handles GET /profiles/users/:user_id
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := parseID(c, "user_id", "user")
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile retrieved successfully",
		"data":    profile,
	})
}
