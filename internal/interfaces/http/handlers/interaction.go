// internal/interfaces/http/handlers/interaction.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/domain/interaction"
	"github.com/your-org/cinema-backend/internal/interfaces/http/middleware"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
)

// InteractionService covers likes, ratings and comments
type InteractionService interface {
	SetLike(ctx context.Context, userID, movieID uint, likeType interaction.LikeType) (*interaction.MovieLike, error)
	RemoveLike(ctx context.Context, userID, movieID uint) error
	Rate(ctx context.Context, userID, movieID uint, rating int) (*interaction.MovieRating, error)
	AddComment(ctx context.Context, userID, movieID uint, req *interaction.CommentRequest) (*interaction.MovieComment, error)
	ListComments(ctx context.Context, movieID, viewerID uint) ([]interaction.MovieComment, error)
	DeleteComment(ctx context.Context, actor auth.Actor, commentID uint) error
	LikeComment(ctx context.Context, userID, commentID uint) (*interaction.CommentLike, error)
	UnlikeComment(ctx context.Context, userID, commentID uint) error
}

// InteractionHandler handles the social endpoints of movies and comments
type InteractionHandler struct {
	interactionService InteractionService
	logger             *logrus.Logger
}

// NewInteractionHandler creates a new interaction handler
func NewInteractionHandler(interactionService InteractionService, logger *logrus.Logger) *InteractionHandler {
	return &InteractionHandler{
		interactionService: interactionService,
		logger:             logger,
	}
}

// SetLike handles POST /movies/:id/like
func (h *InteractionHandler) SetLike(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	movieID, ok := parseID(c, "id", "movie")
	if !ok {
		return
	}

	var req interaction.LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	like, err := h.interactionService.SetLike(c.Request.Context(), actor.UserID, movieID, req.LikeType)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, like)
}

// RemoveLike handles DELETE /movies/:id/like
func (h *InteractionHandler) RemoveLike(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	movieID, ok := parseID(c, "id", "movie")
	if !ok {
		return
	}

	if err := h.interactionService.RemoveLike(c.Request.Context(), actor.UserID, movieID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Rate handles POST /movies/:id/rating
func (h *InteractionHandler) Rate(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	movieID, ok := parseID(c, "id", "movie")
	if !ok {
		return
	}

	var req interaction.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rating, err := h.interactionService.Rate(c.Request.Context(), actor.UserID, movieID, req.Rating)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, rating)
}

// ListComments handles GET /movies/:id/comments. Authentication is optional
// and only marks the comments the viewer liked.
func (h *InteractionHandler) ListComments(c *gin.Context) {
	movieID, ok := parseID(c, "id", "movie")
	if !ok {
		return
	}
	viewerID, _ := middleware.GetUserIDFromContext(c)

	comments, err := h.interactionService.ListComments(c.Request.Context(), movieID, viewerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, comments)
}

// AddComment handles POST /movies/:id/comments
func (h *InteractionHandler) AddComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	movieID, ok := parseID(c, "id", "movie")
	if !ok {
		return
	}

	var req interaction.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	comment, err := h.interactionService.AddComment(c.Request.Context(), actor.UserID, movieID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// DeleteComment handles DELETE /comments/:id
func (h *InteractionHandler) DeleteComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	if err := h.interactionService.DeleteComment(c.Request.Context(), actor, commentID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// LikeComment handles POST /comments/:id/like
func (h *InteractionHandler) LikeComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	like, err := h.interactionService.LikeComment(c.Request.Context(), actor.UserID, commentID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, like)
}

// UnlikeComment handles DELETE /comments/:id/like
func (h *InteractionHandler) UnlikeComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	if err := h.interactionService.UnlikeComment(c.Request.Context(), actor.UserID, commentID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
