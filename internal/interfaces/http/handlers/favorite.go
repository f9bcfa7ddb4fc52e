// internal/interfaces/http/handlers/favorite.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/favorite"
	"github.com/your-org/cinema-backend/internal/pkg/pagination"
)

// FavoriteService manages the user's saved movies
type FavoriteService interface {
	Add(ctx context.Context, userID, movieID uint) (*favorite.MovieFavorite, error)
	Remove(ctx context.Context, userID, movieID uint) error
	List(ctx context.Context, userID uint, page pagination.Params) (*favorite.FavoriteListResponse, error)
	IsFavorite(ctx context.Context, userID, movieID uint) (bool, error)
}

// FavoriteHandler handles favorite endpoints
type FavoriteHandler struct {
	favoriteService FavoriteService
	config          *config.Config
	logger          *logrus.Logger
}

// NewFavoriteHandler creates a new favorite handler
func NewFavoriteHandler(favoriteService FavoriteService, cfg *config.Config, logger *logrus.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		favoriteService: favoriteService,
		config:          cfg,
		logger:          logger,
	}
}

// GetFavorites handles GET /favorites
func (h *FavoriteHandler) GetFavorites(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	page, ok := pageParams(c, h.config)
	if !ok {
		return
	}

	response, err := h.favoriteService.List(c.Request.Context(), actor.UserID, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// CheckFavorite handles GET /movies/:id/favorite
func (h *FavoriteHandler) CheckFavorite(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	movieID, ok := parseID(c, "id", "movie")
	if !ok {
		return
	}

	isFavorite, err := h.favoriteService.IsFavorite(c.Request.Context(), actor.UserID, movieID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movie_id":    movieID,
		"is_favorite": isFavorite,
	})
}

// AddFavorite handles POST /movies/:id/favorite
func (h *FavoriteHandler) AddFavorite(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	movieID, ok := parseID(c, "id", "movie")
	if !ok {
		return
	}

	fav, err := h.favoriteService.Add(c.Request.Context(), actor.UserID, movieID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, fav)
}

// RemoveFavorite handles DELETE /movies/:id/favorite
func (h *FavoriteHandler) RemoveFavorite(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	movieID, ok := parseID(c, "id", "movie")
	if !ok {
		return
	}

	if err := h.favoriteService.Remove(c.Request.Context(), actor.UserID, movieID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
