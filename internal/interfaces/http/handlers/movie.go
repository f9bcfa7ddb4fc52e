// internal/interfaces/http/handlers/movie.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/pagination"
)

// MovieService is the catalog
type MovieService interface {
	ListMovies(ctx context.Context, req *movie.MovieListRequest, page pagination.Params) (*movie.MovieListResponse, error)
	GetMovie(ctx context.Context, id uint) (*movie.MovieDetail, error)
	PurchasedMovies(ctx context.Context, userID uint) ([]movie.Movie, error)
	CreateMovie(ctx context.Context, actor auth.Actor, req *movie.MovieRequest) (*movie.Movie, error)
	UpdateMovie(ctx context.Context, actor auth.Actor, id uint, req *movie.MovieUpdateRequest) (*movie.Movie, error)
	DeleteMovie(ctx context.Context, actor auth.Actor, id uint) error
}

// MovieHandler handles catalog endpoints
type MovieHandler struct {
	movieService MovieService
	config       *config.Config
	logger       *logrus.Logger
}

// NewMovieHandler creates a new movie handler
func NewMovieHandler(movieService MovieService, cfg *config.Config, logger *logrus.Logger) *MovieHandler {
	return &MovieHandler{
		movieService: movieService,
		config:       cfg,
		logger:       logger,
	}
}

// ListMovies handles GET /movies
func (h *MovieHandler) ListMovies(c *gin.Context) {
	page, ok := pageParams(c, h.config)
	if !ok {
		return
	}

	var req movie.MovieListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.movieService.ListMovies(c.Request.Context(), &req, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetMovie handles GET /movies/:id
func (h *MovieHandler) GetMovie(c *gin.Context) {
	id, ok := parseID(c, "id", "movie")
	if !ok {
		return
	}

	detail, err := h.movieService.GetMovie(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// PurchasedMovies handles GET /movies/purchased
func (h *MovieHandler) PurchasedMovies(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	movies, err := h.movieService.PurchasedMovies(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movies": movies,
		"count":  len(movies),
	})
}

// CreateMovie handles POST /movies
func (h *MovieHandler) CreateMovie(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req movie.MovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	created, err := h.movieService.CreateMovie(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateMovie handles PUT /movies/:id
func (h *MovieHandler) UpdateMovie(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "movie")
	if !ok {
		return
	}

	var req movie.MovieUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.movieService.UpdateMovie(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteMovie handles DELETE /movies/:id
func (h *MovieHandler) DeleteMovie(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "movie")
	if !ok {
		return
	}

	if err := h.movieService.DeleteMovie(c.Request.Context(), actor, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
