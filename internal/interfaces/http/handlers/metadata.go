// internal/interfaces/http/handlers/metadata.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
)

// MetadataService manages genres, stars, directors and certifications
type MetadataService interface {
	List(ctx context.Context, kind movie.Kind) ([]movie.MetadataItem, error)
	Create(ctx context.Context, actor auth.Actor, kind movie.Kind, req *movie.MetadataRequest) (*movie.MetadataItem, error)
	Update(ctx context.Context, actor auth.Actor, kind movie.Kind, id uint, req *movie.MetadataRequest) (*movie.MetadataItem, error)
	Delete(ctx context.Context, actor auth.Actor, kind movie.Kind, id uint) error
}

// MetadataHandler serves one metadata dictionary
type MetadataHandler struct {
	metadataService MetadataService
	kind            movie.Kind
	logger          *logrus.Logger
}

// NewMetadataHandler creates a handler for the given metadata kind
func NewMetadataHandler(metadataService MetadataService, kind movie.Kind, logger *logrus.Logger) *MetadataHandler {
	return &MetadataHandler{
		metadataService: metadataService,
		kind:            kind,
		logger:          logger,
	}
}

// List handles GET /{kind}s
func (h *MetadataHandler) List(c *gin.Context) {
	items, err := h.metadataService.List(c.Request.Context(), h.kind)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// Create handles POST /{kind}s
func (h *MetadataHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req movie.MetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.metadataService.Create(c.Request.Context(), actor, h.kind, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// Update handles PUT /{kind}s/:id
func (h *MetadataHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", string(h.kind))
	if !ok {
		return
	}

	var req movie.MetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.metadataService.Update(c.Request.Context(), actor, h.kind, id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// Delete handles DELETE /{kind}s/:id
func (h *MetadataHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", string(h.kind))
	if !ok {
		return
	}

	if err := h.metadataService.Delete(c.Request.Context(), actor, h.kind, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
