// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/domain/cart"
)

// CartService manages the user's cart
type CartService interface {
	GetCart(ctx context.Context, userID uint) (*cart.CartResponse, error)
	AddItem(ctx context.Context, userID, movieID uint) (*cart.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uint) error
	Clear(ctx context.Context, userID uint) error
}

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService CartService
	logger      *logrus.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService CartService, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	response, err := h.cartService.GetCart(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.cartService.AddItem(c.Request.Context(), actor.UserID, req.MovieID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "id", "cart item")
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), actor.UserID, itemID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.cartService.Clear(c.Request.Context(), actor.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
