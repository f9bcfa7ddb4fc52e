// internal/interfaces/http/handlers/order.go
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/order"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/pagination"
)

// OrderService creates and manages orders
type OrderService interface {
	CreateOrder(ctx context.Context, userID uint, req *order.CreateOrderRequest) (*order.Order, error)
	ListOrders(ctx context.Context, actor auth.Actor, req *order.OrderListRequest, page pagination.Params) (*order.OrderListResponse, error)
	GetOrder(ctx context.Context, actor auth.Actor, id uint) (*order.Order, error)
	CancelOrder(ctx context.Context, actor auth.Actor, id uint) (string, error)
	DeleteOrder(ctx context.Context, actor auth.Actor, id uint) error
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService OrderService
	config       *config.Config
	logger       *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService OrderService, cfg *config.Config, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		config:       cfg,
		logger:       logger,
	}
}

// CreateOrder handles POST /orders. Without a body the whole cart is ordered.
// The client is redirected to the payment page of the new order.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}

	created, err := h.orderService.CreateOrder(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	location := order.PaymentPath(created.ID)
	c.Header("Location", location)
	c.JSON(http.StatusSeeOther, gin.H{
		"message":  "Order created successfully",
		"order_id": created.ID,
		"redirect": location,
	})
}

// GetOrders handles GET /orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	page, ok := pageParams(c, h.config)
	if !ok {
		return
	}

	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.orderService.ListOrders(c.Request.Context(), actor, &req, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

// CancelOrder handles POST /orders/:id/cancel. Paid orders are redirected to
// the refund endpoint.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}

	redirect, err := h.orderService.CancelOrder(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if redirect != "" {
		c.Header("Location", redirect)
		c.JSON(http.StatusSeeOther, gin.H{
			"message":  "Order is paid. Request a refund to cancel it.",
			"redirect": redirect,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order canceled successfully."})
}

// DeleteOrder handles DELETE /orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "order")
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(c.Request.Context(), actor, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
