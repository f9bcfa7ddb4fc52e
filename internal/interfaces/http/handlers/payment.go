// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/domain/payment"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
)

const stripeSignatureHeader = "Stripe-Signature"

// PaymentService runs checkout, settlement and refunds
type PaymentService interface {
	InitiateCheckout(ctx context.Context, actor auth.Actor, orderID uint) (*payment.CheckoutResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	SessionStatus(ctx context.Context, sessionID string) (*payment.StatusResponse, error)
	CancelAbandoned(ctx context.Context, userID uint) (*payment.StatusResponse, error)
	Refund(ctx context.Context, actor auth.Actor, orderID uint) (*payment.RefundResponse, error)
	History(ctx context.Context, userID uint) ([]payment.Payment, error)
}

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	paymentService PaymentService
	logger         *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Pay handles GET /payments/pay?order_id= by redirecting to the hosted checkout page
func (h *PaymentHandler) Pay(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseUint(c.Query("order_id"), 10, 32)
	if err != nil || orderID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	checkout, err := h.paymentService.InitiateCheckout(c.Request.Context(), actor, uint(orderID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Redirect(http.StatusSeeOther, checkout.RedirectURL)
}

// Webhook handles POST /payments/webhook. The raw body is needed for the
// signature check, so it is read before any binding.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), payload, c.GetHeader(stripeSignatureHeader)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// Success handles GET /payments/success?session_id=
func (h *PaymentHandler) Success(c *gin.Context) {
	status, err := h.paymentService.SessionStatus(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Cancel handles GET /payments/cancel
func (h *PaymentHandler) Cancel(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	status, err := h.paymentService.CancelAbandoned(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Refund handles POST /payments/refund/:order_id
func (h *PaymentHandler) Refund(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c, "order_id", "order")
	if !ok {
		return
	}

	refund, err := h.paymentService.Refund(c.Request.Context(), actor, orderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, refund)
}

// History handles GET /payments/history
func (h *PaymentHandler) History(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.History(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"count":    len(payments),
	})
}
