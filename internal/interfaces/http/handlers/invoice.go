// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/domain/order"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/pdf"
)

// InvoiceOrders loads a paid order with everything a receipt shows
type InvoiceOrders interface {
	InvoiceOrder(ctx context.Context, actor auth.Actor, id uint) (*order.Order, error)
}

// ReceiptRenderer turns an order into a receipt
type ReceiptRenderer interface {
	BuildReceipt(o *order.Order) pdf.ReceiptData
	GenerateReceipt(o *order.Order) (*bytes.Buffer, error)
}

// InvoiceHandler handles receipt endpoints
type InvoiceHandler struct {
	orderService InvoiceOrders
	pdfService   ReceiptRenderer
	logger       *logrus.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService InvoiceOrders, pdfService ReceiptRenderer, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		pdfService:   pdfService,
		logger:       logger,
	}
}

// GenerateInvoice handles GET /orders/:id/invoice
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	o, ok := h.load(c)
	if !ok {
		return
	}

	pdfBuffer, err := h.pdfService.GenerateReceipt(o)
	if err != nil {
		respondError(c, h.logger, apperrors.Internal("Failed to generate receipt", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%d.pdf", o.ID))
	c.Header("Content-Length", strconv.Itoa(pdfBuffer.Len()))
	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}

// GetInvoiceData handles GET /orders/:id/invoice/data
func (h *InvoiceHandler) GetInvoiceData(c *gin.Context) {
	o, ok := h.load(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.pdfService.BuildReceipt(o))
}

func (h *InvoiceHandler) load(c *gin.Context) (*order.Order, bool) {
	actor, ok := requireActor(c)
	if !ok {
		return nil, false
	}
	id, ok := parseID(c, "id", "order")
	if !ok {
		return nil, false
	}

	o, err := h.orderService.InvoiceOrder(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	return o, true
}
