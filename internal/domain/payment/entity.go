// internal/domain/payment/entity.go
package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/domain/order"
	"github.com/your-org/cinema-backend/internal/domain/user"
)

// PaymentStatus represents the payment status
type PaymentStatus string

const (
	PaymentStatusSuccessful PaymentStatus = movie.PaymentStatusSuccessful
	PaymentStatusCanceled   PaymentStatus = "CANCELED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// Payment records the settlement of one order
type Payment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	UserID            uint            `gorm:"not null;index" json:"user_id"`
	OrderID           uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	Status            PaymentStatus   `gorm:"type:varchar(20);not null;default:'SUCCESSFUL';index" json:"status"`
	Amount            decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	ExternalPaymentID string          `gorm:"size:255;index" json:"external_payment_id"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Relationships
	User  *user.User    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Order *order.Order  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Items []PaymentItem `gorm:"foreignKey:PaymentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// PaymentItem is the amount paid for one order item
type PaymentItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	PaymentID      uint            `gorm:"not null;index" json:"payment_id"`
	OrderItemID    uint            `gorm:"not null;index" json:"order_item_id"`
	PriceAtPayment decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price_at_payment"`

	OrderItem *order.OrderItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"order_item,omitempty"`
}

func (Payment) TableName() string     { return "payments" }
func (PaymentItem) TableName() string { return "payment_items" }

// NewPayment builds the successful payment of a settled order
func NewPayment(o *order.Order, externalID string) *Payment {
	p := &Payment{
		UserID:            o.UserID,
		OrderID:           o.ID,
		Status:            PaymentStatusSuccessful,
		Amount:            o.TotalAmount,
		ExternalPaymentID: externalID,
	}
	for _, item := range o.Items {
		p.Items = append(p.Items, PaymentItem{
			OrderItemID:    item.ID,
			PriceAtPayment: item.PriceAtOrder,
		})
	}
	return p
}
