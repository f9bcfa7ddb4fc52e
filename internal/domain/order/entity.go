// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/domain/user"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// transitions lists the statuses each status may move to. PAID -> CANCELED
// is only taken by the refund flow.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCanceled},
	OrderStatusPaid:    {OrderStatusCanceled},
}

// Order represents a purchase of one or more movies
type Order struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"total_amount"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Relationships
	User          *user.User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem snapshots the movie price at order time
type OrderItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OrderID      uint            `gorm:"not null;uniqueIndex:idx_order_item_order_movie" json:"order_id"`
	MovieID      uint            `gorm:"not null;uniqueIndex:idx_order_item_order_movie;index" json:"movie_id"`
	PriceAtOrder decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price_at_order"`

	Movie *movie.Movie `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"movie,omitempty"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy uint        `gorm:"index" json:"created_by"` // User ID who made the change
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// CanTransitionTo reports whether the order may move to status
func (o *Order) CanTransitionTo(status OrderStatus) bool {
	for _, allowed := range transitions[o.Status] {
		if allowed == status {
			return true
		}
	}
	return false
}

// TransitionError describes a refused status change
func (o *Order) TransitionError(to OrderStatus) string {
	return fmt.Sprintf("Cannot change order status from %s to %s.", o.Status, to)
}

// MovieIDs returns the movies covered by the order
func (o *Order) MovieIDs() []uint {
	ids := make([]uint, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.MovieID)
	}
	return ids
}

// NewStatusHistory builds a history row for a status change
func NewStatusHistory(orderID uint, status OrderStatus, comment string, createdBy uint) OrderStatusHistory {
	return OrderStatusHistory{
		OrderID:   orderID,
		Status:    status,
		Comment:   comment,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
}
