// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/domain/user"
)

// Cart is the single shopping cart of a user
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User  *user.User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// CartItem references a movie by id; its price is read live from the catalog
type CartItem struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	CartID  uint      `gorm:"not null;uniqueIndex:idx_cart_item_cart_movie" json:"cart_id"`
	MovieID uint      `gorm:"not null;uniqueIndex:idx_cart_item_cart_movie;index" json:"movie_id"`
	AddedAt time.Time `gorm:"not null;autoCreateTime" json:"added_at"`

	Movie *movie.Movie `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"movie,omitempty"`
}

// CartResponse is a cart with its live total
type CartResponse struct {
	ID        uint            `json:"id"`
	UserID    uint            `json:"user_id"`
	Items     []CartItem      `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}
