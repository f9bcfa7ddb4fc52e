// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/money"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	MovieID uint `json:"movie_id" binding:"required"`
}

// GetOrCreateCart returns the user's cart, persisting an empty one on first access
func (s *Service) GetOrCreateCart(ctx context.Context, userID uint) (*Cart, error) {
	db := s.db.WithContext(ctx)

	var cart Cart
	err := db.Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	// A concurrent first access may have created the row; keep whichever won.
	cart = Cart{UserID: userID}
	if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).Create(&cart).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	if cart.ID == 0 {
		if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			return nil, fmt.Errorf("failed to load cart: %w", err)
		}
	}
	return &cart, nil
}

// GetCart returns the user's cart with movie details and the live total
func (s *Service) GetCart(ctx context.Context, userID uint) (*CartResponse, error) {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var items []CartItem
	err = s.db.WithContext(ctx).
		Preload("Movie").
		Where("cart_id = ?", cart.ID).
		Order("added_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve cart items: %w", err)
	}

	return &CartResponse{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     items,
		ItemCount: len(items),
		Total:     calculateTotal(items),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}, nil
}

// AddItem puts a movie into the user's cart
func (s *Service) AddItem(ctx context.Context, userID, movieID uint) (*CartItem, error) {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var m movie.Movie
	if err := db.First(&m, movieID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Movie not found")
		}
		return nil, fmt.Errorf("failed to load movie: %w", err)
	}

	purchased, err := movie.IsPurchased(db, userID, movieID)
	if err != nil {
		return nil, err
	}
	if purchased {
		return nil, apperrors.Conflict("You have already purchased this movie")
	}

	var existing int64
	if err := db.Model(&CartItem{}).Where("cart_id = ? AND movie_id = ?", cart.ID, movieID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check cart item: %w", err)
	}
	if existing > 0 {
		return nil, apperrors.Conflict("Item already exists in cart")
	}

	item := CartItem{CartID: cart.ID, MovieID: movieID}
	if err := db.Omit("Movie").Create(&item).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("Item already exists in cart")
		}
		return nil, fmt.Errorf("failed to add item to cart: %w", err)
	}
	item.Movie = &m

	return &item, nil
}

// RemoveItem deletes one item of the user's cart. A second call is a 404.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID uint) error {
	cart, err := s.findCart(ctx, userID)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cart.ID).Delete(&CartItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("Item not found in cart")
	}
	return nil
}

// Clear deletes every item of the user's cart
func (s *Service) Clear(ctx context.Context, userID uint) error {
	cart, err := s.findCart(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// RemoveMovies drops movieIDs from the user's cart using tx and reports how
// many items were deleted. Order creation and payment settlement call it
// inside their own transactions.
func RemoveMovies(tx *gorm.DB, userID uint, movieIDs []uint) (int64, error) {
	if len(movieIDs) == 0 {
		return 0, nil
	}
	result := tx.Where("movie_id IN ? AND cart_id IN (SELECT id FROM carts WHERE user_id = ?)", movieIDs, userID).
		Delete(&CartItem{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to remove movies from cart: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Service) findCart(ctx context.Context, userID uint) (*Cart, error) {
	var cart Cart
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Cart not found")
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

func calculateTotal(items []CartItem) decimal.Decimal {
	prices := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		if item.Movie != nil {
			prices = append(prices, item.Movie.Price)
		}
	}
	return money.Sum(prices...)
}
