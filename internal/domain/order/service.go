// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/cart"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/domain/user"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

// Service handles order business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// CreateOrderRequest lists the movies to order. A missing list orders the
// whole cart.
type CreateOrderRequest struct {
	MovieIDs []uint `json:"movie_ids"`
}

// OrderListRequest represents order list filters
type OrderListRequest struct {
	Users  []uint `form:"users"`
	Status string `form:"status"`
	Date   string `form:"date"` // YYYY-MM-DD
}

// OrderListResponse represents a page of orders
type OrderListResponse struct {
	Orders []Order `json:"orders"`
	pagination.Result
}

// PaymentPath is where a freshly created order is sent to pay
func PaymentPath(orderID uint) string {
	return "/api/v1/payments/pay?order_id=" + strconv.FormatUint(uint64(orderID), 10)
}

// RefundPath is where canceling a paid order is redirected
func RefundPath(orderID uint) string {
	return "/api/v1/payments/refund/" + strconv.FormatUint(uint64(orderID), 10)
}

// CreateOrder creates a PENDING order with the current prices of movieIDs
func (s *Service) CreateOrder(ctx context.Context, userID uint, req *CreateOrderRequest) (*Order, error) {
	db := s.db.WithContext(ctx)

	movieIDs := req.MovieIDs
	fromCart := movieIDs == nil
	if fromCart {
		ids, err := s.cartMovieIDs(db, userID)
		if err != nil {
			return nil, err
		}
		movieIDs = ids
	}

	if len(movieIDs) > 0 {
		var pending int64
		err := db.Model(&OrderItem{}).
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("orders.user_id = ? AND orders.status = ? AND order_items.movie_id IN ?", userID, OrderStatusPending, movieIDs).
			Count(&pending).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check pending orders: %w", err)
		}
		if pending > 0 {
			return nil, apperrors.BadRequest("You have pending orders with these movies")
		}
	}

	if len(movieIDs) == 0 {
		return nil, apperrors.Conflict("Your cart is empty")
	}

	// Start transaction
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order := Order{
		UserID:      userID,
		Status:      OrderStatusPending,
		TotalAmount: decimal.Zero,
	}
	if err := tx.Omit("Items", "StatusHistory").Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, s.integrityError(err, "failed to create order")
	}

	total := decimal.Zero
	for _, movieID := range movieIDs {
		item, err := s.addItem(tx, userID, order.ID, movieID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		order.Items = append(order.Items, *item)
		total = total.Add(item.PriceAtOrder)
	}

	order.TotalAmount = total
	if err := tx.Model(&Order{ID: order.ID}).Update("total_amount", total).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order total: %w", err)
	}

	history := NewStatusHistory(order.ID, OrderStatusPending, "Order created", userID)
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create status history: %w", err)
	}

	removed, err := cart.RemoveMovies(tx, userID, movieIDs)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	// Another checkout of the same cart committed first
	if fromCart && removed < int64(len(movieIDs)) {
		tx.Rollback()
		return nil, apperrors.Conflict("Your cart is empty")
	}

	if err := tx.Commit().Error; err != nil {
		return nil, s.integrityError(err, "failed to commit order transaction")
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"total":    total.StringFixed(2),
	}).Info("Order created")

	return &order, nil
}

func (s *Service) addItem(tx *gorm.DB, userID, orderID, movieID uint) (*OrderItem, error) {
	var m movie.Movie
	if err := tx.First(&m, movieID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("Movie with ID %d not found.", movieID))
		}
		return nil, fmt.Errorf("failed to load movie: %w", err)
	}

	purchased, err := movie.IsPurchased(tx, userID, movieID)
	if err != nil {
		return nil, err
	}
	if purchased {
		return nil, apperrors.Conflict(fmt.Sprintf("Movie with ID %d has already been purchased.", movieID))
	}

	var duplicate int64
	if err := tx.Model(&OrderItem{}).Where("order_id = ? AND movie_id = ?", orderID, movieID).Count(&duplicate).Error; err != nil {
		return nil, fmt.Errorf("failed to check order item: %w", err)
	}
	if duplicate > 0 {
		return nil, apperrors.Conflict(fmt.Sprintf("Duplicate purchase of movie with ID %d", movieID))
	}

	item := OrderItem{
		OrderID:      orderID,
		MovieID:      movieID,
		PriceAtOrder: m.Price,
	}
	if err := tx.Omit("Movie").Create(&item).Error; err != nil {
		return nil, s.integrityError(err, "failed to create order item")
	}
	item.Movie = &m
	return &item, nil
}

// integrityError maps constraint violations to the client error of order creation
func (s *Service) integrityError(err error, msg string) error {
	if apperrors.IsIntegrityViolation(err) {
		s.logger.WithError(err).Warn("Order creation rolled back on integrity violation")
		return apperrors.BadRequest("Invalid input data.")
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (s *Service) cartMovieIDs(db *gorm.DB, userID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&cart.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID).
		Order("cart_items.added_at ASC").
		Pluck("cart_items.movie_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	return ids, nil
}

// ListOrders lists orders visible to actor. Regular users only ever see
// their own orders; staff may filter by users.
func (s *Service) ListOrders(ctx context.Context, actor auth.Actor, req *OrderListRequest, page pagination.Params) (*OrderListResponse, error) {
	query := s.db.WithContext(ctx).Model(&Order{})
	extra := url.Values{}

	if actor.Can(auth.ActionViewAllOrders) {
		if len(req.Users) > 0 {
			query = query.Where("user_id IN ?", req.Users)
			for _, id := range req.Users {
				extra.Add("users", strconv.FormatUint(uint64(id), 10))
			}
		}
	} else {
		query = query.Where("user_id = ?", actor.UserID)
	}

	if req.Status != "" {
		status := OrderStatus(req.Status)
		if _, known := map[OrderStatus]bool{OrderStatusPending: true, OrderStatusPaid: true, OrderStatusCanceled: true}[status]; !known {
			return nil, apperrors.BadRequest("status must be one of: PENDING, PAID, CANCELED")
		}
		query = query.Where("status = ?", status)
		extra.Set("status", req.Status)
	}

	if req.Date != "" {
		day, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return nil, apperrors.BadRequest("date must be YYYY-MM-DD")
		}
		query = query.Where("created_at >= ? AND created_at < ?", day, day.Add(24*time.Hour))
		extra.Set("date", req.Date)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	if len(orders) == 0 {
		return nil, apperrors.NotFound("No orders found.")
	}

	return &OrderListResponse{
		Orders: orders,
		Result: pagination.Build("/api/v1/orders", page, total, extra),
	}, nil
}

// GetOrder returns an order the actor may view
func (s *Service) GetOrder(ctx context.Context, actor auth.Actor, id uint) (*Order, error) {
	order, err := s.find(s.db.WithContext(ctx).Preload("Items.Movie").Preload("StatusHistory"), id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(order.UserID) && !actor.Can(auth.ActionViewAllOrders) {
		return nil, apperrors.Forbidden("You don't have permission to view this order.")
	}
	return order, nil
}

// CancelOrder cancels a PENDING order. For a PAID order it returns the
// refund path the caller must be redirected to instead.
func (s *Service) CancelOrder(ctx context.Context, actor auth.Actor, id uint) (string, error) {
	db := s.db.WithContext(ctx)

	order, err := s.find(db, id)
	if err != nil {
		return "", err
	}
	if !actor.Owns(order.UserID) && !actor.Can(auth.ActionCancelAnyOrder) {
		return "", apperrors.Forbidden("You don't have permission to cancel this order.")
	}

	if order.Status == OrderStatusPaid {
		return RefundPath(order.ID), nil
	}
	if !order.CanTransitionTo(OrderStatusCanceled) {
		return "", apperrors.BadRequest(order.TransitionError(OrderStatusCanceled))
	}

	if err := s.transition(db, order, OrderStatusCanceled, "Order canceled", actor.UserID); err != nil {
		return "", err
	}
	return "", nil
}

// CancelLatestPending cancels the user's most recent PENDING order. It backs
// the checkout-abandoned flow and returns nil when there is nothing to cancel.
func (s *Service) CancelLatestPending(ctx context.Context, userID uint) (*Order, error) {
	db := s.db.WithContext(ctx)

	var order Order
	err := db.Where("user_id = ? AND status = ?", userID, OrderStatusPending).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load pending order: %w", err)
	}

	if err := s.transition(db, &order, OrderStatusCanceled, "Checkout canceled", userID); err != nil {
		return nil, err
	}
	return &order, nil
}

// transition moves order to status and records the change
func (s *Service) transition(db *gorm.DB, order *Order, status OrderStatus, comment string, by uint) error {
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Guard on the current status so a concurrent settlement is not overwritten
	result := tx.Model(&Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", status)
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return apperrors.Conflict("Order status changed concurrently. Please retry.")
	}

	history := NewStatusHistory(order.ID, status, comment, by)
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create status history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit status change: %w", err)
	}

	order.Status = status
	return nil
}

// DeleteOrder hard-deletes an order with its items
func (s *Service) DeleteOrder(ctx context.Context, actor auth.Actor, id uint) error {
	db := s.db.WithContext(ctx)

	order, err := s.find(db, id)
	if err != nil {
		return err
	}
	if !actor.Owns(order.UserID) && !actor.Can(auth.ActionDeleteAnyOrder) {
		return apperrors.Forbidden("You don't have permission to delete this order.")
	}

	if err := db.Delete(&Order{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": id,
		"actor_id": actor.UserID,
	}).Info("Order deleted")
	return nil
}

// InvoiceOrder returns a PAID order with the details a receipt needs
func (s *Service) InvoiceOrder(ctx context.Context, actor auth.Actor, id uint) (*Order, error) {
	order, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if order.Status != OrderStatusPaid {
		return nil, apperrors.BadRequest("Receipts are only available for paid orders.")
	}

	var customer user.User
	if err := s.db.WithContext(ctx).First(&customer, order.UserID).Error; err != nil {
		return nil, fmt.Errorf("failed to load order owner: %w", err)
	}
	order.User = &customer
	return order, nil
}

func (s *Service) find(db *gorm.DB, id uint) (*Order, error) {
	var order Order
	if err := db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Order not found.")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}
