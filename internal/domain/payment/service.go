// internal/domain/payment/service.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/cart"
	"github.com/your-org/cinema-backend/internal/domain/order"
	"github.com/your-org/cinema-backend/internal/domain/user"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/email"
	"github.com/your-org/cinema-backend/internal/pkg/money"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	webhookEventTTL = 24 * time.Hour

	MessagePaid       = "Payment successful! You can now watch your movies."
	MessageProcessing = "Payment is being processed."
	MessageCanceled   = "Payment was canceled."
)

// Cache is the part of redis the payment flow relies on
type Cache interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Service handles checkout, settlement and refunds
type Service struct {
	db      *gorm.DB
	config  *config.Config
	logger  *logrus.Logger
	gateway Gateway
	cache   Cache
	mailer  email.Sender
	orders  *order.Service
}

// NewService creates a new payment service. cache and mailer may be nil.
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, gateway Gateway, cache Cache, mailer email.Sender, orders *order.Service) *Service {
	return &Service{
		db:      db,
		config:  cfg,
		logger:  logger,
		gateway: gateway,
		cache:   cache,
		mailer:  mailer,
		orders:  orders,
	}
}

// CheckoutResponse carries the hosted payment page
type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// StatusResponse is the result shown after returning from checkout
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RefundResponse is the result of a refund
type RefundResponse struct {
	Status   string `json:"status"`
	RefundID string `json:"refund_id"`
}

// InitiateCheckout opens a gateway session for a PENDING order of the actor
func (s *Service) InitiateCheckout(ctx context.Context, actor auth.Actor, orderID uint) (*CheckoutResponse, error) {
	var o order.Order
	if err := s.db.WithContext(ctx).First(&o, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Order not found.")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	if !actor.Owns(o.UserID) {
		return nil, apperrors.Forbidden("You don't have permission to pay for this order.")
	}
	if o.Status != order.OrderStatusPending {
		return nil, apperrors.BadRequest(fmt.Sprintf("Order is %s and cannot be paid.", o.Status))
	}

	cents, err := money.ToMinorUnits(o.TotalAmount)
	if err != nil {
		return nil, apperrors.BadRequest("Order total cannot be charged.")
	}

	currency := s.config.External.Stripe.Currency
	if currency == "" {
		currency = "usd"
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Name:        fmt.Sprintf("Order #%d", o.ID),
		AmountCents: cents,
		Currency:    currency,
		SuccessURL:  s.config.URL("/api/v1/payments/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:   s.config.URL("/api/v1/payments/cancel"),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", o.ID).Error("Failed to create checkout session")
		return nil, apperrors.New(http.StatusBadGateway, "Payment provider is unavailable. Please try again later.", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":   o.ID,
		"user_id":    o.UserID,
		"session_id": sess.ID,
	}).Info("Checkout session created")

	return &CheckoutResponse{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

// HandleWebhook verifies a gateway notification and settles completed checkouts.
// Replayed events are acknowledged without side effects.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		s.logger.WithError(err).Warn("Webhook verification failed")
		return apperrors.BadRequest("Invalid webhook signature or payload.")
	}

	log := s.logger.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.Type})
	if event.Type != EventCheckoutCompleted {
		log.Debug("Ignoring webhook event")
		return nil
	}
	if event.Session == nil {
		return apperrors.BadRequest("Invalid webhook signature or payload.")
	}

	orderID, err := strconv.ParseUint(event.Session.Metadata["order_id"], 10, 64)
	if err != nil || orderID == 0 {
		log.Warn("Checkout session without order metadata")
		return apperrors.BadRequest("Invalid webhook signature or payload.")
	}

	key := "webhook:event:" + event.ID
	if s.cache != nil {
		first, err := s.cache.SetNX(ctx, key, orderID, webhookEventTTL)
		switch {
		case err != nil:
			log.WithError(err).Warn("Webhook dedupe cache unavailable, relying on database")
		case !first:
			log.Info("Skipping duplicate webhook event")
			return nil
		}
	}

	settled, err := s.settle(ctx, uint(orderID), event.Session.ID)
	if err != nil {
		// Let the gateway retry
		if s.cache != nil {
			_ = s.cache.Del(context.WithoutCancel(ctx), key)
		}
		return err
	}
	if settled == nil {
		log.WithField("order_id", orderID).Info("Checkout event required no settlement")
		return nil
	}

	log.WithFields(logrus.Fields{
		"order_id":   settled.order.ID,
		"session_id": event.Session.ID,
	}).Info("Order paid")

	s.notifyPaid(ctx, settled)
	return nil
}

type settlement struct {
	order   *order.Order
	payment *Payment
	buyer   *user.User
}

// settle marks the order PAID and records its payment in one transaction. It
// returns nil without error when there is nothing to settle: the order is
// unknown, already paid, or no longer payable.
func (s *Service) settle(ctx context.Context, orderID uint, sessionID string) (*settlement, error) {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var o order.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Items").First(&o, orderID).Error
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.WithFields(logrus.Fields{
				"order_id":   orderID,
				"session_id": sessionID,
			}).Warn("Checkout completed for an unknown order")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	var existing int64
	if err := tx.Model(&Payment{}).Where("order_id = ?", o.ID).Count(&existing).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to check payment: %w", err)
	}
	if existing > 0 {
		tx.Rollback()
		return nil, nil
	}

	if !o.CanTransitionTo(order.OrderStatusPaid) {
		tx.Rollback()
		s.logger.WithFields(logrus.Fields{
			"order_id":   o.ID,
			"status":     o.Status,
			"session_id": sessionID,
		}).Error("Checkout completed for an order that can no longer be paid; refund manually")
		return nil, nil
	}

	if err := tx.Model(&order.Order{}).Where("id = ?", o.ID).Update("status", order.OrderStatusPaid).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	o.Status = order.OrderStatusPaid

	history := order.NewStatusHistory(o.ID, order.OrderStatusPaid, "Payment received", o.UserID)
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create status history: %w", err)
	}

	payment := NewPayment(&o, sessionID)
	if err := tx.Create(payment).Error; err != nil {
		tx.Rollback()
		if apperrors.IsUniqueViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if _, err := cart.RemoveMovies(tx, o.UserID, o.MovieIDs()); err != nil {
		tx.Rollback()
		return nil, err
	}

	var buyer user.User
	if err := tx.Preload("Profile").First(&buyer, o.UserID).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load buyer: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	return &settlement{order: &o, payment: payment, buyer: &buyer}, nil
}

// notifyPaid mails the buyer; failures are only logged
func (s *Service) notifyPaid(ctx context.Context, st *settlement) {
	if s.mailer == nil {
		return
	}
	err := s.mailer.SendPaymentSuccessEmail(context.WithoutCancel(ctx),
		st.buyer.Email,
		st.buyer.GetDisplayName(),
		money.Format(st.payment.Amount),
		s.config.URL("/api/v1/movies/purchased"),
	)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", st.order.ID).Error("Failed to send payment email")
	}
}

// SessionStatus reports the outcome of a checkout session
func (s *Service) SessionStatus(ctx context.Context, sessionID string) (*StatusResponse, error) {
	if sessionID == "" {
		return nil, apperrors.BadRequest("Invalid session ID")
	}

	key := "payment:session:" + sessionID
	if s.cache != nil {
		status, err := s.cache.Get(ctx, key)
		if err == nil && status != "" {
			return statusResponse(status), nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).Warn("Session status cache unavailable")
		}
	}

	sess, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to retrieve checkout session")
		return nil, apperrors.BadRequest("Invalid session ID")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, sess.PaymentStatus, s.config.External.Stripe.SessionTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache session status")
		}
	}
	return statusResponse(sess.PaymentStatus), nil
}

func statusResponse(status string) *StatusResponse {
	if status == "paid" {
		return &StatusResponse{Status: status, Message: MessagePaid}
	}
	return &StatusResponse{Status: status, Message: MessageProcessing}
}

// CancelAbandoned cancels the user's latest pending order after checkout was abandoned
func (s *Service) CancelAbandoned(ctx context.Context, userID uint) (*StatusResponse, error) {
	o, err := s.orders.CancelLatestPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if o != nil {
		s.logger.WithFields(logrus.Fields{"order_id": o.ID, "user_id": userID}).Info("Checkout abandoned")
	}
	return &StatusResponse{Status: string(order.OrderStatusCanceled), Message: MessageCanceled}, nil
}

// Refund returns the money of a PAID order and cancels it. The order and
// payment rows stay locked until the refund is recorded, so concurrent
// refunds of one order reach the gateway once.
func (s *Service) Refund(ctx context.Context, actor auth.Actor, orderID uint) (*RefundResponse, error) {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var o order.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, orderID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Order not found.")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}

	var payment Payment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("order_id = ?", o.ID).First(&payment).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Payment not found.")
		}
		return nil, fmt.Errorf("failed to retrieve payment: %w", err)
	}

	if !actor.Owns(o.UserID) && !actor.Can(auth.ActionCancelAnyOrder) {
		tx.Rollback()
		return nil, apperrors.Forbidden("You don't have permission to refund this order.")
	}
	if o.Status != order.OrderStatusPaid || payment.Status != PaymentStatusSuccessful {
		tx.Rollback()
		return nil, apperrors.BadRequest("Only paid orders can be refunded.")
	}

	refundID, err := s.gateway.CreateRefund(ctx, payment.ExternalPaymentID)
	if err != nil {
		tx.Rollback()
		s.logger.WithError(err).WithField("order_id", o.ID).Warn("Refund rejected by payment provider")
		return nil, apperrors.BadRequest(fmt.Sprintf("Refund failed: %s", err.Error()))
	}

	log := s.logger.WithFields(logrus.Fields{
		"order_id":  o.ID,
		"refund_id": refundID,
		"actor_id":  actor.UserID,
	})

	result := tx.Model(&Payment{}).
		Where("id = ? AND status = ?", payment.ID, PaymentStatusSuccessful).
		Update("status", PaymentStatusRefunded)
	if result.Error != nil {
		tx.Rollback()
		log.WithError(result.Error).Error("Refund issued but payment status not updated")
		return nil, fmt.Errorf("failed to update payment status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		log.Error("Refund issued for a payment that is no longer successful")
		return nil, apperrors.Conflict("Payment status changed concurrently.")
	}

	result = tx.Model(&order.Order{}).
		Where("id = ? AND status = ?", o.ID, order.OrderStatusPaid).
		Update("status", order.OrderStatusCanceled)
	if result.Error != nil {
		tx.Rollback()
		log.WithError(result.Error).Error("Refund issued but order status not updated")
		return nil, fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		log.Error("Refund issued for an order that is no longer paid")
		return nil, apperrors.Conflict("Order status changed concurrently.")
	}

	history := order.NewStatusHistory(o.ID, order.OrderStatusCanceled, "Refunded: "+refundID, actor.UserID)
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create status history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		log.WithError(err).Error("Refund issued but not recorded")
		return nil, fmt.Errorf("failed to commit refund: %w", err)
	}

	log.Info("Order refunded")

	return &RefundResponse{Status: "refunded", RefundID: refundID}, nil
}

// History lists the user's payments, newest first
func (s *Service) History(ctx context.Context, userID uint) ([]Payment, error) {
	var payments []Payment
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payments: %w", err)
	}
	return payments, nil
}
