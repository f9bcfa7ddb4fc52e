// internal/domain/payment/gateway.go
package payment

import "context"

// EventCheckoutCompleted is the only gateway event that settles an order
const EventCheckoutCompleted = "checkout.session.completed"

// CheckoutRequest describes the single line item checkout of an order
type CheckoutRequest struct {
	OrderID     uint
	UserID      uint
	Name        string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the gateway's view of a hosted checkout
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	Metadata      map[string]string
}

// Event is a verified webhook notification
type Event struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// Gateway is the hosted payment provider
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ConstructEvent(payload []byte, signature string) (*Event, error)
	RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	// CreateRefund refunds the full amount collected by a checkout session
	CreateRefund(ctx context.Context, sessionID string) (string, error)
}
