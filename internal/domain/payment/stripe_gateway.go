// internal/domain/payment/stripe_gateway.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/your-org/cinema-backend/internal/config"
)

// StripeGateway implements Gateway with Stripe Checkout
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway creates a Stripe client from the payment config
func NewStripeGateway(cfg *config.Config) *StripeGateway {
	return &StripeGateway{
		api:           client.New(cfg.External.Stripe.SecretKey, nil),
		webhookSecret: cfg.External.Stripe.WebhookSecret,
	}
}

// CreateCheckoutSession opens a hosted payment page for one order
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Name),
					},
					UnitAmount: stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("order_id", strconv.FormatUint(uint64(req.OrderID), 10))
	params.AddMetadata("user_id", strconv.FormatUint(uint64(req.UserID), 10))

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return toSession(sess), nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event
func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Type == EventCheckoutCompleted {
		if evt.Data == nil {
			return nil, errors.New("checkout event without data")
		}
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Session = toSession(&sess)
	}
	return out, nil
}

// RetrieveSession fetches a checkout session by id
func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, err
	}
	return toSession(sess), nil
}

// CreateRefund refunds the payment intent behind a checkout session
func (g *StripeGateway) CreateRefund(ctx context.Context, sessionID string) (string, error) {
	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx
	sess, err := g.api.CheckoutSessions.Get(sessionID, getParams)
	if err != nil {
		return "", err
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return "", fmt.Errorf("checkout session %s has no payment intent", sessionID)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(sess.PaymentIntent.ID),
	}
	params.Context = ctx
	refund, err := g.api.Refunds.New(params)
	if err != nil {
		return "", err
	}
	return refund.ID, nil
}

func toSession(sess *stripe.CheckoutSession) *CheckoutSession {
	return &CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	}
}
