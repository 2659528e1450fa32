package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/webhook"
)

// StripeService handles the card path for subscription invoices: a payment
// intent per invoice, settled when the signed webhook reports success.
type StripeService struct {
	secretKey     string
	webhookSecret string
	logger        *slog.Logger
}

// NewStripeService creates a new Stripe service
func NewStripeService(secretKey, webhookSecret string) *StripeService {
	stripe.Key = secretKey

	return &StripeService{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		logger:        slog.With("service", "StripeService"),
	}
}

// CreatePaymentIntent creates a Stripe payment intent for an invoice amount.
func (s *StripeService) CreatePaymentIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
		Metadata:    metadata,
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		s.logger.Error("Failed to create payment intent", "error", err)
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	s.logger.Info("Created payment intent", "payment_intent_id", pi.ID, "amount", amount, "currency", currency)
	return pi, nil
}

// ConstructWebhookEvent constructs and validates a webhook event
func (s *StripeService) ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error) {
	options := &webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, *options)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature", "error", err)
		return stripe.Event{}, fmt.Errorf("failed to verify webhook: %w", err)
	}

	s.logger.Debug("Webhook event verified", "type", event.Type, "id", event.ID)
	return event, nil
}

// ParseWebhookData parses webhook data into a target struct
func (s *StripeService) ParseWebhookData(data *stripe.EventData, target interface{}) error {
	if err := json.Unmarshal(data.Raw, target); err != nil {
		s.logger.Error("Failed to parse webhook data", "error", err)
		return fmt.Errorf("failed to parse webhook data: %w", err)
	}
	return nil
}
