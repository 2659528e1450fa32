package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"relate-backend/common"
	"relate-backend/sections/models"
)

// BillingService is the invoice ledger: it creates pending subscription
// invoices and reconciles incoming payments against them. For bank transfers
// the match key is the exact total amount, made unique-ish by a surcharge
// code in [1,999].
type BillingService struct {
	logger *slog.Logger
	store  BillingStore
	tiers  []common.Tier
	stripe *StripeService // nil when card payments are not configured

	now     func() time.Time
	randInt func(n int) int
}

// NewBillingService creates a new billing service. stripeSvc may be nil.
func NewBillingService(store BillingStore, tiers []common.Tier, stripeSvc *StripeService) *BillingService {
	return &BillingService{
		logger:  slog.With("service", "BillingService"),
		store:   store,
		tiers:   tiers,
		stripe:  stripeSvc,
		now:     time.Now,
		randInt: rand.IntN,
	}
}

// CreateInvoice returns the tenant's pending invoice if one exists
// (idempotent re-request), otherwise creates one for the target tier.
func (s *BillingService) CreateInvoice(ctx context.Context, tenantID string, targetTier int, method models.PaymentMethod) (*models.SubscriptionInvoice, error) {
	existing, err := s.store.FindPendingInvoice(ctx, tenantID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up pending invoice: %w", err)
	}

	tier := common.GetTier(s.tiers, targetTier)
	if tier == nil {
		return nil, fmt.Errorf("unknown subscription tier: %d", targetTier)
	}

	if method == "" {
		method = models.PaymentBankTransfer
	}

	code := s.drawUniqueCode(ctx, tier.PriceIDR)

	inv := &models.SubscriptionInvoice{
		TenantSchema:  tenantID,
		Reference:     common.RandomID(),
		TargetTier:    targetTier,
		BaseAmount:    tier.PriceIDR,
		UniqueCode:    code,
		Amount:        tier.PriceIDR + int64(code),
		Status:        models.InvoicePending,
		PaymentMethod: method,
	}

	if method == models.PaymentCard {
		if s.stripe == nil {
			return nil, errors.New("card payments are not configured")
		}
		pi, err := s.stripe.CreatePaymentIntent(ctx, inv.Amount, "idr",
			fmt.Sprintf("Subscription upgrade to %s", tier.Name),
			map[string]string{"tenant": tenantID, "reference": inv.Reference})
		if err != nil {
			return nil, err
		}
		inv.StripePaymentIntentID = &pi.ID
	}

	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.logger.Info("Invoice created", "tenant", tenantID, "reference", inv.Reference,
		"target_tier", targetTier, "amount", inv.Amount, "method", method)
	return inv, nil
}

// drawUniqueCode picks a surcharge code, re-drawing a few times when the
// resulting total would collide with another pending invoice. Collisions are
// still possible under concurrency; the surcharge scheme itself is the
// accepted weak point of amount-based matching.
func (s *BillingService) drawUniqueCode(ctx context.Context, base int64) int {
	code := s.randInt(common.MAX_UNIQUE_CODE) + 1
	for i := 0; i < 4; i++ {
		_, err := s.store.FindPendingInvoiceByAmount(ctx, base+int64(code))
		if errors.Is(err, ErrNotFound) {
			return code
		}
		if err != nil {
			return code
		}
		code = s.randInt(common.MAX_UNIQUE_CODE) + 1
	}
	return code
}

// PendingInvoice returns the tenant's pending invoice, or nil when none.
func (s *BillingService) PendingInvoice(ctx context.Context, tenantID string) (*models.SubscriptionInvoice, error) {
	inv, err := s.store.FindPendingInvoice(ctx, tenantID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// VerifyPayment matches a notified credit amount against a single pending
// invoice. No match is a no-op returning nil; replays are absorbed because a
// settled invoice is no longer pending and can never match again.
func (s *BillingService) VerifyPayment(ctx context.Context, amount int64) (*models.SubscriptionInvoice, error) {
	s.logger.Info("Verifying payment", "amount", amount)

	inv, err := s.store.FindPendingInvoiceByAmount(ctx, amount)
	if errors.Is(err, ErrNotFound) {
		s.logger.Info("No pending invoice matches amount", "amount", amount)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up invoice by amount: %w", err)
	}

	if err := s.settle(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ConfirmCardPayment settles the invoice tied to a succeeded Stripe payment
// intent. Unknown intents are a no-op, mirroring VerifyPayment.
func (s *BillingService) ConfirmCardPayment(ctx context.Context, paymentIntentID string) (*models.SubscriptionInvoice, error) {
	inv, err := s.store.FindPendingInvoiceByIntent(ctx, paymentIntentID)
	if errors.Is(err, ErrNotFound) {
		s.logger.Info("No pending invoice for payment intent", "payment_intent_id", paymentIntentID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up invoice by payment intent: %w", err)
	}

	if err := s.settle(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// settle flips the invoice pending→paid and promotes the owning tenant.
func (s *BillingService) settle(ctx context.Context, inv *models.SubscriptionInvoice) error {
	now := s.now()
	if err := s.store.MarkInvoicePaid(ctx, inv.ID, now); err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}

	endDate := now.AddDate(0, 0, common.SUBSCRIPTION_PERIOD_DAYS)
	if err := s.store.UpdateTenantSubscription(ctx, inv.TenantSchema, inv.TargetTier, models.SubscriptionActive, &endDate); err != nil {
		return fmt.Errorf("failed to promote tenant: %w", err)
	}

	inv.Status = models.InvoicePaid
	inv.PaidAt = &now
	invoiceReconciled()

	s.logger.Info("Invoice reconciled", "tenant", inv.TenantSchema, "reference", inv.Reference,
		"amount", inv.Amount, "target_tier", inv.TargetTier)
	return nil
}

// CheckExpiry flips an active subscription whose end date has passed to
// expired, persisting before the tenant read is served. Returns whether the
// flip happened.
func (s *BillingService) CheckExpiry(ctx context.Context, tenant *models.Tenant) (bool, error) {
	if tenant.SubscriptionStatus != models.SubscriptionActive {
		return false, nil
	}
	if tenant.SubscriptionEndDate == nil || !tenant.SubscriptionEndDate.Before(s.now()) {
		return false, nil
	}

	if err := s.store.UpdateTenantSubscription(ctx, tenant.SchemaName, tenant.SubscriptionTier, models.SubscriptionExpired, tenant.SubscriptionEndDate); err != nil {
		return false, fmt.Errorf("failed to expire subscription: %w", err)
	}
	tenant.SubscriptionStatus = models.SubscriptionExpired

	s.logger.Info("Subscription expired", "tenant", tenant.SchemaName, "end_date", tenant.SubscriptionEndDate)
	return true, nil
}
