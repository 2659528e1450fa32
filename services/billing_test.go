package services

import (
	"context"
	"testing"
	"time"

	"relate-backend/common"
	"relate-backend/sections/models"
)

func testTiers() []common.Tier {
	return common.DefaultTiers()
}

func newTestBilling(store *memStore) *BillingService {
	svc := NewBillingService(store, testTiers(), nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func seedTenant(store *memStore, schema string, status models.SubscriptionStatus) *models.Tenant {
	t := &models.Tenant{
		CompanyName:        "Acme",
		SubscriptionTier:   models.TierChatbotAssistant,
		SubscriptionStatus: status,
	}
	t.SchemaName = schema
	store.tenants[schema] = t
	return t
}

func TestCreateInvoiceAmountCarriesSurcharge(t *testing.T) {
	store := newMemStore()
	svc := newTestBilling(store)
	seedTenant(store, "acme", models.SubscriptionPendingPayment)

	inv, err := svc.CreateInvoice(context.Background(), "acme", models.TierSalesAgent, models.PaymentBankTransfer)
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	if inv.BaseAmount != 199000 {
		t.Errorf("expected base 199000, got %d", inv.BaseAmount)
	}
	if inv.UniqueCode < 1 || inv.UniqueCode > 999 {
		t.Errorf("unique code out of range: %d", inv.UniqueCode)
	}
	if inv.Amount != inv.BaseAmount+int64(inv.UniqueCode) {
		t.Errorf("amount %d != base %d + code %d", inv.Amount, inv.BaseAmount, inv.UniqueCode)
	}
	if inv.Status != models.InvoicePending {
		t.Errorf("expected pending invoice, got %q", inv.Status)
	}
	if inv.Reference == "" {
		t.Error("expected a reference")
	}
}

func TestCreateInvoiceIdempotentWhilePending(t *testing.T) {
	store := newMemStore()
	svc := newTestBilling(store)
	seedTenant(store, "acme", models.SubscriptionPendingPayment)

	first, err := svc.CreateInvoice(context.Background(), "acme", models.TierSalesAgent, models.PaymentBankTransfer)
	if err != nil {
		t.Fatalf("first CreateInvoice failed: %v", err)
	}
	// A repeat request, even for a different tier, returns the open invoice.
	second, err := svc.CreateInvoice(context.Background(), "acme", models.TierChatbotAssistant, models.PaymentBankTransfer)
	if err != nil {
		t.Fatalf("second CreateInvoice failed: %v", err)
	}

	if first.Reference != second.Reference {
		t.Errorf("expected same invoice, got %q and %q", first.Reference, second.Reference)
	}
	if len(store.invoices) != 1 {
		t.Errorf("expected 1 invoice, got %d", len(store.invoices))
	}
}

func TestCreateInvoiceAvoidsAmountCollision(t *testing.T) {
	store := newMemStore()
	svc := newTestBilling(store)
	seedTenant(store, "acme", models.SubscriptionPendingPayment)
	seedTenant(store, "other", models.SubscriptionPendingPayment)

	// The other tenant already holds amount 199000+7.
	store.invoices = append(store.invoices, models.SubscriptionInvoice{
		TenantSchema: "other",
		Reference:    "r-1",
		TargetTier:   models.TierSalesAgent,
		BaseAmount:   199000,
		UniqueCode:   7,
		Amount:       199007,
		Status:       models.InvoicePending,
	})

	// Force the first draw to collide, the second to land on 8.
	draws := []int{6, 7} // randInt(n)+1 => codes 7, then 8
	svc.randInt = func(n int) int {
		d := draws[0]
		if len(draws) > 1 {
			draws = draws[1:]
		}
		return d
	}

	inv, err := svc.CreateInvoice(context.Background(), "acme", models.TierSalesAgent, models.PaymentBankTransfer)
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if inv.UniqueCode != 8 {
		t.Errorf("expected re-drawn code 8, got %d", inv.UniqueCode)
	}
}

func TestVerifyPaymentSettlesAndPromotes(t *testing.T) {
	store := newMemStore()
	svc := newTestBilling(store)
	tenant := seedTenant(store, "acme", models.SubscriptionPendingPayment)

	inv, err := svc.CreateInvoice(context.Background(), "acme", models.TierSalesAgent, models.PaymentBankTransfer)
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	settled, err := svc.VerifyPayment(context.Background(), inv.Amount)
	if err != nil {
		t.Fatalf("VerifyPayment failed: %v", err)
	}
	if settled == nil {
		t.Fatal("expected a settled invoice")
	}
	if settled.Status != models.InvoicePaid {
		t.Errorf("expected paid invoice, got %q", settled.Status)
	}

	if tenant.SubscriptionStatus != models.SubscriptionActive {
		t.Errorf("expected active tenant, got %q", tenant.SubscriptionStatus)
	}
	if tenant.SubscriptionTier != models.TierSalesAgent {
		t.Errorf("expected tier upgrade, got %d", tenant.SubscriptionTier)
	}
	wantEnd := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	if tenant.SubscriptionEndDate == nil || !tenant.SubscriptionEndDate.Equal(wantEnd) {
		t.Errorf("expected end date %v, got %v", wantEnd, tenant.SubscriptionEndDate)
	}
}

func TestVerifyPaymentUnknownAmountIsNoOp(t *testing.T) {
	store := newMemStore()
	svc := newTestBilling(store)
	seedTenant(store, "acme", models.SubscriptionPendingPayment)

	settled, err := svc.VerifyPayment(context.Background(), 123456)
	if err != nil {
		t.Fatalf("VerifyPayment failed: %v", err)
	}
	if settled != nil {
		t.Errorf("expected no-op, got invoice %+v", settled)
	}
}

func TestVerifyPaymentReplayIsNoOp(t *testing.T) {
	store := newMemStore()
	svc := newTestBilling(store)
	seedTenant(store, "acme", models.SubscriptionPendingPayment)

	inv, err := svc.CreateInvoice(context.Background(), "acme", models.TierSalesAgent, models.PaymentBankTransfer)
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	if _, err := svc.VerifyPayment(context.Background(), inv.Amount); err != nil {
		t.Fatalf("first VerifyPayment failed: %v", err)
	}

	// The same mutation delivered again matches nothing: the invoice is no
	// longer pending.
	settled, err := svc.VerifyPayment(context.Background(), inv.Amount)
	if err != nil {
		t.Fatalf("replayed VerifyPayment failed: %v", err)
	}
	if settled != nil {
		t.Errorf("expected replay no-op, got %+v", settled)
	}
}

func TestCheckExpiryFlipsActivePastEndDate(t *testing.T) {
	store := newMemStore()
	svc := newTestBilling(store)
	tenant := seedTenant(store, "acme", models.SubscriptionActive)
	past := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	tenant.SubscriptionEndDate = &past

	expired, err := svc.CheckExpiry(context.Background(), tenant)
	if err != nil {
		t.Fatalf("CheckExpiry failed: %v", err)
	}
	if !expired {
		t.Fatal("expected expiry flip")
	}
	if tenant.SubscriptionStatus != models.SubscriptionExpired {
		t.Errorf("expected expired status, got %q", tenant.SubscriptionStatus)
	}
	if store.tenants["acme"].SubscriptionStatus != models.SubscriptionExpired {
		t.Error("expiry not persisted")
	}
}

func TestCheckExpiryLeavesCurrentSubscriptions(t *testing.T) {
	store := newMemStore()
	svc := newTestBilling(store)

	tenant := seedTenant(store, "acme", models.SubscriptionActive)
	future := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	tenant.SubscriptionEndDate = &future

	expired, err := svc.CheckExpiry(context.Background(), tenant)
	if err != nil {
		t.Fatalf("CheckExpiry failed: %v", err)
	}
	if expired {
		t.Error("future end date must not expire")
	}

	// Pending tenants have no period to expire.
	pending := seedTenant(store, "beta", models.SubscriptionPendingPayment)
	expired, err = svc.CheckExpiry(context.Background(), pending)
	if err != nil {
		t.Fatalf("CheckExpiry failed: %v", err)
	}
	if expired {
		t.Error("pending subscription must not expire")
	}
}
