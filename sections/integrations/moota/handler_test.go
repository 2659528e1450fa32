package moota

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"relate-backend/common"
	"relate-backend/sections"
	"relate-backend/sections/models"
	"relate-backend/services"
)

// ledgerStub is a BillingStore with no pending invoices that records which
// amounts the webhook tried to reconcile.
type ledgerStub struct {
	mu      sync.Mutex
	lookups []int64
}

func (s *ledgerStub) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	return nil, services.ErrNotFound
}

func (s *ledgerStub) UpdateTenantSubscription(ctx context.Context, tenantID string, tier int, status models.SubscriptionStatus, endDate *time.Time) error {
	return nil
}

func (s *ledgerStub) FindPendingInvoice(ctx context.Context, tenantID string) (*models.SubscriptionInvoice, error) {
	return nil, services.ErrNotFound
}

func (s *ledgerStub) FindPendingInvoiceByAmount(ctx context.Context, amount int64) (*models.SubscriptionInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, amount)
	return nil, services.ErrNotFound
}

func (s *ledgerStub) FindPendingInvoiceByIntent(ctx context.Context, paymentIntentID string) (*models.SubscriptionInvoice, error) {
	return nil, services.ErrNotFound
}

func (s *ledgerStub) CreateInvoice(ctx context.Context, inv *models.SubscriptionInvoice) error {
	return nil
}

func (s *ledgerStub) MarkInvoicePaid(ctx context.Context, invoiceID uint, paidAt time.Time) error {
	return nil
}

func newTestRouter() (*gin.Engine, *ledgerStub) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ledger := &ledgerStub{}
	deps := &sections.Dependencies{
		Billing: services.NewBillingService(ledger, common.DefaultTiers(), nil),
	}
	RegisterRoutes(r, deps, func(c *gin.Context) { c.Next() })
	return r, ledger
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/integrations/moota/notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReceiveAlwaysAcknowledges(t *testing.T) {
	r, _ := newTestRouter()

	cases := []struct {
		name string
		body string
	}{
		{"unparseable", `not json`},
		{"empty array", `[]`},
		{"debit mutation", `[{"type":"DB","amount":50000}]`},
		{"zero amount credit", `[{"type":"CR","amount":0}]`},
		{"negative amount", `{"type":"CR","amount":-199123}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := post(r, tc.body)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), `"ok"`) {
				t.Errorf("expected ok status, got %s", w.Body.String())
			}
		})
	}
}

func TestReceiveReconcilesCreditsAndPositiveAmounts(t *testing.T) {
	// A mutation is reconciled when it is flagged CR or carries a positive
	// amount. Some banks label every row DB regardless of direction, so a
	// positive-amount debit still gets a lookup.
	r, ledger := newTestRouter()

	w := post(r, `[{"type":"CR","amount":199123},{"type":"DB","amount":99456},{"type":"DB","amount":-50000}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if len(ledger.lookups) != 2 {
		t.Fatalf("expected 2 reconciliation lookups, got %d (%v)", len(ledger.lookups), ledger.lookups)
	}
	if ledger.lookups[0] != 199123 || ledger.lookups[1] != 99456 {
		t.Errorf("unexpected lookup amounts: %v", ledger.lookups)
	}
}

func TestMutationAmountParsing(t *testing.T) {
	// Amounts arrive as integers or decimals depending on the bank.
	r, ledger := newTestRouter()

	w := post(r, `[{"type":"CR","amount":199123.00}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if len(ledger.lookups) != 1 || ledger.lookups[0] != 199123 {
		t.Errorf("expected one lookup for 199123, got %v", ledger.lookups)
	}
}
