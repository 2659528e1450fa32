package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	multitenancy "github.com/bartventer/gorm-multitenancy/v8"
	"github.com/gin-gonic/gin"

	"relate-backend/common"
	"relate-backend/sections"
	"relate-backend/sections/models"
	"relate-backend/services"
)

// widgetStore is a minimal in-memory sections.Store: one tenant, enough
// lead/conversation/message bookkeeping for a single pipeline run.
type widgetStore struct {
	mu            sync.Mutex
	tenant        *models.Tenant
	nextID        uint
	leads         []models.Lead
	conversations []models.Conversation
	messages      []models.Message
}

func (s *widgetStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *widgetStore) FindLead(ctx context.Context, tenantID, socialID string, channel models.ChannelSource) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		if s.leads[i].SocialID == socialID && s.leads[i].ChannelSource == channel {
			lead := s.leads[i]
			return &lead, nil
		}
	}
	return nil, services.ErrNotFound
}

func (s *widgetStore) CreateLead(ctx context.Context, tenantID string, lead *models.Lead) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead.ID = s.id()
	s.leads = append(s.leads, *lead)
	return lead, nil
}

func (s *widgetStore) FindOpenConversation(ctx context.Context, tenantID string, leadID uint) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.conversations {
		if s.conversations[i].LeadID == leadID && s.conversations[i].Status == models.ConversationOpen {
			conv := s.conversations[i]
			return &conv, nil
		}
	}
	return nil, services.ErrNotFound
}

func (s *widgetStore) CreateConversation(ctx context.Context, tenantID string, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.ID = s.id()
	s.conversations = append(s.conversations, *conv)
	return nil
}

func (s *widgetStore) TouchConversation(ctx context.Context, tenantID string, convID uint) error {
	return nil
}

func (s *widgetStore) CreateMessage(ctx context.Context, tenantID string, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = s.id()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *widgetStore) SetMessageDeliveryStatus(ctx context.Context, tenantID string, msgID uint, status models.DeliveryStatus) error {
	return nil
}

func (s *widgetStore) ListActiveProducts(ctx context.Context, tenantID string, limit int) ([]models.Product, error) {
	return nil, nil
}

func (s *widgetStore) GetAIConfig(ctx context.Context, tenantID string) (*models.AIConfig, error) {
	return nil, services.ErrNotFound
}

func (s *widgetStore) Transact(ctx context.Context, tenantID string, fn func(tx services.CRMStore) error) error {
	return fn(s)
}

func (s *widgetStore) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	if s.tenant == nil || s.tenant.SchemaName != tenantID {
		return nil, services.ErrNotFound
	}
	return s.tenant, nil
}

func (s *widgetStore) UpdateTenantSubscription(ctx context.Context, tenantID string, tier int, status models.SubscriptionStatus, endDate *time.Time) error {
	return nil
}

func (s *widgetStore) FindPendingInvoice(ctx context.Context, tenantID string) (*models.SubscriptionInvoice, error) {
	return nil, services.ErrNotFound
}

func (s *widgetStore) FindPendingInvoiceByAmount(ctx context.Context, amount int64) (*models.SubscriptionInvoice, error) {
	return nil, services.ErrNotFound
}

func (s *widgetStore) FindPendingInvoiceByIntent(ctx context.Context, paymentIntentID string) (*models.SubscriptionInvoice, error) {
	return nil, services.ErrNotFound
}

func (s *widgetStore) CreateInvoice(ctx context.Context, inv *models.SubscriptionInvoice) error {
	return nil
}

func (s *widgetStore) MarkInvoicePaid(ctx context.Context, invoiceID uint, paidAt time.Time) error {
	return nil
}

func (s *widgetStore) FindChannelBySession(ctx context.Context, sessionName string) (*models.Channel, error) {
	return nil, services.ErrNotFound
}

func (s *widgetStore) FindActiveChannel(ctx context.Context, tenantID string, channelType models.ChannelSource) (*models.Channel, error) {
	return nil, services.ErrNotFound
}

type cannedResponder struct{ reply string }

func (r *cannedResponder) Generate(ctx context.Context, tenantID, message string) string {
	return r.reply
}

func newTestRouter(reply string) (*gin.Engine, *widgetStore) {
	gin.SetMode(gin.TestMode)
	store := &widgetStore{
		tenant: &models.Tenant{
			TenantModel:        multitenancy.TenantModel{SchemaName: "shop1"},
			CompanyName:        "Toko Maju",
			SubscriptionStatus: models.SubscriptionActive,
		},
	}
	resolver := services.NewResolver(store)
	pipeline := services.NewPipeline(store, resolver, &cannedResponder{reply: reply})
	deps := &sections.Dependencies{
		Store:    store,
		Billing:  services.NewBillingService(store, common.DefaultTiers(), nil),
		Pipeline: pipeline,
	}

	r := gin.New()
	RegisterRoutes(r, deps, func(c *gin.Context) { c.Next() })
	return r, store
}

func postSend(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendReturnsPersistedAIMessage(t *testing.T) {
	r, _ := newTestRouter("Halo! Ada yang bisa saya bantu?")

	w := postSend(r, `{"tenantId":"shop1","message":"halo","sessionId":"sess-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Message models.Message `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("expected success status, got %q", resp.Status)
	}

	msg := resp.Data.Message
	if msg.Content != "Halo! Ada yang bisa saya bantu?" {
		t.Errorf("unexpected reply content: %q", msg.Content)
	}
	if msg.SenderType != models.SenderAI {
		t.Errorf("expected ai sender, got %q", msg.SenderType)
	}
	if msg.ID == 0 {
		t.Error("expected the persisted message id, got 0")
	}
	if msg.ConversationID == nil {
		t.Error("expected the message to be attached to a conversation")
	}
}

func TestSendUnknownTenant(t *testing.T) {
	r, _ := newTestRouter("hi")

	w := postSend(r, `{"tenantId":"nobody","message":"halo","sessionId":"sess-1"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSendRejectsIncompleteRequest(t *testing.T) {
	r, _ := newTestRouter("hi")

	w := postSend(r, `{"tenantId":"shop1","message":"halo"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
