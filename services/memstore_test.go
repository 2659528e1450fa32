package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"relate-backend/sections/models"
)

var errTestBoom = errors.New("boom")

// memStore is an in-memory store fake shared by the service tests. It mimics
// the gorm store's contracts: ErrNotFound on misses, natural-key dedup on
// CreateLead, snapshot rollback inside Transact.
type memStore struct {
	mu sync.Mutex

	leads         []models.Lead
	conversations []models.Conversation
	messages      []models.Message
	products      []models.Product
	aiConfigs     map[string]models.AIConfig

	tenants  map[string]*models.Tenant
	invoices []models.SubscriptionInvoice
	channels []models.Channel

	nextID uint

	failCreateMessageAfter int // fail the Nth CreateMessage call, 0 = never
	createMessageCalls     int

	failListProducts bool
}

func newMemStore() *memStore {
	return &memStore{
		aiConfigs: make(map[string]models.AIConfig),
		tenants:   make(map[string]*models.Tenant),
	}
}

func (m *memStore) nextid() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) FindLead(_ context.Context, tenantID, socialID string, channel models.ChannelSource) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.leads {
		l := &m.leads[i]
		if l.TenantSchema == tenantID && l.SocialID == socialID && l.ChannelSource == channel {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) CreateLead(_ context.Context, tenantID string, lead *models.Lead) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.leads {
		l := &m.leads[i]
		if l.TenantSchema == tenantID && l.SocialID == lead.SocialID && l.ChannelSource == lead.ChannelSource {
			cp := *l
			return &cp, nil
		}
	}
	lead.ID = m.nextid()
	lead.TenantSchema = tenantID
	m.leads = append(m.leads, *lead)
	cp := *lead
	return &cp, nil
}

func (m *memStore) FindOpenConversation(_ context.Context, tenantID string, leadID uint) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Conversation
	for i := range m.conversations {
		c := &m.conversations[i]
		if c.TenantSchema == tenantID && c.LeadID == leadID && c.Status == models.ConversationOpen {
			if latest == nil || c.UpdatedAt.After(latest.UpdatedAt) {
				latest = c
			}
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) CreateConversation(_ context.Context, tenantID string, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv.ID = m.nextid()
	conv.TenantSchema = tenantID
	m.conversations = append(m.conversations, *conv)
	return nil
}

func (m *memStore) TouchConversation(_ context.Context, tenantID string, convID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.conversations {
		c := &m.conversations[i]
		if c.TenantSchema == tenantID && c.ID == convID {
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) CreateMessage(_ context.Context, tenantID string, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createMessageCalls++
	if m.failCreateMessageAfter > 0 && m.createMessageCalls >= m.failCreateMessageAfter {
		return errTestBoom
	}
	msg.ID = m.nextid()
	msg.TenantSchema = tenantID
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memStore) SetMessageDeliveryStatus(_ context.Context, tenantID string, msgID uint, status models.DeliveryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		msg := &m.messages[i]
		if msg.TenantSchema == tenantID && msg.ID == msgID {
			msg.DeliveryStatus = status
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) ListActiveProducts(_ context.Context, tenantID string, limit int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failListProducts {
		return nil, errTestBoom
	}
	var out []models.Product
	for _, p := range m.products {
		if p.TenantSchema == tenantID && p.Active {
			out = append(out, p)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) GetAIConfig(_ context.Context, tenantID string) (*models.AIConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.aiConfigs[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cfg
	return &cp, nil
}

// Transact snapshots the mutable CRM state and restores it when fn fails,
// mirroring a database rollback.
func (m *memStore) Transact(ctx context.Context, tenantID string, fn func(tx CRMStore) error) error {
	m.mu.Lock()
	leads := append([]models.Lead(nil), m.leads...)
	convs := append([]models.Conversation(nil), m.conversations...)
	msgs := append([]models.Message(nil), m.messages...)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.leads = leads
		m.conversations = convs
		m.messages = msgs
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) GetTenant(_ context.Context, tenantID string) (*models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) UpdateTenantSubscription(_ context.Context, tenantID string, tier int, status models.SubscriptionStatus, endDate *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return ErrNotFound
	}
	t.SubscriptionTier = tier
	t.SubscriptionStatus = status
	t.SubscriptionEndDate = endDate
	return nil
}

func (m *memStore) FindPendingInvoice(_ context.Context, tenantID string) (*models.SubscriptionInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.invoices) - 1; i >= 0; i-- {
		inv := &m.invoices[i]
		if inv.TenantSchema == tenantID && inv.Status == models.InvoicePending {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindPendingInvoiceByAmount(_ context.Context, amount int64) (*models.SubscriptionInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.invoices {
		inv := &m.invoices[i]
		if inv.Amount == amount && inv.Status == models.InvoicePending {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindPendingInvoiceByIntent(_ context.Context, paymentIntentID string) (*models.SubscriptionInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.invoices {
		inv := &m.invoices[i]
		if inv.Status == models.InvoicePending && inv.StripePaymentIntentID != nil && *inv.StripePaymentIntentID == paymentIntentID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) CreateInvoice(_ context.Context, inv *models.SubscriptionInvoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = m.nextid()
	m.invoices = append(m.invoices, *inv)
	return nil
}

func (m *memStore) MarkInvoicePaid(_ context.Context, invoiceID uint, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.invoices {
		inv := &m.invoices[i]
		if inv.ID == invoiceID && inv.Status == models.InvoicePending {
			inv.Status = models.InvoicePaid
			inv.PaidAt = &paidAt
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) FindChannelBySession(_ context.Context, sessionName string) (*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.channels {
		ch := &m.channels[i]
		if ch.SessionName == sessionName && ch.Active {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindActiveChannel(_ context.Context, tenantID string, channelType models.ChannelSource) (*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.channels {
		ch := &m.channels[i]
		if ch.TenantSchema == tenantID && ch.Type == channelType && ch.Active {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
