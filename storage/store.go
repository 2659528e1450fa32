package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"relate-backend/db"
	"relate-backend/sections/models"
	"relate-backend/services"
)

// Store is the gorm-backed implementation of the service store interfaces.
// Tenant-scoped reads and writes run with the search path set to the tenant's
// schema; shared rows (tenants, channels, invoices) go through public.
type Store struct {
	db     *db.DB
	logger *slog.Logger
}

// NewStore creates a store on top of an established database connection.
func NewStore(database *db.DB) *Store {
	return &Store{
		db:     database,
		logger: slog.With("service", "Store"),
	}
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.ErrNotFound
	}
	return err
}

// ---- CRMStore (tenant-scoped) ----

func (s *Store) FindLead(ctx context.Context, tenantID, socialID string, channel models.ChannelSource) (*models.Lead, error) {
	var lead *models.Lead
	err := s.db.WithTenant(ctx, tenantID, func(g *gorm.DB) error {
		tx := crmTx{g: g.WithContext(ctx), tenant: tenantID}
		found, err := tx.FindLead(ctx, tenantID, socialID, channel)
		lead = found
		return err
	})
	return lead, err
}

func (s *Store) CreateLead(ctx context.Context, tenantID string, lead *models.Lead) (*models.Lead, error) {
	var created *models.Lead
	err := s.db.WithTenant(ctx, tenantID, func(g *gorm.DB) error {
		tx := crmTx{g: g.WithContext(ctx), tenant: tenantID}
		row, err := tx.CreateLead(ctx, tenantID, lead)
		created = row
		return err
	})
	return created, err
}

func (s *Store) FindOpenConversation(ctx context.Context, tenantID string, leadID uint) (*models.Conversation, error) {
	var conv *models.Conversation
	err := s.db.WithTenant(ctx, tenantID, func(g *gorm.DB) error {
		tx := crmTx{g: g.WithContext(ctx), tenant: tenantID}
		found, err := tx.FindOpenConversation(ctx, tenantID, leadID)
		conv = found
		return err
	})
	return conv, err
}

func (s *Store) CreateConversation(ctx context.Context, tenantID string, conv *models.Conversation) error {
	return s.db.WithTenant(ctx, tenantID, func(g *gorm.DB) error {
		tx := crmTx{g: g.WithContext(ctx), tenant: tenantID}
		return tx.CreateConversation(ctx, tenantID, conv)
	})
}

func (s *Store) TouchConversation(ctx context.Context, tenantID string, convID uint) error {
	return s.db.WithTenant(ctx, tenantID, func(g *gorm.DB) error {
		tx := crmTx{g: g.WithContext(ctx), tenant: tenantID}
		return tx.TouchConversation(ctx, tenantID, convID)
	})
}

func (s *Store) CreateMessage(ctx context.Context, tenantID string, msg *models.Message) error {
	return s.db.WithTenant(ctx, tenantID, func(g *gorm.DB) error {
		tx := crmTx{g: g.WithContext(ctx), tenant: tenantID}
		return tx.CreateMessage(ctx, tenantID, msg)
	})
}

func (s *Store) SetMessageDeliveryStatus(ctx context.Context, tenantID string, msgID uint, status models.DeliveryStatus) error {
	return s.db.WithTenant(ctx, tenantID, func(g *gorm.DB) error {
		tx := crmTx{g: g.WithContext(ctx), tenant: tenantID}
		return tx.SetMessageDeliveryStatus(ctx, tenantID, msgID, status)
	})
}

func (s *Store) ListActiveProducts(ctx context.Context, tenantID string, limit int) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithTenant(ctx, tenantID, func(g *gorm.DB) error {
		tx := crmTx{g: g.WithContext(ctx), tenant: tenantID}
		found, err := tx.ListActiveProducts(ctx, tenantID, limit)
		products = found
		return err
	})
	return products, err
}

func (s *Store) GetAIConfig(ctx context.Context, tenantID string) (*models.AIConfig, error) {
	var cfg *models.AIConfig
	err := s.db.WithTenant(ctx, tenantID, func(g *gorm.DB) error {
		tx := crmTx{g: g.WithContext(ctx), tenant: tenantID}
		found, err := tx.GetAIConfig(ctx, tenantID)
		cfg = found
		return err
	})
	return cfg, err
}

// Transact runs fn inside one database transaction against the tenant's
// schema. The pipeline uses this so that a failed step rolls back the whole
// message turn.
func (s *Store) Transact(ctx context.Context, tenantID string, fn func(tx services.CRMStore) error) error {
	return s.db.WithTenant(ctx, tenantID, func(g *gorm.DB) error {
		return g.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			return fn(&crmTx{g: inner, tenant: tenantID})
		})
	})
}

// crmTx is a CRMStore bound to a gorm handle whose search path is already set
// to one tenant schema. The tenantID arguments are carried for interface
// compatibility; the binding is authoritative.
type crmTx struct {
	g      *gorm.DB
	tenant string
}

func (t *crmTx) FindLead(ctx context.Context, _, socialID string, channel models.ChannelSource) (*models.Lead, error) {
	var lead models.Lead
	err := t.g.Where("social_id = ? AND channel_source = ?", socialID, channel).First(&lead).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &lead, nil
}

// CreateLead inserts with on-conflict-do-nothing on the natural key and
// re-selects on conflict, so two concurrent first messages from the same
// identity converge on a single row.
func (t *crmTx) CreateLead(ctx context.Context, _ string, lead *models.Lead) (*models.Lead, error) {
	if lead.TenantSchema == "" {
		lead.TenantSchema = t.tenant
	}
	res := t.g.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "social_id"}, {Name: "channel_source"}},
		DoNothing: true,
	}).Create(lead)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to create lead: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race; the winning row is the lead.
		var winner models.Lead
		if err := t.g.Where("social_id = ? AND channel_source = ?", lead.SocialID, lead.ChannelSource).First(&winner).Error; err != nil {
			return nil, mapErr(err)
		}
		return &winner, nil
	}
	return lead, nil
}

func (t *crmTx) FindOpenConversation(ctx context.Context, _ string, leadID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := t.g.Where("lead_id = ? AND status = ?", leadID, models.ConversationOpen).
		Order("updated_at DESC").
		First(&conv).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &conv, nil
}

func (t *crmTx) CreateConversation(ctx context.Context, _ string, conv *models.Conversation) error {
	if conv.TenantSchema == "" {
		conv.TenantSchema = t.tenant
	}
	if err := t.g.Create(conv).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (t *crmTx) TouchConversation(ctx context.Context, _ string, convID uint) error {
	res := t.g.Model(&models.Conversation{}).Where("id = ?", convID).Update("updated_at", time.Now())
	if res.Error != nil {
		return fmt.Errorf("failed to touch conversation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (t *crmTx) CreateMessage(ctx context.Context, _ string, msg *models.Message) error {
	if msg.TenantSchema == "" {
		msg.TenantSchema = t.tenant
	}
	if err := t.g.Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (t *crmTx) SetMessageDeliveryStatus(ctx context.Context, _ string, msgID uint, status models.DeliveryStatus) error {
	res := t.g.Model(&models.Message{}).Where("id = ?", msgID).Update("delivery_status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to set delivery status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (t *crmTx) ListActiveProducts(ctx context.Context, _ string, limit int) ([]models.Product, error) {
	var products []models.Product
	q := t.g.Where("active = ?", true).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (t *crmTx) GetAIConfig(ctx context.Context, _ string) (*models.AIConfig, error) {
	var cfg models.AIConfig
	if err := t.g.First(&cfg).Error; err != nil {
		return nil, mapErr(err)
	}
	return &cfg, nil
}

// Transact on an already-bound transaction just runs fn; nested transactions
// are not opened.
func (t *crmTx) Transact(ctx context.Context, _ string, fn func(tx services.CRMStore) error) error {
	return fn(t)
}

// ---- BillingStore (public schema) ----

func (s *Store) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.Shared().WithContext(ctx).Where("schema_name = ?", tenantID).First(&tenant).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &tenant, nil
}

func (s *Store) UpdateTenantSubscription(ctx context.Context, tenantID string, tier int, status models.SubscriptionStatus, endDate *time.Time) error {
	res := s.db.Shared().WithContext(ctx).Model(&models.Tenant{}).
		Where("schema_name = ?", tenantID).
		Updates(map[string]interface{}{
			"subscription_tier":     tier,
			"subscription_status":   status,
			"subscription_end_date": endDate,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (s *Store) FindPendingInvoice(ctx context.Context, tenantID string) (*models.SubscriptionInvoice, error) {
	var inv models.SubscriptionInvoice
	err := s.db.Shared().WithContext(ctx).
		Where("tenant_schema = ? AND status = ?", tenantID, models.InvoicePending).
		Order("id DESC").
		First(&inv).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &inv, nil
}

func (s *Store) FindPendingInvoiceByAmount(ctx context.Context, amount int64) (*models.SubscriptionInvoice, error) {
	var inv models.SubscriptionInvoice
	err := s.db.Shared().WithContext(ctx).
		Where("amount = ? AND status = ?", amount, models.InvoicePending).
		Order("id ASC").
		First(&inv).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &inv, nil
}

func (s *Store) FindPendingInvoiceByIntent(ctx context.Context, paymentIntentID string) (*models.SubscriptionInvoice, error) {
	var inv models.SubscriptionInvoice
	err := s.db.Shared().WithContext(ctx).
		Where("stripe_payment_intent_id = ? AND status = ?", paymentIntentID, models.InvoicePending).
		First(&inv).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *models.SubscriptionInvoice) error {
	if err := s.db.Shared().WithContext(ctx).Create(inv).Error; err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// MarkInvoicePaid flips pending to paid. The status guard in the WHERE clause
// makes the transition observable exactly once under webhook replay.
func (s *Store) MarkInvoicePaid(ctx context.Context, invoiceID uint, paidAt time.Time) error {
	res := s.db.Shared().WithContext(ctx).Model(&models.SubscriptionInvoice{}).
		Where("id = ? AND status = ?", invoiceID, models.InvoicePending).
		Updates(map[string]interface{}{
			"status":  models.InvoicePaid,
			"paid_at": paidAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return services.ErrNotFound
	}
	return nil
}

// ---- ChannelStore (public schema) ----

func (s *Store) FindChannelBySession(ctx context.Context, sessionName string) (*models.Channel, error) {
	var ch models.Channel
	err := s.db.Shared().WithContext(ctx).
		Where("session_name = ? AND active = ?", sessionName, true).
		First(&ch).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &ch, nil
}

func (s *Store) FindActiveChannel(ctx context.Context, tenantID string, channelType models.ChannelSource) (*models.Channel, error) {
	var ch models.Channel
	err := s.db.Shared().WithContext(ctx).
		Where("tenant_schema = ? AND type = ? AND active = ?", tenantID, channelType, true).
		Order("id ASC").
		First(&ch).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &ch, nil
}
