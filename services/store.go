package services

import (
	"context"
	"errors"
	"time"

	"relate-backend/sections/models"
)

// ErrNotFound is returned by store lookups when no row matches. Services
// treat it as "create it" where that is the contract, and as a terminal
// condition everywhere else.
var ErrNotFound = errors.New("record not found")

// CRMStore is the tenant-scoped persistence surface used by the resolver,
// the pipeline and the responder. Every method is scoped to one tenant.
type CRMStore interface {
	FindLead(ctx context.Context, tenantID, socialID string, channel models.ChannelSource) (*models.Lead, error)
	// CreateLead inserts with on-conflict-do-nothing on the
	// (social_id, channel_source) natural key and returns the winning row,
	// which may be one created by a concurrent request.
	CreateLead(ctx context.Context, tenantID string, lead *models.Lead) (*models.Lead, error)

	FindOpenConversation(ctx context.Context, tenantID string, leadID uint) (*models.Conversation, error)
	CreateConversation(ctx context.Context, tenantID string, conv *models.Conversation) error
	TouchConversation(ctx context.Context, tenantID string, convID uint) error

	CreateMessage(ctx context.Context, tenantID string, msg *models.Message) error
	SetMessageDeliveryStatus(ctx context.Context, tenantID string, msgID uint, status models.DeliveryStatus) error

	ListActiveProducts(ctx context.Context, tenantID string, limit int) ([]models.Product, error)
	GetAIConfig(ctx context.Context, tenantID string) (*models.AIConfig, error)

	// Transact runs fn inside a single database transaction against the
	// tenant's schema. The CRMStore passed to fn must be used for all writes
	// that belong to the transaction.
	Transact(ctx context.Context, tenantID string, fn func(tx CRMStore) error) error
}

// BillingStore covers the shared-schema rows the invoice ledger touches.
// Amount lookups are deliberately cross-tenant: a bank mutation carries no
// tenant reference, only an amount.
type BillingStore interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	UpdateTenantSubscription(ctx context.Context, tenantID string, tier int, status models.SubscriptionStatus, endDate *time.Time) error

	FindPendingInvoice(ctx context.Context, tenantID string) (*models.SubscriptionInvoice, error)
	FindPendingInvoiceByAmount(ctx context.Context, amount int64) (*models.SubscriptionInvoice, error)
	FindPendingInvoiceByIntent(ctx context.Context, paymentIntentID string) (*models.SubscriptionInvoice, error)
	CreateInvoice(ctx context.Context, inv *models.SubscriptionInvoice) error
	MarkInvoicePaid(ctx context.Context, invoiceID uint, paidAt time.Time) error
}

// ChannelStore resolves channel records. Lookups by session name are
// cross-tenant; the session field in a webhook payload is the only routing
// information available.
type ChannelStore interface {
	FindChannelBySession(ctx context.Context, sessionName string) (*models.Channel, error)
	FindActiveChannel(ctx context.Context, tenantID string, channelType models.ChannelSource) (*models.Channel, error)
}
