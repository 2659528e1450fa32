package models

import (
	"gorm.io/gorm"
)

// LeadStatus tracks a lead through the sales funnel.
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQualified LeadStatus = "qualified"
	LeadConverted LeadStatus = "converted"
	LeadLost      LeadStatus = "lost"
)

// Lead is a prospective customer addressed by an external identity (phone
// number or widget session token). The (social_id, channel_source) pair is a
// natural key: the composite unique index backs the resolver's atomic
// find-or-create.
type Lead struct {
	gorm.Model
	TenantSchema  string        `gorm:"size:63;not null;index" json:"tenantSchema"`
	Name          string        `gorm:"size:255" json:"name"`
	SocialID      string        `gorm:"size:255;not null;uniqueIndex:idx_leads_identity" json:"socialId"`
	ChannelSource ChannelSource `gorm:"size:20;not null;uniqueIndex:idx_leads_identity" json:"channelSource"`
	Status        LeadStatus    `gorm:"size:20;not null;default:'new'" json:"status"`
}

// TableName returns the table name (no prefix for tenant-scoped)
func (Lead) TableName() string {
	return "leads"
}

// IsSharedModel indicates this is a tenant-specific model
func (Lead) IsSharedModel() bool {
	return false
}

// ConversationStatus is open or closed. Closing is not exercised by the
// message pipeline; it exists for the dashboard inbox.
type ConversationStatus string

const (
	ConversationOpen   ConversationStatus = "open"
	ConversationClosed ConversationStatus = "closed"
)

// Conversation is a bounded interaction session between a lead and the
// tenant. The resolver treats the most recently updated open conversation as
// current.
type Conversation struct {
	gorm.Model
	TenantSchema string             `gorm:"size:63;not null;index" json:"tenantSchema"`
	LeadID       uint               `gorm:"not null;index" json:"leadId"`
	Status       ConversationStatus `gorm:"size:10;not null;default:'open';index" json:"status"`
	ChannelID    *uint              `json:"channelId,omitempty"`
}

// TableName returns the table name (no prefix for tenant-scoped)
func (Conversation) TableName() string {
	return "conversations"
}

// IsSharedModel indicates this is a tenant-specific model
func (Conversation) IsSharedModel() bool {
	return false
}

// SenderType identifies who produced a message.
type SenderType string

const (
	SenderUser SenderType = "user"
	SenderAI   SenderType = "ai"
	SenderLead SenderType = "lead"
)

// DeliveryStatus records the outcome of best-effort outbound delivery for ai
// messages pushed back over an external channel. Empty for messages that
// never leave the platform.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Message is a single immutable turn. Ordering is by creation time ascending.
type Message struct {
	gorm.Model
	TenantSchema   string         `gorm:"size:63;not null;index" json:"tenantSchema"`
	ConversationID *uint          `gorm:"index" json:"conversationId,omitempty"`
	LeadID         *uint          `gorm:"index" json:"leadId,omitempty"` // legacy customer-portal path
	Content        string         `gorm:"type:text;not null" json:"content"`
	SenderType     SenderType     `gorm:"size:10;not null" json:"senderType"`
	DeliveryStatus DeliveryStatus `gorm:"size:10" json:"deliveryStatus,omitempty"`
}

// TableName returns the table name (no prefix for tenant-scoped)
func (Message) TableName() string {
	return "messages"
}

// IsSharedModel indicates this is a tenant-specific model
func (Message) IsSharedModel() bool {
	return false
}

// Product is a catalog item consumed read-only by the responder.
type Product struct {
	gorm.Model
	TenantSchema string `gorm:"size:63;not null;index" json:"tenantSchema"`
	Name         string `gorm:"size:255;not null" json:"name"`
	Description  string `gorm:"type:text" json:"description"`
	PriceIDR     int64  `gorm:"not null;default:0" json:"priceIdr"`
	Stock        int    `gorm:"not null;default:0" json:"stock"`
	Active       bool   `gorm:"default:true" json:"active"`
}

// TableName returns the table name (no prefix for tenant-scoped)
func (Product) TableName() string {
	return "products"
}

// IsSharedModel indicates this is a tenant-specific model
func (Product) IsSharedModel() bool {
	return false
}

// AIConfig stores the responder persona and the onboarding answers used to
// build the system context.
type AIConfig struct {
	gorm.Model
	TenantSchema      string `gorm:"size:63;not null;uniqueIndex" json:"tenantSchema"`
	PersonaName       string `gorm:"size:128" json:"personaName"`
	Tone              string `gorm:"size:64" json:"tone"`
	Question1         string `gorm:"type:text" json:"question1"`
	Question2         string `gorm:"type:text" json:"question2"`
	Question3         string `gorm:"type:text" json:"question3"`
	Question4         string `gorm:"type:text" json:"question4"`
	Question5         string `gorm:"type:text" json:"question5"`
	AdditionalDetails string `gorm:"type:text" json:"additionalDetails"`
}

// TableName returns the table name (no prefix for tenant-scoped)
func (AIConfig) TableName() string {
	return "ai_configs"
}

// IsSharedModel indicates this is a tenant-specific model
func (AIConfig) IsSharedModel() bool {
	return false
}

// OrderStatus tracks a simulated order through payment and fulfilment.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPaid       OrderStatus = "paid"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// Order is a simulated sales order attached to a lead.
type Order struct {
	gorm.Model
	TenantSchema string      `gorm:"size:63;not null;index" json:"tenantSchema"`
	LeadID       *uint       `gorm:"index" json:"leadId,omitempty"`
	TotalAmount  int64       `gorm:"not null;default:0" json:"totalAmount"`
	Status       OrderStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
}

// TableName returns the table name (no prefix for tenant-scoped)
func (Order) TableName() string {
	return "orders"
}

// IsSharedModel indicates this is a tenant-specific model
func (Order) IsSharedModel() bool {
	return false
}
