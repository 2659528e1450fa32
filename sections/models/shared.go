package models

import (
	"time"

	multitenancy "github.com/bartventer/gorm-multitenancy/v8"
	"gorm.io/gorm"
)

// SubscriptionStatus is the lifecycle state of a tenant's subscription.
type SubscriptionStatus string

const (
	SubscriptionActive         SubscriptionStatus = "active"
	SubscriptionPendingPayment SubscriptionStatus = "pending_payment"
	SubscriptionExpired        SubscriptionStatus = "expired"
)

// Subscription tiers.
const (
	TierChatbotAssistant = 1
	TierSalesAgent       = 2
)

// Tenant represents a subscribing business (public/shared model). Exactly one
// tenant exists per owning user.
type Tenant struct {
	multitenancy.TenantModel
	gorm.Model
	CompanyName string `gorm:"size:255;not null" json:"companyName"`
	OwnerUserID uint   `gorm:"not null;uniqueIndex" json:"ownerUserId"`

	SubscriptionTier    int                `gorm:"not null;default:1" json:"subscriptionTier"`
	SubscriptionStatus  SubscriptionStatus `gorm:"size:32;not null;default:'pending_payment'" json:"subscriptionStatus"`
	SubscriptionEndDate *time.Time         `json:"subscriptionEndDate,omitempty"`

	// Channel credentials.
	WahaURL          *string `gorm:"size:512" json:"wahaUrl,omitempty"`
	TelegramBotToken *string `gorm:"size:255" json:"-"`

	// Bank details for receiving transfers (tier 2 only).
	BankName          *string `gorm:"size:128" json:"bankName,omitempty"`
	BankAccountNumber *string `gorm:"size:64" json:"bankAccountNumber,omitempty"`
	BankAccountHolder *string `gorm:"size:255" json:"bankAccountHolder,omitempty"`

	StripeCustomerID *string `gorm:"size:255" json:"-"`
}

// TableName returns the table name with public schema prefix
func (Tenant) TableName() string {
	return "public.tenants"
}

// IsSharedModel indicates this is a shared/public model
func (Tenant) IsSharedModel() bool {
	return true
}

// User represents a dashboard user (public/shared model)
type User struct {
	gorm.Model
	Email        string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string     `gorm:"size:255" json:"-"`
	Active       bool       `gorm:"default:true" json:"active"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// TableName returns the table name with public schema prefix
func (User) TableName() string {
	return "public.users"
}

// IsSharedModel indicates this is a shared/public model
func (User) IsSharedModel() bool {
	return true
}

// ChannelSource identifies where a lead or message originated.
type ChannelSource string

const (
	ChannelWeb        ChannelSource = "web"
	ChannelWAHA       ChannelSource = "wa_waha"
	ChannelWAOfficial ChannelSource = "wa_official"
	ChannelTelegram   ChannelSource = "telegram"
)

// Channel maps an external messaging session to its owning tenant. It is a
// shared model because inbound webhooks must resolve the tenant before any
// tenant-scoped query can run.
type Channel struct {
	gorm.Model
	TenantSchema string        `gorm:"size:63;not null;index" json:"tenantSchema"`
	Type         ChannelSource `gorm:"size:20;not null;default:'wa_waha'" json:"type"`
	SessionName  string        `gorm:"size:128;not null;uniqueIndex" json:"sessionName"`
	GatewayURL   string        `gorm:"size:512" json:"gatewayUrl"`
	Active       bool          `gorm:"default:true" json:"active"`
}

// TableName returns the table name with public schema prefix
func (Channel) TableName() string {
	return "public.channels"
}

// IsSharedModel indicates this is a shared/public model
func (Channel) IsSharedModel() bool {
	return true
}
