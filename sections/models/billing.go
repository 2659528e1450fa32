package models

import (
	"time"

	"gorm.io/gorm"
)

// InvoiceStatus is pending or paid. The pending→paid transition happens
// exactly once and is the deduplication gate for replayed payment webhooks.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
)

// PaymentMethod selects how an invoice is settled.
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
)

// SubscriptionInvoice is a billing intent. For bank transfers the total
// amount carries a surcharge code in [1,999] so an incoming mutation can be
// matched back to the invoice by exact amount.
type SubscriptionInvoice struct {
	gorm.Model
	TenantSchema string `gorm:"size:63;not null;index" json:"tenantSchema"`
	Reference    string `gorm:"size:36;not null;uniqueIndex" json:"reference"`

	TargetTier int   `gorm:"not null" json:"targetTier"`
	BaseAmount int64 `gorm:"not null" json:"baseAmount"`
	UniqueCode int   `gorm:"not null" json:"uniqueCode"`
	Amount     int64 `gorm:"not null;index" json:"amount"` // base + unique code

	Status        InvoiceStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	PaymentMethod PaymentMethod `gorm:"size:20;not null;default:'bank_transfer'" json:"paymentMethod"`

	StripePaymentIntentID *string    `gorm:"size:255;index" json:"-"`
	PaidAt                *time.Time `json:"paidAt,omitempty"`
}

// TableName returns the table name with public schema prefix
func (SubscriptionInvoice) TableName() string {
	return "public.subscription_invoices"
}

// IsSharedModel indicates this is a shared/public model
func (SubscriptionInvoice) IsSharedModel() bool {
	return true
}
