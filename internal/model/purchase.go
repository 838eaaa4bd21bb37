package model

import (
	"time"

	"gorm.io/gorm"
)

// Purchase statuses. One-time payment webhooks flip these.
const (
	PurchaseStatusNew    = "new"
	PurchaseStatusPaid   = "paid"
	PurchaseStatusFailed = "failed"
)

// Purchase is a one-time order for a single template, independent of the
// subscription entitlement. The provider's payment.captured / payment.failed
// events without an invoice linkage resolve here by receipt number.
type Purchase struct {
	gorm.Model
	UserID            uint    `json:"user_id" gorm:"index"`
	TemplateID        uint    `json:"template_id" gorm:"index"`
	ReceiptNo         string  `json:"receipt_no" gorm:"uniqueIndex;not null"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency" gorm:"default:'USD'"`
	Status            string  `json:"status" gorm:"default:'new'"`
	ProviderOrderID   string  `json:"provider_order_id"`
	ProviderPaymentID string  `json:"provider_payment_id"`
	PaidAt            *time.Time

	// İlişkiler
	User     User     `json:"-" gorm:"foreignKey:UserID"`
	Template Template `json:"template" gorm:"foreignKey:TemplateID"`
}
