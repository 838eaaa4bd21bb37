package model

import "time"

// Billing action names used by the command handlers.
const (
	BillingActionActivate = "activate"
	BillingActionCancel   = "cancel"
	BillingActionRenew    = "renew"
)

// BillingActionLog journals the local+remote steps of a command handler:
// intent is recorded first, the provider call outcome second, and the row
// is finalized once the local state change landed. An unfinalized row marks
// a command interrupted mid-flight; the reconciliation jobs re-converge the
// state on their next run.
type BillingActionLog struct {
	ID                     uint   `gorm:"primaryKey"`
	UserID                 uint   `gorm:"index;not null"`
	Action                 string `gorm:"size:30;not null"`
	ExternalSubscriptionID string `gorm:"size:191"`
	ProviderOK             *bool
	ProviderError          string `gorm:"type:text"`
	FinalizedAt            *time.Time
	CreatedAt              time.Time `gorm:"autoCreateTime"`
}

// Tablo adını özelleştir
func (BillingActionLog) TableName() string {
	return "billing_action_logs"
}
