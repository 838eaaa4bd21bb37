package model

import (
	"time"

	"gorm.io/gorm"
)

// Plan cadence values
const (
	PlanMonthly           = "monthly"
	PlanYearly            = "yearly"
	PlanWeeklyInstallment = "weekly_installment"

	// Eski kayıtlarda kalan alias, her okuma/yazma sınırında monthly'e çevrilir
	PlanLegacyWeekly = "weekly"
)

// NormalizePlan maps the legacy "weekly" alias to monthly and empty values
// to monthly. Unknown values are passed through unchanged so callers can
// reject them explicitly.
func NormalizePlan(plan string) string {
	switch plan {
	case PlanLegacyWeekly, "":
		return PlanMonthly
	default:
		return plan
	}
}

// IsKnownPlan reports whether plan is one of the closed set of plan values
// after normalization.
func IsKnownPlan(plan string) bool {
	switch NormalizePlan(plan) {
	case PlanMonthly, PlanYearly, PlanWeeklyInstallment:
		return true
	}
	return false
}

// Subscription is the authoritative local entitlement record. One row per
// user; the external billing provider remains the source of truth for
// whether money actually moved.
type Subscription struct {
	gorm.Model
	UserID                 uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	Plan                   string     `json:"plan" gorm:"not null;default:'monthly'"`
	IsActive               bool       `json:"is_active" gorm:"default:false"`
	ValidUntil             *time.Time `json:"valid_until"`
	AutopayEnabled         bool       `json:"autopay_enabled" gorm:"default:false"`
	ExternalSubscriptionID string     `json:"external_subscription_id"`
	ExpiryEmailSentAt      *time.Time `json:"expiry_email_sent_at"`

	// İlişkiler
	User    User                `json:"-" gorm:"foreignKey:UserID"`
	Tracker *InstallmentTracker `json:"-" gorm:"foreignKey:SubscriptionID"`
}

// BeforeSave plan alias'ını yazma sınırında normalize eder
func (s *Subscription) BeforeSave(tx *gorm.DB) error {
	s.Plan = NormalizePlan(s.Plan)
	return nil
}

// AfterFind normalizes legacy plan values on the stored-row read boundary.
func (s *Subscription) AfterFind(tx *gorm.DB) error {
	s.Plan = NormalizePlan(s.Plan)
	return nil
}
