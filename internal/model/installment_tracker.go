package model

import (
	"time"

	"gorm.io/gorm"
)

// InstallmentTracker follows the 3-cycle weekly installment plan for a
// single subscription. Each 7-day window carries its own payment flag and
// a download quota that resets on rollover. Trackers are never deleted; a
// lapsed plan only gets its parent Subscription deactivated by the expiry
// sweep.
type InstallmentTracker struct {
	gorm.Model
	SubscriptionID   uint      `json:"subscription_id" gorm:"uniqueIndex;not null"`
	UserID           uint      `json:"user_id" gorm:"index;not null"`
	WeekStartDate    time.Time `json:"week_start_date"`
	CurrentWeekStart time.Time `json:"current_week_start"`
	WeekNumber       int       `json:"week_number" gorm:"default:1"`
	DownloadsUsed    int       `json:"downloads_used" gorm:"default:0"`

	// Week1Paid ilk aktivasyon ödemesiyle karşılandığı için true başlar
	Week1Paid       bool `json:"week1_paid" gorm:"default:true"`
	Week2Paid       bool `json:"week2_paid" gorm:"default:false"`
	Week3Paid       bool `json:"week3_paid" gorm:"default:false"`
	CurrentWeekPaid bool `json:"current_week_paid" gorm:"default:true"`

	// İlişkiler
	Subscription Subscription `json:"-" gorm:"foreignKey:SubscriptionID"`
}

// WeekPaid returns the payment flag for a 1-based week number.
func (t *InstallmentTracker) WeekPaid(week int) bool {
	switch week {
	case 1:
		return t.Week1Paid
	case 2:
		return t.Week2Paid
	case 3:
		return t.Week3Paid
	}
	return false
}

// SetWeekPaid sets the payment flag for a 1-based week number.
func (t *InstallmentTracker) SetWeekPaid(week int, paid bool) {
	switch week {
	case 1:
		t.Week1Paid = paid
	case 2:
		t.Week2Paid = paid
	case 3:
		t.Week3Paid = paid
	}
}

// WeeksPaid counts the confirmed installment payments. The first week is
// covered by the activation charge, so the count is never below 1.
func (t *InstallmentTracker) WeeksPaid() int {
	count := 0
	for week := 1; week <= 3; week++ {
		if t.WeekPaid(week) {
			count++
		}
	}
	if count < 1 {
		count = 1
	}
	return count
}
