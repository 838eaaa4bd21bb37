package subscription

import (
	"time"

	"templora_backend/internal/model"
)

// InstallmentStatus is the lazily recomputed view of a weekly installment
// tracker. A status read performs the rollover; no cron is needed for the
// week transitions themselves.
type InstallmentStatus struct {
	WeekNumber         int       `json:"week_number"`
	CurrentWeekStart   time.Time `json:"current_week_start"`
	CurrentWeekPaid    bool      `json:"current_week_paid"`
	DownloadsUsed      int       `json:"downloads_used"`
	DownloadsAvailable int       `json:"downloads_available"`
	PaymentRequired    bool      `json:"payment_required"`
	RolledOver         bool      `json:"-"`
}

// RolloverWeek computes the week number and window anchor the tracker
// should be in at the given instant. The week number is derived from the
// original anchor date so delayed reads land in the correct window, and it
// is capped at 3.
func RolloverWeek(weekStartDate time.Time, now time.Time, weekLen time.Duration) (int, time.Time) {
	elapsed := now.Sub(weekStartDate)
	if elapsed < 0 {
		elapsed = 0
	}

	week := int(elapsed/weekLen) + 1
	if week > 3 {
		week = 3
	}

	windowStart := weekStartDate.Add(time.Duration(week-1) * weekLen)
	return week, windowStart
}

// EvaluateInstallment applies the lazy rollover to the tracker in memory
// and returns the derived status. The caller persists the tracker when
// RolledOver is true.
func EvaluateInstallment(t *model.InstallmentTracker, now time.Time, weekLen time.Duration, quota int) InstallmentStatus {
	rolled := false

	if now.Sub(t.CurrentWeekStart) >= weekLen {
		week, windowStart := RolloverWeek(t.WeekStartDate, now, weekLen)

		// week_number tekdüze artar, asla geri gitmez
		if week > t.WeekNumber {
			t.WeekNumber = week
			t.CurrentWeekStart = windowStart
			t.DownloadsUsed = 0
			rolled = true
		}
		t.CurrentWeekPaid = t.WeekPaid(t.WeekNumber)
	} else {
		t.CurrentWeekPaid = t.WeekPaid(t.WeekNumber)
	}

	available := 0
	if t.CurrentWeekPaid {
		available = quota - t.DownloadsUsed
		if available < 0 {
			available = 0
		}
	}

	return InstallmentStatus{
		WeekNumber:         t.WeekNumber,
		CurrentWeekStart:   t.CurrentWeekStart,
		CurrentWeekPaid:    t.CurrentWeekPaid,
		DownloadsUsed:      t.DownloadsUsed,
		DownloadsAvailable: available,
		PaymentRequired:    t.WeekNumber >= 2 && !t.CurrentWeekPaid,
		RolledOver:         rolled,
	}
}

// AdvanceInstallmentPayments marks payment flags up to paidCount confirmed
// weeks (capped at 3) and returns the number of paid weeks afterwards.
func AdvanceInstallmentPayments(t *model.InstallmentTracker, paidCount int) int {
	if paidCount > 3 {
		paidCount = 3
	}
	for week := 1; week <= paidCount; week++ {
		t.SetWeekPaid(week, true)
	}
	t.CurrentWeekPaid = t.WeekPaid(t.WeekNumber)
	return t.WeeksPaid()
}
