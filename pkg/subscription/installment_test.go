package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"templora_backend/internal/model"
)

const week = 7 * 24 * time.Hour

func freshTracker(start time.Time) model.InstallmentTracker {
	return model.InstallmentTracker{
		WeekStartDate:    start,
		CurrentWeekStart: start,
		WeekNumber:       1,
		Week1Paid:        true,
		CurrentWeekPaid:  true,
	}
}

func TestRolloverWeek(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	week1, window1 := RolloverWeek(start, start, week)
	assert.Equal(t, 1, week1)
	assert.Equal(t, start, window1)

	// 8. gün ikinci haftanın içindedir
	week2, window2 := RolloverWeek(start, start.Add(8*24*time.Hour), week)
	assert.Equal(t, 2, week2)
	assert.Equal(t, start.Add(week), window2)

	week3, window3 := RolloverWeek(start, start.Add(20*24*time.Hour), week)
	assert.Equal(t, 3, week3)
	assert.Equal(t, start.Add(2*week), window3)

	// Hafta numarası 3'te tavanlanır
	capped, cappedWindow := RolloverWeek(start, start.Add(100*24*time.Hour), week)
	assert.Equal(t, 3, capped)
	assert.Equal(t, start.Add(2*week), cappedWindow)

	// Saat kayması ile gelecekteki anchor geriye sarmaz
	early, _ := RolloverWeek(start, start.Add(-time.Hour), week)
	assert.Equal(t, 1, early)
}

func TestEvaluateInstallmentFirstWeek(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tracker := freshTracker(start)
	tracker.DownloadsUsed = 2

	status := EvaluateInstallment(&tracker, start.Add(3*24*time.Hour), week, 5)

	assert.Equal(t, 1, status.WeekNumber)
	assert.True(t, status.CurrentWeekPaid)
	assert.Equal(t, 3, status.DownloadsAvailable)
	assert.False(t, status.PaymentRequired)
	assert.False(t, status.RolledOver)
}

func TestEvaluateInstallmentRollsIntoUnpaidWeek(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tracker := freshTracker(start)
	tracker.DownloadsUsed = 5

	status := EvaluateInstallment(&tracker, start.Add(8*24*time.Hour), week, 5)

	assert.Equal(t, 2, status.WeekNumber)
	assert.True(t, status.RolledOver)
	assert.Equal(t, start.Add(week), status.CurrentWeekStart)

	// Rollover kotayı sıfırlar ama ödenmemiş haftada indirme yoktur
	assert.Equal(t, 0, status.DownloadsUsed)
	assert.Equal(t, 0, status.DownloadsAvailable)
	assert.False(t, status.CurrentWeekPaid)
	assert.True(t, status.PaymentRequired)
}

func TestEvaluateInstallmentPaidWeekTwo(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tracker := freshTracker(start)
	tracker.Week2Paid = true

	status := EvaluateInstallment(&tracker, start.Add(9*24*time.Hour), week, 5)

	assert.Equal(t, 2, status.WeekNumber)
	assert.True(t, status.CurrentWeekPaid)
	assert.Equal(t, 5, status.DownloadsAvailable)
	assert.False(t, status.PaymentRequired)
}

func TestEvaluateInstallmentRepeatedReadsAtCapDoNotResetQuota(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tracker := freshTracker(start)
	tracker.Week2Paid = true
	tracker.Week3Paid = true

	now := start.Add(30 * 24 * time.Hour)

	first := EvaluateInstallment(&tracker, now, week, 5)
	assert.Equal(t, 3, first.WeekNumber)
	assert.True(t, first.RolledOver)

	tracker.DownloadsUsed = 4
	second := EvaluateInstallment(&tracker, now.Add(time.Hour), week, 5)
	assert.Equal(t, 3, second.WeekNumber)
	assert.False(t, second.RolledOver)
	assert.Equal(t, 4, second.DownloadsUsed)
	assert.Equal(t, 1, second.DownloadsAvailable)
}

func TestAdvanceInstallmentPayments(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tracker := freshTracker(start)
	tracker.WeekNumber = 2
	tracker.CurrentWeekPaid = false

	after := AdvanceInstallmentPayments(&tracker, 2)
	assert.Equal(t, 2, after)
	assert.True(t, tracker.Week2Paid)
	assert.False(t, tracker.Week3Paid)
	assert.True(t, tracker.CurrentWeekPaid)

	// Provider sayacı 3'ün üstünde raporlasa bile tavan 3'tür
	after = AdvanceInstallmentPayments(&tracker, 12)
	assert.Equal(t, 3, after)
	assert.True(t, tracker.Week3Paid)
}
