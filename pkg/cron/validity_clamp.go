package cron

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"templora_backend/internal/model"
	"templora_backend/pkg/config"
	"templora_backend/pkg/subscription"
)

// RunValidityClampRepair guards against valid_until drifting too far ahead
// of what plan arithmetic justifies, e.g. a bug double-extending it. The
// reference anchor falls back through updated_at, created_at, valid_until
// and finally now.
func RunValidityClampRepair(db *gorm.DB, cfg *config.Config) Report {
	var subs []model.Subscription
	err := db.
		Where("is_active = ? AND valid_until IS NOT NULL AND plan <> ?", true, model.PlanWeeklyInstallment).
		Limit(cfg.Reconcile.BatchSize).
		Find(&subs).Error
	if err != nil {
		log.Printf("Validity clamp repair could not load candidates: %v", err)
		return newReport()
	}

	return runBatch(subs, cfg.Reconcile, func(sub model.Subscription) (string, string) {
		anchor := clampAnchor(&sub)
		expected := anchor.Add(subscription.Duration(cfg, sub.Plan))

		if !sub.ValidUntil.After(expected.Add(cfg.Billing.ClampTolerance)) {
			return outcomeSkipped, "within tolerance"
		}

		ok, err := casUpdate(db, &sub, map[string]interface{}{
			"valid_until": expected,
		})
		if err != nil {
			return outcomeError, err.Error()
		}
		if !ok {
			return outcomeSkipped, "concurrent update"
		}
		return outcomeFixed, fmt.Sprintf("clamped valid_until -> %s", expected.Format(time.RFC3339))
	})
}

func clampAnchor(sub *model.Subscription) time.Time {
	if !sub.UpdatedAt.IsZero() {
		return sub.UpdatedAt
	}
	if !sub.CreatedAt.IsZero() {
		return sub.CreatedAt
	}
	if sub.ValidUntil != nil {
		return *sub.ValidUntil
	}
	return time.Now()
}
