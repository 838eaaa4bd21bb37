package cron

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"templora_backend/internal/model"
	"templora_backend/pkg/billing"
	"templora_backend/pkg/config"
	"templora_backend/pkg/subscription"
)

// RunInstallmentDriftRepair reconciles the weekly installment payment flags
// against the provider's paid cycle count. When the provider cannot be
// consulted it falls back to a local-only correction that never shrinks
// validity.
func RunInstallmentDriftRepair(db *gorm.DB, provider billing.Provider, cfg *config.Config) Report {
	var subs []model.Subscription
	err := db.
		Where("is_active = ? AND plan = ?", true, model.PlanWeeklyInstallment).
		Limit(cfg.Reconcile.BatchSize).
		Find(&subs).Error
	if err != nil {
		log.Printf("Installment drift repair could not load candidates: %v", err)
		return newReport()
	}

	week := cfg.Billing.InstallmentWeek

	return runBatch(subs, cfg.Reconcile, func(sub model.Subscription) (string, string) {
		var tracker model.InstallmentTracker
		if err := db.Where("subscription_id = ?", sub.ID).First(&tracker).Error; err != nil {
			return outcomeError, fmt.Sprintf("tracker missing: %v", err)
		}

		weeksPaid := tracker.WeeksPaid()

		if sub.ExternalSubscriptionID != "" {
			state, err := provider.GetCycleState(sub.ExternalSubscriptionID)
			if err == nil {
				if state.PaidCount <= weeksPaid {
					return outcomeSkipped, "in sync"
				}

				after := subscription.AdvanceInstallmentPayments(&tracker, state.PaidCount)
				if err := db.Save(&tracker).Error; err != nil {
					return outcomeError, err.Error()
				}

				newValidUntil := tracker.WeekStartDate.Add(time.Duration(after) * week)
				ok, err := casUpdate(db, &sub, map[string]interface{}{
					"valid_until": newValidUntil,
				})
				if err != nil {
					return outcomeError, err.Error()
				}
				if !ok {
					return outcomeSkipped, "concurrent update"
				}
				return outcomeFixed, fmt.Sprintf("advanced to %d paid weeks", after)
			}
			log.Printf("Installment drift: provider fetch failed for subscription %d: %v", sub.ID, err)
		}

		// Lokal düzeltme: validity asla kısaltılmaz
		expected := tracker.WeekStartDate.Add(time.Duration(weeksPaid) * week)
		if sub.ValidUntil != nil && !expected.After(*sub.ValidUntil) {
			return outcomeSkipped, "local state current"
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
		return outcomeFixed, fmt.Sprintf("local fallback valid_until -> %s", expected.Format(time.RFC3339))
	})
}
