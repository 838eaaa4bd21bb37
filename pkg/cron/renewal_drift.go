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

// RunRenewalDriftRepair fixes local validity that fell behind the
// provider's cycle state: a renewal charge the provider collected while a
// webhook went missing. Weekly installment rows have their own drift job
// with their own arithmetic.
func RunRenewalDriftRepair(db *gorm.DB, provider billing.Provider, cfg *config.Config) Report {
	var subs []model.Subscription
	err := db.
		Where("is_active = ? AND autopay_enabled = ? AND external_subscription_id <> '' AND plan <> ?",
			true, true, model.PlanWeeklyInstallment).
		Limit(cfg.Reconcile.BatchSize).
		Find(&subs).Error
	if err != nil {
		log.Printf("Renewal drift repair could not load candidates: %v", err)
		return newReport()
	}

	return runBatch(subs, cfg.Reconcile, func(sub model.Subscription) (string, string) {
		state, err := provider.GetCycleState(sub.ExternalSubscriptionID)
		if err != nil {
			return outcomeError, err.Error()
		}

		// Deaktivasyon expiry sweep'in işi, burada değil
		if state.Status != billing.CycleStatusActive {
			return outcomeSkipped, "provider reports " + state.Status
		}

		now := time.Now()
		duration := subscription.Duration(cfg, sub.Plan)

		var anchor time.Time
		switch {
		case sub.ValidUntil == nil:
			// Never computed locally: anchor at the later of the
			// provider's cycle end and now.
			anchor = now
			if state.CurrentCycleEnd != nil && state.CurrentCycleEnd.After(anchor) {
				anchor = *state.CurrentCycleEnd
			}
		case state.CurrentCycleEnd == nil || !state.CurrentCycleEnd.After(*sub.ValidUntil):
			return outcomeSkipped, "in sync"
		default:
			// One synthetic duration anchored locally, never a mirror of
			// the provider's cycle end.
			anchor = now
			if sub.ValidUntil.After(anchor) {
				anchor = *sub.ValidUntil
			}
		}

		newValidUntil := anchor.Add(duration)
		ok, err := casUpdate(db, &sub, map[string]interface{}{
			"valid_until":     newValidUntil,
			"autopay_enabled": true,
		})
		if err != nil {
			return outcomeError, err.Error()
		}
		if !ok {
			return outcomeSkipped, "concurrent update"
		}
		return outcomeFixed, fmt.Sprintf("valid_until -> %s", newValidUntil.Format(time.RFC3339))
	})
}
