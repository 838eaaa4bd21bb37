package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"templora_backend/internal/model"
	"templora_backend/pkg/billing"
	"templora_backend/pkg/config"
	"templora_backend/pkg/email"
)

// InitReconciliationCron registers the drift repair jobs, the expiry
// notifier and the expiry sweep on their schedules.
func InitReconciliationCron(db *gorm.DB, provider billing.Provider, cfg *config.Config) {
	c := cron.New()

	register := func(spec, name string, job func() Report) {
		_, err := c.AddFunc(spec, func() {
			report := job()
			log.Printf("%s: processed=%d fixed=%d skipped=%d errors=%d",
				name, report.Processed, len(report.Fixed), len(report.Skipped), len(report.Errors))
		})
		if err != nil {
			log.Printf("Could not register %s cron: %v", name, err)
		}
	}

	register("30 2 * * *", "renewal drift repair", func() Report {
		return RunRenewalDriftRepair(db, provider, cfg)
	})
	register("45 2 * * *", "validity clamp repair", func() Report {
		return RunValidityClampRepair(db, cfg)
	})
	register("15 * * * *", "heartbeat repair", func() Report {
		return RunHeartbeatRepair(db, cfg)
	})
	register("0 */4 * * *", "installment drift repair", func() Report {
		return RunInstallmentDriftRepair(db, provider, cfg)
	})
	register("0 9 * * *", "expiry notifier", func() Report {
		return RunExpiryNotifier(db, cfg)
	})
	register("*/30 * * * *", "expiry sweep", func() Report {
		return RunExpirySweep(db, cfg)
	})

	c.Start()
}

// RunExpiryNotifier sends a single reminder to subscriptions expiring in
// the [now+2d, now+3d) window. The send-once gate is claimed with a
// compare-and-swap before the send call, so a retry after a crash cannot
// produce a duplicate reminder.
func RunExpiryNotifier(db *gorm.DB, cfg *config.Config) Report {
	now := time.Now()
	windowStart := now.Add(2 * 24 * time.Hour)
	windowEnd := now.Add(3 * 24 * time.Hour)

	var subs []model.Subscription
	err := db.
		Where("is_active = ? AND expiry_email_sent_at IS NULL AND valid_until >= ? AND valid_until < ?",
			true, windowStart, windowEnd).
		Limit(cfg.Reconcile.BatchSize).
		Preload("User").
		Find(&subs).Error
	if err != nil {
		log.Printf("Expiry notifier could not load candidates: %v", err)
		return newReport()
	}

	return runBatch(subs, cfg.Reconcile, func(sub model.Subscription) (string, string) {
		// Önce gate, sonra gönderim
		ok, err := casUpdate(db, &sub, map[string]interface{}{
			"expiry_email_sent_at": time.Now(),
		})
		if err != nil {
			return outcomeError, err.Error()
		}
		if !ok {
			return outcomeSkipped, "concurrent update"
		}

		if email.GlobalEmailService != nil && sub.User.Email != "" {
			if err := email.GlobalEmailService.SendSubscriptionExpiryWarning(
				sub.User.Email, sub.User.StoreName, sub.Plan, *sub.ValidUntil,
			); err != nil {
				// Gate kapandı, tekrar gönderim yok; sadece logla
				log.Printf("Could not send expiry warning to %s: %v", sub.User.Email, err)
			}
		}
		return outcomeFixed, "reminder sent"
	})
}

// RunExpirySweep deactivates subscriptions whose validity has passed. This
// is the only path that fully deactivates a lapsed weekly installment
// plan; the tracker row itself is never deleted.
func RunExpirySweep(db *gorm.DB, cfg *config.Config) Report {
	var subs []model.Subscription
	err := db.
		Where("is_active = ? AND valid_until IS NOT NULL AND valid_until < ?", true, time.Now()).
		Limit(cfg.Reconcile.BatchSize).
		Find(&subs).Error
	if err != nil {
		log.Printf("Expiry sweep could not load candidates: %v", err)
		return newReport()
	}

	return runBatch(subs, cfg.Reconcile, func(sub model.Subscription) (string, string) {
		ok, err := casUpdate(db, &sub, map[string]interface{}{
			"is_active":       false,
			"autopay_enabled": false,
		})
		if err != nil {
			return outcomeError, err.Error()
		}
		if !ok {
			return outcomeSkipped, "concurrent update"
		}
		return outcomeFixed, "deactivated"
	})
}
