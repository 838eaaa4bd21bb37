package cron

import (
	"log"
	"time"

	"gorm.io/gorm"

	"templora_backend/internal/model"
	"templora_backend/pkg/config"
)

const heartbeatStaleAfter = 24 * time.Hour

// RunHeartbeatRepair keeps updated_at trustworthy for the jobs that use it
// as their duration-arithmetic anchor. Active rows with a future
// valid_until get their updated_at refreshed when it is missing or more
// than a day stale; no other field changes.
func RunHeartbeatRepair(db *gorm.DB, cfg *config.Config) Report {
	var subs []model.Subscription
	err := db.
		Where("is_active = ? AND valid_until > ?", true, time.Now()).
		Limit(cfg.Reconcile.BatchSize).
		Find(&subs).Error
	if err != nil {
		log.Printf("Heartbeat repair could not load candidates: %v", err)
		return newReport()
	}

	return runBatch(subs, cfg.Reconcile, func(sub model.Subscription) (string, string) {
		stale := sub.UpdatedAt.IsZero() || time.Since(sub.UpdatedAt) > heartbeatStaleAfter
		if !stale {
			return outcomeSkipped, "fresh"
		}

		// Updates ile updated_at otomatik now olur
		ok, err := casUpdate(db, &sub, map[string]interface{}{
			"updated_at": time.Now(),
		})
		if err != nil {
			return outcomeError, err.Error()
		}
		if !ok {
			return outcomeSkipped, "concurrent update"
		}
		return outcomeFixed, "updated_at refreshed"
	})
}
