package cron

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"templora_backend/internal/model"
	"templora_backend/pkg/config"
)

// Row outcome buckets. One bad row never aborts a batch; it lands in the
// errors bucket and the batch moves on.
const (
	outcomeFixed   = "fixed"
	outcomeSkipped = "skipped"
	outcomeError   = "error"
)

type ItemResult struct {
	SubscriptionID uint   `json:"subscription_id"`
	UserID         uint   `json:"user_id"`
	Reason         string `json:"reason"`
}

// Report is the per-invocation result of a reconciliation job.
type Report struct {
	Processed int          `json:"processed_count"`
	Fixed     []ItemResult `json:"fixed"`
	Skipped   []ItemResult `json:"skipped"`
	Errors    []ItemResult `json:"errors"`
}

func newReport() Report {
	return Report{
		Fixed:   []ItemResult{},
		Skipped: []ItemResult{},
		Errors:  []ItemResult{},
	}
}

type rowOutcome struct {
	kind string
	item ItemResult
}

// runBatch pushes the rows through a bounded worker pool. Every row gets
// its own deadline and the batch as a whole honors an overall deadline,
// yielding the partial report instead of blocking on a slow provider.
func runBatch(subs []model.Subscription, rc config.ReconcileConfig, fn func(sub model.Subscription) (string, string)) Report {
	report := newReport()
	if len(subs) == 0 {
		return report
	}

	workers := rc.Workers
	if workers < 1 {
		workers = 1
	}

	batchDeadline := time.After(rc.BatchTimeout)
	sem := make(chan struct{}, workers)
	results := make(chan rowOutcome, len(subs))
	var wg sync.WaitGroup

	dispatched := 0
dispatch:
	for _, sub := range subs {
		select {
		case <-batchDeadline:
			// Kalan satırlar bir sonraki çalıştırmaya bırakılır
			break dispatch
		case sem <- struct{}{}:
		}

		dispatched++
		wg.Add(1)
		go func(sub model.Subscription) {
			defer wg.Done()
			defer func() { <-sem }()

			kind, reason := runWithTimeout(sub, rc.CallTimeout, fn)
			results <- rowOutcome{
				kind: kind,
				item: ItemResult{SubscriptionID: sub.ID, UserID: sub.UserID, Reason: reason},
			}
		}(sub)
	}

	wg.Wait()
	close(results)

	for r := range results {
		switch r.kind {
		case outcomeFixed:
			report.Fixed = append(report.Fixed, r.item)
		case outcomeSkipped:
			report.Skipped = append(report.Skipped, r.item)
		default:
			report.Errors = append(report.Errors, r.item)
		}
	}
	report.Processed = dispatched
	return report
}

// runWithTimeout bounds a single row's work. On timeout the abandoned call
// finishes in the background and its result is discarded, so a write it
// still lands counts as an error in the report even though the row got
// repaired. The write itself stays safe: it goes through casUpdate, which
// refuses to overwrite anything newer than the snapshot it decided on.
// The next run sees the repaired row and skips it.
func runWithTimeout(sub model.Subscription, timeout time.Duration, fn func(sub model.Subscription) (string, string)) (string, string) {
	if timeout <= 0 {
		kind, reason := fn(sub)
		return kind, reason
	}

	type result struct {
		kind   string
		reason string
	}
	done := make(chan result, 1)

	go func() {
		kind, reason := fn(sub)
		done <- result{kind: kind, reason: reason}
	}()

	select {
	case r := <-done:
		return r.kind, r.reason
	case <-time.After(timeout):
		return outcomeError, "timed out"
	}
}

// casUpdate applies updates only when the row still matches the snapshot
// the decision was computed against, so a stale reconciliation decision
// cannot clobber a newer webhook-driven write. GORM bumps updated_at as
// part of the update.
func casUpdate(db *gorm.DB, snapshot *model.Subscription, updates map[string]interface{}) (bool, error) {
	result := db.Model(&model.Subscription{}).
		Where("id = ? AND updated_at = ?", snapshot.ID, snapshot.UpdatedAt).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
