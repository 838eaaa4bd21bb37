// pkg/cron/sales_digest.go
package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"templora_backend/pkg/email"
)

type sellerDigest struct {
	UserID     uint
	UserEmail  string
	StoreName  string
	SalesCount int64
	Revenue    float64
	TotalViews int64
}

// InitSalesDigestCron sends each seller a weekly summary of their store.
func InitSalesDigestCron(db *gorm.DB) {
	c := cron.New()

	// Her hafta Pazar günü saat 20:00'de
	_, err := c.AddFunc("0 20 * * 0", func() {
		sendWeeklySalesDigest(db)
	})
	if err != nil {
		log.Printf("Could not initialize sales digest cron: %v", err)
		return
	}

	c.Start()
}

func sendWeeklySalesDigest(db *gorm.DB) {
	startDate := time.Now().AddDate(0, 0, -7)

	var digests []sellerDigest
	err := db.Raw(`
        SELECT
            u.id as user_id,
            u.email as user_email,
            u.store_name,
            COUNT(DISTINCT pu.id) as sales_count,
            COALESCE(SUM(pu.amount), 0) as revenue,
            COALESCE(SUM(t.view_count), 0) as total_views
        FROM users u
        JOIN templates t ON u.id = t.user_id
        LEFT JOIN purchases pu ON t.id = pu.template_id
            AND pu.status = 'paid' AND pu.created_at >= ?
        GROUP BY u.id, u.email, u.store_name
        HAVING COUNT(DISTINCT pu.id) > 0
    `, startDate).Scan(&digests).Error
	if err != nil {
		log.Printf("Error fetching sales digests: %v", err)
		return
	}

	if email.GlobalEmailService == nil {
		return
	}

	for _, d := range digests {
		err := email.GlobalEmailService.SendWeeklySalesDigest(
			d.UserEmail, d.StoreName, d.SalesCount, d.Revenue, d.TotalViews, startDate,
		)
		if err != nil {
			log.Printf("Error sending sales digest to %s: %v", d.UserEmail, err)
		}
	}
}
