package controller

import (
	"time"

	"templora_backend/internal/model"
	"templora_backend/pkg/database"
	"templora_backend/pkg/utils/jwt"

	"github.com/gofiber/fiber/v2"
)

// DashboardStats satıcı panelinin özet istatistikleri
type DashboardStats struct {
	TotalTemplates     int64         `json:"total_templates"`
	PublishedTemplates int64         `json:"published_templates"`
	TotalViews         int64         `json:"total_views"`
	TotalSales         int64         `json:"total_sales"`
	TotalRevenue       float64       `json:"total_revenue"`
	TopTemplates       []TopTemplate `json:"top_templates"`
	DailyStats         []DailyStat   `json:"daily_stats"`
}

type TopTemplate struct {
	ID         uint    `json:"id"`
	Title      string  `json:"title"`
	Views      int64   `json:"views"`
	Sales      int64   `json:"sales"`
	Price      float64 `json:"price"`
	CoverImage string  `json:"cover_image"`
}

type DailyStat struct {
	Date      string  `json:"date"`
	Sales     int64   `json:"sales"`
	Revenue   float64 `json:"revenue"`
	Downloads int64   `json:"downloads"`
}

// GetDashboardStats satıcı paneli istatistiklerini getirir
func GetDashboardStats(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	var stats DashboardStats

	db.Model(&model.Template{}).
		Where("user_id = ?", claims.UserID).
		Count(&stats.TotalTemplates)

	db.Model(&model.Template{}).
		Where("user_id = ? AND status = ?", claims.UserID, model.TemplateStatusPublished).
		Count(&stats.PublishedTemplates)

	db.Model(&model.Template{}).
		Select("COALESCE(SUM(view_count), 0)").
		Where("user_id = ?", claims.UserID).
		Scan(&stats.TotalViews)

	db.Model(&model.Purchase{}).
		Joins("JOIN templates ON purchases.template_id = templates.id").
		Where("templates.user_id = ? AND purchases.status = ?", claims.UserID, model.PurchaseStatusPaid).
		Count(&stats.TotalSales)

	db.Model(&model.Purchase{}).
		Select("COALESCE(SUM(purchases.amount), 0)").
		Joins("JOIN templates ON purchases.template_id = templates.id").
		Where("templates.user_id = ? AND purchases.status = ?", claims.UserID, model.PurchaseStatusPaid).
		Scan(&stats.TotalRevenue)

	// En çok görüntülenen 5 şablon
	var topTemplates []TopTemplate
	db.Table("templates").
		Select("templates.id, templates.title, templates.view_count as views, templates.sales_count as sales, templates.price").
		Where("templates.user_id = ? AND templates.status = ? AND templates.deleted_at IS NULL",
			claims.UserID, model.TemplateStatusPublished).
		Order("views DESC").
		Limit(5).
		Scan(&topTemplates)

	for i := range topTemplates {
		var coverImage model.TemplateImage
		db.Where("template_id = ? AND is_cover = ?", topTemplates[i].ID, true).
			First(&coverImage)
		topTemplates[i].CoverImage = coverImage.URL
	}
	stats.TopTemplates = topTemplates

	// Son 7 günün istatistikleri
	var dailyStats []DailyStat
	for i := 6; i >= 0; i-- {
		date := time.Now().AddDate(0, 0, -i)
		var stat DailyStat
		stat.Date = date.Format("2006-01-02")

		db.Model(&model.Purchase{}).
			Joins("JOIN templates ON purchases.template_id = templates.id").
			Where("templates.user_id = ? AND purchases.status = ? AND DATE(purchases.created_at) = ?",
				claims.UserID, model.PurchaseStatusPaid, stat.Date).
			Count(&stat.Sales)

		db.Model(&model.Purchase{}).
			Select("COALESCE(SUM(purchases.amount), 0)").
			Joins("JOIN templates ON purchases.template_id = templates.id").
			Where("templates.user_id = ? AND purchases.status = ? AND DATE(purchases.created_at) = ?",
				claims.UserID, model.PurchaseStatusPaid, stat.Date).
			Scan(&stat.Revenue)

		db.Model(&model.DownloadRecord{}).
			Joins("JOIN templates ON download_records.template_id = templates.id").
			Where("templates.user_id = ? AND DATE(download_records.created_at) = ?",
				claims.UserID, stat.Date).
			Count(&stat.Downloads)

		dailyStats = append(dailyStats, stat)
	}
	stats.DailyStats = dailyStats

	return c.JSON(stats)
}
