package controller

import (
	"errors"
	"strconv"

	"templora_backend/internal/model"
	"templora_backend/pkg/database"
	"templora_backend/pkg/subscription"
	"templora_backend/pkg/utils/jwt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const MaxTemplateImages = 8

type TemplateInput struct {
	Title       string         `json:"title" validate:"required"`
	Price       float64        `json:"price" validate:"required"`
	Currency    model.Currency `json:"currency"`
	Description string         `json:"description"`
	CategoryID  *uint          `json:"category_id"`
	DemoURL     string         `json:"demo_url"`
	TechStack   string         `json:"tech_stack"`
	LicenseName string         `json:"license_name"`
}

// CreateTemplate yeni şablon oluşturur (draft olarak)
func CreateTemplate(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	input := new(TemplateInput)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	template := model.Template{
		UserID:      claims.UserID,
		Title:       input.Title,
		Price:       input.Price,
		Currency:    input.Currency,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		DemoURL:     input.DemoURL,
		TechStack:   input.TechStack,
		Status:      model.TemplateStatusDraft,
	}
	if template.Currency == "" {
		template.Currency = model.CurrencyUSD
	}
	if input.LicenseName != "" {
		template.LicenseName = input.LicenseName
	}

	if err := database.GetDB().Create(&template).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create template",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Template created",
		"template": template,
	})
}

func UpdateTemplate(c *fiber.Ctx) error {
	templateID := c.Params("id")
	input := new(TemplateInput)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var template model.Template
	if err := database.GetDB().First(&template, templateID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	template.Title = input.Title
	template.Price = input.Price
	template.Description = input.Description
	template.CategoryID = input.CategoryID
	template.DemoURL = input.DemoURL
	template.TechStack = input.TechStack
	if input.Currency != "" {
		template.Currency = input.Currency
	}
	if input.LicenseName != "" {
		template.LicenseName = input.LicenseName
	}

	if err := database.GetDB().Save(&template).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update template",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Template updated",
		"template": template,
	})
}

// PublishTemplate yayına alır. Arşiv dosyası yüklenmeden yayınlanamaz.
func PublishTemplate(c *fiber.Ctx) error {
	templateID := c.Params("id")

	var template model.Template
	if err := database.GetDB().First(&template, templateID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	if template.ArchiveURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Upload the template archive before publishing",
		})
	}

	template.Status = model.TemplateStatusPublished
	if err := database.GetDB().Save(&template).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not publish template",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Template published",
		"template": template,
	})
}

func DeleteTemplate(c *fiber.Ctx) error {
	templateID := c.Params("id")

	var template model.Template
	if err := database.GetDB().First(&template, templateID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	if err := database.GetDB().Select("Images").Delete(&template).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete template",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Template deleted",
	})
}

// ListMyTemplates satıcının kendi şablonlarını listeler
func ListMyTemplates(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var templates []model.Template
	if err := database.GetDB().
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("template_images.order ASC")
		}).
		Preload("Category").
		Where("user_id = ?", claims.UserID).
		Order("created_at DESC").
		Find(&templates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch templates",
		})
	}

	return c.JSON(fiber.Map{
		"templates": templates,
	})
}

// ListPublicTemplates yayında olan şablonları listeler
func ListPublicTemplates(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.Query("per_page", "24"))
	if perPage < 1 || perPage > 100 {
		perPage = 24
	}

	query := database.GetDB().Model(&model.Template{}).
		Where("status = ?", model.TemplateStatusPublished)

	if categorySlug := c.Query("category"); categorySlug != "" {
		var category model.Category
		if err := database.GetDB().Where("slug = ?", categorySlug).First(&category).Error; err == nil {
			query = query.Where("category_id = ?", category.ID)
		}
	}
	if search := c.Query("q"); search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%")
	}

	var total int64
	query.Count(&total)

	var templates []model.Template
	if err := query.
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("template_images.order ASC")
		}).
		Preload("Category").
		Order("sales_count DESC, created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&templates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch templates",
		})
	}

	return c.JSON(fiber.Map{
		"templates": templates,
		"total":     total,
		"page":      page,
		"per_page":  perPage,
	})
}

// GetTemplateBySlug herkese açık şablon detayı, görüntülenmeyi sayar
func GetTemplateBySlug(c *fiber.Ctx) error {
	username := c.Params("username")
	templateSlug := c.Params("slug")

	var user model.User
	if err := database.GetDB().Where("username = ?", username).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Store not found",
		})
	}

	var template model.Template
	if err := database.GetDB().
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("template_images.order ASC")
		}).
		Preload("Category").
		Where("user_id = ? AND slug = ? AND status = ?", user.ID, templateSlug, model.TemplateStatusPublished).
		First(&template).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	database.GetDB().Model(&template).UpdateColumn("view_count", gorm.Expr("view_count + 1"))

	return c.JSON(fiber.Map{
		"template": template,
		"seller":   user.GetPublicProfile(),
	})
}

// DownloadTemplate hak kontrolünden geçirip indirme bağlantısını döndürür.
// Haftalı taksit planında mevcut haftanın kotasını harcar.
func DownloadTemplate(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	templateID := c.Params("id")

	var template model.Template
	if err := database.GetDB().First(&template, templateID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	if template.Status != model.TemplateStatusPublished && template.UserID != claims.UserID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	idNum, _ := strconv.ParseUint(templateID, 10, 32)
	if err := subscription.GlobalService.ConsumeDownload(claims.UserID, uint(idNum), c.IP()); err != nil {
		switch {
		case errors.Is(err, subscription.ErrPaymentRequired):
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": "This week's installment payment is due",
			})
		case errors.Is(err, subscription.ErrQuotaExhausted):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Weekly download quota exhausted",
			})
		case errors.Is(err, subscription.ErrNotEntitled), errors.Is(err, subscription.ErrNoSubscription):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "An active subscription is required to download templates",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not process download",
		})
	}

	return c.JSON(fiber.Map{
		"download_url": template.ArchiveURL,
		"file_name":    template.Slug + ".zip",
	})
}
