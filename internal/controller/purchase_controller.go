package controller

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"templora_backend/internal/model"
	"templora_backend/pkg/billing"
	"templora_backend/pkg/database"
	"templora_backend/pkg/utils/jwt"
)

type CreatePurchaseInput struct {
	TemplateID uint `json:"template_id" validate:"required"`
}

// CreatePurchase tek seferlik satın alma siparişi açar. Ödeme onayı
// webhook üzerinden gelir; sipariş o ana kadar "new" durumunda bekler.
func CreatePurchase(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	input := new(CreatePurchaseInput)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var template model.Template
	if err := database.GetDB().
		Where("id = ? AND status = ?", input.TemplateID, model.TemplateStatusPublished).
		First(&template).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	receiptNo := fmt.Sprintf("rcpt_%s", uuid.New().String())

	orderID, err := billing.GlobalProvider.CreateOrder(
		template.Price,
		string(template.Currency),
		receiptNo,
		map[string]interface{}{
			"owner_id":   fmt.Sprintf("%d", claims.UserID),
			"receipt_no": receiptNo,
		},
	)
	if err != nil {
		log.Printf("Could not create provider order: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create payment order",
		})
	}

	purchase := model.Purchase{
		UserID:          claims.UserID,
		TemplateID:      template.ID,
		ReceiptNo:       receiptNo,
		Amount:          template.Price,
		Currency:        string(template.Currency),
		Status:          model.PurchaseStatusNew,
		ProviderOrderID: orderID,
	}

	if err := database.GetDB().Create(&purchase).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create purchase",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Purchase created",
		"purchase":   purchase,
		"order_id":   orderID,
		"receipt_no": receiptNo,
	})
}

// ListMyPurchases kullanıcının siparişlerini listeler
func ListMyPurchases(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var purchases []model.Purchase
	if err := database.GetDB().
		Preload("Template").
		Where("user_id = ?", claims.UserID).
		Order("created_at DESC").
		Find(&purchases).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch purchases",
		})
	}

	return c.JSON(fiber.Map{
		"purchases": purchases,
	})
}

// DownloadPurchasedTemplate satın alınmış şablonun arşivini döndürür.
// Abonelik gerektirmez, ödenmiş sipariş yeterlidir.
func DownloadPurchasedTemplate(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	purchaseID := c.Params("id")

	var purchase model.Purchase
	if err := database.GetDB().
		Preload("Template").
		Where("id = ? AND user_id = ?", purchaseID, claims.UserID).
		First(&purchase).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Purchase not found",
		})
	}

	if purchase.Status != model.PurchaseStatusPaid {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": "Payment for this purchase is not complete",
		})
	}

	record := model.DownloadRecord{
		UserID:     claims.UserID,
		TemplateID: purchase.TemplateID,
		IP:         c.IP(),
		CreatedAt:  time.Now(),
	}
	if err := database.GetDB().Create(&record).Error; err != nil {
		log.Printf("Could not record download: %v", err)
	}

	return c.JSON(fiber.Map{
		"download_url": purchase.Template.ArchiveURL,
		"file_name":    purchase.Template.Slug + ".zip",
	})
}
