package controller

import (
	"net/mail"
	"strconv"
	"time"

	"templora_backend/internal/model"
	"templora_backend/pkg/database"
	"templora_backend/pkg/utils/jwt"

	"github.com/gofiber/fiber/v2"
)

type NewsletterSubscriptionInput struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"required,email"`
}

const (
	SourceStorePage      = "Store Page"
	SourceTemplatePage   = "Template Page"
	SourceNewsletterForm = "Newsletter Form"
)

// PublicSubscribe bir satıcının bültenine abone olur
func PublicSubscribe(c *fiber.Ctx) error {
	userIDStr := c.Params("user_id")
	userID, err := strconv.ParseUint(userIDStr, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid seller ID format",
		})
	}

	var input NewsletterSubscriptionInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input format",
		})
	}

	if _, err := mail.ParseAddress(input.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid email format",
		})
	}

	var existingSubscriber model.NewsletterSubscriber
	if err := database.GetDB().Where("user_id = ? AND email = ?", userID, input.Email).
		First(&existingSubscriber).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Already subscribed to this store's newsletter",
		})
	}

	source := c.Query("source", SourceStorePage)
	switch source {
	case SourceStorePage, SourceTemplatePage, SourceNewsletterForm:
	default:
		source = SourceStorePage
	}

	subscriber := model.NewsletterSubscriber{
		UserID: uint(userID),
		Name:   input.Name,
		Email:  input.Email,
		Source: source,
	}

	if err := database.GetDB().Create(&subscriber).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not complete subscription",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Successfully subscribed to newsletter",
		"source":  source,
	})
}

func GetMySubscribers(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	type SubscriberResponse struct {
		ID           uint      `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		Source       string    `json:"source"`
		SubscribedAt time.Time `json:"join_date"`
	}

	var subscribers []SubscriberResponse

	if err := database.GetDB().Model(&model.NewsletterSubscriber{}).
		Select("id, name, email, source, subscribed_at").
		Where("user_id = ?", claims.UserID).
		Order("subscribed_at DESC").
		Find(&subscribers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch subscribers",
		})
	}

	return c.JSON(fiber.Map{
		"subscribers": subscribers,
		"total":       len(subscribers),
	})
}
