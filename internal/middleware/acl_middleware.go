package middleware

import (
	"templora_backend/internal/model"
	"templora_backend/pkg/database"
	"templora_backend/pkg/utils/jwt"

	"github.com/gofiber/fiber/v2"
)

// CheckTemplateOwnership şablonun sahibi olup olmadığını kontrol eder
func CheckTemplateOwnership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)
		templateID := c.Params("id")

		var template model.Template
		if err := database.GetDB().First(&template, templateID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Template not found",
			})
		}

		if template.UserID != claims.UserID && !claims.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to access this template",
			})
		}

		return c.Next()
	}
}
