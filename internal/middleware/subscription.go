package middleware

import (
	"time"

	"templora_backend/internal/model"
	"templora_backend/pkg/database"
	"templora_backend/pkg/utils/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireActiveSubscription gates seller features behind an active,
// unexpired subscription row.
func RequireActiveSubscription() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		var sub model.Subscription
		if err := database.GetDB().Where("user_id = ? AND is_active = ?", claims.UserID, true).
			First(&sub).Error; err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "An active subscription is required for this feature",
			})
		}

		if sub.ValidUntil != nil && sub.ValidUntil.Before(time.Now()) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Your subscription has expired. Please renew to continue.",
			})
		}

		return c.Next()
	}
}
