package controller

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"templora_backend/internal/model"
	"templora_backend/pkg/database"
	"templora_backend/pkg/subscription"
	"templora_backend/pkg/utils/jwt"
)

type ActivateSubscriptionInput struct {
	Plan                   string `json:"plan" validate:"required"`
	ExternalSubscriptionID string `json:"external_subscription_id"`
	AutopayEnabled         *bool  `json:"autopay_enabled"`
}

// ListPlans returns the purchasable plan catalog.
func ListPlans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"plans": subscription.ListPlans(),
	})
}

func ActivateSubscription(c *fiber.Ctx) error {
	input := new(ActivateSubscriptionInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	claims := c.Locals("user").(*jwt.Claims)

	sub, err := subscription.GlobalService.Activate(
		claims.UserID, input.Plan, input.ExternalSubscriptionID, input.AutopayEnabled,
	)
	if err != nil {
		if errors.Is(err, subscription.ErrUnknownPlan) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown subscription plan",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not activate subscription",
		})
	}

	return c.JSON(fiber.Map{
		"message":      "Subscription activated",
		"subscription": sub,
	})
}

func CancelSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	result, err := subscription.GlobalService.Cancel(claims.UserID)
	if err != nil {
		if errors.Is(err, subscription.ErrNoSubscription) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No subscription found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not cancel subscription",
		})
	}

	return c.JSON(fiber.Map{
		"message":            "Subscription cancelled",
		"local_updated":      result.LocalUpdated,
		"provider_cancelled": result.ProviderCancelled,
	})
}

func RenewSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	sub, err := subscription.GlobalService.Renew(claims.UserID)
	if err != nil {
		if errors.Is(err, subscription.ErrNoSubscription) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No subscription found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not renew subscription",
		})
	}

	return c.JSON(fiber.Map{
		"message":      "Subscription renewed",
		"subscription": sub,
	})
}

// GetMySubscription returns the caller's subscription with derived state.
// Weekly installment rows also report the per-week payment status.
func GetMySubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.Subscription
	if err := database.GetDB().Where("user_id = ?", claims.UserID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{
				"status":       "inactive",
				"subscription": nil,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch subscription",
		})
	}

	status := "active"
	switch {
	case !sub.IsActive:
		status = "cancelled"
	case sub.ValidUntil != nil && sub.ValidUntil.Before(time.Now()):
		status = "expired"
	}

	response := fiber.Map{
		"status":       status,
		"subscription": sub,
	}

	if sub.Plan == model.PlanWeeklyInstallment && sub.IsActive {
		installment, err := subscription.GlobalService.InstallmentStatusFor(claims.UserID)
		if err == nil {
			response["installment"] = installment
		}
	}

	return c.JSON(response)
}
