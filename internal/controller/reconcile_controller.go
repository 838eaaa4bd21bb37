package controller

import (
	"github.com/gofiber/fiber/v2"

	"templora_backend/pkg/billing"
	"templora_backend/pkg/cron"
	"templora_backend/pkg/database"
)

// Admin entrypoints for running reconciliation jobs on demand. Each returns
// the same report the scheduled run would log, so drift can be inspected
// without waiting for the next cron window.

func RunRenewalDriftJob(c *fiber.Ctx) error {
	report := cron.RunRenewalDriftRepair(database.GetDB(), billing.GlobalProvider, appConfig)
	return c.JSON(report)
}

func RunValidityClampJob(c *fiber.Ctx) error {
	report := cron.RunValidityClampRepair(database.GetDB(), appConfig)
	return c.JSON(report)
}

func RunHeartbeatJob(c *fiber.Ctx) error {
	report := cron.RunHeartbeatRepair(database.GetDB(), appConfig)
	return c.JSON(report)
}

func RunInstallmentDriftJob(c *fiber.Ctx) error {
	report := cron.RunInstallmentDriftRepair(database.GetDB(), billing.GlobalProvider, appConfig)
	return c.JSON(report)
}

func RunExpiryNotifierJob(c *fiber.Ctx) error {
	report := cron.RunExpiryNotifier(database.GetDB(), appConfig)
	return c.JSON(report)
}

func RunExpirySweepJob(c *fiber.Ctx) error {
	report := cron.RunExpirySweep(database.GetDB(), appConfig)
	return c.JSON(report)
}
