package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"templora_backend/internal/controller"
	"templora_backend/internal/middleware"
	"templora_backend/internal/model"
	"templora_backend/pkg/billing"
	"templora_backend/pkg/cache"
	"templora_backend/pkg/config"
	"templora_backend/pkg/cron"
	"templora_backend/pkg/database"
	"templora_backend/pkg/email"
	"templora_backend/pkg/seed"
	"templora_backend/pkg/subscription"
	"templora_backend/pkg/utils/jwt"
	"templora_backend/pkg/utils/storage"
)

func setupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/request-reset", controller.RequestPasswordReset)
	auth.Post("/reset-password", controller.ResetPassword)

	// Public catalog
	api.Get("/templates", controller.ListPublicTemplates)
	api.Get("/categories", controller.ListCategories)
	publicStore := api.Group("/t")
	publicStore.Get("/:username/:slug", controller.GetTemplateBySlug)

	// Public newsletter
	api.Post("/newsletter/:user_id/subscribe", controller.PublicSubscribe)

	// Protected Routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)

	// Seller template management
	templates := protected.Group("/templates")
	templates.Get("/my", controller.ListMyTemplates)
	templates.Post("/", middleware.RequireActiveSubscription(), controller.CreateTemplate)
	templates.Put("/:id", middleware.CheckTemplateOwnership(), controller.UpdateTemplate)
	templates.Post("/:id/publish", middleware.CheckTemplateOwnership(), controller.PublishTemplate)
	templates.Delete("/:id", middleware.CheckTemplateOwnership(), controller.DeleteTemplate)
	templates.Post("/:template_id/images", controller.UploadTemplateImage)
	templates.Delete("/images/:image_id", controller.DeleteTemplateImage)
	templates.Post("/:template_id/archive", controller.UploadTemplateArchive)
	templates.Post("/:id/download", controller.DownloadTemplate)

	// Purchases
	purchases := protected.Group("/purchases")
	purchases.Post("/", controller.CreatePurchase)
	purchases.Get("/my", controller.ListMyPurchases)
	purchases.Post("/:id/download", controller.DownloadPurchasedTemplate)

	// Dashboard routes
	dashboard := api.Group("/dashboard", middleware.AuthMiddleware())
	dashboard.Get("/stats", controller.GetDashboardStats)

	// Newsletter management
	newsletter := api.Group("/newsletter", middleware.AuthMiddleware())
	newsletter.Get("/subscribers", controller.GetMySubscribers)

	// Settings routes
	settings := api.Group("/settings", middleware.AuthMiddleware())
	settings.Get("/profile", controller.GetProfile)
	settings.Put("/profile", controller.UpdateProfile)
	settings.Put("/password", controller.ChangePassword)
	settings.Post("/avatar", controller.UploadAvatar)

	// Subscription routes
	subscriptions := api.Group("/subscriptions")
	subscriptions.Get("/plans", controller.ListPlans)

	subProtected := subscriptions.Use(middleware.AuthMiddleware())
	subProtected.Post("/activate", controller.ActivateSubscription)
	subProtected.Post("/cancel", controller.CancelSubscription)
	subProtected.Post("/renew", controller.RenewSubscription)
	subProtected.Get("/my", controller.GetMySubscription)

	// Admin
	admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.AdminMiddleware())
	admin.Post("/categories", controller.CreateCategory)
	admin.Put("/categories/:id", controller.UpdateCategory)
	admin.Delete("/categories/:id", controller.DeleteCategory)
	admin.Post("/reconcile/renewal-drift", controller.RunRenewalDriftJob)
	admin.Post("/reconcile/validity-clamp", controller.RunValidityClampJob)
	admin.Post("/reconcile/heartbeat", controller.RunHeartbeatJob)
	admin.Post("/reconcile/installment-drift", controller.RunInstallmentDriftJob)
	admin.Post("/reconcile/expiry-notifier", controller.RunExpiryNotifierJob)
	admin.Post("/reconcile/expiry-sweep", controller.RunExpirySweepJob)

	// Billing webhook
	api.Post("/webhook/billing", controller.HandleBillingWebhook)
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	if err := email.InitEmailService(cfg.Email.ResendAPIKey, cfg.Email.From); err != nil {
		log.Fatal("Could not initialize email service: ", err)
	}

	jwt.Init(cfg.JWT.Secret)
	controller.Init(cfg)

	database.InitDB(cfg.Database.URL)
	err := database.MigrateDatabase(
		&model.User{},
		&model.Subscription{},
		&model.InstallmentTracker{},
		&model.BillingActionLog{},
		&model.WebhookEvent{},
		&model.PasswordResetToken{},
		&model.Category{},
		&model.Template{},
		&model.TemplateImage{},
		&model.Purchase{},
		&model.DownloadRecord{},
		&model.NewsletterSubscriber{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	seed.SeedCategories(database.GetDB())
	seed.SeedDemoTemplates(database.GetDB())

	cache.SetupCache(cfg.Cache)

	if err := storage.InitStorage(cfg.Storage); err != nil {
		log.Fatal("Could not initialize storage: ", err)
	}

	billing.Init(cfg.Razorpay)
	subscription.Init(database.GetDB(), billing.GlobalProvider, cfg)

	cron.InitReconciliationCron(database.GetDB(), billing.GlobalProvider, cfg)
	cron.InitSalesDigestCron(database.GetDB())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app)

	log.Printf("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
