package controller

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"templora_backend/internal/model"
	"templora_backend/pkg/config"
	"templora_backend/pkg/database"
	"templora_backend/pkg/subscription"
)

const testWebhookSecret = "whsec_test"

func setupWebhookApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Subscription{},
		&model.InstallmentTracker{},
		&model.BillingActionLog{},
		&model.WebhookEvent{},
		&model.Template{},
		&model.Purchase{},
		&model.DownloadRecord{},
	))
	database.DB = db

	cfg := &config.Config{
		Razorpay: config.RazorpayConfig{
			WebhookSecret: testWebhookSecret,
			MonthlyPlanID: "plan_monthly_test",
			YearlyPlanID:  "plan_yearly_test",
			WeeklyPlanID:  "plan_weekly_test",
		},
		Billing: config.BillingConfig{
			MonthlyDuration:     30 * 24 * time.Hour,
			YearlyDuration:      365 * 24 * time.Hour,
			InstallmentWeek:     7 * 24 * time.Hour,
			WeeklyDownloadQuota: 5,
		},
	}
	Init(cfg)
	subscription.Init(db, nil, cfg)

	app := fiber.New()
	app.Post("/api/webhook/billing", HandleBillingWebhook)
	return app, db
}

func signPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature, eventID string) int {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/webhook/billing", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Razorpay-Signature", signature)
	if eventID != "" {
		req.Header.Set("X-Razorpay-Event-Id", eventID)
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp.StatusCode
}

func activationPayload(ownerID uint, planID, subID string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "subscription.activated",
		"payload": {
			"subscription": {
				"entity": {
					"id": %q,
					"plan_id": %q,
					"notes": {"owner_id": "%d"}
				}
			}
		}
	}`, subID, planID, ownerID))
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	app, db := setupWebhookApp(t)

	payload := activationPayload(1, "plan_monthly_test", "sub_ext_1")
	status := postWebhook(t, app, payload, "deadbeef", "evt_1")
	assert.Equal(t, fiber.StatusBadRequest, status)

	// Hiçbir iz bırakılmaz
	var events, subs int64
	db.Model(&model.WebhookEvent{}).Count(&events)
	db.Model(&model.Subscription{}).Count(&subs)
	assert.Zero(t, events)
	assert.Zero(t, subs)
}

func TestWebhookActivationEvent(t *testing.T) {
	app, db := setupWebhookApp(t)

	payload := activationPayload(1, "plan_monthly_test", "sub_ext_1")
	status := postWebhook(t, app, payload, signPayload(payload), "evt_1")
	assert.Equal(t, fiber.StatusOK, status)

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&sub).Error)
	assert.True(t, sub.IsActive)
	assert.Equal(t, model.PlanMonthly, sub.Plan)
	assert.Equal(t, "sub_ext_1", sub.ExternalSubscriptionID)
	require.NotNil(t, sub.ValidUntil)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *sub.ValidUntil, time.Minute)

	var event model.WebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_1").First(&event).Error)
	assert.NotNil(t, event.ProcessedAt)
	assert.Empty(t, event.ProcessingError)
}

func TestWebhookReplayDoesNotExtendTwice(t *testing.T) {
	app, db := setupWebhookApp(t)

	payload := activationPayload(1, "plan_monthly_test", "sub_ext_1")
	require.Equal(t, fiber.StatusOK, postWebhook(t, app, payload, signPayload(payload), "evt_1"))

	var first model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&first).Error)

	time.Sleep(10 * time.Millisecond)
	require.Equal(t, fiber.StatusOK, postWebhook(t, app, payload, signPayload(payload), "evt_1"))

	var second model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&second).Error)
	assert.True(t, first.ValidUntil.Equal(*second.ValidUntil))

	var events int64
	db.Model(&model.WebhookEvent{}).Count(&events)
	assert.EqualValues(t, 1, events)
}

func TestWebhookCancellationKeepsAutopay(t *testing.T) {
	app, db := setupWebhookApp(t)

	validUntil := time.Now().Add(20 * 24 * time.Hour)
	require.NoError(t, db.Create(&model.Subscription{
		UserID:                 1,
		Plan:                   model.PlanMonthly,
		IsActive:               true,
		AutopayEnabled:         true,
		ExternalSubscriptionID: "sub_ext_1",
		ValidUntil:             &validUntil,
	}).Error)

	payload := []byte(`{
		"event": "subscription.cancelled",
		"payload": {
			"subscription": {
				"entity": {
					"id": "sub_ext_1",
					"notes": {"owner_id": "1"}
				}
			}
		}
	}`)
	require.Equal(t, fiber.StatusOK, postWebhook(t, app, payload, signPayload(payload), "evt_cancel"))

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&sub).Error)
	assert.False(t, sub.IsActive)
	assert.True(t, sub.AutopayEnabled)
}

func TestWebhookInvoiceNotesFallback(t *testing.T) {
	app, db := setupWebhookApp(t)

	// owner_id subscription'da değil invoice notes'ta
	payload := []byte(`{
		"event": "invoice.paid",
		"payload": {
			"invoice": {
				"entity": {
					"id": "inv_1",
					"subscription_id": "sub_ext_9",
					"notes": {"owner_id": 9}
				}
			}
		}
	}`)
	require.Equal(t, fiber.StatusOK, postWebhook(t, app, payload, signPayload(payload), "evt_inv"))

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 9).First(&sub).Error)
	assert.True(t, sub.IsActive)
	assert.Equal(t, "sub_ext_9", sub.ExternalSubscriptionID)

	// Plan bilinmiyor, monthly'e düşer
	assert.Equal(t, model.PlanMonthly, sub.Plan)
}

func TestWebhookMissingOwnerIsAckedWithError(t *testing.T) {
	app, db := setupWebhookApp(t)

	payload := []byte(`{
		"event": "invoice.paid",
		"payload": {
			"invoice": {
				"entity": {"id": "inv_1", "notes": {}}
			}
		}
	}`)
	require.Equal(t, fiber.StatusOK, postWebhook(t, app, payload, signPayload(payload), "evt_noowner"))

	var subs int64
	db.Model(&model.Subscription{}).Count(&subs)
	assert.Zero(t, subs)

	var event model.WebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_noowner").First(&event).Error)
	assert.NotNil(t, event.ProcessedAt)
	assert.NotEmpty(t, event.ProcessingError)
}

func TestWebhookPaymentCapturedFlipsPurchase(t *testing.T) {
	app, db := setupWebhookApp(t)

	require.NoError(t, db.Create(&model.User{
		Email:     "buyer@templora.dev",
		Password:  "x",
		Username:  "buyer",
		StoreName: "Buyer Store",
	}).Error)
	require.NoError(t, db.Create(&model.Template{
		Title:  "Minimal Portfolio",
		Slug:   "minimal-portfolio",
		Status: model.TemplateStatusPublished,
		Price:  49,
		UserID: 1,
	}).Error)
	require.NoError(t, db.Create(&model.Purchase{
		UserID:     1,
		TemplateID: 1,
		ReceiptNo:  "rcpt_abc",
		Amount:     49,
		Currency:   "USD",
		Status:     model.PurchaseStatusNew,
	}).Error)

	// Abonelik bağlantısı yok: tek seferlik satın alma olarak sınıflanır
	payload := []byte(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_1",
					"notes": {"owner_id": "1", "receipt_no": "rcpt_abc"}
				}
			}
		}
	}`)
	require.Equal(t, fiber.StatusOK, postWebhook(t, app, payload, signPayload(payload), "evt_pay"))

	var purchase model.Purchase
	require.NoError(t, db.Where("receipt_no = ?", "rcpt_abc").First(&purchase).Error)
	assert.Equal(t, model.PurchaseStatusPaid, purchase.Status)
	assert.Equal(t, "pay_1", purchase.ProviderPaymentID)
	assert.NotNil(t, purchase.PaidAt)
}

func TestWebhookPaymentFailedWithoutLinkageFailsPurchase(t *testing.T) {
	app, db := setupWebhookApp(t)

	require.NoError(t, db.Create(&model.Purchase{
		UserID:     1,
		TemplateID: 1,
		ReceiptNo:  "rcpt_fail",
		Amount:     29,
		Currency:   "USD",
		Status:     model.PurchaseStatusNew,
	}).Error)

	// Subscription veya invoice entity'si yok: satın alma başarısızlığı
	payload := []byte(`{
		"event": "payment.failed",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_9",
					"notes": {"owner_id": "1", "receipt_no": "rcpt_fail"}
				}
			}
		}
	}`)
	require.Equal(t, fiber.StatusOK, postWebhook(t, app, payload, signPayload(payload), "evt_payfail"))

	var purchase model.Purchase
	require.NoError(t, db.Where("receipt_no = ?", "rcpt_fail").First(&purchase).Error)
	assert.Equal(t, model.PurchaseStatusFailed, purchase.Status)
	assert.Equal(t, "pay_9", purchase.ProviderPaymentID)
	assert.Nil(t, purchase.PaidAt)

	// Abonelik tarafına dokunulmaz
	var subs int64
	db.Model(&model.Subscription{}).Count(&subs)
	assert.Zero(t, subs)
}

func TestWebhookPaymentFailedWithSubscriptionLinkDeactivates(t *testing.T) {
	app, db := setupWebhookApp(t)

	validUntil := time.Now().Add(10 * 24 * time.Hour)
	require.NoError(t, db.Create(&model.Subscription{
		UserID:         3,
		Plan:           model.PlanMonthly,
		IsActive:       true,
		AutopayEnabled: true,
		ValidUntil:     &validUntil,
	}).Error)

	payload := []byte(`{
		"event": "payment.failed",
		"payload": {
			"invoice": {
				"entity": {"id": "inv_3", "subscription_id": "sub_ext_3", "notes": {"owner_id": "3"}}
			},
			"payment": {
				"entity": {"id": "pay_3", "notes": {}}
			}
		}
	}`)
	require.Equal(t, fiber.StatusOK, postWebhook(t, app, payload, signPayload(payload), "evt_fail"))

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 3).First(&sub).Error)
	assert.False(t, sub.IsActive)
	assert.True(t, sub.AutopayEnabled)
}

func TestWebhookMissingEventIDFallsBackToPayloadHash(t *testing.T) {
	app, db := setupWebhookApp(t)

	payload := activationPayload(1, "plan_monthly_test", "sub_ext_1")
	require.Equal(t, fiber.StatusOK, postWebhook(t, app, payload, signPayload(payload), ""))
	require.Equal(t, fiber.StatusOK, postWebhook(t, app, payload, signPayload(payload), ""))

	// Aynı gövde aynı hash'e düşer, tek kayıt kalır
	var events int64
	db.Model(&model.WebhookEvent{}).Count(&events)
	assert.EqualValues(t, 1, events)
}
