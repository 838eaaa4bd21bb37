package controller

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm/clause"

	"templora_backend/internal/model"
	"templora_backend/pkg/billing"
	"templora_backend/pkg/cache"
	"templora_backend/pkg/database"
	"templora_backend/pkg/email"
	"templora_backend/pkg/subscription"
)

const webhookProvider = "razorpay"

// Event classes. Classification keys off the payload shape, not just the
// event name: a payment.failed can be a subscription-cycle failure or a
// one-time purchase failure depending on the linked entities.
var (
	paymentEvents = map[string]bool{
		"subscription.activated":    true,
		"invoice.paid":              true,
		"invoice.payment_succeeded": true,
	}
	failureEvents = map[string]bool{
		"payment.failed":         true,
		"subscription.cancelled": true,
		"invoice.payment_failed": true,
	}
	captureEvents = map[string]bool{
		"payment.captured": true,
	}
)

type webhookEntity struct {
	ID             string                 `json:"id"`
	PlanID         string                 `json:"plan_id"`
	SubscriptionID string                 `json:"subscription_id"`
	Status         string                 `json:"status"`
	Notes          map[string]interface{} `json:"notes"`
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Subscription *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"subscription"`
		Invoice *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"invoice"`
		Payment *struct {
			Entity webhookEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// subscriptionLinked reports whether the event references a subscription
// or invoice entity. One-time payments carry neither.
func (e *webhookEnvelope) subscriptionLinked() bool {
	return e.Payload.Subscription != nil || e.Payload.Invoice != nil
}

// noteString reads a string-ish value from a notes block.
func noteString(notes map[string]interface{}, key string) string {
	switch v := notes[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

// resolveOwner walks the notes fallback chain: subscription notes, then
// invoice notes, then payment notes.
func (e *webhookEnvelope) resolveOwner() (uint, bool) {
	chain := []map[string]interface{}{}
	if e.Payload.Subscription != nil {
		chain = append(chain, e.Payload.Subscription.Entity.Notes)
	}
	if e.Payload.Invoice != nil {
		chain = append(chain, e.Payload.Invoice.Entity.Notes)
	}
	if e.Payload.Payment != nil {
		chain = append(chain, e.Payload.Payment.Entity.Notes)
	}

	for _, notes := range chain {
		if raw := noteString(notes, "owner_id"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 32); err == nil && id > 0 {
				return uint(id), true
			}
		}
	}
	return 0, false
}

// externalSubscriptionID extracts the provider subscription id from the
// subscription entity or the invoice's subscription reference.
func (e *webhookEnvelope) externalSubscriptionID() string {
	if e.Payload.Subscription != nil && e.Payload.Subscription.Entity.ID != "" {
		return e.Payload.Subscription.Entity.ID
	}
	if e.Payload.Invoice != nil {
		return e.Payload.Invoice.Entity.SubscriptionID
	}
	return ""
}

func (e *webhookEnvelope) providerPlanID() string {
	if e.Payload.Subscription != nil {
		return e.Payload.Subscription.Entity.PlanID
	}
	return ""
}

// HandleBillingWebhook verifies, deduplicates, classifies and applies a
// provider event. A signature mismatch rejects the request with no state
// change; a replayed event id is acknowledged without side effects.
func HandleBillingWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("X-Razorpay-Signature")

	if !billing.VerifyWebhookSignature(payload, signature, appConfig.Razorpay.WebhookSecret) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	event := new(webhookEnvelope)
	if err := json.Unmarshal(payload, event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	eventID := c.Get("X-Razorpay-Event-Id")
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	// Hızlı yol: cache, kalıcı yol: webhook_events tablosu
	if !cache.MarkEventSeen(eventID, 48*time.Hour) {
		return c.JSON(fiber.Map{"status": "duplicate"})
	}

	record, created, err := recordWebhookEvent(eventID, event.Event, payload)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record webhook event",
		})
	}
	if !created {
		return c.JSON(fiber.Map{"status": "duplicate"})
	}

	log.Printf("Processing billing webhook event: %s (%s)", event.Event, eventID)
	processingErr := applyWebhookEvent(event)
	markWebhookProcessed(record, processingErr)

	if processingErr != nil {
		log.Printf("Webhook event %s not applied: %v", eventID, processingErr)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func applyWebhookEvent(event *webhookEnvelope) error {
	switch {
	case paymentEvents[event.Event] && event.subscriptionLinked():
		owner, ok := event.resolveOwner()
		if !ok {
			return errNoOwner
		}
		plan := subscription.PlanFromProviderPlanID(appConfig, event.providerPlanID())
		_, err := subscription.GlobalService.ApplyPaymentEvent(owner, plan, event.externalSubscriptionID())
		return err

	case failureEvents[event.Event] && event.subscriptionLinked():
		owner, ok := event.resolveOwner()
		if !ok {
			return errNoOwner
		}
		return subscription.GlobalService.DeactivateFromEvent(owner)

	case captureEvents[event.Event] || failureEvents[event.Event]:
		// Abonelik bağlantısı yok: tek seferlik satın alma
		return applyPurchaseEvent(event)
	}

	log.Printf("Ignoring unhandled webhook event type: %s", event.Event)
	return nil
}

// applyPurchaseEvent flips a one-time order's status by receipt number.
func applyPurchaseEvent(event *webhookEnvelope) error {
	if event.Payload.Payment == nil {
		return errNoPayment
	}
	payment := event.Payload.Payment.Entity

	receiptNo := noteString(payment.Notes, "receipt_no")
	if receiptNo == "" {
		return errNoReceipt
	}

	var purchase model.Purchase
	if err := database.GetDB().Where("receipt_no = ?", receiptNo).First(&purchase).Error; err != nil {
		return err
	}

	if captureEvents[event.Event] {
		now := time.Now()
		purchase.Status = model.PurchaseStatusPaid
		purchase.ProviderPaymentID = payment.ID
		purchase.PaidAt = &now
	} else {
		purchase.Status = model.PurchaseStatusFailed
		purchase.ProviderPaymentID = payment.ID
	}

	if err := database.GetDB().Save(&purchase).Error; err != nil {
		return err
	}

	if purchase.Status == model.PurchaseStatusPaid && email.GlobalEmailService != nil {
		var user model.User
		var tmpl model.Template
		if database.GetDB().First(&user, purchase.UserID).Error == nil &&
			database.GetDB().First(&tmpl, purchase.TemplateID).Error == nil {
			if err := email.GlobalEmailService.SendPurchaseReceiptEmail(
				user.Email, tmpl.Title, purchase.ReceiptNo, purchase.Amount, purchase.Currency,
			); err != nil {
				log.Printf("Could not send purchase receipt email: %v", err)
			}
		}
	}
	return nil
}

// recordWebhookEvent inserts the dedup record if the event id was never
// seen. The unique index on (provider, provider_event_id) makes the insert
// a no-op on replays.
func recordWebhookEvent(eventID, eventType string, payload []byte) (*model.WebhookEvent, bool, error) {
	record := &model.WebhookEvent{
		Provider:        webhookProvider,
		ProviderEventID: eventID,
		EventType:       eventType,
		Payload:         payload,
		SignatureValid:  true,
	}

	tx := database.GetDB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(record)
	if tx.Error != nil {
		return nil, false, tx.Error
	}

	created := tx.RowsAffected > 0
	if !created {
		var stored model.WebhookEvent
		if err := database.GetDB().
			Where("provider = ? AND provider_event_id = ?", webhookProvider, eventID).
			First(&stored).Error; err != nil {
			return nil, false, err
		}
		return &stored, false, nil
	}
	return record, true, nil
}

func markWebhookProcessed(record *model.WebhookEvent, processingErr error) {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at": &now,
	}
	if processingErr != nil {
		updates["processing_error"] = processingErr.Error()
	}
	if err := database.GetDB().Model(&model.WebhookEvent{}).
		Where("id = ?", record.ID).
		Updates(updates).Error; err != nil {
		log.Printf("Could not mark webhook event processed: %v", err)
	}
}
