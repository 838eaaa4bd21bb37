package subscription

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"templora_backend/internal/model"
	"templora_backend/pkg/billing"
	"templora_backend/pkg/config"
	"templora_backend/pkg/email"
)

var (
	ErrNoSubscription  = errors.New("no subscription found")
	ErrUnknownPlan     = errors.New("unknown subscription plan")
	ErrQuotaExhausted  = errors.New("weekly download quota exhausted")
	ErrPaymentRequired = errors.New("installment payment required")
	ErrNotEntitled     = errors.New("no active entitlement")
)

// Service owns the subscription lifecycle commands. Command handlers and
// the webhook classifier both mutate the store through it.
type Service struct {
	db       *gorm.DB
	provider billing.Provider
	cfg      *config.Config
}

func NewService(db *gorm.DB, provider billing.Provider, cfg *config.Config) *Service {
	return &Service{db: db, provider: provider, cfg: cfg}
}

// GlobalService is wired once from main.
var GlobalService *Service

func Init(db *gorm.DB, provider billing.Provider, cfg *config.Config) {
	GlobalService = NewService(db, provider, cfg)
}

// CancelResult reports the two independent outcomes of a cancel command.
// Local deactivation is never blocked by a provider failure.
type CancelResult struct {
	LocalUpdated      bool `json:"local_updated"`
	ProviderCancelled bool `json:"provider_cancelled"`
}

// recordIntent opens a saga journal row for a command. The provider call
// outcome and the finalize step are written back as they happen, so an
// interrupted command leaves a visible unfinalized row for operators; the
// reconciliation jobs re-converge the actual state.
func (s *Service) recordIntent(userID uint, action, externalID string) *model.BillingActionLog {
	entry := &model.BillingActionLog{
		UserID:                 userID,
		Action:                 action,
		ExternalSubscriptionID: externalID,
	}
	if err := s.db.Create(entry).Error; err != nil {
		log.Printf("Could not record billing intent for user %d: %v", userID, err)
	}
	return entry
}

func (s *Service) recordProviderOutcome(entry *model.BillingActionLog, callErr error) {
	if entry.ID == 0 {
		return
	}
	ok := callErr == nil
	entry.ProviderOK = &ok
	if callErr != nil {
		entry.ProviderError = callErr.Error()
	}
	if err := s.db.Save(entry).Error; err != nil {
		log.Printf("Could not record provider outcome: %v", err)
	}
}

func (s *Service) finalize(entry *model.BillingActionLog) {
	if entry.ID == 0 {
		return
	}
	now := time.Now()
	entry.FinalizedAt = &now
	if err := s.db.Save(entry).Error; err != nil {
		log.Printf("Could not finalize billing action: %v", err)
	}
}

// cancelExternal best-effort cancels a previous provider subscription so at
// most one live external id exists per owner. Failure is logged, not fatal.
func (s *Service) cancelExternal(externalID string) error {
	if externalID == "" || s.provider == nil {
		return nil
	}
	if err := s.provider.CancelRecurringPlan(externalID, true); err != nil {
		log.Printf("Best-effort provider cancel of %s failed: %v", externalID, err)
		return err
	}
	return nil
}

// Activate creates or reactivates the caller's subscription.
func (s *Service) Activate(userID uint, plan, externalID string, autopay *bool) (*model.Subscription, error) {
	plan = model.NormalizePlan(plan)
	if !model.IsKnownPlan(plan) {
		return nil, ErrUnknownPlan
	}

	var sub model.Subscription
	err := s.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entry := s.recordIntent(userID, model.BillingActionActivate, externalID)

	// Önceki external id varsa önce iptal et
	if sub.ExternalSubscriptionID != "" && sub.ExternalSubscriptionID != externalID {
		s.recordProviderOutcome(entry, s.cancelExternal(sub.ExternalSubscriptionID))
	} else {
		s.recordProviderOutcome(entry, nil)
	}

	now := time.Now()
	validUntil := now.Add(Duration(s.cfg, plan))

	sub.UserID = userID
	sub.Plan = plan
	sub.IsActive = true
	sub.ValidUntil = &validUntil
	sub.AutopayEnabled = autopay == nil || *autopay
	sub.ExternalSubscriptionID = externalID
	sub.ExpiryEmailSentAt = nil

	if err := s.db.Save(&sub).Error; err != nil {
		return nil, err
	}

	if plan == model.PlanWeeklyInstallment {
		if err := s.resetTracker(&sub, now); err != nil {
			return nil, err
		}
	}

	s.finalize(entry)
	s.sendConfirmation(userID, plan, validUntil, false)
	return &sub, nil
}

// Cancel deactivates the caller's subscription. The provider cancel is
// immediate and best-effort; the local row always ends up inactive with
// autopay off and the plan preserved.
func (s *Service) Cancel(userID uint) (CancelResult, error) {
	var sub model.Subscription
	if err := s.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CancelResult{}, ErrNoSubscription
		}
		return CancelResult{}, err
	}

	entry := s.recordIntent(userID, model.BillingActionCancel, sub.ExternalSubscriptionID)

	providerErr := s.cancelExternal(sub.ExternalSubscriptionID)
	s.recordProviderOutcome(entry, providerErr)

	sub.IsActive = false
	sub.AutopayEnabled = false
	if err := s.db.Save(&sub).Error; err != nil {
		return CancelResult{ProviderCancelled: providerErr == nil}, err
	}

	s.finalize(entry)
	s.sendCancellation(userID, sub.Plan, sub.ValidUntil)

	return CancelResult{
		LocalUpdated:      true,
		ProviderCancelled: providerErr == nil,
	}, nil
}

// Renew re-anchors the caller's entitlement at now without consulting the
// provider's cycle state. The stored plan is reused; the old external id is
// cancelled best-effort and cleared.
func (s *Service) Renew(userID uint) (*model.Subscription, error) {
	var sub model.Subscription
	if err := s.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, err
	}

	entry := s.recordIntent(userID, model.BillingActionRenew, sub.ExternalSubscriptionID)
	s.recordProviderOutcome(entry, s.cancelExternal(sub.ExternalSubscriptionID))

	validUntil := time.Now().Add(Duration(s.cfg, sub.Plan))
	sub.IsActive = true
	sub.ValidUntil = &validUntil
	sub.ExternalSubscriptionID = ""

	if err := s.db.Save(&sub).Error; err != nil {
		return nil, err
	}

	s.finalize(entry)
	s.sendConfirmation(userID, sub.Plan, validUntil, true)
	return &sub, nil
}

// ApplyPaymentEvent applies an activation / renewal-payment webhook: the
// entitlement window restarts at now and the event's subscription id is
// stored. For the weekly installment plan the next confirmed week is also
// marked paid.
func (s *Service) ApplyPaymentEvent(userID uint, plan, externalID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if plan == "" {
		plan = sub.Plan
	}
	plan = model.NormalizePlan(plan)
	if !model.IsKnownPlan(plan) {
		plan = model.PlanMonthly
	}

	now := time.Now()
	validUntil := now.Add(Duration(s.cfg, plan))

	sub.UserID = userID
	sub.Plan = plan
	sub.IsActive = true
	sub.ValidUntil = &validUntil
	if externalID != "" {
		sub.ExternalSubscriptionID = externalID
	}

	if err := s.db.Save(&sub).Error; err != nil {
		return nil, err
	}

	if plan == model.PlanWeeklyInstallment {
		if err := s.confirmInstallmentPayment(&sub, now); err != nil {
			return nil, err
		}
	}

	s.sendConfirmation(userID, plan, *sub.ValidUntil, true)
	return &sub, nil
}

// DeactivateFromEvent applies a cancellation / payment-failure webhook.
// Unlike the Cancel command it leaves autopay_enabled untouched so a failed
// auto-charge does not silently disable the retry on the next cycle.
func (s *Service) DeactivateFromEvent(userID uint) error {
	result := s.db.Model(&model.Subscription{}).
		Where("user_id = ?", userID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoSubscription
	}
	return nil
}

// resetTracker starts a fresh 3-week installment schedule anchored at now.
func (s *Service) resetTracker(sub *model.Subscription, now time.Time) error {
	var tracker model.InstallmentTracker
	err := s.db.Where("subscription_id = ?", sub.ID).First(&tracker).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	tracker.SubscriptionID = sub.ID
	tracker.UserID = sub.UserID
	tracker.WeekStartDate = now
	tracker.CurrentWeekStart = now
	tracker.WeekNumber = 1
	tracker.DownloadsUsed = 0
	tracker.Week1Paid = true
	tracker.Week2Paid = false
	tracker.Week3Paid = false
	tracker.CurrentWeekPaid = true

	return s.db.Save(&tracker).Error
}

// confirmInstallmentPayment marks the next unpaid week as confirmed and
// recomputes validity from the tracker anchor.
func (s *Service) confirmInstallmentPayment(sub *model.Subscription, now time.Time) error {
	var tracker model.InstallmentTracker
	err := s.db.Where("subscription_id = ?", sub.ID).First(&tracker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.resetTracker(sub, now)
	}
	if err != nil {
		return err
	}

	EvaluateInstallment(&tracker, now, s.cfg.Billing.InstallmentWeek, s.cfg.Billing.WeeklyDownloadQuota)
	weeksPaid := AdvanceInstallmentPayments(&tracker, tracker.WeeksPaid()+1)

	if err := s.db.Save(&tracker).Error; err != nil {
		return err
	}

	validUntil := tracker.WeekStartDate.Add(time.Duration(weeksPaid) * s.cfg.Billing.InstallmentWeek)
	return s.db.Model(&model.Subscription{}).
		Where("id = ?", sub.ID).
		Update("valid_until", validUntil).Error
}

// InstallmentStatusFor lazily rolls the tracker forward and persists the
// rollover before returning the derived status.
func (s *Service) InstallmentStatusFor(userID uint) (*InstallmentStatus, error) {
	var tracker model.InstallmentTracker
	if err := s.db.Where("user_id = ?", userID).First(&tracker).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, err
	}

	status := EvaluateInstallment(&tracker, time.Now(), s.cfg.Billing.InstallmentWeek, s.cfg.Billing.WeeklyDownloadQuota)
	if status.RolledOver {
		if err := s.db.Save(&tracker).Error; err != nil {
			return nil, err
		}
		// Yeni haftaya ödemesiz girildi, hatırlatma gönder
		if status.PaymentRequired {
			s.sendInstallmentReminder(userID, status.WeekNumber)
		}
	}
	return &status, nil
}

func (s *Service) sendInstallmentReminder(userID uint, weekNumber int) {
	if email.GlobalEmailService == nil {
		return
	}
	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return
	}
	if err := email.GlobalEmailService.SendInstallmentPaymentReminder(user.Email, user.StoreName, weekNumber); err != nil {
		log.Printf("Could not send installment reminder email: %v", err)
	}
}

// ConsumeDownload charges one download against the caller's entitlement.
// Monthly and yearly passes are unmetered; the weekly installment plan
// spends its per-week quota.
func (s *Service) ConsumeDownload(userID, templateID uint, ip string) error {
	var sub model.Subscription
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotEntitled
		}
		return err
	}
	if sub.ValidUntil == nil || sub.ValidUntil.Before(time.Now()) {
		return ErrNotEntitled
	}

	if sub.Plan == model.PlanWeeklyInstallment {
		var tracker model.InstallmentTracker
		if err := s.db.Where("subscription_id = ?", sub.ID).First(&tracker).Error; err != nil {
			return err
		}

		status := EvaluateInstallment(&tracker, time.Now(), s.cfg.Billing.InstallmentWeek, s.cfg.Billing.WeeklyDownloadQuota)
		if status.PaymentRequired {
			return ErrPaymentRequired
		}
		if status.DownloadsAvailable <= 0 {
			return ErrQuotaExhausted
		}

		tracker.DownloadsUsed++
		if err := s.db.Save(&tracker).Error; err != nil {
			return err
		}
	}

	record := model.DownloadRecord{UserID: userID, TemplateID: templateID, IP: ip}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("Could not record download for user %d: %v", userID, err)
	}
	return nil
}

func (s *Service) sendConfirmation(userID uint, plan string, validUntil time.Time, isRenewal bool) {
	if email.GlobalEmailService == nil {
		return
	}
	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return
	}
	if err := email.GlobalEmailService.SendSubscriptionStartedEmail(user.Email, user.StoreName, plan, validUntil, isRenewal); err != nil {
		log.Printf("Could not send subscription email: %v", err)
	}
}

func (s *Service) sendCancellation(userID uint, plan string, validUntil *time.Time) {
	if email.GlobalEmailService == nil {
		return
	}
	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return
	}
	until := time.Now()
	if validUntil != nil {
		until = *validUntil
	}
	if err := email.GlobalEmailService.SendSubscriptionCancelledEmail(user.Email, user.StoreName, plan, until); err != nil {
		log.Printf("Could not send subscription cancellation email: %v", err)
	}
}
