package billing

import (
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"templora_backend/internal/model"
	"templora_backend/pkg/config"
)

// Cycle statuses reported by GetCycleState.
const (
	CycleStatusActive    = "active"
	CycleStatusCancelled = "cancelled"
	CycleStatusExpired   = "expired"
)

// CycleState is the provider's view of a recurring subscription. It is
// fetched on demand as a reconciliation input and never stored verbatim.
type CycleState struct {
	Status            string
	CurrentCycleStart *time.Time
	CurrentCycleEnd   *time.Time
	PaidCount         int
}

// Provider is the outbound RPC surface of the billing provider.
type Provider interface {
	CreateRecurringPlan(plan string) (string, error)
	CancelRecurringPlan(externalID string, immediate bool) error
	GetCycleState(externalID string) (CycleState, error)
	CreateOrder(amount float64, currency, receipt string, notes map[string]interface{}) (string, error)
}

type razorpayProvider struct {
	client *razorpay.Client
	cfg    config.RazorpayConfig
}

// NewRazorpayProvider builds the production provider client. Every RPC
// carries the configured HTTP timeout so a hung provider call cannot block
// a request handler; reconciliation batches add their own per-row bound on
// top.
func NewRazorpayProvider(cfg config.RazorpayConfig) Provider {
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	if cfg.TimeoutSeconds > 0 {
		client.SetTimeout(int16(cfg.TimeoutSeconds))
	}
	return &razorpayProvider{
		client: client,
		cfg:    cfg,
	}
}

var GlobalProvider Provider

func Init(cfg config.RazorpayConfig) {
	GlobalProvider = NewRazorpayProvider(cfg)
}

// PlanID resolves a normalized plan name to the provider's plan id.
func (p *razorpayProvider) planID(plan string) (string, error) {
	switch model.NormalizePlan(plan) {
	case model.PlanMonthly:
		return p.cfg.MonthlyPlanID, nil
	case model.PlanYearly:
		return p.cfg.YearlyPlanID, nil
	case model.PlanWeeklyInstallment:
		return p.cfg.WeeklyPlanID, nil
	}
	return "", fmt.Errorf("unknown plan %q", plan)
}

func (p *razorpayProvider) CreateRecurringPlan(plan string) (string, error) {
	planID, err := p.planID(plan)
	if err != nil {
		return "", &ProviderError{Op: "create", Err: err}
	}

	totalCount := 12
	if model.NormalizePlan(plan) == model.PlanWeeklyInstallment {
		totalCount = 3
	}

	body, err := p.client.Subscription.Create(map[string]interface{}{
		"plan_id":         planID,
		"total_count":     totalCount,
		"customer_notify": 1,
	}, nil)
	if err != nil {
		return "", &ProviderError{Op: "create", Err: err}
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", &ProviderError{Op: "create", Err: fmt.Errorf("response has no subscription id")}
	}
	return id, nil
}

// CreateOrder opens a one-time checkout order. Amount is in major units
// and converted to the provider's smallest unit.
func (p *razorpayProvider) CreateOrder(amount float64, currency, receipt string, notes map[string]interface{}) (string, error) {
	body, err := p.client.Order.Create(map[string]interface{}{
		"amount":   int64(amount * 100),
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}, nil)
	if err != nil {
		return "", &ProviderError{Op: "order", Err: err}
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", &ProviderError{Op: "order", Err: fmt.Errorf("response has no order id")}
	}
	return id, nil
}

func (p *razorpayProvider) CancelRecurringPlan(externalID string, immediate bool) error {
	cancelAtCycleEnd := 1
	if immediate {
		cancelAtCycleEnd = 0
	}

	_, err := p.client.Subscription.Cancel(externalID, map[string]interface{}{
		"cancel_at_cycle_end": cancelAtCycleEnd,
	}, nil)
	if err != nil {
		return &ProviderError{Op: "cancel", Err: err}
	}
	return nil
}

func (p *razorpayProvider) GetCycleState(externalID string) (CycleState, error) {
	body, err := p.client.Subscription.Fetch(externalID, nil, nil)
	if err != nil {
		return CycleState{}, &ProviderError{Op: "fetch", Err: err}
	}

	state := CycleState{
		Status:            normalizeCycleStatus(stringField(body, "status")),
		CurrentCycleStart: unixField(body, "current_start"),
		CurrentCycleEnd:   unixField(body, "current_end"),
		PaidCount:         intField(body, "paid_count"),
	}
	return state, nil
}

// normalizeCycleStatus collapses the provider's status vocabulary into the
// three states reconciliation cares about.
func normalizeCycleStatus(status string) string {
	switch status {
	case "cancelled":
		return CycleStatusCancelled
	case "expired", "completed":
		return CycleStatusExpired
	default:
		return CycleStatusActive
	}
}

func stringField(body map[string]interface{}, key string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}

func intField(body map[string]interface{}, key string) int {
	switch v := body[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func unixField(body map[string]interface{}, key string) *time.Time {
	sec := int64(intField(body, key))
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0)
	return &t
}
