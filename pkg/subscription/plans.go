package subscription

import (
	"time"

	"templora_backend/internal/model"
	"templora_backend/pkg/config"
)

// PlanInfo is the static, user-facing description of a plan cadence.
type PlanInfo struct {
	Plan        string  `json:"plan"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
}

// ListPlans returns the closed plan catalog.
func ListPlans() []PlanInfo {
	return []PlanInfo{
		{
			Plan:        model.PlanMonthly,
			Name:        "Monthly Pass",
			Price:       19.00,
			Currency:    "USD",
			Description: "Unlimited template downloads, billed every 30 days",
		},
		{
			Plan:        model.PlanYearly,
			Name:        "Yearly Pass",
			Price:       149.00,
			Currency:    "USD",
			Description: "Unlimited template downloads, billed yearly",
		},
		{
			Plan:        model.PlanWeeklyInstallment,
			Name:        "Starter Pass (3 weekly installments)",
			Price:       9.00,
			Currency:    "USD",
			Description: "Three weekly charges with a per-week download quota",
		},
	}
}

// Duration returns the entitlement window a single confirmed payment buys
// for the given plan. For the weekly installment plan this is one 7-day
// cycle; the tracker arithmetic owns everything beyond that.
func Duration(cfg *config.Config, plan string) time.Duration {
	switch model.NormalizePlan(plan) {
	case model.PlanYearly:
		return cfg.Billing.YearlyDuration
	case model.PlanWeeklyInstallment:
		return cfg.Billing.InstallmentWeek
	default:
		return cfg.Billing.MonthlyDuration
	}
}

// PlanFromProviderPlanID maps a provider plan id back to the local plan
// name. Unknown ids return "" so the caller can fall back to the stored
// plan and finally to monthly.
func PlanFromProviderPlanID(cfg *config.Config, providerPlanID string) string {
	switch providerPlanID {
	case "":
		return ""
	case cfg.Razorpay.MonthlyPlanID:
		return model.PlanMonthly
	case cfg.Razorpay.YearlyPlanID:
		return model.PlanYearly
	case cfg.Razorpay.WeeklyPlanID:
		return model.PlanWeeklyInstallment
	}
	return ""
}
