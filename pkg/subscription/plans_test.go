package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"templora_backend/internal/model"
	"templora_backend/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Razorpay: config.RazorpayConfig{
			MonthlyPlanID: "plan_monthly_test",
			YearlyPlanID:  "plan_yearly_test",
			WeeklyPlanID:  "plan_weekly_test",
		},
		Billing: config.BillingConfig{
			MonthlyDuration:     30 * 24 * time.Hour,
			YearlyDuration:      365 * 24 * time.Hour,
			InstallmentWeek:     7 * 24 * time.Hour,
			WeeklyDownloadQuota: 5,
			ClampTolerance:      24 * time.Hour,
		},
		Reconcile: config.ReconcileConfig{
			BatchSize:    100,
			Workers:      2,
			CallTimeout:  5 * time.Second,
			BatchTimeout: 30 * time.Second,
		},
	}
}

func TestDuration(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, 30*24*time.Hour, Duration(cfg, model.PlanMonthly))
	assert.Equal(t, 365*24*time.Hour, Duration(cfg, model.PlanYearly))
	assert.Equal(t, 7*24*time.Hour, Duration(cfg, model.PlanWeeklyInstallment))

	// Eski "weekly" alias'ı aylık plan olarak fiyatlanır
	assert.Equal(t, 30*24*time.Hour, Duration(cfg, "weekly"))
	assert.Equal(t, 30*24*time.Hour, Duration(cfg, ""))
}

func TestPlanFromProviderPlanID(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, model.PlanMonthly, PlanFromProviderPlanID(cfg, "plan_monthly_test"))
	assert.Equal(t, model.PlanYearly, PlanFromProviderPlanID(cfg, "plan_yearly_test"))
	assert.Equal(t, model.PlanWeeklyInstallment, PlanFromProviderPlanID(cfg, "plan_weekly_test"))
	assert.Equal(t, "", PlanFromProviderPlanID(cfg, "plan_unknown"))
	assert.Equal(t, "", PlanFromProviderPlanID(cfg, ""))
}

func TestListPlans(t *testing.T) {
	plans := ListPlans()
	assert.Len(t, plans, 3)

	names := map[string]bool{}
	for _, plan := range plans {
		names[plan.Plan] = true
	}
	assert.True(t, names[model.PlanMonthly])
	assert.True(t, names[model.PlanYearly])
	assert.True(t, names[model.PlanWeeklyInstallment])
}
