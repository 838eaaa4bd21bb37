package cron

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"templora_backend/internal/model"
	"templora_backend/pkg/billing"
	"templora_backend/pkg/config"
)

type fakeProvider struct {
	cycle    billing.CycleState
	cycleErr error
}

func (f *fakeProvider) CreateRecurringPlan(plan string) (string, error) { return "sub_fake", nil }

func (f *fakeProvider) CancelRecurringPlan(externalID string, immediate bool) error { return nil }

func (f *fakeProvider) GetCycleState(externalID string) (billing.CycleState, error) {
	return f.cycle, f.cycleErr
}

func (f *fakeProvider) CreateOrder(amount float64, currency, receipt string, notes map[string]interface{}) (string, error) {
	return "order_fake", nil
}

func testConfig() *config.Config {
	return &config.Config{
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

func newTestDB(t *testing.T) *gorm.DB {
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
	))
	return db
}

func timePtr(t time.Time) *time.Time { return &t }

func TestRenewalDriftRepairExtendsStaleValidity(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	now := time.Now()

	require.NoError(t, db.Create(&model.Subscription{
		UserID:                 1,
		Plan:                   model.PlanMonthly,
		IsActive:               true,
		AutopayEnabled:         true,
		ExternalSubscriptionID: "sub_ext_1",
		ValidUntil:             timePtr(now.Add(-24 * time.Hour)),
	}).Error)

	provider := &fakeProvider{cycle: billing.CycleState{
		Status:          billing.CycleStatusActive,
		CurrentCycleEnd: timePtr(now.Add(5 * 24 * time.Hour)),
	}}

	report := RunRenewalDriftRepair(db, provider, cfg)
	require.Len(t, report.Fixed, 1)
	assert.Equal(t, 1, report.Processed)

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&sub).Error)

	// Tek sentetik süre, lokal anchor'dan; provider cycle sonu kopyalanmaz
	assert.WithinDuration(t, now.Add(30*24*time.Hour), *sub.ValidUntil, time.Minute)
	assert.True(t, sub.AutopayEnabled)
}

func TestRenewalDriftRepairFutureValidityExtendsFromLocalAnchor(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	now := time.Now()

	// Lokal geçerlilik hâlâ ileride, provider bir sonraki döngüyü tahsil etmiş
	require.NoError(t, db.Create(&model.Subscription{
		UserID:                 1,
		Plan:                   model.PlanMonthly,
		IsActive:               true,
		AutopayEnabled:         true,
		ExternalSubscriptionID: "sub_ext_1",
		ValidUntil:             timePtr(now.Add(30 * 24 * time.Hour)),
	}).Error)

	provider := &fakeProvider{cycle: billing.CycleState{
		Status:          billing.CycleStatusActive,
		CurrentCycleEnd: timePtr(now.Add(35 * 24 * time.Hour)),
	}}

	report := RunRenewalDriftRepair(db, provider, cfg)
	require.Len(t, report.Fixed, 1)

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&sub).Error)

	// Süre mevcut geçerliliğin üstüne eklenir, cycle sonuna değil
	assert.WithinDuration(t, now.Add(60*24*time.Hour), *sub.ValidUntil, time.Minute)
}

func TestRenewalDriftRepairIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	now := time.Now()

	require.NoError(t, db.Create(&model.Subscription{
		UserID:                 1,
		Plan:                   model.PlanMonthly,
		IsActive:               true,
		AutopayEnabled:         true,
		ExternalSubscriptionID: "sub_ext_1",
		ValidUntil:             timePtr(now.Add(-24 * time.Hour)),
	}).Error)

	provider := &fakeProvider{cycle: billing.CycleState{
		Status:          billing.CycleStatusActive,
		CurrentCycleEnd: timePtr(now.Add(5 * 24 * time.Hour)),
	}}

	first := RunRenewalDriftRepair(db, provider, cfg)
	require.Len(t, first.Fixed, 1)

	second := RunRenewalDriftRepair(db, provider, cfg)
	assert.Empty(t, second.Fixed)
	require.Len(t, second.Skipped, 1)
	assert.Equal(t, "in sync", second.Skipped[0].Reason)
}

func TestRenewalDriftRepairSkipsNonActiveProviderState(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()

	require.NoError(t, db.Create(&model.Subscription{
		UserID:                 1,
		Plan:                   model.PlanMonthly,
		IsActive:               true,
		AutopayEnabled:         true,
		ExternalSubscriptionID: "sub_ext_1",
		ValidUntil:             timePtr(time.Now().Add(-24 * time.Hour)),
	}).Error)

	provider := &fakeProvider{cycle: billing.CycleState{Status: billing.CycleStatusCancelled}}

	report := RunRenewalDriftRepair(db, provider, cfg)
	assert.Empty(t, report.Fixed)
	require.Len(t, report.Skipped, 1)

	// Deaktivasyon sweep'e bırakılır, satır olduğu gibi kalır
	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&sub).Error)
	assert.True(t, sub.IsActive)
}

func TestRenewalDriftRepairReportsProviderErrors(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()

	require.NoError(t, db.Create(&model.Subscription{
		UserID:                 1,
		Plan:                   model.PlanMonthly,
		IsActive:               true,
		AutopayEnabled:         true,
		ExternalSubscriptionID: "sub_ext_1",
	}).Error)

	provider := &fakeProvider{cycleErr: errors.New("gateway timeout")}

	report := RunRenewalDriftRepair(db, provider, cfg)
	assert.Empty(t, report.Fixed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Reason, "gateway timeout")
}

func TestRenewalDriftRepairIgnoresWeeklyInstallmentRows(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()

	require.NoError(t, db.Create(&model.Subscription{
		UserID:                 1,
		Plan:                   model.PlanWeeklyInstallment,
		IsActive:               true,
		AutopayEnabled:         true,
		ExternalSubscriptionID: "sub_ext_1",
		ValidUntil:             timePtr(time.Now().Add(-24 * time.Hour)),
	}).Error)

	report := RunRenewalDriftRepair(db, &fakeProvider{}, cfg)
	assert.Zero(t, report.Processed)
}

func TestValidityClampRepair(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	now := time.Now()

	require.NoError(t, db.Create(&model.Subscription{
		UserID:     1,
		Plan:       model.PlanMonthly,
		IsActive:   true,
		ValidUntil: timePtr(now.Add(400 * 24 * time.Hour)),
	}).Error)

	report := RunValidityClampRepair(db, cfg)
	require.Len(t, report.Fixed, 1)

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&sub).Error)
	assert.WithinDuration(t, now.Add(30*24*time.Hour), *sub.ValidUntil, time.Minute)
}

func TestValidityClampRepairLeavesSaneRowsAlone(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	now := time.Now()

	original := now.Add(29 * 24 * time.Hour)
	require.NoError(t, db.Create(&model.Subscription{
		UserID:     1,
		Plan:       model.PlanMonthly,
		IsActive:   true,
		ValidUntil: timePtr(original),
	}).Error)

	report := RunValidityClampRepair(db, cfg)
	assert.Empty(t, report.Fixed)
	require.Len(t, report.Skipped, 1)

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&sub).Error)
	assert.WithinDuration(t, original, *sub.ValidUntil, time.Second)
}

func TestHeartbeatRepair(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()

	require.NoError(t, db.Create(&model.Subscription{
		UserID:     1,
		Plan:       model.PlanMonthly,
		IsActive:   true,
		ValidUntil: timePtr(time.Now().Add(10 * 24 * time.Hour)),
	}).Error)

	// Taze satır dokunulmadan geçer
	fresh := RunHeartbeatRepair(db, cfg)
	assert.Empty(t, fresh.Fixed)
	require.Len(t, fresh.Skipped, 1)

	// updated_at'i iki gün geriye çek
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&model.Subscription{}).
		Where("user_id = ?", 1).
		UpdateColumn("updated_at", stale).Error)

	repaired := RunHeartbeatRepair(db, cfg)
	require.Len(t, repaired.Fixed, 1)

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&sub).Error)
	assert.WithinDuration(t, time.Now(), sub.UpdatedAt, time.Minute)
}

func TestInstallmentDriftRepairAdvancesFromProvider(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	start := time.Now().Add(-8 * 24 * time.Hour)

	sub := model.Subscription{
		UserID:                 1,
		Plan:                   model.PlanWeeklyInstallment,
		IsActive:               true,
		ExternalSubscriptionID: "sub_ext_w",
		ValidUntil:             timePtr(start.Add(7 * 24 * time.Hour)),
	}
	require.NoError(t, db.Create(&sub).Error)
	require.NoError(t, db.Create(&model.InstallmentTracker{
		SubscriptionID:   sub.ID,
		UserID:           1,
		WeekStartDate:    start,
		CurrentWeekStart: start,
		WeekNumber:       1,
		Week1Paid:        true,
		CurrentWeekPaid:  true,
	}).Error)

	provider := &fakeProvider{cycle: billing.CycleState{
		Status:    billing.CycleStatusActive,
		PaidCount: 2,
	}}

	report := RunInstallmentDriftRepair(db, provider, cfg)
	require.Len(t, report.Fixed, 1)

	var tracker model.InstallmentTracker
	require.NoError(t, db.Where("subscription_id = ?", sub.ID).First(&tracker).Error)
	assert.True(t, tracker.Week2Paid)

	var stored model.Subscription
	require.NoError(t, db.First(&stored, sub.ID).Error)
	assert.WithinDuration(t, start.Add(2*7*24*time.Hour), *stored.ValidUntil, time.Second)
}

func TestInstallmentDriftRepairLocalFallbackNeverShrinks(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	start := time.Now().Add(-3 * 24 * time.Hour)

	sub := model.Subscription{
		UserID:                 1,
		Plan:                   model.PlanWeeklyInstallment,
		IsActive:               true,
		ExternalSubscriptionID: "sub_ext_w",
		ValidUntil:             timePtr(start.Add(2 * 24 * time.Hour)),
	}
	require.NoError(t, db.Create(&sub).Error)
	require.NoError(t, db.Create(&model.InstallmentTracker{
		SubscriptionID:   sub.ID,
		UserID:           1,
		WeekStartDate:    start,
		CurrentWeekStart: start,
		WeekNumber:       1,
		Week1Paid:        true,
		CurrentWeekPaid:  true,
	}).Error)

	provider := &fakeProvider{cycleErr: errors.New("gateway timeout")}

	// Lokal beklenti (start+1w) mevcut değerden ileride: uzatılır
	report := RunInstallmentDriftRepair(db, provider, cfg)
	require.Len(t, report.Fixed, 1)

	var stored model.Subscription
	require.NoError(t, db.First(&stored, sub.ID).Error)
	assert.WithinDuration(t, start.Add(7*24*time.Hour), *stored.ValidUntil, time.Second)

	// İkinci çalıştırma kısaltma yapmaz
	second := RunInstallmentDriftRepair(db, provider, cfg)
	assert.Empty(t, second.Fixed)
	require.Len(t, second.Skipped, 1)
	assert.Equal(t, "local state current", second.Skipped[0].Reason)
}

func TestExpiryNotifierSendsOnce(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	now := time.Now()

	require.NoError(t, db.Create(&model.User{
		Email:     "seller@templora.dev",
		Password:  "x",
		Username:  "seller",
		StoreName: "Seller Store",
	}).Error)
	require.NoError(t, db.Create(&model.Subscription{
		UserID:     1,
		Plan:       model.PlanMonthly,
		IsActive:   true,
		ValidUntil: timePtr(now.Add(60 * time.Hour)),
	}).Error)

	// Pencere dışındaki kayıt aday bile olmaz
	require.NoError(t, db.Create(&model.Subscription{
		UserID:     2,
		Plan:       model.PlanMonthly,
		IsActive:   true,
		ValidUntil: timePtr(now.Add(10 * 24 * time.Hour)),
	}).Error)

	report := RunExpiryNotifier(db, cfg)
	require.Len(t, report.Fixed, 1)
	assert.Equal(t, 1, report.Processed)

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&sub).Error)
	assert.NotNil(t, sub.ExpiryEmailSentAt)

	// Gate kapandı, ikinci çalıştırmada aday kalmaz
	second := RunExpiryNotifier(db, cfg)
	assert.Zero(t, second.Processed)
}

func TestExpirySweepDeactivatesLapsedRows(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	now := time.Now()

	sub := model.Subscription{
		UserID:         1,
		Plan:           model.PlanWeeklyInstallment,
		IsActive:       true,
		AutopayEnabled: true,
		ValidUntil:     timePtr(now.Add(-time.Hour)),
	}
	require.NoError(t, db.Create(&sub).Error)
	require.NoError(t, db.Create(&model.InstallmentTracker{
		SubscriptionID: sub.ID,
		UserID:         1,
		WeekStartDate:  now.Add(-30 * 24 * time.Hour),
		WeekNumber:     3,
		Week1Paid:      true,
	}).Error)

	report := RunExpirySweep(db, cfg)
	require.Len(t, report.Fixed, 1)

	var stored model.Subscription
	require.NoError(t, db.First(&stored, sub.ID).Error)
	assert.False(t, stored.IsActive)
	assert.False(t, stored.AutopayEnabled)

	// Tracker satırı silinmez
	var trackers int64
	db.Model(&model.InstallmentTracker{}).Count(&trackers)
	assert.EqualValues(t, 1, trackers)
}

func TestRunBatchEmpty(t *testing.T) {
	report := runBatch(nil, testConfig().Reconcile, func(sub model.Subscription) (string, string) {
		return outcomeFixed, ""
	})
	assert.Zero(t, report.Processed)
	assert.Empty(t, report.Fixed)
}

func TestRunBatchPerCallTimeoutBucketsRowAsError(t *testing.T) {
	rc := config.ReconcileConfig{
		Workers:      2,
		CallTimeout:  20 * time.Millisecond,
		BatchTimeout: 5 * time.Second,
	}

	subs := []model.Subscription{{UserID: 1}}
	report := runBatch(subs, rc, func(sub model.Subscription) (string, string) {
		time.Sleep(300 * time.Millisecond)
		return outcomeFixed, "too late"
	})

	assert.Equal(t, 1, report.Processed)
	assert.Empty(t, report.Fixed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "timed out", report.Errors[0].Reason)
}

func TestRunBatchDeadlineYieldsPartialReport(t *testing.T) {
	rc := config.ReconcileConfig{
		Workers:      1,
		CallTimeout:  5 * time.Second,
		BatchTimeout: 40 * time.Millisecond,
	}

	subs := []model.Subscription{{UserID: 1}, {UserID: 2}, {UserID: 3}}
	report := runBatch(subs, rc, func(sub model.Subscription) (string, string) {
		time.Sleep(300 * time.Millisecond)
		return outcomeFixed, ""
	})

	// Tek worker ilk satırda beklerken batch süresi dolar, kalanlar
	// bir sonraki çalıştırmaya kalır
	assert.Less(t, report.Processed, len(subs))
	assert.Len(t, report.Fixed, report.Processed)
	assert.Empty(t, report.Errors)
}
