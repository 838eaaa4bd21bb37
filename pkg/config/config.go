package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Razorpay  RazorpayConfig
	Billing   BillingConfig
	Reconcile ReconcileConfig
	Cache     CacheConfig
	Email     EmailConfig
	Storage   StorageConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
}

type RazorpayConfig struct {
	KeyID          string
	KeySecret      string
	WebhookSecret  string
	TimeoutSeconds int

	// Cadence başına provider plan id'leri
	MonthlyPlanID string
	YearlyPlanID  string
	WeeklyPlanID  string
}

type BillingConfig struct {
	MonthlyDuration     time.Duration
	YearlyDuration      time.Duration
	InstallmentWeek     time.Duration
	WeeklyDownloadQuota int
	ClampTolerance      time.Duration
}

type ReconcileConfig struct {
	BatchSize    int
	Workers      int
	CallTimeout  time.Duration
	BatchTimeout time.Duration
}

type CacheConfig struct {
	Host string
	Port string
}

type EmailConfig struct {
	ResendAPIKey string
	From         string
}

type StorageConfig struct {
	Bucket    string
	Region    string
	AccountID string
	AccessKey string
	SecretKey string
}

// Load reads the environment once into a typed config. Components receive
// this object explicitly instead of querying settings per request.
func Load() *Config {
	godotenv.Load() // .env dosyasını yükle

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "templora-dev-secret"),
		},
		Razorpay: RazorpayConfig{
			KeyID:          getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:      getEnv("RAZORPAY_KEY_SECRET", ""),
			WebhookSecret:  getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
			TimeoutSeconds: getEnvInt("RAZORPAY_TIMEOUT_SECONDS", 10),
			MonthlyPlanID:  getEnv("RAZORPAY_PLAN_MONTHLY", ""),
			YearlyPlanID:   getEnv("RAZORPAY_PLAN_YEARLY", ""),
			WeeklyPlanID:   getEnv("RAZORPAY_PLAN_WEEKLY", ""),
		},
		Billing: BillingConfig{
			MonthlyDuration:     time.Duration(getEnvInt("PLAN_MONTHLY_DAYS", 30)) * 24 * time.Hour,
			YearlyDuration:      time.Duration(getEnvInt("PLAN_YEARLY_DAYS", 365)) * 24 * time.Hour,
			InstallmentWeek:     7 * 24 * time.Hour,
			WeeklyDownloadQuota: getEnvInt("WEEKLY_DOWNLOAD_QUOTA", 5),
			ClampTolerance:      24 * time.Hour,
		},
		Reconcile: ReconcileConfig{
			BatchSize:    getEnvInt("RECONCILE_BATCH_SIZE", 200),
			Workers:      getEnvInt("RECONCILE_WORKERS", 5),
			CallTimeout:  time.Duration(getEnvInt("RECONCILE_CALL_TIMEOUT_SEC", 10)) * time.Second,
			BatchTimeout: time.Duration(getEnvInt("RECONCILE_BATCH_TIMEOUT_SEC", 300)) * time.Second,
		},
		Cache: CacheConfig{
			Host: getEnv("CACHE_HOST", "localhost"),
			Port: getEnv("CACHE_PORT", "6379"),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "Templora <noreply@templora.dev>"),
		},
		Storage: StorageConfig{
			Bucket:    getEnv("R2_BUCKET", "templora-assets"),
			Region:    getEnv("R2_REGION", "auto"),
			AccountID: getEnv("R2_ACCOUNT_ID", ""),
			AccessKey: getEnv("R2_ACCESS_KEY", ""),
			SecretKey: getEnv("R2_SECRET_KEY", ""),
		},
	}
}

// Validate checks the settings without which the billing core cannot run.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Razorpay.WebhookSecret == "" {
		return fmt.Errorf("RAZORPAY_WEBHOOK_SECRET is required")
	}
	if c.Reconcile.Workers < 1 {
		return fmt.Errorf("RECONCILE_WORKERS must be at least 1")
	}
	if c.Billing.WeeklyDownloadQuota < 0 {
		return fmt.Errorf("WEEKLY_DOWNLOAD_QUOTA cannot be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
