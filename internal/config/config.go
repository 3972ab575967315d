package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	SMTP         SMTPConfig
	Gateway      GatewayConfig
	Subscription SubscriptionConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
	OpsToken           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type GatewayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	PlanID        string
	PlanName      string
	TotalCount    int
}

type SubscriptionConfig struct {
	TrialDays      int
	GraceDays      int
	TrialGraceDays int
	SweepInterval  time.Duration
	WarningDays    []int
	StatusCacheTTL time.Duration
	ProcessedTTL   time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/subscription-audit.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", "default_secret"),
			OpsToken:           getEnv("OPS_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "GymDesk"),
		},
		Gateway: GatewayConfig{
			KeyID:         getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
			WebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
			PlanID:        getEnv("RAZORPAY_PLAN_ID", ""),
			PlanName:      getEnv("RAZORPAY_PLAN_NAME", "monthly"),
			TotalCount:    getEnvAsInt("RAZORPAY_TOTAL_COUNT", 12),
		},
		Subscription: SubscriptionConfig{
			TrialDays:      getEnvAsInt("TRIAL_DAYS", 30),
			GraceDays:      getEnvAsInt("GRACE_DAYS", 7),
			TrialGraceDays: getEnvAsInt("TRIAL_GRACE_DAYS", 3),
			SweepInterval:  getEnvAsDuration("SUBSCRIPTION_SWEEP_INTERVAL", 24*time.Hour),
			WarningDays:    getEnvAsIntList("TRIAL_WARNING_DAYS", []int{7, 1}),
			StatusCacheTTL: getEnvAsDuration("STATUS_CACHE_TTL", 15*time.Second),
			ProcessedTTL:   getEnvAsDuration("WEBHOOK_PROCESSED_TTL", 72*time.Hour),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsIntList parses a comma separated list such as "7,1".
func getEnvAsIntList(key string, fallback []int) []int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []int
	for _, part := range strings.Split(strValue, ",") {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fallback
		}
		out = append(out, value)
	}
	return out
}
