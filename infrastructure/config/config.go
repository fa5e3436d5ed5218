// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	IndexName     string // GSI1 - transaction-scoped and status queries
	GSI2IndexName string // GSI2 - assignee and verification-status queries
	EventBusName  string // empty disables EventBridge forwarding

	// Redis bridge configuration. Empty RedisURL runs single-instance.
	RedisURL     string
	RedisChannel string

	// Email
	SESSender string // empty falls back to the log mailer

	// Authentication. The signing secret is always injected, never
	// defaulted outside development.
	JWTSecret string
	JWTIssuer string

	// Realtime
	AuthGracePeriod time.Duration

	// Automation sweeps
	ReminderThreshold    time.Duration
	ReminderCooldown     time.Duration
	RiskHorizon          time.Duration
	ReminderInterval     time.Duration
	RiskInterval         time.Duration
	VerificationInterval time.Duration

	// Logging
	LogLevel string

	// Feature flags
	EnableCORS bool
}

// LoadConfig loads configuration from the environment. A .env file in
// the working directory is read first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", "closedesk"),
		IndexName:     getEnv("INDEX_NAME", "GSI1"),
		GSI2IndexName: getEnv("GSI2_INDEX_NAME", "GSI2"),
		EventBusName:  getEnv("EVENT_BUS_NAME", ""),

		RedisURL:     getEnv("REDIS_URL", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "closedesk:events"),

		SESSender: getEnv("SES_SENDER", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "closedesk"),

		AuthGracePeriod: getEnvDuration("AUTH_GRACE_PERIOD_SECONDS", 60*time.Second),

		ReminderThreshold:    getEnvDays("REMINDER_THRESHOLD_DAYS", 3),
		ReminderCooldown:     getEnvDuration("REMINDER_COOLDOWN_HOURS", 24*time.Hour),
		RiskHorizon:          getEnvDays("RISK_HORIZON_DAYS", 14),
		ReminderInterval:     getEnvDuration("REMINDER_INTERVAL_HOURS", 24*time.Hour),
		RiskInterval:         getEnvDuration("RISK_INTERVAL_HOURS", 24*time.Hour),
		VerificationInterval: getEnvDuration("VERIFICATION_INTERVAL_HOURS", time.Hour),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		EnableCORS: getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if !c.IsDevelopment() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required outside development")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration reads an integer variable whose unit is encoded in the
// key suffix (_SECONDS or _HOURS).
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	if len(key) > 8 && key[len(key)-8:] == "_SECONDS" {
		return time.Duration(n) * time.Second
	}
	return time.Duration(n) * time.Hour
}

// getEnvDays reads a day-count variable as a duration.
func getEnvDays(key string, defaultDays int) time.Duration {
	return time.Duration(getEnvInt(key, defaultDays)) * 24 * time.Hour
}
