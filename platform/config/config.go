// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for the admin middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AdminAuthConfig provides settings for the admin login flow.
type AdminAuthConfig interface {
	JWTConfig
	GetAdminEmail() string
	GetAdminPasswordHash() string
	GetAccessTokenTTL() time.Duration
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
	GetAdminEmail() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketSourcePhotos() string
	GetMinioBucketArtworkImages() string
	GetMinioBucketArtworkMockups() string
	IsMinIOEnabled() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// PaymentConfig provides settings for the payment provider client.
type PaymentConfig interface {
	GetPaymentAPIBaseURL() string
	GetPaymentSecretKey() string
	GetPaymentWebhookSecret() string
	IsPaymentEnabled() bool
}

// FulfillmentConfig provides settings for the print-fulfillment provider client.
type FulfillmentConfig interface {
	GetFulfillmentAPIBaseURL() string
	GetFulfillmentAPIToken() string
	GetFulfillmentShopID() string
	GetFulfillmentWebhookSecret() string
	IsFulfillmentEnabled() bool
}

// GenerationConfig provides settings for the AI generation provider client.
type GenerationConfig interface {
	GetGenerationAPIBaseURL() string
	GetGenerationAPIKey() string
	IsGenerationEnabled() bool
}

// ReviewConfig provides the human-review feature flag.
type ReviewConfig interface {
	IsHumanReviewEnabled() bool
}

// ArtworkConfig provides token lifetimes for customer artwork access.
type ArtworkConfig interface {
	GetArtworkTokenTTL() time.Duration
	GetUploadTokenTTL() time.Duration
}

// CatalogConfig provides the product catalog file location.
type CatalogConfig interface {
	GetCatalogPath() string
}

// ReconcileConfig provides settings for the order reconciliation sweep.
type ReconcileConfig interface {
	GetReconcileWindow() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	JWTAccessSecret          string
	AccessTokenTTL           time.Duration
	AdminEmail               string
	AdminPasswordHash        string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	AppBaseURL               string
	EmailEnabled             bool
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	EmailFromName            string
	EmailFromAddress         string
	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinIOMaxFileSize         int64
	MinioBucketSourcePhotos  string
	MinioBucketArtworkImages string
	MinioBucketMockups       string
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	PaymentAPIBaseURL        string
	PaymentSecretKey         string
	PaymentWebhookSecret     string
	FulfillmentAPIBaseURL    string
	FulfillmentAPIToken      string
	FulfillmentShopID        string
	FulfillmentWebhookSecret string
	GenerationAPIBaseURL     string
	GenerationAPIKey         string
	HumanReviewEnabled       bool
	ArtworkTokenTTL          time.Duration
	UploadTokenTTL           time.Duration
	CatalogPath              string
	ReconcileWindow          time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AdminAuthConfig implementation
func (c *Config) GetAdminEmail() string           { return c.AdminEmail }
func (c *Config) GetAdminPasswordHash() string    { return c.AdminPasswordHash }
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string            { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string           { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string           { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64          { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketSourcePhotos() string  { return c.MinioBucketSourcePhotos }
func (c *Config) GetMinioBucketArtworkImages() string { return c.MinioBucketArtworkImages }
func (c *Config) GetMinioBucketArtworkMockups() string { return c.MinioBucketMockups }
func (c *Config) IsMinIOEnabled() bool                { return c.MinIOEndpoint != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// PaymentConfig implementation
func (c *Config) GetPaymentAPIBaseURL() string    { return c.PaymentAPIBaseURL }
func (c *Config) GetPaymentSecretKey() string     { return c.PaymentSecretKey }
func (c *Config) GetPaymentWebhookSecret() string { return c.PaymentWebhookSecret }
func (c *Config) IsPaymentEnabled() bool          { return c.PaymentSecretKey != "" }

// FulfillmentConfig implementation
func (c *Config) GetFulfillmentAPIBaseURL() string    { return c.FulfillmentAPIBaseURL }
func (c *Config) GetFulfillmentAPIToken() string      { return c.FulfillmentAPIToken }
func (c *Config) GetFulfillmentShopID() string        { return c.FulfillmentShopID }
func (c *Config) GetFulfillmentWebhookSecret() string { return c.FulfillmentWebhookSecret }
func (c *Config) IsFulfillmentEnabled() bool          { return c.FulfillmentAPIToken != "" }

// GenerationConfig implementation
func (c *Config) GetGenerationAPIBaseURL() string { return c.GenerationAPIBaseURL }
func (c *Config) GetGenerationAPIKey() string     { return c.GenerationAPIKey }
func (c *Config) IsGenerationEnabled() bool       { return c.GenerationAPIKey != "" }

// ReviewConfig implementation
func (c *Config) IsHumanReviewEnabled() bool { return c.HumanReviewEnabled }

// ArtworkConfig implementation
func (c *Config) GetArtworkTokenTTL() time.Duration { return c.ArtworkTokenTTL }
func (c *Config) GetUploadTokenTTL() time.Duration  { return c.UploadTokenTTL }

// CatalogConfig implementation
func (c *Config) GetCatalogPath() string { return c.CatalogPath }

// ReconcileConfig implementation
func (c *Config) GetReconcileWindow() time.Duration { return c.ReconcileWindow }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:           mustDuration(getEnv("JWT_ACCESS_TTL", "12h")),
		AdminEmail:               getEnv("ADMIN_EMAIL", ""),
		AdminPasswordHash:        getEnv("ADMIN_PASSWORD_HASH", ""),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:               getEnv("APP_BASE_URL", "http://localhost:3000"),
		EmailEnabled:             emailEnabled && smtpHost != "",
		SMTPHost:                 smtpHost,
		SMTPPort:                 int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "Pawtrait"),
		EmailFromAddress:         getEnv("EMAIL_FROM_ADDRESS", ""),
		MinIOEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:              strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:         mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "52428800")),
		MinioBucketSourcePhotos:  getEnv("MINIO_BUCKET_SOURCE_PHOTOS", "source-photos"),
		MinioBucketArtworkImages: getEnv("MINIO_BUCKET_ARTWORK_IMAGES", "artwork-images"),
		MinioBucketMockups:       getEnv("MINIO_BUCKET_ARTWORK_MOCKUPS", "artwork-mockups"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		PaymentAPIBaseURL:        getEnv("PAYMENT_API_BASE_URL", "https://api.stripe.com/v1"),
		PaymentSecretKey:         getEnv("PAYMENT_SECRET_KEY", ""),
		PaymentWebhookSecret:     getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		FulfillmentAPIBaseURL:    getEnv("FULFILLMENT_API_BASE_URL", "https://api.printify.com/v1"),
		FulfillmentAPIToken:      getEnv("FULFILLMENT_API_TOKEN", ""),
		FulfillmentShopID:        getEnv("FULFILLMENT_SHOP_ID", ""),
		FulfillmentWebhookSecret: getEnv("FULFILLMENT_WEBHOOK_SECRET", ""),
		GenerationAPIBaseURL:     getEnv("GENERATION_API_BASE_URL", "https://queue.fal.run"),
		GenerationAPIKey:         getEnv("GENERATION_API_KEY", ""),
		HumanReviewEnabled:       strings.EqualFold(getEnv("ENABLE_HUMAN_REVIEW", "false"), "true"),
		ArtworkTokenTTL:          mustDuration(getEnv("ARTWORK_TOKEN_TTL", "720h")),
		UploadTokenTTL:           mustDuration(getEnv("UPLOAD_TOKEN_TTL", "168h")),
		CatalogPath:              getEnv("PRODUCT_CATALOG_PATH", "catalog.yaml"),
		ReconcileWindow:          mustDuration(getEnv("RECONCILE_WINDOW", "24h")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
