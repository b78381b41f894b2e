package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Raster   RasterConfig
	Delivery DeliveryConfig
	Jobs     JobsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr     string
	UploadsDir   string
	ExportsDir   string
	CallbackPath string
}

// DatabaseConfig holds the invoice store configuration
type DatabaseConfig struct {
	Path        string
	PingTimeout time.Duration
}

// RasterConfig holds pdftoppm invocation settings
type RasterConfig struct {
	Pdftoppm      string
	DPI           int
	FirstPageOnly bool
	WorkDir       string
}

// DeliveryConfig holds the outbound OCR webhook settings
type DeliveryConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// JobsConfig holds batch job lifecycle settings
type JobsConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:     getEnv("HTTP_ADDR", ":3011"),
			UploadsDir:   getEnv("UPLOADS_DIR", "./uploads"),
			ExportsDir:   getEnv("EXPORTS_DIR", "./exports"),
			CallbackPath: getEnv("CALLBACK_PATH", "fakturownica"),
		},
		Database: DatabaseConfig{
			Path:        getEnv("DB_PATH", "./faktury.db"),
			PingTimeout: getEnvAsDuration("DB_PING_TIMEOUT", 3*time.Second),
		},
		Raster: RasterConfig{
			Pdftoppm:      getEnv("PDFTOPPM", "pdftoppm"),
			DPI:           getEnvAsInt("RASTER_DPI", 0),
			FirstPageOnly: getEnvAsBool("FIRST_PAGE_ONLY", false),
			WorkDir:       getEnv("WORK_DIR", "./ocrjpeg"),
		},
		Delivery: DeliveryConfig{
			WebhookURL: getEnv("WEBHOOK_URL", ""),
			Timeout:    getEnvAsDuration("WEBHOOK_TIMEOUT", 2*time.Minute),
		},
		Jobs: JobsConfig{
			TTL:           getEnvAsDuration("JOB_TTL", time.Hour),
			SweepInterval: getEnvAsDuration("JOB_SWEEP_INTERVAL", 5*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Database.Path == "" {
		return NewAppError("CONFIG_ERROR", "DB_PATH is required", ErrInvalidInput)
	}
	if c.Delivery.WebhookURL == "" {
		return NewAppError("CONFIG_ERROR", "WEBHOOK_URL is required", ErrInvalidInput)
	}
	return nil
}
