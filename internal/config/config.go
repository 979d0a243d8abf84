package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	HMRC    HMRCConfig
	Redis   RedisConfig
	Session SessionConfig
	Vendor  VendorConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type HMRCConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	AppURL       string
	Scopes       []string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type SessionConfig struct {
	SecretKey string
	TTL       time.Duration
}

type VendorConfig struct {
	ProductName string
	Version     string
	LicenseIDs  string
}

// RedirectURI is the OAuth callback registered with HMRC for this application.
func (c *HMRCConfig) RedirectURI() string {
	return strings.TrimSuffix(c.AppURL, "/") + "/oauth/callback"
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		HMRC: HMRCConfig{
			BaseURL:      getEnv("HMRC_BASE_URL", "https://test-api.service.hmrc.gov.uk"),
			ClientID:     getEnv("HMRC_CLIENT_ID", ""),
			ClientSecret: getEnv("HMRC_CLIENT_SECRET", ""),
			AppURL:       getEnv("APP_URL", "http://localhost:8080"),
			Scopes:       strings.Fields(getEnv("HMRC_SCOPES", "read:vat write:vat")),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			SecretKey: getEnv("SESSION_SECRET_KEY", ""),
			TTL:       getEnvAsDuration("SESSION_TTL", 4*time.Hour),
		},
		Vendor: VendorConfig{
			ProductName: getEnv("VENDOR_PRODUCT_NAME", "vatbridge"),
			Version:     getEnv("VENDOR_VERSION", "0.1.0"),
			LicenseIDs:  getEnv("VENDOR_LICENSE_IDS", "default"),
		},
	}

	if cfg.HMRC.ClientID == "" {
		return nil, fmt.Errorf("HMRC_CLIENT_ID environment variable is required")
	}

	if cfg.HMRC.ClientSecret == "" {
		return nil, fmt.Errorf("HMRC_CLIENT_SECRET environment variable is required")
	}

	if cfg.Session.SecretKey == "" {
		return nil, fmt.Errorf("SESSION_SECRET_KEY environment variable is required")
	}

	if len(cfg.Session.SecretKey) < 32 {
		return nil, fmt.Errorf("SESSION_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
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
