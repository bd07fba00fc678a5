// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every deployment knob. Connection limits, CORS and credentials
// differ per environment; claim behaviour does not.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Port     string `env:"PORT" envDefault:"3001"`

	DatabaseURL     string        `env:"DATABASE_URL,required,notEmpty"`
	DBMaxOpenConns  int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBLockTimeout   time.Duration `env:"DB_LOCK_TIMEOUT" envDefault:"5s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	SeedDemoEvent   bool          `env:"SEED_DEMO_EVENT" envDefault:"false"`
	LinkTTL         time.Duration `env:"LINK_TTL" envDefault:"24h"`
	RewardCatalog   []string      `env:"REWARD_CATALOG" envSeparator:","`
	HealthDBTimeout time.Duration `env:"HEALTH_DB_TIMEOUT" envDefault:"10s"`

	JWTSecret         string        `env:"JWT_SECRET,required,notEmpty"`
	AdminUsername     string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH,required,notEmpty"`
	AdminTokenTTL     time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"1h"`

	DiscordWebhookURL string        `env:"DISCORD_WEBHOOK_URL"`
	NotifyQueueSize   int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	NotifyWorkers     int           `env:"NOTIFY_WORKERS" envDefault:"1"`
	NotifyTimeout     time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`

	ExpiryReportInterval time.Duration `env:"EXPIRY_REPORT_INTERVAL" envDefault:"10m"`
	SnapshotInterval     time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"1h"`

	R2 R2Config
}

// R2Config points the winners snapshot job at a Cloudflare R2 (S3 compatible) bucket.
type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Enabled reports whether enough is set to talk to the bucket.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// Load reads an optional .env file and then parses the process environment.
// loadedDotenv is false when no .env file was found; that is not an error.
func Load() (cfg *Config, loadedDotenv bool, err error) {
	loadedDotenv = godotenv.Load() == nil

	cfg = &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, loadedDotenv, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, loadedDotenv, err
	}
	return cfg, loadedDotenv, nil
}

func (c *Config) validate() error {
	if c.DBMaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 1, got %d", c.DBMaxOpenConns)
	}
	if c.NotifyQueueSize < 1 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be >= 1, got %d", c.NotifyQueueSize)
	}
	if c.NotifyWorkers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be >= 1, got %d", c.NotifyWorkers)
	}
	if c.LinkTTL <= 0 {
		return fmt.Errorf("LINK_TTL must be positive, got %s", c.LinkTTL)
	}
	for i, origin := range c.AllowedOrigins {
		c.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	return nil
}
