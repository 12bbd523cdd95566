package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port     string `env:"KITCHIN_PORT"      envDefault:"8080"`
	DBPath   string `env:"KITCHIN_DB_PATH"   envDefault:"kitchin.db"`
	LogLevel string `env:"KITCHIN_LOG_LEVEL" envDefault:"info"`
	// LogFormat is "text" or "json".
	LogFormat string `env:"KITCHIN_LOG_FORMAT" envDefault:"text"`

	SessionSecret   string `env:"KITCHIN_SESSION_SECRET,required"`
	DefaultImageURL string `env:"KITCHIN_DEFAULT_IMAGE_URL"`

	JoinRateLimit  int           `env:"KITCHIN_JOIN_RATE_LIMIT"  envDefault:"10"`
	JoinRateWindow time.Duration `env:"KITCHIN_JOIN_RATE_WINDOW" envDefault:"1m"`

	Push      PushConfig
	Backup    BackupConfig
	FoodFacts FoodFactsConfig

	OTelEndpoint string `env:"KITCHIN_OTEL_ENDPOINT"`
}

type PushConfig struct {
	VAPIDPublicKey  string        `env:"KITCHIN_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `env:"KITCHIN_VAPID_PRIVATE_KEY"`
	Subscriber      string        `env:"KITCHIN_PUSH_SUBSCRIBER" envDefault:"mailto:admin@kitchin.local"`
	ExpiryWindow    time.Duration `env:"KITCHIN_EXPIRY_WINDOW"   envDefault:"48h"`
	ScanInterval    time.Duration `env:"KITCHIN_EXPIRY_SCAN_INTERVAL" envDefault:"15m"`
}

// Enabled reports whether both VAPID keys are set.
func (p PushConfig) Enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

type BackupConfig struct {
	Endpoint   string        `env:"KITCHIN_BACKUP_S3_ENDPOINT"`
	Bucket     string        `env:"KITCHIN_BACKUP_S3_BUCKET"`
	Region     string        `env:"KITCHIN_BACKUP_S3_REGION" envDefault:"auto"`
	AccessKey  string        `env:"KITCHIN_BACKUP_S3_ACCESS_KEY"`
	SecretKey  string        `env:"KITCHIN_BACKUP_S3_SECRET_KEY"`
	Passphrase string        `env:"KITCHIN_BACKUP_PASSPHRASE"`
	Interval   time.Duration `env:"KITCHIN_BACKUP_INTERVAL" envDefault:"24h"`
	Retain     int           `env:"KITCHIN_BACKUP_RETAIN"   envDefault:"14"`
}

// Enabled reports whether enough is configured to upload backups.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != "" && b.AccessKey != "" && b.SecretKey != "" && b.Passphrase != ""
}

type FoodFactsConfig struct {
	BaseURL  string        `env:"KITCHIN_FOODFACTS_URL"       envDefault:"https://world.openfoodfacts.org"`
	CacheTTL time.Duration `env:"KITCHIN_FOODFACTS_CACHE_TTL" envDefault:"24h"`
	Timeout  time.Duration `env:"KITCHIN_FOODFACTS_TIMEOUT"   envDefault:"5s"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("KITCHIN_SESSION_SECRET must be at least 32 characters")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("KITCHIN_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.JoinRateLimit <= 0 {
		return fmt.Errorf("KITCHIN_JOIN_RATE_LIMIT must be positive")
	}
	if c.Push.ExpiryWindow <= 0 || c.Push.ScanInterval <= 0 {
		return fmt.Errorf("KITCHIN_EXPIRY_WINDOW and KITCHIN_EXPIRY_SCAN_INTERVAL must be positive")
	}
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		return fmt.Errorf("KITCHIN_VAPID_PUBLIC_KEY and KITCHIN_VAPID_PRIVATE_KEY must be set together")
	}
	if c.Backup.Bucket != "" && c.Backup.Passphrase == "" {
		return fmt.Errorf("KITCHIN_BACKUP_PASSPHRASE is required when backups are configured")
	}
	return nil
}
