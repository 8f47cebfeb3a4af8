package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything main needs to wire the bot. Parsed once at startup
// and passed down explicitly; no component reads the environment on its own.
type Config struct {
	BotToken string  `env:"BOT_TOKEN,required"`
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	UploadPath  string `env:"UPLOAD_PATH" envDefault:"./uploads"`
	MaxFileSize int64  `env:"MAX_FILE_SIZE" envDefault:"10485760"`

	Tochka TochkaConfig
	Kafka  KafkaConfig
	Redis  RedisConfig

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// TochkaConfig carries credentials for the Tochka bank SBP API.
type TochkaConfig struct {
	BaseURL      string `env:"TOCHKA_BASE_URL" envDefault:"https://enter.tochka.com/uapi"`
	JWTToken     string `env:"TOCHKA_JWT_TOKEN"`
	CustomerCode string `env:"TOCHKA_CUSTOMER_CODE"`
	MerchantID   string `env:"TOCHKA_MERCHANT_ID"`
	// WebhookKey is the PEM-encoded RSA public key Tochka signs webhook JWTs with.
	WebhookKey string `env:"TOCHKA_WEBHOOK_KEY"`
}

// KafkaConfig configures the audit event publisher. Empty brokers disable it.
type KafkaConfig struct {
	Brokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"velorent.audit"`
}

// RedisConfig tunes the staging store client beyond the URL.
type RedisConfig struct {
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// IsAdmin reports whether the telegram id is in the bootstrap admin list.
func (c Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
