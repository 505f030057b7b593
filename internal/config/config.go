// Package config загружает настройки из config.yml, .env и переменных окружения EOFFICE_*.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "EOFFICE"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Seed       SeedConfig       `mapstructure:"seed"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MinConnections int           `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AutoMigrate    bool          `mapstructure:"auto_migrate"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

type RepositoryConfig struct {
	Type string `mapstructure:"type"` // "postgres" или "inmemory"
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type NotifyConfig struct {
	QueueSize     int           `mapstructure:"queue_size"`
	Workers       int           `mapstructure:"workers"`
	SendTimeout   time.Duration `mapstructure:"send_timeout"`
	OutboxPath    string        `mapstructure:"outbox_path"`
	RetrySchedule string        `mapstructure:"retry_schedule"`
	RetryBatch    int           `mapstructure:"retry_batch"`
	MaxRetries    int           `mapstructure:"max_retries"`
	SMTP          SMTPConfig    `mapstructure:"smtp"`
	Twilio        TwilioConfig  `mapstructure:"twilio"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

type WorkerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Window   time.Duration `mapstructure:"window"`
}

type SeedConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("logging.development", false)
	v.SetDefault("repository.type", "inmemory")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.send_timeout", 15*time.Second)
	v.SetDefault("notify.outbox_path", "data/outbox.db")
	v.SetDefault("notify.retry_schedule", "@every 1m")
	v.SetDefault("notify.retry_batch", 50)
	v.SetDefault("notify.max_retries", 5)
	v.SetDefault("notify.smtp.host", "")
	v.SetDefault("notify.smtp.port", 587)
	v.SetDefault("notify.smtp.username", "")
	v.SetDefault("notify.smtp.password", "")
	v.SetDefault("notify.smtp.from", "")
	v.SetDefault("notify.twilio.account_sid", "")
	v.SetDefault("notify.twilio.auth_token", "")
	v.SetDefault("notify.twilio.from", "")

	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.interval", time.Hour)
	v.SetDefault("worker.window", 72*time.Hour)

	v.SetDefault("seed.path", "")
}

// Load читает path (по умолчанию config.yml). Отсутствующий файл не ошибка:
// остаются значения по умолчанию и переменные окружения.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	if path == "" {
		path = "config.yml"
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url обязателен для repository.type=postgres")
		}
	case "inmemory":
	default:
		return fmt.Errorf("неизвестный repository.type %q", c.Repository.Type)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret не задан")
	}
	if c.Worker.Enabled && c.Worker.Interval <= 0 {
		return errors.New("worker.interval должен быть положительным")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
