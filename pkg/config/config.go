package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PARTSTRAIL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	SMTP         SMTPConfig
	Brief        BriefConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PARTSTRAIL_APP_ENV" required:"true"`
	Port         string `envconfig:"PARTSTRAIL_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PARTSTRAIL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PARTSTRAIL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PARTSTRAIL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"PARTSTRAIL_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"PARTSTRAIL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARTSTRAIL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARTSTRAIL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARTSTRAIL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PARTSTRAIL_REDIS_URL"`
	Address      string        `envconfig:"PARTSTRAIL_REDIS_ADDR"`
	Password     string        `envconfig:"PARTSTRAIL_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARTSTRAIL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARTSTRAIL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARTSTRAIL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARTSTRAIL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARTSTRAIL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARTSTRAIL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SMTPConfig drives the advisor mailer. Leaving Host empty disables outbound
// email, which is the expected state in dev and in tests.
type SMTPConfig struct {
	Host     string `envconfig:"PARTSTRAIL_SMTP_HOST"`
	Port     int    `envconfig:"PARTSTRAIL_SMTP_PORT" default:"587"`
	Sender   string `envconfig:"PARTSTRAIL_SMTP_SENDER"`
	Password string `envconfig:"PARTSTRAIL_SMTP_PASSWORD"`
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.Sender != ""
}

// BriefConfig tunes the scheduled advisor brief and stale stock reminders.
type BriefConfig struct {
	Interval          time.Duration `envconfig:"PARTSTRAIL_BRIEF_INTERVAL" default:"24h"`
	StaleStockDays    int           `envconfig:"PARTSTRAIL_BRIEF_STALE_STOCK_DAYS" default:"7"`
	NewArrivalWindow  time.Duration `envconfig:"PARTSTRAIL_BRIEF_NEW_ARRIVAL_WINDOW" default:"24h"`
	CriticalAgingDays int           `envconfig:"PARTSTRAIL_BRIEF_CRITICAL_AGING_DAYS" default:"7"`
	ReminderCooldown  time.Duration `envconfig:"PARTSTRAIL_BRIEF_REMINDER_COOLDOWN" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PARTSTRAIL_FEATURE_AUTO_MIGRATE" default:"true"`
}
