package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server struct {
		Port int `mapstructure:"port" validate:"gt=0,lte=65535"`
	} `mapstructure:"server"`
	DB struct {
		URL            string `mapstructure:"url" validate:"required"`
		ServiceKey     string `mapstructure:"service_key" validate:"required"`
		MigrationsPath string `mapstructure:"migrations_path"`
		MaxOpenConns   int    `mapstructure:"max_open_conns" validate:"gt=0"`
	} `mapstructure:"db"`
	Autopay struct {
		Cron        string        `mapstructure:"cron"`
		Timezone    string        `mapstructure:"timezone" validate:"required"`
		MaxFailures int           `mapstructure:"max_failures" validate:"gt=0"`
		PageSize    int           `mapstructure:"page_size" validate:"gt=0,lte=1000"`
		TokenTTL    time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"autopay"`
	XnScore struct {
		URL     string        `mapstructure:"url" validate:"omitempty,url"`
		Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	} `mapstructure:"xnscore"`
	LogLevel string `mapstructure:"log_level"`
}

// envBindings сопоставляет ключи конфигурации с переменными окружения
var envBindings = map[string]string{
	"server.port":          "SERVER_PORT",
	"db.url":               "DATABASE_URL",
	"db.service_key":       "SERVICE_ROLE_KEY",
	"db.migrations_path":   "MIGRATIONS_PATH",
	"db.max_open_conns":    "DB_MAX_OPEN_CONNS",
	"autopay.cron":         "AUTOPAY_CRON",
	"autopay.timezone":     "AUTOPAY_TIMEZONE",
	"autopay.max_failures": "AUTOPAY_MAX_FAILURES",
	"autopay.page_size":    "AUTOPAY_PAGE_SIZE",
	"autopay.token_ttl":    "AUTOPAY_TOKEN_TTL",
	"xnscore.url":          "XNSCORE_URL",
	"xnscore.timeout":      "XNSCORE_TIMEOUT",
	"log_level":            "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.migrations_path", "file://migrations")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("autopay.cron", "0 6 * * *")
	v.SetDefault("autopay.timezone", "UTC")
	v.SetDefault("autopay.max_failures", 3)
	v.SetDefault("autopay.page_size", 100)
	v.SetDefault("autopay.token_ttl", "15m")
	v.SetDefault("xnscore.timeout", "5s")
	v.SetDefault("log_level", "info")
}

// NewConfig загружает конфигурацию из переменных окружения и, если указан, из файла
func NewConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет обязательные параметры конфигурации
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("invalid config: %w", err)
		}
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, e.Namespace()+" is required")
			default:
				messages = append(messages, fmt.Sprintf("%s failed %s=%s", e.Namespace(), e.Tag(), e.Param()))
			}
		}
		return errors.New("invalid config: " + strings.Join(messages, "; "))
	}

	if _, err := time.LoadLocation(c.Autopay.Timezone); err != nil {
		return fmt.Errorf("invalid config: unknown timezone %q: %w", c.Autopay.Timezone, err)
	}
	return nil
}

// Location возвращает часовой пояс, в котором определяется текущая дата расчетов
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Autopay.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
