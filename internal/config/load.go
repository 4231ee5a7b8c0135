package config

import (
	"errors"
	"fmt"
	"strings"
	_ "time/tzdata" // timezone validation must not depend on the host zoneinfo

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. ACCOUNTS_DATABASE_URL for database.url.
const EnvPrefix = "ACCOUNTS"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to Unmarshal unless bound explicitly.
	for _, key := range []string{"database.url", "auth.jwt_secret"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs struct-tag validation over a loaded configuration.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("accounts.activation_window", "3m")
	v.SetDefault("accounts.activation_base_url", "http://127.0.0.1:8080")
	v.SetDefault("accounts.congrats_after_days", 22)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.retry_base_delay", "60s")
	v.SetDefault("task.max_retries", 5)
	v.SetDefault("task.dispatch_interval", "1s")
	v.SetDefault("task.dispatch_batch", 100)

	v.SetDefault("broker.kind", "kafka")
	v.SetDefault("broker.kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("broker.topic", "accounts.tasks")
	v.SetDefault("broker.group_id", "accounts-workers")

	v.SetDefault("scheduler.timezone", "Asia/Almaty")
	v.SetDefault("scheduler.congrats_cron", "0 12 * * *")

	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.from", "no-reply@accounts.local")
	v.SetDefault("mail.region", "")
}
