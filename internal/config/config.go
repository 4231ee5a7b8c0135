package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Accounts  AccountsConfig  `mapstructure:"accounts"  validate:"required"`
	Task      TaskConfig      `mapstructure:"task"      validate:"required"`
	Broker    BrokerConfig    `mapstructure:"broker"    validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Mail      MailConfig      `mapstructure:"mail"      validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"gtfield=TokenLifetimeMinutes"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
}

// AccountsConfig controls the account activation lifecycle.
type AccountsConfig struct {
	// ActivationWindow is how long an activation code stays valid after each save.
	ActivationWindow time.Duration `mapstructure:"activation_window"   validate:"gt=0"`
	// ActivationBaseURL prefixes the link that is mailed to new accounts.
	ActivationBaseURL string `mapstructure:"activation_base_url" validate:"required,url"`
	// CongratsAfterDays selects accounts that joined exactly this many calendar days ago.
	CongratsAfterDays int `mapstructure:"congrats_after_days" validate:"gte=0"`
}

// TaskConfig controls the worker pool and its retry policy.
type TaskConfig struct {
	WorkerCount    int           `mapstructure:"worker_count"     validate:"gt=0"`
	QueueSize      int           `mapstructure:"queue_size"       validate:"gt=0"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"gt=0"`
	// MaxRetries caps retries per task; zero leaves retries unbounded.
	MaxRetries       int           `mapstructure:"max_retries"       validate:"gte=0"`
	DispatchInterval time.Duration `mapstructure:"dispatch_interval" validate:"gt=0"`
	DispatchBatch    int           `mapstructure:"dispatch_batch"    validate:"gt=0"`
}

// BrokerConfig selects and configures the task transport.
type BrokerConfig struct {
	Kind         string   `mapstructure:"kind"          validate:"required,oneof=kafka memory"`
	KafkaBrokers []string `mapstructure:"kafka_brokers" validate:"required_if=Kind kafka,dive,hostname_port"`
	Topic        string   `mapstructure:"topic"         validate:"required"`
	GroupID      string   `mapstructure:"group_id"      validate:"required"`
}

// SchedulerConfig controls the periodic congratulation trigger.
type SchedulerConfig struct {
	Timezone     string `mapstructure:"timezone"      validate:"required,timezone"`
	CongratsCron string `mapstructure:"congrats_cron" validate:"required,cron"`
}

// MailConfig selects the outgoing mail transport.
type MailConfig struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=ses log"`
	From     string `mapstructure:"from"     validate:"required,email"`
	Region   string `mapstructure:"region"   validate:"required_if=Provider ses"`
}
