package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all engine configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Push     PushConfig     `mapstructure:"push"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Events   EventsConfig   `mapstructure:"events"`
	API      APIConfig      `mapstructure:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// MongoDBConfig holds MongoDB settings.
type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// DispatchConfig holds dispatch loop settings.
type DispatchConfig struct {
	// CronSpec drives the tick cadence; the engine assumes one process runs
	// with dispatch enabled, since due-item claims are not coordinated.
	CronSpec string `mapstructure:"cron_spec"`
	Enabled  bool   `mapstructure:"enabled"`
}

// QueueConfig holds retry queue settings.
type QueueConfig struct {
	MaxRetries   int `mapstructure:"max_retries"`
	DrainDelayMS int `mapstructure:"drain_delay_ms"`
}

// DrainDelay returns the inter-drain delay as a duration.
func (q QueueConfig) DrainDelay() time.Duration {
	return time.Duration(q.DrainDelayMS) * time.Millisecond
}

// PushConfig holds push provider settings.
type PushConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	AppID     string `mapstructure:"app_id"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

// EventsConfig holds realtime event publisher settings. An empty URL disables
// publishing.
type EventsConfig struct {
	RabbitMQURL string `mapstructure:"rabbitmq_url"`
	Exchange    string `mapstructure:"exchange"`
}

// APIConfig holds API rate limit settings.
type APIConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Load reads configuration from config.yaml and environment variables.
// Environment variables use the NOTIFY_ prefix and underscore separators,
// e.g. NOTIFY_MONGODB_URI overrides mongodb.uri.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	_ = godotenv.Load()

	v.SetEnvPrefix("NOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8084)
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "hr_platform")
	v.SetDefault("dispatch.cron_spec", "* * * * *")
	v.SetDefault("dispatch.enabled", true)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.drain_delay_ms", 100)
	// Empty defaults keep env-only keys visible to Unmarshal: AutomaticEnv
	// alone only resolves keys viper already knows about.
	v.SetDefault("push.base_url", "")
	v.SetDefault("push.api_key", "")
	v.SetDefault("push.app_id", "")
	v.SetDefault("push.timeout_ms", 30000)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from_email", "noreply@example.com")
	v.SetDefault("smtp.from_name", "HR Platform")
	v.SetDefault("events.rabbitmq_url", "")
	v.SetDefault("events.exchange", "notifications")
	v.SetDefault("api.rate_limit_rps", 50)
	v.SetDefault("api.rate_limit_burst", 100)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
