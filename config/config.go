package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Push    PushConfig    `mapstructure:"push"`
	OTP     OTPConfig     `mapstructure:"otp"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	TLSCAFile      string        `mapstructure:"tls_ca_file"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type KafkaConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	ClientID      string   `mapstructure:"client_id"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	SSL           bool     `mapstructure:"ssl"`
	SASLMechanism string   `mapstructure:"sasl_mechanism"`

	TopicLeadCreated string `mapstructure:"topic_lead_created"`
	TopicAuthLogin   string `mapstructure:"topic_auth_login"`
	TopicOTPIssued   string `mapstructure:"topic_otp_issued"`
}

type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	FromEmail  string `mapstructure:"from_email"`
	FromName   string `mapstructure:"from_name"`
	ReplyTo    string `mapstructure:"reply_to"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

type PushConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	Subject         string `mapstructure:"subject"`
	TTL             int    `mapstructure:"ttl"`
}

type OTPConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	LoginCooldown   time.Duration `mapstructure:"login_cooldown"`
	Enable2FACool   time.Duration `mapstructure:"enable_2fa_cooldown"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type NotifyConfig struct {
	PacingDelay   time.Duration `mapstructure:"pacing_delay"`
	ReminderHour  int           `mapstructure:"reminder_hour"`
	QueueCapacity int           `mapstructure:"queue_capacity"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from config.yaml (if present) and environment
// variables. Environment variables take precedence and use underscores,
// e.g. MONGODB_URI overrides mongodb.uri.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// MongoDB
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "leadsflow")
	v.SetDefault("mongodb.connect_timeout", "10s")
	v.SetDefault("mongodb.max_pool_size", 100)
	v.SetDefault("mongodb.retry_attempts", 5)
	v.SetDefault("mongodb.tls_ca_file", "")

	// Redis
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "5m")

	// Kafka
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "leadsflow-api")
	v.SetDefault("kafka.sasl_mechanism", "plain")
	v.SetDefault("kafka.topic_lead_created", "leadsflow.lead.created")
	v.SetDefault("kafka.topic_auth_login", "leadsflow.auth.login")
	v.SetDefault("kafka.topic_otp_issued", "leadsflow.otp.issued")

	// SMTP
	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_email", "no-reply@leadsflow.io")
	v.SetDefault("smtp.from_name", "LeadsFlow")
	v.SetDefault("smtp.tls_enabled", true)

	// Web push
	v.SetDefault("push.enabled", false)
	v.SetDefault("push.subject", "mailto:support@leadsflow.io")
	v.SetDefault("push.ttl", 60)

	// OTP
	v.SetDefault("otp.ttl", "10m")
	v.SetDefault("otp.login_cooldown", "5s")
	v.SetDefault("otp.enable_2fa_cooldown", "10s")
	v.SetDefault("otp.cleanup_interval", "1h")

	// Notifications
	v.SetDefault("notify.pacing_delay", "2s")
	v.SetDefault("notify.reminder_hour", 9)
	v.SetDefault("notify.queue_capacity", 256)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.MongoDB.URI == "" {
		return fmt.Errorf("mongodb URI is required")
	}
	if c.MongoDB.Database == "" {
		return fmt.Errorf("mongodb database name is required")
	}
	if c.Push.Enabled && (c.Push.VAPIDPublicKey == "" || c.Push.VAPIDPrivateKey == "") {
		return fmt.Errorf("push notifications enabled but VAPID keys are missing")
	}
	return nil
}

// Addr returns the host:port string the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
