package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is everything hushpayd needs at startup.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Security  SecurityConfig  `json:"security"`
	Storage   StorageConfig   `json:"storage"`
	Keyed     KeyedConfig     `json:"keyed_store"`
	Queue     QueueConfig     `json:"queue"`
	LLM       LLMConfig       `json:"llm"`
	Chain     ChainConfig     `json:"chain"`
	Providers ProvidersConfig `json:"providers"`
	Twilio    TwilioConfig    `json:"twilio"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Logging   LoggingConfig   `json:"logging"`
	Alerting  AlertingConfig  `json:"alerting"`
	Runtime   RuntimeConfig   `json:"runtime"`
}

// ServerConfig controls the webhook listener.
type ServerConfig struct {
	Address string `json:"address"`
	BaseURL string `json:"base_url"`
	// WebhookSecret is expected in the Authorization header of transfer
	// webhooks. Empty disables the check.
	WebhookSecret  string `json:"webhook_secret"`
	MetricsAddress string `json:"metrics_address"`
}

// SecurityConfig holds the process-wide sealing key.
type SecurityConfig struct {
	EncryptionKey string `json:"encryption_key"`
}

// StorageConfig selects the relational store for identities, messages,
// transfers, recurring actions and price alerts.
type StorageConfig struct {
	Driver                 string `json:"driver"`
	DSN                    string `json:"dsn"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
}

// KeyedConfig selects the expiring record store used for pending actions,
// failed actions, step-up tokens and rate-limit windows.
type KeyedConfig struct {
	Driver string      `json:"driver"`
	Redis  RedisConfig `json:"redis"`
}

// RedisConfig is shared by the keyed store and the redis queue.
type RedisConfig struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	Prefix    string `json:"prefix"`
	Queue     string `json:"queue"`
	BlockWait int    `json:"block_wait_seconds"`
}

// QueueConfig selects the outbound notification queue.
type QueueConfig struct {
	Driver   string         `json:"driver"`
	Workers  int            `json:"workers"`
	Buffer   int            `json:"buffer"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RabbitMQConfig describes the AMQP queue.
type RabbitMQConfig struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Prefetch   int    `json:"prefetch"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// LLMConfig configures the intent interpreter.
type LLMConfig struct {
	Provider       string `json:"provider"`
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	HistoryDepth   int    `json:"history_depth"`
}

// Timeout returns the per-call interpreter timeout.
func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ChainConfig points at the home chain RPC and the destination chain list.
type ChainConfig struct {
	RPCURL      string `json:"rpc_url"`
	NativeToken string `json:"native_token"`
	ChainsFile  string `json:"chains_file"`
}

// EndpointConfig is a generic HTTP provider endpoint.
type EndpointConfig struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
}

// ProvidersConfig lists the external HTTP collaborators.
type ProvidersConfig struct {
	Transfer    EndpointConfig `json:"transfer"`
	PrivacyPool EndpointConfig `json:"privacy_pool"`
	Bridge      EndpointConfig `json:"bridge"`
	Compliance  EndpointConfig `json:"compliance"`
	Price       EndpointConfig `json:"price"`
	Watcher     EndpointConfig `json:"watcher"`
}

// TwilioConfig configures SMS and WhatsApp delivery.
type TwilioConfig struct {
	AccountSID     string `json:"account_sid"`
	AuthToken      string `json:"auth_token"`
	PhoneNumber    string `json:"phone_number"`
	WhatsAppNumber string `json:"whatsapp_number"`
	BaseURL        string `json:"base_url"`
	// ValidateSignatures rejects inbound webhooks without a valid
	// X-Twilio-Signature.
	ValidateSignatures bool `json:"validate_signatures"`
}

// SchedulerConfig controls the background loops.
type SchedulerConfig struct {
	RecurringIntervalSeconds int `json:"recurring_interval_seconds"`
	PriceAlertIntervalSecond int `json:"price_alert_interval_seconds"`
}

// RecurringInterval returns the recurring scheduler tick.
func (c SchedulerConfig) RecurringInterval() time.Duration {
	return time.Duration(c.RecurringIntervalSeconds) * time.Second
}

// PriceAlertInterval returns the price alert polling tick.
func (c SchedulerConfig) PriceAlertInterval() time.Duration {
	return time.Duration(c.PriceAlertIntervalSecond) * time.Second
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level   string      `json:"level"`
	Format  string      `json:"format"`
	Outputs []string    `json:"outputs"`
	Audit   AuditConfig `json:"audit"`
}

// AuditConfig mirrors logger.AuditConfig.
type AuditConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// AlertingConfig configures operational alert delivery.
type AlertingConfig struct {
	WebhookURL string `json:"webhook_url"`
}

// RuntimeConfig holds process level settings.
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// Load reads the optional JSON file at path, applies environment overrides
// and defaults, and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config
	baseDir := "."
	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		baseDir = filepath.Dir(path)
	}

	cfg.applyEnv()
	cfg.applyDefaults(baseDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyEnv lets deployment environments override any file value.
func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Address = ":" + strings.TrimPrefix(port, ":")
	}
	c.Server.BaseURL = getEnv("BASE_URL", c.Server.BaseURL)
	c.Server.WebhookSecret = getEnv("WEBHOOK_SECRET", c.Server.WebhookSecret)
	c.Server.MetricsAddress = getEnv("METRICS_ADDR", c.Server.MetricsAddress)
	c.Security.EncryptionKey = getEnv("ENCRYPTION_KEY", c.Security.EncryptionKey)

	c.Storage.Driver = getEnv("STORE_DRIVER", c.Storage.Driver)
	c.Storage.DSN = getEnv("STORE_DSN", c.Storage.DSN)

	c.Keyed.Driver = getEnv("KEYED_DRIVER", c.Keyed.Driver)
	c.Keyed.Redis.Address = getEnv("REDIS_ADDR", c.Keyed.Redis.Address)
	c.Keyed.Redis.Password = getEnv("REDIS_PASSWORD", c.Keyed.Redis.Password)
	c.Keyed.Redis.DB = getEnvInt("REDIS_DB", c.Keyed.Redis.DB)

	c.Queue.Driver = getEnv("QUEUE_DRIVER", c.Queue.Driver)
	c.Queue.Workers = getEnvInt("QUEUE_WORKERS", c.Queue.Workers)
	c.Queue.Redis.Address = getEnv("REDIS_ADDR", c.Queue.Redis.Address)
	c.Queue.Redis.Password = getEnv("REDIS_PASSWORD", c.Queue.Redis.Password)
	c.Queue.RabbitMQ.URL = getEnv("RABBITMQ_URL", c.Queue.RabbitMQ.URL)
	c.Queue.RabbitMQ.Durable = getEnvBool("RABBITMQ_DURABLE", c.Queue.RabbitMQ.Durable)

	c.LLM.APIKey = getEnv("OPENAI_API_KEY", getEnv("GEMINI_API_KEY", c.LLM.APIKey))
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)

	c.Chain.RPCURL = getEnv("RPC_URL", c.Chain.RPCURL)
	c.Chain.NativeToken = getEnv("NATIVE_TOKEN", c.Chain.NativeToken)
	c.Chain.ChainsFile = getEnv("CHAINS_FILE", c.Chain.ChainsFile)

	c.Providers.Transfer.URL = getEnv("SHADOWWIRE_API_URL", c.Providers.Transfer.URL)
	c.Providers.Transfer.APIKey = getEnv("SHADOWWIRE_API_KEY", c.Providers.Transfer.APIKey)
	c.Providers.PrivacyPool.URL = getEnv("PRIVACY_POOL_API_URL", c.Providers.PrivacyPool.URL)
	c.Providers.PrivacyPool.APIKey = getEnv("PRIVACY_POOL_API_KEY", c.Providers.PrivacyPool.APIKey)
	c.Providers.Bridge.URL = getEnv("BRIDGE_API_URL", c.Providers.Bridge.URL)
	c.Providers.Bridge.APIKey = getEnv("BRIDGE_API_KEY", c.Providers.Bridge.APIKey)
	c.Providers.Compliance.URL = getEnv("RANGE_API_URL", c.Providers.Compliance.URL)
	c.Providers.Compliance.APIKey = getEnv("RANGE_API_KEY", c.Providers.Compliance.APIKey)
	c.Providers.Price.URL = getEnv("PRICE_API_URL", c.Providers.Price.URL)
	c.Providers.Watcher.URL = getEnv("HELIUS_API_URL", c.Providers.Watcher.URL)
	c.Providers.Watcher.APIKey = getEnv("HELIUS_API_KEY", c.Providers.Watcher.APIKey)

	c.Twilio.AccountSID = getEnv("TWILIO_ACCOUNT_SID", c.Twilio.AccountSID)
	c.Twilio.AuthToken = getEnv("TWILIO_AUTH_TOKEN", c.Twilio.AuthToken)
	c.Twilio.PhoneNumber = getEnv("TWILIO_PHONE_NUMBER", c.Twilio.PhoneNumber)
	c.Twilio.WhatsAppNumber = getEnv("TWILIO_WHATSAPP_NUMBER", c.Twilio.WhatsAppNumber)
	c.Twilio.ValidateSignatures = getEnvBool("TWILIO_VALIDATE_SIGNATURES", c.Twilio.ValidateSignatures)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	c.Alerting.WebhookURL = getEnv("ALERT_WEBHOOK_URL", c.Alerting.WebhookURL)
}

// applyDefaults fills fields left empty by the file and the environment.
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8000"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost" + c.Server.Address
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Driver == "sqlite" && c.Storage.DSN == "" {
		c.Storage.DSN = filepath.Join(c.Runtime.DataDir, "hushpay.db")
	}

	if c.Keyed.Driver == "" {
		c.Keyed.Driver = "memory"
	}
	if c.Keyed.Redis.Prefix == "" {
		c.Keyed.Redis.Prefix = "hushpay:"
	}

	if c.Queue.Driver == "" {
		c.Queue.Driver = "memory"
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 4
	}
	if c.Queue.Buffer <= 0 {
		c.Queue.Buffer = 1024
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.HistoryDepth <= 0 {
		c.LLM.HistoryDepth = 20
	}

	if c.Chain.NativeToken == "" {
		c.Chain.NativeToken = "ETH"
	}
	if c.Chain.ChainsFile != "" && !filepath.IsAbs(c.Chain.ChainsFile) {
		c.Chain.ChainsFile = filepath.Join(baseDir, c.Chain.ChainsFile)
	}

	if c.Scheduler.RecurringIntervalSeconds <= 0 {
		c.Scheduler.RecurringIntervalSeconds = 300
	}
	if c.Scheduler.PriceAlertIntervalSecond <= 0 {
		c.Scheduler.PriceAlertIntervalSecond = 300
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if len(c.Security.EncryptionKey) < 32 {
		return errors.New("ENCRYPTION_KEY must be at least 32 characters")
	}
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "mysql":
		if c.Storage.DSN == "" {
			return errors.New("STORE_DSN is required for the mysql driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Storage.Driver)
	}
	switch c.Keyed.Driver {
	case "memory":
	case "redis":
		if c.Keyed.Redis.Address == "" {
			return errors.New("REDIS_ADDR is required for the redis keyed store")
		}
	default:
		return fmt.Errorf("unknown keyed store driver %q", c.Keyed.Driver)
	}
	switch c.Queue.Driver {
	case "memory", "redis", "rabbitmq":
	default:
		return fmt.Errorf("unknown queue driver %q", c.Queue.Driver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
