package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// AI providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Storage drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Wizard  WizardConfig  `mapstructure:"wizard"`
	AI      AIConfig      `mapstructure:"ai"`
	Storage StorageConfig `mapstructure:"storage"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WizardConfig holds draft behaviour settings
type WizardConfig struct {
	Company        string        `mapstructure:"company"`
	DraftTTL       time.Duration `mapstructure:"draft_ttl"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// AIConfig selects and configures the generative model provider
type AIConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PromptsPath string        `mapstructure:"prompts_path"`
	MaxPDFPages int           `mapstructure:"max_pdf_pages"`
}

// StorageConfig selects the draft store
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// NotifyConfig holds acknowledgment delivery settings
type NotifyConfig struct {
	Lark LarkConfig `mapstructure:"lark"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AppID         string `mapstructure:"app_id"`
	AppSecret     string `mapstructure:"app_secret"`
	ReceiveOpenID string `mapstructure:"receive_open_id"`
	BaseURL       string `mapstructure:"base_url"`
}

// WorkerConfig holds background worker settings
type WorkerConfig struct {
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configuration from configPath, a .env file next to the
// process and the environment. An empty configPath uses defaults and
// environment only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("wizard.company", "Avo.ai")
	v.SetDefault("wizard.draft_ttl", 24*time.Hour)
	v.SetDefault("wizard.max_upload_bytes", 10<<20)

	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.max_pdf_pages", 2)

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.path", "data/drafts.db")

	v.SetDefault("notify.lark.enabled", false)

	v.SetDefault("worker.janitor_interval", 5*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars maps secrets and common overrides to environment variables
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("ai.api_key", "AI_API_KEY")
	_ = v.BindEnv("ai.provider", "AI_PROVIDER")
	_ = v.BindEnv("ai.model", "AI_MODEL")
	_ = v.BindEnv("notify.lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("notify.lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("notify.lark.receive_open_id", "LARK_RECEIVE_OPEN_ID")
	_ = v.BindEnv("storage.driver", "STORAGE_DRIVER")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
}

func (c *Config) normalize() {
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.AI.Provider {
	case ProviderOpenAI, ProviderGemini:
		if c.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required for provider %q (set AI_API_KEY)", c.AI.Provider)
		}
	case ProviderNone:
	default:
		return fmt.Errorf("ai.provider must be one of openai, gemini, none, got %q", c.AI.Provider)
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite, DriverBolt:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory, sqlite, bolt, got %q", c.Storage.Driver)
	}

	if c.Notify.Lark.Enabled {
		if c.Notify.Lark.AppID == "" || c.Notify.Lark.AppSecret == "" {
			return errors.New("notify.lark.app_id and notify.lark.app_secret are required when lark is enabled")
		}
		if c.Notify.Lark.ReceiveOpenID == "" {
			return errors.New("notify.lark.receive_open_id is required when lark is enabled")
		}
	}

	durations := map[string]time.Duration{
		"ai.timeout":              c.AI.Timeout,
		"wizard.draft_ttl":        c.Wizard.DraftTTL,
		"worker.janitor_interval": c.Worker.JanitorInterval,
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}

	if c.Wizard.MaxUploadBytes <= 0 {
		return fmt.Errorf("wizard.max_upload_bytes must be positive, got %d", c.Wizard.MaxUploadBytes)
	}
	if strings.TrimSpace(c.Wizard.Company) == "" {
		return errors.New("wizard.company is required")
	}
	return nil
}
