package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. BIZFLOW_LLM_MODEL.
const EnvPrefix = "BIZFLOW"

// Config contains all configuration for the workflow system
type Config struct {
	LLM    LLMConfig    `json:"llm" yaml:"llm" mapstructure:"llm" validate:"required"`
	Data   DataConfig   `json:"data" yaml:"data" mapstructure:"data" validate:"required"`
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server" validate:"required"`
	PDF    PDFConfig    `json:"pdf" yaml:"pdf" mapstructure:"pdf"`

	// Logging
	LogLevel  string `json:"log_level" yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `json:"log_format" yaml:"log_format" mapstructure:"log_format" validate:"omitempty,oneof=console json"`
	LogFile   string `json:"log_file" yaml:"log_file" mapstructure:"log_file"`
}

// LLMConfig configuration for the completion service
type LLMConfig struct {
	Provider          string  `json:"provider" yaml:"provider" mapstructure:"provider" validate:"required,oneof=openai ollama"`
	Model             string  `json:"model" yaml:"model" mapstructure:"model" validate:"required"`
	BaseURL           string  `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	APIKey            string  `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
	Temperature       float32 `json:"temperature" yaml:"temperature" mapstructure:"temperature" validate:"min=0,max=2"`
	ReportTemperature float32 `json:"report_temperature" yaml:"report_temperature" mapstructure:"report_temperature" validate:"min=0,max=2"`
	MaxTokens         int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens" validate:"min=0,max=128000"`
	Timeout           float64 `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds" validate:"min=1,max=3600"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"min=0"`
	Burst             int     `json:"burst" yaml:"burst" mapstructure:"burst" validate:"min=1,max=100"`
	Language          string  `json:"language" yaml:"language" mapstructure:"language" validate:"required"`
}

// DataConfig points the query tool at its CSV sources
type DataConfig struct {
	Dir    string            `json:"dir" yaml:"dir" mapstructure:"dir"`
	Tables map[string]string `json:"tables" yaml:"tables" mapstructure:"tables" validate:"required,min=1"`
}

// ServerConfig configuration for the HTTP API
type ServerConfig struct {
	Address         string   `json:"address" yaml:"address" mapstructure:"address" validate:"required,hostname_port"`
	AllowedOrigins  []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Simulate        bool     `json:"simulate" yaml:"simulate" mapstructure:"simulate"`
	ShutdownTimeout int      `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds" validate:"min=1,max=600"`
	WorkflowTTL     int      `json:"workflow_ttl_minutes" yaml:"workflow_ttl_minutes" mapstructure:"workflow_ttl_minutes" validate:"min=0"`
}

// PDFConfig configuration for the report exporter
type PDFConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty" mapstructure:"output_dir"`
}

// DefaultTables are the six e-commerce sources the canned queries expect.
var DefaultTables = map[string]string{
	"customers":           "customers.csv",
	"orders":              "orders.csv",
	"order_items":         "order_items.csv",
	"products":            "products.csv",
	"marketing_spend":     "marketing_spend.csv",
	"web_analytics_daily": "web_analytics_daily.csv",
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	tables := make(map[string]string, len(DefaultTables))
	for name, file := range DefaultTables {
		tables[name] = file
	}

	return &Config{
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o-mini",
			Temperature:       0.1,
			ReportTemperature: 0.3,
			MaxTokens:         0,
			Timeout:           120.0,
			RequestsPerSecond: 2,
			Burst:             4,
			Language:          "English",
		},
		Data: DataConfig{
			Dir:    "show_case_data",
			Tables: tables,
		},
		Server: ServerConfig{
			Address:         "127.0.0.1:8000",
			AllowedOrigins:  []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			Simulate:        false,
			ShutdownTimeout: 30,
			WorkflowTTL:     0,
		},
		PDF: PDFConfig{
			Enabled:   true,
			OutputDir: "",
		},
		LogLevel:  "info",
		LogFormat: "console",
		LogFile:   "",
	}
}

// Load builds the configuration from defaults, an optional file, .env and the environment.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromFile loads configuration from a JSON or YAML file
func LoadConfigFromFile(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}
	return Load(path)
}

// setDefaults registers every key with viper so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.report_temperature", cfg.LLM.ReportTemperature)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.timeout_seconds", cfg.LLM.Timeout)
	v.SetDefault("llm.requests_per_second", cfg.LLM.RequestsPerSecond)
	v.SetDefault("llm.burst", cfg.LLM.Burst)
	v.SetDefault("llm.language", cfg.LLM.Language)
	v.SetDefault("data.dir", cfg.Data.Dir)
	v.SetDefault("data.tables", cfg.Data.Tables)
	v.SetDefault("server.address", cfg.Server.Address)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)
	v.SetDefault("server.simulate", cfg.Server.Simulate)
	v.SetDefault("server.shutdown_timeout_seconds", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.workflow_ttl_minutes", cfg.Server.WorkflowTTL)
	v.SetDefault("pdf.enabled", cfg.PDF.Enabled)
	v.SetDefault("pdf.output_dir", cfg.PDF.OutputDir)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("log_file", cfg.LogFile)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validate := validator.New()

	for name, file := range c.Data.Tables {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("data.tables contains an empty table name")
		}
		if strings.TrimSpace(file) == "" {
			return fmt.Errorf("data.tables[%s] has no file", name)
		}
	}

	return validate.Struct(c)
}

// TablePaths resolves every configured table to its file path under Data.Dir.
func (c *Config) TablePaths() map[string]string {
	paths := make(map[string]string, len(c.Data.Tables))
	for name, file := range c.Data.Tables {
		if filepath.IsAbs(file) || c.Data.Dir == "" {
			paths[name] = file
			continue
		}
		paths[name] = filepath.Join(c.Data.Dir, file)
	}
	return paths
}

// HasCredentials reports whether the completion service can be reached.
// Ollama runs without a key.
func (c *Config) HasCredentials() bool {
	return c.LLM.Provider == "ollama" || c.LLM.APIKey != ""
}

// SaveToFile saves the configuration as JSON, or YAML for .yaml/.yml paths
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	return nil
}

// String returns a string representation of the config (with sensitive data masked)
func (c *Config) String() string {
	configCopy := *c

	if configCopy.LLM.APIKey != "" {
		configCopy.LLM.APIKey = strings.Repeat("*", len(configCopy.LLM.APIKey))
	}

	data, _ := json.MarshalIndent(configCopy, "", "  ")
	return string(data)
}

// Masked returns a copy safe to expose over the API.
func (c *Config) Masked() Config {
	configCopy := *c
	if configCopy.LLM.APIKey != "" {
		configCopy.LLM.APIKey = "***"
	}
	return configCopy
}
