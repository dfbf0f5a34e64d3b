// Package config loads and validates application configuration. Sources are
// layered: coded defaults, then an optional config.yaml, then environment
// variables (NFCLI_ prefix), later sources winning.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix namespaces all environment variables, e.g. NFCLI_SERVER_PORT.
const envPrefix = "NFCLI"

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Ingest  IngestConfig  `yaml:"ingest" envconfig:"INGEST"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"min=1"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// IngestConfig exposes the ingestion tuning knobs. The defaults mirror the
// package constants in internal/encoding; they live here so deployments can
// adjust them without a rebuild.
type IngestConfig struct {
	// ConfidenceThreshold is the minimum statistical-detection confidence
	// (0-100) accepted without trial decoding.
	ConfidenceThreshold int `yaml:"confidence_threshold" envconfig:"CONFIDENCE_THRESHOLD" validate:"min=0,max=100"`
	// ControlRatioCeiling is the maximum tolerated ratio of control and
	// replacement runes in decoded text before a decode counts as garbled.
	ControlRatioCeiling float64 `yaml:"control_ratio_ceiling" envconfig:"CONTROL_RATIO_CEILING" validate:"min=0,max=1"`
	// PreviewRows caps the rows returned by the preview endpoint.
	PreviewRows int `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" validate:"min=1"`
}

// PathsConfig contains the filesystem roots the service works under.
type PathsConfig struct {
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ExportDir string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// Default returns the coded defaults, the base layer of Load.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  25,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/nfcli.log",
		},
		Ingest: IngestConfig{
			ConfidenceThreshold: 80,
			ControlRatioCeiling: 0.01,
			PreviewRows:         10,
		},
		Paths: PathsConfig{
			DataDir:   "data",
			ExportDir: filepath.Join("data", "exports"),
			LogsDir:   "logs",
		},
	}
}

// configFileName is looked up in the working directory when no explicit file
// is given.
const configFileName = "config.yaml"

// Load reads configuration from config.yaml (when present) and the
// environment, then validates the result.
func Load() (*Config, error) {
	return LoadFromFile(configFileName)
}

// LoadFromFile is Load with an explicit config file path; a missing file is
// not an error.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// No default tags on the struct, so only variables actually present in
	// the environment override the layers below.
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// resolvePaths makes all configured directories absolute and creates them.
func (c *Config) resolvePaths() error {
	for _, dir := range []*string{&c.Paths.DataDir, &c.Paths.ExportDir, &c.Paths.LogsDir} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return err
		}
		*dir = abs
		if err := os.MkdirAll(abs, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", abs, err)
		}
	}
	if !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, filepath.Base(c.Logging.FilePath))
	}
	return nil
}
