// Package config loads pipeline configuration from environment
// variables and an optional YAML file. A .env file in the working
// directory is honored when present.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tablewise/pdf-tables/internal/domain"
)

// Config holds all configuration for the extraction pipeline.
type Config struct {
	// Detection model inference endpoint. Required before any
	// processing starts.
	ModelURL string `yaml:"model_url"`

	// OCR settings. The pipeline is fixed to a single language.
	OCRLanguage string `yaml:"ocr_language"`

	// Workers bounds parallel page processing. 1 means strictly
	// sequential page-by-page processing.
	Workers int `yaml:"workers"`

	// OutputDir receives the zip bundle and optional workbook.
	OutputDir string `yaml:"output_dir"`

	// WriteXLSX also writes merged tables as a single XLSX workbook.
	WriteXLSX bool `yaml:"write_xlsx"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		OCRLanguage: "eng",
		Workers:     1,
		OutputDir:   ".",
		LogLevel:    "info",
		LogFormat:   "console",
	}
}

// Load reads configuration from an optional YAML file path and the
// environment. Environment variables override file values.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError(fmt.Sprintf("read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError(fmt.Sprintf("parse config file %s", path), err)
		}
	}

	applyEnv(cfg)

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// Validate checks the settings that must be present before processing
// starts. A missing model endpoint is fatal.
func (c *Config) Validate() error {
	if c.ModelURL == "" {
		return domain.ConfigError("TABLE_MODEL_URL is not set; the detection model endpoint is required", nil)
	}
	if c.OCRLanguage == "" {
		return domain.ConfigError("OCR language must not be empty", nil)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TABLE_MODEL_URL"); v != "" {
		cfg.ModelURL = v
	}
	if v := os.Getenv("OCR_LANGUAGE"); v != "" {
		cfg.OCRLanguage = v
	}
	if v := os.Getenv("PIPELINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}
