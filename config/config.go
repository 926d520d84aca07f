package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DBFileName is the database file created under the base data path.
const DBFileName = "keyword_popularity.sqlite"

// Config holds all application configuration.
type Config struct {
	LiveDataFile           string `yaml:"live_data_file"`
	MessageIntervalSeconds int    `yaml:"message_interval_seconds"`
	BaseDataPath           string `yaml:"base_data_path"`
	MaxLinesPerCycle       int    `yaml:"max_lines_per_cycle"`
	RunOnce                bool   `yaml:"run_once"`
	ReportTime             string `yaml:"report_time"`
	Timezone               string `yaml:"timezone"`
	LogLevel               string `yaml:"log_level"`
}

// reportTimeRegex validates HH:MM format with proper ranges.
var reportTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Load reads configuration from a YAML file and applies defaults. A
// missing file is not an error; defaults and environment overrides
// still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("KEYWORD_CONSUMER_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

// DBPath returns the full path of the SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.BaseDataPath, DBFileName)
}

func applyDefaults(cfg *Config) {
	if cfg.LiveDataFile == "" {
		cfg.LiveDataFile = "data/project_live.json"
	}
	if cfg.MessageIntervalSeconds == 0 {
		cfg.MessageIntervalSeconds = 5
	}
	if cfg.BaseDataPath == "" {
		cfg.BaseDataPath = "data"
	}
	if cfg.MaxLinesPerCycle == 0 {
		cfg.MaxLinesPerCycle = 10000
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	// ReportTime stays empty unless configured; empty disables the report
}

func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("LIVE_DATA_FILE"); v != "" {
		cfg.LiveDataFile = v
	}
	if v := os.Getenv("MESSAGE_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MessageIntervalSeconds = n
		}
	}
	if v := os.Getenv("BASE_DATA_PATH"); v != "" {
		cfg.BaseDataPath = v
	}
}

func validate(cfg *Config) error {
	if cfg.MessageIntervalSeconds < 1 {
		return fmt.Errorf("message_interval_seconds must be at least 1, got %d", cfg.MessageIntervalSeconds)
	}
	if cfg.MaxLinesPerCycle < 0 {
		return fmt.Errorf("max_lines_per_cycle must not be negative, got %d", cfg.MaxLinesPerCycle)
	}
	if cfg.ReportTime != "" && !reportTimeRegex.MatchString(cfg.ReportTime) {
		return fmt.Errorf("report_time must be in HH:MM format (00:00-23:59), got %q", cfg.ReportTime)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}
