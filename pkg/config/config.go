package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the pipeline.
// Loaded once in main and passed to component constructors; nothing in the
// codebase reads the config file or environment on its own.
type Config struct {
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	RawSignalsDir string `yaml:"raw_signals_dir"`
	SignalLogCSV  string `yaml:"signal_log_csv"`

	Data    DataConfig    `yaml:"data"`
	Signals SignalsConfig `yaml:"signals"`

	RealizedVolWindows []int `yaml:"realized_vol_windows"`
	MomentumWindows    []int `yaml:"momentum_windows"`

	Barchart  BarchartConfig  `yaml:"barchart"`
	Stooq     StooqConfig     `yaml:"stooq"`
	Databento DatabentoConfig `yaml:"databento"`
}

// DataConfig holds output directory configuration.
type DataConfig struct {
	OutputDir    string `yaml:"output_dir"`
	ProcessedDir string `yaml:"processed_dir"`
}

// SignalsConfig holds signal logging configuration.
type SignalsConfig struct {
	// SnapshotTime is the daily run time in HH:MM (local).
	SnapshotTime string `yaml:"snapshot_time"`
	// AllowDuplicateRuns permits appending a second batch for a run date
	// that is already present in the signal log.
	AllowDuplicateRuns bool `yaml:"allow_duplicate_runs"`
}

// BarchartConfig holds screener CSV configuration.
type BarchartConfig struct {
	DataDir string `yaml:"data_dir"`
	// FilenamePattern supports {MM}, {DD}, {YYYY} placeholders.
	FilenamePattern string `yaml:"filename_pattern"`
}

// StooqConfig holds the price vendor configuration.
type StooqConfig struct {
	BaseURL string `yaml:"base_url"`
}

// DatabentoConfig holds the options vendor configuration.
type DatabentoConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Dataset string `yaml:"dataset"`
}

// Load reads configuration from a YAML file (if present), applies
// environment variable overrides, and fills in defaults. A missing config
// file is not an error; a malformed one is. Unknown YAML keys are ignored.
func Load(path string) (*Config, error) {
	loadEnvFile()

	cfg := &Config{}

	if path == "" {
		path = getEnv("SKEW_CONFIG", "config/config.yml")
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("RAW_SIGNALS_DIR"); v != "" {
		cfg.RawSignalsDir = v
	}
	if v := os.Getenv("SIGNAL_LOG_CSV"); v != "" {
		cfg.SignalLogCSV = v
	}
	if v := os.Getenv("DATA_OUTPUT_DIR"); v != "" {
		cfg.Data.OutputDir = v
	}
	if v := os.Getenv("DATA_PROCESSED_DIR"); v != "" {
		cfg.Data.ProcessedDir = v
	}
	if v := os.Getenv("SNAPSHOT_TIME"); v != "" {
		cfg.Signals.SnapshotTime = v
	}
	if v := os.Getenv("ALLOW_DUPLICATE_RUNS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Signals.AllowDuplicateRuns = b
		}
	}
	if v := os.Getenv("BARCHART_DATA_DIR"); v != "" {
		cfg.Barchart.DataDir = v
	}
	if v := os.Getenv("STOOQ_BASE_URL"); v != "" {
		cfg.Stooq.BaseURL = v
	}
	if v := os.Getenv("DATABENTO_API_KEY"); v != "" {
		cfg.Databento.APIKey = v
	}
	if v := os.Getenv("DATABENTO_BASE_URL"); v != "" {
		cfg.Databento.BaseURL = v
	}
	if v := os.Getenv("DATABENTO_DATASET"); v != "" {
		cfg.Databento.Dataset = v
	}
	if v := os.Getenv("REALIZED_VOL_WINDOWS"); v != "" {
		if ws, err := parseWindows(v); err == nil {
			cfg.RealizedVolWindows = ws
		}
	}
	if v := os.Getenv("MOMENTUM_WINDOWS"); v != "" {
		if ws, err := parseWindows(v); err == nil {
			cfg.MomentumWindows = ws
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if cfg.RawSignalsDir == "" {
		cfg.RawSignalsDir = "data/raw"
	}
	if cfg.SignalLogCSV == "" {
		cfg.SignalLogCSV = "data/raw/all_signals_log.csv"
	}
	if cfg.Data.OutputDir == "" {
		cfg.Data.OutputDir = "data/raw"
	}
	if cfg.Data.ProcessedDir == "" {
		cfg.Data.ProcessedDir = "data/processed"
	}
	if cfg.Signals.SnapshotTime == "" {
		cfg.Signals.SnapshotTime = "03:53"
	}
	if len(cfg.RealizedVolWindows) == 0 {
		cfg.RealizedVolWindows = []int{10, 20, 60}
	}
	if len(cfg.MomentumWindows) == 0 {
		cfg.MomentumWindows = []int{10, 30, 60}
	}
	if cfg.Barchart.DataDir == "" {
		cfg.Barchart.DataDir = "data/barchart"
	}
	if cfg.Barchart.FilenamePattern == "" {
		cfg.Barchart.FilenamePattern = "stocks-screener-skewcapture-screener-{MM}-{DD}-{YYYY}.csv"
	}
	if cfg.Stooq.BaseURL == "" {
		cfg.Stooq.BaseURL = "https://stooq.com"
	}
	if cfg.Databento.BaseURL == "" {
		cfg.Databento.BaseURL = "https://hist.databento.com"
	}
	if cfg.Databento.Dataset == "" {
		cfg.Databento.Dataset = "OPRA.PILLAR"
	}
}

// ValidateOptions checks the fields required for options fetching. Called by
// commands that talk to Databento; the rest of the pipeline needs no key.
func (c *Config) ValidateOptions() error {
	if c.Databento.APIKey == "" {
		return fmt.Errorf("databento.api_key is required")
	}
	return nil
}

// parseWindows parses a comma-separated window list like "10,20,60".
func parseWindows(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	windows := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		w, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid window %q: %w", p, err)
		}
		if w <= 0 {
			return nil, fmt.Errorf("window must be positive, got %d", w)
		}
		windows = append(windows, w)
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("no windows in %q", s)
	}
	return windows, nil
}

// loadEnvFile tries to load a .env file from common locations.
func loadEnvFile() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
		filepath.Join("..", "..", ".env"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
