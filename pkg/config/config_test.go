package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err, "a missing config file is not an error")

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "data/raw", cfg.RawSignalsDir)
	assert.Equal(t, "data/raw/all_signals_log.csv", cfg.SignalLogCSV)
	assert.Equal(t, "data/processed", cfg.Data.ProcessedDir)
	assert.Equal(t, "03:53", cfg.Signals.SnapshotTime)
	assert.False(t, cfg.Signals.AllowDuplicateRuns)
	assert.Equal(t, []int{10, 20, 60}, cfg.RealizedVolWindows)
	assert.Equal(t, []int{10, 30, 60}, cfg.MomentumWindows)
	assert.Equal(t, "https://stooq.com", cfg.Stooq.BaseURL)
	assert.Equal(t, "https://hist.databento.com", cfg.Databento.BaseURL)
	assert.Equal(t, "OPRA.PILLAR", cfg.Databento.Dataset)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	raw := `
env: production
log_level: debug
signal_log_csv: /var/data/signals.csv
signals:
  snapshot_time: "16:10"
  allow_duplicate_runs: true
realized_vol_windows: [5, 15]
databento:
  api_key: db-test-key
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/data/signals.csv", cfg.SignalLogCSV)
	assert.Equal(t, "16:10", cfg.Signals.SnapshotTime)
	assert.True(t, cfg.Signals.AllowDuplicateRuns)
	assert.Equal(t, []int{5, 15}, cfg.RealizedVolWindows)
	assert.Equal(t, "db-test-key", cfg.Databento.APIKey)

	// Unset keys still get defaults.
	assert.Equal(t, []int{10, 30, 60}, cfg.MomentumWindows)
	assert.Equal(t, "https://stooq.com", cfg.Stooq.BaseURL)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("env: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o644))

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SNAPSHOT_TIME", "09:30")
	t.Setenv("ALLOW_DUPLICATE_RUNS", "true")
	t.Setenv("REALIZED_VOL_WINDOWS", "7, 21")
	t.Setenv("DATABENTO_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "environment wins over the file")
	assert.Equal(t, "09:30", cfg.Signals.SnapshotTime)
	assert.True(t, cfg.Signals.AllowDuplicateRuns)
	assert.Equal(t, []int{7, 21}, cfg.RealizedVolWindows)
	assert.Equal(t, "env-key", cfg.Databento.APIKey)
}

func TestLoad_BadWindowEnvKeepsDefault(t *testing.T) {
	t.Setenv("REALIZED_VOL_WINDOWS", "ten,twenty")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 60}, cfg.RealizedVolWindows)
}

func TestParseWindows(t *testing.T) {
	ws, err := parseWindows("10,20,60")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 60}, ws)

	ws, err = parseWindows(" 5 , 15 ,")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 15}, ws)

	for _, in := range []string{"", ",", "0", "-3", "abc", "10,x"} {
		_, err := parseWindows(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestValidateOptions(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.ValidateOptions())

	cfg.Databento.APIKey = "db-test-key"
	assert.NoError(t, cfg.ValidateOptions())
}
