package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neff.yaml")
	require.NoError(t, os.WriteFile(path, []byte("qubit_counts: [3, 4]\nshots: 512\nnoise:\n  gate_error: 0.05\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, cfg.QubitCounts)
	assert.Equal(t, 512, cfg.Shots)
	assert.Equal(t, 0.05, cfg.Noise.GateError)
	assert.Equal(t, DefaultConfig().Noise.ReadoutError, cfg.Noise.ReadoutError)
	assert.Equal(t, DefaultConfig().Repetitions, cfg.Repetitions)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("NEFF_SHOTS", "4096")
	t.Setenv("NEFF_SEED", "99")
	t.Setenv("NEFF_LOG_LEVEL", "debug")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.Shots)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigIgnoresMalformedEnvironment(t *testing.T) {
	t.Setenv("NEFF_SHOTS", "lots")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Shots, cfg.Shots)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ExperimentConfig)
	}{
		{"no qubit counts", func(c *ExperimentConfig) { c.QubitCounts = nil }},
		{"qubit count too small", func(c *ExperimentConfig) { c.QubitCounts = []int{1, 2} }},
		{"single repetition", func(c *ExperimentConfig) { c.Repetitions = 1 }},
		{"no shots", func(c *ExperimentConfig) { c.Shots = 0 }},
		{"negative gate error", func(c *ExperimentConfig) { c.Noise.GateError = -0.1 }},
		{"readout error above one", func(c *ExperimentConfig) { c.Noise.ReadoutError = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
