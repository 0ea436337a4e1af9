package main

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ExperimentConfig describes one calibration run.
type ExperimentConfig struct {
	QubitCounts []int      `yaml:"qubit_counts"`
	Repetitions int        `yaml:"repetitions"`
	Shots       int        `yaml:"shots"`
	Seed        uint64     `yaml:"seed"`
	Noise       NoiseModel `yaml:"noise"`
	LogLevel    string     `yaml:"log_level"`
	PrettyLogs  bool       `yaml:"pretty_logs"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() ExperimentConfig {
	return ExperimentConfig{
		QubitCounts: []int{2, 3, 4, 5, 6, 7, 8},
		Repetitions: 10,
		Shots:       100,
		Seed:        1,
		Noise: NoiseModel{
			GateError:    0.002,
			ReadoutError: 0.01,
		},
		LogLevel:   "info",
		PrettyLogs: true,
	}
}

// LoadConfig reads .env (if present), then the YAML file at path (if non-empty) over
// the defaults, then NEFF_* environment overrides.
func LoadConfig(path string) (ExperimentConfig, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.LogLevel = getEnv("NEFF_LOG_LEVEL", cfg.LogLevel)
	cfg.Shots = getEnvAsInt("NEFF_SHOTS", cfg.Shots)
	cfg.Seed = uint64(getEnvAsInt("NEFF_SEED", int(cfg.Seed)))

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first unusable field.
func (c ExperimentConfig) Validate() error {
	if len(c.QubitCounts) == 0 {
		return fmt.Errorf("qubit_counts must not be empty")
	}
	if m := slices.Min(c.QubitCounts); m < MinQubitCount {
		return fmt.Errorf("qubit_counts: smallest value %d is below %d", m, MinQubitCount)
	}
	if c.Repetitions < 2 {
		return fmt.Errorf("repetitions must be at least 2, got %d", c.Repetitions)
	}
	if c.Shots < 1 {
		return fmt.Errorf("shots must be positive, got %d", c.Shots)
	}
	if c.Noise.GateError < 0 || c.Noise.GateError > 1 {
		return fmt.Errorf("noise.gate_error must be in [0, 1], got %g", c.Noise.GateError)
	}
	if c.Noise.ReadoutError < 0 || c.Noise.ReadoutError > 1 {
		return fmt.Errorf("noise.readout_error must be in [0, 1], got %g", c.Noise.ReadoutError)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
