package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// #region config
// Config holds the shared settings for the policy CLIs: where the
// policy DB lives and which baseline and growth factor files define
// current law.
type Config struct {
	DBPath          string  `yaml:"db_path"`
	RegistryPath    string  `yaml:"registry"`
	GrowthPath      string  `yaml:"growth_factors"`
	ExtendIndexed   bool    `yaml:"extend_indexed"`
	EnforceBounds   bool    `yaml:"enforce_bounds"`
	MaxAnnualGrowth float64 `yaml:"max_annual_growth"`
}

// Default returns the settings used when no config file is given.
func Default() Config {
	return Config{
		DBPath:          "policy_reforms.db",
		ExtendIndexed:   true,
		EnforceBounds:   true,
		MaxAnnualGrowth: 0.5,
	}
}

// #endregion config

// #region load

// Load reads a YAML config file and layers env overrides on top.
// An empty path skips the file and applies env overrides to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	return fromEnv(cfg), nil
}

// fromEnv applies POLICY_* env var overrides.
func fromEnv(cfg Config) Config {
	cfg.DBPath = envOr("POLICY_DB", cfg.DBPath)
	cfg.RegistryPath = envOr("POLICY_REGISTRY", cfg.RegistryPath)
	cfg.GrowthPath = envOr("POLICY_GROWTH", cfg.GrowthPath)
	if v := os.Getenv("POLICY_ENFORCE_BOUNDS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EnforceBounds = b
		}
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// #endregion load
