package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/balance-table/internal/balance"
	"github.com/eugenenazirov/balance-table/internal/inventory"
	"github.com/eugenenazirov/balance-table/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultCacheTTL       = 15 * time.Minute
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	MinTarget        int
	MaxTarget        int
	MaxCombinations  uint64
	Workers          int
	RetainUndershoot bool
	Interpolate      bool
	LogLevel         string

	Port                 string
	InitialInventory     []balance.Denomination
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	SolveTimeout         time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	CacheTTL             time.Duration
	RedisAddr            string
}

// Bounds returns the solver range described by the configuration.
func (c Config) Bounds() balance.Bounds {
	return balance.Bounds{
		Low:              c.MinTarget,
		High:             c.MaxTarget,
		RetainUndershoot: c.RetainUndershoot,
	}
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	MinTarget            *int          `yaml:"min_target"`
	MaxTarget            *int          `yaml:"max_target"`
	MaxCombinations      *uint64       `yaml:"max_combinations"`
	Workers              *int          `yaml:"workers"`
	RetainUndershoot     *bool         `yaml:"retain_undershoot"`
	Interpolate          *bool         `yaml:"interpolate"`
	LogLevel             string        `yaml:"log_level"`
	Port                 string        `yaml:"port"`
	Inventory            []yamlWeight  `yaml:"inventory"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	SolveTimeout         string        `yaml:"solve_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Cache                yamlCache     `yaml:"cache"`
}

// yamlWeight is one inventory entry in YAML.
type yamlWeight struct {
	Value int `yaml:"value"`
	Count int `yaml:"count"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// yamlCache represents the cache section in YAML.
type yamlCache struct {
	TTL       string `yaml:"ttl"`
	RedisAddr string `yaml:"redis_addr"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile       string
	MinTarget        *int
	MaxTarget        *int
	MaxCombinations  *uint64
	Workers          *int
	RetainUndershoot *bool
	Interpolate      *bool
	LogLevel         *string
	Port             *string
	InventoryStr     *string
	RateLimitRPS     *float64
	RateLimitBurst   *int
	RedisAddr        *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables (lowest precedence after defaults)
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		MinTarget:            balance.DefaultMinTarget,
		MaxTarget:            balance.DefaultMaxTarget,
		MaxCombinations:      balance.DefaultMaxCombinations,
		Workers:              1,
		Interpolate:          true,
		LogLevel:             "info",
		Port:                 defaultPort,
		InitialInventory:     storage.DefaultInventory(),
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         60 * time.Second,
		IdleTimeout:          60 * time.Second,
		SolveTimeout:         30 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		CacheTTL:             defaultCacheTTL,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.MinTarget != nil {
		cfg.MinTarget = *yamlCfg.MinTarget
	}
	if yamlCfg.MaxTarget != nil {
		cfg.MaxTarget = *yamlCfg.MaxTarget
	}
	if yamlCfg.MaxCombinations != nil {
		cfg.MaxCombinations = *yamlCfg.MaxCombinations
	}
	if yamlCfg.Workers != nil {
		cfg.Workers = *yamlCfg.Workers
	}
	if yamlCfg.RetainUndershoot != nil {
		cfg.RetainUndershoot = *yamlCfg.RetainUndershoot
	}
	if yamlCfg.Interpolate != nil {
		cfg.Interpolate = *yamlCfg.Interpolate
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if len(yamlCfg.Inventory) > 0 {
		inv := make([]balance.Denomination, len(yamlCfg.Inventory))
		for i, w := range yamlCfg.Inventory {
			inv[i] = balance.Denomination{Value: w.Value, Count: w.Count}
		}
		cfg.InitialInventory = inv
	}

	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout},
		{yamlCfg.SolveTimeout, &cfg.SolveTimeout},
		{yamlCfg.Cache.TTL, &cfg.CacheTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", d.raw, err)
		}
		*d.dst = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil && *yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil && *yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.Cache.RedisAddr != "" {
		cfg.RedisAddr = yamlCfg.Cache.RedisAddr
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"MIN_TARGET", &cfg.MinTarget},
		{"MAX_TARGET", &cfg.MaxTarget},
		{"WORKERS", &cfg.Workers},
	}
	for _, v := range ints {
		raw := strings.TrimSpace(os.Getenv(v.name))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", v.name, raw)
		}
		*v.dst = value
	}

	if raw := strings.TrimSpace(os.Getenv("MAX_COMBINATIONS")); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_COMBINATIONS: invalid integer %q", raw)
		}
		cfg.MaxCombinations = value
	}

	if raw := strings.TrimSpace(os.Getenv("RETAIN_UNDERSHOOT")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("RETAIN_UNDERSHOOT: invalid boolean %q", raw)
		}
		cfg.RetainUndershoot = value
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if raw := strings.TrimSpace(os.Getenv("INVENTORY")); raw != "" {
		inv, err := inventory.ParseList(raw)
		if err == nil {
			cfg.InitialInventory = inv
		}
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		cfg.RedisAddr = addr
	}

	if raw := strings.TrimSpace(os.Getenv("SOLVE_TIMEOUT")); raw != "" {
		value, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("SOLVE_TIMEOUT: invalid duration %q", raw)
		}
		cfg.SolveTimeout = value
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.MinTarget != nil {
		cfg.MinTarget = *overrides.MinTarget
	}
	if overrides.MaxTarget != nil {
		cfg.MaxTarget = *overrides.MaxTarget
	}
	if overrides.MaxCombinations != nil {
		cfg.MaxCombinations = *overrides.MaxCombinations
	}
	if overrides.Workers != nil {
		cfg.Workers = *overrides.Workers
	}
	if overrides.RetainUndershoot != nil {
		cfg.RetainUndershoot = *overrides.RetainUndershoot
	}
	if overrides.Interpolate != nil {
		cfg.Interpolate = *overrides.Interpolate
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.InventoryStr != nil && *overrides.InventoryStr != "" {
		inv, err := inventory.ParseList(*overrides.InventoryStr)
		if err != nil {
			return fmt.Errorf("parse inventory: %w", err)
		}
		cfg.InitialInventory = inv
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.RedisAddr != nil && *overrides.RedisAddr != "" {
		cfg.RedisAddr = *overrides.RedisAddr
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if err := cfg.Bounds().Validate(); err != nil {
		return err
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", cfg.Workers)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.SolveTimeout < 0 {
		return fmt.Errorf("solve timeout must be >= 0, got %s", cfg.SolveTimeout)
	}
	if err := balance.Validate(cfg.InitialInventory); err != nil {
		return fmt.Errorf("initial inventory: %w", err)
	}
	return nil
}
