package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // timezones resolve on hosts without zoneinfo

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/church-music-scheduler/pkg/core/recurrence"
)

const (
	// DefaultHorizonMonths is how far ahead recurring series are materialized
	DefaultHorizonMonths = 12

	// DefaultTransactionTimeout bounds a series write. A year of weekly events
	// with their slots is several hundred rows.
	DefaultTransactionTimeout = 60 * time.Second

	// DefaultListenAddr is where the HTTP server listens when none is configured
	DefaultListenAddr = ":8080"

	configFileName = "music_scheduler_config.yaml"
)

// envPaths are the .env files checked for DATABASE_URL, nearest first
var envPaths = []string{".env", "../.env", "../../.env"}

// Config represents the application configuration
type Config struct {
	DatabaseURL        string        `yaml:"databaseURL" validate:"required"`
	Timezone           string        `yaml:"timezone" validate:"required"`
	HorizonMonths      int           `yaml:"horizonMonths,omitempty" validate:"omitempty,min=1,max=24"`
	TransactionTimeout time.Duration `yaml:"transactionTimeout,omitempty" validate:"omitempty,min=1s"`
	ListenAddr         string        `yaml:"listenAddr,omitempty"`

	// RoleSkills maps a role name to the instruments that qualify for it.
	// Entries are merged over the built-in table.
	RoleSkills map[string][]string `yaml:"roleSkills,omitempty" validate:"dive,keys,required,endkeys,min=1,dive,required"`

	// BlackoutRRules mark dates on which no recurring occurrence is created
	BlackoutRRules []string `yaml:"blackoutRRules,omitempty" validate:"dive,required"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from music_scheduler_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	configPath, err := findConfigFile(configFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadWithEnv prefers music_scheduler_config.<env>.yaml and falls back to the
// default file name when no environment-specific file exists
func LoadWithEnv(env string) (*Config, error) {
	if env == "" {
		return Load()
	}

	configPath, err := findConfigFile(fmt.Sprintf("music_scheduler_config.%s.yaml", env))
	if err != nil {
		return Load()
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	loadDotEnv()
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the timezone and rrule syntax
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	// Validate rrule syntax for each blackout rule
	for i, rule := range cfg.BlackoutRRules {
		if _, err := recurrence.ParseBlackoutRule(rule); err != nil {
			return fmt.Errorf("invalid rrule in blackoutRRules[%d]: %w", i, err)
		}
	}

	return nil
}

// Location returns the church's timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Horizon returns the number of months ahead to materialize
func (c *Config) Horizon() int {
	if c.HorizonMonths <= 0 {
		return DefaultHorizonMonths
	}
	return c.HorizonMonths
}

// TxTimeout returns the timeout applied to each write transaction
func (c *Config) TxTimeout() time.Duration {
	if c.TransactionTimeout <= 0 {
		return DefaultTransactionTimeout
	}
	return c.TransactionTimeout
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	if c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return c.ListenAddr
}

// loadDotEnv loads the first .env file found. Variables already set win.
func loadDotEnv() {
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

// findConfigFile searches for name in current directory and home directory
func findConfigFile(name string) (string, error) {
	// Check current directory
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", errors.New("config file not found in current directory or home directory")
}
