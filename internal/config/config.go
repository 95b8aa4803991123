package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Rules    RulesConfig    `yaml:"rules"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	DBName      string `yaml:"dbname"`
	SSLMode     string `yaml:"sslmode"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// RedisConfig holds the follow-count cache connection. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CountTTL time.Duration `yaml:"count_ttl"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// RulesConfig holds the message and unlock policy constants
type RulesConfig struct {
	DailyLimit      int    `yaml:"daily_limit"`
	UnlockThreshold int    `yaml:"unlock_threshold"`
	HotRank         int    `yaml:"hot_rank"`
	TopLimit        int    `yaml:"top_limit"`
	MaxTopLimit     int    `yaml:"max_top_limit"`
	Timezone        string `yaml:"timezone"`
}

// Default rule values
const (
	DefaultDailyLimit      = 2
	DefaultUnlockThreshold = 2
	DefaultHotRank         = 10
	DefaultTopLimit        = 10
	DefaultMaxTopLimit     = 50
	DefaultCountTTL        = 60 * time.Second
)

// Load reads configuration from a YAML file, then applies GEODROP_* environment overrides.
// .env.local and .env are loaded into the environment first.
func Load(path string) (*Config, error) {
	if _, err := LoadDotEnv(); err != nil {
		return nil, err
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && os.Getenv("GEODROP_DB_HOST") != "":
		// environment-only deployment
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Location resolves the configured timezone
func (r *RulesConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid rules.timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// Validate checks values that would make the server misbehave
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Rules.DailyLimit < 1 {
		return fmt.Errorf("rules.daily_limit must be positive, got %d", c.Rules.DailyLimit)
	}
	if c.Rules.UnlockThreshold < 1 {
		return fmt.Errorf("rules.unlock_threshold must be positive, got %d", c.Rules.UnlockThreshold)
	}
	if c.Rules.TopLimit > c.Rules.MaxTopLimit {
		return fmt.Errorf("rules.top_limit (%d) exceeds rules.max_top_limit (%d)", c.Rules.TopLimit, c.Rules.MaxTopLimit)
	}
	if _, err := c.Rules.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.CountTTL <= 0 {
		c.Redis.CountTTL = DefaultCountTTL
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Rules.DailyLimit == 0 {
		c.Rules.DailyLimit = DefaultDailyLimit
	}
	if c.Rules.UnlockThreshold == 0 {
		c.Rules.UnlockThreshold = DefaultUnlockThreshold
	}
	if c.Rules.HotRank <= 0 {
		c.Rules.HotRank = DefaultHotRank
	}
	if c.Rules.TopLimit <= 0 {
		c.Rules.TopLimit = DefaultTopLimit
	}
	if c.Rules.MaxTopLimit <= 0 {
		c.Rules.MaxTopLimit = DefaultMaxTopLimit
	}
	if c.Rules.Timezone == "" {
		c.Rules.Timezone = "UTC"
	}
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"GEODROP_SERVER_HOST":    &c.Server.Host,
		"GEODROP_DB_HOST":        &c.Database.Host,
		"GEODROP_DB_USER":        &c.Database.User,
		"GEODROP_DB_PASSWORD":    &c.Database.Password,
		"GEODROP_DB_NAME":        &c.Database.DBName,
		"GEODROP_DB_SSLMODE":     &c.Database.SSLMode,
		"GEODROP_REDIS_ADDR":     &c.Redis.Addr,
		"GEODROP_REDIS_PASSWORD": &c.Redis.Password,
		"GEODROP_JWT_SECRET":     &c.JWT.Secret,
		"GEODROP_LOG_LEVEL":      &c.Log.Level,
		"GEODROP_LOG_FORMAT":     &c.Log.Format,
		"GEODROP_TIMEZONE":       &c.Rules.Timezone,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"GEODROP_SERVER_PORT":      &c.Server.Port,
		"GEODROP_DB_PORT":          &c.Database.Port,
		"GEODROP_REDIS_DB":         &c.Redis.DB,
		"GEODROP_DAILY_LIMIT":      &c.Rules.DailyLimit,
		"GEODROP_UNLOCK_THRESHOLD": &c.Rules.UnlockThreshold,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("GEODROP_DB_AUTO_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid GEODROP_DB_AUTO_MIGRATE: %w", err)
		}
		c.Database.AutoMigrate = b
	}
	return nil
}
