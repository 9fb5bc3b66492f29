// Package config defines the application configuration and loads it from a
// YAML file, a .env file and DUBAI_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dubai-invest/dubai-invest/internal/simulator"
	"github.com/dubai-invest/dubai-invest/pkg/constants"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for dubai-invest.
type Configuration struct {
	Logging    LoggingConfig       `mapstructure:"logging" yaml:"logging,omitempty"`
	Output     OutputConfig        `mapstructure:"output" yaml:"output,omitempty"`
	Storage    StorageConfig       `mapstructure:"storage" yaml:"storage,omitempty"`
	Cache      CacheConfig         `mapstructure:"cache" yaml:"cache,omitempty"`
	Server     ServerConfig        `mapstructure:"server" yaml:"server,omitempty"`
	Scoring    ScoringConfig       `mapstructure:"scoring" yaml:"scoring,omitempty"`
	Simulation simulator.RawInputs `mapstructure:"simulation" yaml:"simulation,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" yaml:"format,omitempty" validate:"omitempty,oneof=json console"`
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty" validate:"oneof=pretty csv json"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty" validate:"required"`
}

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// CacheConfig selects where simulation results are cached.
type CacheConfig struct {
	Backend       string `mapstructure:"backend" yaml:"backend,omitempty" validate:"oneof=memory redis none"`
	RedisAddr     string `mapstructure:"redisAddr" yaml:"redisAddr,omitempty" validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redisPassword" yaml:"redisPassword,omitempty"`
	RedisDB       int    `mapstructure:"redisDB" yaml:"redisDB,omitempty" validate:"gte=0"`
	TTLSeconds    int    `mapstructure:"ttlSeconds" yaml:"ttlSeconds,omitempty" validate:"gte=0"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Address                string `mapstructure:"address" yaml:"address,omitempty" validate:"required"`
	MaxBodySize            string `mapstructure:"maxBodySize" yaml:"maxBodySize,omitempty"`
	RateLimitPerMinute     int    `mapstructure:"rateLimitPerMinute" yaml:"rateLimitPerMinute,omitempty" validate:"gte=0"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdownTimeoutSeconds" yaml:"shutdownTimeoutSeconds,omitempty" validate:"gte=0"`
}

// ScoringConfig holds opportunity scoring settings.
type ScoringConfig struct {
	Year int `mapstructure:"year" yaml:"year,omitempty" validate:"gte=2000,lte=2100"`
}

// setDefaults registers every key so environment variables can override
// values that are absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("storage.path", constants.DefaultStoragePath)
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.redisAddr", "")
	v.SetDefault("cache.redisPassword", "")
	v.SetDefault("cache.redisDB", 0)
	v.SetDefault("cache.ttlSeconds", constants.DefaultCacheTTLSeconds)
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", "64K")
	v.SetDefault("server.rateLimitPerMinute", constants.DefaultRateLimitPerMinute)
	v.SetDefault("server.shutdownTimeoutSeconds", 10)
	v.SetDefault("scoring.year", constants.DefaultScoringYear)
	v.SetDefault("simulation.purchasePrice", "1500000")
	v.SetDefault("simulation.downPayment", "375000")
	v.SetDefault("simulation.annualRent", "90000")
	v.SetDefault("simulation.annualCharges", "15000")
	v.SetDefault("simulation.vacancyRatePercent", "5")
	v.SetDefault("simulation.resaleValue", "1800000")
	v.SetDefault("simulation.holdingYears", "5")
}

// LoadConfiguration loads configuration with this priority:
// 1. Environment variables, including a .env file in the working directory
// 2. The YAML file at configPath
// 3. Defaults
//
// An empty configPath looks for config.yaml in the working directory and
// falls back to defaults when there is none. An explicit path must exist.
func LoadConfiguration(configPath string) (*Configuration, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	} else if _, err := os.Stat(constants.DefaultConfigFile); err == nil {
		v.SetConfigFile(constants.DefaultConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", constants.DefaultConfigFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error checking config file %s: %w", constants.DefaultConfigFile, err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := ValidateConfiguration(&configuration); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &configuration, nil
}
