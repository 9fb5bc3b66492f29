// Package constants provides shared constants for the dubai-invest application.
package constants

import "time"

// Simulation constants
const (
	// DefaultHoldingYears is used when the holding period is missing or not a
	// positive integer.
	DefaultHoldingYears = 5

	// MaxHoldingYears is the longest holding period a simulation accepts.
	MaxHoldingYears = 100

	// IRRInitialGuess is the starting rate for the Newton-Raphson IRR solver.
	IRRInitialGuess = 0.10

	// IRRMaxIterations caps the Newton-Raphson IRR solver.
	IRRMaxIterations = 100

	// IRRTolerance is the absolute NPV below which the IRR solver stops.
	IRRTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// PercentPrecision is the precision for percentage rounding (1 decimal place)
	PercentPrecision = 10

	// MetricPrecision is the precision for derived market metrics (2 decimal places)
	MetricPrecision = 100
)

// Scoring constants
const (
	// MaxSubScore is the ceiling of every 0-10 sub-score.
	MaxSubScore = 10.0

	// YieldReferencePercent is the gross yield that earns a full yield score.
	YieldReferencePercent = 8.0

	// GrowthReferencePercent is the yearly price change that earns a full
	// capital growth score.
	GrowthReferencePercent = 15.0

	// Supply risk sub-scores, higher is safer.
	SupplyRiskScoreHigh     = 3.0
	SupplyRiskScoreModerate = 6.0
	SupplyRiskScoreLow      = 9.0

	// Composite weights.
	YieldWeight      = 0.35
	GrowthWeight     = 0.35
	SupplyRiskWeight = 0.30

	// Recommendation band lower bounds.
	BuyThreshold       = 7.0
	SelectiveThreshold = 5.5
	CautionThreshold   = 4.5

	// BuyToLetYieldPercent splits "Buy recommended" districts between yield
	// and growth investor profiles.
	BuyToLetYieldPercent = 7.0
)

// Market data sanity bounds
const (
	MinGrossYieldPercent  = 0.0
	MaxGrossYieldPercent  = 30.0
	MinPriceChangePercent = -50.0
	MaxPriceChangePercent = 100.0

	// ROIProjectionYears is the horizon of the derived market ROI projection.
	ROIProjectionYears = 5

	// DefaultQuarter is stored for imported statistics without a quarter.
	DefaultQuarter = "Q4"

	// DefaultScoringYear is the year opportunities are scored and listed for
	// when no year is configured or requested.
	DefaultScoringYear = 2025
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the indented JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// EnvPrefix prefixes environment variable overrides, e.g. DUBAI_STORAGE_PATH.
	EnvPrefix = "DUBAI"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum JSON request body (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024

	// DefaultRateLimitPerMinute is the default per-client request budget
	DefaultRateLimitPerMinute = 120

	// DefaultStoragePath is the default SQLite database file
	DefaultStoragePath = "dubai-invest.db"

	// DefaultCacheTTLSeconds is the default lifetime of cached simulations
	DefaultCacheTTLSeconds = 3600

	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP server
	DefaultShutdownTimeout = 10 * time.Second
)

// CurrencyCode prefixes formatted currency amounts.
const CurrencyCode = "AED"
