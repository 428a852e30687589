// Package constants provides shared constants for the mortgage-compare application.
package constants

import "time"

// DateTimeLayout is the format used for schedule start dates in config files
// and for the dates printed next to schedule rows.
const DateTimeLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// CurrencyPlaces is the number of decimal places printed for currency
	CurrencyPlaces = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Rate conventions accepted in configuration files.
const (
	// RateConventionEffective treats a configured percentage as an effective
	// annual rate compounded monthly, i.e. (1 + p/100)^(1/12) per month.
	RateConventionEffective = "effective"

	// RateConventionNominal treats a configured percentage as a nominal annual
	// rate split evenly across months, i.e. 1 + p/1200 per month.
	RateConventionNominal = "nominal"
)

// Effective rate solver defaults
const (
	// SolverMethodBalance matches the balance left at the horizon, net of
	// upfront costs, under the offer's own payments.
	SolverMethodBalance = "balance"

	// SolverMethodLevel matches the total cost of a level-payment mortgage
	// over the horizon.
	SolverMethodLevel = "level"

	// SolverMethodCashFlow matches the borrower's cash flows (internal rate of return).
	SolverMethodCashFlow = "cashflow"

	// DefaultSolverLowerBound is the lowest monthly growth factor searched (zero interest).
	DefaultSolverLowerBound = 1.0

	// DefaultSolverUpperBound is the highest monthly growth factor searched.
	DefaultSolverUpperBound = 2.0

	// DefaultSolverTolerance is the absolute residual, in currency, at which
	// the solver stops.
	DefaultSolverTolerance = 1e-6

	// DefaultSolverMaxIterations bounds the number of bisection steps.
	DefaultSolverMaxIterations = 200
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "MORTGAGE_COMPARE"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultServiceName is the service name reported to tracing backends
	DefaultServiceName = "mortgage-compare"

	// DefaultReadHeaderTimeout bounds how long a client may take to send headers
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown of in-flight requests
	DefaultShutdownTimeout = 10 * time.Second
)

// Validation constants
const (
	// MaxLoanToValuePercent is the loan-to-value above which a warning is raised
	MaxLoanToValuePercent = 100.0
)
