// Package constants provides shared constants for the backlog-forecast application.
package constants

// DateTimeLayout is the monthly period key format and the format used for
// month tokens in config files and output.
const DateTimeLayout = "2006-01"

// YearLayout is the yearly period key format.
const YearLayout = "2006"

// Horizon constants
const (
	// MonthsPerQuarter is the width of a rolling quarter
	MonthsPerQuarter = 3

	// NearHorizonMonths is the number of months reported individually before
	// contributions roll into yearly buckets
	NearHorizonMonths = 12

	// MaxPeriods is the longest projection horizon in months
	MaxPeriods = 36

	// MinPeriods is the shortest projection horizon in months
	MinPeriods = 1

	// DefaultQuarterCount covers the whole projection horizon
	DefaultQuarterCount = MaxPeriods / MonthsPerQuarter

	// FallbackDurationMonths applies when no duration rule matches a value
	FallbackDurationMonths = 24
)

// Measure constants
const (
	// MeasureRevenue distributes remaining revenue backlog
	MeasureRevenue = "revenue"

	// MeasureHours distributes remaining labor hours per trade
	MeasureHours = "hours"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatXLSX writes an Excel workbook
	OutputFormatXLSX = "xlsx"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix namespaces environment overrides
	EnvPrefix = "BACKLOG_FORECAST"

	// DefaultOverrideDBName is the override database file under the XDG data home
	DefaultOverrideDBName = "backlog-forecast/overrides.db"

	// DefaultXLSXFile is the workbook name used when no output file is configured
	DefaultXLSXFile = "backlog-forecast.xlsx"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for contract files (4 MB)
	DefaultMaxUploadSizeBytes int64 = 4 * 1024 * 1024
)

// Validation constants
const (
	// ConservationTolerance is the allowed drift between a distributed series
	// and its source quantity
	ConservationTolerance = 1e-6

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)
