// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/iwvelando/backlog-forecast/internal/contract"
	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"github.com/iwvelando/backlog-forecast/pkg/duration"
	"github.com/iwvelando/backlog-forecast/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for backlog-forecast.
type Configuration struct {
	Logging       LoggingConfig   `yaml:"logging,omitempty"`
	Output        OutputConfig    `yaml:"output,omitempty"`
	Forecast      ForecastConfig  `yaml:"forecast,omitempty"`
	DurationRules []duration.Rule `yaml:"durationRules,omitempty" mapstructure:"durationRules"`
	Contracts     ContractsConfig `yaml:"contracts,omitempty"`
	Overrides     OverridesConfig `yaml:"overrides,omitempty"`
	Filters       contract.Filter `yaml:"filters,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, xlsx
	File   string `yaml:"file,omitempty"`   // xlsx destination
}

// ForecastConfig holds projection settings.
type ForecastConfig struct {
	Measure           string   `yaml:"measure,omitempty"` // revenue, hours
	NearHorizonMonths int      `yaml:"nearHorizonMonths,omitempty" mapstructure:"nearHorizonMonths"`
	QuarterCount      int      `yaml:"quarterCount,omitempty" mapstructure:"quarterCount"`
	InactiveStatuses  []string `yaml:"inactiveStatuses,omitempty" mapstructure:"inactiveStatuses"`
}

// ContractsConfig points at the contract data source.
type ContractsConfig struct {
	File string `yaml:"file,omitempty"`
}

// OverridesConfig selects the override store.
type OverridesConfig struct {
	Path   string `yaml:"path,omitempty"`   // sqlite file; empty uses the XDG data home
	Memory bool   `yaml:"memory,omitempty"` // keep overrides in memory only
}

// DefaultInactiveStatuses are the contract statuses left out of projections.
func DefaultInactiveStatuses() []string {
	return []string{"closed", "cancelled", "complete"}
}

// LoadDotEnv loads environment variables from .env files when present. A
// missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("forecast.measure", constants.MeasureRevenue)
	v.SetDefault("forecast.nearHorizonMonths", constants.NearHorizonMonths)
	v.SetDefault("forecast.quarterCount", constants.DefaultQuarterCount)
	v.SetDefault("output.format", constants.OutputFormatPretty)
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.ApplyDefaults()
	return &configuration, nil
}

// ApplyDefaults fills every unset option with its default.
func (c *Configuration) ApplyDefaults() {
	if len(c.DurationRules) == 0 {
		c.DurationRules = duration.DefaultRules()
	}
	if c.Forecast.Measure == "" {
		c.Forecast.Measure = constants.MeasureRevenue
	}
	c.Forecast.Measure = strings.ToLower(strings.TrimSpace(c.Forecast.Measure))
	if c.Forecast.NearHorizonMonths <= 0 || c.Forecast.NearHorizonMonths > constants.MaxPeriods {
		c.Forecast.NearHorizonMonths = constants.NearHorizonMonths
	}
	if c.Forecast.QuarterCount <= 0 || c.Forecast.QuarterCount > constants.DefaultQuarterCount {
		c.Forecast.QuarterCount = constants.DefaultQuarterCount
	}
	if c.Forecast.InactiveStatuses == nil {
		c.Forecast.InactiveStatuses = DefaultInactiveStatuses()
	}
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
}

// Default returns a configuration with every option at its default.
func Default() Configuration {
	var c Configuration
	c.ApplyDefaults()
	return c
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings. Nothing here stops a forecast from running.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string
	warnings = append(warnings, validation.ValidateDurationRules(c.DurationRules)...)
	if err := validation.ValidateMeasure(c.Forecast.Measure); err != nil {
		warnings = append(warnings, err.Error()+"; using revenue")
	}
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		warnings = append(warnings, err.Error())
	}
	return warnings
}
