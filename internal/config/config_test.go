package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"github.com/iwvelando/backlog-forecast/pkg/duration"
)

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Example config",
			configPath: "../../config.yaml.example",
			wantError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationExample(t *testing.T) {
	config, err := LoadConfiguration("../../config.yaml.example")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if !reflect.DeepEqual(config.DurationRules, duration.DefaultRules()) {
		t.Errorf("DurationRules = %+v, expected the default rules", config.DurationRules)
	}
	if config.Forecast.Measure != constants.MeasureRevenue {
		t.Errorf("Forecast.Measure = %q, expected %q", config.Forecast.Measure, constants.MeasureRevenue)
	}
	if config.Contracts.File != "contracts.yaml" {
		t.Errorf("Contracts.File = %q, expected contracts.yaml", config.Contracts.File)
	}
	if config.Output.File != "backlog-forecast.xlsx" {
		t.Errorf("Output.File = %q, expected backlog-forecast.xlsx", config.Output.File)
	}
	if warnings := config.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("ValidateConfiguration() = %v, expected no warnings", warnings)
	}
}

func TestLoadConfigurationFromReaderDefaults(t *testing.T) {
	config, err := LoadConfigurationFromReader(strings.NewReader("logging:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}

	if config.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, expected debug", config.Logging.Level)
	}
	if config.Forecast.NearHorizonMonths != constants.NearHorizonMonths {
		t.Errorf("NearHorizonMonths = %d, expected %d", config.Forecast.NearHorizonMonths, constants.NearHorizonMonths)
	}
	if config.Forecast.QuarterCount != constants.DefaultQuarterCount {
		t.Errorf("QuarterCount = %d, expected %d", config.Forecast.QuarterCount, constants.DefaultQuarterCount)
	}
	if !reflect.DeepEqual(config.Forecast.InactiveStatuses, DefaultInactiveStatuses()) {
		t.Errorf("InactiveStatuses = %v, expected %v", config.Forecast.InactiveStatuses, DefaultInactiveStatuses())
	}
	if len(config.DurationRules) != len(duration.DefaultRules()) {
		t.Errorf("DurationRules has %d rules, expected the %d defaults", len(config.DurationRules), len(duration.DefaultRules()))
	}
	if config.Output.Format != constants.OutputFormatPretty {
		t.Errorf("Output.Format = %q, expected %q", config.Output.Format, constants.OutputFormatPretty)
	}
}

func TestLoadConfigurationCustomValues(t *testing.T) {
	yaml := `
forecast:
  measure: Hours
  nearHorizonMonths: 6
  quarterCount: 4
  inactiveStatuses: [archived]
durationRules:
  - minValue: 0
    maxValue: 1000
    months: 2
    label: tiny
  - minValue: 1000
    maxValue: 0
    months: 9
    label: rest
overrides:
  memory: true
filters:
  departments: [Electrical]
  search: school
`
	config, err := LoadConfigurationFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}

	if config.Forecast.Measure != constants.MeasureHours {
		t.Errorf("Forecast.Measure = %q, expected hours", config.Forecast.Measure)
	}
	if config.Forecast.NearHorizonMonths != 6 {
		t.Errorf("NearHorizonMonths = %d, expected 6", config.Forecast.NearHorizonMonths)
	}
	if config.Forecast.QuarterCount != 4 {
		t.Errorf("QuarterCount = %d, expected 4", config.Forecast.QuarterCount)
	}
	if !reflect.DeepEqual(config.Forecast.InactiveStatuses, []string{"archived"}) {
		t.Errorf("InactiveStatuses = %v, expected [archived]", config.Forecast.InactiveStatuses)
	}
	expectedRules := []duration.Rule{
		{MinValue: 0, MaxValue: 1000, Months: 2, Label: "tiny"},
		{MinValue: 1000, MaxValue: 0, Months: 9, Label: "rest"},
	}
	if !reflect.DeepEqual(config.DurationRules, expectedRules) {
		t.Errorf("DurationRules = %+v, expected %+v", config.DurationRules, expectedRules)
	}
	if !config.Overrides.Memory {
		t.Errorf("Overrides.Memory = false, expected true")
	}
	if len(config.Filters.Departments) != 1 || config.Filters.Departments[0] != "Electrical" {
		t.Errorf("Filters.Departments = %v, expected [Electrical]", config.Filters.Departments)
	}
	if config.Filters.Search != "school" {
		t.Errorf("Filters.Search = %q, expected school", config.Filters.Search)
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("BACKLOG_FORECAST_FORECAST_MEASURE", "hours")

	config, err := LoadConfigurationFromReader(strings.NewReader("forecast:\n  measure: revenue\n"))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}
	if config.Forecast.Measure != constants.MeasureHours {
		t.Errorf("Forecast.Measure = %q, expected the environment value hours", config.Forecast.Measure)
	}
}

func TestApplyDefaultsClampsHorizon(t *testing.T) {
	c := Configuration{Forecast: ForecastConfig{NearHorizonMonths: 99, QuarterCount: -1}}
	c.ApplyDefaults()

	if c.Forecast.NearHorizonMonths != constants.NearHorizonMonths {
		t.Errorf("NearHorizonMonths = %d, expected %d", c.Forecast.NearHorizonMonths, constants.NearHorizonMonths)
	}
	if c.Forecast.QuarterCount != constants.DefaultQuarterCount {
		t.Errorf("QuarterCount = %d, expected %d", c.Forecast.QuarterCount, constants.DefaultQuarterCount)
	}
}

func TestConfigurationValidationWarnings(t *testing.T) {
	tests := []struct {
		name         string
		config       Configuration
		wantWarnings int
	}{
		{
			name:         "Defaults",
			config:       Default(),
			wantWarnings: 0,
		},
		{
			name: "Unknown measure and format",
			config: func() Configuration {
				c := Default()
				c.Forecast.Measure = "cost"
				c.Output.Format = "json"
				return c
			}(),
			wantWarnings: 2,
		},
		{
			name: "Gap in rules",
			config: func() Configuration {
				c := Default()
				c.DurationRules = []duration.Rule{
					{MinValue: 0, MaxValue: 10, Months: 1},
					{MinValue: 20, MaxValue: 0, Months: 2},
				}
				return c
			}(),
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := tt.config.ValidateConfiguration()
			if len(warnings) != tt.wantWarnings {
				t.Errorf("ValidateConfiguration() = %v, expected %d warnings", warnings, tt.wantWarnings)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BACKLOG_FORECAST_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("BACKLOG_FORECAST_TEST_DOTENV") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("BACKLOG_FORECAST_TEST_DOTENV"); got != "loaded" {
		t.Errorf("BACKLOG_FORECAST_TEST_DOTENV = %q, expected loaded", got)
	}
}
