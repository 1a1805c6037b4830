package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/iwvelando/backlog-forecast/internal/config"
	"github.com/iwvelando/backlog-forecast/internal/contract"
	"github.com/iwvelando/backlog-forecast/internal/forecast"
	"github.com/iwvelando/backlog-forecast/internal/logging"
	"github.com/iwvelando/backlog-forecast/internal/output"
	"github.com/iwvelando/backlog-forecast/internal/override"
	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"github.com/iwvelando/backlog-forecast/pkg/validation"
	"go.uber.org/zap"
)

// loadConfiguration reads configPath. A missing file at the default location
// yields the default configuration.
func loadConfiguration(configPath string) (*config.Configuration, error) {
	conf, err := config.LoadConfiguration(configPath)
	if err == nil {
		return conf, nil
	}
	if configPath == constants.DefaultConfigFile {
		if _, statErr := os.Stat(configPath); errors.Is(statErr, fs.ErrNotExist) {
			defaults := config.Default()
			return &defaults, nil
		}
	}
	return nil, err
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	envFile := flag.String("env-file", ".env", "optional file of environment overrides")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, xlsx")
	outputFile := flag.String("output-file", "", "xlsx destination override")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	contractsFile := flag.String("contracts", "", "contracts file override (JSON or YAML)")
	measure := flag.String("measure", "", "measure override: revenue, hours")
	asOfFlag := flag.String("as-of", "", "forecast start month (YYYY-MM); defaults to the current month")
	memoryOverrides := flag.Bool("memory-overrides", false, "keep overrides in memory instead of the override database")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load env file\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}

	// Load the config file to get logging configuration
	conf, err := loadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	// Initialize logging based on config and CLI override
	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI overrides take precedence over config
	if *outputFormatFlag != "" {
		conf.Output.Format = *outputFormatFlag
	}
	if *outputFile != "" {
		conf.Output.File = *outputFile
	}
	if *contractsFile != "" {
		conf.Contracts.File = *contractsFile
	}
	if *measure != "" {
		conf.Forecast.Measure = *measure
	}
	if *memoryOverrides {
		conf.Overrides.Memory = true
	}

	if err := validation.ValidateOutputFormat(conf.Output.Format); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	// Validate configuration and display any warnings
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	asOf := time.Now()
	if *asOfFlag != "" {
		asOf, err = time.Parse(constants.DateTimeLayout, *asOfFlag)
		if err != nil {
			logger.Fatal("invalid -as-of month",
				zap.String("op", "main"),
				zap.String("value", *asOfFlag),
				zap.Error(err),
			)
		}
	}

	if conf.Contracts.File == "" {
		logger.Fatal("no contracts file configured; set contracts.file or pass -contracts",
			zap.String("op", "main"),
		)
	}
	contracts, err := contract.LoadFile(conf.Contracts.File)
	if err != nil {
		logger.Fatal("failed to load contracts",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	for _, warning := range contract.Warnings(contracts) {
		logger.Warn("Contract warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx := context.Background()
	overrides, err := override.Open(ctx, conf.Overrides.Path, conf.Overrides.Memory, logger)
	if err != nil {
		logger.Fatal("failed to open override store",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	defer func() {
		if err := overrides.Close(); err != nil {
			logger.Warn("failed to close override store",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}()

	// Run the projection to get the Forecast.
	result := forecast.GetForecast(logger, forecast.NewInputs(*conf, contracts, overrides.Snapshot(), asOf))

	// Handle output.
	switch conf.Output.Format {
	case constants.OutputFormatPretty:
		output.PrettyFormat(os.Stdout, result)
	case constants.OutputFormatCSV:
		if err := output.CsvFormat(os.Stdout, result); err != nil {
			logger.Error("failed to write CSV",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	case constants.OutputFormatXLSX:
		path := conf.Output.File
		if path == "" {
			path = constants.DefaultXLSXFile
		}
		if err := output.SaveWorkbook(path, result); err != nil {
			logger.Error("failed to write workbook",
				zap.String("op", "main"),
				zap.Error(err),
			)
			return
		}
		logger.Info("workbook written",
			zap.String("op", "main"),
			zap.String("path", path),
		)
	}
}
