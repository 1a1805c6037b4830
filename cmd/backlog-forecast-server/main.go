package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/backlog-forecast/internal/config"
	"github.com/iwvelando/backlog-forecast/internal/contract"
	"github.com/iwvelando/backlog-forecast/internal/logging"
	"github.com/iwvelando/backlog-forecast/internal/override"
	"github.com/iwvelando/backlog-forecast/internal/server"
	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

const shutdownTimeout = 10 * time.Second

func main() {
	configLocation := flag.String("config", constants.DefaultServerConfigFile, "path to server configuration file")
	envFile := flag.String("env-file", ".env", "optional file of environment overrides")
	address := flag.String("address", "", "listen address override")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	contractsFile := flag.String("contracts", "", "initial contracts file override (JSON or YAML)")
	memoryOverrides := flag.Bool("memory-overrides", false, "keep overrides in memory instead of the override database")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load env file\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}

	serverConf, err := server.LoadConfig(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}
	if *address != "" {
		serverConf.Address = *address
	}

	logger, err := logging.New(serverConf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	conf := config.Default()
	if serverConf.ForecastConfig != "" {
		loaded, err := config.LoadConfiguration(serverConf.ForecastConfig)
		if err != nil {
			logger.Fatal("failed to load forecast configuration",
				zap.String("op", "main"),
				zap.String("path", serverConf.ForecastConfig),
				zap.Error(err),
			)
		}
		conf = *loaded
	}
	if *contractsFile != "" {
		conf.Contracts.File = *contractsFile
	}
	if *memoryOverrides {
		conf.Overrides.Memory = true
	}
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	var contracts []contract.Contract
	if conf.Contracts.File != "" {
		contracts, err = contract.LoadFile(conf.Contracts.File)
		if err != nil {
			logger.Fatal("failed to load contracts",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	buildVersion := version
	if buildVersion == "" {
		buildVersion = serverConf.Version
	}

	srv := &http.Server{
		Addr: serverConf.Address,
		Handler: server.NewHandler(server.Options{
			Logger:        logger,
			MaxUploadSize: serverConf.UploadSizeBytes(),
			Version:       buildVersion,
			Config:        conf,
			Contracts:     contracts,
			Overrides:     overrides,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("op", "main"),
			zap.String("address", serverConf.Address),
			zap.Int("contracts", len(contracts)),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		logger.Info("server stopped",
			zap.String("op", "main"),
		)
	}
}
