package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/app"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/server"
)

var (
	configFile   = flag.String("config", "", "Configuration file path")
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Scribo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Merge port flags (shorthand takes precedence)
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Auto-discover config file if not specified
	path := *configFile
	if path == "" {
		if _, err := os.Stat("scribo.toml"); err == nil {
			path = "scribo.toml"
		}
	}

	// Startup order: config (defaults -> file -> env -> CLI), logger, banner.
	config, err := common.LoadConfig(path)
	if err != nil {
		// Use temporary logger for startup errors
		arbor.NewLogger().Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, finalPort, *serverHost)

	logger := common.InitLogger(config)

	common.InstallCrashHandler("")

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("config_file", path).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Str("provider", config.Extraction.Provider).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	srv := server.New(application)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				common.WriteCrashFile(r, common.GetStackTrace())
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()

		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Give goroutine a moment to start
	time.Sleep(100 * time.Millisecond)

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	logger.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}
