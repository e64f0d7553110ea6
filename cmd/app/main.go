package main

import (
	"flag"
	"log"
	"os"

	"FxDesk/internal/di"
	"FxDesk/pkg/config"
	"FxDesk/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	envFile := flag.String("env", ".env", "dotenv file, ignored when missing")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv %s: %v", *envFile, err)
	}

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	lgr, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	lgr = lgr.With(logger.String("service", "fxdesk"), logger.String("env", cfg.Environment))

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg, lgr)
	if err != nil {
		lgr.Error("app initialization failed", logger.Error(err))
		os.Exit(1)
	}

	lgr.Info("fxdesk starting",
		logger.String("version", cfg.Version),
		logger.String("backend", cfg.Backend.Type),
		logger.Bool("gemini", cfg.Gemini.Configured()),
		logger.Bool("redis", cfg.Redis.Enabled),
		logger.Bool("queue", cfg.Queue.Enabled))

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		lgr.Error("app error", logger.Error(err))
		os.Exit(1)
	}
}
