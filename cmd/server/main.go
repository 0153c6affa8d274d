// Package main is the entry point for the dbsync worker.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/prudhvinik1/dbsync/cmd/server/app"
	"github.com/prudhvinik1/dbsync/internal/config"
)

// getLogLevel reads DBSYNC_LOG_LEVEL and defaults to info. Commands replace it
// with the configured log-level once the configuration is loaded.
func getLogLevel() slog.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()

	levelStr := v.GetString("LOG_LEVEL")
	level, err := config.ParseLogLevel(levelStr)
	if err != nil {
		slog.Warn("Invalid log level, using INFO", "value", levelStr)
	}
	return level
}

func main() {
	// A missing .env file is fine outside local development
	_ = godotenv.Load()

	app.LogLevel.Set(getLogLevel())

	// stderr keeps stdout clean for `version --format json`
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: app.LogLevel}))
	slog.SetDefault(logger)

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
