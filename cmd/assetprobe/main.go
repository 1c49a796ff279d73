// Package main is the entry point for assetprobe, the remote device
// inventory prober. It loads configuration, registers the collectors and
// dispatches to the cobra subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Guliveer/assetprobe/internal/cisco"
	"github.com/Guliveer/assetprobe/internal/collector"
	"github.com/Guliveer/assetprobe/internal/config"
	"github.com/Guliveer/assetprobe/internal/unix"
	"github.com/Guliveer/assetprobe/internal/windows"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRegistry registers every collector, remote ones first.
func newRegistry(logger *zap.Logger) *collector.Registry {
	registry := collector.NewRegistry(logger)
	registry.Register(cisco.NewCollector(logger))
	registry.Register(unix.NewCollector(logger))
	registry.Register(windows.NewCollector(logger))
	registry.Register(collector.NewLocalCollector(logger))
	return registry
}

// initLogger creates a zap logger writing human-readable output to stderr
// and, when configured, structured JSON to a log file. Stdout is reserved
// for probe results.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
