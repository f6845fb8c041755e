package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roman-kulish/balloon-tracker/cmd/tracker/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var configPath, exportPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.StringVar(&exportPath, "export", "", "Write the latest session history as GeoJSON to this path and exit")
	flag.Parse()

	if configPath == "" {
		logger.Error("no configuration file provided")
		os.Exit(1)
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	if err = logLevel.UnmarshalText([]byte(config.Settings.LogLevel)); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	if config.Settings.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   config.Settings.LogFile,
			MaxSize:    config.Settings.LogMaxSizeMB,
			MaxBackups: config.Settings.LogMaxBackups,
		}
		defer lj.Close()

		logger = slog.New(slog.NewTextHandler(io.MultiWriter(os.Stdout, lj), &slog.HandlerOptions{Level: &logLevel}))
	}

	if exportPath != "" {
		n, err := app.ExportHistory(config.Tracker.DataDirectory, exportPath)
		if err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		logger.Info("history exported", slog.String("path", exportPath), slog.Int("samples", n))
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
