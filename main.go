// Package main is the entry point for the darkroom application.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/pressbox/darkroom/internal/app"
	"github.com/pressbox/darkroom/internal/config"
	"github.com/pressbox/darkroom/internal/logger"
	"github.com/pressbox/darkroom/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	loader := config.NewLoader()
	cfg, err := loader.Load(os.Getenv("DARKROOM_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer log.Close()

	// Log level follows the config file while the app runs.
	loader.Watch(func(updated *config.Config) {
		log.SetLevel(updated.Log.Level)
	})

	a := app.New(cfg, log)
	a.Start()
	defer a.Stop()

	log.Info("starting darkroom",
		zap.String("base_url", cfg.API.BaseURL),
		zap.Int("concurrency", cfg.Queue.Concurrency))

	p := tea.NewProgram(tui.New(a), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
