package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/glamour"

	"csvchat/cmd"
	"csvchat/internal/config"
	"csvchat/internal/observability"
)

var logger *slog.Logger

// setupLogger creates the application logger from the log section.
func setupLogger(cfg config.LogConfig) (*slog.Logger, func() error, error) {
	w, closeFn, err := observability.OpenLogWriter(cfg)
	if err != nil {
		return nil, nil, err
	}
	l, err := observability.NewLogger(cfg, w)
	if err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger = l
	logger.Info("Application started", "version", "1.0", "log_file", cfg.File)
	return logger, closeFn, nil
}

// renderMarkdown renders markdown content with glamour for terminal display
func renderMarkdown(content string, width int) (string, error) {
	// borders, padding and glamour's gutter
	const glamourGutter = 2
	const borderWidth = 4

	renderWidth := width - borderWidth - glamourGutter
	if renderWidth < 40 {
		renderWidth = 40
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWidth),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(content)
}

func main() {
	cmd.SetupLogger = setupLogger
	cmd.LaunchTUI = launchTUI
	cmd.StartServer = StartServer
	cmd.RenderMarkdown = renderMarkdown

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
