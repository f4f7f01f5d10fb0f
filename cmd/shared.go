package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"csvchat/internal/config"
	"csvchat/internal/dataset"
	"csvchat/internal/pipeline"
	"csvchat/internal/session"
)

// These variables will be set by main package
var (
	SetupLogger    func(cfg config.LogConfig) (*slog.Logger, func() error, error)
	LaunchTUI      func(cfg *config.Config, logger *slog.Logger, csvPath string) error
	StartServer    func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error
	RenderMarkdown func(content string, width int) (string, error)
)

// HandleError prints error and exits
func HandleError(err error, message string) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, err)
	os.Exit(1)
}

// openSession loads the CSV at location (a path, URL or zip archive) into a
// fresh session configured from cfg. The caller closes the session.
func openSession(ctx context.Context, location string) (*session.Session, error) {
	src, name, err := dataset.OpenSource(ctx, location, cfg.Server.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", location, err)
	}
	defer src.Close()

	sess := session.New(uuid.NewString(), pipeline.SessionOptions(cfg))
	if _, err := sess.Upload(ctx, name, src); err != nil {
		_ = sess.Close()
		return nil, err
	}
	sess.SetAPIKey(cfg.LLM.APIKey)
	return sess, nil
}

// loadDataset parses and renames a CSV without opening a store.
func loadDataset(ctx context.Context, location string) (*dataset.Dataset, error) {
	src, name, err := dataset.OpenSource(ctx, location, cfg.Server.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", location, err)
	}
	defer src.Close()

	d, err := dataset.LoadCSV(name, src)
	if err != nil {
		return nil, err
	}
	if err := cfg.Dataset.Renamer().Apply(d); err != nil {
		return nil, err
	}
	return d, nil
}
