package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"csvchat/internal/config"
)

var (
	cfgFile  string
	cfg      *config.Config
	logger   *slog.Logger
	closeLog = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   "csvchat [file.csv]",
		Short: "CSV Chat - Ask questions about a CSV file in plain language",
		Long: `CSV Chat loads a CSV file into an in-memory SQL table named "data",
turns natural-language questions into SQL with a language model, runs the
SQL and shows the result.

When run without commands, it launches an interactive TUI.
Use "serve" for the browser interface and the other subcommands for
one-shot CLI use.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLog()
		},
		Run: func(cmd *cobra.Command, args []string) {
			// No subcommand specified - launch TUI
			runTUI(args)
		},
	}
)

func init() {
	rootCmd.PersistentPreRunE = loadConfig

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (default: ./"+config.DefaultFile+" if present)")
	pf.String("provider", "", "SQL generation provider (anthropic, openai)")
	pf.String("model", "", "Model id for SQL generation")
	pf.String("base-url", "", "Base URL of the inference API")
	pf.String("api-key", "", "API key for the inference service")
	pf.String("engine", "", "Store engine (duckdb, sqlite)")
	pf.Bool("read-only", true, "Reject generated statements that modify data")
	pf.String("rename", "", "Column renaming mode (positional, mapping, none)")
	pf.Int("preview-skip", 8, "Rows skipped at the top of the data preview")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.Bool("log-json", true, "Write logs as JSON")
	pf.String("log-file", "", "Write logs to this file instead of stderr")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = c

	if SetupLogger == nil {
		logger = slog.New(slog.DiscardHandler)
		return nil
	}
	// the TUI owns the terminal, so its logs go to a file
	if isInteractive(cmd) && cfg.Log.File == "" {
		cfg.Log.File = "err.log"
	}
	l, closeFn, err := SetupLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	logger = l
	closeLog = closeFn
	return nil
}

func isInteractive(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd == chatCmd
}

func runTUI(args []string) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	if err := LaunchTUI(cfg, logger, path); err != nil {
		HandleError(err, "Failed to run TUI")
	}
}
