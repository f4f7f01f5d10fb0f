package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the HTTP server with the browser chat interface.

The browser interface offers the same pipeline as the TUI: upload a CSV,
enter an API key, ask questions and browse the data preview. A JSON API is
served under /api, Prometheus metrics under /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}

func runServe() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting CSV Chat web server...\n")
	fmt.Printf("Address: %s\n", cfg.Server.Addr)
	fmt.Printf("Engine: %s | Provider: %s\n\n", cfg.Store.Engine, cfg.LLM.Provider)

	if err := StartServer(ctx, cfg, logger); err != nil {
		HandleError(err, "Server failed")
	}
}
