package cmd

import (
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [file.csv]",
	Short: "Chat with a CSV file in the terminal",
	Long: `Launch the interactive terminal chat. When a file is given it is
loaded right away; otherwise the TUI asks for a path.

Examples:
  csvchat chat analytics.csv
  csvchat chat --engine sqlite analytics.csv`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTUI(args)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
