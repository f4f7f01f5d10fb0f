package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"csvchat/internal/executor"
)

var (
	queryString string
	queryFormat string
)

var queryCmd = &cobra.Command{
	Use:   "query <file.csv>",
	Short: "Run SQL against a CSV file",
	Long: `Load the CSV file into the table "data" and execute the given SQL
against it. Statements that modify data are rejected unless --read-only=false.

Examples:
  csvchat query analytics.csv --sql "SELECT * FROM data LIMIT 5"
  csvchat query analytics.csv --sql "SELECT SUM(Views) FROM data" --format json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		sess, err := openSession(ctx, args[0])
		if err != nil {
			HandleError(err, "Failed to load CSV")
		}
		defer sess.Close()

		ex := &executor.Executor{
			ReadOnly: cfg.Store.ReadOnly,
			Timeout:  cfg.Store.QueryTimeout,
			Logger:   logger,
		}
		out := ex.Execute(ctx, sess.Store(), queryString)
		if out.Failed() {
			HandleError(out.Err, "Failed to execute query")
		}

		if err := renderResult(os.Stdout, out.Result, queryFormat); err != nil {
			HandleError(err, "Failed to render result")
		}
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryString, "sql", "q", "", "SQL query to execute (required)")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "f", "table", "Output format (table, json, csv, md)")
	_ = queryCmd.MarkFlagRequired("sql")
	rootCmd.AddCommand(queryCmd)
}
