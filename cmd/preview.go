package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var (
	previewColumn string
	previewValue  string
	previewLimit  int
	previewFormat string
)

var previewCmd = &cobra.Command{
	Use:   "preview <file.csv>",
	Short: "Browse the rows of a CSV file",
	Long: `Print the database preview of a CSV file: the rows after the first
--preview-skip rows, optionally narrowed to rows where --column equals
--value. Filtering is display-only and never runs SQL.

Examples:
  csvchat preview analytics.csv --limit 10
  csvchat preview analytics.csv --column Country --value Germany`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := openSession(context.Background(), args[0])
		if err != nil {
			HandleError(err, "Failed to load CSV")
		}
		defer sess.Close()

		d, err := sess.Filter(previewColumn, previewValue)
		if err != nil {
			HandleError(err, "Failed to filter preview")
		}
		if previewLimit > 0 {
			d = d.Slice(0, previewLimit)
		}
		if err := renderResult(os.Stdout, datasetResult(d), previewFormat); err != nil {
			HandleError(err, "Failed to render preview")
		}
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewColumn, "column", "", "Column to filter on")
	previewCmd.Flags().StringVar(&previewValue, "value", "", "Value the column must equal")
	previewCmd.Flags().IntVarP(&previewLimit, "limit", "n", 20, "Maximum rows to print (0 for all)")
	previewCmd.Flags().StringVarP(&previewFormat, "format", "f", "table", "Output format (table, json, csv, md)")
	rootCmd.AddCommand(previewCmd)
}
