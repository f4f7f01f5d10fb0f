package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"csvchat/internal/dataset"
	"csvchat/internal/store"
)

// SchemaOutput represents the schema information for the loaded table
type SchemaOutput struct {
	TableName   string       `json:"table_name"`
	File        string       `json:"file"`
	RowCount    int          `json:"row_count"`
	ColumnCount int          `json:"column_count"`
	Columns     []ColumnInfo `json:"columns"`
	Summary     string       `json:"summary"`
}

// ColumnInfo represents information about a single column
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

var schemaCmd = &cobra.Command{
	Use:   "schema <file.csv>",
	Short: "Show the inferred schema of a CSV file",
	Long: `Load a CSV file, apply column renaming and print the inferred column
types as JSON. The summary field is the schema description sent to the
language model.

Examples:
  csvchat schema analytics.csv
  csvchat schema --rename none export.csv`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		d, err := loadDataset(cmd.Context(), args[0])
		if err != nil {
			HandleError(err, "Failed to load CSV")
		}

		output, err := json.MarshalIndent(schemaOutput(d), "", "  ")
		if err != nil {
			HandleError(err, "Failed to encode JSON")
		}
		fmt.Println(string(output))
	},
}

func schemaOutput(d *dataset.Dataset) SchemaOutput {
	columns := make([]ColumnInfo, len(d.Columns))
	for i, c := range d.Columns {
		columns[i] = ColumnInfo{Name: c.Name, Type: c.TypeName()}
	}
	return SchemaOutput{
		TableName:   store.TableName,
		File:        d.Name,
		RowCount:    d.RowCount(),
		ColumnCount: len(d.Columns),
		Columns:     columns,
		Summary:     dataset.Summarize(d),
	}
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
