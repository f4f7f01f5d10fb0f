package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"csvchat/internal/dataset"
	"csvchat/internal/store"
)

func renderResult(w io.Writer, res *store.Result, format string) error {
	switch format {
	case "json":
		return renderJSON(w, res)
	case "csv":
		_, err := fmt.Fprintln(w, newTableWriter(res).RenderCSV())
		return err
	case "md", "markdown":
		_, err := fmt.Fprintln(w, newTableWriter(res).RenderMarkdown())
		return err
	case "table", "":
		return renderTable(w, res)
	default:
		return fmt.Errorf("unknown format %q (want table, json, csv or md)", format)
	}
}

func newTableWriter(res *store.Result) table.Writer {
	t := table.NewWriter()
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)

	headerRow := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, r := range res.Rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = dataset.FormatValue(v)
		}
		t.AppendRow(row)
	}
	return t
}

func renderTable(w io.Writer, res *store.Result) error {
	if res.RowCount() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	_, _ = fmt.Fprintln(w, newTableWriter(res).Render())
	_, _ = fmt.Fprintf(w, "(%d rows)\n", res.RowCount())
	return nil
}

func renderJSON(w io.Writer, res *store.Result) error {
	results := make([]map[string]any, 0, res.RowCount())
	for _, r := range res.Rows {
		row := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			row[col] = r[i]
		}
		results = append(results, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// datasetResult exposes dataset rows in the store's result shape.
func datasetResult(d *dataset.Dataset) *store.Result {
	return &store.Result{Columns: d.ColumnNames(), Rows: d.Rows}
}
