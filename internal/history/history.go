// Package history keeps the append-only transcript of a chat session and
// renders query outcomes for it.
package history

import (
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"csvchat/internal/dataset"
	"csvchat/internal/executor"
	"csvchat/internal/store"
)

// NoResultsMessage is shown when a query succeeds with zero rows.
const NoResultsMessage = "The query executed successfully but returned no results."

// ResultKind tells how an entry's response was rendered.
type ResultKind string

const (
	KindTable ResultKind = "table"
	KindText  ResultKind = "text"
	KindEmpty ResultKind = "empty"
	KindError ResultKind = "error"
)

// Entry is one request/response cycle. Exactly one of Response and Table is
// set. Result keeps the rows for terminal surfaces.
type Entry struct {
	Request  string        `json:"request"`
	SQL      string        `json:"sql"`
	Response string        `json:"response,omitempty"`
	Table    string        `json:"table,omitempty"`
	Kind     ResultKind    `json:"kind"`
	At       time.Time     `json:"at"`
	Result   *store.Result `json:"-"`
}

// Render turns an executor outcome into an Entry for request.
func Render(request string, out executor.Outcome) Entry {
	entry := Entry{Request: request, SQL: out.SQL, At: time.Now()}
	switch {
	case out.Err != nil:
		entry.Kind = KindError
		entry.Response = "Error: " + out.Err.Message
	case out.Result.RowCount() == 0:
		entry.Kind = KindEmpty
		entry.Response = NoResultsMessage
	case WantsTable(request):
		entry.Result = out.Result
		entry.Kind = KindTable
		entry.Table = HTMLTable(out.Result)
	default:
		entry.Result = out.Result
		entry.Kind = KindText
		entry.Response = TextBlock(out.Result)
	}
	return entry
}

// WantsTable reports whether the request mentions "table" anywhere, in any
// case. "stable" and "tablespoon" count too.
func WantsTable(request string) bool {
	return strings.Contains(strings.ToLower(request), "table")
}

func newWriter(res *store.Result) table.Writer {
	tw := table.NewWriter()
	header := make(table.Row, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c
	}
	tw.AppendHeader(header)
	for _, row := range res.Rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = dataset.FormatValue(v)
		}
		tw.AppendRow(r)
	}
	return tw
}

// HTMLTable renders res as an escaped HTML table without an index column.
func HTMLTable(res *store.Result) string {
	tw := newWriter(res)
	style := table.StyleDefault
	style.Format.Header = text.FormatDefault
	style.HTML = table.HTMLOptions{
		CSSClass:    "result-table",
		EmptyColumn: "",
		EscapeText:  true,
		Newline:     "<br/>",
	}
	tw.SetStyle(style)
	return tw.RenderHTML()
}

// TextBlock renders res as borderless aligned text without an index column.
func TextBlock(res *store.Result) string {
	tw := newWriter(res)
	style := table.StyleDefault
	style.Format.Header = text.FormatDefault
	style.Options.DrawBorder = false
	style.Options.SeparateColumns = false
	style.Options.SeparateHeader = false
	style.Options.SeparateRows = false
	style.Options.SeparateFooter = false
	tw.SetStyle(style)

	lines := strings.Split(tw.Render(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}

// History is an append-only, ordered transcript. Safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	entries []Entry
}

// Append adds e at the end.
func (h *History) Append(e Entry) {
	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.mu.Unlock()
}

// Entries returns a copy of all entries in submission order.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Last returns the most recent entry.
func (h *History) Last() (Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}
