// Package executor runs generated SQL against a store and turns any failure
// into one of three user-facing categories.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/duckdb/duckdb-go/v2"

	"csvchat/internal/store"
)

// Kind is the category of a failed execution.
type Kind string

const (
	KindTableNotFound Kind = "table_not_found"
	KindSyntax        Kind = "syntax_error"
	KindExecution     Kind = "execution_error"
)

// Message returns the fixed text shown to the user for the category.
func (k Kind) Message() string {
	switch k {
	case KindTableNotFound:
		return "The query could not find the specified table."
	case KindSyntax:
		return "The query has a syntax error."
	default:
		return "An error occurred while executing the query."
	}
}

// QueryError is a classified execution failure.
type QueryError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Outcome is either a result set or a QueryError, never both.
type Outcome struct {
	SQL      string
	Result   *store.Result
	Err      *QueryError
	Duration time.Duration
}

// Failed reports whether execution produced an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Executor runs SQL text verbatim, optionally behind the read-only guard.
type Executor struct {
	ReadOnly bool
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Execute runs sqlText against s. It never returns a Go error: every failure
// is reported through Outcome.Err.
func (e *Executor) Execute(ctx context.Context, s store.Store, sqlText string) Outcome {
	start := time.Now()
	out := Outcome{SQL: sqlText}

	if e.ReadOnly {
		if err := store.CheckReadOnly(sqlText); err != nil {
			out.Err = &QueryError{Kind: KindExecution, Message: KindExecution.Message(), Cause: err}
			out.Duration = time.Since(start)
			e.log(ctx, out)
			return out
		}
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	res, err := s.Query(ctx, sqlText)
	out.Duration = time.Since(start)
	if err != nil {
		out.Err = Classify(err)
	} else {
		out.Result = res
	}
	e.log(ctx, out)
	return out
}

func (e *Executor) log(ctx context.Context, out Outcome) {
	if e.Logger == nil {
		return
	}
	if out.Err != nil {
		e.Logger.WarnContext(ctx, "query failed",
			"sql", out.SQL,
			"kind", string(out.Err.Kind),
			"error", out.Err.Cause,
			"duration_ms", out.Duration.Milliseconds())
		return
	}
	e.Logger.InfoContext(ctx, "query executed",
		"sql", out.SQL,
		"rows", out.Result.RowCount(),
		"duration_ms", out.Duration.Milliseconds())
}

// Classify maps a store error to a QueryError. Structured DuckDB error types
// are used when present; other errors fall back to keyword matching.
func Classify(err error) *QueryError {
	kind := classifyKind(err)
	return &QueryError{Kind: kind, Message: kind.Message(), Cause: err}
}

func classifyKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindExecution
	}

	var dbErr *duckdb.Error
	if errors.As(err, &dbErr) {
		switch dbErr.Type {
		case duckdb.ErrorTypeParser:
			return KindSyntax
		case duckdb.ErrorTypeCatalog:
			if mentionsMissingTable(strings.ToLower(dbErr.Msg)) {
				return KindTableNotFound
			}
			return KindExecution
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case mentionsMissingTable(msg):
		return KindTableNotFound
	case strings.Contains(msg, "syntax error"), strings.Contains(msg, "parser error"):
		return KindSyntax
	default:
		return KindExecution
	}
}

func mentionsMissingTable(msg string) bool {
	if strings.Contains(msg, "no such table") {
		return true
	}
	return strings.Contains(msg, "table") && strings.Contains(msg, "does not exist")
}

// String renders the outcome for logs and the CLI.
func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("error(%s): %s", o.Err.Kind, o.Err.Message)
	}
	return fmt.Sprintf("%d row(s)", o.Result.RowCount())
}
