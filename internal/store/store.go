// Package store materializes a Dataset into a single in-memory table named
// "data" and runs SQL text against it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/duckdb/duckdb-go/v2"

	"csvchat/internal/dataset"
)

// TableName is the single table every store exposes.
const TableName = "data"

// Engine names accepted by Open.
const (
	EngineDuckDB = "duckdb"
	EngineSQLite = "sqlite"
)

var (
	// ErrNotLoaded is returned by Query before any Dataset was loaded.
	ErrNotLoaded = errors.New("no dataset loaded")
	// ErrStatementNotAllowed is returned by CheckReadOnly for write or
	// side-effect statements.
	ErrStatementNotAllowed = errors.New("statement not allowed")
)

// Store is a single-table relational copy of one Dataset.
type Store interface {
	// Load replaces the data table with the rows of d.
	Load(ctx context.Context, d *dataset.Dataset) error
	// Query runs sqlText verbatim.
	Query(ctx context.Context, sqlText string) (*Result, error)
	Close() error
	Engine() string
}

// Result is a tabular query result. Rows may be empty.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// RowCount returns the number of rows.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Open creates an empty in-memory store for the named engine.
func Open(engine string) (Store, error) {
	switch engine {
	case "", EngineDuckDB:
		return NewDuckDB()
	case EngineSQLite:
		return NewSQLite()
	default:
		return nil, fmt.Errorf("unknown store engine %q", engine)
	}
}

// sqlStore holds the database/sql plumbing shared by both engines.
type sqlStore struct {
	db        *sql.DB
	engine    string
	typeName  func(dataset.ColumnType) string
	afterLoad func(ctx context.Context, db *sql.DB) error

	mu     sync.RWMutex
	loaded bool
}

func (s *sqlStore) Engine() string {
	return s.engine
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) Load(ctx context.Context, d *dataset.Dataset) error {
	if d == nil || len(d.Columns) == 0 {
		return fmt.Errorf("dataset has no columns")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(TableName)); err != nil {
		return fmt.Errorf("failed to drop %s table: %w", TableName, err)
	}

	defs := make([]string, len(d.Columns))
	placeholders := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		defs[i] = quoteIdent(col.Name) + " " + s.typeName(col.Type)
		placeholders[i] = "?"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(TableName), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create %s table: %w", TableName, err)
	}

	if len(d.Rows) > 0 {
		insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(TableName), strings.Join(placeholders, ", "))
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, row := range d.Rows {
			if len(row) != len(d.Columns) {
				return fmt.Errorf("row %d has %d values, want %d", i+1, len(row), len(d.Columns))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("failed to insert row %d: %w", i+1, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load: %w", err)
	}

	if s.afterLoad != nil {
		if err := s.afterLoad(ctx, s.db); err != nil {
			return err
		}
	}
	s.loaded = true
	return nil
}

func (s *sqlStore) Query(ctx context.Context, sqlText string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}

	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Result{Columns: columns, Rows: resultRows}, nil
}

// normalizeValues maps driver-specific scan types onto int64, float64 and
// string so results render the same on both engines.
func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case *big.Int:
			if typed.IsInt64() {
				normalized[i] = typed.Int64()
			} else {
				normalized[i] = typed.String()
			}
		case duckdb.Decimal:
			normalized[i] = typed.Float64()
		case int32:
			normalized[i] = int64(typed)
		case int16:
			normalized[i] = int64(typed)
		case int8:
			normalized[i] = int64(typed)
		case float32:
			normalized[i] = float64(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
