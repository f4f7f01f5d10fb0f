package store

import (
	"context"
	"database/sql"
	"fmt"

	"csvchat/internal/dataset"
)

// DuckDB is an in-memory DuckDB database holding the data table.
type DuckDB struct {
	sqlStore
}

// NewDuckDB opens a private in-memory DuckDB database. All pooled
// connections share the same database.
func NewDuckDB() (*DuckDB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	return &DuckDB{sqlStore{
		db:        db,
		engine:    EngineDuckDB,
		typeName:  duckdbType,
		afterLoad: lockDownDuckDB,
	}}, nil
}

func duckdbType(t dataset.ColumnType) string {
	switch t {
	case dataset.TypeInteger:
		return "BIGINT"
	case dataset.TypeFloat:
		return "DOUBLE"
	default:
		return "VARCHAR"
	}
}

// lockDownDuckDB turns off file, network and extension access once the
// table is built. Generated SQL can then only see the in-memory table.
func lockDownDuckDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "SET enable_external_access = false"); err != nil {
		return fmt.Errorf("failed to disable external access: %w", err)
	}
	return nil
}
