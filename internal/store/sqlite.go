package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"csvchat/internal/dataset"
)

// SQLite is an in-memory SQLite database holding the data table.
type SQLite struct {
	sqlStore
}

// NewSQLite opens an in-memory SQLite database. Every new connection to
// ":memory:" is a separate database, so the pool is pinned to one.
func NewSQLite() (*SQLite, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return &SQLite{sqlStore{
		db:       db,
		engine:   EngineSQLite,
		typeName: sqliteType,
	}}, nil
}

func sqliteType(t dataset.ColumnType) string {
	switch t {
	case dataset.TypeInteger:
		return "INTEGER"
	case dataset.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}
