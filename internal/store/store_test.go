package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvchat/internal/dataset"
)

func viewsDataset(values ...int64) *dataset.Dataset {
	d := &dataset.Dataset{
		Name:    "views.csv",
		Columns: []dataset.Column{{Name: "Views", Type: dataset.TypeInteger}},
	}
	for _, v := range values {
		d.Rows = append(d.Rows, []any{v})
	}
	return d
}

func openEngines(t *testing.T) map[string]Store {
	t.Helper()
	stores := map[string]Store{}
	for _, engine := range []string{EngineDuckDB, EngineSQLite} {
		s, err := Open(engine)
		require.NoError(t, err, engine)
		t.Cleanup(func() { _ = s.Close() })
		stores[engine] = s
	}
	return stores
}

func TestSumViews(t *testing.T) {
	for engine, s := range openEngines(t) {
		t.Run(engine, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Load(ctx, viewsDataset(10, 20, 30)))

			res, err := s.Query(ctx, "SELECT SUM(Views) FROM data")
			require.NoError(t, err)
			require.Len(t, res.Rows, 1)
			require.Len(t, res.Rows[0], 1)
			assert.EqualValues(t, int64(60), res.Rows[0][0])
			assert.Equal(t, engine, s.Engine())
		})
	}
}

func TestEmptyTableQuery(t *testing.T) {
	for engine, s := range openEngines(t) {
		t.Run(engine, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Load(ctx, viewsDataset()))

			res, err := s.Query(ctx, "SELECT * FROM data")
			require.NoError(t, err)
			assert.Equal(t, []string{"Views"}, res.Columns)
			assert.Empty(t, res.Rows)
			assert.Equal(t, 0, res.RowCount())
		})
	}
}

func TestLoadReplacesTable(t *testing.T) {
	for engine, s := range openEngines(t) {
		t.Run(engine, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Load(ctx, viewsDataset(1, 2, 3)))

			second := &dataset.Dataset{
				Columns: []dataset.Column{
					{Name: "Country", Type: dataset.TypeText},
					{Name: "Ratio", Type: dataset.TypeFloat},
				},
				Rows: [][]any{{"US", 1.5}, {nil, 2.25}},
			}
			require.NoError(t, s.Load(ctx, second))

			res, err := s.Query(ctx, "SELECT Country, Ratio FROM data ORDER BY Ratio")
			require.NoError(t, err)
			assert.Equal(t, []string{"Country", "Ratio"}, res.Columns)
			require.Len(t, res.Rows, 2)
			assert.Equal(t, "US", res.Rows[0][0])
			assert.Equal(t, 1.5, res.Rows[0][1])
			assert.Nil(t, res.Rows[1][0])

			_, err = s.Query(ctx, "SELECT Views FROM data")
			assert.Error(t, err)
		})
	}
}

func TestQueryBeforeLoad(t *testing.T) {
	for engine, s := range openEngines(t) {
		t.Run(engine, func(t *testing.T) {
			_, err := s.Query(context.Background(), "SELECT 1")
			assert.True(t, errors.Is(err, ErrNotLoaded))
		})
	}
}

func TestLoadRejectsNoColumns(t *testing.T) {
	s, err := NewSQLite()
	require.NoError(t, err)
	defer s.Close()

	assert.Error(t, s.Load(context.Background(), &dataset.Dataset{}))
	assert.Error(t, s.Load(context.Background(), nil))
}

func TestOpenUnknownEngine(t *testing.T) {
	_, err := Open("oracle")
	assert.Error(t, err)
}

func TestDuckDBExternalAccessDisabled(t *testing.T) {
	s, err := NewDuckDB()
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Load(ctx, viewsDataset(1)))

	_, err = s.Query(ctx, "SELECT * FROM read_csv('/etc/hosts')")
	assert.Error(t, err)
}

func TestCheckReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		allowed bool
	}{
		{"select", "SELECT * FROM data", true},
		{"lowercase select", "select count(*) from data", true},
		{"cte", "WITH t AS (SELECT 1) SELECT * FROM t", true},
		{"parenthesized", "(SELECT 1) UNION (SELECT 2)", true},
		{"trailing semicolon", "SELECT 1;", true},
		{"quoted keyword", "SELECT 'DROP TABLE data; DELETE' FROM data", true},
		{"garbage still runs", "SELEC * FROM data", true},
		{"drop", "DROP TABLE data", false},
		{"insert", "insert into data values (1)", false},
		{"chained", "SELECT 1; DELETE FROM data", false},
		{"comment prefix", "-- note\nDELETE FROM data", false},
		{"block comment prefix", "/* x */ ATTACH 'f.db'", false},
		{"copy", "COPY data TO 'out.csv'", false},
		{"pragma", "PRAGMA table_info(data)", false},
		{"install", "INSTALL httpfs", false},
		{"cte delete", "WITH x AS (SELECT 1) DELETE FROM data", false},
		{"cte insert", "with recursive t(n) as (select 1), u as materialized (select 2) insert into data select * from t", false},
		{"cte select with function", "WITH x AS (SELECT 1) SELECT replace(Country, 'a', 'b') FROM data", true},
		{"two ctes", "WITH a AS (SELECT 1), b (n) AS (SELECT 2) SELECT * FROM a, b", true},
		{"explain", "EXPLAIN SELECT * FROM data", true},
		{"explain analyze delete", "EXPLAIN ANALYZE DELETE FROM data", false},
		{"replace function", "SELECT replace(Country, 'US', 'USA') FROM data", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReadOnly(tt.sql)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrStatementNotAllowed)
		})
	}
}
