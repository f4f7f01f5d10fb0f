package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrEmptyFile is returned when the CSV input has no header row.
var ErrEmptyFile = errors.New("csv file is empty")

// LoadCSV reads a CSV stream whose first record is the header, infers a
// type per column and converts every cell accordingly. Empty cells are nil.
func LoadCSV(name string, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record %d: %w", len(records)+1, err)
		}
		records = append(records, record)
	}

	columns := make([]Column, len(header))
	for i, h := range header {
		columns[i] = Column{Name: strings.TrimSpace(h), Type: inferType(records, i)}
	}

	rows := make([][]any, len(records))
	for r, record := range records {
		row := make([]any, len(columns))
		for c, col := range columns {
			row[c] = convertCell(record[c], col.Type)
		}
		rows[r] = row
	}

	return &Dataset{Name: name, Columns: columns, Rows: rows}, nil
}

func inferType(records [][]string, col int) ColumnType {
	seen := false
	isInt, isFloat := true, true
	for _, record := range records {
		cell := strings.TrimSpace(record[col])
		if cell == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if !isInt && isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
				break
			}
		}
	}

	switch {
	case !seen:
		return TypeText
	case isInt:
		return TypeInteger
	case isFloat:
		return TypeFloat
	default:
		return TypeText
	}
}

func convertCell(raw string, typ ColumnType) any {
	cell := strings.TrimSpace(raw)
	if cell == "" {
		return nil
	}
	switch typ {
	case TypeInteger:
		v, _ := strconv.ParseInt(cell, 10, 64)
		return v
	case TypeFloat:
		v, _ := strconv.ParseFloat(cell, 64)
		return v
	default:
		return raw
	}
}
