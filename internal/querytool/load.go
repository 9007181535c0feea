package querytool

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// column affinities inferred from CSV content
const (
	affinityInteger = "INTEGER"
	affinityReal    = "REAL"
	affinityText    = "TEXT"
)

// loadCSV creates table from the CSV file at path. It reports false when the
// file does not exist.
func loadCSV(ctx context.Context, conn *sql.Conn, table, path string) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	header, records, err := readCSV(f)
	if err != nil {
		return false, err
	}

	affinities := inferAffinities(len(header), records)

	defs := make([]string, len(header))
	for i, name := range header {
		defs[i] = quoteIdent(name) + " " + affinities[i]
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := conn.ExecContext(ctx, create); err != nil {
		return false, fmt.Errorf("create table: %w", err)
	}

	if len(records) == 0 {
		return true, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), placeholders)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return false, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(header))
	for line, record := range records {
		for i := range header {
			args[i] = convertCell(record[i], affinities[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return false, fmt.Errorf("insert row %d: %w", line+2, err)
		}
	}

	return true, tx.Commit()
}

// readCSV returns the header and every data row padded to the header width.
func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("empty csv file")
	}
	if err != nil {
		return nil, nil, err
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if header[i] == "" {
			header[i] = fmt.Sprintf("column%d", i)
		}
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(record) > len(header) {
			return nil, nil, fmt.Errorf("row %d has %d fields, header has %d", len(records)+2, len(record), len(header))
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		records = append(records, record)
	}

	return header, records, nil
}

func inferAffinities(width int, records [][]string) []string {
	out := make([]string, width)
	for col := 0; col < width; col++ {
		isInt, isFloat, seen := true, true, false
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
			if !isInt {
				if _, err := strconv.ParseFloat(cell, 64); err != nil {
					isFloat = false
					break
				}
			}
		}

		switch {
		case !seen:
			out[col] = affinityText
		case isInt:
			out[col] = affinityInteger
		case isFloat:
			out[col] = affinityReal
		default:
			out[col] = affinityText
		}
	}
	return out
}

func convertCell(cell, affinity string) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}

	switch affinity {
	case affinityInteger:
		if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return v
		}
	case affinityReal:
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return v
		}
	}
	return cell
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
