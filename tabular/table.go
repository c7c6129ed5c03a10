// Package tabular loads delimited and spreadsheet datasets into in-memory
// tables and derives structural profiles and retrieval chunks from them.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrParse is returned on malformed delimited or spreadsheet content.
var ErrParse = errors.New("tabular parse failed")

// Table is one loaded dataset: a header row and string-valued data rows.
// Every row has exactly len(Columns) cells; empty cells are missing values.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Load parses payload into a Table based on the filename's extension
// (.csv or .xlsx). A dataset without a header row is a parse failure.
func Load(payload []byte, filename string) (*Table, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return loadCSV(payload)
	case ".xlsx":
		return loadXLSX(payload)
	default:
		return nil, fmt.Errorf("%w: unrecognized extension %s", ErrParse, ext)
	}
}

func loadCSV(payload []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return fromRecords(records)
}

func loadXLSX(payload []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %v", ErrParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrParse, sheets[0], err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrParse)
	}

	columns := make([]string, len(records[0]))
	for i, name := range records[0] {
		columns[i] = strings.TrimSpace(name)
	}

	rows := make([][]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]string, len(columns))
		for i := range columns {
			if i < len(record) {
				row[i] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.Columns) }

// Column returns all values of the named column in row order, or nil when
// the column does not exist.
func (t *Table) Column(name string) []string {
	idx := t.columnIndex(name)
	if idx < 0 {
		return nil
	}
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values
}

func (t *Table) columnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}
