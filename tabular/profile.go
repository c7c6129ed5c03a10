package tabular

import (
	"strconv"
	"time"
)

// ColumnType is the inferred role of a column.
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
	TypeDate        ColumnType = "date"
)

// ColumnProfile summarizes one column: its inferred type, underlying
// storage type, and missing-value count.
type ColumnProfile struct {
	Name    string
	Type    ColumnType
	Storage string
	Missing int
}

// Profile is the derived, read-only structural summary of one table.
// The numeric/categorical/date partitions are disjoint and cover every
// column.
type Profile struct {
	Columns []ColumnProfile
}

// Analyze derives a profile for t. A column is a date column if its first
// non-missing value parses as a date; date detection deliberately probes
// only that one value (a mostly-date column with a stray first value is
// misclassified). Otherwise the column is numeric when its storage type is
// numeric, and categorical in all remaining cases.
func Analyze(t *Table) *Profile {
	profile := &Profile{Columns: make([]ColumnProfile, 0, t.NumCols())}

	for _, name := range t.Columns {
		values := t.Column(name)
		missing := 0
		first := ""
		for _, v := range values {
			if v == "" {
				missing++
			} else if first == "" {
				first = v
			}
		}

		storage := inferStorage(values)
		colType := TypeCategorical
		if _, ok := ParseDate(first); first != "" && ok {
			colType = TypeDate
		} else if storage != "string" {
			colType = TypeNumeric
		}

		profile.Columns = append(profile.Columns, ColumnProfile{
			Name:    name,
			Type:    colType,
			Storage: storage,
			Missing: missing,
		})
	}

	return profile
}

// Partition splits column names by inferred type.
func (p *Profile) Partition() (numeric, categorical, date []string) {
	for _, col := range p.Columns {
		switch col.Type {
		case TypeNumeric:
			numeric = append(numeric, col.Name)
		case TypeDate:
			date = append(date, col.Name)
		default:
			categorical = append(categorical, col.Name)
		}
	}
	return numeric, categorical, date
}

// Column returns the profile entry for the named column, if present.
func (p *Profile) Column(name string) (ColumnProfile, bool) {
	for _, col := range p.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnProfile{}, false
}

func inferStorage(values []string) string {
	seen := false
	allInt := true
	allFloat := true
	for _, v := range values {
		if v == "" {
			continue
		}
		seen = true
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allFloat = false
			break
		}
	}
	switch {
	case !seen || !allFloat:
		return "string"
	case allInt:
		return "int64"
	default:
		return "float64"
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
}

// ParseDate attempts a best-effort date parse across common layouts.
func ParseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
