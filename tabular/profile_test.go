package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthlyTable() *Table {
	return &Table{
		Columns: []string{"date", "revenue", "units", "region"},
		Rows: [][]string{
			{"2024-01-31", "1200.50", "12", "north"},
			{"2024-02-29", "1300.25", "14", "south"},
			{"2024-03-31", "", "11", "north"},
		},
	}
}

func TestAnalyzeClassifiesColumns(t *testing.T) {
	profile := Analyze(monthlyTable())
	require.Len(t, profile.Columns, 4)

	date, ok := profile.Column("date")
	require.True(t, ok)
	assert.Equal(t, TypeDate, date.Type)

	revenue, ok := profile.Column("revenue")
	require.True(t, ok)
	assert.Equal(t, TypeNumeric, revenue.Type)
	assert.Equal(t, "float64", revenue.Storage)
	assert.Equal(t, 1, revenue.Missing)

	units, ok := profile.Column("units")
	require.True(t, ok)
	assert.Equal(t, TypeNumeric, units.Type)
	assert.Equal(t, "int64", units.Storage)

	region, ok := profile.Column("region")
	require.True(t, ok)
	assert.Equal(t, TypeCategorical, region.Type)
	assert.Equal(t, "string", region.Storage)
}

func TestPartitionCoversAllColumnsDisjointly(t *testing.T) {
	profile := Analyze(monthlyTable())
	numeric, categorical, date := profile.Partition()

	total := len(numeric) + len(categorical) + len(date)
	assert.Equal(t, 4, total)

	seen := map[string]bool{}
	for _, group := range [][]string{numeric, categorical, date} {
		for _, name := range group {
			assert.False(t, seen[name], "column %s appears in two partitions", name)
			seen[name] = true
		}
	}
}

func TestDateDetectionProbesFirstValueOnly(t *testing.T) {
	table := &Table{
		Columns: []string{"mixed"},
		Rows:    [][]string{{"not a date"}, {"2024-01-01"}, {"2024-02-01"}},
	}
	profile := Analyze(table)
	col, ok := profile.Column("mixed")
	require.True(t, ok)
	assert.Equal(t, TypeCategorical, col.Type)
}

func TestDateDetectionSkipsLeadingMissing(t *testing.T) {
	table := &Table{
		Columns: []string{"when"},
		Rows:    [][]string{{""}, {"2024-01-01"}},
	}
	profile := Analyze(table)
	col, ok := profile.Column("when")
	require.True(t, ok)
	assert.Equal(t, TypeDate, col.Type)
	assert.Equal(t, 1, col.Missing)
}

func TestAllMissingColumnIsCategorical(t *testing.T) {
	table := &Table{
		Columns: []string{"empty"},
		Rows:    [][]string{{""}, {""}},
	}
	profile := Analyze(table)
	col, ok := profile.Column("empty")
	require.True(t, ok)
	assert.Equal(t, TypeCategorical, col.Type)
	assert.Equal(t, "string", col.Storage)
	assert.Equal(t, 2, col.Missing)
}

func TestParseDateLayouts(t *testing.T) {
	for _, value := range []string{
		"2024-03-31",
		"2024/03/31",
		"03/31/2024",
		"2024-03-31 10:30:00",
		"Mar 31, 2024",
		"March 31, 2024",
		"31 Mar 2024",
	} {
		_, ok := ParseDate(value)
		assert.True(t, ok, "expected %q to parse", value)
	}

	_, ok := ParseDate("thirty-first of March")
	assert.False(t, ok)
}
