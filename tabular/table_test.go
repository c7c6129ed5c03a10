package tabular

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	payload := []byte("name, amount \nwidget, 10\ngadget,20\n")
	table, err := Load(payload, "items.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "amount"}, table.Columns)
	assert.Equal(t, 2, table.NumRows())
	assert.Equal(t, 2, table.NumCols())
	assert.Equal(t, []string{"10", "20"}, table.Column("amount"))
}

func TestLoadCSVShortRowPadded(t *testing.T) {
	reader := [][]string{
		{"a", "b", "c"},
		{"1", "2"},
	}
	table, err := fromRecords(reader)
	require.NoError(t, err)

	require.Equal(t, 1, table.NumRows())
	assert.Equal(t, []string{"1", "2", ""}, table.Rows[0])
}

func TestLoadEmptyPayloadFails(t *testing.T) {
	_, err := Load(nil, "empty.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestLoadMalformedCSVFails(t *testing.T) {
	_, err := Load([]byte("a,b\n\"unterminated"), "bad.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestLoadUnknownExtensionFails(t *testing.T) {
	_, err := Load([]byte("a,b\n1,2\n"), "data.parquet")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestColumnMissing(t *testing.T) {
	table := &Table{Columns: []string{"a"}, Rows: [][]string{{"1"}}}
	assert.Nil(t, table.Column("nope"))
}
