package ingestion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectKind(t *testing.T) {
	cases := []struct {
		filename string
		want     Kind
	}{
		{"report.pdf", KindText},
		{"REPORT.PDF", KindText},
		{"sales.csv", KindTabular},
		{"sales.XLSX", KindTabular},
		{"dir/nested/q3.pdf", KindText},
	}

	for _, tc := range cases {
		t.Run(tc.filename, func(t *testing.T) {
			kind, err := DetectKind(tc.filename)
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestDetectKindUnsupported(t *testing.T) {
	for _, filename := range []string{"notes.txt", "archive.zip", "noextension", "data.csv.bak"} {
		_, err := DetectKind(filename)
		assert.True(t, errors.Is(err, ErrUnsupportedFileType), "expected unsupported type for %s", filename)
	}
}
