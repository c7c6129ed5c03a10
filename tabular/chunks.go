package tabular

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ChunkSet is the output of structured chunking: the ordered, tagged chunk
// texts plus the names of best-effort facets that were skipped.
type ChunkSet struct {
	Chunks  []string
	Skipped []string
}

// BuildChunks derives retrieval chunks from a table using six strategies in
// a fixed order: overview, per-column analysis, statistical summaries,
// row batches, categorical frequencies, and time-series analysis. Each chunk
// is prefixed with an ordinal [CSV_CHUNK_n] tag so retrieved fragments can
// be traced back to the structural facet that produced them.
//
// Time-series enrichment is best-effort: a date column that fails to parse
// is logged and recorded in Skipped, never fatal.
func BuildChunks(t *Table, p *Profile, chunkSize int, logger *zap.Logger) ChunkSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	numeric, categorical, date := p.Partition()

	chunks := []string{overviewChunk(t, p, numeric, categorical, date)}
	chunks = append(chunks, columnChunks(t, p, numeric)...)
	chunks = append(chunks, statisticalChunks(t, numeric)...)
	chunks = append(chunks, rowBatchChunks(t, chunkSize)...)
	chunks = append(chunks, categoryChunks(t, categorical)...)

	series, skipped := timeSeriesChunks(t, date, numeric, logger)
	chunks = append(chunks, series...)

	tagged := make([]string, len(chunks))
	for i, chunk := range chunks {
		tagged[i] = fmt.Sprintf("[CSV_CHUNK_%d]\n%s", i+1, chunk)
	}
	return ChunkSet{Chunks: tagged, Skipped: skipped}
}

func overviewChunk(t *Table, p *Profile, numeric, categorical, date []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tabular Document Overview:\n")
	fmt.Fprintf(&sb, "Dataset: %d rows x %d columns\n", t.NumRows(), t.NumCols())
	fmt.Fprintf(&sb, "Columns: %s\n", strings.Join(t.Columns, ", "))
	fmt.Fprintf(&sb, "Numeric columns: %s\n", orNone(numeric))
	fmt.Fprintf(&sb, "Categorical columns: %s\n", orNone(categorical))
	fmt.Fprintf(&sb, "Date columns: %s\n", orNone(date))

	sb.WriteString("\nStorage Types:\n")
	for _, col := range p.Columns {
		fmt.Fprintf(&sb, "%s: %s\n", col.Name, col.Storage)
	}

	sb.WriteString("\nMissing Values:\n")
	for _, col := range p.Columns {
		fmt.Fprintf(&sb, "%s: %d\n", col.Name, col.Missing)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func columnChunks(t *Table, p *Profile, numeric []string) []string {
	numericSet := make(map[string]struct{}, len(numeric))
	for _, name := range numeric {
		numericSet[name] = struct{}{}
	}

	chunks := make([]string, 0, len(p.Columns))
	for _, col := range p.Columns {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Column Analysis: %s\n", col.Name)
		fmt.Fprintf(&sb, "Data Type: %s\n", col.Storage)
		fmt.Fprintf(&sb, "Missing Values: %d\n", col.Missing)

		if _, ok := numericSet[col.Name]; ok {
			s := Describe(t.NumericValues(col.Name))
			fmt.Fprintf(&sb, "Statistical Summary:\n")
			fmt.Fprintf(&sb, "Count: %d\n", s.Count)
			fmt.Fprintf(&sb, "Mean: %.2f\n", s.Mean)
			fmt.Fprintf(&sb, "Std: %.2f\n", s.Std)
			fmt.Fprintf(&sb, "Min: %.2f\n", s.Min)
			fmt.Fprintf(&sb, "25%%: %.2f\n", s.Q25)
			fmt.Fprintf(&sb, "50%%: %.2f\n", s.Median)
			fmt.Fprintf(&sb, "75%%: %.2f\n", s.Q75)
			fmt.Fprintf(&sb, "Max: %.2f", s.Max)
		} else {
			counts := valueCounts(t.Column(col.Name))
			fmt.Fprintf(&sb, "Unique Values: %d\n", len(counts))
			top := 5
			if len(counts) <= 20 {
				top = 10
			}
			if top > len(counts) {
				top = len(counts)
			}
			sb.WriteString("Top Values:")
			for _, vc := range counts[:top] {
				fmt.Fprintf(&sb, "\n%s: %d", vc.value, vc.count)
			}
		}
		chunks = append(chunks, sb.String())
	}
	return chunks
}

func statisticalChunks(t *Table, numeric []string) []string {
	if len(numeric) == 0 {
		return nil
	}

	chunks := make([]string, 0, 2)
	if len(numeric) >= 2 {
		matrix := t.CorrelationMatrix(numeric)
		var sb strings.Builder
		sb.WriteString("Correlation Matrix:\n")
		sb.WriteString(padCell(""))
		for _, name := range numeric {
			sb.WriteString(padCell(name))
		}
		for i, name := range numeric {
			sb.WriteString("\n" + padCell(name))
			for j := range numeric {
				sb.WriteString(padCell(fmt.Sprintf("%.2f", matrix[i][j])))
			}
		}
		chunks = append(chunks, sb.String())
	}

	var sb strings.Builder
	sb.WriteString("Summary Statistics:\n")
	sb.WriteString(padCell(""))
	for _, name := range numeric {
		sb.WriteString(padCell(name))
	}
	summaries := make([]Summary, len(numeric))
	for i, name := range numeric {
		summaries[i] = Describe(t.NumericValues(name))
	}
	rows := []struct {
		label string
		pick  func(Summary) string
	}{
		{"count", func(s Summary) string { return strconv.Itoa(s.Count) }},
		{"mean", func(s Summary) string { return fmt.Sprintf("%.2f", s.Mean) }},
		{"std", func(s Summary) string { return fmt.Sprintf("%.2f", s.Std) }},
		{"min", func(s Summary) string { return fmt.Sprintf("%.2f", s.Min) }},
		{"25%", func(s Summary) string { return fmt.Sprintf("%.2f", s.Q25) }},
		{"50%", func(s Summary) string { return fmt.Sprintf("%.2f", s.Median) }},
		{"75%", func(s Summary) string { return fmt.Sprintf("%.2f", s.Q75) }},
		{"max", func(s Summary) string { return fmt.Sprintf("%.2f", s.Max) }},
	}
	for _, row := range rows {
		sb.WriteString("\n" + padCell(row.label))
		for _, s := range summaries {
			sb.WriteString(padCell(row.pick(s)))
		}
	}
	chunks = append(chunks, sb.String())
	return chunks
}

func rowBatchChunks(t *Table, chunkSize int) []string {
	if t.NumRows() == 0 || t.NumCols() == 0 {
		return nil
	}

	// Rough fit of rendered rows into the chunk budget, assuming ~20
	// characters per rendered cell.
	rowsPer := chunkSize / (t.NumCols() * 20)
	if rowsPer < 1 {
		rowsPer = 1
	}

	chunks := make([]string, 0, (t.NumRows()+rowsPer-1)/rowsPer)
	for start := 0; start < t.NumRows(); start += rowsPer {
		end := start + rowsPer
		if end > t.NumRows() {
			end = t.NumRows()
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Data Rows %d-%d:\n", start+1, end)
		sb.WriteString(renderRows(t, start, end))
		chunks = append(chunks, sb.String())
	}
	return chunks
}

func categoryChunks(t *Table, categorical []string) []string {
	chunks := make([]string, 0, len(categorical))
	for _, name := range categorical {
		counts := valueCounts(t.Column(name))
		if len(counts) == 0 || len(counts) > 50 {
			continue
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Category Analysis for %s:", name)
		for _, vc := range counts {
			fmt.Fprintf(&sb, "\n%s: %d", vc.value, vc.count)
		}
		chunks = append(chunks, sb.String())
	}
	return chunks
}

func timeSeriesChunks(t *Table, date, numeric []string, logger *zap.Logger) (chunks, skipped []string) {
	for _, dateCol := range date {
		chunk, err := timeSeriesChunk(t, dateCol, numeric)
		if err != nil {
			logger.Warn("skipping time-series facet",
				zap.String("column", dateCol),
				zap.Error(err))
			skipped = append(skipped, "time_series:"+dateCol)
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, skipped
}

func timeSeriesChunk(t *Table, dateCol string, numeric []string) (string, error) {
	values := t.Column(dateCol)
	parsed := make(map[int]string, len(values)) // row -> month bucket
	var minTS, maxTS string
	var haveRange bool
	var first, last int64

	for i, v := range values {
		if v == "" {
			continue
		}
		ts, ok := ParseDate(v)
		if !ok {
			return "", fmt.Errorf("unparseable date %q", v)
		}
		parsed[i] = ts.Format("2006-01")
		unix := ts.Unix()
		if !haveRange || unix < first {
			first = unix
			minTS = ts.Format("2006-01-02")
		}
		if !haveRange || unix > last {
			last = unix
			maxTS = ts.Format("2006-01-02")
		}
		haveRange = true
	}
	if !haveRange {
		return "", fmt.Errorf("column %s has no dates", dateCol)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Time Series Analysis for %s:\n", dateCol)
	fmt.Fprintf(&sb, "Date Range: %s to %s\n", minTS, maxTS)
	fmt.Fprintf(&sb, "Total Days: %d", (last-first)/86400)

	if len(numeric) == 0 {
		return sb.String(), nil
	}

	// Month-bucketed sums of every numeric column.
	sums := make(map[string][]float64)
	for i := range t.Rows {
		bucket, ok := parsed[i]
		if !ok {
			continue
		}
		if _, ok := sums[bucket]; !ok {
			sums[bucket] = make([]float64, len(numeric))
		}
		for j, name := range numeric {
			if f, err := strconv.ParseFloat(t.Rows[i][t.columnIndex(name)], 64); err == nil {
				sums[bucket][j] += f
			}
		}
	}

	months := make([]string, 0, len(sums))
	for m := range sums {
		months = append(months, m)
	}
	sort.Strings(months)

	sb.WriteString("\nMonthly Aggregation:\n")
	sb.WriteString(padCell("month"))
	for _, name := range numeric {
		sb.WriteString(padCell(name))
	}
	for _, m := range months {
		sb.WriteString("\n" + padCell(m))
		for j := range numeric {
			sb.WriteString(padCell(fmt.Sprintf("%.2f", sums[m][j])))
		}
	}
	return sb.String(), nil
}

type valueCount struct {
	value string
	count int
}

// valueCounts tallies non-missing values, ordered by descending count with
// ties broken lexicographically.
func valueCounts(values []string) []valueCount {
	tally := make(map[string]int)
	for _, v := range values {
		if v != "" {
			tally[v]++
		}
	}
	counts := make([]valueCount, 0, len(tally))
	for v, c := range tally {
		counts = append(counts, valueCount{value: v, count: c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].value < counts[j].value
	})
	return counts
}

func renderRows(t *Table, start, end int) string {
	widths := make([]int, t.NumCols())
	for i, name := range t.Columns {
		widths[i] = len(name)
	}
	for _, row := range t.Rows[start:end] {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder
	for i, name := range t.Columns {
		if i > 0 {
			sb.WriteString("  ")
		}
		fmt.Fprintf(&sb, "%-*s", widths[i], name)
	}
	for _, row := range t.Rows[start:end] {
		sb.WriteString("\n")
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			fmt.Fprintf(&sb, "%-*s", widths[i], cell)
		}
	}
	return sb.String()
}

func padCell(s string) string {
	return fmt.Sprintf("%-12s", s)
}

func orNone(names []string) string {
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, ", ")
}
