package tabular

import (
	"math"
	"sort"
	"strconv"
)

// Summary holds descriptive statistics for one numeric column.
type Summary struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// NumericValues parses the named column's non-missing cells as floats.
// Unparseable cells are skipped.
func (t *Table) NumericValues(name string) []float64 {
	raw := t.Column(name)
	values := make([]float64, 0, len(raw))
	for _, v := range raw {
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			values = append(values, f)
		}
	}
	return values
}

// Describe computes count, mean, sample standard deviation, min, quartiles,
// and max. A single observation has zero standard deviation; an empty input
// yields the zero Summary.
func Describe(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	std := 0.0
	if n > 1 {
		for _, v := range values {
			std += (v - mean) * (v - mean)
		}
		std = math.Sqrt(std / float64(n-1))
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return Summary{
		Count:  n,
		Mean:   mean,
		Std:    std,
		Min:    sorted[0],
		Q25:    quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q75:    quantile(sorted, 0.75),
		Max:    sorted[n-1],
	}
}

// quantile interpolates linearly between the two nearest order statistics.
// sorted must be ascending and non-empty.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	frac := pos - float64(lower)
	if lower+1 >= len(sorted) {
		return sorted[lower]
	}
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// Correlate computes the Pearson correlation of two equal-length series.
// Returns 0 when either series is constant or shorter than two points.
func Correlate(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}

	meanX, meanY := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	cov, varX, varY := 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// CorrelationMatrix computes pairwise Pearson correlations between the named
// numeric columns, aligning each pair on rows where both cells parse as
// numbers.
func (t *Table) CorrelationMatrix(columns []string) [][]float64 {
	matrix := make([][]float64, len(columns))
	for i := range columns {
		matrix[i] = make([]float64, len(columns))
		for j := range columns {
			if i == j {
				matrix[i][j] = 1
				continue
			}
			xs, ys := t.alignedPair(columns[i], columns[j])
			matrix[i][j] = Correlate(xs, ys)
		}
	}
	return matrix
}

func (t *Table) alignedPair(a, b string) ([]float64, []float64) {
	colA, colB := t.Column(a), t.Column(b)
	xs := make([]float64, 0, len(colA))
	ys := make([]float64, 0, len(colB))
	for i := range colA {
		x, errA := strconv.ParseFloat(colA[i], 64)
		y, errB := strconv.ParseFloat(colB[i], 64)
		if errA != nil || errB != nil {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return xs, ys
}
