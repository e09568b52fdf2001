// Package insights produces a bounded, deterministic list of descriptive
// findings over a typed table: profile counts, per-column summaries, a time
// trend, the strongest correlation pair, and IQR outlier counts.
package insights

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/jaijaijai353/nika-analytics/internal/table"
)

const (
	maxSummaryColumns = 10
	maxOutlierColumns = 5
	minTrendPoints    = 4
	minOutlierValues  = 8

	// Pairs at or above this coefficient are treated as duplicate/self
	// columns and excluded from the correlation finding.
	duplicateCorrThreshold = 0.999
)

// Result holds the generated findings. Counts are zero (and omitted from
// JSON) for an empty table.
type Result struct {
	RowCount    int      `json:"row_count,omitempty"`
	ColumnCount int      `json:"column_count,omitempty"`
	Insights    []string `json:"insights"`
}

// Generate produces findings in a fixed order: profile, per-column stats,
// trend, correlation, outliers. Every step is best-effort and independently
// skippable; an empty table short-circuits to an empty result.
func Generate(t table.Table) Result {
	res := Result{Insights: []string{}}
	if t.Empty() {
		return res
	}

	res.RowCount = t.Rows
	res.ColumnCount = len(t.Columns)

	numeric := t.NumericColumns()

	for i, col := range numeric {
		if i >= maxSummaryColumns {
			break
		}
		if s, ok := summarize(col); ok {
			res.Insights = append(res.Insights, s)
		}
	}

	if s, ok := trend(t, numeric); ok {
		res.Insights = append(res.Insights, s)
	}

	if s, ok := strongestCorrelation(numeric); ok {
		res.Insights = append(res.Insights, s)
	}

	for i, col := range numeric {
		if i >= maxOutlierColumns {
			break
		}
		if s, ok := outliers(col); ok {
			res.Insights = append(res.Insights, s)
		}
	}

	return res
}

// summarize computes mean/median/population-std/min/max over the present
// values of one numeric column. Columns with no present values are skipped.
func summarize(col *table.Column) (string, bool) {
	vals, _ := col.FloatValues()
	if len(vals) == 0 {
		return "", false
	}
	mean, _ := stats.Mean(vals)
	median, _ := stats.Median(vals)
	std, _ := stats.StandardDeviationPopulation(vals)
	min, _ := stats.Min(vals)
	max, _ := stats.Max(vals)
	return fmt.Sprintf("'%s': mean=%.2f, median=%.2f, std=%.2f, min=%.2f, max=%.2f.",
		col.Name, mean, median, std, min, max), true
}

// trend reports the percent change of the first numeric column over the first
// datetime column. Rows missing either value are dropped, the remainder is
// sorted by time, and at least minTrendPoints joined points are required.
func trend(t table.Table, numeric []*table.Column) (string, bool) {
	dts := t.DatetimeColumns()
	if len(dts) == 0 || len(numeric) == 0 {
		return "", false
	}
	dt, val := dts[0], numeric[0]

	type point struct {
		when  int64
		value float64
	}
	var pts []point
	for i := 0; i < t.Rows; i++ {
		if dt.Missing[i] || val.Missing[i] {
			continue
		}
		pts = append(pts, point{when: dt.Times[i].UnixNano(), value: val.Floats[i]})
	}
	if len(pts) < minTrendPoints {
		return "", false
	}
	sort.SliceStable(pts, func(a, b int) bool { return pts[a].when < pts[b].when })

	first, last := pts[0].value, pts[len(pts)-1].value
	// A zero baseline is substituted with 1 so the division is defined. The
	// resulting percentage is a literal reading of that substitution.
	base := first
	if base == 0 {
		base = 1
	}
	change := (last - first) / base * 100
	return fmt.Sprintf("Time trend on '%s' shows a %.1f%% change from start to end.", val.Name, change), true
}

// strongestCorrelation finds the numeric column pair with the highest
// absolute Pearson coefficient below the duplicate threshold.
func strongestCorrelation(numeric []*table.Column) (string, bool) {
	if len(numeric) < 2 {
		return "", false
	}
	bestA, bestB := "", ""
	best := -1.0
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			r, ok := pairwiseCorr(numeric[i], numeric[j])
			if !ok {
				continue
			}
			abs := math.Abs(r)
			if abs >= duplicateCorrThreshold {
				continue
			}
			if abs > best {
				best = abs
				bestA, bestB = numeric[i].Name, numeric[j].Name
			}
		}
	}
	if best < 0 {
		return "", false
	}
	return fmt.Sprintf("Strongest correlation: %s ~ %s (|r|=%.2f).", bestA, bestB, best), true
}

// pairwiseCorr computes the Pearson coefficient over rows where both columns
// are present. Degenerate pairs (under two points, zero variance) are skipped.
func pairwiseCorr(a, b *table.Column) (float64, bool) {
	var xs, ys []float64
	for i := range a.Missing {
		if a.Missing[i] || b.Missing[i] {
			continue
		}
		xs = append(xs, a.Floats[i])
		ys = append(ys, b.Floats[i])
	}
	if len(xs) < 2 {
		return 0, false
	}
	r, err := stats.Pearson(xs, ys)
	if err != nil || math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

// outliers counts values outside the 1.5×IQR fences of one numeric column.
// Requires minOutlierValues present values; reports only a positive count.
func outliers(col *table.Column) (string, bool) {
	vals, _ := col.FloatValues()
	if len(vals) < minOutlierValues {
		return "", false
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr

	count := 0
	for _, v := range vals {
		if v < lower || v > upper {
			count++
		}
	}
	if count == 0 {
		return "", false
	}
	return fmt.Sprintf("%d potential outliers detected in '%s' via IQR fence.", count, col.Name), true
}

// quantile is the linear-interpolation estimator over a sorted sample:
// h = (n-1)p, interpolating between the surrounding order statistics.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
