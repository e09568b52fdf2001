// Package anomaly flags anomalous rows of a typed table.
//
// The primary strategy is an isolation forest with a fixed seed; when the
// capability is disabled or the forest cannot be built, a per-column z-score
// threshold is used instead. Returned identifiers always refer to positions
// in the caller's original input, never into the filtered working subset.
package anomaly

import (
	"log/slog"

	"github.com/montanaflynn/stats"

	"github.com/jaijaijai353/nika-analytics/internal/table"
)

// seed fixes the isolation forest's randomness so results are reproducible.
const seed = 42

// zThreshold flags a row when any selected column deviates this many
// population standard deviations from its mean.
const zThreshold = 3.0

// epsilon keeps the z denominator non-zero for constant columns.
const epsilon = 1e-9

// Result holds the original row identifiers classified as anomalous.
type Result struct {
	Anomalies []int `json:"anomalies"`
}

// Detector runs anomaly detection with a capability flag resolved at startup.
type Detector struct {
	iforestEnabled bool
	logger         *slog.Logger
}

// New creates a Detector. iforestEnabled gates the primary strategy; when
// false detection deterministically uses the z-score fallback.
func New(logger *slog.Logger, iforestEnabled bool) *Detector {
	return &Detector{iforestEnabled: iforestEnabled, logger: logger}
}

// Detect classifies rows over the selected numeric columns (default: all
// numeric columns). Empty tables, empty selections, and subsets emptied by
// missing-value dropping all yield an empty result.
func (d *Detector) Detect(t table.Table, columns []string) Result {
	res := Result{Anomalies: []int{}}
	if t.Empty() {
		return res
	}

	cols := selectColumns(t, columns)
	if len(cols) == 0 {
		return res
	}

	// Working subset: rows with every selected value present, keyed by
	// original row identifier.
	var rowIDs []int
	var matrix [][]float64
	for i := 0; i < t.Rows; i++ {
		ok := true
		for _, c := range cols {
			if c.Missing[i] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c.Floats[i]
		}
		rowIDs = append(rowIDs, i)
		matrix = append(matrix, row)
	}
	if len(matrix) == 0 {
		return res
	}

	if d.iforestEnabled && len(matrix) >= 2 {
		res.Anomalies = flagWithForest(matrix, rowIDs)
		return res
	}

	if d.iforestEnabled {
		d.logger.Debug("too few rows for isolation forest, using z-score fallback", "rows", len(matrix))
	}
	res.Anomalies = flagWithZScore(matrix, rowIDs)
	return res
}

// selectColumns resolves the working column set: the named columns that
// exist and are numeric, or every numeric column when no names are given.
func selectColumns(t table.Table, names []string) []*table.Column {
	if len(names) == 0 {
		return t.NumericColumns()
	}
	var out []*table.Column
	for _, name := range names {
		if c := t.Column(name); c != nil && c.Kind == table.KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// flagWithForest scores every row and flags those that stand out from the
// sample's own score distribution: strictly above both the 0.5 floor and
// mean + scoreSpreadFactor*std. Constant data scores uniformly at the floor
// and nothing is flagged.
func flagWithForest(matrix [][]float64, rowIDs []int) []int {
	forest := newIsolationForest(matrix, defaultTrees, defaultSubsample, seed)
	scores := make([]float64, len(matrix))
	for i, row := range matrix {
		scores[i] = forest.score(row)
	}
	mean, _ := stats.Mean(scores)
	std, _ := stats.StandardDeviationPopulation(scores)
	cut := mean + scoreSpreadFactor*std
	if cut < scoreFloor {
		cut = scoreFloor
	}

	flagged := []int{}
	for i, s := range scores {
		if s > cut {
			flagged = append(flagged, rowIDs[i])
		}
	}
	return flagged
}

// flagWithZScore standardizes each column and flags a row when any value's
// |z| exceeds the threshold.
func flagWithZScore(matrix [][]float64, rowIDs []int) []int {
	ncols := len(matrix[0])
	means := make([]float64, ncols)
	stds := make([]float64, ncols)
	for j := 0; j < ncols; j++ {
		col := make([]float64, len(matrix))
		for i := range matrix {
			col[i] = matrix[i][j]
		}
		means[j], _ = stats.Mean(col)
		stds[j], _ = stats.StandardDeviationPopulation(col)
	}

	flagged := []int{}
	for i, row := range matrix {
		for j, v := range row {
			z := (v - means[j]) / (stds[j] + epsilon)
			if z > zThreshold || z < -zThreshold {
				flagged = append(flagged, rowIDs[i])
				break
			}
		}
	}
	return flagged
}
