package insights_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaijaijai353/nika-analytics/internal/insights"
	"github.com/jaijaijai353/nika-analytics/internal/table"
)

func inferFromJSON(t *testing.T, raw string) table.Table {
	t.Helper()
	var records []table.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &records))
	return table.Infer(records)
}

func TestGenerateEmptyTable(t *testing.T) {
	res := insights.Generate(table.Table{})
	assert.Zero(t, res.RowCount)
	assert.Zero(t, res.ColumnCount)
	assert.Empty(t, res.Insights)
	assert.NotNil(t, res.Insights, "insights must serialize to [] not null")
}

func TestGenerateColumnSummary(t *testing.T) {
	tab := inferFromJSON(t, `[{"v":1},{"v":2},{"v":3},{"v":4}]`)
	res := insights.Generate(tab)

	require.Equal(t, 4, res.RowCount)
	require.Equal(t, 1, res.ColumnCount)
	require.NotEmpty(t, res.Insights)
	assert.Equal(t, "'v': mean=2.50, median=2.50, std=1.12, min=1.00, max=4.00.", res.Insights[0])
}

func TestGenerateSkipsAllMissingColumn(t *testing.T) {
	tab := inferFromJSON(t, `[{"v":null,"w":1},{"v":null,"w":2}]`)
	res := insights.Generate(tab)

	for _, s := range res.Insights {
		assert.NotContains(t, s, "'v'")
	}
}

func TestGenerateTrend(t *testing.T) {
	tab := inferFromJSON(t, `[
		{"d":"2024-01-04","v":20},
		{"d":"2024-01-01","v":10},
		{"d":"2024-01-02","v":12},
		{"d":"2024-01-03","v":15}
	]`)
	res := insights.Generate(tab)

	// Rows sort by date before computing change: (20-10)/10*100 = 100%.
	found := false
	for _, s := range res.Insights {
		if strings.HasPrefix(s, "Time trend") {
			found = true
			assert.Equal(t, "Time trend on 'v' shows a 100.0% change from start to end.", s)
		}
	}
	assert.True(t, found, "expected a trend insight")
}

func TestGenerateTrendZeroBaselineGuard(t *testing.T) {
	// A zero first value is substituted with 1, yielding a literal
	// percentage. This behavior is part of the contract.
	tab := inferFromJSON(t, `[
		{"d":"2024-01-01","v":0},
		{"d":"2024-01-02","v":5},
		{"d":"2024-01-03","v":10},
		{"d":"2024-01-04","v":20}
	]`)
	res := insights.Generate(tab)

	found := false
	for _, s := range res.Insights {
		if strings.HasPrefix(s, "Time trend") {
			found = true
			assert.Contains(t, s, "2000.0%")
		}
	}
	assert.True(t, found)
}

func TestGenerateTrendRequiresFourPoints(t *testing.T) {
	tab := inferFromJSON(t, `[
		{"d":"2024-01-01","v":1},
		{"d":"2024-01-02","v":2},
		{"d":"2024-01-03","v":3}
	]`)
	res := insights.Generate(tab)

	for _, s := range res.Insights {
		assert.NotContains(t, s, "Time trend")
	}
}

func TestGenerateStrongestCorrelation(t *testing.T) {
	// x2 tracks 2x closely but not perfectly, so the pair survives the
	// duplicate filter and rounds to |r|=1.00.
	tab := inferFromJSON(t, `[
		{"x":1,"x2":2},
		{"x":2,"x2":4},
		{"x":3,"x2":6},
		{"x":4,"x2":8.4}
	]`)
	res := insights.Generate(tab)

	found := false
	for _, s := range res.Insights {
		if strings.HasPrefix(s, "Strongest correlation") {
			found = true
			assert.Equal(t, "Strongest correlation: x ~ x2 (|r|=1.00).", s)
		}
	}
	assert.True(t, found, "expected a correlation insight")
}

func TestGenerateExcludesDuplicateColumns(t *testing.T) {
	// An exactly proportional pair is treated as a duplicate column.
	tab := inferFromJSON(t, `[
		{"x":1,"x2":2},
		{"x":2,"x2":4},
		{"x":3,"x2":6},
		{"x":4,"x2":8}
	]`)
	res := insights.Generate(tab)

	for _, s := range res.Insights {
		assert.NotContains(t, s, "Strongest correlation")
	}
}

func TestGenerateOutliers(t *testing.T) {
	tab := inferFromJSON(t, `[
		{"v":1},{"v":2},{"v":3},{"v":4},{"v":5},{"v":6},{"v":7},{"v":100}
	]`)
	res := insights.Generate(tab)

	found := false
	for _, s := range res.Insights {
		if strings.Contains(s, "IQR fence") {
			found = true
			assert.Equal(t, "1 potential outliers detected in 'v' via IQR fence.", s)
		}
	}
	assert.True(t, found, "expected an outlier insight")
}

func TestGenerateOutliersRequireEightValues(t *testing.T) {
	tab := inferFromJSON(t, `[
		{"v":1},{"v":2},{"v":3},{"v":4},{"v":5},{"v":6},{"v":100}
	]`)
	res := insights.Generate(tab)

	for _, s := range res.Insights {
		assert.NotContains(t, s, "IQR fence")
	}
}

func TestGenerateNoOutlierInsightWhenInsideFences(t *testing.T) {
	tab := inferFromJSON(t, `[
		{"v":1},{"v":2},{"v":3},{"v":4},{"v":5},{"v":6},{"v":7},{"v":8}
	]`)
	res := insights.Generate(tab)

	for _, s := range res.Insights {
		assert.NotContains(t, s, "IQR fence")
	}
}

func TestGenerateOrderIsDeterministic(t *testing.T) {
	raw := `[
		{"d":"2024-01-01","a":1,"b":2.2},
		{"d":"2024-01-02","a":2,"b":3.9},
		{"d":"2024-01-03","a":3,"b":6.1},
		{"d":"2024-01-04","a":4,"b":8.4}
	]`
	first := insights.Generate(inferFromJSON(t, raw))
	second := insights.Generate(inferFromJSON(t, raw))
	assert.Equal(t, first, second)

	// Fixed generation order: per-column stats, then trend, then correlation.
	require.GreaterOrEqual(t, len(first.Insights), 4)
	assert.True(t, strings.HasPrefix(first.Insights[0], "'a'"))
	assert.True(t, strings.HasPrefix(first.Insights[1], "'b'"))
	assert.True(t, strings.HasPrefix(first.Insights[2], "Time trend"))
	assert.True(t, strings.HasPrefix(first.Insights[3], "Strongest correlation"))
}
