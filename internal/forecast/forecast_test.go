package forecast_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaijaijai353/nika-analytics/internal/forecast"
	"github.com/jaijaijai353/nika-analytics/internal/table"
	"github.com/jaijaijai353/nika-analytics/internal/testutil"
)

func inferFromJSON(t *testing.T, raw string) table.Table {
	t.Helper()
	var records []table.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &records))
	return table.Infer(records)
}

func TestForecastEmptyTable(t *testing.T) {
	f := forecast.New(testutil.TestLogger(), false)
	res := f.Forecast(table.Table{}, "v", "")

	assert.Equal(t, "No data or missing target.", res.Message)
	assert.Empty(t, res.Forecast)
	assert.Zero(t, res.Steps)
}

func TestForecastMissingTargetColumn(t *testing.T) {
	f := forecast.New(testutil.TestLogger(), false)
	tab := inferFromJSON(t, `[{"v":1},{"v":2}]`)
	res := f.Forecast(tab, "nope", "")

	assert.Equal(t, "No data or missing target.", res.Message)
	assert.Empty(t, res.Forecast)
}

func TestForecastNonNumericTarget(t *testing.T) {
	f := forecast.New(testutil.TestLogger(), false)
	tab := inferFromJSON(t, `[{"v":"red"},{"v":"blue"}]`)
	res := f.Forecast(tab, "v", "")

	assert.Equal(t, "Target column 'v' is not numeric.", res.Message)
	assert.Empty(t, res.Forecast)
}

func TestForecastNoObservations(t *testing.T) {
	f := forecast.New(testutil.TestLogger(), false)
	// A column needs at least one parsed value to infer as numeric, so mark
	// the remaining value missing after inference to empty the series.
	tab := inferFromJSON(t, `[{"v":1},{"v":null}]`)
	tab.Columns[0].Missing[0] = true

	res := f.Forecast(tab, "v", "")
	assert.Equal(t, "No observations for target 'v'.", res.Message)
	assert.Empty(t, res.Forecast)
}

func TestForecastMovingAverageFallback(t *testing.T) {
	f := forecast.New(testutil.TestLogger(), false)
	tab := inferFromJSON(t, `[{"v":1},{"v":2},{"v":3},{"v":4},{"v":5},{"v":6},{"v":7}]`)
	res := f.Forecast(tab, "v", "")

	require.Len(t, res.Forecast, forecast.Steps)
	assert.Equal(t, forecast.Steps, res.Steps)
	assert.Empty(t, res.Message)
	// Window clamps to 2, so every step repeats mean(6, 7).
	for _, v := range res.Forecast {
		assert.InDelta(t, 6.5, v, 1e-9)
	}
}

func TestForecastSinglePointUsesLastValue(t *testing.T) {
	f := forecast.New(testutil.TestLogger(), false)
	tab := inferFromJSON(t, `[{"v":5}]`)
	res := f.Forecast(tab, "v", "")

	require.Len(t, res.Forecast, forecast.Steps)
	for _, v := range res.Forecast {
		assert.InDelta(t, 5.0, v, 1e-9)
	}
}

func TestForecastSortsByTimeColumn(t *testing.T) {
	f := forecast.New(testutil.TestLogger(), false)
	// Out of order by date. After sorting the tail is 6, 7 and the fallback
	// projects 6.5. Without sorting the tail would be 1, 2.
	tab := inferFromJSON(t, `[
		{"d":"2024-01-06","v":6},
		{"d":"2024-01-07","v":7},
		{"d":"2024-01-03","v":3},
		{"d":"2024-01-04","v":4},
		{"d":"2024-01-05","v":5},
		{"d":"2024-01-01","v":1},
		{"d":"2024-01-02","v":2}
	]`)
	res := f.Forecast(tab, "v", "d")

	require.Len(t, res.Forecast, forecast.Steps)
	for _, v := range res.Forecast {
		assert.InDelta(t, 6.5, v, 1e-9)
	}
}

func TestForecastIgnoresNonDatetimeTimeColumn(t *testing.T) {
	f := forecast.New(testutil.TestLogger(), false)
	tab := inferFromJSON(t, `[{"v":1},{"v":2},{"v":3},{"v":4},{"v":5},{"v":6},{"v":7}]`)
	// "v" is numeric, not datetime, so row order is used.
	res := f.Forecast(tab, "v", "v")

	require.Len(t, res.Forecast, forecast.Steps)
	for _, v := range res.Forecast {
		assert.InDelta(t, 6.5, v, 1e-9)
	}
}

func TestForecastShortSeriesSkipsModelEvenWhenEnabled(t *testing.T) {
	f := forecast.New(testutil.TestLogger(), true)
	tab := inferFromJSON(t, `[{"v":1},{"v":2},{"v":3}]`)
	res := f.Forecast(tab, "v", "")

	require.Len(t, res.Forecast, forecast.Steps)
	// window 2, mean(2, 3)
	for _, v := range res.Forecast {
		assert.InDelta(t, 2.5, v, 1e-9)
	}
}

func TestForecastLongSeriesReturnsFullHorizon(t *testing.T) {
	f := forecast.New(testutil.TestLogger(), true)
	tab := inferFromJSON(t, `[
		{"v":10},{"v":12},{"v":11},{"v":13},{"v":12},{"v":14},
		{"v":13},{"v":15},{"v":14},{"v":16},{"v":15},{"v":17}
	]`)
	res := f.Forecast(tab, "v", "")

	// Whether the model fits or the fallback engages, the horizon is fixed.
	require.Len(t, res.Forecast, forecast.Steps)
	assert.Equal(t, forecast.Steps, res.Steps)
	assert.Empty(t, res.Message)
}

func TestForecastDisabledIsDeterministic(t *testing.T) {
	f := forecast.New(testutil.TestLogger(), false)
	tab := inferFromJSON(t, `[
		{"v":10},{"v":12},{"v":11},{"v":13},{"v":12},{"v":14},
		{"v":13},{"v":15},{"v":14},{"v":16},{"v":15},{"v":17}
	]`)
	first := f.Forecast(tab, "v", "")
	second := f.Forecast(tab, "v", "")
	assert.Equal(t, first, second)

	// 12 points gives window 3, mean(16, 15, 17) = 16.
	for _, v := range first.Forecast {
		assert.InDelta(t, 16.0, v, 1e-9)
	}
}
