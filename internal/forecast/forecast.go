// Package forecast projects a numeric target column 12 steps forward.
//
// The primary strategy is an ARIMA(1,1,1) fit; whenever the modeling
// capability is disabled, the series is too short, or the fit fails, the
// forecaster degrades to a flat moving-average projection. The caller always
// receives a structured result: a missing or unusable target yields an empty
// projection with a message, never an error.
package forecast

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sartorproj/goarima/arima"
	"github.com/sartorproj/goarima/timeseries"

	"github.com/jaijaijai353/nika-analytics/internal/table"
)

// Steps is the fixed forecast horizon.
const Steps = 12

// minARIMAPoints is the observation floor for the primary strategy.
const minARIMAPoints = 8

// Fixed ARIMA order. Model selection is out of scope; the order is part of
// the service contract.
const (
	orderP = 1
	orderD = 1
	orderQ = 1
)

// Result is the forecast payload. Forecast always has Steps entries on
// success; on a missing-target condition it is empty and Message explains.
type Result struct {
	Forecast []float64 `json:"forecast"`
	Steps    int       `json:"steps,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// Forecaster runs forecasts with a capability flag resolved at startup.
type Forecaster struct {
	arimaEnabled bool
	logger       *slog.Logger
}

// New creates a Forecaster. arimaEnabled gates the primary strategy; when
// false every forecast deterministically uses the moving-average fallback.
func New(logger *slog.Logger, arimaEnabled bool) *Forecaster {
	return &Forecaster{arimaEnabled: arimaEnabled, logger: logger}
}

// Forecast projects the target column Steps values ahead. timeCol may be
// empty; the first datetime column is used, falling back to row order.
func (f *Forecaster) Forecast(t table.Table, target, timeCol string) Result {
	if t.Empty() {
		return Result{Message: "No data or missing target.", Forecast: []float64{}}
	}
	targetCol := t.Column(target)
	if targetCol == nil {
		return Result{Message: "No data or missing target.", Forecast: []float64{}}
	}
	if targetCol.Kind != table.KindNumeric {
		return Result{Message: fmt.Sprintf("Target column '%s' is not numeric.", target), Forecast: []float64{}}
	}

	series := f.buildSeries(t, targetCol, timeCol)
	if len(series) == 0 {
		return Result{Message: fmt.Sprintf("No observations for target '%s'.", target), Forecast: []float64{}}
	}

	if f.arimaEnabled && len(series) >= minARIMAPoints {
		if fc, err := fitARIMA(series); err == nil {
			return Result{Forecast: fc, Steps: Steps}
		} else {
			f.logger.Debug("arima fit failed, using moving-average fallback",
				"target", target, "points", len(series), "error", err)
		}
	}

	return Result{Forecast: movingAverageProjection(series), Steps: Steps}
}

// buildSeries drops rows with a missing target, orders the remainder by the
// chosen time axis, and checks for a regular sampling interval. Row order is
// the synthetic axis when no datetime column applies.
func (f *Forecaster) buildSeries(t table.Table, target *table.Column, timeCol string) []float64 {
	axis := pickTimeAxis(t, timeCol)

	if axis == nil {
		var vals []float64
		for i := 0; i < t.Rows; i++ {
			if target.Missing[i] {
				continue
			}
			vals = append(vals, target.Floats[i])
		}
		return vals
	}

	type obs struct {
		when  time.Time
		value float64
	}
	var pts []obs
	for i := 0; i < t.Rows; i++ {
		if target.Missing[i] || axis.Missing[i] {
			continue
		}
		pts = append(pts, obs{when: axis.Times[i], value: target.Floats[i]})
	}
	sort.SliceStable(pts, func(a, b int) bool { return pts[a].when.Before(pts[b].when) })

	times := make([]time.Time, len(pts))
	vals := make([]float64, len(pts))
	for i, p := range pts {
		times[i] = p.when
		vals[i] = p.value
	}

	// Frequency inference decides only whether the series is evenly sampled;
	// an irregular series is used as-is in time order.
	if step := inferFrequency(times); step > 0 {
		f.logger.Debug("series sampled at regular interval", "target", target.Name, "step", step)
	} else if len(times) > 1 {
		f.logger.Debug("series irregularly sampled, keeping time order", "target", target.Name)
	}

	return vals
}

// pickTimeAxis resolves the time column: the named column when present and
// datetime-typed, else the first datetime column, else nil (row order).
func pickTimeAxis(t table.Table, timeCol string) *table.Column {
	if timeCol != "" {
		if c := t.Column(timeCol); c != nil && c.Kind == table.KindDatetime {
			return c
		}
	}
	if dts := t.DatetimeColumns(); len(dts) > 0 {
		return dts[0]
	}
	return nil
}

// inferFrequency returns the constant interval between consecutive
// timestamps, or zero when the spacing is irregular.
func inferFrequency(times []time.Time) time.Duration {
	if len(times) < 2 {
		return 0
	}
	step := times[1].Sub(times[0])
	if step <= 0 {
		return 0
	}
	for i := 2; i < len(times); i++ {
		if times[i].Sub(times[i-1]) != step {
			return 0
		}
	}
	return step
}

// fitARIMA fits the fixed-order model and predicts Steps values. Any panic
// from the modeling library is treated the same as a fit error so the
// caller can degrade to the fallback.
func fitARIMA(series []float64) (fc []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			fc, err = nil, fmt.Errorf("arima: panic during fit: %v", r)
		}
	}()

	ts := timeseries.New(series)
	model := arima.New(orderP, orderD, orderQ)
	if err := model.Fit(ts); err != nil {
		return nil, fmt.Errorf("arima: fit: %w", err)
	}
	pred, err := model.Predict(Steps)
	if err != nil {
		return nil, fmt.Errorf("arima: predict: %w", err)
	}
	if len(pred) != Steps {
		return nil, fmt.Errorf("arima: expected %d predictions, got %d", Steps, len(pred))
	}
	return pred, nil
}

// movingAverageProjection repeats the last moving-average value (window
// clamp(n/4, 2, 5)) for every forecast step. When the window never fills,
// the last raw observation is used instead.
func movingAverageProjection(series []float64) []float64 {
	window := len(series) / 4
	if window < 2 {
		window = 2
	}
	if window > 5 {
		window = 5
	}

	last := series[len(series)-1]
	if len(series) >= window {
		sum := 0.0
		for _, v := range series[len(series)-window:] {
			sum += v
		}
		last = sum / float64(window)
	}

	out := make([]float64, Steps)
	for i := range out {
		out[i] = last
	}
	return out
}
