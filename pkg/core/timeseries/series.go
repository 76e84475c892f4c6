// Package timeseries provides the ordered monthly series primitives shared by
// the forecast calculators: historical period series with percentile math, and
// the three-way (projected/lower/upper) forecast series used for confidence
// interval tracking.
package timeseries

import (
	"fmt"
	"math"
	"sort"
)

// =============================================================================
// HISTORICAL SERIES (period label -> value, chronologically ordered)
// =============================================================================

// Series is an ordered sequence of (period label, value) pairs sourced from a
// historical statement. Order is chronological and significant for
// month-over-month calculations.
type Series struct {
	periods []string
	values  []float64
}

// New creates a Series from parallel period and value slices.
func New(periods []string, values []float64) (Series, error) {
	if len(periods) != len(values) {
		return Series{}, fmt.Errorf("period/value length mismatch: %d periods, %d values", len(periods), len(values))
	}
	return Series{periods: periods, values: values}, nil
}

// FromMap builds a Series by looking up each period label in a value map.
// Periods missing from the map are skipped.
func FromMap(periods []string, byPeriod map[string]float64) Series {
	s := Series{}
	for _, p := range periods {
		if v, ok := byPeriod[p]; ok {
			s.periods = append(s.periods, p)
			s.values = append(s.values, v)
		}
	}
	return s
}

// FromValues builds a Series with synthetic period labels, for callers that
// only care about the value sequence.
func FromValues(values []float64) Series {
	periods := make([]string, len(values))
	for i := range values {
		periods[i] = fmt.Sprintf("P%d", i+1)
	}
	return Series{periods: periods, values: values}
}

// Len returns the number of periods in the series.
func (s Series) Len() int { return len(s.values) }

// Periods returns the period labels in chronological order.
func (s Series) Periods() []string { return s.periods }

// Values returns the values in chronological order.
func (s Series) Values() []float64 { return s.values }

// At returns the (period, value) pair at index i.
func (s Series) At(i int) (string, float64) { return s.periods[i], s.values[i] }

// Filter returns a new Series containing only the entries keep() accepts.
func (s Series) Filter(keep func(period string, value float64) bool) Series {
	out := Series{}
	for i, p := range s.periods {
		if keep(p, s.values[i]) {
			out.periods = append(out.periods, p)
			out.values = append(out.values, s.values[i])
		}
	}
	return out
}

// Median returns the median value, or 0 for an empty series.
func (s Series) Median() float64 { return s.Quantile(0.5) }

// Quantile returns the q-th quantile (0 <= q <= 1) using linear interpolation
// between closest ranks, matching the convention of common statistics
// packages. Returns 0 for an empty series.
func (s Series) Quantile(q float64) float64 { return Quantile(s.values, q) }

// Mean returns the arithmetic mean, or 0 for an empty series.
func (s Series) Mean() float64 {
	if len(s.values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s.values {
		sum += v
	}
	return sum / float64(len(s.values))
}

// StdDev returns the population standard deviation, or 0 for an empty series.
func (s Series) StdDev() float64 {
	n := len(s.values)
	if n == 0 {
		return 0
	}
	mean := s.Mean()
	sumSq := 0.0
	for _, v := range s.values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n))
}

// PctChanges returns the month-over-month percent changes:
// change[i] = (v[i]-v[i-1]) / v[i-1]. The undefined first entry is dropped, as
// is any change whose denominator is zero.
func (s Series) PctChanges() []float64 {
	var changes []float64
	for i := 1; i < len(s.values); i++ {
		prev := s.values[i-1]
		if prev == 0 {
			continue
		}
		changes = append(changes, (s.values[i]-prev)/prev)
	}
	return changes
}

// Quantile computes the q-th quantile of values with linear interpolation.
func Quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return values[0]
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Median computes the median of a raw value slice.
func Median(values []float64) float64 { return Quantile(values, 0.5) }

// =============================================================================
// FORECAST SERIES TRIPLE (month index 1..horizon -> value, three in parallel)
// =============================================================================

// SeriesTriple tracks a projected quantity and its confidence bounds as three
// parallel month-indexed mappings. Months run 1..horizon.
type SeriesTriple struct {
	Projected  map[int]float64 `json:"projected"`
	LowerBound map[int]float64 `json:"lower_bound"`
	UpperBound map[int]float64 `json:"upper_bound"`
}

// NewSeriesTriple returns a triple with three empty series.
func NewSeriesTriple() SeriesTriple {
	return SeriesTriple{
		Projected:  map[int]float64{},
		LowerBound: map[int]float64{},
		UpperBound: map[int]float64{},
	}
}

// Set assigns all three values for a month.
func (t SeriesTriple) Set(month int, projected, lower, upper float64) {
	t.Projected[month] = projected
	t.LowerBound[month] = lower
	t.UpperBound[month] = upper
}

// AddAt adds the same amount to all three series at a month. Used for planned
// cash events, which are known commitments rather than uncertain estimates.
func (t SeriesTriple) AddAt(month int, amount float64) {
	t.Projected[month] += amount
	t.LowerBound[month] += amount
	t.UpperBound[month] += amount
}

// Residual holds per-series amounts left over by a transform, such as revenue
// pushed past the forecast horizon by collection lag.
type Residual struct {
	Projected  float64 `json:"projected"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// Apply runs the same transform over all three series and returns a new
// triple. The input maps are not modified.
func (t SeriesTriple) Apply(fn func(series map[int]float64) map[int]float64) SeriesTriple {
	return SeriesTriple{
		Projected:  fn(t.Projected),
		LowerBound: fn(t.LowerBound),
		UpperBound: fn(t.UpperBound),
	}
}

// ApplyWithResidual is Apply for transforms that also produce a leftover
// amount per series.
func (t SeriesTriple) ApplyWithResidual(fn func(series map[int]float64) (map[int]float64, float64)) (SeriesTriple, Residual) {
	var out SeriesTriple
	var res Residual
	out.Projected, res.Projected = fn(t.Projected)
	out.LowerBound, res.LowerBound = fn(t.LowerBound)
	out.UpperBound, res.UpperBound = fn(t.UpperBound)
	return out, res
}

// Clone returns a deep copy of the triple.
func (t SeriesTriple) Clone() SeriesTriple {
	out := NewSeriesTriple()
	for m, v := range t.Projected {
		out.Projected[m] = v
	}
	for m, v := range t.LowerBound {
		out.LowerBound[m] = v
	}
	for m, v := range t.UpperBound {
		out.UpperBound[m] = v
	}
	return out
}
