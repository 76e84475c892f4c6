package forecast

import (
	"fmt"

	"smb_forecast/pkg/core/anomaly"
	"smb_forecast/pkg/core/timeseries"
	"smb_forecast/pkg/models"
)

// =============================================================================
// VOLATILITY CALCULATOR
// =============================================================================

// Fallback ratios used when the change distribution is too sparse or
// degenerate to estimate percentiles from.
const (
	fallbackLowerRatio = 0.75
	fallbackUpperRatio = 1.25

	minChangeSample = 6
)

// VolatilityResult is the percentile ratio pair plus estimation metadata.
type VolatilityResult struct {
	LowerRatio          float64   `json:"lower_ratio"`
	UpperRatio          float64   `json:"upper_ratio"`
	LowerPercentile     float64   `json:"lower_percentile"`
	UpperPercentile     float64   `json:"upper_percentile"`
	SampleSize          int       `json:"sample_size"`
	ConfidenceLevel     float64   `json:"confidence_level"`
	ExcludedPeriodCount int       `json:"excluded_period_count"`
	InsufficientData    bool      `json:"insufficient_data_flag"`
	Warnings            []Warning `json:"warnings,omitempty"`
}

// VolatilityCalculator converts a historical value series into a pair of
// percentile-based confidence ratios relative to its median. The confidence
// level picks which percentiles of the month-over-month change distribution
// become the ratios: 80% confidence reads the 10th and 90th.
type VolatilityCalculator struct {
	data            timeseries.Series
	annotations     []models.Annotation
	confidenceLevel float64
}

// NewVolatilityCalculator validates the confidence level up front; an
// out-of-range level is a configuration error, not a data problem.
func NewVolatilityCalculator(data timeseries.Series, annotations []models.Annotation, confidenceLevel float64) (*VolatilityCalculator, error) {
	if confidenceLevel < 0.50 || confidenceLevel > 0.95 {
		return nil, fmt.Errorf("confidence level must be between 0.50 and 0.95, got %.2f", confidenceLevel)
	}
	return &VolatilityCalculator{
		data:            data,
		annotations:     annotations,
		confidenceLevel: confidenceLevel,
	}, nil
}

// Calculate estimates the lower/upper ratios. Sparse or degenerate inputs
// never fail: they fall back to fixed ±25% ratios with the insufficient-data
// flag set, so a forecast is always producible.
func (c *VolatilityCalculator) Calculate() VolatilityResult {
	result := VolatilityResult{ConfidenceLevel: c.confidenceLevel}

	series := c.data
	if filter, err := anomaly.NewDataFilter(c.data, c.annotations, models.ExcludeVolatility); err == nil {
		filtered, meta, err := filter.Filter()
		if err == nil {
			series = filtered
			result.ExcludedPeriodCount = meta.ExcludedCount
		}
		// A filter error (e.g. every period excluded) falls back to the
		// unfiltered series; volatility estimation is best-effort.
	}

	changes := series.PctChanges()
	result.SampleSize = len(changes)

	if len(changes) < minChangeSample {
		result.LowerRatio = fallbackLowerRatio
		result.UpperRatio = fallbackUpperRatio
		result.InsufficientData = true
		result.Warnings = append(result.Warnings, Warning{
			Type: WarnInsufficientData,
			Message: fmt.Sprintf("only %d month-over-month changes available (need %d), using default ±25%% volatility ratios",
				len(changes), minChangeSample),
			Fields: map[string]any{"sample_size": len(changes)},
		})
		return result
	}

	median := series.Median()
	if median == 0 {
		result.LowerRatio = fallbackLowerRatio
		result.UpperRatio = fallbackUpperRatio
		result.InsufficientData = true
		result.Warnings = append(result.Warnings, Warning{
			Type:    WarnZeroMedian,
			Message: "historical median is zero, cannot express percentiles as ratios; using default ±25% volatility ratios",
		})
		return result
	}

	// 80% confidence -> 10th/90th percentile of the change distribution.
	qLower := (1 - c.confidenceLevel) / 2
	qUpper := 1 - qLower
	result.LowerPercentile = timeseries.Quantile(changes, qLower)
	result.UpperPercentile = timeseries.Quantile(changes, qUpper)
	result.LowerRatio = 1 + result.LowerPercentile
	result.UpperRatio = 1 + result.UpperPercentile

	if (result.UpperPercentile-result.LowerPercentile)/abs(median) < 0.05 {
		result.Warnings = append(result.Warnings, Warning{
			Type:    WarnLowVariance,
			Message: "historical variance is very low relative to the median; minimum interval width will apply downstream",
			Fields: map[string]any{
				"lower_percentile": result.LowerPercentile,
				"upper_percentile": result.UpperPercentile,
			},
		})
	}

	return result
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
