package forecast

import (
	"fmt"
	"math"

	"smb_forecast/pkg/core/anomaly"
	"smb_forecast/pkg/core/timeseries"
	"smb_forecast/pkg/models"
)

// =============================================================================
// SHARED PROJECTION MACHINERY
// =============================================================================

// Baseline exclusion falls back to the full dataset when fewer than this many
// periods remain, or when less than half the original sample survives.
const minBaselinePeriods = 12

// Minimum confidence interval width as a fraction of the projected value.
const minIntervalWidth = 0.05

// alphaPair holds the horizon-scaling coefficients for one section's
// confidence interval. Asymmetric pairs bias the interval upward.
type alphaPair struct {
	lower float64
	upper float64
}

// validateRate rejects unusable growth rates and warns on aggressive ones.
// A monthly rate at or above 100% is an input error, not a scenario.
func validateRate(name string, rate float64, d *diagnostics) error {
	if rate >= 1.0 {
		return fmt.Errorf("%s of %.2f is not a plausible monthly rate (must be below 1.0)", name, rate)
	}
	if rate >= 0.20 {
		d.add(WarnHighGrowthRate,
			fmt.Sprintf("%s of %.0f%% monthly is aggressive; review scenario assumptions", name, rate*100),
			map[string]any{"parameter": name, "rate": rate})
	} else if rate <= -0.20 {
		d.add(WarnHighDeclineRate,
			fmt.Sprintf("%s of %.0f%% monthly is a steep decline; review scenario assumptions", name, rate*100),
			map[string]any{"parameter": name, "rate": rate})
	}
	return nil
}

// baselineSeries applies baseline-scope anomaly exclusion to a section series.
// Exclusion is advisory: if it would leave fewer than minBaselinePeriods
// periods, less than half the original sample, or nothing at all, the full
// series is used instead and a warning records the fallback.
func baselineSeries(section string, series timeseries.Series, annotations []models.Annotation, d *diagnostics) (timeseries.Series, []anomaly.ExcludedPeriod) {
	if len(annotations) == 0 || series.Len() == 0 {
		return series, nil
	}
	filter, err := anomaly.NewDataFilter(series, annotations, models.ExcludeBaseline)
	if err != nil {
		return series, nil
	}
	filtered, meta, err := filter.Filter()
	if err != nil {
		d.add(WarnInsufficientExclusion,
			fmt.Sprintf("%s: anomaly exclusion would remove all data, using full dataset", section),
			map[string]any{"section": section})
		return series, nil
	}
	if meta.ExcludedCount == 0 {
		return series, nil
	}
	if filtered.Len() < minBaselinePeriods || float64(filtered.Len()) < 0.5*float64(series.Len()) {
		d.add(WarnInsufficientExclusion,
			fmt.Sprintf("%s: only %d of %d periods remain after anomaly exclusion, using full dataset",
				section, filtered.Len(), series.Len()),
			map[string]any{"section": section, "remaining": filtered.Len(), "total": series.Len()})
		return series, nil
	}
	return filtered, meta.ExcludedPeriods
}

// percentileRatios derives confidence ratios from the 10th and 90th
// percentiles of the historical values, expressed relative to the median.
// An empty history yields a flat ±5% band; a zero median with data present
// cannot form a ratio and is an error. A percentile spread under 5% of the
// median warns that the downstream minimum interval width will dominate.
func percentileRatios(section string, series timeseries.Series, d *diagnostics) (lower, upper float64, err error) {
	if series.Len() == 0 {
		return 1 - minIntervalWidth, 1 + minIntervalWidth, nil
	}
	median := series.Median()
	if median == 0 {
		return 0, 0, fmt.Errorf("%s: historical median is zero, cannot derive confidence ratios", section)
	}
	p10 := series.Quantile(0.10)
	p90 := series.Quantile(0.90)
	if (p90-p10)/math.Abs(median) < minIntervalWidth {
		d.add(WarnLowVariance,
			fmt.Sprintf("%s: historical variance is very low relative to the median; minimum interval width will apply", section),
			map[string]any{"section": section})
	}
	return p10 / median, p90 / median, nil
}

// projectSection builds one section's forecast triple: compound growth from
// the baseline, with percentile-ratio confidence bounds widened by
// square-root horizon scaling and clamped to a minimum 5% band around the
// projection.
func projectSection(baseline, rate float64, horizon int, lowerRatio, upperRatio float64, alpha alphaPair) timeseries.SeriesTriple {
	triple := timeseries.NewSeriesTriple()
	for m := 1; m <= horizon; m++ {
		projected := baseline * math.Pow(1+rate, float64(m))
		scale := math.Sqrt(float64(m)) - 1
		lower := projected * lowerRatio * (1 - alpha.lower*scale)
		upper := projected * upperRatio * (1 + alpha.upper*scale)
		lower = math.Min(lower, projected-minIntervalWidth*math.Abs(projected))
		upper = math.Max(upper, projected+minIntervalWidth*math.Abs(projected))
		triple.Set(m, projected, lower, upper)
	}
	return triple
}
