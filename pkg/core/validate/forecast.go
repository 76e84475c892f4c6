// Package validate checks computed forecasts for business-rule problems and
// scores the quality of the history they were built from. Validation never
// changes a forecast; it reports on one.
package validate

import (
	"fmt"
	"math"

	"smb_forecast/pkg/core/forecast"
	"smb_forecast/pkg/core/timeseries"
	"smb_forecast/pkg/models"
)

// =============================================================================
// THRESHOLDS
// =============================================================================

// Thresholds configures every validator check. Construct with
// DefaultThresholds and override fields, then pass to NewValidator which
// range-checks the full set.
type Thresholds struct {
	CashRunwayMonths        int     `json:"cash_runway_months"`
	MarginDeclinePP         float64 `json:"margin_decline_pp"`
	RevenueGrowthMonthlyPct float64 `json:"revenue_growth_monthly_pct"`
	MarginCompressionMonths int     `json:"margin_compression_months"`

	WeightData        float64 `json:"weight_data"`
	WeightConsistency float64 `json:"weight_consistency"`
	WeightAnomaly     float64 `json:"weight_anomaly"`

	VolatilityThresholdLow  float64 `json:"volatility_threshold_low"`
	VolatilityThresholdHigh float64 `json:"volatility_threshold_high"`
	TierThresholdHigh       float64 `json:"tier_threshold_high"`
	TierThresholdMedium     float64 `json:"tier_threshold_medium"`
}

// DefaultThresholds returns the standard configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CashRunwayMonths:        3,
		MarginDeclinePP:         10.0,
		RevenueGrowthMonthlyPct: 0.30,
		MarginCompressionMonths: 2,
		WeightData:              0.50,
		WeightConsistency:       0.30,
		WeightAnomaly:           0.20,
		VolatilityThresholdLow:  0.3,
		VolatilityThresholdHigh: 0.7,
		TierThresholdHigh:       70,
		TierThresholdMedium:     40,
	}
}

// Validate range-checks every threshold and cross-checks the ones that must
// be ordered or sum to one. Out-of-range thresholds are configuration errors
// and fail immediately rather than being clamped.
func (t Thresholds) Validate() error {
	if t.CashRunwayMonths < 1 || t.CashRunwayMonths > 24 {
		return fmt.Errorf("cash_runway_months must be between 1 and 24, got %d", t.CashRunwayMonths)
	}
	if t.MarginDeclinePP < 1 || t.MarginDeclinePP > 50 {
		return fmt.Errorf("margin_decline_pp must be between 1 and 50, got %.2f", t.MarginDeclinePP)
	}
	if t.RevenueGrowthMonthlyPct < 0.10 || t.RevenueGrowthMonthlyPct > 1.00 {
		return fmt.Errorf("revenue_growth_monthly_pct must be between 0.10 and 1.00, got %.2f", t.RevenueGrowthMonthlyPct)
	}
	if t.MarginCompressionMonths < 1 || t.MarginCompressionMonths > 6 {
		return fmt.Errorf("margin_compression_months must be between 1 and 6, got %d", t.MarginCompressionMonths)
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"weight_data", t.WeightData},
		{"weight_consistency", t.WeightConsistency},
		{"weight_anomaly", t.WeightAnomaly},
	} {
		if w.value < 0 || w.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %.2f", w.name, w.value)
		}
	}
	if sum := t.WeightData + t.WeightConsistency + t.WeightAnomaly; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("quality weights must sum to 1.0, got %.3f", sum)
	}
	if t.VolatilityThresholdLow < 0.1 || t.VolatilityThresholdLow > 0.5 {
		return fmt.Errorf("volatility_threshold_low must be between 0.1 and 0.5, got %.2f", t.VolatilityThresholdLow)
	}
	if t.VolatilityThresholdHigh < 0.4 || t.VolatilityThresholdHigh > 1.5 {
		return fmt.Errorf("volatility_threshold_high must be between 0.4 and 1.5, got %.2f", t.VolatilityThresholdHigh)
	}
	if t.VolatilityThresholdHigh <= t.VolatilityThresholdLow {
		return fmt.Errorf("volatility_threshold_high (%.2f) must exceed volatility_threshold_low (%.2f)",
			t.VolatilityThresholdHigh, t.VolatilityThresholdLow)
	}
	if t.TierThresholdHigh < 50 || t.TierThresholdHigh > 90 {
		return fmt.Errorf("tier_threshold_high must be between 50 and 90, got %.1f", t.TierThresholdHigh)
	}
	if t.TierThresholdMedium < 20 || t.TierThresholdMedium > 60 {
		return fmt.Errorf("tier_threshold_medium must be between 20 and 60, got %.1f", t.TierThresholdMedium)
	}
	if t.TierThresholdHigh <= t.TierThresholdMedium {
		return fmt.Errorf("tier_threshold_high (%.1f) must exceed tier_threshold_medium (%.1f)",
			t.TierThresholdHigh, t.TierThresholdMedium)
	}
	return nil
}

// =============================================================================
// RESULT MODELS
// =============================================================================

// Issue severities and overall statuses.
const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
	SeverityInfo     = "INFO"

	StatusCritical = "CRITICAL"
	StatusWarning  = "WARNING"
	StatusPass     = "PASS"

	QualityHigh   = "High"
	QualityMedium = "Medium"
	QualityLow    = "Low"
)

// Issue is one validation finding.
type Issue struct {
	Check    string         `json:"check"`
	Severity string         `json:"severity"`
	Message  string         `json:"message"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// Quality is the weighted data-quality assessment.
type Quality struct {
	Score            float64 `json:"score"`
	Level            string  `json:"level"`
	DataScore        float64 `json:"data_score"`
	ConsistencyScore float64 `json:"consistency_score"`
	AnomalyScore     float64 `json:"anomaly_score"`
	Explanation      string  `json:"explanation"`
}

// Result is one validation pass over a scenario's forecast pair.
type Result struct {
	Status  string  `json:"status"`
	Issues  []Issue `json:"issues"`
	Quality Quality `json:"quality"`
}

// HistoricalStats summarizes the history behind a forecast for quality
// scoring. CVDefined is false when the mean is too close to zero for the
// coefficient of variation to mean anything.
type HistoricalStats struct {
	Months                 int     `json:"months"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
	CVDefined              bool    `json:"cv_defined"`
	ExcludedPeriods        int     `json:"excluded_periods"`
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator runs seven independent checks and a quality score over one
// scenario's computed forecasts.
type Validator struct {
	thresholds Thresholds
}

// NewValidator fails fast on an invalid threshold set.
func NewValidator(t Thresholds) (*Validator, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid validation thresholds: %w", err)
	}
	return &Validator{thresholds: t}, nil
}

// Validate runs every check. stats may be nil when the caller has no
// historical summary; scoring then assumes a year of moderately volatile
// data so the other checks still run.
func (v *Validator) Validate(cf *forecast.CashFlowForecast, pl *forecast.PLForecast, stats *HistoricalStats) (*Result, error) {
	if cf == nil || pl == nil {
		return nil, fmt.Errorf("validation requires both a cash flow and a P&L forecast")
	}
	if stats == nil {
		stats = &HistoricalStats{Months: 12, CoefficientOfVariation: 0.4, CVDefined: true}
	}

	horizon := cf.Metadata.ForecastHorizon
	var issues []Issue

	issues = append(issues, v.checkCashRunway(cf, horizon)...)
	issues = append(issues, v.checkSustainedGrowth(pl, horizon)...)
	issues = append(issues, v.checkMarginCompression(pl, horizon)...)
	issues = append(issues, v.checkMarginDecline(pl, horizon)...)
	issues = append(issues, v.checkBoundsOrdering(cf, pl)...)
	issues = append(issues, v.checkRevenueZeroCrossing(pl)...)

	result := &Result{
		Status:  StatusPass,
		Issues:  issues,
		Quality: v.scoreQuality(stats),
	}
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			result.Status = StatusCritical
			break
		}
		result.Status = StatusWarning
	}
	return result, nil
}

// checkCashRunway finds the first month projected ending cash goes negative.
// Going negative in month 1 means the business is already out of cash.
func (v *Validator) checkCashRunway(cf *forecast.CashFlowForecast, horizon int) []Issue {
	for m := 1; m <= horizon; m++ {
		if cf.EndingCash.Projected[m] >= 0 {
			continue
		}
		if m > v.thresholds.CashRunwayMonths {
			return nil
		}
		severity := SeverityInfo
		if m == 1 {
			severity = SeverityCritical
		}
		return []Issue{{
			Check:    "cash_runway",
			Severity: severity,
			Message:  fmt.Sprintf("projected ending cash goes negative in month %d (%.2f)", m, cf.EndingCash.Projected[m]),
			Fields:   map[string]any{"month": m, "ending_cash": cf.EndingCash.Projected[m]},
		}}
	}
	return nil
}

// checkSustainedGrowth flags three consecutive months of revenue growth above
// the threshold. Months growing off a base under $1000 reset the streak;
// doubling tiny revenue is not a sustained trend.
func (v *Validator) checkSustainedGrowth(pl *forecast.PLForecast, horizon int) []Issue {
	revenue := pl.Sections[models.SectionIncome].Projected
	streak := 0
	for m := 2; m <= horizon; m++ {
		prev := revenue[m-1]
		if prev < 1000 {
			streak = 0
			continue
		}
		growth := (revenue[m] - prev) / prev
		if growth > v.thresholds.RevenueGrowthMonthlyPct {
			streak++
		} else {
			streak = 0
		}
		if streak >= 3 {
			return []Issue{{
				Check:    "sustained_growth",
				Severity: SeverityWarning,
				Message: fmt.Sprintf("revenue grows more than %.0f%% month-over-month for %d consecutive months through month %d; verify the growth assumption is realistic",
					v.thresholds.RevenueGrowthMonthlyPct*100, streak, m),
				Fields: map[string]any{"months": streak, "through_month": m},
			}}
		}
	}
	return nil
}

// checkMarginCompression flags expense growth outpacing revenue growth for
// the configured number of consecutive months.
func (v *Validator) checkMarginCompression(pl *forecast.PLForecast, horizon int) []Issue {
	revenue := pl.Sections[models.SectionIncome].Projected
	expenses := pl.Sections[models.SectionExpenses].Projected
	streak := 0
	for m := 2; m <= horizon; m++ {
		prevRev, prevExp := revenue[m-1], expenses[m-1]
		if prevRev == 0 || prevExp == 0 {
			streak = 0
			continue
		}
		revGrowth := (revenue[m] - prevRev) / prevRev
		expGrowth := (expenses[m] - prevExp) / prevExp
		if expGrowth > revGrowth {
			streak++
		} else {
			streak = 0
		}
		if streak >= v.thresholds.MarginCompressionMonths {
			return []Issue{{
				Check:    "margin_compression",
				Severity: SeverityWarning,
				Message: fmt.Sprintf("expenses grow faster than revenue for %d consecutive months through month %d",
					streak, m),
				Fields: map[string]any{"months": streak, "through_month": m},
			}}
		}
	}
	return nil
}

// checkMarginDecline compares every month's operating margin to month 1 and
// reports each month whose decline exceeds the threshold.
func (v *Validator) checkMarginDecline(pl *forecast.PLForecast, horizon int) []Issue {
	margin := pl.Margins[forecast.MarginOperatingMarginPct]
	if len(margin) == 0 {
		return nil
	}
	baseline := margin[1]
	var issues []Issue
	for m := 2; m <= horizon; m++ {
		decline := baseline - margin[m]
		if decline > v.thresholds.MarginDeclinePP {
			issues = append(issues, Issue{
				Check:    "margin_decline",
				Severity: SeverityWarning,
				Message: fmt.Sprintf("operating margin in month %d is %.1fpp below the month-1 baseline of %.1f%%",
					m, decline, baseline),
				Fields: map[string]any{"month": m, "decline_pp": decline, "baseline_pct": baseline},
			})
		}
	}
	return issues
}

// checkBoundsOrdering asserts lower <= projected <= upper for ending cash,
// revenue, and net income. Net income carries no computed bounds, so months
// without bounds are skipped.
func (v *Validator) checkBoundsOrdering(cf *forecast.CashFlowForecast, pl *forecast.PLForecast) []Issue {
	rows := []struct {
		name   string
		triple timeseries.SeriesTriple
	}{
		{"ending_cash", cf.EndingCash},
		{"revenue", pl.Sections[models.SectionIncome]},
		{"net_income", timeseries.SeriesTriple{
			Projected:  pl.Margins[forecast.MarginNetIncome],
			LowerBound: map[int]float64{},
			UpperBound: map[int]float64{},
		}},
	}

	var issues []Issue
	for _, row := range rows {
		for m, projected := range row.triple.Projected {
			lower, hasLower := row.triple.LowerBound[m]
			upper, hasUpper := row.triple.UpperBound[m]
			if !hasLower || !hasUpper {
				continue
			}
			if lower > projected || projected > upper {
				issues = append(issues, Issue{
					Check:    "ci_bounds_ordering",
					Severity: SeverityWarning,
					Message: fmt.Sprintf("%s month %d violates bound ordering: lower=%.2f projected=%.2f upper=%.2f",
						row.name, m, lower, projected, upper),
					Fields: map[string]any{"row": row.name, "month": m, "lower": lower, "projected": projected, "upper": upper},
				})
			}
		}
	}
	return issues
}

// checkRevenueZeroCrossing flags a negative revenue lower bound under a
// non-negative projection. Revenue cannot go negative; net income and cash
// change legitimately cross zero and are not checked.
func (v *Validator) checkRevenueZeroCrossing(pl *forecast.PLForecast) []Issue {
	revenue := pl.Sections[models.SectionIncome]
	var issues []Issue
	for m, projected := range revenue.Projected {
		lower, ok := revenue.LowerBound[m]
		if !ok {
			continue
		}
		if lower < 0 && projected >= 0 {
			issues = append(issues, Issue{
				Check:    "ci_zero_crossing",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("revenue lower bound in month %d is negative (%.2f) while projected is non-negative", m, lower),
				Fields:   map[string]any{"month": m, "lower": lower, "projected": projected},
			})
		}
	}
	return issues
}

// scoreQuality computes the weighted quality score from history depth,
// volatility, and anomaly exclusions.
func (v *Validator) scoreQuality(stats *HistoricalStats) Quality {
	if stats.Months == 0 {
		return Quality{
			Score:       0,
			Level:       QualityLow,
			Explanation: "no historical data available; forecast quality cannot be assessed",
		}
	}

	dataScore := math.Min(100, float64(stats.Months)/24*100)

	// CV tiers: stable history scores full, moderate scores half, erratic
	// scores zero. An undefined CV lands in the middle tier.
	consistencyScore := 50.0
	if stats.CVDefined {
		switch cv := stats.CoefficientOfVariation; {
		case cv < v.thresholds.VolatilityThresholdLow:
			consistencyScore = 100
		case cv < v.thresholds.VolatilityThresholdHigh:
			consistencyScore = 50
		default:
			consistencyScore = 0
		}
	}

	anomalyScore := math.Max(0, 100-float64(stats.ExcludedPeriods)*20)

	score := dataScore*v.thresholds.WeightData +
		consistencyScore*v.thresholds.WeightConsistency +
		anomalyScore*v.thresholds.WeightAnomaly

	level := QualityLow
	switch {
	case score >= v.thresholds.TierThresholdHigh:
		level = QualityHigh
	case score >= v.thresholds.TierThresholdMedium:
		level = QualityMedium
	}

	return Quality{
		Score:            score,
		Level:            level,
		DataScore:        dataScore,
		ConsistencyScore: consistencyScore,
		AnomalyScore:     anomalyScore,
		Explanation: fmt.Sprintf("%d months of history (data %.0f), consistency %.0f, anomaly %.0f -> %s",
			stats.Months, dataScore, consistencyScore, anomalyScore, level),
	}
}
