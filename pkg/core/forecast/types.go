// Package forecast implements the projection engine: percentile volatility
// estimation, the Cash Flow and P&L forecast calculators, and the result
// models they produce. The algorithm is historical percentiles with
// square-root horizon scaling over a median baseline.
package forecast

import (
	"smb_forecast/pkg/core/anomaly"
	"smb_forecast/pkg/core/timeseries"
)

// =============================================================================
// WARNINGS
// =============================================================================

// Warning types attached to forecast metadata. Degraded-but-continuable
// conditions warn and proceed; they never abort a calculation.
const (
	WarnHighGrowthRate        = "HIGH_GROWTH_RATE"
	WarnHighDeclineRate       = "HIGH_DECLINE_RATE"
	WarnInvalidBaseline       = "INVALID_BASELINE"
	WarnInsufficientExclusion = "INSUFFICIENT_DATA_AFTER_EXCLUSION"
	WarnLimitedData           = "LIMITED_DATA_WARNING"
	WarnLowVariance           = "LOW_VARIANCE_MINIMUM_INTERVAL"
	WarnUnusualCollection     = "UNUSUAL_COLLECTION_PERIOD"
	WarnEventBeyondHorizon    = "EVENT_BEYOND_HORIZON"
	WarnPositiveCapex         = "UNUSUAL_POSITIVE_CAPEX"
	WarnPositiveDebtPayment   = "UNUSUAL_POSITIVE_DEBT_PAYMENT"
	WarnLiquidity             = "LIQUIDITY_WARNING"
	WarnNoCogsSection         = "NO_COGS_SECTION"
	WarnInsufficientData      = "INSUFFICIENT_DATA"
	WarnZeroMedian            = "ZERO_MEDIAN"
)

// Warning is a structured diagnostic attached to a forecast result. Fields
// carries check-specific values (rates, months, amounts).
type Warning struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// diagnostics accumulates warnings for one Calculate call. Each call owns its
// own accumulator, keeping the calculators re-entrant.
type diagnostics struct {
	warnings []Warning
}

func (d *diagnostics) add(typ, message string, fields map[string]any) {
	d.warnings = append(d.warnings, Warning{Type: typ, Message: message, Fields: fields})
}

// =============================================================================
// RESULT MODELS
// =============================================================================

// Spillover records revenue pushed past the forecast horizon by collection
// lag, tracked separately rather than discarded.
type Spillover struct {
	Projected  float64 `json:"projected"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
	Month      int     `json:"month"`
	Message    string  `json:"message"`
}

// Metadata is shared forecast result metadata.
type Metadata struct {
	ConfidenceLevel      float64                  `json:"confidence_level"`
	ForecastHorizon      int                      `json:"forecast_horizon"`
	ExcludedPeriods      []anomaly.ExcludedPeriod `json:"excluded_periods"`
	Warnings             []Warning                `json:"warnings"`
	UncollectedSpillover *Spillover               `json:"uncollected_spillover,omitempty"`
}

// CashFlowForecast is the projected Cash Flow Statement: one series triple per
// activity section plus the calculated cash position rows. Immutable after
// construction.
type CashFlowForecast struct {
	Sections      map[string]timeseries.SeriesTriple `json:"sections"`
	BeginningCash timeseries.SeriesTriple            `json:"beginning_cash"`
	EndingCash    timeseries.SeriesTriple            `json:"ending_cash"`
	Metadata      Metadata                           `json:"metadata"`
}

// PLForecast is the projected P&L: one series triple per section plus the
// calculated margin rows. Margin rows carry projected values only; confidence
// bounds are not propagated through margin arithmetic.
type PLForecast struct {
	Sections map[string]timeseries.SeriesTriple `json:"sections"`
	Margins  map[string]map[int]float64         `json:"margins"`
	Metadata Metadata                           `json:"metadata"`
}

// Margin row keys in PLForecast.Margins.
const (
	MarginGrossProfit        = "gross_profit"
	MarginGrossMarginPct     = "gross_margin_pct"
	MarginOperatingIncome    = "operating_income"
	MarginOperatingMarginPct = "operating_margin_pct"
	MarginNetIncome          = "net_income"
)
