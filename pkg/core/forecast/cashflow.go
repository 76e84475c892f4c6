package forecast

import (
	"fmt"
	"math"
	"sort"

	"smb_forecast/pkg/core/anomaly"
	"smb_forecast/pkg/core/timeseries"
	"smb_forecast/pkg/models"
)

// =============================================================================
// CASH FLOW FORECAST CALCULATOR
// =============================================================================

// Cash flow forecasts report a fixed 80% confidence level; the percentile
// ratios are hard-wired to 10th/90th.
const cashFlowConfidenceLevel = 0.80

// unusualCollectionDays is the collection period beyond which a warning fires.
const unusualCollectionDays = 90

// Sections are always processed in this order. Float addition is not
// associative, so a fixed order is what makes repeated Calculate calls
// produce identical output.
var cashFlowSectionOrder = []string{models.SectionOperating, models.SectionInvesting, models.SectionFinancing}

// Operating gets a symmetric interval; Investing and Financing are mostly
// outflows and widen faster on the upside.
var cashFlowAlphas = map[string]alphaPair{
	models.SectionOperating: {lower: 0.10, upper: 0.10},
	models.SectionInvesting: {lower: 0.08, upper: 0.12},
	models.SectionFinancing: {lower: 0.08, upper: 0.12},
}

// CashFlowCalculator projects a historical Cash Flow Statement forward under
// one scenario's parameters. Calculate is stateless across calls.
type CashFlowCalculator struct {
	statement   *models.CashFlowStatement
	scenario    *models.Scenario
	annotations *models.AnnotationSet
}

// NewCashFlowCalculator wires a calculator to its inputs. Annotations may be
// nil when no anomaly exclusions exist.
func NewCashFlowCalculator(statement *models.CashFlowStatement, scenario *models.Scenario, annotations *models.AnnotationSet) *CashFlowCalculator {
	return &CashFlowCalculator{statement: statement, scenario: scenario, annotations: annotations}
}

// Calculate runs the full pipeline: baselines, compound growth, confidence
// intervals, collection-lag redistribution, planned cash events, and the cash
// position rollforward.
func (c *CashFlowCalculator) Calculate() (*CashFlowForecast, error) {
	d := &diagnostics{}
	params := c.scenario.Parameters

	if err := validateRate("monthly_rate", params.MonthlyRate, d); err != nil {
		return nil, err
	}
	horizon := params.ForecastHorizon
	if horizon < 1 {
		return nil, fmt.Errorf("forecast horizon must be at least 1 month, got %d", horizon)
	}

	periods := c.statement.GetPeriods()
	if len(periods) < minBaselinePeriods {
		d.add(WarnLimitedData,
			fmt.Sprintf("only %d months of history available; forecasts are more reliable with at least %d",
				len(periods), minBaselinePeriods),
			map[string]any{"historical_months": len(periods)})
	}

	annotations := c.annotations.GetAnnotations()
	sections := make(map[string]timeseries.SeriesTriple, 3)
	var excluded []anomaly.ExcludedPeriod

	for _, name := range cashFlowSectionOrder {
		series := models.SectionSeries(c.statement.Section(name), periods)
		filtered, excludedPeriods := baselineSeries(name, series, annotations, d)
		if len(excluded) == 0 {
			excluded = excludedPeriods
		}

		baseline := filtered.Median()
		if name == models.SectionOperating && baseline <= 0 {
			clamped := math.Max(math.Abs(baseline), 1.0)
			d.add(WarnInvalidBaseline,
				fmt.Sprintf("operating baseline of %.2f is not positive, clamped to %.2f", baseline, clamped),
				map[string]any{"baseline": baseline, "clamped": clamped})
			baseline = clamped
		}

		lowerRatio, upperRatio, err := percentileRatios(name, filtered, d)
		if err != nil {
			return nil, err
		}
		sections[name] = projectSection(baseline, params.MonthlyRate, horizon, lowerRatio, upperRatio, cashFlowAlphas[name])
	}

	spillover := c.applyCollectionLag(sections, horizon, d)
	c.applyCashEvents(sections, horizon, d)
	beginning, ending := c.rollforward(sections, horizon, d)

	return &CashFlowForecast{
		Sections:      sections,
		BeginningCash: beginning,
		EndingCash:    ending,
		Metadata: Metadata{
			ConfidenceLevel:      cashFlowConfidenceLevel,
			ForecastHorizon:      horizon,
			ExcludedPeriods:      excluded,
			Warnings:             d.warnings,
			UncollectedSpillover: spillover,
		},
	}, nil
}

// applyCollectionLag shifts Operating inflows by the scenario's collection
// period, applying the same redistribution to all three series. Amounts pushed
// past the horizon are returned as spillover rather than dropped.
func (c *CashFlowCalculator) applyCollectionLag(sections map[string]timeseries.SeriesTriple, horizon int, d *diagnostics) *Spillover {
	days := c.scenario.Parameters.CollectionPeriodDays
	if days <= 0 {
		return nil
	}
	if days > unusualCollectionDays {
		d.add(WarnUnusualCollection,
			fmt.Sprintf("collection period of %d days is unusually long; verify receivables assumptions", days),
			map[string]any{"collection_period_days": days})
	}

	shifted, residual := sections[models.SectionOperating].ApplyWithResidual(redistribute(days, horizon))
	sections[models.SectionOperating] = shifted

	if residual.Projected == 0 && residual.LowerBound == 0 && residual.UpperBound == 0 {
		return nil
	}
	return &Spillover{
		Projected:  residual.Projected,
		LowerBound: residual.LowerBound,
		UpperBound: residual.UpperBound,
		Month:      horizon,
		Message: fmt.Sprintf("%.2f of projected collections falls beyond month %d and is not counted in ending cash",
			residual.Projected, horizon),
	}
}

// redistribute returns the collection-lag transform for one series. Up to 30
// days, a days/30 fraction of each month slides one month later. Beyond 30
// days the whole amount shifts by days/30 full months; a nonzero remainder
// splits the full amount 50/50 across the target month and the next — the
// split is flat, not weighted by the remainder's size.
func redistribute(days, horizon int) func(map[int]float64) (map[int]float64, float64) {
	return func(series map[int]float64) (map[int]float64, float64) {
		out := make(map[int]float64, horizon)
		for m := 1; m <= horizon; m++ {
			out[m] = 0
		}
		var spill float64
		land := func(month int, amount float64) {
			if month <= horizon {
				out[month] += amount
			} else {
				spill += amount
			}
		}

		if days <= 30 {
			frac := float64(days) / 30.0
			for m := 1; m <= horizon; m++ {
				v := series[m]
				land(m, v*(1-frac))
				land(m+1, v*frac)
			}
			return out, spill
		}

		fullMonths := days / 30
		remaining := days % 30
		for m := 1; m <= horizon; m++ {
			v := series[m]
			target := m + fullMonths
			if remaining > 0 {
				land(target, v*0.5)
				land(target+1, v*0.5)
			} else {
				land(target, v)
			}
		}
		return out, spill
	}
}

// applyCashEvents adds planned capex to Investing and debt payments to
// Financing. Events are known commitments, so the same amount lands on all
// three series. Events beyond the horizon warn and are dropped; positive
// (inflow-direction) amounts warn but still apply.
func (c *CashFlowCalculator) applyCashEvents(sections map[string]timeseries.SeriesTriple, horizon int, d *diagnostics) {
	apply := func(events map[int]float64, section, label, positiveWarn string) {
		months := make([]int, 0, len(events))
		for m := range events {
			months = append(months, m)
		}
		sort.Ints(months)
		for _, m := range months {
			amount := events[m]
			if m < 1 || m > horizon {
				d.add(WarnEventBeyondHorizon,
					fmt.Sprintf("%s of %.2f scheduled for month %d is outside the %d-month horizon and was dropped",
						label, amount, m, horizon),
					map[string]any{"event": label, "month": m, "amount": amount})
				continue
			}
			if amount > 0 {
				d.add(positiveWarn,
					fmt.Sprintf("%s of %.2f in month %d is an inflow, which is unusual; applying as entered", label, amount, m),
					map[string]any{"event": label, "month": m, "amount": amount})
			}
			sections[section].AddAt(m, amount)
		}
	}

	apply(c.scenario.Parameters.PlannedCapex, models.SectionInvesting, "planned capex", WarnPositiveCapex)
	apply(c.scenario.Parameters.DebtPayments, models.SectionFinancing, "debt payment", WarnPositiveDebtPayment)
}

// rollforward chains the cash position month to month for each series
// independently, starting from the historical ending cash. Negative ending
// cash warns but never stops the rollforward.
func (c *CashFlowCalculator) rollforward(sections map[string]timeseries.SeriesTriple, horizon int, d *diagnostics) (beginning, ending timeseries.SeriesTriple) {
	beginning = timeseries.NewSeriesTriple()
	ending = timeseries.NewSeriesTriple()

	type lane struct {
		name string
		pick func(timeseries.SeriesTriple) map[int]float64
	}
	lanes := []lane{
		{"projected", func(t timeseries.SeriesTriple) map[int]float64 { return t.Projected }},
		{"lower_bound", func(t timeseries.SeriesTriple) map[int]float64 { return t.LowerBound }},
		{"upper_bound", func(t timeseries.SeriesTriple) map[int]float64 { return t.UpperBound }},
	}

	for _, l := range lanes {
		cash := c.statement.EndingCash
		for m := 1; m <= horizon; m++ {
			l.pick(beginning)[m] = cash
			net := 0.0
			for _, name := range cashFlowSectionOrder {
				net += l.pick(sections[name])[m]
			}
			cash += net
			l.pick(ending)[m] = cash
			if cash < 0 {
				d.add(WarnLiquidity,
					fmt.Sprintf("%s ending cash goes negative in month %d: %.2f", l.name, m, cash),
					map[string]any{"series": l.name, "month": m, "ending_cash": cash})
			}
		}
	}
	return beginning, ending
}
