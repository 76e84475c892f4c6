package forecast

import (
	"fmt"

	"smb_forecast/pkg/core/anomaly"
	"smb_forecast/pkg/core/timeseries"
	"smb_forecast/pkg/models"
)

// =============================================================================
// P&L FORECAST CALCULATOR
// =============================================================================

// P&L intervals use symmetric horizon scaling for every section.
var plAlpha = alphaPair{lower: 0.10, upper: 0.10}

// PLCalculator projects a historical P&L forward under one scenario's
// parameters: independent growth rates per section, volatility-derived
// confidence ratios, and algebraic margin rows.
type PLCalculator struct {
	statement   *models.PLStatement
	scenario    *models.Scenario
	annotations *models.AnnotationSet
}

// NewPLCalculator wires a calculator to its inputs. Annotations may be nil.
func NewPLCalculator(statement *models.PLStatement, scenario *models.Scenario, annotations *models.AnnotationSet) *PLCalculator {
	return &PLCalculator{statement: statement, scenario: scenario, annotations: annotations}
}

// Calculate projects Income, COGS and Expenses and derives the margin rows.
// A service business without a COGS section forecasts COGS as zero; a
// non-positive revenue baseline is unusable and fails the calculation.
func (c *PLCalculator) Calculate() (*PLForecast, error) {
	d := &diagnostics{}
	params := c.scenario.Parameters

	rates := map[string]float64{
		models.SectionIncome:   params.RevenueGrowthRate,
		models.SectionCOGS:     params.CogsTrend,
		models.SectionExpenses: params.OpexTrend,
	}
	for _, r := range []struct {
		name string
		rate float64
	}{
		{"revenue_growth_rate", params.RevenueGrowthRate},
		{"cogs_trend", params.CogsTrend},
		{"opex_trend", params.OpexTrend},
	} {
		if err := validateRate(r.name, r.rate, d); err != nil {
			return nil, err
		}
	}
	horizon := params.ForecastHorizon
	if horizon < 1 {
		return nil, fmt.Errorf("forecast horizon must be at least 1 month, got %d", horizon)
	}
	confidence := params.ConfidenceLevel
	if confidence == 0 {
		confidence = cashFlowConfidenceLevel
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

	for _, name := range []string{models.SectionIncome, models.SectionCOGS, models.SectionExpenses} {
		if name == models.SectionCOGS && !c.statement.HasCogs() {
			d.add(WarnNoCogsSection,
				"statement has no Cost of Goods Sold section; treating COGS as zero (service business)",
				nil)
			sections[name] = zeroTriple(horizon)
			continue
		}

		series := models.SectionSeries(c.sectionNodes(name), periods)
		filtered, excludedPeriods := baselineSeries(name, series, annotations, d)
		if len(excluded) == 0 {
			excluded = excludedPeriods
		}

		baseline := filtered.Median()
		if name == models.SectionIncome && baseline <= 0 {
			return nil, fmt.Errorf("income baseline of %.2f is not positive; margin projections require positive revenue", baseline)
		}

		volatility, err := NewVolatilityCalculator(series, annotations, confidence)
		if err != nil {
			return nil, err
		}
		vres := volatility.Calculate()
		d.warnings = append(d.warnings, vres.Warnings...)

		sections[name] = projectSection(baseline, rates[name], horizon, vres.LowerRatio, vres.UpperRatio, plAlpha)
	}

	return &PLForecast{
		Sections: sections,
		Margins:  deriveMargins(sections, horizon),
		Metadata: Metadata{
			ConfidenceLevel: confidence,
			ForecastHorizon: horizon,
			ExcludedPeriods: excluded,
			Warnings:        d.warnings,
		},
	}, nil
}

func (c *PLCalculator) sectionNodes(name string) []models.Node {
	switch name {
	case models.SectionIncome:
		return c.statement.GetIncome()
	case models.SectionCOGS:
		return c.statement.GetCogs()
	case models.SectionExpenses:
		return c.statement.GetExpenses()
	}
	return nil
}

// deriveMargins computes the margin rows from the projected series only.
// Net income equals operating income: no tax or interest modeling.
func deriveMargins(sections map[string]timeseries.SeriesTriple, horizon int) map[string]map[int]float64 {
	margins := map[string]map[int]float64{
		MarginGrossProfit:        {},
		MarginGrossMarginPct:     {},
		MarginOperatingIncome:    {},
		MarginOperatingMarginPct: {},
		MarginNetIncome:          {},
	}
	income := sections[models.SectionIncome].Projected
	cogs := sections[models.SectionCOGS].Projected
	expenses := sections[models.SectionExpenses].Projected

	for m := 1; m <= horizon; m++ {
		gross := income[m] - cogs[m]
		operating := gross - expenses[m]
		margins[MarginGrossProfit][m] = gross
		margins[MarginOperatingIncome][m] = operating
		margins[MarginNetIncome][m] = operating
		if income[m] > 0 {
			margins[MarginGrossMarginPct][m] = gross / income[m] * 100
			margins[MarginOperatingMarginPct][m] = operating / income[m] * 100
		} else {
			margins[MarginGrossMarginPct][m] = 0
			margins[MarginOperatingMarginPct][m] = 0
		}
	}
	return margins
}

// zeroTriple is a flat all-zero forecast for a section with no history.
func zeroTriple(horizon int) timeseries.SeriesTriple {
	t := timeseries.NewSeriesTriple()
	for m := 1; m <= horizon; m++ {
		t.Set(m, 0, 0, 0)
	}
	return t
}
