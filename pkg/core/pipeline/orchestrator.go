// Package pipeline runs the forecast pipeline uniformly across a scenario
// collection: per scenario, a cash flow forecast, a P&L forecast, and a
// validation pass, aggregated into one result.
package pipeline

import (
	"fmt"
	"log"
	"math"
	"time"

	"smb_forecast/pkg/core/forecast"
	"smb_forecast/pkg/core/validate"
	"smb_forecast/pkg/models"
)

// ScenarioForecast is one scenario's complete output. Validation may be nil
// when the validator failed; the forecasts themselves are always present.
type ScenarioForecast struct {
	CashFlow   *forecast.CashFlowForecast `json:"cash_flow_forecast"`
	PL         *forecast.PLForecast       `json:"pl_forecast"`
	Validation *validate.Result           `json:"validation_result"`
}

// MultiScenarioResult aggregates one orchestration run. Built fresh per run
// and read-only downstream.
type MultiScenarioResult struct {
	ForecastHorizon int                          `json:"forecast_horizon"`
	GeneratedAt     string                       `json:"generated_at"`
	Scenarios       map[string]*ScenarioForecast `json:"scenarios"`
}

// Orchestrator holds the shared historical models and validator used for
// every scenario in a run.
type Orchestrator struct {
	cashFlow    *models.CashFlowStatement
	pl          *models.PLStatement
	annotations *models.AnnotationSet
	validator   *validate.Validator
}

// NewOrchestrator builds an orchestrator over one client's historical
// statements. Threshold validation fails fast here rather than mid-run.
func NewOrchestrator(cashFlow *models.CashFlowStatement, pl *models.PLStatement, annotations *models.AnnotationSet, thresholds validate.Thresholds) (*Orchestrator, error) {
	validator, err := validate.NewValidator(thresholds)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cashFlow:    cashFlow,
		pl:          pl,
		annotations: annotations,
		validator:   validator,
	}, nil
}

// Run forecasts every scenario in the collection at one global horizon.
// Each scenario is deep-copied before its horizon is overridden, so callers'
// scenario objects are never mutated and no scenario observes another's
// override. A calculator failure aborts the whole run with the scenario's
// name; a validator failure only degrades that scenario's validation to nil.
func (o *Orchestrator) Run(collection *models.ScenarioCollection, horizon int) (*MultiScenarioResult, error) {
	result := &MultiScenarioResult{
		ForecastHorizon: horizon,
		GeneratedAt:     time.Now().Format(time.RFC3339),
		Scenarios:       map[string]*ScenarioForecast{},
	}
	if collection == nil || collection.Len() == 0 {
		return result, nil
	}

	stats := o.historicalStats()

	for _, original := range collection.List() {
		scenario := original.Clone()
		scenario.Parameters.ForecastHorizon = horizon

		log.Printf("[Orchestrator] forecasting scenario %q over %d months", scenario.Name, horizon)

		cashFlow, err := forecast.NewCashFlowCalculator(o.cashFlow, scenario, o.annotations).Calculate()
		if err != nil {
			return nil, fmt.Errorf("scenario %q: cash flow forecast failed: %w", scenario.Name, err)
		}
		pl, err := forecast.NewPLCalculator(o.pl, scenario, o.annotations).Calculate()
		if err != nil {
			return nil, fmt.Errorf("scenario %q: P&L forecast failed: %w", scenario.Name, err)
		}

		validation, err := o.validator.Validate(cashFlow, pl, stats)
		if err != nil {
			log.Printf("[Orchestrator] validation failed for scenario %q: %v", scenario.Name, err)
			validation = nil
		}

		result.Scenarios[scenario.Name] = &ScenarioForecast{
			CashFlow:   cashFlow,
			PL:         pl,
			Validation: validation,
		}
	}
	return result, nil
}

// historicalStats summarizes the Operating history for quality scoring. The
// coefficient of variation is left undefined when the mean is under $100 in
// magnitude; dividing by a near-zero mean says nothing about stability.
func (o *Orchestrator) historicalStats() *validate.HistoricalStats {
	series := models.SectionSeries(o.cashFlow.GetOperating(), o.cashFlow.GetPeriods())
	stats := &validate.HistoricalStats{
		Months:          series.Len(),
		ExcludedPeriods: len(o.annotations.ByExclusionType(models.ExcludeBaseline)),
	}
	if mean := series.Mean(); math.Abs(mean) >= 100 {
		stats.CoefficientOfVariation = series.StdDev() / math.Abs(mean)
		stats.CVDefined = true
	}
	return stats
}
