package pipeline

import (
	"strings"
	"testing"
	"time"

	"smb_forecast/pkg/core/validate"
	"smb_forecast/pkg/models"
)

func monthLabels(n int) []string {
	labels := make([]string, n)
	start := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		labels[i] = start.AddDate(0, i, 0).Format("Jan 2006")
	}
	return labels
}

func testStatements(months int) (*models.CashFlowStatement, *models.PLStatement) {
	periods := monthLabels(months)
	constant := func(v float64) map[string]float64 {
		values := map[string]float64{}
		for _, p := range periods {
			values[p] = v
		}
		return values
	}

	cf := &models.CashFlowStatement{
		Periods:    periods,
		Operating:  []models.Node{{Name: "Net Income", Values: constant(10000)}},
		EndingCash: 25000,
	}
	pl := &models.PLStatement{
		Periods:  periods,
		Income:   []models.Node{{Name: "Sales", Values: constant(10000)}},
		Cogs:     []models.Node{{Name: "Materials", Values: constant(3000)}},
		Expenses: []models.Node{{Name: "Rent", Values: constant(5000)}},
	}
	return cf, pl
}

func TestRunForcesGlobalHorizonWithoutMutatingOriginals(t *testing.T) {
	cf, pl := testStatements(24)
	o, err := NewOrchestrator(cf, pl, nil, validate.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}

	collection := &models.ScenarioCollection{}
	conservative := models.NewScenario("Conservative", models.Parameters{ForecastHorizon: 6, MonthlyRate: -0.01})
	optimistic := models.NewScenario("Optimistic", models.Parameters{ForecastHorizon: 24, MonthlyRate: 0.05})
	collection.Add(conservative)
	collection.Add(optimistic)

	result, err := o.Run(collection, 12)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Scenarios) != 2 {
		t.Fatalf("Expected 2 scenario results, got %d", len(result.Scenarios))
	}
	for name, sf := range result.Scenarios {
		if sf.CashFlow.Metadata.ForecastHorizon != 12 {
			t.Errorf("%s: expected horizon 12, got %d", name, sf.CashFlow.Metadata.ForecastHorizon)
		}
		if sf.PL.Metadata.ForecastHorizon != 12 {
			t.Errorf("%s: expected P&L horizon 12, got %d", name, sf.PL.Metadata.ForecastHorizon)
		}
		if sf.Validation == nil {
			t.Errorf("%s: expected a validation result", name)
		}
	}

	// The caller's scenario objects keep their stored horizons.
	if conservative.Parameters.ForecastHorizon != 6 {
		t.Errorf("Conservative mutated: %d", conservative.Parameters.ForecastHorizon)
	}
	if optimistic.Parameters.ForecastHorizon != 24 {
		t.Errorf("Optimistic mutated: %d", optimistic.Parameters.ForecastHorizon)
	}
}

func TestRunEmptyCollection(t *testing.T) {
	cf, pl := testStatements(24)
	o, err := NewOrchestrator(cf, pl, nil, validate.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}

	result, err := o.Run(&models.ScenarioCollection{}, 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Scenarios) != 0 {
		t.Errorf("Expected empty result, got %d scenarios", len(result.Scenarios))
	}
	if result.ForecastHorizon != 12 {
		t.Errorf("Expected horizon 12, got %d", result.ForecastHorizon)
	}

	result, err = o.Run(nil, 12)
	if err != nil || len(result.Scenarios) != 0 {
		t.Errorf("nil collection must yield an empty result: %v", err)
	}
}

func TestRunCalculatorFailureNamesScenario(t *testing.T) {
	cf, pl := testStatements(24)
	o, err := NewOrchestrator(cf, pl, nil, validate.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}

	collection := &models.ScenarioCollection{}
	collection.Add(models.NewScenario("Broken", models.Parameters{ForecastHorizon: 6, MonthlyRate: 1.5}))

	_, err = o.Run(collection, 12)
	if err == nil {
		t.Fatal("Expected calculator failure to abort the run")
	}
	if !strings.Contains(err.Error(), "Broken") {
		t.Errorf("Error must name the offending scenario: %v", err)
	}
}

func TestNewOrchestratorRejectsBadThresholds(t *testing.T) {
	cf, pl := testStatements(24)
	bad := validate.DefaultThresholds()
	bad.WeightData = 0.9

	if _, err := NewOrchestrator(cf, pl, nil, bad); err == nil {
		t.Fatal("Expected threshold validation error at construction")
	}
}

func TestHistoricalStatsFeedQuality(t *testing.T) {
	cf, pl := testStatements(24)
	o, err := NewOrchestrator(cf, pl, nil, validate.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}

	collection := &models.ScenarioCollection{}
	collection.Add(models.NewScenario("Expected", models.Parameters{ForecastHorizon: 6, MonthlyRate: 0.01}))

	result, err := o.Run(collection, 6)
	if err != nil {
		t.Fatal(err)
	}
	quality := result.Scenarios["Expected"].Validation.Quality

	// 24 constant months: data score 100, CV = 0 -> consistency 100, no
	// exclusions -> anomaly 100.
	if quality.Score != 100 {
		t.Errorf("Expected quality 100, got %f (%s)", quality.Score, quality.Explanation)
	}
}
