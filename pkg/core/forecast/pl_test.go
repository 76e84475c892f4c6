package forecast

import (
	"math"
	"testing"

	"smb_forecast/pkg/models"
)

// plStatement builds a P&L with constant monthly leaves. cogs < 0 omits the
// COGS section entirely.
func plStatement(months int, income, cogs, expenses float64) *models.PLStatement {
	periods := monthLabels(months)
	constant := func(v float64) map[string]float64 {
		values := map[string]float64{}
		for _, p := range periods {
			values[p] = v
		}
		return values
	}
	stmt := &models.PLStatement{
		Periods:  periods,
		Income:   []models.Node{{Name: "Sales", Values: constant(income)}},
		Expenses: []models.Node{{Name: "Rent", Values: constant(expenses)}},
	}
	if cogs >= 0 {
		stmt.Cogs = []models.Node{{Name: "Materials", Values: constant(cogs)}}
	}
	return stmt
}

func TestPLMarginDerivation(t *testing.T) {
	stmt := plStatement(24, 10000, 3000, 5000)
	scenario := scenarioWith(models.Parameters{ForecastHorizon: 3})

	result, err := NewPLCalculator(stmt, scenario, nil).Calculate()
	if err != nil {
		t.Fatal(err)
	}

	// Flat rates: income 10000, cogs 3000, expenses 5000 every month.
	// gross = 7000 (70%), operating = 2000 (20%), net = operating.
	for m := 1; m <= 3; m++ {
		if math.Abs(result.Margins[MarginGrossProfit][m]-7000) > 1e-6 {
			t.Errorf("Month %d: expected gross profit 7000, got %f", m, result.Margins[MarginGrossProfit][m])
		}
		if math.Abs(result.Margins[MarginGrossMarginPct][m]-70) > 1e-6 {
			t.Errorf("Month %d: expected gross margin 70%%, got %f", m, result.Margins[MarginGrossMarginPct][m])
		}
		if math.Abs(result.Margins[MarginOperatingIncome][m]-2000) > 1e-6 {
			t.Errorf("Month %d: expected operating income 2000, got %f", m, result.Margins[MarginOperatingIncome][m])
		}
		if math.Abs(result.Margins[MarginOperatingMarginPct][m]-20) > 1e-6 {
			t.Errorf("Month %d: expected operating margin 20%%, got %f", m, result.Margins[MarginOperatingMarginPct][m])
		}
		if result.Margins[MarginNetIncome][m] != result.Margins[MarginOperatingIncome][m] {
			t.Errorf("Month %d: net income must equal operating income", m)
		}
	}

	for m := 1; m <= 3; m++ {
		income := result.Sections[models.SectionIncome]
		if !(income.LowerBound[m] < income.Projected[m] && income.Projected[m] < income.UpperBound[m]) {
			t.Errorf("Month %d: income bounds out of order", m)
		}
	}
}

func TestPLIndependentSectionRates(t *testing.T) {
	stmt := plStatement(24, 10000, 3000, 5000)
	scenario := scenarioWith(models.Parameters{
		ForecastHorizon:   2,
		RevenueGrowthRate: 0.10,
		CogsTrend:         0.05,
		OpexTrend:         -0.02,
	})

	result, err := NewPLCalculator(stmt, scenario, nil).Calculate()
	if err != nil {
		t.Fatal(err)
	}

	// Each section compounds its own rate.
	if math.Abs(result.Sections[models.SectionIncome].Projected[2]-10000*1.10*1.10) > 1e-6 {
		t.Errorf("Income month 2: got %f", result.Sections[models.SectionIncome].Projected[2])
	}
	if math.Abs(result.Sections[models.SectionCOGS].Projected[2]-3000*1.05*1.05) > 1e-6 {
		t.Errorf("COGS month 2: got %f", result.Sections[models.SectionCOGS].Projected[2])
	}
	if math.Abs(result.Sections[models.SectionExpenses].Projected[2]-5000*0.98*0.98) > 1e-6 {
		t.Errorf("Expenses month 2: got %f", result.Sections[models.SectionExpenses].Projected[2])
	}
}

func TestPLMissingCogsIsServiceBusiness(t *testing.T) {
	stmt := plStatement(24, 10000, -1, 5000)
	scenario := scenarioWith(models.Parameters{ForecastHorizon: 3})

	result, err := NewPLCalculator(stmt, scenario, nil).Calculate()
	if err != nil {
		t.Fatal(err)
	}
	if !hasWarning(result.Metadata.Warnings, WarnNoCogsSection) {
		t.Errorf("Expected %s warning", WarnNoCogsSection)
	}
	// COGS forecasts flat zero; gross profit equals income.
	if result.Sections[models.SectionCOGS].Projected[2] != 0 {
		t.Errorf("Expected zero COGS, got %f", result.Sections[models.SectionCOGS].Projected[2])
	}
	if math.Abs(result.Margins[MarginGrossProfit][1]-10000) > 1e-6 {
		t.Errorf("Expected gross profit 10000, got %f", result.Margins[MarginGrossProfit][1])
	}
}

func TestPLNonPositiveRevenueIsError(t *testing.T) {
	stmt := plStatement(24, -10000, 3000, 5000)
	scenario := scenarioWith(models.Parameters{ForecastHorizon: 3})

	if _, err := NewPLCalculator(stmt, scenario, nil).Calculate(); err == nil {
		t.Fatal("Expected error for non-positive revenue baseline")
	}
}

func TestPLRejectsUnrealisticRates(t *testing.T) {
	stmt := plStatement(24, 10000, 3000, 5000)
	for _, params := range []models.Parameters{
		{ForecastHorizon: 3, RevenueGrowthRate: 1.5},
		{ForecastHorizon: 3, CogsTrend: 1.0},
		{ForecastHorizon: 3, OpexTrend: 2.0},
	} {
		if _, err := NewPLCalculator(stmt, scenarioWith(params), nil).Calculate(); err == nil {
			t.Errorf("Expected error for rates %+v", params)
		}
	}
}

func TestPLConfidenceLevelDefaultsAndPropagates(t *testing.T) {
	stmt := plStatement(24, 10000, 3000, 5000)

	result, err := NewPLCalculator(stmt, scenarioWith(models.Parameters{ForecastHorizon: 2}), nil).Calculate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Metadata.ConfidenceLevel != 0.80 {
		t.Errorf("Expected default confidence 0.80, got %f", result.Metadata.ConfidenceLevel)
	}

	result, err = NewPLCalculator(stmt, scenarioWith(models.Parameters{ForecastHorizon: 2, ConfidenceLevel: 0.90}), nil).Calculate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Metadata.ConfidenceLevel != 0.90 {
		t.Errorf("Expected confidence 0.90, got %f", result.Metadata.ConfidenceLevel)
	}

	// An out-of-range scenario confidence level is a configuration error.
	if _, err := NewPLCalculator(stmt, scenarioWith(models.Parameters{ForecastHorizon: 2, ConfidenceLevel: 0.30}), nil).Calculate(); err == nil {
		t.Error("Expected error for confidence level 0.30")
	}
}
