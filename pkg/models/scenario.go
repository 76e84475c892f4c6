package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FORECAST SCENARIO
// =============================================================================

// Parameters is the flat parameter bag owned by one scenario. Growth rates are
// decimals (0.02 = 2% monthly). PlannedCapex and DebtPayments map forecast
// month index (1..horizon) to an absolute amount.
type Parameters struct {
	ForecastHorizon      int             `json:"forecast_horizon"`
	MonthlyRate          float64         `json:"monthly_rate"`
	RevenueGrowthRate    float64         `json:"revenue_growth_rate"`
	CogsTrend            float64         `json:"cogs_trend"`
	OpexTrend            float64         `json:"opex_trend"`
	CollectionPeriodDays int             `json:"collection_period_days"`
	PlannedCapex         map[int]float64 `json:"planned_capex,omitempty"`
	DebtPayments         map[int]float64 `json:"debt_payments,omitempty"`
	ConfidenceLevel      float64         `json:"confidence_level,omitempty"`
}

// Clone returns a deep copy of the parameter bag.
func (p Parameters) Clone() Parameters {
	out := p
	if p.PlannedCapex != nil {
		out.PlannedCapex = make(map[int]float64, len(p.PlannedCapex))
		for m, v := range p.PlannedCapex {
			out.PlannedCapex[m] = v
		}
	}
	if p.DebtPayments != nil {
		out.DebtPayments = make(map[int]float64, len(p.DebtPayments))
		for m, v := range p.DebtPayments {
			out.DebtPayments[m] = v
		}
	}
	return out
}

// Scenario is one named forecast scenario (Conservative/Expected/Optimistic)
// with identity metadata and its parameter bag.
type Scenario struct {
	ID          string     `json:"scenario_id"`
	Name        string     `json:"scenario_name"`
	Description string     `json:"description,omitempty"`
	CreatedDate string     `json:"created_date"`
	Parameters  Parameters `json:"parameters"`
}

// NewScenario creates a scenario with a generated ID and creation timestamp.
func NewScenario(name string, params Parameters) *Scenario {
	return &Scenario{
		ID:          uuid.New().String(),
		Name:        name,
		CreatedDate: time.Now().Format(time.RFC3339),
		Parameters:  params,
	}
}

// Clone returns a deep copy so callers can mutate parameters (e.g. the
// orchestrator's horizon override) without touching the original.
func (s *Scenario) Clone() *Scenario {
	out := *s
	out.Parameters = s.Parameters.Clone()
	return &out
}

// =============================================================================
// SCENARIO COLLECTION
// =============================================================================

// ScenarioCollection holds the named scenarios of one client configuration.
type ScenarioCollection struct {
	Scenarios []*Scenario `json:"scenarios"`
}

// Add appends a scenario to the collection.
func (c *ScenarioCollection) Add(s *Scenario) {
	c.Scenarios = append(c.Scenarios, s)
}

// Get returns the scenario with the given ID.
func (c *ScenarioCollection) Get(id string) (*Scenario, error) {
	for _, s := range c.Scenarios {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("scenario %q not found", id)
}

// Remove deletes the scenario with the given ID.
func (c *ScenarioCollection) Remove(id string) error {
	for i, s := range c.Scenarios {
		if s.ID == id {
			c.Scenarios = append(c.Scenarios[:i], c.Scenarios[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("scenario %q not found", id)
}

// List returns the scenarios in insertion order.
func (c *ScenarioCollection) List() []*Scenario { return c.Scenarios }

// Len returns the number of scenarios.
func (c *ScenarioCollection) Len() int { return len(c.Scenarios) }
