// Package models defines the historical statement hierarchies, forecast
// scenarios, and anomaly annotations consumed by the forecast calculators.
package models

import (
	"smb_forecast/pkg/core/timeseries"
)

// =============================================================================
// STATEMENT HIERARCHY
// =============================================================================

// Cash Flow activity sections and P&L sections. The engine hard-codes monthly
// granularity and this fixed section set.
const (
	SectionOperating = "OPERATING ACTIVITIES"
	SectionInvesting = "INVESTING ACTIVITIES"
	SectionFinancing = "FINANCING ACTIVITIES"

	SectionIncome   = "Income"
	SectionCOGS     = "Cost of Goods Sold"
	SectionExpenses = "Expenses"
)

// Node is one account line in a statement hierarchy. A node is either a leaf
// carrying per-period values, or a parent carrying children. Rollup marks
// subtotal rows from the source document whose values duplicate their
// children; they are never summed.
type Node struct {
	Name     string             `json:"account_name"`
	Values   map[string]float64 `json:"values,omitempty"`
	Children []Node             `json:"children,omitempty"`
	Rollup   bool               `json:"rollup,omitempty"`
}

// IsLeaf reports whether the node's own values should be counted.
func (n Node) IsLeaf() bool {
	return len(n.Children) == 0 && !n.Rollup
}

// sumLeaves adds every leaf value under n into byPeriod.
func (n Node) sumLeaves(byPeriod map[string]float64) {
	if n.IsLeaf() {
		for period, v := range n.Values {
			byPeriod[period] += v
		}
		return
	}
	for _, child := range n.Children {
		child.sumLeaves(byPeriod)
	}
}

// SectionSeries sums the leaf values of a section per period, in the given
// period order. Parent and rollup nodes contribute only through their
// children, so subtotals are never double-counted.
func SectionSeries(nodes []Node, periods []string) timeseries.Series {
	byPeriod := map[string]float64{}
	for _, n := range nodes {
		n.sumLeaves(byPeriod)
	}
	return timeseries.FromMap(periods, byPeriod)
}

// =============================================================================
// CASH FLOW STATEMENT
// =============================================================================

// CashFlowStatement is a historical Cash Flow Statement: three activity
// sections plus the calculated cash position rows from the source document.
type CashFlowStatement struct {
	Periods       []string `json:"periods"`
	Operating     []Node   `json:"operating"`
	Investing     []Node   `json:"investing"`
	Financing     []Node   `json:"financing"`
	BeginningCash float64  `json:"beginning_cash"`
	EndingCash    float64  `json:"ending_cash"`
}

// GetPeriods returns the period labels in chronological order.
func (s *CashFlowStatement) GetPeriods() []string { return s.Periods }

// GetOperating returns the Operating Activities section nodes.
func (s *CashFlowStatement) GetOperating() []Node { return s.Operating }

// GetInvesting returns the Investing Activities section nodes.
func (s *CashFlowStatement) GetInvesting() []Node { return s.Investing }

// GetFinancing returns the Financing Activities section nodes.
func (s *CashFlowStatement) GetFinancing() []Node { return s.Financing }

// Section returns the nodes for a named activity section.
func (s *CashFlowStatement) Section(name string) []Node {
	switch name {
	case SectionOperating:
		return s.Operating
	case SectionInvesting:
		return s.Investing
	case SectionFinancing:
		return s.Financing
	}
	return nil
}

// =============================================================================
// PROFIT & LOSS STATEMENT
// =============================================================================

// PLStatement is a historical P&L statement. Cogs may be nil for service
// businesses that have no Cost of Goods Sold section.
type PLStatement struct {
	Periods  []string `json:"periods"`
	Income   []Node   `json:"income"`
	Cogs     []Node   `json:"cogs,omitempty"`
	Expenses []Node   `json:"expenses"`
}

// GetPeriods returns the period labels in chronological order.
func (s *PLStatement) GetPeriods() []string { return s.Periods }

// GetIncome returns the Income section nodes.
func (s *PLStatement) GetIncome() []Node { return s.Income }

// GetCogs returns the Cost of Goods Sold section nodes, or nil if the
// statement has no COGS section.
func (s *PLStatement) GetCogs() []Node { return s.Cogs }

// GetExpenses returns the Expenses section nodes.
func (s *PLStatement) GetExpenses() []Node { return s.Expenses }

// HasCogs reports whether the statement carries a COGS section.
func (s *PLStatement) HasCogs() bool { return s.Cogs != nil }
