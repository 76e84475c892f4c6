// Package ingest parses QuickBooks statement exports (CSV) into the account
// hierarchies the forecast calculators consume.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"smb_forecast/pkg/core/anomaly"
	"smb_forecast/pkg/models"
)

// row is one parsed statement line: indentation depth, account name, and any
// per-period values.
type row struct {
	depth  int
	name   string
	values map[string]float64
}

// ParseCashFlowCSV parses a QuickBooks Statement of Cash Flows export.
// Section headers (OPERATING/INVESTING/FINANCING ACTIVITIES) split the rows;
// "Total ..." lines become rollup nodes so subtotals are never double-counted.
func ParseCashFlowCSV(r io.Reader) (*models.CashFlowStatement, error) {
	periods, rows, err := readStatement(r)
	if err != nil {
		return nil, err
	}

	stmt := &models.CashFlowStatement{Periods: periods}
	var current *[]models.Node
	for i := 0; i < len(rows); i++ {
		name := rows[i].name
		switch strings.ToUpper(name) {
		case models.SectionOperating:
			current = &stmt.Operating
			continue
		case models.SectionInvesting:
			current = &stmt.Investing
			continue
		case models.SectionFinancing:
			current = &stmt.Financing
			continue
		}

		lower := strings.ToLower(name)
		if strings.Contains(lower, "cash at beginning of period") {
			stmt.BeginningCash = firstPeriodValue(rows[i], periods)
			current = nil
			continue
		}
		if strings.Contains(lower, "cash at end of period") {
			stmt.EndingCash = lastPeriodValue(rows[i], periods)
			current = nil
			continue
		}

		if current == nil {
			continue
		}
		node, consumed := buildNode(rows, i)
		*current = append(*current, node)
		i += consumed
	}

	if len(stmt.Operating) == 0 && len(stmt.Investing) == 0 && len(stmt.Financing) == 0 {
		return nil, fmt.Errorf("no activity sections found; is this a Statement of Cash Flows export?")
	}
	return stmt, nil
}

// ParsePLCSV parses a QuickBooks Profit and Loss export. A missing COGS
// section leaves Cogs nil, which the P&L calculator treats as a service
// business.
func ParsePLCSV(r io.Reader) (*models.PLStatement, error) {
	periods, rows, err := readStatement(r)
	if err != nil {
		return nil, err
	}

	stmt := &models.PLStatement{Periods: periods}
	var current *[]models.Node
	for i := 0; i < len(rows); i++ {
		switch rows[i].name {
		case models.SectionIncome:
			current = &stmt.Income
			continue
		case models.SectionCOGS:
			if stmt.Cogs == nil {
				stmt.Cogs = []models.Node{}
			}
			current = &stmt.Cogs
			continue
		case models.SectionExpenses:
			current = &stmt.Expenses
			continue
		}
		// Derived rows (Gross Profit, Net Income) end the preceding section.
		if rows[i].depth == 0 && len(rows[i].values) > 0 {
			current = nil
			continue
		}
		if current == nil {
			continue
		}
		node, consumed := buildNode(rows, i)
		*current = append(*current, node)
		i += consumed
	}

	if len(stmt.Income) == 0 {
		return nil, fmt.Errorf("no Income section found; is this a Profit and Loss export?")
	}
	return stmt, nil
}

// readStatement reads the CSV, locates the period header row, and converts
// the remaining lines to parsed rows.
func readStatement(r io.Reader) ([]string, []row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading statement CSV: %w", err)
	}

	headerIdx := -1
	var periods []string
	for i, record := range records {
		if len(record) < 2 {
			continue
		}
		if _, err := anomaly.ParsePeriod(strings.TrimSpace(record[1])); err == nil {
			headerIdx = i
			for _, cell := range record[1:] {
				label := strings.TrimSpace(cell)
				if label == "" || strings.EqualFold(label, "Total") {
					continue
				}
				periods = append(periods, label)
			}
			break
		}
	}
	if headerIdx < 0 {
		return nil, nil, fmt.Errorf("no period header row found in statement CSV")
	}

	var rows []row
	for _, record := range records[headerIdx+1:] {
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		parsed := row{
			depth: indentDepth(record[0]),
			name:  strings.TrimSpace(record[0]),
		}
		for col, label := range periods {
			if col+1 >= len(record) {
				break
			}
			if v, ok := parseAmount(record[col+1]); ok {
				if parsed.values == nil {
					parsed.values = map[string]float64{}
				}
				parsed.values[label] = v
			}
		}
		rows = append(rows, parsed)
	}
	return periods, rows, nil
}

// buildNode converts the row at index i (and any deeper rows following it)
// into one Node subtree. Returns the node and how many extra rows it consumed.
func buildNode(rows []row, i int) (models.Node, int) {
	r := rows[i]
	node := models.Node{
		Name:   r.name,
		Values: r.values,
		Rollup: strings.HasPrefix(r.name, "Total "),
	}

	consumed := 0
	for j := i + 1; j < len(rows) && rows[j].depth > r.depth; {
		child, n := buildNode(rows, j)
		node.Children = append(node.Children, child)
		consumed += n + 1
		j += n + 1
	}
	return node, consumed
}

// indentDepth counts leading-space indentation levels. QuickBooks indents
// nested accounts by multiples of four spaces.
func indentDepth(cell string) int {
	spaces := len(cell) - len(strings.TrimLeft(cell, " "))
	return spaces / 4
}

// parseAmount converts a QuickBooks currency cell to a float. Parentheses
// mean negative; dollar signs, commas and blanks are tolerated.
func parseAmount(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" || s == "-" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

func firstPeriodValue(r row, periods []string) float64 {
	for _, p := range periods {
		if v, ok := r.values[p]; ok {
			return v
		}
	}
	return 0
}

func lastPeriodValue(r row, periods []string) float64 {
	for i := len(periods) - 1; i >= 0; i-- {
		if v, ok := r.values[periods[i]]; ok {
			return v
		}
	}
	return 0
}
