// Package report renders a multi-scenario forecast run as a Markdown
// executive summary, with optional HTML conversion for embedding.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"smb_forecast/pkg/core/forecast"
	"smb_forecast/pkg/core/pipeline"
	"smb_forecast/pkg/core/validate"
)

// Markdown renders the run as a Markdown document: per scenario, the ending
// cash trajectory, projected net income, validation status, and warnings.
func Markdown(result *pipeline.MultiScenarioResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Forecast Summary\n\n")
	fmt.Fprintf(&b, "Horizon: %d months | Generated: %s\n\n", result.ForecastHorizon, result.GeneratedAt)

	names := make([]string, 0, len(result.Scenarios))
	for name := range result.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sf := result.Scenarios[name]
		fmt.Fprintf(&b, "## %s\n\n", name)
		writeStatus(&b, sf.Validation)
		writeCashTable(&b, sf, result.ForecastHorizon)
		writeWarnings(&b, sf)
	}
	return b.String()
}

// HTML renders the Markdown summary to HTML via goldmark.
func HTML(result *pipeline.MultiScenarioResult) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(result)), &buf); err != nil {
		return "", fmt.Errorf("rendering report HTML: %w", err)
	}
	return buf.String(), nil
}

func writeStatus(b *strings.Builder, v *validate.Result) {
	if v == nil {
		fmt.Fprintf(b, "**Validation:** unavailable\n\n")
		return
	}
	fmt.Fprintf(b, "**Validation:** %s | **Data quality:** %s (%.0f/100)\n\n",
		v.Status, v.Quality.Level, v.Quality.Score)
	for _, issue := range v.Issues {
		fmt.Fprintf(b, "- [%s] %s\n", issue.Severity, issue.Message)
	}
	if len(v.Issues) > 0 {
		fmt.Fprintln(b)
	}
}

func writeCashTable(b *strings.Builder, sf *pipeline.ScenarioForecast, horizon int) {
	ending := sf.CashFlow.EndingCash
	income := sf.PL.Margins[forecast.MarginNetIncome]

	fmt.Fprintf(b, "| Month | Ending Cash | Low | High | Net Income |\n")
	fmt.Fprintf(b, "|---:|---:|---:|---:|---:|\n")
	for m := 1; m <= horizon; m++ {
		fmt.Fprintf(b, "| %d | %.0f | %.0f | %.0f | %.0f |\n",
			m, ending.Projected[m], ending.LowerBound[m], ending.UpperBound[m], income[m])
	}
	fmt.Fprintln(b)

	if spill := sf.CashFlow.Metadata.UncollectedSpillover; spill != nil {
		fmt.Fprintf(b, "Uncollected beyond horizon: %.0f\n\n", spill.Projected)
	}
}

func writeWarnings(b *strings.Builder, sf *pipeline.ScenarioForecast) {
	warnings := make([]forecast.Warning, 0,
		len(sf.CashFlow.Metadata.Warnings)+len(sf.PL.Metadata.Warnings))
	warnings = append(warnings, sf.CashFlow.Metadata.Warnings...)
	warnings = append(warnings, sf.PL.Metadata.Warnings...)
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(b, "### Warnings\n\n")
	for _, w := range warnings {
		fmt.Fprintf(b, "- %s: %s\n", w.Type, w.Message)
	}
	fmt.Fprintln(b)
}
