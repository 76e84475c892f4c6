// Command pipeline runs the forecast pipeline from the command line: parse
// QuickBooks CSV exports, load scenarios and annotations, forecast every
// scenario, and write a Markdown report.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"smb_forecast/pkg/core/config"
	"smb_forecast/pkg/core/ingest"
	"smb_forecast/pkg/core/pipeline"
	"smb_forecast/pkg/core/report"
	"smb_forecast/pkg/models"
)

func main() {
	godotenv.Load()

	cashFlowPath := flag.String("cashflow", "", "QuickBooks Statement of Cash Flows CSV export")
	plPath := flag.String("pl", "", "QuickBooks Profit and Loss CSV export")
	scenarioPath := flag.String("scenarios", "scenarios.json", "scenario collection document")
	annotationPath := flag.String("annotations", "annotations.json", "anomaly annotation document")
	thresholdPath := flag.String("thresholds", "thresholds.hjson", "validation threshold document")
	horizon := flag.Int("horizon", 12, "forecast horizon in months")
	out := flag.String("out", "forecast_report.md", "output report path")
	flag.Parse()

	if *cashFlowPath == "" || *plPath == "" {
		fmt.Fprintln(os.Stderr, "both -cashflow and -pl are required")
		flag.Usage()
		os.Exit(2)
	}

	cashFlow, err := parseCashFlow(*cashFlowPath)
	if err != nil {
		log.Fatalf("[Pipeline] %v", err)
	}
	pl, err := parsePL(*plPath)
	if err != nil {
		log.Fatalf("[Pipeline] %v", err)
	}

	scenarios, err := config.LoadScenarios(*scenarioPath)
	if err != nil {
		log.Fatalf("[Pipeline] %v", err)
	}
	if scenarios.Len() == 0 {
		log.Fatalf("[Pipeline] no scenarios found in %s", *scenarioPath)
	}
	annotations, err := config.LoadAnnotations(*annotationPath)
	if err != nil {
		log.Fatalf("[Pipeline] %v", err)
	}
	thresholds, err := config.LoadThresholds(*thresholdPath)
	if err != nil {
		log.Fatalf("[Pipeline] %v", err)
	}

	orchestrator, err := pipeline.NewOrchestrator(cashFlow, pl, annotations, thresholds)
	if err != nil {
		log.Fatalf("[Pipeline] %v", err)
	}
	result, err := orchestrator.Run(scenarios, *horizon)
	if err != nil {
		log.Fatalf("[Pipeline] %v", err)
	}

	if err := os.WriteFile(*out, []byte(report.Markdown(result)), 0o644); err != nil {
		log.Fatalf("[Pipeline] failed to write report: %v", err)
	}
	fmt.Printf("Forecast complete: %d scenarios over %d months -> %s\n",
		len(result.Scenarios), result.ForecastHorizon, *out)
}

func parseCashFlow(path string) (*models.CashFlowStatement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ingest.ParseCashFlowCSV(f)
}

func parsePL(path string) (*models.PLStatement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ingest.ParsePLCSV(f)
}
