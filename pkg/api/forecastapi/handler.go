// Package forecastapi exposes the forecast pipeline over HTTP: run a
// scenario collection against uploaded statements and return (and optionally
// persist) the multi-scenario result.
package forecastapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"smb_forecast/pkg/core/pipeline"
	"smb_forecast/pkg/core/report"
	"smb_forecast/pkg/core/store"
	"smb_forecast/pkg/core/validate"
	"smb_forecast/pkg/models"
)

// Handler serves the forecast endpoints. The repository may be nil when
// running without a database; results are then returned but not persisted.
type Handler struct {
	repo       store.ForecastRepository
	thresholds validate.Thresholds
}

// NewHandler creates a handler with the given persistence and thresholds.
func NewHandler(repo store.ForecastRepository, thresholds validate.Thresholds) *Handler {
	return &Handler{repo: repo, thresholds: thresholds}
}

// ForecastRequest is the POST /api/forecast payload: the historical
// statements, the scenarios to run, and the global horizon.
type ForecastRequest struct {
	ClientID        string                     `json:"client_id"`
	CashFlow        *models.CashFlowStatement  `json:"cash_flow_statement"`
	PL              *models.PLStatement        `json:"pl_statement"`
	Scenarios       *models.ScenarioCollection `json:"scenarios"`
	Annotations     *models.AnnotationSet      `json:"annotations,omitempty"`
	ForecastHorizon int                        `json:"forecast_horizon"`
}

// ForecastResponse wraps the pipeline result with a rendered summary.
type ForecastResponse struct {
	Result  *pipeline.MultiScenarioResult `json:"result"`
	Summary string                        `json:"summary_markdown"`
}

// HandleForecast runs the pipeline for one request.
func (h *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.CashFlow == nil || req.PL == nil {
		http.Error(w, "cash_flow_statement and pl_statement are required", http.StatusBadRequest)
		return
	}
	horizon := req.ForecastHorizon
	if horizon == 0 {
		horizon = 12
	}

	orchestrator, err := pipeline.NewOrchestrator(req.CashFlow, req.PL, req.Annotations, h.thresholds)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := orchestrator.Run(req.Scenarios, horizon)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if h.repo != nil && req.ClientID != "" {
		if err := h.repo.SaveResult(r.Context(), req.ClientID, result); err != nil {
			// Persistence is best-effort for the API path; the caller
			// still gets the computed result.
			fmt.Printf("[FORECAST] failed to persist result for %s: %v\n", req.ClientID, err)
		}
	}

	writeJSON(w, ForecastResponse{Result: result, Summary: report.Markdown(result)})
}

// HandleResult returns a client's last persisted forecast result.
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.repo == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		http.Error(w, "client_id query parameter is required", http.StatusBadRequest)
		return
	}

	result, err := h.repo.LoadResult(r.Context(), clientID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, result)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
