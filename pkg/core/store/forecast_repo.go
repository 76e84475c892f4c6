package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"smb_forecast/pkg/core/pipeline"
	"smb_forecast/pkg/models"
)

// ForecastRepository abstracts result persistence so callers and tests can
// swap the Postgres implementation out.
type ForecastRepository interface {
	SaveResult(ctx context.Context, clientID string, result *pipeline.MultiScenarioResult) error
	LoadResult(ctx context.Context, clientID string) (*pipeline.MultiScenarioResult, error)
	SaveScenarios(ctx context.Context, clientID string, collection *models.ScenarioCollection) error
	LoadScenarios(ctx context.Context, clientID string) (*models.ScenarioCollection, error)
}

// ForecastRepo stores one JSONB document per client per table. A single blob
// keeps the schema flexible while scenario shapes are still moving.
//
// Schema assumption:
//
//	CREATE TABLE IF NOT EXISTS forecast_results (
//	  client_id TEXT PRIMARY KEY,
//	  result_json JSONB,
//	  updated_at TIMESTAMPTZ
//	);
//	CREATE TABLE IF NOT EXISTS forecast_scenarios (
//	  client_id TEXT PRIMARY KEY,
//	  scenarios_json JSONB,
//	  updated_at TIMESTAMPTZ
//	);
type ForecastRepo struct{}

// NewForecastRepo creates a repository instance.
func NewForecastRepo() *ForecastRepo {
	return &ForecastRepo{}
}

// SaveResult upserts a client's latest multi-scenario forecast result.
func (r *ForecastRepo) SaveResult(ctx context.Context, clientID string, result *pipeline.MultiScenarioResult) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	jsonData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast result: %w", err)
	}

	query := `
		INSERT INTO forecast_results (client_id, result_json, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (client_id)
		DO UPDATE SET
			result_json = EXCLUDED.result_json,
			updated_at = EXCLUDED.updated_at;
	`
	if _, err := pool.Exec(ctx, query, clientID, jsonData, time.Now()); err != nil {
		return fmt.Errorf("failed to save forecast result: %w", err)
	}
	return nil
}

// LoadResult retrieves a client's latest stored forecast result.
func (r *ForecastRepo) LoadResult(ctx context.Context, clientID string) (*pipeline.MultiScenarioResult, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	var jsonData []byte
	err := pool.QueryRow(ctx, `SELECT result_json FROM forecast_results WHERE client_id = $1`, clientID).Scan(&jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no forecast result found for client %s", clientID)
		}
		return nil, fmt.Errorf("failed to load forecast result: %w", err)
	}

	var result pipeline.MultiScenarioResult
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal forecast result: %w", err)
	}
	return &result, nil
}

// SaveScenarios upserts a client's scenario collection.
func (r *ForecastRepo) SaveScenarios(ctx context.Context, clientID string, collection *models.ScenarioCollection) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	jsonData, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("failed to marshal scenarios: %w", err)
	}

	query := `
		INSERT INTO forecast_scenarios (client_id, scenarios_json, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (client_id)
		DO UPDATE SET
			scenarios_json = EXCLUDED.scenarios_json,
			updated_at = EXCLUDED.updated_at;
	`
	if _, err := pool.Exec(ctx, query, clientID, jsonData, time.Now()); err != nil {
		return fmt.Errorf("failed to save scenarios: %w", err)
	}
	return nil
}

// LoadScenarios retrieves a client's scenario collection. A client with no
// stored scenarios gets an empty collection, not an error.
func (r *ForecastRepo) LoadScenarios(ctx context.Context, clientID string) (*models.ScenarioCollection, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	var jsonData []byte
	err := pool.QueryRow(ctx, `SELECT scenarios_json FROM forecast_scenarios WHERE client_id = $1`, clientID).Scan(&jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &models.ScenarioCollection{}, nil
		}
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}

	var collection models.ScenarioCollection
	if err := json.Unmarshal(jsonData, &collection); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenarios: %w", err)
	}
	return &collection, nil
}
