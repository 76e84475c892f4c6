// Package config loads and saves the JSON, HJSON and YAML documents that
// drive a forecast run: scenario collections, anomaly annotations, validation
// thresholds, and application settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"smb_forecast/pkg/models"
)

// LoadScenarios reads a scenario collection document. A missing file is an
// empty collection, not an error. Hand-edited documents with trailing commas,
// comments or single quotes are repaired before parsing.
func LoadScenarios(path string) (*models.ScenarioCollection, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &models.ScenarioCollection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %s: %w", path, err)
	}

	var collection models.ScenarioCollection
	if err := unmarshalLenient(data, &collection); err != nil {
		return nil, fmt.Errorf("parsing scenario file %s: %w", path, err)
	}
	return &collection, nil
}

// SaveScenarios writes the collection as indented JSON.
func SaveScenarios(path string, collection *models.ScenarioCollection) error {
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding scenarios: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing scenario file %s: %w", path, err)
	}
	return nil
}

// LoadAnnotations reads an anomaly annotation document. A missing file is an
// empty set.
func LoadAnnotations(path string) (*models.AnnotationSet, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &models.AnnotationSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading annotation file %s: %w", path, err)
	}

	var set models.AnnotationSet
	if err := unmarshalLenient(data, &set); err != nil {
		return nil, fmt.Errorf("parsing annotation file %s: %w", path, err)
	}
	return &set, nil
}

// SaveAnnotations writes the annotation set as indented JSON.
func SaveAnnotations(path string, set *models.AnnotationSet) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding annotations: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing annotation file %s: %w", path, err)
	}
	return nil
}

// unmarshalLenient tries strict JSON first and falls back to repairing the
// document (trailing commas, comments, single quotes) before giving up.
func unmarshalLenient(data []byte, v any) error {
	strictErr := json.Unmarshal(data, v)
	if strictErr == nil {
		return nil
	}
	repaired, err := jsonrepair.RepairJSON(string(data))
	if err != nil {
		return strictErr
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return strictErr
	}
	return nil
}
