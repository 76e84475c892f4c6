package config

import (
	"fmt"
	"os"
	"strings"

	hjson "github.com/hjson/hjson-go/v4"

	"smb_forecast/pkg/core/validate"
)

// LoadThresholds reads a validation threshold document, layered over the
// defaults so a partial file only overrides what it names. Files ending in
// .hjson may carry comments and unquoted keys; anything else is parsed as
// (repairable) JSON. A missing file yields the defaults.
func LoadThresholds(path string) (validate.Thresholds, error) {
	thresholds := validate.DefaultThresholds()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return thresholds, nil
	}
	if err != nil {
		return thresholds, fmt.Errorf("reading threshold file %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".hjson") {
		err = hjson.Unmarshal(data, &thresholds)
	} else {
		err = unmarshalLenient(data, &thresholds)
	}
	if err != nil {
		return thresholds, fmt.Errorf("parsing threshold file %s: %w", path, err)
	}

	if err := thresholds.Validate(); err != nil {
		return thresholds, fmt.Errorf("threshold file %s: %w", path, err)
	}
	return thresholds, nil
}
