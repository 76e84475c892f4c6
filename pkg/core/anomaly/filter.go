// Package anomaly filters historical data against anomaly annotations and
// flags outlier periods. The forecast calculators call DataFilter before
// baseline and volatility computation; the 2-sigma Detector produces suggested
// annotations for the presentation layer to confirm.
package anomaly

import (
	"fmt"
	"time"

	"smb_forecast/pkg/core/timeseries"
	"smb_forecast/pkg/models"
)

// ExcludedPeriod records one applied date-range exclusion for transparency in
// forecast metadata.
type ExcludedPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

// FilterMetadata describes what a filter pass removed.
type FilterMetadata struct {
	ExcludedCount       int              `json:"excluded_count"`
	TotalCount          int              `json:"total_count"`
	ExclusionPercentage float64          `json:"exclusion_percentage"`
	ExcludedPeriods     []ExcludedPeriod `json:"excluded_periods"`
	Warning             bool             `json:"warning"`
}

// DataFilter removes annotated date ranges from a historical series.
type DataFilter struct {
	data        timeseries.Series
	annotations []models.Annotation
	scope       models.ExclusionScope
}

// NewDataFilter creates a filter for one exclusion scope.
func NewDataFilter(data timeseries.Series, annotations []models.Annotation, scope models.ExclusionScope) (*DataFilter, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("exclusion scope must be %q, %q or %q, got: %q",
			models.ExcludeBaseline, models.ExcludeVolatility, models.ExcludeBoth, scope)
	}
	return &DataFilter{data: data, annotations: annotations, scope: scope}, nil
}

// Filter applies every relevant annotation's date range and returns the
// filtered series plus metadata. Filtering out 100% of the data is an error;
// callers are expected to fall back to the unfiltered series rather than
// abort the forecast.
func (f *DataFilter) Filter() (timeseries.Series, FilterMetadata, error) {
	total := f.data.Len()
	meta := FilterMetadata{TotalCount: total, ExcludedPeriods: []ExcludedPeriod{}}

	var relevant []models.Annotation
	for _, a := range f.annotations {
		if a.ExcludeFrom == f.scope || a.ExcludeFrom == models.ExcludeBoth {
			relevant = append(relevant, a)
		}
	}
	if len(relevant) == 0 {
		return f.data, meta, nil
	}

	type dateRange struct{ start, end time.Time }
	var ranges []dateRange
	for _, a := range relevant {
		start, err := time.Parse("2006-01-02", a.StartDate)
		if err != nil {
			return timeseries.Series{}, meta, fmt.Errorf("invalid annotation start_date %q: %w", a.StartDate, err)
		}
		end, err := time.Parse("2006-01-02", a.EndDate)
		if err != nil {
			return timeseries.Series{}, meta, fmt.Errorf("invalid annotation end_date %q: %w", a.EndDate, err)
		}
		ranges = append(ranges, dateRange{start, end})
		reason := a.Reason
		if reason == "" {
			reason = "No reason provided"
		}
		meta.ExcludedPeriods = append(meta.ExcludedPeriods, ExcludedPeriod{
			StartDate: start.Format("2006-01-02"),
			EndDate:   end.Format("2006-01-02"),
			Reason:    reason,
		})
	}

	filtered := f.data.Filter(func(period string, _ float64) bool {
		date, err := ParsePeriod(period)
		if err != nil {
			// Unparseable labels are kept; exclusion is best-effort.
			return true
		}
		for _, r := range ranges {
			if !date.Before(r.start) && !date.After(r.end) {
				return false
			}
		}
		return true
	})

	meta.ExcludedCount = total - filtered.Len()
	if total > 0 {
		meta.ExclusionPercentage = float64(meta.ExcludedCount) / float64(total)
	}
	if meta.ExcludedCount == total && total > 0 {
		return timeseries.Series{}, meta, fmt.Errorf(
			"all %d periods would be excluded, cannot proceed with forecast: review anomaly annotations", total)
	}
	meta.Warning = meta.ExclusionPercentage > 0.5

	return filtered, meta, nil
}

// periodLayouts are the statement period label formats the engine accepts.
var periodLayouts = []string{"Jan 2006", "2006-01", "2006-01-02", "Jan-06"}

// ParsePeriod converts a statement period label to the first day it covers.
func ParsePeriod(label string) (time.Time, error) {
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized period label %q", label)
}
