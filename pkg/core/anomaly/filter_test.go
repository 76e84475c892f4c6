package anomaly

import (
	"testing"

	"smb_forecast/pkg/core/timeseries"
	"smb_forecast/pkg/models"
)

func monthlySeries(t *testing.T) timeseries.Series {
	t.Helper()
	s, err := timeseries.New(
		[]string{"Jan 2024", "Feb 2024", "Mar 2024", "Apr 2024", "May 2024", "Jun 2024"},
		[]float64{100, 110, 500, 120, 115, 105},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFilterExcludesAnnotatedRange(t *testing.T) {
	annotations := []models.Annotation{
		{StartDate: "2024-03-01", EndDate: "2024-03-31", Reason: "one-time grant", ExcludeFrom: models.ExcludeBaseline},
	}
	f, err := NewDataFilter(monthlySeries(t), annotations, models.ExcludeBaseline)
	if err != nil {
		t.Fatal(err)
	}

	filtered, meta, err := f.Filter()
	if err != nil {
		t.Fatal(err)
	}
	if filtered.Len() != 5 {
		t.Fatalf("Expected 5 remaining periods, got %d", filtered.Len())
	}
	if meta.ExcludedCount != 1 {
		t.Errorf("Expected 1 excluded period, got %d", meta.ExcludedCount)
	}
	if meta.Warning {
		t.Error("1/6 exclusion must not set the >50% warning")
	}
	if len(meta.ExcludedPeriods) != 1 || meta.ExcludedPeriods[0].Reason != "one-time grant" {
		t.Errorf("Excluded period record missing: %+v", meta.ExcludedPeriods)
	}
}

func TestFilterScopeMatching(t *testing.T) {
	// A volatility-scoped annotation is invisible to a baseline filter;
	// a "both" annotation applies everywhere.
	annotations := []models.Annotation{
		{StartDate: "2024-02-01", EndDate: "2024-02-29", ExcludeFrom: models.ExcludeVolatility},
		{StartDate: "2024-05-01", EndDate: "2024-05-31", ExcludeFrom: models.ExcludeBoth},
	}
	f, err := NewDataFilter(monthlySeries(t), annotations, models.ExcludeBaseline)
	if err != nil {
		t.Fatal(err)
	}

	filtered, meta, err := f.Filter()
	if err != nil {
		t.Fatal(err)
	}
	if filtered.Len() != 5 {
		t.Fatalf("Expected only the 'both' annotation applied, got %d periods", filtered.Len())
	}
	if meta.ExcludedCount != 1 {
		t.Errorf("Expected 1 excluded, got %d", meta.ExcludedCount)
	}
}

func TestFilterFullExclusionIsError(t *testing.T) {
	annotations := []models.Annotation{
		{StartDate: "2024-01-01", EndDate: "2024-12-31", ExcludeFrom: models.ExcludeBaseline},
	}
	f, err := NewDataFilter(monthlySeries(t), annotations, models.ExcludeBaseline)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := f.Filter(); err == nil {
		t.Fatal("Expected error when every period is excluded")
	}
}

func TestFilterInvalidScope(t *testing.T) {
	if _, err := NewDataFilter(monthlySeries(t), nil, models.ExclusionScope("everything")); err == nil {
		t.Fatal("Expected error for unrecognized scope")
	}
}

func TestFilterNoRelevantAnnotationsPassthrough(t *testing.T) {
	f, err := NewDataFilter(monthlySeries(t), nil, models.ExcludeVolatility)
	if err != nil {
		t.Fatal(err)
	}
	filtered, meta, err := f.Filter()
	if err != nil {
		t.Fatal(err)
	}
	if filtered.Len() != 6 || meta.ExcludedCount != 0 {
		t.Errorf("Passthrough expected, got %d periods / %d excluded", filtered.Len(), meta.ExcludedCount)
	}
}

func TestParsePeriodLayouts(t *testing.T) {
	for _, label := range []string{"Jan 2024", "2024-01", "2024-01-15", "Jan-24"} {
		if _, err := ParsePeriod(label); err != nil {
			t.Errorf("Expected %q to parse, got %v", label, err)
		}
	}
	if _, err := ParsePeriod("Quarter 1"); err == nil {
		t.Error("Expected unparseable label to error")
	}
}

func TestDetectFlagsOutliers(t *testing.T) {
	// Eleven quiet months around 100 and one spike at 500. The spike sits
	// far beyond two sample standard deviations from the mean.
	values := []float64{100, 102, 98, 101, 99, 103, 97, 100, 102, 98, 101, 500}
	flags := Detect(timeseries.FromValues(values))

	if len(flags) != 1 {
		t.Fatalf("Expected exactly 1 flag, got %d: %+v", len(flags), flags)
	}
	if flags[0].PeriodIndex != 11 || flags[0].Value != 500 {
		t.Errorf("Flagged the wrong period: %+v", flags[0])
	}
	if flags[0].Sigmas <= 2 {
		t.Errorf("Expected >2 sigmas, got %f", flags[0].Sigmas)
	}
}

func TestDetectQuietSeries(t *testing.T) {
	if flags := Detect(timeseries.FromValues([]float64{100, 100})); flags != nil {
		t.Errorf("Fewer than 3 periods must not flag: %+v", flags)
	}
	if flags := Detect(timeseries.FromValues([]float64{100, 100, 100, 100})); flags != nil {
		t.Errorf("Zero-variance series must not flag: %+v", flags)
	}
}
