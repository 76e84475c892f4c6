package models

// =============================================================================
// ANOMALY ANNOTATIONS
// =============================================================================

// ExclusionScope names which calculations an annotated period is excluded
// from.
type ExclusionScope string

const (
	ExcludeBaseline   ExclusionScope = "baseline"
	ExcludeVolatility ExclusionScope = "volatility"
	ExcludeBoth       ExclusionScope = "both"
)

// Valid reports whether the scope is one of the three recognized values.
func (s ExclusionScope) Valid() bool {
	return s == ExcludeBaseline || s == ExcludeVolatility || s == ExcludeBoth
}

// Annotation marks a date range of historical data as anomalous. Dates are
// ISO "2006-01-02" strings, inclusive on both ends.
type Annotation struct {
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
	Reason      string         `json:"reason"`
	ExcludeFrom ExclusionScope `json:"exclude_from"`
	Confirmed   bool           `json:"confirmed"`
}

// AnnotationSet is the annotation collection attached to one client's
// historical data.
type AnnotationSet struct {
	Annotations []Annotation `json:"annotations"`
}

// GetAnnotations returns all annotations.
func (s *AnnotationSet) GetAnnotations() []Annotation {
	if s == nil {
		return nil
	}
	return s.Annotations
}

// ByExclusionType returns the annotations that apply to the given scope,
// which includes annotations marked "both".
func (s *AnnotationSet) ByExclusionType(scope ExclusionScope) []Annotation {
	if s == nil {
		return nil
	}
	var out []Annotation
	for _, a := range s.Annotations {
		if a.ExcludeFrom == scope || a.ExcludeFrom == ExcludeBoth {
			out = append(out, a)
		}
	}
	return out
}
