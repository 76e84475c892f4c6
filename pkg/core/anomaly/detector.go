package anomaly

import (
	"math"

	"smb_forecast/pkg/core/timeseries"
)

// Flag is one detected outlier period.
type Flag struct {
	PeriodIndex int     `json:"period_index"`
	Period      string  `json:"period"`
	Value       float64 `json:"value"`
	Sigmas      float64 `json:"sigmas"` // |value - mean| / stddev
}

// Detect flags values deviating more than two sample standard deviations from
// the series mean. Conservative on purpose: fewer than 3 periods or a zero
// standard deviation yields no flags.
func Detect(s timeseries.Series) []Flag {
	n := s.Len()
	if n < 3 {
		return nil
	}

	values := s.Values()
	mean := s.Mean()
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / float64(n-1))
	if stdDev == 0 {
		return nil
	}

	var flags []Flag
	for i, v := range values {
		deviation := math.Abs(v - mean)
		if deviation > 2*stdDev {
			period, _ := s.At(i)
			flags = append(flags, Flag{
				PeriodIndex: i,
				Period:      period,
				Value:       v,
				Sigmas:      deviation / stdDev,
			})
		}
	}
	return flags
}
