package coloring

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Statistics summarizes the values of one map. Palette scaling reads the
// extreme values and percentiles of the positive and negative values.
type Statistics struct {
	count  int
	min    float64
	max    float64
	mean   float64
	stdDev float64

	// sorted ascending
	positive []float64
	// sorted by increasing magnitude
	negativeMagnitude []float64
}

// NewStatistics computes statistics over a batch of values. NaN values are
// ignored.
func NewStatistics(values []float32) *Statistics {
	all := make([]float64, 0, len(values))
	s := &Statistics{}
	for _, v := range values {
		f := float64(v)
		if math.IsNaN(f) {
			continue
		}
		all = append(all, f)
		switch {
		case f > 0:
			s.positive = append(s.positive, f)
		case f < 0:
			s.negativeMagnitude = append(s.negativeMagnitude, -f)
		}
	}
	s.count = len(all)
	if s.count == 0 {
		return s
	}
	s.min = floats.Min(all)
	s.max = floats.Max(all)
	s.mean, s.stdDev = stat.MeanStdDev(all, nil)
	if s.count == 1 {
		s.stdDev = 0
	}
	sort.Float64s(s.positive)
	sort.Float64s(s.negativeMagnitude)
	return s
}

// Count returns the number of non-NaN values.
func (s *Statistics) Count() int { return s.count }

// Min returns the smallest value.
func (s *Statistics) Min() float64 { return s.min }

// Max returns the largest value.
func (s *Statistics) Max() float64 { return s.max }

// Mean returns the arithmetic mean.
func (s *Statistics) Mean() float64 { return s.mean }

// StdDev returns the sample standard deviation.
func (s *Statistics) StdDev() float64 { return s.stdDev }

// MostPositive returns the largest positive value, or 0.
func (s *Statistics) MostPositive() float64 {
	if len(s.positive) == 0 {
		return 0
	}
	return s.positive[len(s.positive)-1]
}

// LeastPositive returns the smallest positive value, or 0.
func (s *Statistics) LeastPositive() float64 {
	if len(s.positive) == 0 {
		return 0
	}
	return s.positive[0]
}

// MostNegative returns the negative value with the largest magnitude, or 0.
func (s *Statistics) MostNegative() float64 {
	if len(s.negativeMagnitude) == 0 {
		return 0
	}
	return -s.negativeMagnitude[len(s.negativeMagnitude)-1]
}

// LeastNegative returns the negative value closest to zero, or 0.
func (s *Statistics) LeastNegative() float64 {
	if len(s.negativeMagnitude) == 0 {
		return 0
	}
	return -s.negativeMagnitude[0]
}

// PositivePercentile returns the value at percentile pct (0-100) of the
// positive values, or 0 when there are none.
func (s *Statistics) PositivePercentile(pct float64) float64 {
	if len(s.positive) == 0 {
		return 0
	}
	return stat.Quantile(clampPercent(pct)/100, stat.Empirical, s.positive, nil)
}

// NegativePercentile returns the value at percentile pct (0-100) of the
// negative values ordered by magnitude, or 0 when there are none. The result
// is negative.
func (s *Statistics) NegativePercentile(pct float64) float64 {
	if len(s.negativeMagnitude) == 0 {
		return 0
	}
	return -stat.Quantile(clampPercent(pct)/100, stat.Empirical, s.negativeMagnitude, nil)
}

func clampPercent(pct float64) float64 {
	return math.Max(0, math.Min(100, pct))
}
