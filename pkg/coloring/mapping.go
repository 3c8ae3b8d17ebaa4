package coloring

import (
	"fmt"
	"math"
	"strings"
)

// ScaleMode selects how data values are mapped onto the palette range.
type ScaleMode int

const (
	// AutoScale maps zero to the extreme positive and negative values.
	AutoScale ScaleMode = iota

	// AutoScalePercentage maps percentiles of the positive and negative
	// values onto the palette range.
	AutoScalePercentage

	// UserScale maps user supplied absolute values onto the palette range.
	UserScale
)

// ThresholdType selects the source of the values tested by thresholding.
type ThresholdType int

const (
	// ThresholdOff disables thresholding.
	ThresholdOff ThresholdType = iota

	// ThresholdNormal tests the displayed values themselves.
	ThresholdNormal

	// ThresholdFile tests the values of a separate threshold map.
	ThresholdFile
)

// ThresholdTest selects which side of the threshold range is displayed.
type ThresholdTest int

const (
	// ShowOutside displays values below Low or above High.
	ShowOutside ThresholdTest = iota

	// ShowInside displays values in [Low, High].
	ShowInside
)

// ThresholdOutline selects whether thresholded regions are drawn as an
// outline.
type ThresholdOutline int

const (
	ThresholdOutlineOff ThresholdOutline = iota
	ThresholdOutlineOn
)

// Threshold holds the thresholding settings of a palette color mapping.
type Threshold struct {
	Type ThresholdType
	Test ThresholdTest
	Low  float64
	High float64

	// MapIndex is the map of the threshold grid tested by ThresholdFile.
	MapIndex int

	// Outline draws only the boundary of the displayed region.
	Outline ThresholdOutline

	// OutlineColor replaces the palette color of outline cells when set.
	OutlineColor *[4]uint8
}

// Passes reports whether a threshold value is displayed. NaN, the value of
// points without threshold data, never passes an active threshold.
func (t Threshold) Passes(value float64) bool {
	switch t.Type {
	case ThresholdOff:
		return true
	case ThresholdNormal, ThresholdFile:
		if math.IsNaN(value) {
			return false
		}
		inside := value >= t.Low && value <= t.High
		if t.Test == ShowInside {
			return inside
		}
		return !inside
	}
	panic(fmt.Sprintf("coloring: unknown threshold type %d", int(t.Type)))
}

// ScaleRange holds explicit positive and negative ranges. The negative
// values are negative, Min being the one closest to zero.
type ScaleRange struct {
	PositiveMin float64
	PositiveMax float64
	NegativeMin float64
	NegativeMax float64
}

// PaletteColorMapping describes how one scalar map is colored.
type PaletteColorMapping struct {
	PaletteName string
	ScaleMode   ScaleMode

	// Percentages (0-100) used by AutoScalePercentage.
	AutoPercentage ScaleRange

	// Absolute values used by UserScale.
	UserRange ScaleRange

	DisplayPositive bool
	DisplayNegative bool
	DisplayZero     bool
	Interpolate     bool

	Threshold Threshold
}

// NewPaletteColorMapping returns a mapping with the default settings:
// percentage scaling between 2% and 98%, positive and negative display on,
// zero hidden and interpolated colors.
func NewPaletteColorMapping(paletteName string) *PaletteColorMapping {
	return &PaletteColorMapping{
		PaletteName: paletteName,
		ScaleMode:   AutoScalePercentage,
		AutoPercentage: ScaleRange{
			PositiveMin: 2, PositiveMax: 98,
			NegativeMin: 2, NegativeMax: 98,
		},
		DisplayPositive: true,
		DisplayNegative: true,
		Interpolate:     true,
	}
}

// Range resolves the scale mode against map statistics.
func (m *PaletteColorMapping) Range(stats *Statistics) ScaleRange {
	switch m.ScaleMode {
	case AutoScale:
		return ScaleRange{
			PositiveMax: stats.MostPositive(),
			NegativeMax: stats.MostNegative(),
		}
	case AutoScalePercentage:
		return ScaleRange{
			PositiveMin: stats.PositivePercentile(m.AutoPercentage.PositiveMin),
			PositiveMax: stats.PositivePercentile(m.AutoPercentage.PositiveMax),
			NegativeMin: stats.NegativePercentile(m.AutoPercentage.NegativeMin),
			NegativeMax: stats.NegativePercentile(m.AutoPercentage.NegativeMax),
		}
	case UserScale:
		return m.UserRange
	}
	panic(fmt.Sprintf("coloring: unknown scale mode %d", int(m.ScaleMode)))
}

// Normalize maps a value into [-1, 1] using a resolved range.
func (r ScaleRange) Normalize(v float64) float64 {
	switch {
	case v > 0:
		return normalizeSide(v, r.PositiveMin, r.PositiveMax)
	case v < 0:
		return -normalizeSide(v, r.NegativeMin, r.NegativeMax)
	}
	return 0
}

func normalizeSide(v, lo, hi float64) float64 {
	if hi == lo {
		if math.Abs(v) >= math.Abs(hi) {
			return 1
		}
		return 0
	}
	return math.Max(0, math.Min(1, (v-lo)/(hi-lo)))
}

// ParseScaleMode converts a configuration name into a ScaleMode.
func ParseScaleMode(s string) (ScaleMode, error) {
	switch strings.ToLower(s) {
	case "auto":
		return AutoScale, nil
	case "percentage", "auto-percentage":
		return AutoScalePercentage, nil
	case "user", "absolute":
		return UserScale, nil
	}
	return 0, fmt.Errorf("unknown scale mode %q", s)
}
