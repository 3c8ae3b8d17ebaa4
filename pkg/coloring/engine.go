package coloring

import (
	"math"
)

// ColorScalarsWithPalette colors a batch of scalar values and returns four
// bytes per value. Values hidden by the display flags or by thresholding get
// a fully transparent color.
//
// thresholdMapping supplies the threshold settings and may be the same as
// mapping. thresholds holds one threshold value per scalar; when nil the
// scalars themselves are tested.
func ColorScalarsWithPalette(stats *Statistics, mapping *PaletteColorMapping, values []float32,
	thresholdMapping *PaletteColorMapping, thresholds []float32) ([]uint8, error) {

	rgba := make([]uint8, len(values)*4)
	if len(values) == 0 {
		return rgba, nil
	}
	palette, err := LookupPalette(mapping.PaletteName)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = NewStatistics(values)
	}
	if thresholdMapping == nil {
		thresholdMapping = mapping
	}
	if thresholds == nil {
		thresholds = values
	}
	scale := mapping.Range(stats)

	for i, v := range values {
		f := float64(v)
		if math.IsNaN(f) {
			continue
		}
		if !thresholdMapping.Threshold.Passes(float64(thresholds[i])) {
			continue
		}
		switch {
		case f > 0 && !mapping.DisplayPositive:
			continue
		case f < 0 && !mapping.DisplayNegative:
			continue
		case f == 0 && !mapping.DisplayZero:
			continue
		}

		c := palette.Color(scale.Normalize(f), mapping.Interpolate)
		rgba[i*4] = ToByte(c[0])
		rgba[i*4+1] = ToByte(c[1])
		rgba[i*4+2] = ToByte(c[2])
		rgba[i*4+3] = 255
	}
	return rgba, nil
}

// ColorIndicesWithLabelTable colors a batch of label keys and returns four
// bytes per key. Unknown keys and labels not selected for the display group
// and tab are transparent.
func ColorIndicesWithLabelTable(table *LabelTable, indices []float32, group DisplayGroup, tab int) []uint8 {
	rgba := make([]uint8, len(indices)*4)
	for i, v := range indices {
		if math.IsNaN(float64(v)) {
			continue
		}
		key := LabelKey(v)
		label, ok := table.Label(key)
		if !ok || !table.IsSelected(group, tab, key) {
			continue
		}
		for c := 0; c < 4; c++ {
			rgba[i*4+c] = ToByte(label.Color[c] * 255)
		}
	}
	return rgba
}

// ToByte rounds and clamps a float in [0, 255] to a byte.
func ToByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
