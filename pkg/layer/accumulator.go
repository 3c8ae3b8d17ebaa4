// Package layer collects the samples of one slice layer and colors them.
//
// An Accumulator is reused across layers and frames. Samples are appended
// to flat buffers and each cell records the offset of its sample, so a
// layer of any size costs a handful of allocations.
package layer

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"obliqueslice/internal/models"
	"obliqueslice/pkg/coloring"
	"obliqueslice/pkg/geometry"
	"obliqueslice/pkg/sampler"
	"obliqueslice/pkg/volume"
)

// noSample marks a cell without a valid sample in the offset table.
const noSample = -1

// RGBABuffer holds the colors of one layer on a slice quad.
type RGBABuffer struct {
	Quad     geometry.Quad
	Grid     volume.Grid
	MapIndex int

	// RGBA holds four bytes per cell in row-major cell order.
	RGBA []uint8

	// Valid marks cells that received a valid sample.
	Valid []bool
}

// Cells returns the number of cells.
func (b *RGBABuffer) Cells() int {
	return len(b.Valid)
}

// Color returns the color of a cell.
func (b *RGBABuffer) Color(cell int) [4]uint8 {
	var c [4]uint8
	copy(c[:], b.RGBA[cell*4:cell*4+4])
	return c
}

// Alpha returns the alpha byte of a cell.
func (b *RGBABuffer) Alpha(cell int) uint8 {
	return b.RGBA[cell*4+3]
}

// Visible reports whether a cell has a valid, non-transparent color.
func (b *RGBABuffer) Visible(cell int) bool {
	return b.Valid[cell] && b.RGBA[cell*4+3] > 0
}

// Accumulator gathers samples for one layer at a time.
type Accumulator struct {
	grid     volume.Grid
	mapIndex int
	kind     models.ValueKind
	opacity  float64
	quad     geometry.Quad
	drawAll  bool

	// width is the number of values stored per sample.
	width      int
	values     []float32
	thresholds []float32
	offsets    []int32
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Begin resets the accumulator for a new layer. Opacity is clamped to
// [0, 1].
func (a *Accumulator) Begin(grid volume.Grid, mapIndex int, opacity float64, quad geometry.Quad) {
	a.grid = grid
	a.mapIndex = mapIndex
	a.kind = grid.Kind()
	a.opacity = max(0, min(1, opacity))
	a.quad = quad
	a.drawAll = false

	a.width = 1
	if a.kind == models.RGB || a.kind == models.RGBA {
		a.width = 4
	}
	a.values = a.values[:0]
	a.thresholds = a.thresholds[:0]

	n := quad.Cells()
	if cap(a.offsets) < n {
		a.offsets = make([]int32, n)
	}
	a.offsets = a.offsets[:n]
	for i := range a.offsets {
		a.offsets[i] = noSample
	}
}

// BeginDrawAll resets the accumulator for a layer being edited. Every cell
// is colored opaque white and valid regardless of the data, so every voxel
// position can be picked.
func (a *Accumulator) BeginDrawAll(grid volume.Grid, mapIndex int, quad geometry.Quad) {
	a.Begin(grid, mapIndex, 1, quad)
	a.drawAll = true
}

// DrawAll reports whether the current layer is in draw-all mode.
func (a *Accumulator) DrawAll() bool { return a.drawAll }

// AddSample stores the sample of a cell. Invalid samples are ignored.
func (a *Accumulator) AddSample(cell int, s sampler.Sample) {
	if !s.Valid || a.drawAll {
		return
	}
	a.offsets[cell] = int32(len(a.values) / a.width)
	a.values = append(a.values, s.Values[:a.width]...)
	a.thresholds = append(a.thresholds, s.Threshold)
}

// Len returns the number of stored samples.
func (a *Accumulator) Len() int {
	if a.width == 0 {
		return 0
	}
	return len(a.values) / a.width
}

// Colorize colors the stored samples and lays them out on the cell grid.
// Label visibility is taken from the given display group and tab.
func (a *Accumulator) Colorize(group coloring.DisplayGroup, tab int) (*RGBABuffer, error) {
	n := a.quad.Cells()
	buf := &RGBABuffer{
		Quad:     a.quad,
		Grid:     a.grid,
		MapIndex: a.mapIndex,
		RGBA:     make([]uint8, n*4),
		Valid:    make([]bool, n),
	}
	if a.drawAll {
		for i := range buf.Valid {
			buf.Valid[i] = true
		}
		for i := range buf.RGBA {
			buf.RGBA[i] = 255
		}
		return buf, nil
	}

	md := a.grid.MapMetadata(a.mapIndex)
	if md == nil {
		return nil, fmt.Errorf("colorize map %d of %q: %w", a.mapIndex, a.grid.Name(), volume.ErrOutOfRange)
	}

	var colors []uint8
	switch a.kind {
	case models.PaletteScalar:
		var err error
		if colors, err = a.colorPalette(md); err != nil {
			return nil, fmt.Errorf("colorize %q: %w", a.grid.Name(), err)
		}
	case models.LabelIndex:
		colors = coloring.ColorIndicesWithLabelTable(md.Labels, a.values, group, tab)
	case models.RGB, models.RGBA:
		colors = colorRGBA(a.values, a.kind == models.RGBA)
	default:
		panic(fmt.Sprintf("layer: unsupported value kind %v", a.kind))
	}

	for cell, off := range a.offsets {
		if off == noSample {
			continue
		}
		buf.Valid[cell] = true
		copy(buf.RGBA[cell*4:cell*4+4], colors[int(off)*4:int(off)*4+4])
	}

	a.outline(buf, md)
	a.applyOpacity(buf)
	return buf, nil
}

func (a *Accumulator) colorPalette(md *volume.MapMetadata) ([]uint8, error) {
	mapping := md.Palette
	if mapping == nil {
		mapping = coloring.NewPaletteColorMapping(coloring.PaletteGrayInterpPositive)
	}
	var thresholds []float32
	if mapping.Threshold.Type == coloring.ThresholdFile {
		thresholds = a.thresholds
	}
	return coloring.ColorScalarsWithPalette(a.grid.MapStatistics(a.mapIndex), mapping,
		a.values, mapping, thresholds)
}

// colorRGBA converts four values per sample to bytes. When any value of
// the batch exceeds 1 the batch is taken to be in [0, 255], otherwise in
// [0, 1]. RGB samples are opaque unless their fourth value is zero.
func colorRGBA(values []float32, hasAlpha bool) []uint8 {
	out := make([]uint8, len(values))
	if len(values) == 0 {
		return out
	}
	batch := make([]float64, len(values))
	for i, v := range values {
		batch[i] = float64(v)
	}
	scale := 255.0
	if floats.Max(batch) > 1 {
		scale = 1
	}

	for i := 0; i < len(batch); i += 4 {
		for c := 0; c < 3; c++ {
			out[i+c] = coloring.ToByte(batch[i+c] * scale)
		}
		switch {
		case hasAlpha:
			out[i+3] = coloring.ToByte(batch[i+3] * scale)
		case batch[i+3] != 0:
			out[i+3] = 255
		}
	}
	return out
}

// outline keeps only the boundary cells of label regions or of the
// thresholded region when the map's display properties ask for it.
func (a *Accumulator) outline(buf *RGBABuffer, md *volume.MapMetadata) {
	rows, cols := a.quad.Rows, a.quad.Columns
	switch {
	case a.kind == models.LabelIndex && md.LabelDrawing.Type == coloring.LabelOutline:
		regions := a.regions(func(off int32) int64 {
			return int64(coloring.LabelKey(a.values[off]))
		})
		coloring.OutlineRegions(buf.RGBA, regions, rows, cols, md.LabelDrawing.OutlineColor)

	case a.kind == models.PaletteScalar && md.Palette != nil &&
		md.Palette.Threshold.Type != coloring.ThresholdOff &&
		md.Palette.Threshold.Outline == coloring.ThresholdOutlineOn:
		th := md.Palette.Threshold
		regions := a.regions(func(off int32) int64 {
			v := a.values[off]
			if th.Type == coloring.ThresholdFile {
				v = a.thresholds[off]
			}
			if th.Passes(float64(v)) {
				return 1
			}
			return 0
		})
		coloring.OutlineRegions(buf.RGBA, regions, rows, cols, th.OutlineColor)
	}
}

func (a *Accumulator) regions(region func(off int32) int64) []int64 {
	out := make([]int64, len(a.offsets))
	for cell, off := range a.offsets {
		if off == noSample {
			out[cell] = coloring.NoRegion
			continue
		}
		out[cell] = region(off)
	}
	return out
}

func (a *Accumulator) applyOpacity(buf *RGBABuffer) {
	if a.opacity >= 1 {
		return
	}
	for i := 3; i < len(buf.RGBA); i += 4 {
		if buf.RGBA[i] > 0 {
			buf.RGBA[i] = coloring.ToByte(float64(buf.RGBA[i]) * a.opacity)
		}
	}
}
