package render

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"obliqueslice/pkg/coloring"
	"obliqueslice/pkg/geometry"
	"obliqueslice/pkg/sampler"
	"obliqueslice/pkg/volume"
)

// ViewMode selects how many slices a frame draws.
type ViewMode int

const (
	// ViewSingle draws one slice.
	ViewSingle ViewMode = iota

	// ViewMontage draws a grid of parallel slices.
	ViewMontage

	// ViewAllStructures draws the axial, coronal and parasagittal slices
	// through the same point.
	ViewAllStructures
)

func (m ViewMode) String() string {
	switch m {
	case ViewSingle:
		return "single"
	case ViewMontage:
		return "montage"
	case ViewAllStructures:
		return "all"
	}
	return fmt.Sprintf("ViewMode(%d)", int(m))
}

// ParseViewMode converts a configuration name to a view mode.
func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "":
		return ViewSingle, nil
	case "montage":
		return ViewMontage, nil
	case "all", "all-structures", "allstructures":
		return ViewAllStructures, nil
	}
	return ViewSingle, fmt.Errorf("unknown view mode %q", s)
}

// StepSource selects the grid that sizes the cells of a slice.
type StepSource int

const (
	// StepUnderlay sizes every layer's cells from the first layer, so all
	// layers share one quad.
	StepUnderlay StepSource = iota

	// StepLayer sizes each layer's cells from its own grid. Layers with
	// different spacing can then not be composited.
	StepLayer
)

func (s StepSource) String() string {
	switch s {
	case StepUnderlay:
		return "underlay"
	case StepLayer:
		return "layer"
	}
	return fmt.Sprintf("StepSource(%d)", int(s))
}

// ParseStepSource converts a configuration name to a step source.
func ParseStepSource(s string) (StepSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "underlay", "":
		return StepUnderlay, nil
	case "layer":
		return StepLayer, nil
	}
	return StepUnderlay, fmt.Errorf("unknown step source %q", s)
}

// Layer is one map drawn on the slice. Layers are drawn bottom first.
type Layer struct {
	Grid     volume.Grid
	MapIndex int
	Opacity  float64

	// DrawAllVoxels marks the layer being edited. Every cell is drawn
	// white and can be picked even where the map has no data.
	DrawAllVoxels bool
}

// Montage lays out parallel slices.
type Montage struct {
	Rows    int
	Columns int

	// Spacing is the distance between neighboring slices along the plane
	// normal. Zero uses the smallest voxel edge of the first layer.
	Spacing float64
}

// View describes what the frame looks at.
type View struct {
	Mode ViewMode
	Axis geometry.Axis

	// Rotation turns the slice plane for oblique viewing. Nil draws
	// orthogonal slices.
	Rotation *r3.Mat

	// Center is the point every slice passes through.
	Center r3.Vec

	// Bounds are the screen bounds relative to Center. Empty bounds are
	// derived from the first layer's grid and Zoom.
	Bounds geometry.Bounds
	Zoom   float64

	Montage Montage
}

// Options control the pipeline.
type Options struct {
	Masking    sampler.MaskingPolicy
	StepSource StepSource

	// Identify records a pick id for every drawn cell instead of
	// compositing layers.
	Identify bool

	DisplayGroup coloring.DisplayGroup
	Tab          int

	// AllStructuresScale enlarges the bounds of all-structures views.
	AllStructuresScale float64
}

// DefaultOptions returns loose masking, underlay cell sizing and no
// identification.
func DefaultOptions() Options {
	return Options{
		Masking:            sampler.MaskLoose,
		StepSource:         StepUnderlay,
		AllStructuresScale: defaultAllStructuresScale,
	}
}

const defaultAllStructuresScale = 1.2

// Tile is the position of a slice in the frame's grid of viewports.
type Tile struct {
	Row, Column   int
	Rows, Columns int
}

// FrameContext holds everything one slice instance is drawn from. It is
// built once during setup and only read afterwards.
type FrameContext struct {
	Instance int
	Tile     Tile
	Axis     geometry.Axis
	Rotation *r3.Mat
	Plane    geometry.SlicePlane
	Bounds   geometry.Bounds
	Options  Options
	Layers   []Layer
}

// GridCenter returns the space position of the center of a grid.
func GridCenter(g volume.Grid) r3.Vec {
	d := g.Dimensions()
	return g.IndexToSpace(float64(d.I-1)/2, float64(d.J-1)/2, float64(d.K-1)/2)
}

// GridBounds returns square bounds that contain a grid from any direction
// when centered on it, shrunk by zoom.
func GridBounds(g volume.Grid, zoom float64) geometry.Bounds {
	d := g.Dimensions()
	lo := g.IndexToSpace(-0.5, -0.5, -0.5)
	hi := g.IndexToSpace(float64(d.I)-0.5, float64(d.J)-0.5, float64(d.K)-0.5)
	r := r3.Norm(r3.Sub(hi, lo)) / 2
	if zoom > 0 {
		r /= zoom
	}
	return geometry.Bounds{Left: -r, Right: r, Bottom: -r, Top: r}
}

// minSpacing returns the smallest voxel edge of a grid.
func minSpacing(g volume.Grid) float64 {
	s := g.Spacing()
	return math.Min(s.X, math.Min(s.Y, s.Z))
}

// setup builds the frame context of every slice instance of a view.
func setup(view View, layers []Layer, opts Options) []FrameContext {
	bounds := view.Bounds
	if bounds.Width() <= 0 || bounds.Height() <= 0 {
		bounds = GridBounds(layers[0].Grid, view.Zoom)
	}
	owned := append([]Layer(nil), layers...)

	newContext := func(instance int, tile Tile, axis geometry.Axis, plane geometry.SlicePlane, b geometry.Bounds) FrameContext {
		return FrameContext{
			Instance: instance,
			Tile:     tile,
			Axis:     axis,
			Rotation: view.Rotation,
			Plane:    plane,
			Bounds:   b,
			Options:  opts,
			Layers:   owned,
		}
	}

	switch view.Mode {
	case ViewMontage:
		rows, cols := max(1, view.Montage.Rows), max(1, view.Montage.Columns)
		spacing := view.Montage.Spacing
		if spacing <= 0 {
			spacing = minSpacing(layers[0].Grid)
		}
		base := geometry.NewSlicePlane(view.Axis, view.Rotation, view.Center)
		n := rows * cols
		out := make([]FrameContext, 0, n)
		for i := 0; i < n; i++ {
			offset := (float64(i) - float64(n-1)/2) * spacing
			tile := Tile{Row: i / cols, Column: i % cols, Rows: rows, Columns: cols}
			out = append(out, newContext(i, tile, view.Axis, base.Translated(offset), bounds))
		}
		return out

	case ViewAllStructures:
		scale := opts.AllStructuresScale
		if scale <= 0 {
			scale = defaultAllStructuresScale
		}
		tiles := map[geometry.Axis]Tile{
			geometry.Parasagittal: {Row: 0, Column: 0, Rows: 2, Columns: 2},
			geometry.Coronal:      {Row: 0, Column: 1, Rows: 2, Columns: 2},
			geometry.Axial:        {Row: 1, Column: 0, Rows: 2, Columns: 2},
		}
		out := make([]FrameContext, 0, len(geometry.Axes))
		for i, axis := range geometry.Axes {
			plane := geometry.NewSlicePlane(axis, view.Rotation, view.Center)
			out = append(out, newContext(i, tiles[axis], axis, plane, bounds.Scaled(scale)))
		}
		return out
	}

	plane := geometry.NewSlicePlane(view.Axis, view.Rotation, view.Center)
	return []FrameContext{newContext(0, Tile{Rows: 1, Columns: 1}, view.Axis, plane, bounds)}
}
