package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrDegeneratePlane is returned for a plane with a zero normal.
	ErrDegeneratePlane = errors.New("geometry: degenerate slice plane")

	// ErrInvalidStep is returned for a non-positive voxel step.
	ErrInvalidStep = errors.New("geometry: voxel step must be positive")

	// ErrEmptyQuad is returned when the slice has no cells.
	ErrEmptyQuad = errors.New("geometry: slice quad is empty")
)

// spatialMatchTolerance is the squared distance below which two quad
// origins or step vectors are considered equal.
const spatialMatchTolerance = 0.001

// Bounds is an orthographic screen rectangle in model units, relative to
// the slice plane point.
type Bounds struct {
	Left, Right, Bottom, Top float64
}

// Width returns Right - Left.
func (b Bounds) Width() float64 { return b.Right - b.Left }

// Height returns Top - Bottom.
func (b Bounds) Height() float64 { return b.Top - b.Bottom }

// Scaled returns the bounds scaled about their center.
func (b Bounds) Scaled(f float64) Bounds {
	cx, cy := (b.Left+b.Right)/2, (b.Bottom+b.Top)/2
	hw, hh := f*b.Width()/2, f*b.Height()/2
	return Bounds{Left: cx - hw, Right: cx + hw, Bottom: cy - hh, Top: cy + hh}
}

// Request holds the inputs of Build.
type Request struct {
	Plane    SlicePlane
	Axis     Axis
	Rotation *r3.Mat
	Bounds   Bounds

	// AlignOrigin is a voxel center of the grid the cells are aligned to.
	AlignOrigin r3.Vec

	// StepSize is the cell edge length, normally the smallest voxel
	// spacing of the grid.
	StepSize float64
}

// Quad is the slice rectangle in model space divided into Rows x Columns
// cells. Cell (row, col) has its bottom-left corner at
// BottomLeft + col*LeftToRightStep + row*BottomToTopStep.
type Quad struct {
	BottomLeft  r3.Vec
	BottomRight r3.Vec
	TopRight    r3.Vec
	TopLeft     r3.Vec

	LeftToRightStep r3.Vec
	BottomToTopStep r3.Vec

	Rows    int
	Columns int

	// Center is the plane point; Horizontal and Vertical are the unit
	// screen axes in model space.
	Center     r3.Vec
	Horizontal r3.Vec
	Vertical   r3.Vec

	// Bounds are the screen bounds after alignment.
	Bounds Bounds
}

// Build computes the slice quad for a request. Invalid or empty geometry
// returns a zero-cell quad together with the reason.
func Build(req Request) (Quad, error) {
	if !req.Plane.Valid() {
		return Quad{}, ErrDegeneratePlane
	}
	step := req.StepSize
	if !(step > 0) || math.IsInf(step, 0) {
		return Quad{}, fmt.Errorf("%w: %v", ErrInvalidStep, step)
	}

	desc := req.Axis.Descriptor()
	h := Rotate(req.Rotation, desc.Horizontal)
	v := Rotate(req.Rotation, desc.Vertical)
	center := req.Plane.Point

	// snap the lower bounds so cell centers fall on voxel centers
	offset := r3.Sub(req.AlignOrigin, center)
	left := alignLower(req.Bounds.Left, r3.Dot(offset, h), step)
	bottom := alignLower(req.Bounds.Bottom, r3.Dot(offset, v), step)

	width := req.Bounds.Right - left
	height := req.Bounds.Top - bottom
	q := Quad{Center: center, Horizontal: h, Vertical: v}
	if !(width > 0) || !(height > 0) {
		return q, ErrEmptyQuad
	}
	q.Columns = int(math.Round(width / step))
	q.Rows = int(math.Round(height / step))
	if q.Columns <= 0 || q.Rows <= 0 {
		q.Columns, q.Rows = 0, 0
		return q, ErrEmptyQuad
	}

	q.Bounds = Bounds{
		Left:   left,
		Right:  left + float64(q.Columns)*step,
		Bottom: bottom,
		Top:    bottom + float64(q.Rows)*step,
	}
	corner := func(x, y float64) r3.Vec {
		return r3.Add(center, r3.Add(r3.Scale(x, h), r3.Scale(y, v)))
	}
	q.BottomLeft = corner(q.Bounds.Left, q.Bounds.Bottom)
	q.BottomRight = corner(q.Bounds.Right, q.Bounds.Bottom)
	q.TopRight = corner(q.Bounds.Right, q.Bounds.Top)
	q.TopLeft = corner(q.Bounds.Left, q.Bounds.Top)

	q.LeftToRightStep = r3.Scale(1/float64(q.Columns), r3.Sub(q.BottomRight, q.BottomLeft))
	q.BottomToTopStep = r3.Scale(1/float64(q.Rows), r3.Sub(q.TopLeft, q.BottomLeft))
	return q, nil
}

// alignLower returns the largest value not above lower such that
// value + step/2 is congruent to target modulo step.
func alignLower(lower, target, step float64) float64 {
	r := math.Mod(lower+step/2-target, step)
	if r < 0 {
		r += step
	}
	return lower - r
}

// Empty reports whether the quad has no cells.
func (q Quad) Empty() bool {
	return q.Rows <= 0 || q.Columns <= 0
}

// Cells returns Rows * Columns.
func (q Quad) Cells() int {
	if q.Empty() {
		return 0
	}
	return q.Rows * q.Columns
}

// CellIndex returns the row-major index of a cell.
func (q Quad) CellIndex(row, col int) int {
	return row*q.Columns + col
}

// CellOrigin returns the bottom-left corner of a cell.
func (q Quad) CellOrigin(row, col int) r3.Vec {
	return r3.Add(q.BottomLeft, r3.Add(
		r3.Scale(float64(col), q.LeftToRightStep),
		r3.Scale(float64(row), q.BottomToTopStep)))
}

// CellCenter returns the center of a cell.
func (q Quad) CellCenter(row, col int) r3.Vec {
	return r3.Add(q.CellOrigin(row, col), r3.Scale(0.5, q.CellDiagonal()))
}

// CellDiagonal returns the vector from a cell's bottom-left corner to its
// top-right corner.
func (q Quad) CellDiagonal() r3.Vec {
	return r3.Add(q.LeftToRightStep, q.BottomToTopStep)
}

// CellCorners returns the bottom-left, bottom-right, top-right and top-left
// corners of a cell.
func (q Quad) CellCorners(row, col int) [4]r3.Vec {
	bl := q.CellOrigin(row, col)
	br := r3.Add(bl, q.LeftToRightStep)
	return [4]r3.Vec{bl, br, r3.Add(br, q.BottomToTopStep), r3.Add(bl, q.BottomToTopStep)}
}

// SpatialMatch reports whether two quads have the same cell grid.
func (q Quad) SpatialMatch(o Quad) bool {
	if q.Rows != o.Rows || q.Columns != o.Columns {
		return false
	}
	return r3.Norm2(r3.Sub(q.BottomLeft, o.BottomLeft)) < spatialMatchTolerance &&
		r3.Norm2(r3.Sub(q.LeftToRightStep, o.LeftToRightStep)) < spatialMatchTolerance &&
		r3.Norm2(r3.Sub(q.BottomToTopStep, o.BottomToTopStep)) < spatialMatchTolerance
}

// ToScreen returns the screen coordinates of a model point projected onto
// the slice plane, in the units of Bounds.
func (q Quad) ToScreen(p r3.Vec) (x, y float64) {
	d := r3.Sub(p, q.Center)
	return r3.Dot(d, q.Horizontal), r3.Dot(d, q.Vertical)
}
