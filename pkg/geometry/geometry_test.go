package geometry

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func nearlyEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func vecNear(a, b r3.Vec, tol float64) bool {
	return r3.Norm(r3.Sub(a, b)) <= tol
}

// TestAxisBasis verifies that each axis has a right-handed orthonormal basis
func TestAxisBasis(t *testing.T) {
	for _, a := range Axes {
		d := a.Descriptor()
		if !vecNear(r3.Cross(d.Horizontal, d.Vertical), d.Normal, 1e-12) {
			t.Errorf("%s: H x V = %v, want %v", a, r3.Cross(d.Horizontal, d.Vertical), d.Normal)
		}
		if r3.Dot(d.Horizontal, d.Vertical) != 0 {
			t.Errorf("%s: horizontal and vertical are not orthogonal", a)
		}
	}
}

// TestParseAxis verifies axis name parsing
func TestParseAxis(t *testing.T) {
	tests := map[string]Axis{
		"axial":        Axial,
		"Coronal":      Coronal,
		"parasagittal": Parasagittal,
		"x":            Parasagittal,
		"z":            Axial,
	}
	for s, want := range tests {
		got, err := ParseAxis(s)
		if err != nil {
			t.Errorf("ParseAxis(%q) failed: %v", s, err)
			continue
		}
		if got != want {
			t.Errorf("ParseAxis(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := ParseAxis("oblique"); err == nil {
		t.Error("ParseAxis accepted an unknown name")
	}
}

// TestRotationFromEuler verifies a quarter turn about Z
func TestRotationFromEuler(t *testing.T) {
	m := RotationFromEuler(0, 0, 90)
	got := Rotate(m, r3.Vec{X: 1})
	if !vecNear(got, r3.Vec{Y: 1}, 1e-12) {
		t.Errorf("rotated X = %v, want +Y", got)
	}
	if got := Rotate(nil, r3.Vec{X: 2}); got != (r3.Vec{X: 2}) {
		t.Errorf("nil rotation changed the vector: %v", got)
	}
}

// TestPlaneDistance verifies signed distances and translation along the normal
func TestPlaneDistance(t *testing.T) {
	p := NewSlicePlane(Axial, nil, r3.Vec{Z: 2})
	if d := p.SignedDistance(r3.Vec{X: 5, Z: 5}); !nearlyEqual(d, 3, 1e-12) {
		t.Errorf("distance = %v, want 3", d)
	}
	moved := p.Translated(-1.5)
	if !vecNear(moved.Point, r3.Vec{Z: 0.5}, 1e-12) {
		t.Errorf("translated point = %v", moved.Point)
	}
	if (SlicePlane{}).Valid() {
		t.Error("zero normal plane reported valid")
	}
}

// TestBuildAlignsCellCenters verifies that cell centers land on voxel centers
func TestBuildAlignsCellCenters(t *testing.T) {
	req := Request{
		Plane:       NewSlicePlane(Axial, nil, r3.Vec{X: 0.3, Y: 0.2, Z: 5}),
		Axis:        Axial,
		Bounds:      Bounds{Left: -10, Right: 10, Bottom: -8, Top: 8},
		AlignOrigin: r3.Vec{},
		StepSize:    1,
	}
	q, err := Build(req)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if q.Empty() {
		t.Fatal("quad is empty")
	}
	if q.Bounds.Left > req.Bounds.Left || q.Bounds.Bottom > req.Bounds.Bottom {
		t.Errorf("aligned bounds %+v do not cover the request", q.Bounds)
	}

	for _, rc := range [][2]int{{0, 0}, {q.Rows - 1, q.Columns - 1}, {3, 7}} {
		c := q.CellCenter(rc[0], rc[1])
		for _, v := range []float64{c.X, c.Y} {
			if !nearlyEqual(v, math.Round(v), 1e-9) {
				t.Errorf("cell %v center %v is not on a voxel center", rc, c)
			}
		}
		if !nearlyEqual(c.Z, 5, 1e-12) {
			t.Errorf("cell %v center left the plane: %v", rc, c)
		}
	}

	if !vecNear(q.LeftToRightStep, r3.Vec{X: 1}, 1e-12) || !vecNear(q.BottomToTopStep, r3.Vec{Y: 1}, 1e-12) {
		t.Errorf("steps = %v, %v; want unit X and Y", q.LeftToRightStep, q.BottomToTopStep)
	}
	wantTR := r3.Add(q.BottomLeft, r3.Vec{X: float64(q.Columns), Y: float64(q.Rows)})
	if !vecNear(q.TopRight, wantTR, 1e-9) {
		t.Errorf("top right = %v, want %v", q.TopRight, wantTR)
	}
}

// TestBuildNonUnitStep verifies alignment with anisotropic spacing and an offset origin
func TestBuildNonUnitStep(t *testing.T) {
	origin := r3.Vec{X: 0.25, Y: -0.5, Z: 0}
	q, err := Build(Request{
		Plane:       NewSlicePlane(Coronal, nil, r3.Vec{X: 1.1, Y: 3, Z: 2.2}),
		Axis:        Coronal,
		Bounds:      Bounds{Left: -6, Right: 6, Bottom: -4, Top: 4},
		AlignOrigin: origin,
		StepSize:    0.5,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	c := q.CellCenter(2, 3)
	// coronal horizontal is +X and vertical is +Z
	for _, d := range []float64{c.X - origin.X, c.Z - origin.Z} {
		n := d / 0.5
		if !nearlyEqual(n, math.Round(n), 1e-9) {
			t.Errorf("cell center %v is not aligned to the 0.5 grid at %v", c, origin)
		}
	}
}

// TestBuildOblique verifies that a rotated quad lies in the rotated plane
func TestBuildOblique(t *testing.T) {
	rot := RotationFromEuler(30, 20, 0)
	plane := NewSlicePlane(Axial, rot, r3.Vec{X: 1, Y: 2, Z: 3})
	q, err := Build(Request{
		Plane:    plane,
		Axis:     Axial,
		Rotation: rot,
		Bounds:   Bounds{Left: -5, Right: 5, Bottom: -5, Top: 5},
		StepSize: 1,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, corner := range []r3.Vec{q.BottomLeft, q.BottomRight, q.TopRight, q.TopLeft} {
		if d := plane.SignedDistance(corner); !nearlyEqual(d, 0, 1e-9) {
			t.Errorf("corner %v is %v off the plane", corner, d)
		}
	}
	if !nearlyEqual(r3.Norm(q.LeftToRightStep), 1, 1e-9) || !nearlyEqual(r3.Norm(q.BottomToTopStep), 1, 1e-9) {
		t.Errorf("cells are not voxel sized: %v %v", q.LeftToRightStep, q.BottomToTopStep)
	}
	if !nearlyEqual(r3.Dot(q.LeftToRightStep, q.BottomToTopStep), 0, 1e-9) {
		t.Error("cell steps are not orthogonal")
	}
	x, y := q.ToScreen(q.TopRight)
	if !nearlyEqual(x, q.Bounds.Right, 1e-9) || !nearlyEqual(y, q.Bounds.Top, 1e-9) {
		t.Errorf("ToScreen(top right) = %v,%v; want %v,%v", x, y, q.Bounds.Right, q.Bounds.Top)
	}
}

// TestBuildErrors verifies the degenerate cases
func TestBuildErrors(t *testing.T) {
	base := Request{
		Plane:    NewSlicePlane(Axial, nil, r3.Vec{}),
		Axis:     Axial,
		Bounds:   Bounds{Left: -1, Right: 1, Bottom: -1, Top: 1},
		StepSize: 1,
	}

	bad := base
	bad.Plane = SlicePlane{}
	if _, err := Build(bad); !errors.Is(err, ErrDegeneratePlane) {
		t.Errorf("zero normal: err = %v", err)
	}

	bad = base
	bad.StepSize = 0
	if _, err := Build(bad); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("zero step: err = %v", err)
	}

	bad = base
	bad.Bounds = Bounds{Left: 3, Right: 1, Bottom: -1, Top: 1}
	q, err := Build(bad)
	if !errors.Is(err, ErrEmptyQuad) {
		t.Errorf("inverted bounds: err = %v", err)
	}
	if !q.Empty() || q.Cells() != 0 {
		t.Errorf("inverted bounds produced %d cells", q.Cells())
	}
}

// TestSpatialMatch verifies the cell grid comparison
func TestSpatialMatch(t *testing.T) {
	req := Request{
		Plane:    NewSlicePlane(Axial, nil, r3.Vec{}),
		Axis:     Axial,
		Bounds:   Bounds{Left: -4, Right: 4, Bottom: -4, Top: 4},
		StepSize: 1,
	}
	a, _ := Build(req)
	b, _ := Build(req)
	if !a.SpatialMatch(b) {
		t.Error("identical quads do not match")
	}

	b.BottomLeft.X += 0.01
	if !a.SpatialMatch(b) {
		t.Error("quads within tolerance do not match")
	}

	req.StepSize = 0.5
	c, _ := Build(req)
	if a.SpatialMatch(c) {
		t.Error("quads with different steps match")
	}
}

// TestBoundsScaled verifies scaling about the center
func TestBoundsScaled(t *testing.T) {
	b := Bounds{Left: 0, Right: 10, Bottom: -2, Top: 2}.Scaled(1.2)
	if !nearlyEqual(b.Width(), 12, 1e-12) || !nearlyEqual(b.Height(), 4.8, 1e-12) {
		t.Errorf("scaled bounds = %+v", b)
	}
	if !nearlyEqual(b.Left+b.Right, 10, 1e-12) {
		t.Errorf("scaled bounds moved the center: %+v", b)
	}
}
