package composite

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"obliqueslice/pkg/geometry"
	"obliqueslice/pkg/layer"
)

func testQuad(t *testing.T, step float64) geometry.Quad {
	t.Helper()
	q, err := geometry.Build(geometry.Request{
		Plane:    geometry.NewSlicePlane(geometry.Axial, nil, r3.Vec{}),
		Axis:     geometry.Axial,
		Bounds:   geometry.Bounds{Left: -1, Right: 1, Bottom: -0.5, Top: 0.5},
		StepSize: step,
	})
	if err != nil {
		t.Fatalf("failed to build quad: %v", err)
	}
	return q
}

func buffer(q geometry.Quad, colors ...[4]uint8) *layer.RGBABuffer {
	b := &layer.RGBABuffer{
		Quad:  q,
		RGBA:  make([]uint8, q.Cells()*4),
		Valid: make([]bool, q.Cells()),
	}
	for cell, c := range colors {
		copy(b.RGBA[cell*4:], c[:])
		b.Valid[cell] = c[3] > 0
	}
	return b
}

// TestCompositeSingleLayer verifies that a single layer is made opaque
func TestCompositeSingleLayer(t *testing.T) {
	q := testQuad(t, 1)
	out, ok := Composite([]*layer.RGBABuffer{buffer(q, [4]uint8{10, 20, 30, 40})})
	if !ok {
		t.Fatal("single layer did not composite")
	}
	if got := out.Color(0); got != [4]uint8{10, 20, 30, 255} {
		t.Errorf("cell 0 = %v", got)
	}
	if got := out.Color(1); got != [4]uint8{} {
		t.Errorf("untouched cell = %v, want transparent", got)
	}
}

// TestCompositeBlend verifies blending over the underlay
func TestCompositeBlend(t *testing.T) {
	q := testQuad(t, 1)
	under := buffer(q, [4]uint8{100, 100, 100, 255}, [4]uint8{}, [4]uint8{50, 50, 50, 255})
	over := buffer(q, [4]uint8{200, 0, 0, 128}, [4]uint8{0, 0, 200, 128}, [4]uint8{})

	out, ok := Composite([]*layer.RGBABuffer{under, over})
	if !ok {
		t.Fatal("matching layers did not composite")
	}
	// 200*128/255 + 100*127/255 = 150.2
	if got := out.Color(0); got != [4]uint8{150, 50, 50, 255} {
		t.Errorf("blended cell = %v", got)
	}
	// the overlay is the first contribution here so it is copied
	if got := out.Color(1); got != [4]uint8{0, 0, 200, 255} {
		t.Errorf("overlay-only cell = %v", got)
	}
	if got := out.Color(2); got != [4]uint8{50, 50, 50, 255} {
		t.Errorf("underlay-only cell = %v", got)
	}
}

// TestCompositeAlphaIsBinary verifies that merged alpha is 0 or 255
func TestCompositeAlphaIsBinary(t *testing.T) {
	q := testQuad(t, 1)
	var layers []*layer.RGBABuffer
	for _, a := range []uint8{0, 1, 77, 254} {
		c := make([][4]uint8, q.Cells())
		for i := range c {
			if i%2 == 0 {
				c[i] = [4]uint8{uint8(i * 10), 3, 9, a}
			}
		}
		layers = append(layers, buffer(q, c...))
	}
	out, ok := Composite(layers)
	if !ok {
		t.Fatal("layers did not composite")
	}
	for cell := 0; cell < q.Cells(); cell++ {
		a := out.RGBA[cell*4+3]
		if a != 0 && a != 255 {
			t.Errorf("cell %d alpha = %d", cell, a)
		}
		if cell%2 == 1 && a != 0 {
			t.Errorf("cell %d has no contribution but alpha %d", cell, a)
		}
	}
}

// TestCompositeOrder verifies that layer order changes the result
func TestCompositeOrder(t *testing.T) {
	q := testQuad(t, 1)
	red := buffer(q, [4]uint8{255, 0, 0, 128})
	blue := buffer(q, [4]uint8{0, 0, 255, 128})

	a, _ := Composite([]*layer.RGBABuffer{red, blue})
	b, _ := Composite([]*layer.RGBABuffer{blue, red})
	if a.Color(0) == b.Color(0) {
		t.Errorf("compositing is order independent: %v", a.Color(0))
	}
	if got := a.Color(0); got != [4]uint8{127, 0, 128, 255} {
		t.Errorf("red then blue = %v", got)
	}
}

// TestCompositeMismatch verifies the fallback signal for different cell grids
func TestCompositeMismatch(t *testing.T) {
	fine := buffer(testQuad(t, 0.5))
	coarse := buffer(testQuad(t, 1))
	if _, ok := Composite([]*layer.RGBABuffer{coarse, fine}); ok {
		t.Error("layers with different steps were composited")
	}
	if _, ok := Composite(nil); ok {
		t.Error("no layers were composited")
	}
}
