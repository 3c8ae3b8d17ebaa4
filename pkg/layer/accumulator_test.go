package layer

import (
	"testing"

	"obliqueslice/internal/models"
	"obliqueslice/pkg/coloring"
	"obliqueslice/pkg/geometry"
	"obliqueslice/pkg/sampler"
	"obliqueslice/pkg/volume"
)

func newGrid(t *testing.T, kind models.ValueKind) *volume.DenseGrid {
	t.Helper()
	g, err := volume.NewDenseGrid(kind.String(), models.NewVolume(2, 2, 2, 1, kind), nil)
	if err != nil {
		t.Fatalf("failed to create grid: %v", err)
	}
	return g
}

func scalar(v float32) sampler.Sample {
	return sampler.Sample{Values: [4]float32{v}, Valid: true}
}

func color(r, g, b, a float32) sampler.Sample {
	return sampler.Sample{Values: [4]float32{r, g, b, a}, Valid: true}
}

func gridQuad(rows, cols int) geometry.Quad {
	return geometry.Quad{Rows: rows, Columns: cols}
}

// TestColorizePalette verifies palette coloring and invalid cells
func TestColorizePalette(t *testing.T) {
	g := newGrid(t, models.PaletteScalar)
	md := g.MapMetadata(0)
	md.Palette.ScaleMode = coloring.UserScale
	md.Palette.UserRange = coloring.ScaleRange{PositiveMin: 0, PositiveMax: 100}

	acc := NewAccumulator()
	acc.Begin(g, 0, 1, gridQuad(1, 4))
	acc.AddSample(0, scalar(100))
	acc.AddSample(1, scalar(50))
	acc.AddSample(2, scalar(0))
	acc.AddSample(3, sampler.Sample{})
	if acc.Len() != 3 {
		t.Errorf("expected 3 stored samples, got %d", acc.Len())
	}

	buf, err := acc.Colorize(coloring.DisplayGroupTab, 0)
	if err != nil {
		t.Fatalf("Colorize failed: %v", err)
	}
	want := [][4]uint8{{255, 255, 255, 255}, {128, 128, 128, 255}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	for cell, w := range want {
		if got := buf.Color(cell); got != w {
			t.Errorf("cell %d: color %v, want %v", cell, got, w)
		}
	}
	if !buf.Valid[2] || buf.Valid[3] {
		t.Errorf("valid flags = %v", buf.Valid)
	}
	if buf.Visible(2) {
		t.Error("zero value is visible although zero display is off")
	}
}

// TestColorizeLabels verifies label colors and display group scoping
func TestColorizeLabels(t *testing.T) {
	g := newGrid(t, models.LabelIndex)
	table := volume.PhantomLabelTable()
	table.SetSelected(coloring.DisplayGroupA, 0, volume.PhantomLabelRight, false)
	g.MapMetadata(0).Labels = table

	acc := NewAccumulator()
	acc.Begin(g, 0, 1, gridQuad(1, 3))
	acc.AddSample(0, scalar(volume.PhantomLabelLeft))
	acc.AddSample(1, scalar(volume.PhantomLabelRight))
	acc.AddSample(2, scalar(99))

	buf, err := acc.Colorize(coloring.DisplayGroupA, 0)
	if err != nil {
		t.Fatalf("Colorize failed: %v", err)
	}
	if got := buf.Color(0); got != [4]uint8{230, 51, 51, 255} {
		t.Errorf("left label color = %v", got)
	}
	if buf.Alpha(1) != 0 {
		t.Error("label hidden in group A is visible")
	}
	if buf.Alpha(2) != 0 {
		t.Error("unknown label is visible")
	}

	buf, err = acc.Colorize(coloring.DisplayGroupB, 0)
	if err != nil {
		t.Fatalf("Colorize failed: %v", err)
	}
	if buf.Alpha(1) != 255 {
		t.Error("label hidden in group A is not visible in group B")
	}
}

// TestColorizeRGBRange verifies the whole-batch range detection
func TestColorizeRGBRange(t *testing.T) {
	g := newGrid(t, models.RGB)
	acc := NewAccumulator()

	// every value is at most one, so the batch is read as [0, 1]
	acc.Begin(g, 0, 1, gridQuad(1, 2))
	acc.AddSample(0, color(0.5, 1, 0, 1))
	acc.AddSample(1, color(0.2, 0.2, 0.2, 0))
	buf, err := acc.Colorize(coloring.DisplayGroupTab, 0)
	if err != nil {
		t.Fatalf("Colorize failed: %v", err)
	}
	if got := buf.Color(0); got != [4]uint8{128, 255, 0, 255} {
		t.Errorf("unit range color = %v", got)
	}
	if buf.Alpha(1) != 0 {
		t.Errorf("rgb sample with zero fourth value has alpha %d", buf.Alpha(1))
	}

	// one component above one switches the whole batch to [0, 255]
	acc.Begin(g, 0, 1, gridQuad(1, 2))
	acc.AddSample(0, color(0.5, 1, 0, 1))
	acc.AddSample(1, color(200, 10, 300, 1))
	buf, err = acc.Colorize(coloring.DisplayGroupTab, 0)
	if err != nil {
		t.Fatalf("Colorize failed: %v", err)
	}
	if got := buf.Color(0); got != [4]uint8{1, 1, 0, 255} {
		t.Errorf("byte range color = %v", got)
	}
	if got := buf.Color(1); got != [4]uint8{200, 10, 255, 255} {
		t.Errorf("byte range color = %v", got)
	}
}

// TestColorizeRGBAAndOpacity verifies alpha scaling and layer opacity
func TestColorizeRGBAAndOpacity(t *testing.T) {
	g := newGrid(t, models.RGBA)
	acc := NewAccumulator()
	acc.Begin(g, 0, 0.5, gridQuad(1, 2))
	acc.AddSample(0, color(1, 1, 1, 1))
	acc.AddSample(1, color(1, 0, 0, 0))
	buf, err := acc.Colorize(coloring.DisplayGroupTab, 0)
	if err != nil {
		t.Fatalf("Colorize failed: %v", err)
	}
	if a := buf.Alpha(0); a != 128 {
		t.Errorf("opacity 0.5 gave alpha %d, want 128", a)
	}
	if a := buf.Alpha(1); a != 0 {
		t.Errorf("transparent sample gained alpha %d", a)
	}
}

// TestLabelOutline verifies that outline drawing keeps only region boundaries
func TestLabelOutline(t *testing.T) {
	g := newGrid(t, models.LabelIndex)
	md := g.MapMetadata(0)
	md.Labels = volume.PhantomLabelTable()
	outline := [4]uint8{255, 255, 0, 255}
	md.LabelDrawing = coloring.LabelDrawing{Type: coloring.LabelOutline, OutlineColor: &outline}

	acc := NewAccumulator()
	acc.Begin(g, 0, 1, gridQuad(5, 5))
	for cell := 0; cell < 25; cell++ {
		acc.AddSample(cell, scalar(volume.PhantomLabelLeft))
	}
	buf, err := acc.Colorize(coloring.DisplayGroupTab, 0)
	if err != nil {
		t.Fatalf("Colorize failed: %v", err)
	}
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			cell := r*5 + c
			edge := r == 0 || r == 4 || c == 0 || c == 4
			got := buf.Color(cell)
			if edge && got != outline {
				t.Errorf("edge cell (%d,%d) = %v, want outline color", r, c, got)
			}
			if !edge && got[3] != 0 {
				t.Errorf("interior cell (%d,%d) = %v, want transparent", r, c, got)
			}
			if !buf.Valid[cell] {
				t.Errorf("cell (%d,%d) lost its valid flag", r, c)
			}
		}
	}
}

// TestThresholdOutline verifies the outline of a thresholded palette region
func TestThresholdOutline(t *testing.T) {
	g := newGrid(t, models.PaletteScalar)
	md := g.MapMetadata(0)
	md.Palette.ScaleMode = coloring.UserScale
	md.Palette.UserRange = coloring.ScaleRange{PositiveMax: 10}
	md.Palette.Threshold = coloring.Threshold{
		Type: coloring.ThresholdNormal, Test: coloring.ShowInside, Low: 5, High: 10,
		Outline: coloring.ThresholdOutlineOn,
	}

	acc := NewAccumulator()
	acc.Begin(g, 0, 1, gridQuad(1, 5))
	for cell, v := range []float32{1, 6, 7, 8, 2} {
		acc.AddSample(cell, scalar(v))
	}
	buf, err := acc.Colorize(coloring.DisplayGroupTab, 0)
	if err != nil {
		t.Fatalf("Colorize failed: %v", err)
	}
	// a single row has every cell on the grid edge, so every passing cell is a boundary
	for cell, want := range []bool{false, true, true, true, false} {
		if buf.Visible(cell) != want {
			t.Errorf("cell %d visible = %v, want %v", cell, buf.Visible(cell), want)
		}
	}
}

// TestDrawAll verifies that an edited layer covers every cell
func TestDrawAll(t *testing.T) {
	g := newGrid(t, models.LabelIndex)
	acc := NewAccumulator()
	acc.BeginDrawAll(g, 0, gridQuad(2, 3))
	acc.AddSample(0, scalar(1))
	if acc.Len() != 0 {
		t.Errorf("draw-all layer stored %d samples", acc.Len())
	}
	buf, err := acc.Colorize(coloring.DisplayGroupTab, 0)
	if err != nil {
		t.Fatalf("Colorize failed: %v", err)
	}
	for cell := 0; cell < buf.Cells(); cell++ {
		if !buf.Valid[cell] || buf.Color(cell) != [4]uint8{255, 255, 255, 255} {
			t.Errorf("cell %d = %v valid %v, want opaque white", cell, buf.Color(cell), buf.Valid[cell])
		}
	}

	// a regular layer afterwards no longer draws everything
	acc.Begin(g, 0, 1, gridQuad(2, 3))
	if acc.DrawAll() {
		t.Error("Begin did not clear draw-all mode")
	}
}

// TestEmptyQuad verifies that an empty quad colors nothing
func TestEmptyQuad(t *testing.T) {
	g := newGrid(t, models.PaletteScalar)
	acc := NewAccumulator()
	acc.Begin(g, 0, 1, geometry.Quad{})
	buf, err := acc.Colorize(coloring.DisplayGroupTab, 0)
	if err != nil {
		t.Fatalf("Colorize failed: %v", err)
	}
	if buf.Cells() != 0 || len(buf.RGBA) != 0 {
		t.Errorf("empty quad produced %d cells", buf.Cells())
	}
}
