package visualization

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"obliqueslice/internal/models"
	"obliqueslice/pkg/coloring"
	"obliqueslice/pkg/geometry"
	"obliqueslice/pkg/render"
	"obliqueslice/pkg/volume"
)

// newTestViewer builds a viewer over a 6x5x4 grid whose value is the k
// index plus one.
func newTestViewer(t *testing.T) *Viewer {
	t.Helper()
	vol := models.NewVolume(6, 5, 4, 1, models.PaletteScalar)
	for k := 0; k < 4; k++ {
		for j := 0; j < 5; j++ {
			for i := 0; i < 6; i++ {
				vol.Set(i, j, k, 0, 0, float32(k+1))
			}
		}
	}
	g, err := volume.NewDenseGrid("layers", vol, nil)
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	md := g.MapMetadata(0)
	md.Palette.ScaleMode = coloring.UserScale
	md.Palette.UserRange = coloring.ScaleRange{PositiveMax: 4}

	viewer, err := NewViewer([]render.Layer{{Grid: g, Opacity: 1}}, render.DefaultOptions(), 32, 32)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}
	return viewer
}

// TestNewViewer verifies argument checking
func TestNewViewer(t *testing.T) {
	if _, err := NewViewer(nil, render.DefaultOptions(), 10, 10); err == nil {
		t.Error("Expected error for no layers, got nil")
	}

	viewer := newTestViewer(t)
	if viewer.scale != 1 || viewer.zoom != 1 {
		t.Errorf("Expected scale 1 and zoom 1, got %d and %f", viewer.scale, viewer.zoom)
	}
}

// TestSliceCount verifies the number of positions per axis
func TestSliceCount(t *testing.T) {
	viewer := newTestViewer(t)
	expected := map[geometry.Axis]int{
		geometry.Parasagittal: 6,
		geometry.Coronal:      5,
		geometry.Axial:        4,
	}
	for axis, n := range expected {
		if got := viewer.SliceCount(axis); got != n {
			t.Errorf("Expected %d %s slices, got %d", n, axis, got)
		}
	}
}

// TestExtractSlice verifies that each axial slice shows its own voxel layer
func TestExtractSlice(t *testing.T) {
	viewer := newTestViewer(t)

	var previous uint8
	for z := 0; z < 4; z++ {
		// Slices pass through voxel centers
		center := viewer.SliceCenter(geometry.Axial, z)
		if center.Z != float64(z) {
			t.Errorf("Expected slice %d at z=%d, got %f", z, z, center.Z)
		}

		img, err := viewer.ExtractSlice(geometry.Axial, z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}
		bounds := img.Bounds()
		if bounds.Dx() != 32 || bounds.Dy() != 32 {
			t.Errorf("Expected slice dimensions 32x32, got %dx%d", bounds.Dx(), bounds.Dy())
		}

		// Brightness grows with k
		rgba, ok := img.(*image.RGBA)
		if !ok {
			t.Fatalf("Expected *image.RGBA, got %T", img)
		}
		value := rgba.RGBAAt(16, 16).R
		if value <= previous {
			t.Errorf("Expected slice %d brighter than %d, got %d", z, previous, value)
		}
		previous = value
	}

	// Out of bounds position
	if _, err := viewer.ExtractSlice(geometry.Axial, 4); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractSlice(geometry.Axial, -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestExtractSliceScaled verifies upscaling of extracted slices
func TestExtractSliceScaled(t *testing.T) {
	viewer := newTestViewer(t)
	viewer.SetScale(3)
	img, err := viewer.ExtractSlice(geometry.Coronal, 2)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 96 || b.Dy() != 96 {
		t.Errorf("Expected 96x96 image, got %dx%d", b.Dx(), b.Dy())
	}
}

// TestSaveSliceSequence verifies that every slice of an axis is written
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	viewer := newTestViewer(t)
	dir := filepath.Join(t.TempDir(), "z")
	if err := viewer.SaveSliceSequence(geometry.Axial, dir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}
	for z := 0; z < 4; z++ {
		name := filepath.Join(dir, SliceFileName(geometry.Axial, z))
		if _, err := os.Stat(name); err != nil {
			t.Errorf("Expected slice file %s: %v", name, err)
		}
	}
}

// TestSaveAllSequences verifies concurrent export of every axis
func TestSaveAllSequences(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	viewer := newTestViewer(t)
	dir := t.TempDir()
	if err := viewer.SaveAllSequences(context.Background(), dir); err != nil {
		t.Fatalf("Failed to save sequences: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read output dir: %v", err)
	}
	if len(entries) != 6+5+4 {
		t.Errorf("Expected 15 slice files, got %d", len(entries))
	}

	// A cancelled context stops the export
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := viewer.SaveAllSequences(ctx, t.TempDir()); err == nil {
		t.Error("Expected error for cancelled context, got nil")
	}
}
