package visualization

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"obliqueslice/pkg/geometry"
	"obliqueslice/pkg/raster"
	"obliqueslice/pkg/render"
)

// Viewer renders orthogonal or rotated slices of a layer stack to images.
// Slice positions follow the voxels of the first layer along the view
// axis, through the center of its grid.
type Viewer struct {
	layers []render.Layer
	opts   render.Options

	// size of the rendered image before upscaling
	width  int
	height int

	// scale is the integer upscale factor applied to saved images
	scale int

	rotation *r3.Mat
	zoom     float64
}

// NewViewer creates a viewer rendering width x height images.
func NewViewer(layers []render.Layer, opts render.Options, width, height int) (*Viewer, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("viewer needs at least one layer")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	return &Viewer{
		layers: append([]render.Layer(nil), layers...),
		opts:   opts,
		width:  width,
		height: height,
		scale:  1,
		zoom:   1,
	}, nil
}

// SetScale sets the upscale factor of extracted slices.
func (v *Viewer) SetScale(scale int) {
	v.scale = max(1, scale)
}

// SetRotation rotates every slice plane for oblique viewing.
func (v *Viewer) SetRotation(m *r3.Mat) {
	v.rotation = m
}

// SetZoom shrinks the viewed region around the grid center.
func (v *Viewer) SetZoom(zoom float64) {
	if zoom > 0 {
		v.zoom = zoom
	}
}

// SliceCount returns the number of slice positions along an axis.
func (v *Viewer) SliceCount(axis geometry.Axis) int {
	d := v.layers[0].Grid.Dimensions()
	switch axis {
	case geometry.Parasagittal:
		return d.I
	case geometry.Coronal:
		return d.J
	}
	return d.K
}

// SliceCenter returns the point slice position passes through.
func (v *Viewer) SliceCenter(axis geometry.Axis, position int) r3.Vec {
	g := v.layers[0].Grid
	s := g.Spacing()
	step := s.Z
	switch axis {
	case geometry.Parasagittal:
		step = s.X
	case geometry.Coronal:
		step = s.Y
	}
	offset := (float64(position) - float64(v.SliceCount(axis)-1)/2) * step
	plane := geometry.NewSlicePlane(axis, v.rotation, render.GridCenter(g))
	return plane.Translated(offset).Point
}

// ExtractSlice renders the slice at a position along an axis.
func (v *Viewer) ExtractSlice(axis geometry.Axis, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	if n := v.SliceCount(axis); position >= n {
		return nil, fmt.Errorf("position %d exceeds %d %s slices", position, n, axis)
	}

	canvas, err := raster.NewCanvas(v.width, v.height)
	if err != nil {
		return nil, err
	}
	defer canvas.Close()

	view := render.View{
		Mode:     render.ViewSingle,
		Axis:     axis,
		Rotation: v.rotation,
		Center:   v.SliceCenter(axis, position),
		Bounds:   render.GridBounds(v.layers[0].Grid, v.zoom),
	}
	if _, err := render.NewRenderer().DrawFrame(view, v.layers, v.opts, canvas); err != nil {
		return nil, err
	}
	if v.scale > 1 {
		return raster.Upscale(canvas.Image(), v.scale), nil
	}
	return canvas.Image(), nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along an axis
func (v *Viewer) SaveSliceSequence(axis geometry.Axis, outputDir string) error {
	return v.saveSequence(context.Background(), axis, outputDir)
}

func (v *Viewer) saveSequence(ctx context.Context, axis geometry.Axis, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < v.SliceCount(axis); pos++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, SliceFileName(axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// SaveAllSequences saves the slice sequences of every axis, one axis per
// goroutine. The first failure cancels the remaining axes.
func (v *Viewer) SaveAllSequences(ctx context.Context, outputDir string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, axis := range geometry.Axes {
		g.Go(func() error {
			return v.saveSequence(ctx, axis, outputDir)
		})
	}
	return g.Wait()
}

// SliceFileName returns the name of the image of a slice position.
func SliceFileName(axis geometry.Axis, position int) string {
	return fmt.Sprintf("slice_%s_%03d.jpg", axis, position)
}
