// Package raster draws slice meshes into images with the gg software
// renderer.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/spatial/r3"

	"obliqueslice/pkg/render"
)

// Canvas is a render.Sink that paints meshes into a fixed size image.
// Each slice instance is drawn into its tile of the canvas. Display meshes
// are filled as paths; identification meshes are written pixel by pixel so
// that pick colors are never blended.
type Canvas struct {
	dc         *gg.Context
	width      int
	height     int
	background gg.RGBA
}

// NewCanvas returns a canvas cleared to black.
func NewCanvas(width, height int) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid canvas size %dx%d", width, height)
	}
	c := &Canvas{
		dc:         gg.NewContext(width, height),
		width:      width,
		height:     height,
		background: gg.RGB(0, 0, 0),
	}
	c.Clear()
	return c, nil
}

// SetBackground changes the color used by Clear.
func (c *Canvas) SetBackground(col color.Color) {
	c.background = gg.FromColor(col)
}

// Clear fills the canvas with the background color.
func (c *Canvas) Clear() {
	c.dc.ClearWithColor(c.background)
}

// Size returns the canvas size in pixels.
func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

// DrawMesh paints a mesh into the tile of its slice.
func (c *Canvas) DrawMesh(ctx *render.FrameContext, m *render.Mesh) error {
	t := c.tile(ctx)
	if m.Identification {
		for n := 0; n < m.Cells(); n++ {
			c.fillExact(t.project(m, m.CellCorners(n)), m.CellColor(n))
		}
		return nil
	}
	for n := 0; n < m.Cells(); n++ {
		p := t.project(m, m.CellCorners(n))
		col := m.CellColor(n)
		c.dc.SetRGBA(float64(col[0])/255, float64(col[1])/255, float64(col[2])/255, float64(col[3])/255)
		c.dc.MoveTo(p[0][0], p[0][1])
		for _, q := range p[1:] {
			c.dc.LineTo(q[0], q[1])
		}
		c.dc.ClosePath()
		if err := c.dc.Fill(); err != nil {
			return fmt.Errorf("raster: fill cell %d: %w", n, err)
		}
	}
	return nil
}

// fillExact writes a color to every pixel whose center lies in a convex
// polygon.
func (c *Canvas) fillExact(poly [4][2]float64, col [4]uint8) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range poly {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	px := gg.RGBA2(exact(col[0]), exact(col[1]), exact(col[2]), exact(col[3]))
	for y := max(0, int(math.Floor(minY))); y <= min(c.height-1, int(math.Ceil(maxY))); y++ {
		for x := max(0, int(math.Floor(minX))); x <= min(c.width-1, int(math.Ceil(maxX))); x++ {
			if insideConvex(poly, float64(x)+0.5, float64(y)+0.5) {
				c.dc.SetPixel(x, y, px)
			}
		}
	}
}

// exact converts a byte to a unit float that converts back to the same
// byte under truncation.
func exact(b uint8) float64 {
	return math.Min(1, (float64(b)+0.5)/255)
}

func insideConvex(poly [4][2]float64, x, y float64) bool {
	var sign float64
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		cross := (b[0]-a[0])*(y-a[1]) - (b[1]-a[1])*(x-a[0])
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
		} else if (cross > 0) != (sign > 0) {
			return false
		}
	}
	return true
}

// tileView maps slice screen coordinates into a tile of the canvas.
type tileView struct {
	x0, y0, w, h float64
	bounds       struct{ left, top, width, height float64 }
}

func (c *Canvas) tile(ctx *render.FrameContext) tileView {
	rows, cols := max(1, ctx.Tile.Rows), max(1, ctx.Tile.Columns)
	w := float64(c.width) / float64(cols)
	h := float64(c.height) / float64(rows)
	t := tileView{x0: float64(ctx.Tile.Column) * w, y0: float64(ctx.Tile.Row) * h, w: w, h: h}
	t.bounds.left = ctx.Bounds.Left
	t.bounds.top = ctx.Bounds.Top
	t.bounds.width = ctx.Bounds.Width()
	t.bounds.height = ctx.Bounds.Height()
	return t
}

func (t tileView) project(m *render.Mesh, corners [4]r3.Vec) [4][2]float64 {
	var out [4][2]float64
	for i, p := range corners {
		sx, sy := m.Quad.ToScreen(p)
		out[i][0] = t.x0 + (sx-t.bounds.left)/t.bounds.width*t.w
		out[i][1] = t.y0 + (t.bounds.top-sy)/t.bounds.height*t.h
	}
	return out
}

// Image returns a copy of the canvas pixels.
func (c *Canvas) Image() *image.RGBA {
	img := c.dc.Image()
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	xdraw.Draw(out, out.Bounds(), img, img.Bounds().Min, xdraw.Src)
	return out
}

// PickColor returns the RGB color of a pixel of an identification image.
func (c *Canvas) PickColor(x, y int) [3]uint8 {
	n := color.NRGBAModel.Convert(c.dc.Image().At(x, y)).(color.NRGBA)
	return [3]uint8{n.R, n.G, n.B}
}

// SavePNG writes the canvas to a PNG file.
func (c *Canvas) SavePNG(path string) error {
	return c.dc.SavePNG(path)
}

// SavePNG writes any image, such as an upscaled canvas, to a PNG file.
func SavePNG(img image.Image, path string) error {
	dc := gg.NewContextForImage(img)
	defer dc.Close()
	return dc.SavePNG(path)
}

// Close releases the drawing context.
func (c *Canvas) Close() error {
	return c.dc.Close()
}

// Upscale enlarges an image by an integer factor without smoothing, so
// that every cell stays a sharp block of pixels.
func Upscale(img image.Image, factor int) *image.RGBA {
	b := img.Bounds()
	if factor < 1 {
		factor = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), img, b, xdraw.Src, nil)
	return out
}
