// Package composite merges the colored layers of a slice into one color per
// cell.
package composite

import (
	"obliqueslice/pkg/geometry"
	"obliqueslice/pkg/layer"
)

// Slice is the merged color of every cell of a quad. Alpha is 0 for cells
// no layer colored and 255 otherwise.
type Slice struct {
	Quad geometry.Quad
	RGBA []uint8
}

// Composite blends layers ordered bottom first. The first layer with a
// non-zero alpha sets a cell's color, later layers are blended over it
// with their alpha. It returns false when the layers are not on the same
// cell grid; callers then draw each layer separately.
func Composite(layers []*layer.RGBABuffer) (*Slice, bool) {
	if len(layers) == 0 {
		return nil, false
	}
	quad := layers[0].Quad
	for _, l := range layers[1:] {
		if !quad.SpatialMatch(l.Quad) {
			return nil, false
		}
	}

	n := quad.Cells()
	out := &Slice{Quad: quad, RGBA: make([]uint8, n*4)}
	for cell := 0; cell < n; cell++ {
		p := out.RGBA[cell*4 : cell*4+4]
		for _, l := range layers {
			top := l.RGBA[cell*4 : cell*4+4]
			if top[3] == 0 {
				continue
			}
			if p[3] == 0 {
				p[0], p[1], p[2], p[3] = top[0], top[1], top[2], 255
				continue
			}
			alpha := float64(top[3]) / 255
			for c := 0; c < 3; c++ {
				p[c] = blend(top[c], p[c], alpha)
			}
		}
	}
	return out, true
}

func blend(top, below uint8, alpha float64) uint8 {
	v := float64(top)*alpha + float64(below)*(1-alpha)
	return uint8(v + 0.5)
}

// Color returns the merged color of a cell.
func (s *Slice) Color(cell int) [4]uint8 {
	var c [4]uint8
	copy(c[:], s.RGBA[cell*4:cell*4+4])
	return c
}
