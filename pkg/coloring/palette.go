// Package coloring turns batches of voxel values into RGBA bytes.
//
// It provides palettes and palette color mappings for scalar data, label
// tables for integer label data, map statistics used for palette scaling,
// and outline post-processors that operate on a row/column grid of colored
// cells. Every coloring function works on a whole batch of values at once.
package coloring

import (
	"fmt"
	"sort"
	"sync"
)

// PalettePoint is one control point of a palette. Scalar is in [-1, 1].
type PalettePoint struct {
	Scalar float64
	Color  [3]uint8
}

// Palette is a piecewise color ramp over normalized scalars.
type Palette struct {
	Name   string
	Points []PalettePoint
}

// NewPalette creates a palette, sorting its control points by scalar.
func NewPalette(name string, points ...PalettePoint) *Palette {
	p := &Palette{Name: name, Points: append([]PalettePoint(nil), points...)}
	sort.Slice(p.Points, func(i, j int) bool {
		return p.Points[i].Scalar < p.Points[j].Scalar
	})
	return p
}

// Color returns the color at a normalized scalar as floats in [0, 255].
// Scalars outside the control point range take the color of the nearest
// end point. Without interpolation the color of the nearest control point at
// or below the scalar is used.
func (p *Palette) Color(scalar float64, interpolate bool) [3]float64 {
	pts := p.Points
	if len(pts) == 0 {
		return [3]float64{}
	}
	if scalar <= pts[0].Scalar {
		return toFloat(pts[0].Color)
	}
	last := pts[len(pts)-1]
	if scalar >= last.Scalar {
		return toFloat(last.Color)
	}

	// first point strictly above the scalar
	hi := sort.Search(len(pts), func(i int) bool { return pts[i].Scalar > scalar })
	lo := hi - 1
	if !interpolate {
		return toFloat(pts[lo].Color)
	}
	a, b := pts[lo], pts[hi]
	t := (scalar - a.Scalar) / (b.Scalar - a.Scalar)
	var out [3]float64
	for c := 0; c < 3; c++ {
		out[c] = float64(a.Color[c])*(1-t) + float64(b.Color[c])*t
	}
	return out
}

func toFloat(c [3]uint8) [3]float64 {
	return [3]float64{float64(c[0]), float64(c[1]), float64(c[2])}
}

// Names of the built-in palettes.
const (
	PaletteGrayInterp         = "Gray_Interp"
	PaletteGrayInterpPositive = "Gray_Interp_Positive"
	PaletteRoyBigBl           = "ROY-BIG-BL"
	PaletteHot                = "Hot"
)

var (
	paletteMu sync.RWMutex
	palettes  = map[string]*Palette{}
)

func init() {
	RegisterPalette(NewPalette(PaletteGrayInterp,
		PalettePoint{-1, [3]uint8{0, 0, 0}},
		PalettePoint{1, [3]uint8{255, 255, 255}},
	))
	RegisterPalette(NewPalette(PaletteGrayInterpPositive,
		PalettePoint{0, [3]uint8{0, 0, 0}},
		PalettePoint{1, [3]uint8{255, 255, 255}},
	))
	RegisterPalette(NewPalette(PaletteRoyBigBl,
		PalettePoint{1, [3]uint8{255, 255, 0}},
		PalettePoint{0.5, [3]uint8{255, 120, 0}},
		PalettePoint{0.0001, [3]uint8{255, 0, 0}},
		PalettePoint{0, [3]uint8{0, 0, 0}},
		PalettePoint{-0.0001, [3]uint8{0, 0, 255}},
		PalettePoint{-0.5, [3]uint8{0, 160, 255}},
		PalettePoint{-1, [3]uint8{0, 255, 0}},
	))
	RegisterPalette(NewPalette(PaletteHot,
		PalettePoint{0, [3]uint8{0, 0, 0}},
		PalettePoint{0.33, [3]uint8{255, 0, 0}},
		PalettePoint{0.66, [3]uint8{255, 255, 0}},
		PalettePoint{1, [3]uint8{255, 255, 255}},
	))
}

// RegisterPalette makes a palette available by name, replacing any palette
// with the same name.
func RegisterPalette(p *Palette) {
	paletteMu.Lock()
	defer paletteMu.Unlock()
	palettes[p.Name] = p
}

// LookupPalette returns the palette registered under name.
func LookupPalette(name string) (*Palette, error) {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	p, ok := palettes[name]
	if !ok {
		return nil, fmt.Errorf("unknown palette %q", name)
	}
	return p, nil
}
