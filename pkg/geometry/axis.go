// Package geometry computes where a slice lies in model space: the cutting
// plane, the slice quadrilateral and the regular grid of voxel-sized cells
// that the renderer walks across it.
package geometry

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Axis is a view plane orientation.
type Axis int

const (
	Axial Axis = iota
	Coronal
	Parasagittal
)

// AxisDescriptor describes how a view plane is embedded in model space.
// Horizontal and Vertical are the model directions of the screen's x and y
// axes before any oblique rotation; Normal is their cross product.
type AxisDescriptor struct {
	Axis       Axis
	Name       string
	Normal     r3.Vec
	Horizontal r3.Vec
	Vertical   r3.Vec

	// Orientation labels at the left/right and bottom/top screen edges.
	HorizontalLabels [2]string
	VerticalLabels   [2]string
}

var axisDescriptors = [...]AxisDescriptor{
	Axial: {
		Axis:             Axial,
		Name:             "axial",
		Normal:           r3.Vec{Z: 1},
		Horizontal:       r3.Vec{X: 1},
		Vertical:         r3.Vec{Y: 1},
		HorizontalLabels: [2]string{"L", "R"},
		VerticalLabels:   [2]string{"P", "A"},
	},
	Coronal: {
		Axis:             Coronal,
		Name:             "coronal",
		Normal:           r3.Vec{Y: -1},
		Horizontal:       r3.Vec{X: 1},
		Vertical:         r3.Vec{Z: 1},
		HorizontalLabels: [2]string{"L", "R"},
		VerticalLabels:   [2]string{"I", "S"},
	},
	Parasagittal: {
		Axis:             Parasagittal,
		Name:             "parasagittal",
		Normal:           r3.Vec{X: 1},
		Horizontal:       r3.Vec{Y: 1},
		Vertical:         r3.Vec{Z: 1},
		HorizontalLabels: [2]string{"P", "A"},
		VerticalLabels:   [2]string{"I", "S"},
	},
}

// Axes lists the view plane orientations.
var Axes = []Axis{Axial, Coronal, Parasagittal}

// Descriptor returns the embedding of the axis.
func (a Axis) Descriptor() AxisDescriptor {
	if a < Axial || a > Parasagittal {
		panic(fmt.Sprintf("geometry: unknown axis %d", int(a)))
	}
	return axisDescriptors[a]
}

func (a Axis) String() string {
	if a < Axial || a > Parasagittal {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return axisDescriptors[a].Name
}

// ParseAxis converts a configuration name into an Axis.
func ParseAxis(s string) (Axis, error) {
	for _, a := range Axes {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}
	switch strings.ToLower(s) {
	case "z":
		return Axial, nil
	case "y":
		return Coronal, nil
	case "x", "sagittal":
		return Parasagittal, nil
	}
	return 0, fmt.Errorf("unknown view plane %q", s)
}

// RotationFromEuler returns the rotation that turns by x, then y, then z
// degrees about the model axes.
func RotationFromEuler(x, y, z float64) *r3.Mat {
	rx := r3.NewRotation(x*math.Pi/180, r3.Vec{X: 1})
	ry := r3.NewRotation(y*math.Pi/180, r3.Vec{Y: 1})
	rz := r3.NewRotation(z*math.Pi/180, r3.Vec{Z: 1})

	var cols [3]r3.Vec
	for c, e := range []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}} {
		cols[c] = rz.Rotate(ry.Rotate(rx.Rotate(e)))
	}
	return r3.NewMat([]float64{
		cols[0].X, cols[1].X, cols[2].X,
		cols[0].Y, cols[1].Y, cols[2].Y,
		cols[0].Z, cols[1].Z, cols[2].Z,
	})
}

// Rotate applies a rotation to v. A nil rotation is the identity.
func Rotate(m *r3.Mat, v r3.Vec) r3.Vec {
	if m == nil {
		return v
	}
	return m.MulVec(v)
}
