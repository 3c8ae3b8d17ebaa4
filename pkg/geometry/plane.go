package geometry

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// degenerateNormal is the smallest normal length accepted for a plane.
const degenerateNormal = 1e-9

// SlicePlane is a cutting plane through model space.
type SlicePlane struct {
	Normal r3.Vec
	Point  r3.Vec
}

// NewSlicePlane returns the plane of a view axis after rotation, passing
// through point.
func NewSlicePlane(axis Axis, rotation *r3.Mat, point r3.Vec) SlicePlane {
	n := Rotate(rotation, axis.Descriptor().Normal)
	if r3.Norm(n) > degenerateNormal {
		n = r3.Unit(n)
	}
	return SlicePlane{Normal: n, Point: point}
}

// Valid reports whether the plane has a usable normal.
func (p SlicePlane) Valid() bool {
	return r3.Norm(p.Normal) > degenerateNormal
}

// SignedDistance returns the distance of q from the plane along the normal.
func (p SlicePlane) SignedDistance(q r3.Vec) float64 {
	return r3.Dot(r3.Unit(p.Normal), r3.Sub(q, p.Point))
}

// Translated returns the plane moved by d along its normal.
func (p SlicePlane) Translated(d float64) SlicePlane {
	return SlicePlane{
		Normal: p.Normal,
		Point:  r3.Add(p.Point, r3.Scale(d, r3.Unit(p.Normal))),
	}
}
