// Package interpolation resamples voxel grids at continuous index positions.
//
// Positions are expressed in voxel index space: the integer coordinate n is
// the center of voxel n, so a grid of size N covers [-0.5, N-0.5) along each
// axis.
package interpolation

import (
	"fmt"
	"math"
)

// Mode selects the interpolation kernel.
type Mode int

const (
	// Enclosing returns the value of the voxel containing the position.
	Enclosing Mode = iota

	// Trilinear blends the 8 surrounding voxel centers.
	Trilinear

	// Cubic applies a separable Catmull-Rom kernel over the 4x4x4
	// surrounding voxel centers. The kernel reproduces voxel values at
	// voxel centers but overshoots near sharp edges.
	Cubic
)

func (m Mode) String() string {
	switch m {
	case Enclosing:
		return "enclosing"
	case Trilinear:
		return "trilinear"
	case Cubic:
		return "cubic"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// VoxelSource provides random access to one scalar channel of a grid.
type VoxelSource interface {
	// Dims returns the number of voxels along each axis.
	Dims() (ni, nj, nk int)

	// Voxel returns the value at an in-range voxel index.
	Voxel(i, j, k int) float32
}

// Inside reports whether a continuous index position lies within the voxel
// space of a grid with the given dimensions.
func Inside(fi, fj, fk float64, ni, nj, nk int) bool {
	return fi >= -0.5 && fi < float64(ni)-0.5 &&
		fj >= -0.5 && fj < float64(nj)-0.5 &&
		fk >= -0.5 && fk < float64(nk)-0.5
}

// EnclosingIndex returns the voxel containing a continuous index position.
func EnclosingIndex(fi, fj, fk float64) (int, int, int) {
	return int(math.Floor(fi + 0.5)), int(math.Floor(fj + 0.5)), int(math.Floor(fk + 0.5))
}

// Interpolate resamples src at a continuous index position. The second
// result is false when the position is outside the voxel space.
func Interpolate(src VoxelSource, mode Mode, fi, fj, fk float64) (float32, bool) {
	ni, nj, nk := src.Dims()
	if !Inside(fi, fj, fk, ni, nj, nk) {
		return 0, false
	}
	switch mode {
	case Enclosing:
		i, j, k := EnclosingIndex(fi, fj, fk)
		return src.Voxel(i, j, k), true
	case Trilinear:
		return trilinear(src, fi, fj, fk, ni, nj, nk), true
	case Cubic:
		return cubic(src, fi, fj, fk, ni, nj, nk), true
	}
	panic(fmt.Sprintf("interpolation: unknown mode %d", int(mode)))
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func trilinear(src VoxelSource, fi, fj, fk float64, ni, nj, nk int) float32 {
	i0 := int(math.Floor(fi))
	j0 := int(math.Floor(fj))
	k0 := int(math.Floor(fk))
	xd := fi - float64(i0)
	yd := fj - float64(j0)
	zd := fk - float64(k0)

	ia, ib := clampIndex(i0, ni), clampIndex(i0+1, ni)
	ja, jb := clampIndex(j0, nj), clampIndex(j0+1, nj)
	ka, kb := clampIndex(k0, nk), clampIndex(k0+1, nk)

	c000 := float64(src.Voxel(ia, ja, ka))
	c100 := float64(src.Voxel(ib, ja, ka))
	c010 := float64(src.Voxel(ia, jb, ka))
	c110 := float64(src.Voxel(ib, jb, ka))
	c001 := float64(src.Voxel(ia, ja, kb))
	c101 := float64(src.Voxel(ib, ja, kb))
	c011 := float64(src.Voxel(ia, jb, kb))
	c111 := float64(src.Voxel(ib, jb, kb))

	c00 := c000*(1-xd) + c100*xd
	c10 := c010*(1-xd) + c110*xd
	c01 := c001*(1-xd) + c101*xd
	c11 := c011*(1-xd) + c111*xd

	c0 := c00*(1-yd) + c10*yd
	c1 := c01*(1-yd) + c11*yd

	return float32(c0*(1-zd) + c1*zd)
}

// catmullRom returns the four kernel weights for a fractional offset t in [0,1).
func catmullRom(t float64) [4]float64 {
	t2 := t * t
	t3 := t2 * t
	return [4]float64{
		(-t3 + 2*t2 - t) / 2,
		(3*t3 - 5*t2 + 2) / 2,
		(-3*t3 + 4*t2 + t) / 2,
		(t3 - t2) / 2,
	}
}

func cubic(src VoxelSource, fi, fj, fk float64, ni, nj, nk int) float32 {
	i0 := int(math.Floor(fi))
	j0 := int(math.Floor(fj))
	k0 := int(math.Floor(fk))
	wi := catmullRom(fi - float64(i0))
	wj := catmullRom(fj - float64(j0))
	wk := catmullRom(fk - float64(k0))

	var sum float64
	for c := 0; c < 4; c++ {
		if wk[c] == 0 {
			continue
		}
		k := clampIndex(k0-1+c, nk)
		var plane float64
		for b := 0; b < 4; b++ {
			if wj[b] == 0 {
				continue
			}
			j := clampIndex(j0-1+b, nj)
			var row float64
			for a := 0; a < 4; a++ {
				if wi[a] == 0 {
					continue
				}
				row += wi[a] * float64(src.Voxel(clampIndex(i0-1+a, ni), j, k))
			}
			plane += wj[b] * row
		}
		sum += wk[c] * plane
	}
	return float32(sum)
}
