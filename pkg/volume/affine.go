package volume

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Affine maps continuous voxel indices to space coordinates.
type Affine struct {
	fwd *mat.Dense
	inv *mat.Dense
}

// NewAffine builds a transform from a 4x4 row-major index to space matrix.
func NewAffine(m *mat.Dense) (*Affine, error) {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return nil, fmt.Errorf("affine must be 4x4, got %dx%d", r, c)
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, fmt.Errorf("affine is not invertible: %w", err)
	}
	return &Affine{fwd: mat.DenseCopyOf(m), inv: &inv}, nil
}

// NewScaleAffine builds an axis-aligned transform where voxel (0,0,0) is
// centered at origin.
func NewScaleAffine(spacing, origin r3.Vec) *Affine {
	m := mat.NewDense(4, 4, []float64{
		spacing.X, 0, 0, origin.X,
		0, spacing.Y, 0, origin.Y,
		0, 0, spacing.Z, origin.Z,
		0, 0, 0, 1,
	})
	a, err := NewAffine(m)
	if err != nil {
		// only reachable with a zero spacing
		panic(fmt.Sprintf("volume: invalid voxel spacing %v", spacing))
	}
	return a
}

func apply(m *mat.Dense, x, y, z float64) r3.Vec {
	return r3.Vec{
		X: m.At(0, 0)*x + m.At(0, 1)*y + m.At(0, 2)*z + m.At(0, 3),
		Y: m.At(1, 0)*x + m.At(1, 1)*y + m.At(1, 2)*z + m.At(1, 3),
		Z: m.At(2, 0)*x + m.At(2, 1)*y + m.At(2, 2)*z + m.At(2, 3),
	}
}

// Apply maps an index position to space.
func (a *Affine) Apply(i, j, k float64) r3.Vec {
	return apply(a.fwd, i, j, k)
}

// Inverse maps a space position to a continuous index position.
func (a *Affine) Inverse(p r3.Vec) r3.Vec {
	return apply(a.inv, p.X, p.Y, p.Z)
}

// Spacing returns the length of one voxel step along each index axis.
func (a *Affine) Spacing() r3.Vec {
	col := func(c int) float64 {
		return math.Sqrt(a.fwd.At(0, c)*a.fwd.At(0, c) +
			a.fwd.At(1, c)*a.fwd.At(1, c) +
			a.fwd.At(2, c)*a.fwd.At(2, c))
	}
	return r3.Vec{X: col(0), Y: col(1), Z: col(2)}
}
