package volume

import (
	"fmt"
	"math"

	"obliqueslice/internal/models"
	"obliqueslice/pkg/coloring"
)

// Phantom label keys.
const (
	PhantomLabelLeft   = 1
	PhantomLabelRight  = 2
	PhantomLabelCenter = 3
)

// NewPhantom builds a cubic synthetic head of n voxels per side with the
// given isotropic spacing, centered on the origin.
//
// Scalar phantoms hold a positive sphere that fades toward its surface and a
// negative blob. Label phantoms split the sphere into left and right halves
// around a central core. RGB and RGBA phantoms color the sphere by
// position.
func NewPhantom(kind models.ValueKind, n int, spacing float64) (*models.Volume, error) {
	if n < 2 {
		return nil, fmt.Errorf("phantom needs at least 2 voxels per side, got %d", n)
	}
	if spacing <= 0 {
		return nil, fmt.Errorf("phantom spacing must be positive, got %f", spacing)
	}
	vol := models.NewVolume(n, n, n, 1, kind)
	vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z = spacing, spacing, spacing
	half := float64(n-1) / 2
	vol.Origin.X, vol.Origin.Y, vol.Origin.Z = -half*spacing, -half*spacing, -half*spacing

	radius := 0.45 * float64(n)
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				x, y, z := float64(i)-half, float64(j)-half, float64(k)-half
				r := math.Sqrt(x*x + y*y + z*z)
				if r > radius {
					continue
				}
				switch kind {
				case models.PaletteScalar:
					v := 100 * (1 - r/radius)
					bx, by, bz := x-radius/3, y, z+radius/3
					if math.Sqrt(bx*bx+by*by+bz*bz) < radius/5 {
						v = -50
					}
					vol.Set(i, j, k, 0, 0, float32(v))
				case models.LabelIndex:
					label := PhantomLabelRight
					switch {
					case r < radius/3:
						label = PhantomLabelCenter
					case x < 0:
						label = PhantomLabelLeft
					}
					vol.Set(i, j, k, 0, 0, float32(label))
				case models.RGB, models.RGBA:
					vol.Set(i, j, k, 0, 0, float32((x+half)/float64(n)))
					vol.Set(i, j, k, 0, 1, float32((y+half)/float64(n)))
					vol.Set(i, j, k, 0, 2, float32((z+half)/float64(n)))
					if kind == models.RGBA {
						vol.Set(i, j, k, 0, 3, float32(1-0.5*r/radius))
					}
				}
			}
		}
	}
	return vol, nil
}

// PhantomLabelTable returns the label table matching label phantoms.
func PhantomLabelTable() *coloring.LabelTable {
	t := coloring.NewLabelTable()
	t.Add(coloring.Label{Key: 0, Name: "???", Color: [4]float64{0, 0, 0, 0}})
	t.Add(coloring.Label{Key: PhantomLabelLeft, Name: "Left", Color: [4]float64{0.9, 0.2, 0.2, 1}})
	t.Add(coloring.Label{Key: PhantomLabelRight, Name: "Right", Color: [4]float64{0.2, 0.4, 0.9, 1}})
	t.Add(coloring.Label{Key: PhantomLabelCenter, Name: "Core", Color: [4]float64{0.9, 0.9, 0.2, 1}})
	return t
}
