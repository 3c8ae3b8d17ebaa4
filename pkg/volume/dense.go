package volume

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"obliqueslice/internal/models"
)

// DenseGrid is a grid held entirely in memory.
type DenseGrid struct {
	gridBase
	vol *models.Volume
}

// NewDenseGrid wraps a volume. The index to space transform is built from
// the volume's voxel size and origin unless affine is not nil.
func NewDenseGrid(name string, vol *models.Volume, affine *Affine) (*DenseGrid, error) {
	if vol.Width <= 0 || vol.Height <= 0 || vol.Depth <= 0 || vol.Maps <= 0 {
		return nil, fmt.Errorf("volume %q has empty dimensions %dx%dx%dx%d",
			name, vol.Width, vol.Height, vol.Depth, vol.Maps)
	}
	if len(vol.Data) != vol.MapLen()*vol.Maps {
		return nil, fmt.Errorf("volume %q holds %d values, expected %d",
			name, len(vol.Data), vol.MapLen()*vol.Maps)
	}
	if affine == nil {
		if vol.VoxelSize.X == 0 || vol.VoxelSize.Y == 0 || vol.VoxelSize.Z == 0 {
			return nil, fmt.Errorf("volume %q has a zero voxel size", name)
		}
		affine = NewScaleAffine(
			r3.Vec{X: vol.VoxelSize.X, Y: vol.VoxelSize.Y, Z: vol.VoxelSize.Z},
			r3.Vec{X: vol.Origin.X, Y: vol.Origin.Y, Z: vol.Origin.Z},
		)
	}
	g := &DenseGrid{vol: vol}
	g.init(name, vol, affine)
	g.voxel = vol.At
	g.mapData = func(mapIndex int) ([]float32, error) {
		return vol.MapData(mapIndex), nil
	}
	return g, nil
}

// Volume returns the backing storage.
func (g *DenseGrid) Volume() *models.Volume {
	return g.vol
}

// SetVoxel writes one component of a voxel. It is used by editing tools and
// invalidates the cached statistics of the map.
func (g *DenseGrid) SetVoxel(i, j, k, mapIndex, component int, value float32) error {
	if i < 0 || j < 0 || k < 0 || i >= g.dims.I || j >= g.dims.J || k >= g.dims.K ||
		!g.validMap(mapIndex) || component < 0 || component >= g.dims.Components {
		return fmt.Errorf("set voxel (%d,%d,%d) map %d: %w", i, j, k, mapIndex, ErrOutOfRange)
	}
	g.vol.Set(i, j, k, mapIndex, component, value)
	g.invalidateStatistics(mapIndex)
	return nil
}
