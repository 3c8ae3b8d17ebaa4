// Package volume defines the voxel grid contract consumed by the slice
// renderer and provides in-memory and block-compressed implementations.
package volume

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"obliqueslice/internal/models"
	"obliqueslice/pkg/coloring"
	"obliqueslice/pkg/interpolation"
)

// ErrOutOfRange is returned when a map or block index does not exist.
var ErrOutOfRange = errors.New("volume: index out of range")

// Dimensions holds the extent of a grid.
type Dimensions struct {
	I, J, K    int
	Maps       int
	Components int
}

// Max returns the largest of the three spatial dimensions.
func (d Dimensions) Max() int {
	return max(d.I, d.J, d.K)
}

// MapMetadata holds the coloring metadata of one map.
type MapMetadata struct {
	Name string

	// Palette colors PaletteScalar maps.
	Palette *coloring.PaletteColorMapping

	// ThresholdGrid is sampled for ThresholdFile thresholding. A nil grid
	// means the map's own grid.
	ThresholdGrid Grid

	// Labels and LabelDrawing color LabelIndex maps.
	Labels       *coloring.LabelTable
	LabelDrawing coloring.LabelDrawing
}

// Grid is a read-only voxel grid with an index to space transform.
type Grid interface {
	Name() string
	Dimensions() Dimensions
	Kind() models.ValueKind

	// Spacing returns the absolute voxel edge lengths along the i, j and k
	// axes.
	Spacing() r3.Vec

	// IndexToSpace returns the space position of a continuous voxel index.
	IndexToSpace(i, j, k float64) r3.Vec

	// SpaceToIndex returns the continuous voxel index of a space position.
	SpaceToIndex(p r3.Vec) r3.Vec

	// EnclosingVoxel returns the voxel containing p.
	EnclosingVoxel(p r3.Vec) (i, j, k int, ok bool)

	// VoxelValue returns one component of the voxel containing p.
	VoxelValue(p r3.Vec, mapIndex, component int) (float32, bool)

	// InterpolatedValue resamples the first component of a map at p.
	InterpolatedValue(p r3.Vec, mode interpolation.Mode, mapIndex int) (float32, bool)

	// MapMetadata returns the coloring metadata of a map.
	MapMetadata(mapIndex int) *MapMetadata

	// MapStatistics returns statistics over all values of a map. It may
	// return nil when statistics are unavailable.
	MapStatistics(mapIndex int) *coloring.Statistics
}

// Prefetcher is implemented by grids whose random voxel access is
// expensive. MapData returns a whole map as a flat array laid out like
// models.Volume map data.
type Prefetcher interface {
	MapData(mapIndex int) ([]float32, error)
}

// voxelFunc reads one component of an in-range voxel.
type voxelFunc func(i, j, k, mapIndex, component int) float32

// gridBase implements the parts of Grid shared by all grid types.
type gridBase struct {
	name   string
	dims   Dimensions
	kind   models.ValueKind
	affine *Affine
	voxel  voxelFunc

	mu       sync.Mutex
	metadata []*MapMetadata
	stats    []*coloring.Statistics
	mapData  func(mapIndex int) ([]float32, error)
}

func (b *gridBase) init(name string, vol *models.Volume, affine *Affine) {
	b.name = name
	b.dims = Dimensions{
		I: vol.Width, J: vol.Height, K: vol.Depth,
		Maps: vol.Maps, Components: vol.Kind.Components(),
	}
	b.kind = vol.Kind
	b.affine = affine
	b.metadata = make([]*MapMetadata, vol.Maps)
	b.stats = make([]*coloring.Statistics, vol.Maps)
	for m := range b.metadata {
		b.metadata[m] = defaultMetadata(vol.Kind, m)
	}
}

func defaultMetadata(kind models.ValueKind, mapIndex int) *MapMetadata {
	md := &MapMetadata{Name: fmt.Sprintf("map %d", mapIndex+1)}
	switch kind {
	case models.PaletteScalar:
		md.Palette = coloring.NewPaletteColorMapping(coloring.PaletteGrayInterpPositive)
	case models.LabelIndex:
		md.Labels = coloring.NewLabelTable()
	}
	return md
}

func (b *gridBase) Name() string                 { return b.name }
func (b *gridBase) Dimensions() Dimensions       { return b.dims }
func (b *gridBase) Kind() models.ValueKind       { return b.kind }
func (b *gridBase) Spacing() r3.Vec              { return b.affine.Spacing() }
func (b *gridBase) SpaceToIndex(p r3.Vec) r3.Vec { return b.affine.Inverse(p) }

func (b *gridBase) IndexToSpace(i, j, k float64) r3.Vec {
	return b.affine.Apply(i, j, k)
}

func (b *gridBase) EnclosingVoxel(p r3.Vec) (int, int, int, bool) {
	idx := b.affine.Inverse(p)
	if !interpolation.Inside(idx.X, idx.Y, idx.Z, b.dims.I, b.dims.J, b.dims.K) {
		return 0, 0, 0, false
	}
	i, j, k := interpolation.EnclosingIndex(idx.X, idx.Y, idx.Z)
	return i, j, k, true
}

func (b *gridBase) validMap(mapIndex int) bool {
	return mapIndex >= 0 && mapIndex < b.dims.Maps
}

func (b *gridBase) VoxelValue(p r3.Vec, mapIndex, component int) (float32, bool) {
	if !b.validMap(mapIndex) || component < 0 || component >= b.dims.Components {
		return 0, false
	}
	i, j, k, ok := b.EnclosingVoxel(p)
	if !ok {
		return 0, false
	}
	return b.voxel(i, j, k, mapIndex, component), true
}

func (b *gridBase) InterpolatedValue(p r3.Vec, mode interpolation.Mode, mapIndex int) (float32, bool) {
	if !b.validMap(mapIndex) {
		return 0, false
	}
	idx := b.affine.Inverse(p)
	return interpolation.Interpolate(channel{b: b, mapIndex: mapIndex}, mode, idx.X, idx.Y, idx.Z)
}

// MapMetadata returns the metadata of a map, or nil for an invalid index.
func (b *gridBase) MapMetadata(mapIndex int) *MapMetadata {
	if !b.validMap(mapIndex) {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metadata[mapIndex]
}

// SetMapMetadata replaces the metadata of a map.
func (b *gridBase) SetMapMetadata(mapIndex int, md *MapMetadata) error {
	if !b.validMap(mapIndex) {
		return fmt.Errorf("set metadata of map %d: %w", mapIndex, ErrOutOfRange)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metadata[mapIndex] = md
	return nil
}

// MapStatistics computes statistics over the first component of a map on
// first use and caches them.
func (b *gridBase) MapStatistics(mapIndex int) *coloring.Statistics {
	if !b.validMap(mapIndex) {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if s := b.stats[mapIndex]; s != nil {
		return s
	}
	data, err := b.mapData(mapIndex)
	if err != nil {
		return nil
	}
	values := data
	if b.dims.Components > 1 {
		values = make([]float32, 0, len(data)/b.dims.Components)
		for i := 0; i < len(data); i += b.dims.Components {
			values = append(values, data[i])
		}
	}
	b.stats[mapIndex] = coloring.NewStatistics(values)
	return b.stats[mapIndex]
}

// invalidateStatistics drops cached statistics after data changes.
func (b *gridBase) invalidateStatistics(mapIndex int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats[mapIndex] = nil
}

// channel adapts one map of a grid to interpolation.VoxelSource.
type channel struct {
	b        *gridBase
	mapIndex int
}

func (c channel) Dims() (int, int, int) {
	return c.b.dims.I, c.b.dims.J, c.b.dims.K
}

func (c channel) Voxel(i, j, k int) float32 {
	return c.b.voxel(i, j, k, c.mapIndex, 0)
}
