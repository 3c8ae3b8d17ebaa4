package models

// ValueKind identifies how the values of a voxel map are turned into color.
type ValueKind int

const (
	// PaletteScalar maps are colored through a continuous palette with
	// optional thresholding.
	PaletteScalar ValueKind = iota

	// LabelIndex maps hold integer keys into a label table.
	LabelIndex

	// RGB maps hold three color components per voxel.
	RGB

	// RGBA maps hold four color components per voxel.
	RGBA
)

// String returns the configuration name of the kind.
func (k ValueKind) String() string {
	switch k {
	case PaletteScalar:
		return "palette"
	case LabelIndex:
		return "label"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	}
	return "unknown"
}

// Components returns the number of stored components per voxel for the kind.
func (k ValueKind) Components() int {
	switch k {
	case RGB:
		return 3
	case RGBA:
		return 4
	}
	return 1
}

// Volume represents a dense voxel grid held in memory
type Volume struct {
	// Data holds all voxels as a 1D array. Maps are stored one after the
	// other, and within a map voxels are in i-fastest order with the
	// components of a voxel interleaved.
	Data []float32

	// Dimensions of the grid in voxels
	Width  int
	Height int
	Depth  int

	// Maps is the number of maps (frames) in the grid
	Maps int

	// Kind is the value mapping of every map in the grid
	Kind ValueKind

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}

	// Origin is the physical position of the center of voxel (0,0,0)
	Origin struct {
		X, Y, Z float64
	}
}

// NewVolume allocates a zero-filled volume.
func NewVolume(width, height, depth, maps int, kind ValueKind) *Volume {
	v := &Volume{
		Width:  width,
		Height: height,
		Depth:  depth,
		Maps:   maps,
		Kind:   kind,
	}
	v.Data = make([]float32, width*height*depth*maps*kind.Components())
	v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z = 1, 1, 1
	return v
}

// MapLen returns the number of float32 values stored for one map.
func (v *Volume) MapLen() int {
	return v.Width * v.Height * v.Depth * v.Kind.Components()
}

// Offset returns the index into Data of the given voxel component.
func (v *Volume) Offset(i, j, k, mapIndex, component int) int {
	voxel := i + j*v.Width + k*v.Width*v.Height
	return mapIndex*v.MapLen() + voxel*v.Kind.Components() + component
}

// Set stores a component value.
func (v *Volume) Set(i, j, k, mapIndex, component int, value float32) {
	v.Data[v.Offset(i, j, k, mapIndex, component)] = value
}

// At returns a component value.
func (v *Volume) At(i, j, k, mapIndex, component int) float32 {
	return v.Data[v.Offset(i, j, k, mapIndex, component)]
}

// MapData returns the slice of Data holding one map.
func (v *Volume) MapData(mapIndex int) []float32 {
	n := v.MapLen()
	return v.Data[mapIndex*n : (mapIndex+1)*n]
}
