// Package identify records which voxel every drawn cell came from so a
// picked triangle can be resolved back to its layer, map and voxel.
package identify

import "fmt"

const (
	intWidth   = 5
	floatWidth = 3

	// MaxPickID is the largest id that fits in an encoded color.
	MaxPickID = 1<<24 - 2
)

// Record identifies the voxel under a drawn cell.
type Record struct {
	Layer    int
	MapIndex int
	I, J, K  int

	// Diff is the cell diagonal used to outline the picked voxel.
	Diff [3]float32
}

// Index stores records in two flat slabs indexed by pick id.
type Index struct {
	ints   []int64
	floats []float32
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// CapacityHint returns the expected number of records of one slice through
// a grid with the given dimensions.
func CapacityHint(i, j, k int) int {
	n := max(i, j, k)
	return n * n
}

// Reset clears the index and reserves room for estimated records.
func (x *Index) Reset(estimated int) {
	if cap(x.ints) < estimated*intWidth {
		x.ints = make([]int64, 0, estimated*intWidth)
		x.floats = make([]float32, 0, estimated*floatWidth)
	}
	x.ints = x.ints[:0]
	x.floats = x.floats[:0]
}

// Record adds a record and returns its pick id.
func (x *Index) Record(r Record) uint32 {
	id := uint32(len(x.ints) / intWidth)
	x.ints = append(x.ints, int64(r.Layer), int64(r.MapIndex), int64(r.I), int64(r.J), int64(r.K))
	x.floats = append(x.floats, r.Diff[:]...)
	return id
}

// Len returns the number of records.
func (x *Index) Len() int {
	return len(x.ints) / intWidth
}

// Resolve returns the record of a pick id.
func (x *Index) Resolve(id uint32) (Record, bool) {
	if int(id) >= x.Len() {
		return Record{}, false
	}
	i := int(id) * intWidth
	f := int(id) * floatWidth
	return Record{
		Layer:    int(x.ints[i]),
		MapIndex: int(x.ints[i+1]),
		I:        int(x.ints[i+2]),
		J:        int(x.ints[i+3]),
		K:        int(x.ints[i+4]),
		Diff:     [3]float32{x.floats[f], x.floats[f+1], x.floats[f+2]},
	}, true
}

// EncodeColor packs a pick id into an opaque RGB color. Ids are shifted by
// one so black means no pick.
func EncodeColor(id uint32) ([4]uint8, error) {
	if id > MaxPickID {
		return [4]uint8{}, fmt.Errorf("pick id %d does not fit in a color", id)
	}
	v := id + 1
	return [4]uint8{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}, nil
}

// DecodeColor returns the pick id of an encoded color, or false for black.
func DecodeColor(rgb [3]uint8) (uint32, bool) {
	v := uint32(rgb[0])<<16 | uint32(rgb[1])<<8 | uint32(rgb[2])
	if v == 0 {
		return 0, false
	}
	return v - 1, true
}
