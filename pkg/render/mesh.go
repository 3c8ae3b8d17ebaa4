package render

import (
	"gonum.org/v1/gonum/spatial/r3"

	"obliqueslice/pkg/geometry"
)

const (
	// floatsPerCell is two triangles of three xyz vertices.
	floatsPerCell = 18

	// CompositedLayer is the Layer of meshes holding merged colors.
	CompositedLayer = -1
)

// Mesh is a list of flat colored cells, each drawn as two triangles.
type Mesh struct {
	// Layer is the index of the drawn layer, or CompositedLayer.
	Layer int

	// Identification marks meshes whose colors encode pick ids.
	Identification bool

	Quad geometry.Quad

	// Vertices holds 18 coordinates per cell: the triangles
	// (bottom-left, bottom-right, top-right) and
	// (bottom-left, top-right, top-left).
	Vertices []float32

	// Colors holds four bytes per cell.
	Colors []uint8

	// IDs holds one pick id per triangle in identification meshes.
	IDs []uint32
}

// Cells returns the number of cells in the mesh.
func (m *Mesh) Cells() int {
	return len(m.Vertices) / floatsPerCell
}

// Triangles returns the number of triangles in the mesh.
func (m *Mesh) Triangles() int {
	return 2 * m.Cells()
}

// CellColor returns the color of the n-th cell.
func (m *Mesh) CellColor(n int) [4]uint8 {
	var c [4]uint8
	copy(c[:], m.Colors[n*4:n*4+4])
	return c
}

// CellCorners returns the bottom-left, bottom-right, top-right and top-left
// corners of the n-th cell.
func (m *Mesh) CellCorners(n int) [4]r3.Vec {
	v := m.Vertices[n*floatsPerCell:]
	at := func(i int) r3.Vec {
		return r3.Vec{X: float64(v[i*3]), Y: float64(v[i*3+1]), Z: float64(v[i*3+2])}
	}
	return [4]r3.Vec{at(0), at(1), at(2), at(5)}
}

func newMesh(layer int, quad geometry.Quad, identification bool) *Mesh {
	n := quad.Cells()
	m := &Mesh{
		Layer:          layer,
		Identification: identification,
		Quad:           quad,
		Vertices:       make([]float32, 0, n*floatsPerCell),
		Colors:         make([]uint8, 0, n*4),
	}
	if identification {
		m.IDs = make([]uint32, 0, n*2)
	}
	return m
}

func (m *Mesh) addCell(row, col int, color []uint8) {
	c := m.Quad.CellCorners(row, col)
	for _, i := range [6]int{0, 1, 2, 0, 2, 3} {
		m.Vertices = append(m.Vertices, float32(c[i].X), float32(c[i].Y), float32(c[i].Z))
	}
	m.Colors = append(m.Colors, color[:4]...)
}

// Sink receives the meshes of a frame in drawing order.
type Sink interface {
	DrawMesh(ctx *FrameContext, m *Mesh) error
}

// MeshRecorder is a Sink that keeps every mesh in memory.
type MeshRecorder struct {
	Meshes   []*Mesh
	Contexts []*FrameContext
}

// DrawMesh appends the mesh.
func (r *MeshRecorder) DrawMesh(ctx *FrameContext, m *Mesh) error {
	r.Meshes = append(r.Meshes, m)
	r.Contexts = append(r.Contexts, ctx)
	return nil
}

// Reset drops all recorded meshes.
func (r *MeshRecorder) Reset() {
	r.Meshes = r.Meshes[:0]
	r.Contexts = r.Contexts[:0]
}

// Cells returns the number of cells over all recorded meshes.
func (r *MeshRecorder) Cells() int {
	n := 0
	for _, m := range r.Meshes {
		n += m.Cells()
	}
	return n
}
