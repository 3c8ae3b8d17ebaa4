// Package render draws oblique and orthogonal slices through a stack of
// voxel grid layers.
//
// Each slice goes through the same steps: the frame context is set up, the
// slice quad is built, every layer is sampled and colored on the quad's
// cells, the layers are composited and the cells are emitted to a Sink as
// triangles. In identification mode compositing is skipped and every
// emitted cell gets a pick id that Resolve maps back to its voxel.
//
// A Renderer is not safe for concurrent use. Use one renderer per
// goroutine; grids are only read.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"obliqueslice/internal/logging"
	"obliqueslice/pkg/composite"
	"obliqueslice/pkg/geometry"
	"obliqueslice/pkg/identify"
	"obliqueslice/pkg/interpolation"
	"obliqueslice/pkg/layer"
	"obliqueslice/pkg/sampler"
)

// SetLogger sets the logger used by the slice pipeline. Pass nil to
// disable logging.
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// Stats summarizes one call of DrawFrame.
type Stats struct {
	Slices    int
	Skipped   int
	Layers    int
	Cells     int
	Triangles int
	Meshes    int

	// Fallbacks counts slices whose layers were drawn as separate meshes
	// because they were not on the same cell grid.
	Fallbacks int

	// Records is the number of identification records.
	Records int

	// Unpickable counts identification cells left out because every pick
	// id was taken.
	Unpickable int

	// Aborted is set when the slice plane was invalid.
	Aborted bool
}

// Renderer runs the slice pipeline. Its buffers are reused across frames.
type Renderer struct {
	state State
	acc   *layer.Accumulator
	index *identify.Index

	// samplers holds one sampler per layer for the current frame, nil for
	// edited layers.
	samplers []*sampler.Sampler

	maxPickID  uint32
	unpickable int

	// triangleIDs maps the triangles of the last identification frame,
	// in emission order, to pick ids.
	triangleIDs []uint32
}

// NewRenderer returns a renderer.
func NewRenderer() *Renderer {
	return &Renderer{
		acc:       layer.NewAccumulator(),
		index:     identify.NewIndex(),
		maxPickID: identify.MaxPickID,
	}
}

// State returns the current pipeline state.
func (r *Renderer) State() State {
	return r.state
}

func (r *Renderer) enter(s State, ctx *FrameContext) {
	if l := logging.Logger(); l.Enabled(context.Background(), slog.LevelDebug) {
		args := []any{"from", r.state.String(), "to", s.String()}
		if ctx != nil {
			args = append(args, "slice", ctx.Instance, "axis", ctx.Axis.String())
		}
		l.Debug("slice state", args...)
	}
	r.state = s
}

// DrawFrame draws every slice of a view. Layers are drawn bottom first.
// Slices with invalid or empty geometry are skipped; the returned error
// only reports invalid layers and sink failures.
func (r *Renderer) DrawFrame(view View, layers []Layer, opts Options, sink Sink) (Stats, error) {
	var stats Stats
	if len(layers) == 0 {
		return stats, errors.New("render: no layers to draw")
	}
	for i, l := range layers {
		if l.Grid == nil {
			return stats, fmt.Errorf("render: layer %d has no grid", i)
		}
		if d := l.Grid.Dimensions(); l.MapIndex < 0 || l.MapIndex >= d.Maps {
			return stats, fmt.Errorf("render: layer %d map %d of %q out of range", i, l.MapIndex, l.Grid.Name())
		}
	}

	r.enter(StateSetup, nil)
	defer r.enter(StateNotDrawing, nil)

	contexts := setup(view, layers, opts)
	for i := range contexts {
		if !contexts[i].Plane.Valid() {
			logging.Logger().Debug("invalid slice plane, frame not drawn", "normal", contexts[i].Plane.Normal)
			stats.Aborted = true
			return stats, nil
		}
	}

	// Samplers prefetch whole maps, so they are built once for all slices.
	r.samplers = r.samplers[:0]
	for i, l := range layers {
		var s *sampler.Sampler
		if !l.DrawAllVoxels {
			var err error
			if s, err = sampler.New(l.Grid, l.MapIndex, opts.Masking); err != nil {
				return stats, fmt.Errorf("render: layer %d: %w", i, err)
			}
		}
		r.samplers = append(r.samplers, s)
	}
	defer clear(r.samplers)

	if opts.Identify {
		r.unpickable = 0
		hint := 0
		for _, l := range layers {
			d := l.Grid.Dimensions()
			hint = max(hint, identify.CapacityHint(d.I, d.J, d.K))
		}
		r.index.Reset(hint * len(contexts))
		r.triangleIDs = r.triangleIDs[:0]
	}

	stats.Layers = len(layers)
	for i := range contexts {
		if err := r.drawSlice(&contexts[i], sink, &stats); err != nil {
			return stats, err
		}
	}
	if opts.Identify {
		stats.Records = r.index.Len()
		stats.Unpickable = r.unpickable
		if r.unpickable > 0 {
			logging.Logger().Warn("identification frame ran out of pick ids", "unpickable", r.unpickable)
		}
	}
	return stats, nil
}

// drawSlice runs geometry, sampling, compositing and emission for one
// slice instance.
func (r *Renderer) drawSlice(ctx *FrameContext, sink Sink, stats *Stats) error {
	r.enter(StateGeometry, ctx)
	quads := make([]geometry.Quad, len(ctx.Layers))
	for i := range ctx.Layers {
		if i > 0 && ctx.Options.StepSource == StepUnderlay {
			quads[i] = quads[0]
			continue
		}
		ref := ctx.Layers[i].Grid
		q, err := geometry.Build(geometry.Request{
			Plane:       ctx.Plane,
			Axis:        ctx.Axis,
			Rotation:    ctx.Rotation,
			Bounds:      ctx.Bounds,
			AlignOrigin: ref.IndexToSpace(0, 0, 0),
			StepSize:    minSpacing(ref),
		})
		if err != nil {
			logging.Logger().Debug("slice geometry skipped", "slice", ctx.Instance, "layer", i, "err", err)
			stats.Skipped++
			return nil
		}
		quads[i] = q
	}
	stats.Slices++

	r.enter(StateSampleAndColor, ctx)
	buffers := make([]*layer.RGBABuffer, len(ctx.Layers))
	for i := range ctx.Layers {
		buf, err := r.sampleLayer(ctx, i, quads[i])
		if err != nil {
			return fmt.Errorf("render: layer %d: %w", i, err)
		}
		buffers[i] = buf
	}

	if ctx.Options.Identify {
		r.enter(StateEmit, ctx)
		return r.emitIdentification(ctx, buffers, sink, stats)
	}

	r.enter(StateComposite, ctx)
	merged, ok := composite.Composite(buffers)
	r.enter(StateEmit, ctx)
	if ok {
		m := newMesh(CompositedLayer, merged.Quad, false)
		for row := 0; row < merged.Quad.Rows; row++ {
			for col := 0; col < merged.Quad.Columns; col++ {
				cell := merged.Quad.CellIndex(row, col)
				if merged.RGBA[cell*4+3] > 0 {
					m.addCell(row, col, merged.RGBA[cell*4:])
				}
			}
		}
		return r.emit(ctx, m, sink, stats)
	}

	logging.Logger().Warn("layers are not on the same cell grid, drawing them separately", "slice", ctx.Instance)
	stats.Fallbacks++
	for i, buf := range buffers {
		m := newMesh(i, buf.Quad, false)
		for row := 0; row < buf.Quad.Rows; row++ {
			for col := 0; col < buf.Quad.Columns; col++ {
				cell := buf.Quad.CellIndex(row, col)
				if buf.Visible(cell) {
					m.addCell(row, col, buf.RGBA[cell*4:])
				}
			}
		}
		if err := r.emit(ctx, m, sink, stats); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) sampleLayer(ctx *FrameContext, index int, quad geometry.Quad) (*layer.RGBABuffer, error) {
	l := ctx.Layers[index]
	if l.DrawAllVoxels {
		r.acc.BeginDrawAll(l.Grid, l.MapIndex, quad)
		return r.acc.Colorize(ctx.Options.DisplayGroup, ctx.Options.Tab)
	}
	s := r.samplers[index]
	r.acc.Begin(l.Grid, l.MapIndex, l.Opacity, quad)
	for row := 0; row < quad.Rows; row++ {
		for col := 0; col < quad.Columns; col++ {
			r.acc.AddSample(quad.CellIndex(row, col), s.Sample(quad.CellCenter(row, col)))
		}
	}
	return r.acc.Colorize(ctx.Options.DisplayGroup, ctx.Options.Tab)
}

// emitIdentification emits one identification mesh per slice. Each cell is
// picked from the edited layer if there is one, otherwise from the last
// layer with a visible color, otherwise from the first layer when the cell
// center lies inside its grid.
func (r *Renderer) emitIdentification(ctx *FrameContext, buffers []*layer.RGBABuffer, sink Sink, stats *Stats) error {
	shared := true
	for _, b := range buffers[1:] {
		if !buffers[0].Quad.SpatialMatch(b.Quad) {
			shared = false
			break
		}
	}
	if !shared {
		stats.Fallbacks++
		for i, b := range buffers {
			m := newMesh(i, b.Quad, true)
			for row := 0; row < b.Quad.Rows; row++ {
				for col := 0; col < b.Quad.Columns; col++ {
					if b.Visible(b.Quad.CellIndex(row, col)) {
						if err := r.addPick(ctx, m, i, b, row, col); err != nil {
							return err
						}
					}
				}
			}
			if err := r.emit(ctx, m, sink, stats); err != nil {
				return err
			}
		}
		return nil
	}

	edited := -1
	for i, l := range ctx.Layers {
		if l.DrawAllVoxels {
			edited = i
		}
	}
	quad := buffers[0].Quad
	m := newMesh(CompositedLayer, quad, true)
	for row := 0; row < quad.Rows; row++ {
		for col := 0; col < quad.Columns; col++ {
			cell := quad.CellIndex(row, col)
			pick := edited
			if pick < 0 {
				for i := len(buffers) - 1; i >= 0; i-- {
					if buffers[i].Visible(cell) {
						pick = i
						break
					}
				}
			}
			if pick < 0 {
				pick = 0
				if _, _, _, ok := buffers[0].Grid.EnclosingVoxel(quad.CellCenter(row, col)); !ok {
					continue
				}
			}
			b := buffers[pick]
			if err := r.addPick(ctx, m, pick, b, row, col); err != nil {
				return err
			}
		}
	}
	return r.emit(ctx, m, sink, stats)
}

// addPick records the voxel under a cell and adds the cell with its pick
// color to an identification mesh.
func (r *Renderer) addPick(ctx *FrameContext, m *Mesh, layerIndex int, b *layer.RGBABuffer, row, col int) error {
	if r.index.Len() > int(r.maxPickID) {
		r.unpickable++
		return nil
	}
	q := b.Quad
	idx := b.Grid.SpaceToIndex(q.CellCenter(row, col))
	i, j, k := interpolation.EnclosingIndex(idx.X, idx.Y, idx.Z)
	d := q.CellDiagonal()
	id := r.index.Record(identify.Record{
		Layer:    layerIndex,
		MapIndex: ctx.Layers[layerIndex].MapIndex,
		I:        i, J: j, K: k,
		Diff: [3]float32{float32(d.X), float32(d.Y), float32(d.Z)},
	})
	color, err := identify.EncodeColor(id)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	m.addCell(row, col, color[:])
	m.IDs = append(m.IDs, id, id)
	return nil
}

func (r *Renderer) emit(ctx *FrameContext, m *Mesh, sink Sink, stats *Stats) error {
	stats.Meshes++
	stats.Cells += m.Cells()
	stats.Triangles += m.Triangles()
	if m.Identification {
		r.triangleIDs = append(r.triangleIDs, m.IDs...)
	}
	if sink == nil {
		return nil
	}
	if err := sink.DrawMesh(ctx, m); err != nil {
		return fmt.Errorf("render: draw slice %d: %w", ctx.Instance, err)
	}
	return nil
}

// Resolve returns the record of a triangle of the last identification
// frame. Triangles are numbered in emission order across all meshes.
func (r *Renderer) Resolve(triangle int) (identify.Record, bool) {
	if triangle < 0 || triangle >= len(r.triangleIDs) {
		return identify.Record{}, false
	}
	return r.index.Resolve(r.triangleIDs[triangle])
}

// ResolvePickID returns the record of a pick id.
func (r *Renderer) ResolvePickID(id uint32) (identify.Record, bool) {
	return r.index.Resolve(id)
}

// ResolveColor returns the record encoded in a pick color read back from
// an identification image.
func (r *Renderer) ResolveColor(rgb [3]uint8) (identify.Record, bool) {
	id, ok := identify.DecodeColor(rgb)
	if !ok {
		return identify.Record{}, false
	}
	return r.index.Resolve(id)
}
