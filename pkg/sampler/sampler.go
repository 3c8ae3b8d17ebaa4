// Package sampler reads the value of a voxel grid map at arbitrary points of
// a slice. The sampling method is chosen once from the map's value kind:
// palette scalars are resampled with a cubic kernel and masked against a
// coarser kernel, label indices and RGB colors use the enclosing voxel.
package sampler

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"obliqueslice/internal/logging"
	"obliqueslice/internal/models"
	"obliqueslice/pkg/coloring"
	"obliqueslice/pkg/interpolation"
	"obliqueslice/pkg/volume"
)

// MaskingPolicy selects the kernel used to check cubic samples near the
// edge of the data.
type MaskingPolicy int

const (
	// MaskOff keeps every cubic sample.
	MaskOff MaskingPolicy = iota

	// MaskLoose drops a cubic sample when the trilinear value is zero.
	MaskLoose

	// MaskTight drops a cubic sample when the enclosing voxel is zero.
	MaskTight
)

func (p MaskingPolicy) String() string {
	switch p {
	case MaskOff:
		return "off"
	case MaskLoose:
		return "loose"
	case MaskTight:
		return "tight"
	}
	return fmt.Sprintf("MaskingPolicy(%d)", int(p))
}

// ParseMaskingPolicy converts a configuration name to a policy.
func ParseMaskingPolicy(s string) (MaskingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "":
		return MaskOff, nil
	case "loose", "trilinear":
		return MaskLoose, nil
	case "tight", "nearest":
		return MaskTight, nil
	}
	return MaskOff, fmt.Errorf("unknown masking policy %q", s)
}

// Sample is the value of a map at one point.
type Sample struct {
	// Values holds the scalar or label value in Values[0], or the color
	// components of RGB and RGBA maps.
	Values [4]float32

	// Threshold is the value of the threshold map for file thresholding.
	// It is NaN when the point lies outside the threshold grid.
	Threshold float32

	Valid bool
}

// Sampler samples one map of a grid.
type Sampler struct {
	grid     volume.Grid
	mapIndex int
	policy   MaskingPolicy
	kind     models.ValueKind

	primary   *lookup
	threshold *lookup
	sample    func(p r3.Vec) Sample
}

// New returns a sampler for a map. Grids implementing volume.Prefetcher are
// read into memory once here, and samples are taken from the enclosing voxel
// of the prefetched array. New is meant to be called once per frame.
func New(grid volume.Grid, mapIndex int, policy MaskingPolicy) (*Sampler, error) {
	dims := grid.Dimensions()
	if mapIndex < 0 || mapIndex >= dims.Maps {
		return nil, fmt.Errorf("sample map %d of %q: %w", mapIndex, grid.Name(), volume.ErrOutOfRange)
	}
	primary, err := newLookup(grid, mapIndex)
	if err != nil {
		return nil, err
	}
	s := &Sampler{
		grid:     grid,
		mapIndex: mapIndex,
		policy:   policy,
		kind:     grid.Kind(),
		primary:  primary,
	}

	switch s.kind {
	case models.PaletteScalar:
		if err := s.initThreshold(); err != nil {
			return nil, err
		}
		if primary.data != nil {
			s.sample = s.samplePrefetchedScalar
		} else {
			s.sample = s.sampleScalar
		}
	case models.LabelIndex:
		s.sample = s.sampleLabel
	case models.RGB, models.RGBA:
		s.sample = s.sampleColor
	default:
		panic(fmt.Sprintf("sampler: unsupported value kind %v", s.kind))
	}
	return s, nil
}

func (s *Sampler) initThreshold() error {
	md := s.grid.MapMetadata(s.mapIndex)
	if md == nil || md.Palette == nil || md.Palette.Threshold.Type != coloring.ThresholdFile {
		return nil
	}
	tg := md.ThresholdGrid
	if tg == nil {
		tg = s.grid
	}
	tm := md.Palette.Threshold.MapIndex
	if tm < 0 || tm >= tg.Dimensions().Maps {
		return fmt.Errorf("threshold map %d of %q: %w", tm, tg.Name(), volume.ErrOutOfRange)
	}
	if tg == s.grid && tm == s.mapIndex {
		s.threshold = s.primary
		return nil
	}
	l, err := newLookup(tg, tm)
	if err != nil {
		return err
	}
	s.threshold = l
	return nil
}

// Grid returns the sampled grid.
func (s *Sampler) Grid() volume.Grid { return s.grid }

// MapIndex returns the sampled map.
func (s *Sampler) MapIndex() int { return s.mapIndex }

// Kind returns the value kind of the sampled map.
func (s *Sampler) Kind() models.ValueKind { return s.kind }

// Prefetched reports whether samples come from a prefetched array.
func (s *Sampler) Prefetched() bool { return s.primary.data != nil }

// UsesThresholdMap reports whether samples carry threshold map values.
func (s *Sampler) UsesThresholdMap() bool { return s.threshold != nil }

// Sample returns the map value at a space position. Points outside the
// grid and samples dropped by masking are not valid.
func (s *Sampler) Sample(p r3.Vec) Sample {
	return s.sample(p)
}

func (s *Sampler) sampleScalar(p r3.Vec) Sample {
	v, ok := s.grid.InterpolatedValue(p, interpolation.Cubic, s.mapIndex)
	if !ok {
		return Sample{}
	}
	if v != 0 && s.masked(p) {
		return Sample{}
	}
	out := Sample{Valid: true}
	out.Values[0] = v
	out.Threshold = s.thresholdValue(p)
	return out
}

// masked reports whether the masking kernel finds no data at p.
func (s *Sampler) masked(p r3.Vec) bool {
	var mode interpolation.Mode
	switch s.policy {
	case MaskOff:
		return false
	case MaskLoose:
		mode = interpolation.Trilinear
	case MaskTight:
		mode = interpolation.Enclosing
	default:
		panic(fmt.Sprintf("sampler: unknown masking policy %d", int(s.policy)))
	}
	m, ok := s.grid.InterpolatedValue(p, mode, s.mapIndex)
	return ok && m == 0
}

func (s *Sampler) samplePrefetchedScalar(p r3.Vec) Sample {
	v, ok := s.primary.value(p, 0)
	if !ok {
		return Sample{}
	}
	out := Sample{Valid: true}
	out.Values[0] = v
	out.Threshold = s.thresholdValue(p)
	return out
}

func (s *Sampler) thresholdValue(p r3.Vec) float32 {
	if s.threshold == nil {
		return 0
	}
	v, ok := s.threshold.value(p, 0)
	if !ok {
		return float32(math.NaN())
	}
	return v
}

func (s *Sampler) sampleLabel(p r3.Vec) Sample {
	v, ok := s.primary.value(p, 0)
	if !ok {
		return Sample{}
	}
	out := Sample{Valid: true}
	out.Values[0] = v
	return out
}

func (s *Sampler) sampleColor(p r3.Vec) Sample {
	out := Sample{Valid: true}
	out.Values[3] = 1
	for c := 0; c < s.kind.Components(); c++ {
		v, ok := s.primary.value(p, c)
		if !ok {
			return Sample{}
		}
		out.Values[c] = v
	}
	return out
}

// lookup reads enclosing voxels of one map, either from the grid or from a
// prefetched copy of the map.
type lookup struct {
	grid       volume.Grid
	mapIndex   int
	ni, nj     int
	components int
	data       []float32
}

func newLookup(grid volume.Grid, mapIndex int) (*lookup, error) {
	d := grid.Dimensions()
	l := &lookup{grid: grid, mapIndex: mapIndex, ni: d.I, nj: d.J, components: d.Components}
	pf, ok := grid.(volume.Prefetcher)
	if !ok {
		return l, nil
	}
	data, err := pf.MapData(mapIndex)
	if err != nil {
		return nil, fmt.Errorf("prefetch map %d of %q: %w", mapIndex, grid.Name(), err)
	}
	logging.Logger().Debug("prefetched map", "grid", grid.Name(), "map", mapIndex, "values", len(data))
	l.data = data
	return l, nil
}

func (l *lookup) value(p r3.Vec, component int) (float32, bool) {
	if l.data == nil {
		return l.grid.VoxelValue(p, l.mapIndex, component)
	}
	i, j, k, ok := l.grid.EnclosingVoxel(p)
	if !ok {
		return 0, false
	}
	return l.data[(i+j*l.ni+k*l.ni*l.nj)*l.components+component], true
}
