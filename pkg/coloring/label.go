package coloring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// DisplayGroup scopes label selection. DisplayGroupTab keeps a separate
// selection per tab, the lettered groups share one selection across tabs.
type DisplayGroup int

const (
	DisplayGroupTab DisplayGroup = iota
	DisplayGroupA
	DisplayGroupB
	DisplayGroupC
	DisplayGroupD
)

func (g DisplayGroup) String() string {
	switch g {
	case DisplayGroupTab:
		return "tab"
	case DisplayGroupA:
		return "a"
	case DisplayGroupB:
		return "b"
	case DisplayGroupC:
		return "c"
	case DisplayGroupD:
		return "d"
	}
	return fmt.Sprintf("DisplayGroup(%d)", int(g))
}

// ParseDisplayGroup converts a configuration name into a DisplayGroup.
func ParseDisplayGroup(s string) (DisplayGroup, error) {
	for g := DisplayGroupTab; g <= DisplayGroupD; g++ {
		if strings.EqualFold(s, g.String()) {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown display group %q", s)
}

// Label is one entry of a label table. Color components are in [0, 1].
type Label struct {
	Key   int32
	Name  string
	Color [4]float64
}

type selectionKey struct {
	group DisplayGroup
	tab   int
}

// LabelTable maps label keys to names and colors, and tracks which labels
// are selected for display per display group and tab.
type LabelTable struct {
	mu     sync.RWMutex
	labels map[int32]Label
	hidden map[selectionKey]map[int32]bool
}

// NewLabelTable returns an empty table.
func NewLabelTable() *LabelTable {
	return &LabelTable{
		labels: make(map[int32]Label),
		hidden: make(map[selectionKey]map[int32]bool),
	}
}

// Add inserts or replaces a label.
func (t *LabelTable) Add(l Label) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.labels[l.Key] = l
}

// Label returns the label with the given key.
func (t *LabelTable) Label(key int32) (Label, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	l, ok := t.labels[key]
	return l, ok
}

// Keys returns all label keys in increasing order.
func (t *LabelTable) Keys() []int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]int32, 0, len(t.labels))
	for k := range t.labels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func selectionFor(group DisplayGroup, tab int) selectionKey {
	if group != DisplayGroupTab {
		tab = -1
	}
	return selectionKey{group: group, tab: tab}
}

// SetSelected shows or hides a label for a display group and tab.
func (t *LabelTable) SetSelected(group DisplayGroup, tab int, key int32, selected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sk := selectionFor(group, tab)
	h := t.hidden[sk]
	if h == nil {
		h = make(map[int32]bool)
		t.hidden[sk] = h
	}
	if selected {
		delete(h, key)
	} else {
		h[key] = true
	}
}

// IsSelected reports whether a label is displayed for a display group and
// tab. Labels are selected unless hidden.
func (t *LabelTable) IsSelected(group DisplayGroup, tab int, key int32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.hidden[selectionFor(group, tab)][key]
}

// LabelDrawingType selects filled or outlined label regions.
type LabelDrawingType int

const (
	LabelFilled LabelDrawingType = iota
	LabelOutline
)

// LabelDrawing holds the display properties of a label map.
type LabelDrawing struct {
	Type LabelDrawingType

	// OutlineColor replaces the label color of outline cells when set.
	OutlineColor *[4]uint8
}

// LabelKey converts a sampled label value to a key.
func LabelKey(v float32) int32 {
	return int32(math.Round(float64(v)))
}
