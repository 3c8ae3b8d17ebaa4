package render

import "fmt"

// State is a step of drawing one slice.
type State int

const (
	StateNotDrawing State = iota
	StateSetup
	StateGeometry
	StateSampleAndColor
	StateComposite
	StateEmit
)

func (s State) String() string {
	switch s {
	case StateNotDrawing:
		return "NOT_DRAWING"
	case StateSetup:
		return "SETUP"
	case StateGeometry:
		return "GEOMETRY"
	case StateSampleAndColor:
		return "SAMPLE_AND_COLOR"
	case StateComposite:
		return "COMPOSITE"
	case StateEmit:
		return "EMIT"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
