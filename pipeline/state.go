package pipeline

import (
	"context"
	"fmt"
)

// State is a capture pipeline stage.
type State int

const (
	Idle State = iota
	Preparing
	Rasterizing
	Encoding
	Dispatching
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Rasterizing:
		return "rasterizing"
	case Encoding:
		return "encoding"
	case Dispatching:
		return "dispatching"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions can follow s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// next lists the forward transition of every non-terminal state. Failed is
// reachable from all of them.
var next = map[State]State{
	Idle:        Preparing,
	Preparing:   Rasterizing,
	Rasterizing: Encoding,
	Encoding:    Dispatching,
	Dispatching: Done,
}

// validTransition reports whether from -> to is allowed. The HTML rendering
// path skips Rasterizing, going straight from Preparing to Encoding.
func validTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == Failed || next[from] == to {
		return true
	}
	return from == Preparing && to == Encoding
}

// Observer receives every state transition of a run.
type Observer interface {
	OnTransition(ctx context.Context, from, to State)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, from, to State)

// OnTransition calls f(ctx, from, to).
func (f ObserverFunc) OnTransition(ctx context.Context, from, to State) { f(ctx, from, to) }
