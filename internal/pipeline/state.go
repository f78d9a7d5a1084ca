package pipeline

import (
	"fmt"

	"github.com/anstrom/scanparser/internal/errors"
)

// State is the stage a run has reached.
type State int

const (
	StateEmpty State = iota
	StateSchemaPrepared
	StateIngested
	StateAggregated
	StateClosed
	StateFailed
)

var stateNames = map[State]string{
	StateEmpty:          "empty",
	StateSchemaPrepared: "schema_prepared",
	StateIngested:       "ingested",
	StateAggregated:     "aggregated",
	StateClosed:         "closed",
	StateFailed:         "failed",
}

// String returns the state name used in logs.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// next is the only forward move allowed from each live state.
var next = map[State]State{
	StateEmpty:          StateSchemaPrepared,
	StateSchemaPrepared: StateIngested,
	StateIngested:       StateAggregated,
	StateAggregated:     StateClosed,
}

// transition validates moving from one state to another. Any live state
// may fail; otherwise stages advance one at a time.
func transition(from, to State) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", errors.ErrInvalidTransition, from)
	}
	if to == StateFailed || next[from] == to {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, from, to)
}
