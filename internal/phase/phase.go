// Package phase owns the prospect lifecycle state machine. No other
// component decides transition legality.
package phase

import "github.com/rotisserie/eris"

// Phase is a prospect's current pipeline position.
type Phase string

const (
	Discovered Phase = "discovered"
	Researched Phase = "researched"
	Drafted    Phase = "drafted"
	Synced     Phase = "synced"
	Failed     Phase = "failed"
)

// order is the forward sequence; Failed sits outside it.
var order = []Phase{Discovered, Researched, Drafted, Synced}

// All returns every known phase.
func All() []Phase {
	return []Phase{Discovered, Researched, Drafted, Synced, Failed}
}

// Valid reports whether p is a known phase.
func Valid(p Phase) bool {
	switch p {
	case Discovered, Researched, Drafted, Synced, Failed:
		return true
	}
	return false
}

// Next returns the phase that follows p in the forward sequence. Synced and
// Failed have no successor.
func Next(p Phase) (Phase, error) {
	for i, cur := range order {
		if cur == p {
			if i == len(order)-1 {
				return "", eris.Errorf("phase: %s is terminal", p)
			}
			return order[i+1], nil
		}
	}
	return "", eris.Errorf("phase: no successor for %s", p)
}

// CanTransition reports whether moving from one phase to another is legal
// for automatic processing. Legal moves are a single forward step, or a
// move from any non-terminal phase to Failed. No step is ever skipped, and
// leaving Failed requires an explicit requeue (see Requeue), never an
// automatic transition.
func CanTransition(from, to Phase) bool {
	if !Valid(from) || !Valid(to) {
		return false
	}
	if from == Failed || from == Synced {
		return false
	}
	if to == Failed {
		return true
	}
	next, err := Next(from)
	if err != nil {
		return false
	}
	return to == next
}

// Transition validates and returns the target phase, erroring on any
// illegal move.
func Transition(from, to Phase) (Phase, error) {
	if !CanTransition(from, to) {
		return "", eris.Errorf("phase: illegal transition %s -> %s", from, to)
	}
	return to, nil
}

// Requeue is the explicit external action that moves a prospect out of
// Failed, resetting it to the given phase for reprocessing. It is the only
// path out of Failed and is never taken automatically.
func Requeue(from, target Phase) (Phase, error) {
	if from != Failed {
		return "", eris.Errorf("phase: requeue from %s (only failed prospects can be requeued)", from)
	}
	if !Valid(target) || target == Failed || target == Synced {
		return "", eris.Errorf("phase: requeue target %s is not a processable phase", target)
	}
	return target, nil
}
