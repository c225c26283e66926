package builder

import (
	"fmt"
	"slices"

	"github.com/xtxerr/firstline/internal/granule"
)

// Phase is the position of a build in its granule stream.
type Phase int

const (
	// NoPrevious: no granule has been read successfully yet, so there is
	// no reference point for a boundary.
	NoPrevious Phase = iota

	// HavePrevious: State holds the last granule read successfully.
	HavePrevious
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case NoPrevious:
		return "no-previous"
	case HavePrevious:
		return "have-previous"
	default:
		return fmt.Sprintf("unknown(%d)", p)
	}
}

// State is the accumulator threaded through a build. It holds deep copies
// of the previous granule, so later changes to the source data cannot leak
// into it.
type State struct {
	Phase      Phase
	Header     granule.Header
	Numbers    []int64
	Timestamps []int64
}

// Snapshot is the current granule as seen by Step.
type Snapshot struct {
	Label   string
	Header  granule.Header
	Records granule.Records
}

// Action is what Step decided to do with a granule.
type Action int

const (
	// ActionKeep: the label is already indexed and overwrite is off.
	ActionKeep Action = iota

	// ActionSkipFirst: the first readable granule has no predecessor, so no
	// boundary is written for it.
	ActionSkipFirst

	// ActionWrite: Decision.Firstline must be stored for the label.
	ActionWrite
)

// String returns the human-readable name of the action.
func (a Action) String() string {
	switch a {
	case ActionKeep:
		return "keep"
	case ActionSkipFirst:
		return "skip-first"
	case ActionWrite:
		return "write"
	default:
		return fmt.Sprintf("unknown(%d)", a)
	}
}

// Decision is the outcome of one Step.
type Decision struct {
	Action    Action
	Firstline int64

	// Contained is set when the current granule holds nothing newer than
	// the previous one; Firstline is then max record-number + 1.
	Contained bool
}

// Step computes the boundary of cur against the previous granule in s and
// returns the state for the next granule. exists reports whether cur's
// label is already indexed.
//
// cur.Records must not be empty. Granules must be fed in ascending start
// time order; Step has no way to detect a violation.
func Step(s State, cur Snapshot, exists, overwrite bool) (State, Decision) {
	var d Decision
	switch {
	case exists && !overwrite:
		d.Action = ActionKeep
	case s.Phase == NoPrevious:
		d.Action = ActionSkipFirst
	default:
		d = boundary(s.Timestamps, cur.Records)
	}

	next := State{
		Phase:      HavePrevious,
		Header:     cur.Header.Clone(),
		Numbers:    cur.Records.Numbers(),
		Timestamps: cur.Records.Timestamps(),
	}
	return next, d
}

// boundary finds the first record of cur that is newer than every record of
// the previous granule. The maximum previous timestamp is used rather than
// the last one, so time inversions inside the previous granule do not
// matter.
func boundary(prevTimestamps []int64, cur granule.Records) Decision {
	prevMax := slices.Max(prevTimestamps)
	curMax, _ := cur.MaxTimestamp()

	if curMax <= prevMax {
		maxNumber, _ := cur.MaxNumber()
		return Decision{Action: ActionWrite, Firstline: maxNumber + 1, Contained: true}
	}

	first := int64(0)
	found := false
	for i := range cur {
		if cur[i].TimestampMs <= prevMax {
			continue
		}
		if !found || cur[i].Number < first {
			first = cur[i].Number
			found = true
		}
	}
	return Decision{Action: ActionWrite, Firstline: first}
}
