package compute

import "strings"

// Phase is one step of a leaf's pipeline.
type Phase uint8

const (
	PhaseObserve Phase = 1 << iota
	PhaseRegroup
	PhaseCompute
)

// PhaseSet selects which phases a run executes. The zero value means all.
type PhaseSet uint8

// AllPhases runs observe, regroup and compute.
const AllPhases = PhaseSet(PhaseObserve | PhaseRegroup | PhaseCompute)

// ParsePhases builds a set from per-phase flags. When no flag is set every
// phase runs.
func ParsePhases(observe, regroup, compute bool) PhaseSet {
	var s PhaseSet
	if observe {
		s |= PhaseSet(PhaseObserve)
	}
	if regroup {
		s |= PhaseSet(PhaseRegroup)
	}
	if compute {
		s |= PhaseSet(PhaseCompute)
	}
	if s == 0 {
		return AllPhases
	}
	return s
}

// Has reports whether p is in the set.
func (s PhaseSet) Has(p Phase) bool {
	if s == 0 {
		s = AllPhases
	}
	return s&PhaseSet(p) != 0
}

func (p Phase) String() string {
	switch p {
	case PhaseObserve:
		return "observe"
	case PhaseRegroup:
		return "regroup"
	case PhaseCompute:
		return "compute"
	default:
		return "unknown"
	}
}

func (s PhaseSet) String() string {
	var names []string
	for _, p := range []Phase{PhaseObserve, PhaseRegroup, PhaseCompute} {
		if s.Has(p) {
			names = append(names, p.String())
		}
	}
	return strings.Join(names, ",")
}
