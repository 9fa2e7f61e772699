package redundancy

import "github.com/lizardfs/dataplane/pkg/chunk"

// AvailabilityState classifies a goal's chunk availability, mirroring the
// {Safe, Endangered, Lost} buckets LizardFS's `lizardfs-probe`/`file-info`
// tooling reports per src/tools/file_info.cc's chunk_copies_calculator
// usage (supplemented here; spec.md's core scope only names the three-state
// result, not the tool surface that consumes it).
type AvailabilityState int

const (
	StateSafe AvailabilityState = iota
	StateEndangered
	StateLost
)

func (s AvailabilityState) String() string {
	switch s {
	case StateSafe:
		return "safe"
	case StateEndangered:
		return "endangered"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// CopiesReport is the chunk copies calculator's output for one goal: the
// full-copy count, the redundancy level (further losses tolerable before a
// slice becomes unrecoverable), and the overall availability state.
type CopiesReport struct {
	FullCopies      int
	RedundancyLevel int
	State           AvailabilityState
}

// AvailablePart is one part the calculator was told is currently readable,
// tagged with the media label its chunkserver advertises.
type AvailablePart struct {
	Part  chunk.PartType
	Label chunk.MediaLabel
}

// CalculateCopies evaluates goal against the given available parts,
// following §4.1: "the full-copy count (how many whole logical chunks are
// reconstructible), the redundancy level (how many further part losses can
// be tolerated before a slice becomes unrecoverable), and a per-goal
// availability state".
func CalculateCopies(goal chunk.Goal, available []AvailablePart) CopiesReport {
	if len(goal.Slices) == 0 {
		return CopiesReport{State: StateLost}
	}

	bySlice := make([][]bool, len(goal.Slices))
	for si, slice := range goal.Slices {
		n := slice.Type.Parts(slice.EC)
		bySlice[si] = make([]bool, n)
	}
	for _, ap := range available {
		// A part belongs to the slice whose type matches; slices of the
		// same SliceType within one goal are distinguished by caller-side
		// bookkeeping that is out of this function's scope, so we match by
		// type+index against every slice that could own it.
		for si, slice := range goal.Slices {
			if slice.Type == ap.Part.Slice && ap.Part.Index < len(bySlice[si]) {
				bySlice[si][ap.Part.Index] = true
			}
		}
	}

	minRedundancy := -1
	totalFullCopies := 0
	anyLost := false
	for si, slice := range goal.Slices {
		k := slice.Type.RequiredPartsToRecover(slice.EC)
		present := 0
		for _, ok := range bySlice[si] {
			if ok {
				present++
			}
		}
		slack := present - k
		if slack < 0 {
			anyLost = true
			slack = 0
		}
		if minRedundancy == -1 || slack < minRedundancy {
			minRedundancy = slack
		}
		totalFullCopies += present / k
	}
	if minRedundancy < 0 {
		minRedundancy = 0
	}

	state := StateSafe
	switch {
	case anyLost:
		state = StateLost
	case minRedundancy == 0:
		state = StateEndangered
	}

	return CopiesReport{
		FullCopies:      totalFullCopies,
		RedundancyLevel: minRedundancy,
		State:           state,
	}
}
