// Package planner implements §4.2's read planner: given a slice type, the
// part indices a caller needs, and the parts the master reported available,
// it emits a wave-ordered list of read operations plus a post-processing
// chain that reconstructs any part that could not be read directly.
//
// Grounded on LizardFS's src/common/slice_read_planner.cc (prepare/addParts/
// addBasicParts/addExtraParts/buildPlanFor) and src/common/read_plan.h for
// the plan's shape; src/common/xor_read_plan.h for the XOR post-process
// step. Kept as a tagged variant (PostStep.Kind) rather than a PostStep
// interface hierarchy, matching pkg/chunk's SliceType treatment.
package planner

import (
	"sort"

	"github.com/NebulousLabs/errors"
	"github.com/lizardfs/dataplane/modules"
	"github.com/lizardfs/dataplane/pkg/chunk"
)

// ErrInfeasible is returned when fewer than K parts are available: reading
// is impossible (§4.2 step 1).
var ErrInfeasible = errors.New("fewer parts available than required to recover")

// Candidate is one part the caller may read, scored for wave-0 preference.
type Candidate struct {
	Part    chunk.PartType
	Address string
	// Score is the caller-supplied chunkserver reliability score, used as
	// given: no default is applied, so an unset Score is 0. Higher sorts
	// earlier (§4.2 step 2).
	Score float64
}

// ReadOp is one scheduled socket read, tagged with the wave it belongs to.
type ReadOp struct {
	Part    chunk.PartType
	Address string
	Wave    int
}

// PostStepKind tags a post-processing operation.
type PostStepKind int

const (
	PostStepXOR PostStepKind = iota
	PostStepEC
)

// PostStep is one post-processing operation. Steps run back-to-front (§4.2
// step 6) so earlier scratch space can be reused.
type PostStep struct {
	Kind           PostStepKind
	MissingIndices []int // data-part indices this step reconstructs
	SourceIndices  []int // part indices (scratch or requested) it reads from
	EC             chunk.ECParams
}

// Plan is the read planner's output.
type Plan struct {
	Direct      bool
	Waves       [][]ReadOp // Waves[i] holds every op scheduled for wave i
	PostProcess []PostStep

	// BufferSize is the total output buffer the executor must allocate:
	// requested_parts.len * block_count * BLOCK for the requested region,
	// plus any scratch region used for recovery-only reads.
	BufferSize int
	// Offsets maps a part index to its byte offset in the output buffer,
	// covering both requested parts and recovery scratch parts.
	Offsets map[int]int

	BlockCount int
	// BlockPrefetch is copied from Params.BlockPrefetch. The executor does
	// not read it and sends no prefetch hints.
	BlockPrefetch bool
}

// Params configures plan construction.
type Params struct {
	SliceType SliceType
	EC        chunk.ECParams
	// RequestedParts is the set of part indices the caller needs.
	RequestedParts []int
	// Available is every part the master reported currently readable.
	Available []Candidate
	// ChunkLength is used to derive blocks-per-part.
	ChunkLength uint64
	// Beta is the bandwidth-overuse factor (β >= 1); 0 or 1 disables
	// over-fetching in wave 0.
	Beta float64
	// WaveSize bounds how many candidates later waves schedule at once.
	WaveSize int
	// BlockPrefetch is carried into Plan.BlockPrefetch; the executor sends
	// no prefetch hint for it.
	BlockPrefetch bool
}

// SliceType is a re-export to keep the Params field self-documenting
// without importing chunk twice under different names at call sites.
type SliceType = chunk.SliceType

// Build constructs a Plan per §4.2's five-step decision procedure.
func Build(p Params) (Plan, error) {
	k := p.SliceType.DataParts(p.EC)
	n := p.SliceType.Parts(p.EC)
	blockCount := p.SliceType.BlocksPerPart(p.ChunkLength, p.EC)

	if len(p.Available) < k {
		return Plan{}, ErrInfeasible
	}

	// Step 2: stable sort by descending score.
	sorted := make([]Candidate, len(p.Available))
	copy(sorted, p.Available)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	availableByIndex := make(map[int]Candidate, len(sorted))
	for _, c := range sorted {
		availableByIndex[c.Part.Index] = c
	}

	requested := make(map[int]bool, len(p.RequestedParts))
	for _, idx := range p.RequestedParts {
		requested[idx] = true
	}

	direct := true
	for idx := range requested {
		if _, ok := availableByIndex[idx]; !ok {
			direct = false
			break
		}
	}

	plan := Plan{
		Direct:        direct,
		Offsets:       map[int]int{},
		BlockCount:    blockCount,
		BlockPrefetch: p.BlockPrefetch,
	}

	requestedBufLen := len(p.RequestedParts) * blockCount * modules.BlockSize
	plan.BufferSize = requestedBufLen
	for i, idx := range sortedInts(p.RequestedParts) {
		plan.Offsets[idx] = i * blockCount * modules.BlockSize
	}

	var wave0 []ReadOp
	var remaining []Candidate

	if direct {
		for _, idx := range sortedInts(p.RequestedParts) {
			c := availableByIndex[idx]
			wave0 = append(wave0, ReadOp{Part: c.Part, Address: c.Address, Wave: 0})
		}
		for _, c := range sorted {
			if !requested[c.Part.Index] {
				remaining = append(remaining, c)
			}
		}
	} else {
		// Recovery plan: any K parts sufficient to reconstruct all
		// requested parts, preferring the highest-scored candidates;
		// over-fetch up to floor(beta*K) in wave 0.
		take := k
		if p.Beta >= 1 {
			take = int(p.Beta * float64(k))
			if take > len(sorted) {
				take = len(sorted)
			}
		}
		scratchIdx := 0
		for i := 0; i < take; i++ {
			c := sorted[i]
			off, isRequested := plan.Offsets[c.Part.Index]
			if !isRequested {
				off = requestedBufLen + scratchIdx*blockCount*modules.BlockSize
				plan.Offsets[c.Part.Index] = off
				plan.BufferSize += blockCount * modules.BlockSize
				scratchIdx++
			}
			wave0 = append(wave0, ReadOp{Part: c.Part, Address: c.Address, Wave: 0})
		}
		remaining = sorted[take:]

		step := buildRecoveryStep(p.SliceType, p.EC, n, p.RequestedParts, wave0)
		plan.PostProcess = append(plan.PostProcess, step)
	}

	waves := [][]ReadOp{wave0}
	waveSize := p.WaveSize
	if waveSize <= 0 {
		waveSize = 2
	}
	waveNum := 1
	for len(remaining) > 0 {
		end := waveSize
		if end > len(remaining) {
			end = len(remaining)
		}
		var w []ReadOp
		for _, c := range remaining[:end] {
			w = append(w, ReadOp{Part: c.Part, Address: c.Address, Wave: waveNum})
		}
		waves = append(waves, w)
		remaining = remaining[end:]
		waveNum++
	}
	plan.Waves = waves

	return plan, nil
}

func buildRecoveryStep(st chunk.SliceType, ec chunk.ECParams, n int, requested []int, wave0 []ReadOp) PostStep {
	present := map[int]bool{}
	for _, op := range wave0 {
		present[op.Part.Index] = true
	}
	var missing, sources []int
	for _, idx := range sortedInts(requested) {
		if !present[idx] {
			missing = append(missing, idx)
		}
	}
	for idx := range present {
		sources = append(sources, idx)
	}
	sort.Ints(sources)

	kind := PostStepXOR
	if st == chunk.SliceEC {
		kind = PostStepEC
	}
	return PostStep{Kind: kind, MissingIndices: missing, SourceIndices: sources, EC: ec}
}

func sortedInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	sort.Ints(out)
	return out
}
