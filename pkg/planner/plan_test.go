package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/lizardfs/dataplane/pkg/chunk"
)

func TestBuildDirectPlan(t *testing.T) {
	p := Params{
		SliceType:      chunk.SliceStandard,
		RequestedParts: []int{0},
		Available: []Candidate{
			{Part: chunk.PartType{Slice: chunk.SliceStandard, Index: 0}, Address: "cs1:9422", Score: 1.0},
		},
		ChunkLength: 64 * 1024,
	}
	plan, err := Build(p)
	require.NoError(t, err)
	assert.True(t, plan.Direct)
	assert.Empty(t, plan.PostProcess)
	assert.Equal(t, 64*1024, plan.BufferSize)
}

func TestBuildInfeasiblePlan(t *testing.T) {
	p := Params{
		SliceType:      chunk.SliceXor2,
		RequestedParts: []int{0},
		Available:      []Candidate{{Part: chunk.PartType{Slice: chunk.SliceXor2, Index: 1}, Address: "cs1"}},
		ChunkLength:    64 * 1024,
	}
	_, err := Build(p)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestBuildRecoveryPlan(t *testing.T) {
	// xor2: data parts 0,1 and parity part 2. Part 1 missing; request it.
	p := Params{
		SliceType:      chunk.SliceXor2,
		RequestedParts: []int{1},
		Available: []Candidate{
			{Part: chunk.PartType{Slice: chunk.SliceXor2, Index: 0}, Address: "cs0", Score: 1.0},
			{Part: chunk.PartType{Slice: chunk.SliceXor2, Index: 2}, Address: "cs2", Score: 1.0},
		},
		ChunkLength: 64 * 1024,
	}
	plan, err := Build(p)
	require.NoError(t, err)
	assert.False(t, plan.Direct)
	require.Len(t, plan.PostProcess, 1)
	assert.Equal(t, PostStepXOR, plan.PostProcess[0].Kind)
	assert.Contains(t, plan.PostProcess[0].MissingIndices, 1)
	assert.Len(t, plan.Waves[0], 2) // both available parts used for K=2 recovery
}

func TestBuildLaterWaves(t *testing.T) {
	p := Params{
		SliceType:      chunk.SliceStandard,
		RequestedParts: []int{0},
		Available: []Candidate{
			{Part: chunk.PartType{Slice: chunk.SliceStandard, Index: 0}, Address: "cs0", Score: 2.0},
			{Part: chunk.PartType{Slice: chunk.SliceStandard, Index: 1}, Address: "cs1", Score: 1.0},
			{Part: chunk.PartType{Slice: chunk.SliceStandard, Index: 2}, Address: "cs2", Score: 0.5},
		},
		ChunkLength: 64 * 1024,
		WaveSize:    2,
	}
	plan, err := Build(p)
	require.NoError(t, err)
	require.Len(t, plan.Waves, 2) // wave0 (requested) + wave1 (remaining 2 candidates)
	assert.Len(t, plan.Waves[1], 2)
}
