package redundancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/lizardfs/dataplane/pkg/chunk"
)

func xor2Goal() chunk.Goal {
	return chunk.Goal{
		Slices: []chunk.Slice{
			{Type: chunk.SliceXor2, Labels: [][]chunk.MediaLabel{{"_"}, {"_"}, {"_"}}},
		},
	}
}

func TestCalculateCopiesSafe(t *testing.T) {
	g := xor2Goal()
	// all 3 parts (2 data + 1 parity) present; K=2, so one loss tolerable.
	available := []AvailablePart{
		{Part: chunk.PartType{Slice: chunk.SliceXor2, Index: 0}},
		{Part: chunk.PartType{Slice: chunk.SliceXor2, Index: 1}},
		{Part: chunk.PartType{Slice: chunk.SliceXor2, Index: 2}},
	}
	report := CalculateCopies(g, available)
	assert.Equal(t, StateSafe, report.State)
	assert.Equal(t, 1, report.RedundancyLevel)
}

func TestCalculateCopiesLost(t *testing.T) {
	g := xor2Goal()
	// xor2 needs K=2 data parts; only part index 0 present.
	available := []AvailablePart{
		{Part: chunk.PartType{Slice: chunk.SliceXor2, Index: 0}},
	}
	report := CalculateCopies(g, available)
	assert.Equal(t, StateLost, report.State)
}

func TestCalculateCopiesEmptyGoal(t *testing.T) {
	report := CalculateCopies(chunk.Goal{}, nil)
	assert.Equal(t, StateLost, report.State)
}
