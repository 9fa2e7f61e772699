// Package redundancy implements the encode/decode side of §4.1's redundancy
// model: XOR parity and Reed-Solomon erasure coding over chunk parts, plus
// the chunk copies calculator that classifies a chunk's availability.
//
// Grounded on modules/renter/erasure_test.go's NewRSCode(k, m).Encode/Recover
// idiom (teacher repo), generalized from a renter's per-file erasure coding
// onto LizardFS's per-chunk ec(k,m) slices. The actual math comes from
// github.com/klauspost/reedsolomon, the same erasure-coding library family
// the teacher pack uses elsewhere for k-of-n reconstruction.
package redundancy

import (
	"github.com/NebulousLabs/errors"
	"github.com/klauspost/reedsolomon"
	"github.com/lizardfs/dataplane/pkg/chunk"
)

// ErrTooFewParts is returned when fewer than k parts are available to
// reconstruct an EC or XOR slice.
var ErrTooFewParts = errors.New("too few parts available to recover")

// ECCoder wraps a reedsolomon.Encoder sized for one ec(k,m) slice.
type ECCoder struct {
	k, m int
	enc  reedsolomon.Encoder
}

// NewECCoder builds an encoder for a k-data / m-parity slice. k+m must not
// exceed chunk.MaxECParts; NewECCoder rejects wider slices.
func NewECCoder(k, m int) (*ECCoder, error) {
	if k+m > chunk.MaxECParts {
		return nil, errors.New("reed-solomon coder: k+m exceeds chunk.MaxECParts")
	}
	enc, err := reedsolomon.New(k, m)
	if err != nil {
		return nil, errors.AddContext(err, "could not construct reed-solomon coder")
	}
	return &ECCoder{k: k, m: m, enc: enc}, nil
}

// Encode computes the m parity shards from the k data shards, each shard
// one block. All shards must be pre-sized by the caller to the slice's
// block size; Encode fills the parity shards in place.
func (c *ECCoder) Encode(shards [][]byte) error {
	if len(shards) != c.k+c.m {
		return errors.New("reed-solomon encode: wrong shard count")
	}
	return c.enc.Encode(shards)
}

// Recover fills any nil entries of shards (erased parts) given at least k
// non-nil entries, per read_plan_executor.h's recovery post-process step.
func (c *ECCoder) Recover(shards [][]byte) error {
	present := 0
	for _, s := range shards {
		if s != nil {
			present++
		}
	}
	if present < c.k {
		return ErrTooFewParts
	}
	return c.enc.Reconstruct(shards)
}

// XORAccumulate reconstructs a single missing data part by XOR-accumulating
// every other fetched part of an xor-N slice (§4.2 step 6: "XOR-accumulate
// all fetched parts of the slice into the missing data-part's slot").
// present must contain every part of the slice except the one at
// missingIndex, which must be nil; out receives the reconstructed bytes and
// must be pre-sized to the block length.
func XORAccumulate(present [][]byte, missingIndex int, out []byte) error {
	if missingIndex < 0 || missingIndex >= len(present) {
		return errors.New("xor recover: missing index out of range")
	}
	first := true
	for i, p := range present {
		if i == missingIndex {
			continue
		}
		if p == nil {
			return ErrTooFewParts
		}
		if len(p) != len(out) {
			return errors.New("xor recover: mismatched block length")
		}
		if first {
			copy(out, p)
			first = false
			continue
		}
		for j := range out {
			out[j] ^= p[j]
		}
	}
	if first {
		return errors.New("xor recover: nothing to accumulate")
	}
	return nil
}
