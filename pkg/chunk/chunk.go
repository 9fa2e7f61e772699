// Package chunk defines the data model shared by every component of the
// chunk read/write data plane: chunks, slices, parts, blocks, goals, and the
// records the master hands back to clients. Types here are grounded on
// LizardFS's src/common/goal.h and src/common/chunk_type_with_address.h; the
// tagged-variant treatment of SliceType (rather than an interface hierarchy)
// follows the teacher repo's preference for small value types over
// polymorphism (see encoding.Marshaler's comment on keeping types concrete).
package chunk

import "github.com/lizardfs/dataplane/modules"

// ID uniquely identifies a chunk for the lifetime of the filesystem.
type ID uint64

// Version is bumped by the master on every committed write to a chunk.
type Version uint32

// SliceType names a redundancy scheme. It is a tagged variant: every
// operation that differs by scheme (parts count, data-parts count,
// blocks-per-part) switches on this value rather than dispatching through an
// interface, matching goal.h's enum-based SliceType rather than a class
// hierarchy.
type SliceType uint8

const (
	SliceStandard SliceType = iota
	SliceTape
	SliceXor2
	SliceXor3
	SliceXor4
	SliceXor5
	SliceXor6
	SliceXor7
	SliceXor8
	SliceXor9
	SliceEC
)

// MaxECParts is the ceiling on k+m for an ec(k,m) slice. goal.h's
// kMaxPartsCount (11) is the smaller legacy XOR ceiling, kept as
// modules.MaxPartsPerChunk.
const MaxECParts = 32

// ECParams carries the (k, m) split for an EC slice. It is zero-valued (and
// ignored) for every other SliceType.
type ECParams struct {
	DataParts   int
	ParityParts int
}

// PartType is (slice type, 0-based part index within the slice).
type PartType struct {
	Slice SliceType
	Index int
	EC    ECParams // meaningful only when Slice == SliceEC
}

// Parts returns the total number of parts (data+parity) a slice of this type
// spreads a chunk across: slice_parts(type) from §4.1.
func (t SliceType) Parts(ec ECParams) int {
	switch t {
	case SliceStandard, SliceTape:
		return 1
	case SliceXor2, SliceXor3, SliceXor4, SliceXor5, SliceXor6, SliceXor7, SliceXor8, SliceXor9:
		return int(t-SliceXor2) + 3 // xorN has N data parts + 1 parity = N+1
	case SliceEC:
		return ec.DataParts + ec.ParityParts
	default:
		panic("chunk: unknown slice type")
	}
}

// DataParts returns data_parts(type) from §4.1: K such that K <= N, with
// K == N for standard/tape and K < N for xor/ec slices carrying parity.
func (t SliceType) DataParts(ec ECParams) int {
	switch t {
	case SliceStandard, SliceTape:
		return 1
	case SliceXor2, SliceXor3, SliceXor4, SliceXor5, SliceXor6, SliceXor7, SliceXor8, SliceXor9:
		return int(t-SliceXor2) + 2 // xorN has N data parts
	case SliceEC:
		return ec.DataParts
	default:
		panic("chunk: unknown slice type")
	}
}

// RequiredPartsToRecover is required_parts_to_recover(type) = K.
func (t SliceType) RequiredPartsToRecover(ec ECParams) int {
	return t.DataParts(ec)
}

// BlocksPerPart computes blocks_per_part(type, chunk_length): full chunk
// blocks for standard/tape, ceil(blocks/K) for xor-N and ec(k,m).
func (t SliceType) BlocksPerPart(chunkLength uint64, ec ECParams) int {
	totalBlocks := ceilDiv(chunkLength, modules.BlockSize)
	switch t {
	case SliceStandard, SliceTape:
		return totalBlocks
	default:
		k := t.DataParts(ec)
		return ceilDiv(uint64(totalBlocks), uint64(k))
	}
}

func ceilDiv(a, b uint64) int {
	if b == 0 {
		return 0
	}
	return int((a + b - 1) / b)
}

// MediaLabel names a placement constraint for a part's copies; "_" matches
// any chunkserver.
type MediaLabel string

// AnyLabel is the wildcard media label.
const AnyLabel MediaLabel = "_"

// Slice lists, per part index, the multiset of media labels required for
// that part's copies.
type Slice struct {
	Type   SliceType
	EC     ECParams
	Labels [][]MediaLabel // Labels[partIndex] is a multiset of labels
}

// ExpectedCopies sums label counts across every part index of the slice.
func (s Slice) ExpectedCopies() int {
	n := 0
	for _, labels := range s.Labels {
		n += len(labels)
	}
	return n
}

// Goal is a named replication policy: an ordered collection of slices.
type Goal struct {
	Name   string
	Slices []Slice
}

// ExpectedCopies is the sum across all slices of all label counts.
func (g Goal) ExpectedCopies() int {
	n := 0
	for _, s := range g.Slices {
		n += s.ExpectedCopies()
	}
	return n
}

// Location is one chunkserver's claim to hold a given part.
type Location struct {
	Part    PartType
	Address string // host:port
	Label   MediaLabel
}

// LocationRecord is what the master hands back to a client for one chunk:
// the (chunk_id, version, file_length_at_query, locations) tuple from §3.
// It is valid only for the duration of the client's attempt; on any read
// failure the client must reacquire one.
type LocationRecord struct {
	ChunkID         ID
	Version         Version
	FileLengthAtQry uint64
	Locations       []Location
}

// WriteLock is the (chunk_id, lock_id) pair minted by the master when a
// client requests write access (§3, §4.5). The zero value denotes "no prior
// lock", the sentinel a client sends on its first write-chunk attempt.
type WriteLock struct {
	ChunkID ID
	LockID  uint64
}

// IsZero reports whether l is the "no prior lock" sentinel.
func (l WriteLock) IsZero() bool {
	return l.LockID == 0
}
