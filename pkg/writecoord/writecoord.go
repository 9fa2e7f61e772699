// Package writecoord implements §4.5's write coordinator: the write-chunk/
// commit handshake with the master, and streaming bytes down a chunkserver
// chain with idempotent retry on the same lock id.
//
// Grounded on the teacher repo's modules/host/negotiatedownload.go (and the
// negotiate-phase idiom generally used across modules/host) for driving a
// multi-step RPC with bounded, exponential-backoff retries; fastrand
// supplies the retry jitter the same way the teacher's contract renewal
// logic does.
package writecoord

import (
	"context"
	"time"

	"github.com/NebulousLabs/errors"
	"github.com/NebulousLabs/fastrand"
	"github.com/lizardfs/dataplane/pkg/chunk"
)

// ErrVersionMismatch is fatal for the current attempt: the client must
// reacquire a new lock and part locations (§4.5 "Failure semantics").
var ErrVersionMismatch = errors.New("chunkserver reported a stale chunk version")

// ErrRetriesExhausted is returned once N bounded retries of a transient
// network error have failed.
var ErrRetriesExhausted = errors.New("write attempt failed after all retries")

// MasterClient is the subset of master RPCs the write coordinator drives.
// pkg/master.Directory has the same method set; no network client
// implementation ships in this repository.
type MasterClient interface {
	WriteChunk(ctx context.Context, inode uint64, chunkIndex uint32, prevLock chunk.WriteLock) (chunk.LocationRecord, chunk.WriteLock, error)
	WriteChunkEnd(ctx context.Context, lock chunk.WriteLock, inode uint64, newLength uint64) error
}

// ChunkserverChain streams bytes to the first chunkserver in a location
// list, which forwards down the chain and acks per write-id on the same
// socket (§4.5).
type ChunkserverChain interface {
	StreamWrite(ctx context.Context, locs []chunk.Location, writeID uint64, blockNumber int, offsetInBlock, size uint32, data []byte, crc uint32) error
}

// Params bounds the coordinator's retry behavior.
type Params struct {
	MaxRetries   int
	InitialBackoff time.Duration
}

// Coordinator drives one inode/chunk-index write through open, stream, and
// commit phases.
type Coordinator struct {
	master MasterClient
	chain  ChunkserverChain
	params Params
}

// New returns a Coordinator.
func New(master MasterClient, chain ChunkserverChain, params Params) *Coordinator {
	if params.MaxRetries <= 0 {
		params.MaxRetries = 5
	}
	if params.InitialBackoff <= 0 {
		params.InitialBackoff = 50 * time.Millisecond
	}
	return &Coordinator{master: master, chain: chain, params: params}
}

// WriteChunk opens (or idempotently re-opens, given the same prevLock) the
// write-chunk phase for (inode, chunkIndex).
func (c *Coordinator) WriteChunk(ctx context.Context, inode uint64, chunkIndex uint32, prevLock chunk.WriteLock) (chunk.LocationRecord, chunk.WriteLock, error) {
	return c.master.WriteChunk(ctx, inode, chunkIndex, prevLock)
}

// StreamBlock writes one block to the chunkserver chain, retrying transient
// network errors with exponential backoff and fastrand-jittered delay, up to
// MaxRetries. A version mismatch is not retried; it is fatal for this
// attempt (§4.5).
func (c *Coordinator) StreamBlock(ctx context.Context, locs []chunk.Location, writeID uint64, blockNumber int, offsetInBlock, size uint32, data []byte, crc uint32) error {
	backoff := c.params.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= c.params.MaxRetries; attempt++ {
		err := c.chain.StreamWrite(ctx, locs, writeID, blockNumber, offsetInBlock, size, data, crc)
		if err == nil {
			return nil
		}
		if errors.Contains(err, ErrVersionMismatch) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + jitter(backoff)):
		}
		backoff *= 2
	}
	return errors.Compose(ErrRetriesExhausted, lastErr)
}

// Commit closes the write: sends (chunk_id, lock_id, inode, new_length) and
// releases the lock on success (§4.5 commit phase).
func (c *Coordinator) Commit(ctx context.Context, lock chunk.WriteLock, inode, newLength uint64) error {
	return c.master.WriteChunkEnd(ctx, lock, inode, newLength)
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(fastrand.Intn(int(d) + 1))
}
