// Package master implements §4.6's master chunk lookup handlers:
// read_chunk, write_chunk, and write_chunk_end. It owns the authoritative
// chunk->parts mapping and all locks (§3 "Ownership summary").
//
// Grounded on the teacher repo's modules/host/host.go for daemon lifecycle
// (New/Close, an internal mutex-guarded settings struct) generalized from a
// single host's contract bookkeeping to the master's chunk directory, and on
// LizardFS's src/protocol/cltoma.h / matocl.h for the three RPCs' request/
// response shape. The chunk directory is held in memory only; it does not
// read from or write to pkg/masterstore.
package master

import (
	"context"
	"sync"

	"github.com/NebulousLabs/errors"
	"github.com/NebulousLabs/fastrand"
	"github.com/lizardfs/dataplane/modules"
	"github.com/lizardfs/dataplane/pkg/chunk"
)

var (
	// ErrNoSuchChunk is returned when (inode, chunkIndex) has no allocated
	// chunk.
	ErrNoSuchChunk = errors.New("no such chunk")
	// ErrPermissionDenied is returned when the caller lacks rights to the
	// inode; ACL evaluation itself is out of this package's scope (§1).
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTruncated is returned when chunkIndex is beyond the file's current
	// length.
	ErrTruncated = errors.New("file truncated below requested chunk index")
	// ErrStaleLock is returned when write_chunk_end names a lock_id that
	// does not match the outstanding lock for the chunk.
	ErrStaleLock = errors.New("stale lock id")
)

// Directory is the master's in-memory chunk directory: the authoritative
// chunk->parts mapping plus the one outstanding write lock per chunk.
// Mutations are not persisted: nothing writes them to pkg/masterstore, and
// a new Directory starts empty.
type Directory struct {
	mu sync.Mutex

	// byInodeIndex maps (inode, chunkIndex) to a chunk id.
	byInodeIndex map[inodeIndex]chunk.ID
	chunks       map[chunk.ID]*chunkEntry
	fileLengths  map[uint64]uint64 // inode -> length
}

type inodeIndex struct {
	inode uint64
	index uint32
}

type chunkEntry struct {
	version   chunk.Version
	locations []chunk.Location
	lock      chunk.WriteLock // zero value: no outstanding lock
}

// NewDirectory returns an empty chunk directory.
func NewDirectory() *Directory {
	return &Directory{
		byInodeIndex: map[inodeIndex]chunk.ID{},
		chunks:       map[chunk.ID]*chunkEntry{},
		fileLengths:  map[uint64]uint64{},
	}
}

// ReadChunk implements read_chunk(inode, chunk_index).
func (d *Directory) ReadChunk(ctx context.Context, inode uint64, chunkIndex uint32) (chunk.LocationRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	length, ok := d.fileLengths[inode]
	if !ok {
		return chunk.LocationRecord{}, ErrNoSuchChunk
	}
	if uint64(chunkIndex)*uint64(modules.MaxChunkSize) >= length {
		return chunk.LocationRecord{}, ErrTruncated
	}
	id, ok := d.byInodeIndex[inodeIndex{inode, chunkIndex}]
	if !ok {
		return chunk.LocationRecord{}, ErrNoSuchChunk
	}
	e := d.chunks[id]
	return chunk.LocationRecord{
		ChunkID:         id,
		Version:         e.version,
		FileLengthAtQry: length,
		Locations:       append([]chunk.Location(nil), e.locations...),
	}, nil
}

// WriteChunk implements write_chunk(inode, chunk_index, prev_lock_id),
// idempotent on retry with the same prevLock (§4.6).
func (d *Directory) WriteChunk(ctx context.Context, inode uint64, chunkIndex uint32, prevLock chunk.WriteLock) (chunk.LocationRecord, chunk.WriteLock, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := inodeIndex{inode, chunkIndex}
	id, ok := d.byInodeIndex[key]
	if !ok {
		id = chunk.ID(fastrand.Uint64n(1 << 62))
		d.byInodeIndex[key] = id
		d.chunks[id] = &chunkEntry{version: 1}
	}
	e := d.chunks[id]

	switch {
	case e.lock.IsZero():
		e.lock = chunk.WriteLock{ChunkID: id, LockID: fastrand.Uint64n(1<<62) + 1}
	case prevLock != e.lock:
		return chunk.LocationRecord{}, chunk.WriteLock{}, errors.New("another writer holds the lock for this chunk")
	}

	return chunk.LocationRecord{
		ChunkID:         id,
		Version:         e.version,
		FileLengthAtQry: d.fileLengths[inode],
		Locations:       append([]chunk.Location(nil), e.locations...),
	}, e.lock, nil
}

// WriteChunkEnd implements write_chunk_end(chunk_id, lock_id, inode,
// new_length): validates the lock, persists the new length and version, and
// releases the lock (§4.6).
func (d *Directory) WriteChunkEnd(ctx context.Context, lock chunk.WriteLock, inode, newLength uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.chunks[lock.ChunkID]
	if !ok || e.lock != lock {
		return ErrStaleLock
	}
	e.version++
	e.lock = chunk.WriteLock{}
	d.fileLengths[inode] = newLength
	return nil
}

// SetLocations updates a chunk's known part locations; called by the
// replication scheduler (out of core scope) when parts move.
func (d *Directory) SetLocations(id chunk.ID, locs []chunk.Location) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.chunks[id]; ok {
		e.locations = locs
	}
}
