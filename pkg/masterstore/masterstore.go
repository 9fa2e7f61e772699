// Package masterstore stores chunk directory entries (version, part
// locations, outstanding lock id) on disk using an embedded key-value store,
// without a separate journal in this scope (the metadata B-tree and
// journaling proper are out of core per spec.md §1). cmd/lizard-master
// opens a Store at startup; pkg/master.Directory does not read from or
// write to it.
//
// Grounded on the pack's use of github.com/boltdb/bolt as the small
// embedded authoritative store for exactly this kind of directory data.
package masterstore

import (
	"encoding/binary"

	"github.com/NebulousLabs/errors"
	"github.com/boltdb/bolt"
	"github.com/lizardfs/dataplane/encoding"
	"github.com/lizardfs/dataplane/pkg/chunk"
)

var bucketChunks = []byte("chunks")

// Store wraps a bolt database holding chunk directory entries.
type Store struct {
	db *bolt.DB
}

// chunkRecord is the on-disk encoding of one chunk's directory entry,
// marshaled with the encoding package's reflection-based codec into bolt's
// []byte values.
type chunkRecord struct {
	Version   uint32
	Locations []locationRecord
	LockID    uint64
}

type locationRecord struct {
	SliceType  uint8
	PartIndex  int64
	Address    string
	Label      string
}

// Open opens (creating if needed) the bolt database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.AddContext(err, "masterstore: could not open database")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketChunks)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.AddContext(err, "masterstore: could not create bucket")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func chunkKey(id chunk.ID) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

// PutChunk persists one chunk's directory entry.
func (s *Store) PutChunk(id chunk.ID, version chunk.Version, lockID uint64, locs []chunk.Location) error {
	rec := chunkRecord{Version: uint32(version), LockID: lockID}
	for _, l := range locs {
		rec.Locations = append(rec.Locations, locationRecord{
			SliceType: uint8(l.Part.Slice),
			PartIndex: int64(l.Part.Index),
			Address:   l.Address,
			Label:     string(l.Label),
		})
	}
	buf := encoding.Marshal(rec)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChunks).Put(chunkKey(id), buf)
	})
}

// GetChunk loads one chunk's directory entry, if present.
func (s *Store) GetChunk(id chunk.ID) (version chunk.Version, lockID uint64, locs []chunk.Location, found bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketChunks).Get(chunkKey(id))
		if v == nil {
			return nil
		}
		found = true
		var rec chunkRecord
		if uerr := encoding.Unmarshal(v, &rec); uerr != nil {
			return uerr
		}
		version = chunk.Version(rec.Version)
		lockID = rec.LockID
		for _, l := range rec.Locations {
			locs = append(locs, chunk.Location{
				Part:  chunk.PartType{Slice: chunk.SliceType(l.SliceType), Index: int(l.PartIndex)},
				Address: l.Address,
				Label:   chunk.MediaLabel(l.Label),
			})
		}
		return nil
	})
	return
}

// DeleteChunk removes a chunk's directory entry.
func (s *Store) DeleteChunk(id chunk.ID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChunks).Delete(chunkKey(id))
	})
}
