package main

import (
	"bufio"
	"context"
	"net"
	"sync"

	"github.com/NebulousLabs/ed25519"

	"github.com/lizardfs/dataplane/pkg/chunk"
	"github.com/lizardfs/dataplane/pkg/master"
	"github.com/lizardfs/dataplane/pkg/registry"
	"github.com/lizardfs/dataplane/pkg/wire"
)

// chunkserverRegistry tracks the public keys chunkservers have registered
// with, so later part-location claims can be checked back against a
// genuine signature rather than trusted blindly (pkg/registry).
type chunkserverRegistry struct {
	mu   sync.RWMutex
	keys map[string]registry.PublicKey // address -> key
}

func newChunkserverRegistry() *chunkserverRegistry {
	return &chunkserverRegistry{keys: map[string]registry.PublicKey{}}
}

func (r *chunkserverRegistry) put(address string, pub registry.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[address] = pub
}

// serveMaster wires pkg/master.Directory's three RPCs, plus chunkserver
// registration, onto the wire protocol's framing, one connection per client
// session.
func serveMaster(dir *master.Directory) func(net.Conn) {
	servers := newChunkserverRegistry()
	return func(conn net.Conn) {
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			f, err := wire.ReadFrame(r)
			if err != nil {
				return
			}
			resp := handleFrame(dir, servers, f)
			if err := wire.WriteFrame(conn, resp); err != nil {
				return
			}
		}
	}
}

func handleFrame(dir *master.Directory, servers *chunkserverRegistry, f wire.Frame) wire.Frame {
	ctx := context.Background()
	switch f.Type {
	case wire.CLTOMA_FUSE_READ_CHUNK:
		inode, idx, _ := decodeReadChunkReq(f.Body)
		rec, err := dir.ReadChunk(ctx, inode, idx)
		if err != nil {
			return statusFrame(wire.MATOCL_FUSE_READ_CHUNK, statusFor(err))
		}
		return wire.Frame{Type: wire.MATOCL_FUSE_READ_CHUNK, Body: encodeLocationRecord(rec)}

	case wire.CLTOMA_FUSE_WRITE_CHUNK:
		inode, idx, prevLock := decodeWriteChunkReq(f.Body)
		rec, lock, err := dir.WriteChunk(ctx, inode, idx, prevLock)
		if err != nil {
			return statusFrame(wire.MATOCL_FUSE_WRITE_CHUNK, statusFor(err))
		}
		return wire.Frame{Type: wire.MATOCL_FUSE_WRITE_CHUNK, Body: encodeWriteChunkResp(rec, lock)}

	case wire.CLTOMA_FUSE_WRITE_CHUNK_END:
		lock, inode, newLen := decodeWriteChunkEndReq(f.Body)
		err := dir.WriteChunkEnd(ctx, lock, inode, newLen)
		return statusFrame(wire.MATOCL_FUSE_WRITE_CHUNK_END, statusFor(err))

	case wire.CSTOMA_REGISTER:
		address, pub, sig, partTypes, ok := decodeRegisterReq(f.Body)
		if !ok {
			return statusFrame(wire.MATOCS_REGISTER_STATUS, wire.StatusIO)
		}
		if err := registry.VerifyRegistration(pub, address, partTypes, sig); err != nil {
			return statusFrame(wire.MATOCS_REGISTER_STATUS, wire.StatusPermissionDenied)
		}
		servers.put(address, pub)
		return statusFrame(wire.MATOCS_REGISTER_STATUS, wire.StatusOK)

	default:
		return statusFrame(f.Type, wire.StatusIO)
	}
}

func statusFor(err error) wire.Status {
	switch err {
	case master.ErrNoSuchChunk:
		return wire.StatusNoSuchInode
	case master.ErrPermissionDenied:
		return wire.StatusPermissionDenied
	case master.ErrTruncated:
		return wire.StatusNoSuchInode
	case master.ErrStaleLock:
		return wire.StatusWrongLock
	default:
		return wire.StatusIO
	}
}

func statusFrame(typ uint32, st wire.Status) wire.Frame {
	return wire.Frame{Type: typ, Body: []byte{byte(st)}}
}

// The decode/encode helpers below are intentionally minimal fixed-width
// codecs over the §6 field lists; a production build would generate these
// from the protocol definitions the way the teacher pack's encoding package
// does for its own wire types.

func decodeReadChunkReq(b []byte) (inode uint64, index uint32, ok bool) {
	if len(b) < 12 {
		return 0, 0, false
	}
	return beUint64(b[0:8]), beUint32(b[8:12]), true
}

func decodeWriteChunkReq(b []byte) (inode uint64, index uint32, lock chunk.WriteLock) {
	if len(b) < 20 {
		return 0, 0, chunk.WriteLock{}
	}
	inode = beUint64(b[0:8])
	index = beUint32(b[8:12])
	lock = chunk.WriteLock{LockID: beUint64(b[12:20])}
	return
}

func decodeWriteChunkEndReq(b []byte) (lock chunk.WriteLock, inode, newLength uint64) {
	if len(b) < 32 {
		return chunk.WriteLock{}, 0, 0
	}
	lock = chunk.WriteLock{ChunkID: chunk.ID(beUint64(b[0:8])), LockID: beUint64(b[8:16])}
	inode = beUint64(b[16:24])
	newLength = beUint64(b[24:32])
	return
}

// decodeRegisterReq splits a CSTOMA_REGISTER body: a length-prefixed
// address, a fixed-width ed25519 public key, a fixed-width signature, and
// any trailing bytes as claimed part types.
func decodeRegisterReq(b []byte) (address string, pub registry.PublicKey, sig []byte, partTypes []byte, ok bool) {
	if len(b) < 4 {
		return "", nil, nil, nil, false
	}
	n := beUint32(b[0:4])
	if uint32(len(b)) < 4+n {
		return "", nil, nil, nil, false
	}
	address = string(b[4 : 4+n])
	rest := b[4+n:]
	if len(rest) < ed25519.PublicKeySize+ed25519.SignatureSize {
		return "", nil, nil, nil, false
	}
	pub = registry.PublicKey(rest[:ed25519.PublicKeySize])
	sig = rest[ed25519.PublicKeySize : ed25519.PublicKeySize+ed25519.SignatureSize]
	partTypes = rest[ed25519.PublicKeySize+ed25519.SignatureSize:]
	return address, pub, sig, partTypes, true
}

func encodeLocationRecord(rec chunk.LocationRecord) []byte {
	b := make([]byte, 0, 20+len(rec.Locations)*16)
	b = appendUint64(b, uint64(rec.ChunkID))
	b = appendUint32(b, uint32(rec.Version))
	b = appendUint64(b, rec.FileLengthAtQry)
	for _, l := range rec.Locations {
		b = appendUint32(b, uint32(l.Part.Index))
		b = append(b, []byte(l.Address)...)
		b = append(b, 0)
	}
	return b
}

func encodeWriteChunkResp(rec chunk.LocationRecord, lock chunk.WriteLock) []byte {
	b := encodeLocationRecord(rec)
	return appendUint64(b, lock.LockID)
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b[:8] {
		v = v<<8 | uint64(c)
	}
	return v
}

func beUint32(b []byte) uint32 {
	var v uint32
	for _, c := range b[:4] {
		v = v<<8 | uint32(c)
	}
	return v
}

func appendUint64(b []byte, v uint64) []byte {
	for i := 7; i >= 0; i-- {
		b = append(b, byte(v>>(8*uint(i))))
	}
	return b
}

func appendUint32(b []byte, v uint32) []byte {
	for i := 3; i >= 0; i-- {
		b = append(b, byte(v>>(8*uint(i))))
	}
	return b
}
