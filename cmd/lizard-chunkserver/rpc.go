package main

import (
	"bufio"
	"net"

	"github.com/lizardfs/dataplane/crypto"
	"github.com/lizardfs/dataplane/modules"
	"github.com/lizardfs/dataplane/pkg/chunk"
	"github.com/lizardfs/dataplane/pkg/wire"
)

// serveChunkserver handles CLTOCS_READ and CLTOCS_WRITE_DATA frames against
// store, one connection per client session (§6's CLTOCS_*/CSTOCL_*
// contracts).
func serveChunkserver(store *partStore) func(net.Conn) {
	return func(conn net.Conn) {
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			f, err := wire.ReadFrame(r)
			if err != nil {
				return
			}
			resp := handleChunkFrame(store, f)
			if err := wire.WriteFrame(conn, resp); err != nil {
				return
			}
		}
	}
}

func handleChunkFrame(store *partStore, f wire.Frame) wire.Frame {
	switch f.Type {
	case wire.CLTOCS_READ:
		return handleRead(store, f.Body)
	case wire.CLTOCS_WRITE_DATA:
		return handleWrite(store, f.Body)
	default:
		return wire.Frame{Type: wire.CSTOCL_READ_STATUS, Body: []byte{byte(wire.StatusIO)}}
	}
}

func handleRead(store *partStore, body []byte) wire.Frame {
	if len(body) < 17 {
		return wire.Frame{Type: wire.CSTOCL_READ_STATUS, Body: []byte{byte(wire.StatusIO)}}
	}
	id := chunk.ID(beUint64(body[0:8]))
	partIndex := int(beUint32(body[8:12]))
	sliceType := chunk.SliceType(body[12])
	offset := beUint32(body[13:17])
	part := chunk.PartType{Slice: sliceType, Index: partIndex}

	blockNumber := int(offset) / modules.BlockSize
	offsetInBlock := int(offset) % modules.BlockSize

	data, err := store.ReadBlock(id, part, blockNumber, modules.BlockSize)
	if err != nil {
		return wire.Frame{Type: wire.CSTOCL_READ_STATUS, Body: []byte{byte(wire.StatusChunkLost)}}
	}
	block := data[offsetInBlock:]
	crc := crypto.BlockCRC32(block)

	resp := make([]byte, 0, 20+len(block))
	resp = appendUint64(resp, uint64(id))
	resp = appendUint32(resp, offset)
	resp = appendUint32(resp, uint32(len(block)))
	resp = appendUint32(resp, crc)
	resp = append(resp, block...)
	return wire.Frame{Type: wire.CSTOCL_READ_DATA, Body: resp}
}

func handleWrite(store *partStore, body []byte) wire.Frame {
	if len(body) < 29 {
		return wire.Frame{Type: wire.CSTOCL_WRITE_STATUS, Body: []byte{byte(wire.StatusIO)}}
	}
	id := chunk.ID(beUint64(body[0:8]))
	writeID := beUint64(body[8:16])
	blockNumber := int(beUint32(body[16:20]))
	offsetInBlock := int(beUint32(body[20:24]))
	size := beUint32(body[24:28])
	crc := beUint32(body[28:32])
	data := body[32 : 32+int(size)]

	if crypto.BlockCRC32(data) != crc {
		resp := appendUint64(appendUint64(nil, uint64(id)), writeID)
		resp = append(resp, byte(wire.StatusIO))
		return wire.Frame{Type: wire.CSTOCL_WRITE_STATUS, Body: resp}
	}

	part := chunk.PartType{Slice: chunk.SliceStandard, Index: 0}
	err := store.WriteBlock(id, part, blockNumber, offsetInBlock, modules.BlockSize, data)
	status := wire.StatusOK
	if err != nil {
		status = wire.StatusIO
	}
	resp := appendUint64(appendUint64(nil, uint64(id)), writeID)
	resp = append(resp, byte(status))
	return wire.Frame{Type: wire.CSTOCL_WRITE_STATUS, Body: resp}
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
