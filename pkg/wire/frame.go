// Package wire implements §6's external interfaces: message framing,
// packet-id taxonomy, and status codes shared by every client/master/
// chunkserver exchange in the data plane.
//
// Grounded on LizardFS's src/protocol/packet.h for the type:u32||length:u32
// big-endian frame and src/protocol/cltoma.h / matocl.h / cstoma.h /
// matocs.h / cltocs.h / cstocl.h for the packet-id namespaces. Streaming
// uses the teacher pack's length-prefix idiom from
// encoding/marshal.go's WritePrefixedBytes/ReadPrefixedBytes, generalized
// from that codec's 8-byte length prefix to the wire protocol's fixed u32
// header.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/NebulousLabs/errors"
)

// HeaderSize is the fixed type:u32 || length:u32 frame header.
const HeaderSize = 8

// MaxBodySize bounds a single frame's body. It equals modules.MaxChunkSize,
// far more than a CLTOCS_WRITE_DATA frame carrying one full block needs.
const MaxBodySize = 1 << 26 // 64 MiB

// ErrBodyTooLarge is returned when a frame claims a body larger than
// MaxBodySize.
var ErrBodyTooLarge = errors.New("wire: frame body exceeds maximum size")

// Frame is one decoded packet: a type id and its raw body.
type Frame struct {
	Type uint32
	Body []byte
}

// WriteFrame writes f to w as type:u32 || length:u32 || body, big-endian.
func WriteFrame(w io.Writer, f Frame) error {
	var hdr [HeaderSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], f.Type)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(f.Body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.AddContext(err, "wire: could not write frame header")
	}
	if len(f.Body) == 0 {
		return nil
	}
	if _, err := w.Write(f.Body); err != nil {
		return errors.AddContext(err, "wire: could not write frame body")
	}
	return nil
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	typ := binary.BigEndian.Uint32(hdr[0:4])
	length := binary.BigEndian.Uint32(hdr[4:8])
	if length > MaxBodySize {
		return Frame{}, ErrBodyTooLarge
	}
	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return Frame{}, errors.AddContext(err, "wire: could not read frame body")
		}
	}
	return Frame{Type: typ, Body: body}, nil
}

// WritePrefixedString writes a length-prefixed (u32) UTF-8 string.
func WritePrefixedString(w io.Writer, s string) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadPrefixedString reads a length-prefixed (u32) UTF-8 string.
func ReadPrefixedString(r io.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}
