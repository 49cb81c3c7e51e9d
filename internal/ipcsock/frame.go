// Package ipcsock implements the length-prefixed frame codec used for
// process-to-process IPC (spec.md §1, §4.10): the generator round trip
// internal/generator dispatches over. Grounded on
// chimera-pool-core/internal/stratum/v2/binary/serializer.go's
// length-prefix framing style (the length here is 4 bytes, big-endian),
// adapted from that teacher's
// fixed binary message fields to a single variable-length text payload per
// frame (the stratifier's IPC commands are ckpool's plain-text command
// syntax, not a structured binary protocol).
package ipcsock

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// maxFrameLen bounds a single frame's payload, guarding against a
// corrupt or malicious length prefix forcing an unbounded allocation.
const maxFrameLen = 16 << 20 // 16 MiB

// ErrFrameTooLarge is returned when a peer's declared frame length exceeds
// maxFrameLen.
var ErrFrameTooLarge = errors.New("ipcsock: frame exceeds maximum length")

// WriteFrame writes a single length-prefixed frame: a 4-byte big-endian
// length followed by payload.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameLen {
		return ErrFrameTooLarge
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame from r, returning its payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameLen {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// FrameReader wraps a bufio.Reader to amortize the syscall cost of reading
// many small frames off the same connection, matching the buffering the
// teacher's line-oriented readers already do (see
// internal/connector.TCPSink's per-connection writes, the send-side analog).
type FrameReader struct {
	br *bufio.Reader
}

// NewFrameReader wraps r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{br: bufio.NewReader(r)}
}

// ReadFrame reads the next length-prefixed frame.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	return ReadFrame(fr.br)
}
