package workbase

import (
	"encoding/binary"
	"time"
)

// binaryPutNTime encodes t's Unix seconds into the compact 4-byte
// big-endian ntime field carried on every workbase and notify message.
func binaryPutNTime(dst *[4]byte, t time.Time) {
	binary.BigEndian.PutUint32(dst[:], uint32(t.Unix()))
}

// buildHeaderTemplate assembles the cached block header buffer (spec.md
// §4.2): version || prevhash || merkle-placeholder(zero) || ntime || nbit
// || nonce-placeholder(zero), padded out to HeaderTemplateLen. Only the
// first 80 bytes are ever hashed; share validation overwrites the merkle
// root at offset 36 and the nonce at offset 76 before hashing (spec.md
// §4.6).
func buildHeaderTemplate(version [4]byte, prevHash [32]byte, ntime, nbit [4]byte) [HeaderTemplateLen]byte {
	var h [HeaderTemplateLen]byte
	off := 0
	off += copy(h[off:], version[:])
	off += copy(h[off:], prevHash[:])
	off += 32 // merkle root placeholder, filled in per-share
	off += copy(h[off:], ntime[:])
	off += copy(h[off:], nbit[:])
	// remaining bytes (nonce placeholder plus scratch padding) stay zero
	return h
}
